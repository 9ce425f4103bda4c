package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"vellum/internal/config"
	"vellum/internal/domain/models/doc"
	"vellum/internal/repository/postgres"
	"vellum/internal/service/docengine"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed documents (for use with shell scripts)")
	clearData := flag.Bool("clear-data", false, "Clear all documents (keep schema)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *clearData {
		log.Printf("🧹 Clearing data only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else if *schemaOnly {
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else {
		log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Drop tables if requested
	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	// Run schema to ensure tables exist
	log.Println("📋 Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	// Exit early if schema-only mode
	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	// Clear existing documents before seeding (and in clear-data mode)
	log.Println("🧹 Clearing existing documents...")
	if err := clearDocuments(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to clear data: %v", err)
	}
	if *clearData {
		log.Println("✅ Data cleared successfully")
		return
	}

	// Create repository and engine
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	docRepo := postgres.NewDocumentRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	templates, err := docengine.NewTemplateRegistry()
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	// Seed documents
	log.Println("📝 Seeding demo documents...")

	seeds := []struct {
		template string
		title    string
	}{
		{"blank", "Untitled Document"},
		{"service-agreement", "Service Agreement - Acme Corp"},
	}

	// Seed inside one transaction so a half-seeded database never survives.
	err = txManager.ExecTx(ctx, func(txCtx context.Context) error {
		for i, s := range seeds {
			state, err := templates.Instantiate(s.template, s.title)
			if err != nil {
				return err
			}
			enrichSeedDocument(state)
			if err := docRepo.Create(txCtx, state); err != nil {
				return err
			}
			log.Printf("✅ Created document %d/%d: %s (ID: %s, Blocks: %d)",
				i+1, len(seeds), s.title, state.ID, len(state.Blocks))
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to seed documents: %v", err)
	}

	log.Println("🎉 Seeding complete!")
}

// enrichSeedDocument adds demo parties and answers so the documents are
// interesting out of the box.
func enrichSeedDocument(state *doc.DocumentState) {
	if len(state.Parties) == 0 {
		state.Parties = append(state.Parties,
			docengine.NewParty("Dana Winters", "dana@example.com", 0),
			docengine.NewParty("Sam Okafor", "sam@example.com", 1),
		)
	}
	if state.Values == nil {
		state.Values = map[string]string{}
	}
	if sum, err := docengine.HashDocument(state); err == nil {
		state.SHA256 = sum
	}
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	// Enable UUID extension
	_, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"")
	if err != nil {
		return err
	}

	// Create documents table
	createDocuments := `
		CREATE TABLE IF NOT EXISTS ` + tables.Documents + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'draft',
			sha256 TEXT NOT NULL DEFAULT '',
			state JSONB NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createDocuments); err != nil {
		return err
	}

	// Create indexes
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `documents_updated_at ON ` + tables.Documents + `(updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `documents_status ON ` + tables.Documents + `(status)`,
	}

	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	dropSQL := "DROP TABLE IF EXISTS " + tables.Documents + " CASCADE"
	if _, err := pool.Exec(ctx, dropSQL); err != nil {
		return err
	}
	log.Printf("  ✓ Dropped %s", tables.Documents)
	return nil
}

// clearDocuments deletes all stored documents
func clearDocuments(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	_, err := pool.Exec(ctx, "DELETE FROM "+tables.Documents)
	return err
}
