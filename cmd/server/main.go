package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"vellum/internal/auth"
	"vellum/internal/config"
	"vellum/internal/handler"
	"vellum/internal/middleware"
	"vellum/internal/repository/postgres"
	"vellum/internal/service/docengine"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 10)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// JWT verifier is optional: without a JWKS endpoint the auth middleware
	// passes requests through as anonymous (local development).
	var verifier auth.TokenVerifier
	if cfg.JWKSURL != "" {
		v, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer v.Close()
		verifier = v
	} else {
		logger.Warn("JWKS_URL not set, running without token verification")
	}

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create repositories
	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	docRepo := postgres.NewDocumentRepository(repoConfig)

	// Template registry (embedded YAML templates)
	templates, err := docengine.NewTemplateRegistry()
	if err != nil {
		log.Fatalf("Failed to load document templates: %v", err)
	}
	logger.Info("template registry initialized", "templates", templates.Names())

	// Document engine
	engine := docengine.NewManager(docRepo, templates, logger,
		docengine.WithManagerDebounce(cfg.AutosaveDebounce))

	// Handlers
	docHandler := handler.NewDocumentHandler(engine, logger)
	editorHandler := handler.NewEditorHandler(engine, logger)
	renderHandler := handler.NewRenderHandler(engine, logger)
	importHandler := handler.NewImportHandler(engine, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", docHandler.HealthCheck)

	// Document lifecycle routes
	mux.HandleFunc("POST /api/documents", docHandler.Create)
	mux.HandleFunc("GET /api/documents", docHandler.List)
	mux.HandleFunc("GET /api/documents/{id}", docHandler.Get)
	mux.HandleFunc("DELETE /api/documents/{id}", docHandler.Delete)
	mux.HandleFunc("POST /api/documents/{id}/save", docHandler.Save)

	// Block editing routes
	mux.HandleFunc("POST /api/documents/{id}/blocks", editorHandler.AddBlock)
	mux.HandleFunc("PATCH /api/documents/{id}/blocks/{blockId}", editorHandler.UpdateBlock)
	mux.HandleFunc("DELETE /api/documents/{id}/blocks/{blockId}", editorHandler.DeleteBlock)
	mux.HandleFunc("POST /api/documents/{id}/blocks/{blockId}/ungroup", editorHandler.UngroupBlock)
	mux.HandleFunc("POST /api/documents/{id}/blocks/move", editorHandler.MoveBlock)

	// History routes
	mux.HandleFunc("POST /api/documents/{id}/undo", editorHandler.Undo)
	mux.HandleFunc("POST /api/documents/{id}/redo", editorHandler.Redo)

	// Party routes
	mux.HandleFunc("POST /api/documents/{id}/parties", editorHandler.AddParty)
	mux.HandleFunc("PUT /api/documents/{id}/parties", editorHandler.ReplaceParties)
	mux.HandleFunc("PATCH /api/documents/{id}/parties/{partyId}", editorHandler.UpdateParty)
	mux.HandleFunc("DELETE /api/documents/{id}/parties/{partyId}", editorHandler.RemoveParty)

	// Form value routes
	mux.HandleFunc("PUT /api/documents/{id}/values", editorHandler.SetValue)

	// Render and integrity routes
	mux.HandleFunc("GET /api/documents/{id}/resolved", renderHandler.Resolve)
	mux.HandleFunc("GET /api/documents/{id}/integrity", renderHandler.Integrity)

	// Import routes
	mux.HandleFunc("POST /api/documents/{id}/import", importHandler.ImportHTML)

	// Build middleware chain
	var root http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	root = middleware.Auth(verifier, logger)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Flush open editors before exit so debounced saves are not lost.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		engine.Shutdown(shutdownCtx)
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("server starting", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
