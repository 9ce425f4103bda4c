package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"vellum/internal/domain"
	"vellum/internal/domain/models/doc"
	"vellum/internal/domain/repositories"
)

// PostgresDocumentRepository implements the DocumentRepository interface.
// The full document state is stored as a JSONB snapshot; title, status and
// sha256 are mirrored into columns for listing and indexing.
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a new document snapshot
func (r *PostgresDocumentRepository) Create(ctx context.Context, state *doc.DocumentState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, title, status, sha256, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	_, err = executor.Exec(ctx, query,
		state.ID,
		state.Title,
		state.Status,
		state.SHA256,
		payload,
		state.CreatedAt,
		state.UpdatedAt,
	)

	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("document %s already exists", state.ID),
				ResourceType: "document",
				ResourceID:   state.ID,
			}
		}
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// GetByID retrieves a document snapshot by ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*doc.DocumentState, error) {
	query := fmt.Sprintf(`
		SELECT state
		FROM %s
		WHERE id = $1
	`, r.tables.Documents)

	var payload []byte
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(&payload)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	var state doc.DocumentState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}

	return &state, nil
}

// List returns document summaries, most recently updated first
func (r *PostgresDocumentRepository) List(ctx context.Context) ([]*doc.DocumentSummary, error) {
	query := fmt.Sprintf(`
		SELECT id, title, status, sha256, updated_at
		FROM %s
		ORDER BY updated_at DESC
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var summaries []*doc.DocumentSummary
	for rows.Next() {
		var s doc.DocumentSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Status, &s.SHA256, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document summary: %w", err)
		}
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	return summaries, nil
}

// Save overwrites the stored snapshot for an existing document
func (r *PostgresDocumentRepository) Save(ctx context.Context, state *doc.DocumentState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $2, status = $3, sha256 = $4, state = $5, updated_at = $6
		WHERE id = $1
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query,
		state.ID,
		state.Title,
		state.Status,
		state.SHA256,
		payload,
		state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", state.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes a document. Deleting an absent id is not an error.
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	return nil
}
