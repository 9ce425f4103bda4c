package repositories

import (
	"context"

	"vellum/internal/domain/models/doc"
)

// DocumentRepository persists document snapshots. Save is called on a
// debounce after mutations and on explicit "save now"; failures surface as
// errors for the caller to fold into a save status, never as panics.
type DocumentRepository interface {
	// Create inserts a new document. Returns domain.ErrConflict if the id
	// already exists.
	Create(ctx context.Context, state *doc.DocumentState) error

	// GetByID loads a document snapshot. Returns domain.ErrNotFound if
	// absent.
	GetByID(ctx context.Context, id string) (*doc.DocumentState, error)

	// List returns summaries of all documents, most recently updated first.
	List(ctx context.Context) ([]*doc.DocumentSummary, error)

	// Save overwrites the stored snapshot for an existing document.
	Save(ctx context.Context, state *doc.DocumentState) error

	// Delete removes a document. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error
}
