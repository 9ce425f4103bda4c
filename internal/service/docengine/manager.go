package docengine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vellum/internal/domain"
	"vellum/internal/domain/models/doc"
	"vellum/internal/domain/repositories"
	"vellum/internal/domain/services"
)

// Manager implements services.DocumentEngine. It keeps one Editor per open
// document, loading the snapshot from the repository on first access.
type Manager struct {
	mu      sync.Mutex
	editors map[string]*Editor

	repo      repositories.DocumentRepository
	templates *TemplateRegistry
	importer  *HTMLImporter
	amounts   AmountResolver
	debounce  time.Duration
	logger    *slog.Logger
}

// NewManager creates the engine entry point.
func NewManager(repo repositories.DocumentRepository, templates *TemplateRegistry, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		editors:   make(map[string]*Editor),
		repo:      repo,
		templates: templates,
		importer:  NewHTMLImporter(),
		debounce:  2 * time.Second,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerDebounce overrides the per-editor autosave debounce.
func WithManagerDebounce(d time.Duration) ManagerOption {
	return func(m *Manager) { m.debounce = d }
}

// WithManagerAmountResolver injects the external amount resolver.
func WithManagerAmountResolver(r AmountResolver) ManagerOption {
	return func(m *Manager) { m.amounts = r }
}

var _ services.DocumentEngine = (*Manager)(nil)

// CreateDocument instantiates a template, persists it and opens an editor.
func (m *Manager) CreateDocument(ctx context.Context, req *services.CreateDocumentRequest) (*doc.DocumentState, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}
	template := req.Template
	if template == "" {
		template = "blank"
	}
	state, err := m.templates.Instantiate(template, req.Title)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}
	if err := m.repo.Create(ctx, state); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.editors[state.ID] = NewEditor(state, m.repo, m.logger,
		WithDebounceInterval(m.debounce), WithAmountResolver(m.amounts))
	m.mu.Unlock()

	m.logger.Info("document created", "document_id", state.ID, "template", template)
	return state, nil
}

// GetDocument returns a snapshot of the current in-memory state, falling
// back to the stored snapshot for documents that are not open.
func (m *Manager) GetDocument(ctx context.Context, id string) (*doc.DocumentState, error) {
	m.mu.Lock()
	editor, open := m.editors[id]
	m.mu.Unlock()
	if open {
		return editor.Snapshot(), nil
	}
	return m.repo.GetByID(ctx, id)
}

// ListDocuments lists stored documents.
func (m *Manager) ListDocuments(ctx context.Context) ([]*doc.DocumentSummary, error) {
	return m.repo.List(ctx)
}

// DeleteDocument closes any open editor and removes the stored snapshot.
func (m *Manager) DeleteDocument(ctx context.Context, id string) error {
	m.mu.Lock()
	if editor, ok := m.editors[id]; ok {
		editor.Close()
		delete(m.editors, id)
	}
	m.mu.Unlock()
	return m.repo.Delete(ctx, id)
}

// SaveDocument flushes the open editor synchronously ("save now").
func (m *Manager) SaveDocument(ctx context.Context, id string) error {
	editor, err := m.open(ctx, id)
	if err != nil {
		return err
	}
	return editor.Flush(ctx)
}

// AddBlock adds a block to an open document.
func (m *Manager) AddBlock(ctx context.Context, docID string, req *services.AddBlockRequest) (*doc.Block, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}
	editor, err := m.open(ctx, docID)
	if err != nil {
		return nil, err
	}
	position := req.Position
	if position == "" {
		position = doc.PositionAfter
	}
	return editor.AddBlock(req.Type, req.TargetID, position, req.Actor), nil
}

// UpdateBlock patches a block. Missing block ids no-op.
func (m *Manager) UpdateBlock(ctx context.Context, docID, blockID string, patch doc.BlockPatch, recordHistory bool, actor string) error {
	editor, err := m.open(ctx, docID)
	if err != nil {
		return err
	}
	editor.UpdateBlock(blockID, patch, recordHistory, actor)
	return nil
}

// DeleteBlock removes a block. Missing block ids no-op.
func (m *Manager) DeleteBlock(ctx context.Context, docID, blockID, actor string) error {
	editor, err := m.open(ctx, docID)
	if err != nil {
		return err
	}
	editor.DeleteBlock(blockID, actor)
	return nil
}

// MoveBlock relocates a block.
func (m *Manager) MoveBlock(ctx context.Context, docID string, req *services.MoveBlockRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}
	editor, err := m.open(ctx, docID)
	if err != nil {
		return err
	}
	position := req.Position
	if position == "" {
		position = doc.PositionAfter
	}
	editor.MoveBlock(req.BlockID, req.TargetID, position, req.Actor)
	return nil
}

// UngroupBlock explodes a container into its contents.
func (m *Manager) UngroupBlock(ctx context.Context, docID, blockID, actor string) error {
	editor, err := m.open(ctx, docID)
	if err != nil {
		return err
	}
	editor.UngroupBlock(blockID, actor)
	return nil
}

// ImportHTML converts HTML to text blocks and inserts them.
func (m *Manager) ImportHTML(ctx context.Context, docID string, req *services.ImportHTMLRequest) ([]*doc.Block, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}
	editor, err := m.open(ctx, docID)
	if err != nil {
		return nil, err
	}
	blocks, err := m.importer.Import(ctx, req.HTML)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}
	position := req.Position
	if position == "" {
		position = doc.PositionAfter
	}
	targetID := req.TargetID
	for _, b := range blocks {
		added := editor.AddImportedBlock(b, targetID, position, req.Actor)
		if added != nil {
			// Chain subsequent blocks after the one just inserted so the
			// imported sequence keeps its order.
			targetID = added.ID
			position = doc.PositionAfter
		}
	}
	return blocks, nil
}

// Undo reverts the last snapshot-recording operation.
func (m *Manager) Undo(ctx context.Context, docID string) (bool, error) {
	editor, err := m.open(ctx, docID)
	if err != nil {
		return false, err
	}
	return editor.Undo(), nil
}

// Redo re-applies the last undone operation.
func (m *Manager) Redo(ctx context.Context, docID string) (bool, error) {
	editor, err := m.open(ctx, docID)
	if err != nil {
		return false, err
	}
	return editor.Redo(), nil
}

// AddParty adds a signer/recipient.
func (m *Manager) AddParty(ctx context.Context, docID string, req *services.AddPartyRequest) (*doc.Party, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}
	editor, err := m.open(ctx, docID)
	if err != nil {
		return nil, err
	}
	p := editor.AddParty(req.Name, req.Email, req.Actor)
	return &p, nil
}

// RemoveParty deletes a party.
func (m *Manager) RemoveParty(ctx context.Context, docID, partyID, actor string) error {
	editor, err := m.open(ctx, docID)
	if err != nil {
		return err
	}
	editor.RemoveParty(partyID, actor)
	return nil
}

// UpdateParty patches a party.
func (m *Manager) UpdateParty(ctx context.Context, docID, partyID string, req *services.UpdatePartyRequest) error {
	editor, err := m.open(ctx, docID)
	if err != nil {
		return err
	}
	editor.UpdateParty(partyID, req.Name, req.Email, req.Actor)
	return nil
}

// UpdateParties replaces the party list.
func (m *Manager) UpdateParties(ctx context.Context, docID string, parties []doc.Party, actor string) error {
	for _, p := range parties {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: %s", domain.ErrValidation, err)
		}
	}
	editor, err := m.open(ctx, docID)
	if err != nil {
		return err
	}
	editor.UpdateParties(parties, actor)
	return nil
}

// SetValue records a form answer.
func (m *Manager) SetValue(ctx context.Context, docID string, req *services.SetValueRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}
	editor, err := m.open(ctx, docID)
	if err != nil {
		return err
	}
	editor.SetValue(req.Key, req.Value)
	return nil
}

// Resolve returns the evaluated view of a document for rendering.
func (m *Manager) Resolve(ctx context.Context, docID string) ([]*doc.ResolvedBlock, error) {
	editor, err := m.open(ctx, docID)
	if err != nil {
		return nil, err
	}
	return ResolveTree(editor.Snapshot(), m.amounts), nil
}

// Integrity recomputes the content fingerprint and returns it with the
// audit log. A hash failure is reported as unverified, not as an error.
func (m *Manager) Integrity(ctx context.Context, docID string) (*services.IntegrityReport, error) {
	editor, err := m.open(ctx, docID)
	if err != nil {
		return nil, err
	}
	state := editor.Snapshot()
	sum, hashErr := HashDocument(state)
	if hashErr != nil {
		m.logger.Error("integrity hash failed", "document_id", docID, "error", hashErr)
	}
	return &services.IntegrityReport{
		DocumentID: docID,
		SHA256:     sum,
		Verified:   hashErr == nil && sum != HashUnavailable,
		ComputedAt: time.Now().UTC(),
		AuditLog:   state.AuditLog,
	}, nil
}

// Shutdown flushes and closes every open editor.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	editors := make([]*Editor, 0, len(m.editors))
	for _, e := range m.editors {
		editors = append(editors, e)
	}
	m.editors = make(map[string]*Editor)
	m.mu.Unlock()

	for _, e := range editors {
		if err := e.Flush(ctx); err != nil {
			m.logger.Error("flush on shutdown failed", "error", err)
		}
		e.Close()
	}
}

// open returns the editor for a document, loading it on first access.
func (m *Manager) open(ctx context.Context, id string) (*Editor, error) {
	m.mu.Lock()
	if editor, ok := m.editors[id]; ok {
		m.mu.Unlock()
		return editor, nil
	}
	m.mu.Unlock()

	// Load outside the lock; a racing open of the same document resolves
	// below by keeping whichever editor landed first.
	state, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if editor, ok := m.editors[id]; ok {
		return editor, nil
	}
	editor := NewEditor(state, m.repo, m.logger,
		WithDebounceInterval(m.debounce), WithAmountResolver(m.amounts))
	m.editors[id] = editor
	return editor, nil
}
