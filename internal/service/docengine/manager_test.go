package docengine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"vellum/internal/domain"
	"vellum/internal/domain/models/doc"
	"vellum/internal/domain/services"
)

// memoryRepository is an in-memory DocumentRepository used across manager
// tests.
type memoryRepository struct {
	mu   sync.Mutex
	docs map[string]*doc.DocumentState
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{docs: make(map[string]*doc.DocumentState)}
}

func (m *memoryRepository) Create(ctx context.Context, state *doc.DocumentState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[state.ID]; ok {
		return fmt.Errorf("document %s: %w", state.ID, domain.ErrConflict)
	}
	m.docs[state.ID] = cloneState(state)
	return nil
}

func (m *memoryRepository) GetByID(ctx context.Context, id string) (*doc.DocumentState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return cloneState(state), nil
}

func (m *memoryRepository) List(ctx context.Context) ([]*doc.DocumentSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*doc.DocumentSummary
	for _, s := range m.docs {
		out = append(out, &doc.DocumentSummary{ID: s.ID, Title: s.Title, Status: s.Status, UpdatedAt: s.UpdatedAt})
	}
	return out, nil
}

func (m *memoryRepository) Save(ctx context.Context, state *doc.DocumentState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[state.ID]; !ok {
		return fmt.Errorf("document %s: %w", state.ID, domain.ErrNotFound)
	}
	m.docs[state.ID] = cloneState(state)
	return nil
}

func (m *memoryRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func newTestManager(t *testing.T) (*Manager, *memoryRepository) {
	t.Helper()
	registry, err := NewTemplateRegistry()
	if err != nil {
		t.Fatalf("NewTemplateRegistry: %v", err)
	}
	repo := newMemoryRepository()
	return NewManager(repo, registry, testLogger(), WithManagerDebounce(time.Hour)), repo
}

func TestManagerDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	m, repo := newTestManager(t)

	state, err := m.CreateDocument(ctx, &services.CreateDocumentRequest{Template: "service-agreement", Title: "Deal"})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	t.Run("create persists immediately", func(t *testing.T) {
		if _, err := repo.GetByID(ctx, state.ID); err != nil {
			t.Fatalf("stored copy missing: %v", err)
		}
	})

	t.Run("get returns live state", func(t *testing.T) {
		got, err := m.GetDocument(ctx, state.ID)
		if err != nil {
			t.Fatalf("GetDocument: %v", err)
		}
		if got.ID != state.ID || got.Title != "Deal" {
			t.Fatalf("got = %s/%s", got.ID, got.Title)
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		if _, err := m.GetDocument(ctx, "ghost"); err == nil {
			t.Fatal("expected not found")
		}
	})

	t.Run("empty template defaults to blank", func(t *testing.T) {
		s, err := m.CreateDocument(ctx, &services.CreateDocumentRequest{Title: "Empty"})
		if err != nil {
			t.Fatalf("CreateDocument: %v", err)
		}
		if len(s.Blocks) != 0 {
			t.Fatalf("blank document has %d blocks", len(s.Blocks))
		}
	})

	t.Run("list includes both documents", func(t *testing.T) {
		summaries, err := m.ListDocuments(ctx)
		if err != nil {
			t.Fatalf("ListDocuments: %v", err)
		}
		if len(summaries) != 2 {
			t.Fatalf("summaries = %d, want 2", len(summaries))
		}
	})

	t.Run("delete removes document", func(t *testing.T) {
		if err := m.DeleteDocument(ctx, state.ID); err != nil {
			t.Fatalf("DeleteDocument: %v", err)
		}
		if _, err := m.GetDocument(ctx, state.ID); err == nil {
			t.Fatal("deleted document still readable")
		}
	})
}

func TestManagerEditsThroughEngine(t *testing.T) {
	ctx := context.Background()
	m, repo := newTestManager(t)

	state, err := m.CreateDocument(ctx, &services.CreateDocumentRequest{Title: "Doc"})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	block, err := m.AddBlock(ctx, state.ID, &services.AddBlockRequest{Type: doc.BlockText})
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}

	t.Run("invalid block type is rejected", func(t *testing.T) {
		_, err := m.AddBlock(ctx, state.ID, &services.AddBlockRequest{Type: "hologram"})
		if err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("update then undo", func(t *testing.T) {
		content := "updated"
		if err := m.UpdateBlock(ctx, state.ID, block.ID, doc.BlockPatch{Content: &content}, true, "alice"); err != nil {
			t.Fatalf("UpdateBlock: %v", err)
		}
		got, _ := m.GetDocument(ctx, state.ID)
		if FindNode(got.Blocks, block.ID).Content != "updated" {
			t.Fatal("patch not applied")
		}

		applied, err := m.Undo(ctx, state.ID)
		if err != nil || !applied {
			t.Fatalf("Undo = %v, %v", applied, err)
		}
		got, _ = m.GetDocument(ctx, state.ID)
		if FindNode(got.Blocks, block.ID).Content == "updated" {
			t.Fatal("undo did not revert the patch")
		}
	})

	t.Run("save now flushes to repository", func(t *testing.T) {
		if err := m.SaveDocument(ctx, state.ID); err != nil {
			t.Fatalf("SaveDocument: %v", err)
		}
		stored, err := repo.GetByID(ctx, state.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if FindNode(stored.Blocks, block.ID) == nil {
			t.Fatal("flushed snapshot missing the added block")
		}
	})

	t.Run("set value feeds resolution", func(t *testing.T) {
		formula, err := m.AddBlock(ctx, state.ID, &services.AddBlockRequest{Type: doc.BlockFormula})
		if err != nil {
			t.Fatalf("AddBlock: %v", err)
		}
		f := "{{n}} * 2"
		name := "n"
		if err := m.UpdateBlock(ctx, state.ID, formula.ID, doc.BlockPatch{Formula: &f}, true, "alice"); err != nil {
			t.Fatalf("UpdateBlock: %v", err)
		}
		if err := m.UpdateBlock(ctx, state.ID, block.ID, doc.BlockPatch{VariableName: &name}, true, "alice"); err != nil {
			t.Fatalf("UpdateBlock: %v", err)
		}
		if err := m.SetValue(ctx, state.ID, &services.SetValueRequest{Key: block.ID, Value: "21"}); err != nil {
			t.Fatalf("SetValue: %v", err)
		}

		resolved, err := m.Resolve(ctx, state.ID)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		var computed string
		for _, rb := range resolved {
			if rb.Block.ID == formula.ID {
				computed = rb.Computed
			}
		}
		if computed != "42" {
			t.Fatalf("computed = %q, want 42", computed)
		}
	})

	t.Run("integrity reports verified fingerprint", func(t *testing.T) {
		report, err := m.Integrity(ctx, state.ID)
		if err != nil {
			t.Fatalf("Integrity: %v", err)
		}
		if !report.Verified || !hexRe.MatchString(report.SHA256) {
			t.Fatalf("report = %+v", report)
		}
		if len(report.AuditLog) == 0 {
			t.Fatal("audit log missing from integrity report")
		}
	})
}

func TestManagerImportHTML(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	state, err := m.CreateDocument(ctx, &services.CreateDocumentRequest{Title: "Doc"})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	blocks, err := m.ImportHTML(ctx, state.ID, &services.ImportHTMLRequest{
		HTML: "<p>one</p><p>two</p><p>three</p>",
	})
	if err != nil {
		t.Fatalf("ImportHTML: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("imported = %d blocks, want 3", len(blocks))
	}

	got, _ := m.GetDocument(ctx, state.ID)
	if len(got.Blocks) != 3 {
		t.Fatalf("document has %d blocks, want 3", len(got.Blocks))
	}
	// Imported order is preserved.
	for i, want := range []string{"one", "two", "three"} {
		if got.Blocks[i].Content != want {
			t.Fatalf("block %d = %q, want %q", i, got.Blocks[i].Content, want)
		}
	}
}

func TestManagerParties(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	state, err := m.CreateDocument(ctx, &services.CreateDocumentRequest{Title: "Doc"})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	p, err := m.AddParty(ctx, state.ID, &services.AddPartyRequest{Name: "Dana Winters", Email: "dana@example.com"})
	if err != nil {
		t.Fatalf("AddParty: %v", err)
	}
	if p.Initials != "DW" {
		t.Fatalf("initials = %q", p.Initials)
	}

	t.Run("missing name rejected", func(t *testing.T) {
		if _, err := m.AddParty(ctx, state.ID, &services.AddPartyRequest{}); err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("remove party", func(t *testing.T) {
		if err := m.RemoveParty(ctx, state.ID, p.ID, "alice"); err != nil {
			t.Fatalf("RemoveParty: %v", err)
		}
		got, _ := m.GetDocument(ctx, state.ID)
		if len(got.Parties) != 0 {
			t.Fatalf("parties = %d, want 0", len(got.Parties))
		}
	})
}
