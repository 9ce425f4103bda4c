package docengine

import (
	"encoding/json"
	"regexp"
	"testing"

	"vellum/internal/domain/models/doc"
)

var hexRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

func sampleState() *doc.DocumentState {
	return &doc.DocumentState{
		ID:     "doc-1",
		Title:  "Agreement",
		Status: doc.StatusDraft,
		Blocks: []*doc.Block{
			{ID: "b1", Type: doc.BlockText, Content: "hello"},
			{ID: "b2", Type: doc.BlockInput, Label: "Name", Required: true},
		},
		Parties: []doc.Party{
			{ID: "p1", Name: "Dana", Color: "#2563eb", Initials: "D"},
		},
		Variables: []doc.Variable{{Name: "rate", Value: "10"}},
		Terms:     []doc.Term{{ID: "t1", Title: "Term", Body: "Body"}},
		Settings:  doc.Settings{RequireAllSignatures: true},
	}
}

func TestHashDocument(t *testing.T) {
	t.Run("produces lowercase hex sha256", func(t *testing.T) {
		sum, err := HashDocument(sampleState())
		if err != nil {
			t.Fatalf("HashDocument: %v", err)
		}
		if !hexRe.MatchString(sum) {
			t.Fatalf("hash %q is not 64 lowercase hex chars", sum)
		}
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		a, _ := HashDocument(sampleState())
		b, _ := HashDocument(sampleState())
		if a != b {
			t.Fatalf("hashes differ: %s vs %s", a, b)
		}
	})

	t.Run("leaf change changes hash", func(t *testing.T) {
		base, _ := HashDocument(sampleState())
		changed := sampleState()
		changed.Blocks[0].Content = "hello!"
		after, _ := HashDocument(changed)
		if base == after {
			t.Fatal("content change did not change hash")
		}
	})

	t.Run("block order matters", func(t *testing.T) {
		base, _ := HashDocument(sampleState())
		swapped := sampleState()
		swapped.Blocks[0], swapped.Blocks[1] = swapped.Blocks[1], swapped.Blocks[0]
		after, _ := HashDocument(swapped)
		if base == after {
			t.Fatal("reordering blocks did not change hash")
		}
	})

	t.Run("answers and audit log excluded", func(t *testing.T) {
		base, _ := HashDocument(sampleState())
		withExtras := sampleState()
		withExtras.Values = map[string]string{"b2": "Dana"}
		withExtras.AuditLog = []doc.AuditLogEntry{{ID: "a1", Action: "block_added"}}
		withExtras.SHA256 = "previous"
		after, _ := HashDocument(withExtras)
		if base != after {
			t.Fatal("non-content fields leaked into hash")
		}
	})
}

func TestHashContentKeyOrder(t *testing.T) {
	// Same object content delivered with different key order must hash the
	// same once canonicalized.
	var a, b map[string]any
	if err := json.Unmarshal([]byte(`{"x":1,"y":{"m":true,"n":"s"}}`), &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(`{"y":{"n":"s","m":true},"x":1}`), &b); err != nil {
		t.Fatal(err)
	}

	ha, err := HashContent(a)
	if err != nil {
		t.Fatalf("HashContent(a): %v", err)
	}
	hb, err := HashContent(b)
	if err != nil {
		t.Fatalf("HashContent(b): %v", err)
	}
	if ha != hb {
		t.Fatalf("key order changed hash: %s vs %s", ha, hb)
	}
}

func TestHashContentArrayOrder(t *testing.T) {
	ha, _ := HashContent([]string{"a", "b"})
	hb, _ := HashContent([]string{"b", "a"})
	if ha == hb {
		t.Fatal("array order should be semantically meaningful")
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	state := sampleState()
	once, err := Canonicalize(state)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	twice, err := Canonicalize(once)
	if err != nil {
		t.Fatalf("Canonicalize twice: %v", err)
	}

	a, _ := json.Marshal(once)
	b, _ := json.Marshal(twice)
	if string(a) != string(b) {
		t.Fatal("canonicalization is not idempotent")
	}
}

func TestHashDocumentNeverReturnsSentinelOnSuccess(t *testing.T) {
	sum, err := HashDocument(sampleState())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum == HashUnavailable {
		t.Fatal("valid state produced the unavailable sentinel")
	}
}
