package services

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"vellum/internal/domain/models/doc"
)

// DocumentEngine is the editing surface handlers talk to: document
// lifecycle, structural block edits, undo/redo, parties, form answers,
// render resolution and integrity reporting. One implementation manages an
// editor session per open document.
type DocumentEngine interface {
	CreateDocument(ctx context.Context, req *CreateDocumentRequest) (*doc.DocumentState, error)
	GetDocument(ctx context.Context, id string) (*doc.DocumentState, error)
	ListDocuments(ctx context.Context) ([]*doc.DocumentSummary, error)
	DeleteDocument(ctx context.Context, id string) error
	SaveDocument(ctx context.Context, id string) error

	AddBlock(ctx context.Context, docID string, req *AddBlockRequest) (*doc.Block, error)
	UpdateBlock(ctx context.Context, docID, blockID string, patch doc.BlockPatch, recordHistory bool, actor string) error
	DeleteBlock(ctx context.Context, docID, blockID, actor string) error
	MoveBlock(ctx context.Context, docID string, req *MoveBlockRequest) error
	UngroupBlock(ctx context.Context, docID, blockID, actor string) error
	ImportHTML(ctx context.Context, docID string, req *ImportHTMLRequest) ([]*doc.Block, error)

	Undo(ctx context.Context, docID string) (bool, error)
	Redo(ctx context.Context, docID string) (bool, error)

	AddParty(ctx context.Context, docID string, req *AddPartyRequest) (*doc.Party, error)
	RemoveParty(ctx context.Context, docID, partyID, actor string) error
	UpdateParty(ctx context.Context, docID, partyID string, req *UpdatePartyRequest) error
	UpdateParties(ctx context.Context, docID string, parties []doc.Party, actor string) error

	SetValue(ctx context.Context, docID string, req *SetValueRequest) error
	Resolve(ctx context.Context, docID string) ([]*doc.ResolvedBlock, error)
	Integrity(ctx context.Context, docID string) (*IntegrityReport, error)
}

// CreateDocumentRequest creates a document from a registered template.
type CreateDocumentRequest struct {
	Template string `json:"template"`
	Title    string `json:"title"`
	Actor    string `json:"-"`
}

// Validate checks the create request; an empty template means "blank".
func (r *CreateDocumentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Length(0, 500)),
	)
}

// AddBlockRequest adds a block relative to a target.
type AddBlockRequest struct {
	Type     doc.BlockType `json:"type"`
	TargetID string        `json:"targetId,omitempty"`
	Position doc.Position  `json:"position,omitempty"`
	Actor    string        `json:"-"`
}

// Validate checks block type and position.
func (r *AddBlockRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.Required, validation.By(validBlockType)),
		validation.Field(&r.Position, validation.By(validPosition)),
	)
}

// MoveBlockRequest relocates a block.
type MoveBlockRequest struct {
	BlockID  string       `json:"blockId"`
	TargetID string       `json:"targetId,omitempty"`
	Position doc.Position `json:"position,omitempty"`
	Actor    string       `json:"-"`
}

// Validate checks the move request.
func (r *MoveBlockRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.BlockID, validation.Required),
		validation.Field(&r.Position, validation.By(validPosition)),
	)
}

// ImportHTMLRequest inserts blocks converted from HTML.
type ImportHTMLRequest struct {
	HTML     string       `json:"html"`
	TargetID string       `json:"targetId,omitempty"`
	Position doc.Position `json:"position,omitempty"`
	Actor    string       `json:"-"`
}

// Validate checks the import request.
func (r *ImportHTMLRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.HTML, validation.Required),
		validation.Field(&r.Position, validation.By(validPosition)),
	)
}

// AddPartyRequest adds a signer/recipient.
type AddPartyRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Actor string `json:"-"`
}

// Validate checks the party request.
func (r *AddPartyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
	)
}

// UpdatePartyRequest patches one party; nil fields are untouched.
type UpdatePartyRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Actor string  `json:"-"`
}

// SetValueRequest records one form answer. Key is a block id or a
// scope-prefixed key inside repeater rows.
type SetValueRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Validate checks the value request.
func (r *SetValueRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Key, validation.Required),
	)
}

// IntegrityReport is the current trust state of a document: its content
// fingerprint (or the unavailable sentinel) plus the append-only audit log.
type IntegrityReport struct {
	DocumentID string              `json:"documentId"`
	SHA256     string              `json:"sha256"`
	Verified   bool                `json:"verified"`
	ComputedAt time.Time           `json:"computedAt"`
	AuditLog   []doc.AuditLogEntry `json:"auditLog"`
}

func validBlockType(v interface{}) error {
	if !doc.IsValidBlockType(v.(doc.BlockType)) {
		return validation.NewError("validation_block_type", "unknown block type")
	}
	return nil
}

func validPosition(v interface{}) error {
	p := v.(doc.Position)
	if p != "" && !doc.IsValidPosition(p) {
		return validation.NewError("validation_position", "unknown position")
	}
	return nil
}
