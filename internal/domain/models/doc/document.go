package doc

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// DocumentStatus is the lifecycle state of a document.
type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "draft"
	StatusSent      DocumentStatus = "sent"
	StatusCompleted DocumentStatus = "completed"
	StatusArchived  DocumentStatus = "archived"
	StatusTemplate  DocumentStatus = "template"
)

// Party is a signer/recipient of a document. Blocks reference parties
// weakly through assignedToPartyId; removing a party never touches the tree.
type Party struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Initials string `json:"initials"`
	Email    string `json:"email,omitempty"`
}

// Validate checks party fields.
func (p Party) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Email, is.EmailFormat),
	)
}

// Variable is a document-level named value usable from formulas and
// conditions, independent of any block answer.
type Variable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Term is a standalone legal term attached to the document. Terms are part
// of the hashed content.
type Term struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Settings holds document-wide options that affect what signers see, so
// they participate in content hashing.
type Settings struct {
	RequireAllSignatures bool   `json:"requireAllSignatures"`
	LockOnSend           bool   `json:"lockOnSend"`
	Locale               string `json:"locale,omitempty"`
	DateFormat           string `json:"dateFormat,omitempty"`
}

// AuditLogEntry records one edit or signing action. Entries are append-only
// and never mutated after insertion.
type AuditLogEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	User      string         `json:"user"`
	Details   string         `json:"details,omitempty"`
	IPAddress string         `json:"ipAddress,omitempty"`
	EventData map[string]any `json:"eventData,omitempty"`
}

// DocumentState is the aggregate root: the block tree plus everything the
// editor persists alongside it. Values holds the current form answers keyed
// by block id (or a scope-prefixed key inside repeater rows); answers are
// persisted but excluded from content hashing, as are the audit log and the
// hash itself.
type DocumentState struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Status    DocumentStatus    `json:"status"`
	Blocks    []*Block          `json:"blocks"`
	Parties   []Party           `json:"parties"`
	Variables []Variable        `json:"variables"`
	Terms     []Term            `json:"terms"`
	Settings  Settings          `json:"settings"`
	Values    map[string]string `json:"values,omitempty"`
	AuditLog  []AuditLogEntry   `json:"auditLog,omitempty"`
	SHA256    string            `json:"sha256,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Validate checks top-level document fields.
func (d *DocumentState) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.ID, validation.Required),
		validation.Field(&d.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&d.Status, validation.Required, validation.In(
			StatusDraft, StatusSent, StatusCompleted, StatusArchived, StatusTemplate,
		)),
	)
}

// DocumentSummary is the listing projection of a document.
type DocumentSummary struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Status    DocumentStatus `json:"status"`
	SHA256    string         `json:"sha256,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
