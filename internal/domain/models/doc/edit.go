package doc

// Position says where an insert places a node relative to its target block.
type Position string

const (
	PositionBefore      Position = "before"
	PositionAfter       Position = "after"
	PositionInside      Position = "inside"
	PositionInsideFalse Position = "inside-false"
)

// IsValidPosition reports whether p is a known insert position.
func IsValidPosition(p Position) bool {
	switch p {
	case PositionBefore, PositionAfter, PositionInside, PositionInsideFalse:
		return true
	default:
		return false
	}
}

// FormValues is the current answer set, keyed by block id or by a
// scope-prefixed key for answers inside repeater rows.
type FormValues map[string]string

// Lookup reads the answer for a block id, preferring the scope-prefixed key
// so the same block resolves per-instance inside repeated contexts.
func (v FormValues) Lookup(scope, blockID string) (string, bool) {
	if scope != "" {
		if val, ok := v[scope+blockID]; ok {
			return val, true
		}
	}
	val, ok := v[blockID]
	return val, ok
}

// BlockPatch is a shallow partial update of a block. Nil fields are left
// untouched; non-nil fields overwrite. Child lists are not patchable here,
// structural edits go through the tree operations.
type BlockPatch struct {
	Content           *string           `json:"content,omitempty"`
	Label             *string           `json:"label,omitempty"`
	Placeholder       *string           `json:"placeholder,omitempty"`
	VariableName      *string           `json:"variableName,omitempty"`
	Options           *[]string         `json:"options,omitempty"`
	Required          *bool             `json:"required,omitempty"`
	Min               *float64          `json:"min,omitempty"`
	Max               *float64          `json:"max,omitempty"`
	Step              *float64          `json:"step,omitempty"`
	MinLength         *int              `json:"minLength,omitempty"`
	AssignedToPartyID *string           `json:"assignedToPartyId,omitempty"`
	Condition         *Condition        `json:"condition,omitempty"`
	Formula           *string           `json:"formula,omitempty"`
	CurrencySettings  *CurrencySettings `json:"currencySettings,omitempty"`
	PaymentSettings   *PaymentSettings  `json:"paymentSettings,omitempty"`
	VideoURL          *string           `json:"videoUrl,omitempty"`
	SignatureID       *string           `json:"signatureId,omitempty"`
	SignedAt          *string           `json:"signedAt,omitempty"`
	Height            *int              `json:"height,omitempty"`
	Width             *float64          `json:"width,omitempty"`
	Variant           *string           `json:"variant,omitempty"`
}

// Apply merges the patch into b.
func (p *BlockPatch) Apply(b *Block) {
	if p.Content != nil {
		b.Content = *p.Content
	}
	if p.Label != nil {
		b.Label = *p.Label
	}
	if p.Placeholder != nil {
		b.Placeholder = *p.Placeholder
	}
	if p.VariableName != nil {
		b.VariableName = *p.VariableName
	}
	if p.Options != nil {
		b.Options = append([]string(nil), (*p.Options)...)
	}
	if p.Required != nil {
		b.Required = *p.Required
	}
	if p.Min != nil {
		b.Min = p.Min
	}
	if p.Max != nil {
		b.Max = p.Max
	}
	if p.Step != nil {
		b.Step = p.Step
	}
	if p.MinLength != nil {
		b.MinLength = p.MinLength
	}
	if p.AssignedToPartyID != nil {
		b.AssignedToPartyID = *p.AssignedToPartyID
	}
	if p.Condition != nil {
		c := *p.Condition
		b.Condition = &c
	}
	if p.Formula != nil {
		b.Formula = *p.Formula
	}
	if p.CurrencySettings != nil {
		cs := *p.CurrencySettings
		b.CurrencySettings = &cs
	}
	if p.PaymentSettings != nil {
		ps := *p.PaymentSettings
		b.PaymentSettings = &ps
	}
	if p.VideoURL != nil {
		b.VideoURL = *p.VideoURL
	}
	if p.SignatureID != nil {
		b.SignatureID = *p.SignatureID
	}
	if p.SignedAt != nil {
		b.SignedAt = *p.SignedAt
	}
	if p.Height != nil {
		b.Height = p.Height
	}
	if p.Width != nil {
		b.Width = p.Width
	}
	if p.Variant != nil {
		b.Variant = *p.Variant
	}
}
