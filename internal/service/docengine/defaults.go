package docengine

import (
	"strings"

	"github.com/google/uuid"

	"vellum/internal/domain/models/doc"
)

// NewBlock constructs a block of the given type with a fresh id and
// type-appropriate defaults, matching what the editor inserts when a user
// adds a block from the palette.
func NewBlock(blockType doc.BlockType) *doc.Block {
	b := &doc.Block{
		ID:   uuid.NewString(),
		Type: blockType,
	}

	switch blockType {
	case doc.BlockConditional:
		b.Condition = &doc.Condition{Operator: doc.OpEquals}
	case doc.BlockColumns:
		b.Children = []*doc.Block{newColumn(), newColumn()}
	case doc.BlockSpacer:
		h := 24
		b.Height = &h
	case doc.BlockSelect, doc.BlockRadio, doc.BlockCheckbox:
		b.Options = []string{"Option 1", "Option 2"}
	case doc.BlockCurrency:
		b.CurrencySettings = &doc.CurrencySettings{Code: "USD", Symbol: "$", DecimalPlaces: 2}
	case doc.BlockPayment:
		b.PaymentSettings = &doc.PaymentSettings{AmountType: "fixed", Currency: "USD"}
	case doc.BlockAlert:
		b.Variant = "info"
	case doc.BlockInput, doc.BlockLongText, doc.BlockNumber, doc.BlockEmail, doc.BlockDate:
		b.Label = "Untitled field"
	}

	return b
}

func newColumn() *doc.Block {
	w := 50.0
	return &doc.Block{
		ID:    uuid.NewString(),
		Type:  doc.BlockColumn,
		Width: &w,
	}
}

// partyColors is the rotation used when adding parties without an explicit
// color.
var partyColors = []string{"#2563eb", "#dc2626", "#16a34a", "#9333ea", "#ea580c", "#0891b2"}

// NewParty constructs a party with a fresh id, derived initials and the
// next color in the rotation based on how many parties already exist.
func NewParty(name, email string, existing int) doc.Party {
	return doc.Party{
		ID:       uuid.NewString(),
		Name:     name,
		Email:    email,
		Color:    partyColors[existing%len(partyColors)],
		Initials: initialsOf(name),
	}
}

func initialsOf(name string) string {
	var out strings.Builder
	for _, word := range strings.Fields(name) {
		r := []rune(word)
		out.WriteRune(r[0])
		if out.Len() >= 2 {
			break
		}
	}
	return strings.ToUpper(out.String())
}
