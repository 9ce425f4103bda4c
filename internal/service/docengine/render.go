package docengine

import (
	"fmt"
	"strconv"
	"strings"

	"vellum/internal/domain/models/doc"
)

// ResolveTree derives the visible, evaluated view of a document tree from
// the current answers. It is pure: re-run on every relevant value change,
// it never mutates the tree. Conditional branches are chosen with
// EvaluateCondition, repeater rows are materialized virtually from the
// row-count answer, and formula/currency/payment blocks are annotated with
// their computed display values.
func ResolveTree(state *doc.DocumentState, amounts AmountResolver) []*doc.ResolvedBlock {
	values := doc.FormValues(state.Values)
	resolver := NewDocumentResolver(state, "", amounts)
	return resolveList(state, state.Blocks, values, "", resolver, amounts)
}

func resolveList(state *doc.DocumentState, list []*doc.Block, values doc.FormValues, scope string, resolver ValueResolver, amounts AmountResolver) []*doc.ResolvedBlock {
	out := make([]*doc.ResolvedBlock, 0, len(list))
	for _, b := range list {
		switch b.Type {
		case doc.BlockConditional:
			rb := &doc.ResolvedBlock{Block: b}
			switch EvaluateCondition(state.Blocks, b, values, scope) {
			case BranchChildren:
				rb.ActiveBranch = "children"
				rb.Children = resolveList(state, b.Children, values, scope, resolver, amounts)
			case BranchElseChildren:
				rb.ActiveBranch = "elseChildren"
				rb.Children = resolveList(state, b.ElseChildren, values, scope, resolver, amounts)
			default:
				rb.ActiveBranch = "none"
			}
			out = append(out, rb)

		case doc.BlockRepeater:
			rb := &doc.ResolvedBlock{Block: b}
			count := repeaterRowCount(values, scope, b)
			for row := 0; row < count; row++ {
				rowScope := RepeaterRowScope(b.ID, row)
				rowResolver := NewDocumentResolver(state, rowScope, amounts)
				rb.Rows = append(rb.Rows, resolveList(state, b.Children, values, rowScope, rowResolver, amounts))
			}
			out = append(out, rb)

		case doc.BlockFormula:
			out = append(out, &doc.ResolvedBlock{
				Block:    b,
				Computed: FormulaDisplay(b.Formula, resolver),
			})

		case doc.BlockCurrency:
			out = append(out, &doc.ResolvedBlock{
				Block:    b,
				Computed: formatCurrency(currencyValue(b, values, scope, resolver), b.CurrencySettings),
			})

		case doc.BlockPayment:
			out = append(out, &doc.ResolvedBlock{
				Block:    b,
				Computed: paymentAmount(b, resolver),
			})

		default:
			rb := &doc.ResolvedBlock{Block: b}
			if len(b.Children) > 0 {
				rb.Children = resolveList(state, b.Children, values, scope, resolver, amounts)
			}
			out = append(out, rb)
		}
	}
	return out
}

// RepeaterRowScope builds the value-key prefix for one virtual repeater
// row. Answers inside row 2 of repeater R are keyed "R:2:<blockID>".
func RepeaterRowScope(repeaterID string, row int) string {
	return fmt.Sprintf("%s:%d:", repeaterID, row)
}

// repeaterRowCount reads the numeric row-count answer for a repeater.
// Rows are virtual: N is an answer, never N physical tree nodes.
func repeaterRowCount(values doc.FormValues, scope string, b *doc.Block) int {
	raw, ok := values.Lookup(scope, b.ID+":rows")
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 1
	}
	return n
}

// NewDocumentResolver builds the ValueResolver used by formulas inside a
// document. Names resolve in order: a block whose variableName matches
// (reading its scoped or bare answer), then a document-level variable, then
// the external amount resolver. Anything else is 0.
func NewDocumentResolver(state *doc.DocumentState, scope string, amounts AmountResolver) ValueResolver {
	values := doc.FormValues(state.Values)
	return func(name string) float64 {
		if source := FindByVariableName(state.Blocks, name); source != nil {
			raw, _ := values.Lookup(scope, source.ID)
			if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
				return v
			}
			return 0
		}
		for _, v := range state.Variables {
			if v.Name == name {
				if f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64); err == nil {
					return f
				}
				return 0
			}
		}
		if amounts != nil {
			if v, ok := amounts(name); ok {
				return v
			}
		}
		return 0
	}
}

func currencyValue(b *doc.Block, values doc.FormValues, scope string, resolver ValueResolver) float64 {
	if b.Formula != "" {
		v, err := EvaluateFormula(b.Formula, resolver)
		if err == nil {
			return v
		}
		return 0
	}
	raw, _ := values.Lookup(scope, b.ID)
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}

func formatCurrency(v float64, cs *doc.CurrencySettings) string {
	symbol := "$"
	decimals := 2
	if cs != nil {
		if cs.Symbol != "" {
			symbol = cs.Symbol
		}
		decimals = cs.DecimalPlaces
	}
	return symbol + strconv.FormatFloat(v, 'f', decimals, 64)
}

// paymentAmount resolves the amount a payment block charges: either its
// fixed amount or a formula evaluated against the document's answers and
// the external amount resolver.
func paymentAmount(b *doc.Block, resolver ValueResolver) string {
	ps := b.PaymentSettings
	if ps == nil {
		return FormulaErrValue
	}
	if ps.AmountType == "formula" && ps.AmountFormula != "" {
		return FormulaDisplay(ps.AmountFormula, resolver)
	}
	return strconv.FormatFloat(ps.Amount, 'f', 2, 64)
}
