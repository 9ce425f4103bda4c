package docengine

import (
	"testing"

	"vellum/internal/domain/models/doc"
)

func renderState() *doc.DocumentState {
	return &doc.DocumentState{
		ID:     "doc-1",
		Title:  "Render",
		Status: doc.StatusDraft,
		Blocks: []*doc.Block{
			{ID: "qty", Type: doc.BlockNumber, VariableName: "qty", Label: "Quantity"},
			{
				ID:   "cond",
				Type: doc.BlockConditional,
				Condition: &doc.Condition{
					VariableName: "qty",
					Operator:     doc.OpGreaterThan,
					Value:        "10",
				},
				Children:     []*doc.Block{{ID: "bulk", Type: doc.BlockText, Content: "bulk discount"}},
				ElseChildren: []*doc.Block{{ID: "std", Type: doc.BlockText, Content: "standard pricing"}},
			},
			{ID: "total", Type: doc.BlockFormula, Formula: "{{qty}} * {{rate}}"},
		},
		Variables: []doc.Variable{{Name: "rate", Value: "2.5"}},
		Values:    map[string]string{"qty": "20"},
	}
}

func TestResolveTree(t *testing.T) {
	t.Run("conditional picks active branch", func(t *testing.T) {
		resolved := ResolveTree(renderState(), nil)
		cond := resolved[1]
		if cond.ActiveBranch != "children" {
			t.Fatalf("active branch = %q, want children", cond.ActiveBranch)
		}
		if len(cond.Children) != 1 || cond.Children[0].Block.ID != "bulk" {
			t.Fatalf("resolved children = %+v", cond.Children)
		}
	})

	t.Run("conditional falls to else branch", func(t *testing.T) {
		state := renderState()
		state.Values["qty"] = "5"
		resolved := ResolveTree(state, nil)
		cond := resolved[1]
		if cond.ActiveBranch != "elseChildren" {
			t.Fatalf("active branch = %q, want elseChildren", cond.ActiveBranch)
		}
		if cond.Children[0].Block.ID != "std" {
			t.Fatalf("resolved children = %+v", cond.Children)
		}
	})

	t.Run("formula computed from answers and variables", func(t *testing.T) {
		resolved := ResolveTree(renderState(), nil)
		if got := resolved[2].Computed; got != "50" {
			t.Fatalf("computed = %q, want 50", got)
		}
	})

	t.Run("broken formula renders sentinel", func(t *testing.T) {
		state := renderState()
		state.Blocks[2].Formula = "((("
		resolved := ResolveTree(state, nil)
		if got := resolved[2].Computed; got != FormulaErrValue {
			t.Fatalf("computed = %q, want %q", got, FormulaErrValue)
		}
	})

	t.Run("external amounts feed unresolved names", func(t *testing.T) {
		state := renderState()
		state.Blocks[2].Formula = "{{externalFee}} + 1"
		amounts := func(name string) (float64, bool) {
			if name == "externalFee" {
				return 9, true
			}
			return 0, false
		}
		resolved := ResolveTree(state, amounts)
		if got := resolved[2].Computed; got != "10" {
			t.Fatalf("computed = %q, want 10", got)
		}
	})
}

func TestResolveRepeater(t *testing.T) {
	state := &doc.DocumentState{
		ID:     "doc-1",
		Title:  "Repeater",
		Status: doc.StatusDraft,
		Blocks: []*doc.Block{
			{
				ID:   "rep",
				Type: doc.BlockRepeater,
				Children: []*doc.Block{
					{ID: "item", Type: doc.BlockInput, Label: "Item"},
				},
			},
		},
		Values: map[string]string{
			"rep:rows":   "3",
			"rep:0:item": "first",
			"rep:2:item": "third",
		},
	}

	resolved := ResolveTree(state, nil)
	rep := resolved[0]

	if len(rep.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rep.Rows))
	}
	for i, row := range rep.Rows {
		if len(row) != 1 || row[0].Block.ID != "item" {
			t.Fatalf("row %d = %+v", i, row)
		}
	}

	t.Run("missing row count defaults to one", func(t *testing.T) {
		delete(state.Values, "rep:rows")
		resolved := ResolveTree(state, nil)
		if got := len(resolved[0].Rows); got != 1 {
			t.Fatalf("rows = %d, want 1", got)
		}
	})

	t.Run("garbage row count defaults to one", func(t *testing.T) {
		state.Values["rep:rows"] = "many"
		resolved := ResolveTree(state, nil)
		if got := len(resolved[0].Rows); got != 1 {
			t.Fatalf("rows = %d, want 1", got)
		}
	})
}

func TestResolveCurrencyAndPayment(t *testing.T) {
	state := &doc.DocumentState{
		ID:     "doc-1",
		Title:  "Money",
		Status: doc.StatusDraft,
		Blocks: []*doc.Block{
			{
				ID:               "price",
				Type:             doc.BlockCurrency,
				CurrencySettings: &doc.CurrencySettings{Code: "EUR", Symbol: "€", DecimalPlaces: 2},
			},
			{
				ID:              "pay",
				Type:            doc.BlockPayment,
				PaymentSettings: &doc.PaymentSettings{AmountType: "fixed", Amount: 49.9, Currency: "USD"},
			},
		},
		Values: map[string]string{"price": "12.5"},
	}

	resolved := ResolveTree(state, nil)

	if got := resolved[0].Computed; got != "€12.50" {
		t.Fatalf("currency = %q, want €12.50", got)
	}
	if got := resolved[1].Computed; got != "49.90" {
		t.Fatalf("payment = %q, want 49.90", got)
	}

	t.Run("payment formula amount", func(t *testing.T) {
		state.Blocks[1].PaymentSettings = &doc.PaymentSettings{
			AmountType:    "formula",
			AmountFormula: "price * 2",
			Currency:      "USD",
		}
		state.Blocks[0].VariableName = "price"
		resolved := ResolveTree(state, nil)
		if got := resolved[1].Computed; got != "25" {
			t.Fatalf("payment = %q, want 25", got)
		}
	})
}

func TestRepeaterRowScope(t *testing.T) {
	if got := RepeaterRowScope("rep", 2); got != "rep:2:" {
		t.Fatalf("scope = %q, want rep:2:", got)
	}
}
