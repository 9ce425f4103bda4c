package docengine

import (
	"testing"
)

func TestEvaluateFormula(t *testing.T) {
	resolver := MapResolver(map[string]string{
		"price": "10",
		"qty":   "3",
		"rate":  "0.5",
	})

	cases := []struct {
		name string
		expr string
		want float64
	}{
		{"precedence", "2 + 3 * 4", 14},
		{"parentheses", "(2 + 3) * 4", 20},
		{"division by zero yields zero", "10 / 0", 0},
		{"braced variables", "{{price}} * {{qty}}", 30},
		{"bare identifiers", "price * qty", 30},
		{"mixed refs", "{{price}} * qty + 1", 31},
		{"unknown variable resolves to zero", "price * missing", 0},
		{"left associative subtraction", "10 - 3 - 2", 5},
		{"left associative division", "12 / 3 / 2", 2},
		{"rounds to four decimals", "1 / 3 * rate", 0.1667},
		{"negative result", "2 - 5", -3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EvaluateFormula(tc.expr, resolver)
			if err != nil {
				t.Fatalf("EvaluateFormula(%q) error: %v", tc.expr, err)
			}
			if got != tc.want {
				t.Fatalf("EvaluateFormula(%q) = %v, want %v", tc.expr, got, tc.want)
			}
		})
	}
}

func TestEvaluateFormulaMalformed(t *testing.T) {
	resolver := MapResolver(nil)

	cases := []struct {
		name string
		expr string
	}{
		{"unbalanced parens", "bogus((("},
		{"dangling operator", "2 +"},
		{"adjacent operators", "2 + * 3"},
		{"empty expression", ""},
		{"only whitespace", "   "},
		{"unterminated variable", "{{price"},
		{"stray character", "2 $ 3"},
		{"two operands no operator", "2 3"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := EvaluateFormula(tc.expr, resolver); err == nil {
				t.Fatalf("EvaluateFormula(%q) expected error", tc.expr)
			}
		})
	}
}

func TestFormulaDisplay(t *testing.T) {
	resolver := MapResolver(map[string]string{"subtotal": "99.5"})

	t.Run("valid formula renders value", func(t *testing.T) {
		if got := FormulaDisplay("{{subtotal}} * 2", resolver); got != "199" {
			t.Fatalf("display = %q, want 199", got)
		}
	})

	t.Run("malformed formula renders sentinel", func(t *testing.T) {
		if got := FormulaDisplay("(((", resolver); got != FormulaErrValue {
			t.Fatalf("display = %q, want %q", got, FormulaErrValue)
		}
	})

	t.Run("nil resolver treats variables as zero", func(t *testing.T) {
		if got := FormulaDisplay("x + 1", nil); got != "1" {
			t.Fatalf("display = %q, want 1", got)
		}
	})
}
