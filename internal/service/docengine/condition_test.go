package docengine

import (
	"testing"

	"vellum/internal/domain/models/doc"
)

// conditionalTree wires a select block (variableName contractType) and a
// conditional that shows its children when contractType equals "Album".
func conditionalTree() []*doc.Block {
	return []*doc.Block{
		{ID: "q1", Type: doc.BlockSelect, VariableName: "contractType", Options: []string{"Album", "Single"}},
		{
			ID:   "cond1",
			Type: doc.BlockConditional,
			Condition: &doc.Condition{
				VariableName: "contractType",
				Operator:     doc.OpEquals,
				Value:        "Album",
			},
			Children:     []*doc.Block{textBlock("album-terms")},
			ElseChildren: []*doc.Block{textBlock("other-terms")},
		},
	}
}

func TestEvaluateCondition(t *testing.T) {
	tree := conditionalTree()
	cond := FindNode(tree, "cond1")

	t.Run("match renders children", func(t *testing.T) {
		values := doc.FormValues{"q1": "Album"}
		if got := EvaluateCondition(tree, cond, values, ""); got != BranchChildren {
			t.Fatalf("branch = %v, want children", got)
		}
	})

	t.Run("mismatch renders else branch", func(t *testing.T) {
		values := doc.FormValues{"q1": "Single"}
		if got := EvaluateCondition(tree, cond, values, ""); got != BranchElseChildren {
			t.Fatalf("branch = %v, want elseChildren", got)
		}
	})

	t.Run("mismatch without else renders nothing", func(t *testing.T) {
		tree := conditionalTree()
		c := FindNode(tree, "cond1")
		c.ElseChildren = nil
		values := doc.FormValues{"q1": "Single"}
		if got := EvaluateCondition(tree, c, values, ""); got != BranchNone {
			t.Fatalf("branch = %v, want none", got)
		}
	})

	t.Run("missing source variable renders nothing", func(t *testing.T) {
		tree := conditionalTree()
		c := FindNode(tree, "cond1")
		c.Condition.VariableName = "deletedVariable"
		values := doc.FormValues{"q1": "Album"}
		if got := EvaluateCondition(tree, c, values, ""); got != BranchNone {
			t.Fatalf("branch = %v, want none", got)
		}
	})

	t.Run("nil condition renders nothing", func(t *testing.T) {
		b := &doc.Block{ID: "x", Type: doc.BlockConditional}
		if got := EvaluateCondition(tree, b, doc.FormValues{}, ""); got != BranchNone {
			t.Fatalf("branch = %v, want none", got)
		}
	})

	t.Run("scoped answer wins over bare answer", func(t *testing.T) {
		values := doc.FormValues{
			"q1":       "Single",
			"rep:0:q1": "Album",
		}
		if got := EvaluateCondition(tree, cond, values, "rep:0:"); got != BranchChildren {
			t.Fatalf("branch = %v, want children from scoped answer", got)
		}
	})
}

func TestConditionOperators(t *testing.T) {
	cases := []struct {
		name    string
		op      doc.ConditionOperator
		value   string
		actual  string
		present bool
		want    bool
	}{
		{"equals match", doc.OpEquals, "x", "x", true, true},
		{"equals mismatch", doc.OpEquals, "x", "y", true, false},
		{"not_equals", doc.OpNotEquals, "x", "y", true, true},
		{"contains is case insensitive", doc.OpContains, "ALB", "my album", true, true},
		{"not_contains", doc.OpNotContains, "single", "my album", true, true},
		{"greater_than numeric", doc.OpGreaterThan, "10", "11", true, true},
		{"greater_than non numeric is false", doc.OpGreaterThan, "10", "banana", true, false},
		{"less_than numeric", doc.OpLessThan, "10", "9.5", true, true},
		{"is_set with value", doc.OpIsSet, "", "anything", true, true},
		{"is_set empty string", doc.OpIsSet, "", "", true, false},
		{"is_empty absent", doc.OpIsEmpty, "", "", false, true},
		{"is_empty with value", doc.OpIsEmpty, "", "x", true, false},
		{"before dates", doc.OpBefore, "2026-06-01", "2026-05-31", true, true},
		{"after dates", doc.OpAfter, "2026-06-01", "2026-06-02", true, true},
		{"after unparsable date is false", doc.OpAfter, "2026-06-01", "someday", true, false},
		{"unknown operator falls back to equals", doc.ConditionOperator("bogus"), "x", "x", true, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &doc.Condition{VariableName: "v", Operator: tc.op, Value: tc.value}
			if got := conditionMatches(c, tc.actual, tc.present); got != tc.want {
				t.Fatalf("conditionMatches(%s, %q) = %v, want %v", tc.op, tc.actual, got, tc.want)
			}
		})
	}
}
