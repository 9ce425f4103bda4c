package docengine

import (
	"strconv"
	"strings"
	"time"

	"vellum/internal/domain/models/doc"
)

// Branch identifies which child list of a conditional block is active.
type Branch int

const (
	// BranchNone means neither child list renders (source answer missing,
	// or the condition is false and there is no else branch).
	BranchNone Branch = iota
	BranchChildren
	BranchElseChildren
)

// EvaluateCondition decides which branch of a conditional block is active
// given the full tree and the current answers. It is pure: nothing is
// mutated, the result only selects which existing subtree the renderer
// walks. A conditional with no condition, or whose source variable cannot
// be found anywhere in the tree, renders nothing.
func EvaluateCondition(tree []*doc.Block, block *doc.Block, values doc.FormValues, scope string) Branch {
	if block == nil || block.Condition == nil || block.Condition.VariableName == "" {
		return BranchNone
	}
	source := FindByVariableName(tree, block.Condition.VariableName)
	if source == nil {
		return BranchNone
	}

	actual, present := values.Lookup(scope, source.ID)
	if conditionMatches(block.Condition, actual, present) {
		return BranchChildren
	}
	if len(block.ElseChildren) > 0 {
		return BranchElseChildren
	}
	return BranchNone
}

func conditionMatches(c *doc.Condition, actual string, present bool) bool {
	switch c.Operator {
	case doc.OpNotEquals:
		return actual != c.Value
	case doc.OpContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(c.Value))
	case doc.OpNotContains:
		return !strings.Contains(strings.ToLower(actual), strings.ToLower(c.Value))
	case doc.OpGreaterThan:
		a, b, ok := parseNumericPair(actual, c.Value)
		return ok && a > b
	case doc.OpLessThan:
		a, b, ok := parseNumericPair(actual, c.Value)
		return ok && a < b
	case doc.OpIsSet:
		return present && actual != ""
	case doc.OpIsEmpty:
		return !present || actual == ""
	case doc.OpBefore:
		a, b, ok := parseDatePair(actual, c.Value)
		return ok && a.Before(b)
	case doc.OpAfter:
		a, b, ok := parseDatePair(actual, c.Value)
		return ok && a.After(b)
	default:
		// Unrecognized operators fall back to equals semantics.
		return actual == c.Value
	}
}

func parseNumericPair(a, b string) (float64, float64, bool) {
	af, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	bf, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	return af, bf, errA == nil && errB == nil
}

var dateLayouts = []string{"2006-01-02", time.RFC3339}

func parseDatePair(a, b string) (time.Time, time.Time, bool) {
	at, okA := parseDate(a)
	bt, okB := parseDate(b)
	return at, bt, okA && okB
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
