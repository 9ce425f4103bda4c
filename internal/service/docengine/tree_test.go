package docengine

import (
	"reflect"
	"testing"

	"vellum/internal/domain/models/doc"
)

func textBlock(id string) *doc.Block {
	return &doc.Block{ID: id, Type: doc.BlockText, Content: "content-" + id}
}

// sampleTree builds:
//
//	a
//	cond (children: b; elseChildren: c)
//	sec (children: d)
func sampleTree() []*doc.Block {
	return []*doc.Block{
		textBlock("a"),
		{
			ID:           "cond",
			Type:         doc.BlockConditional,
			Condition:    &doc.Condition{VariableName: "v", Operator: doc.OpEquals, Value: "x"},
			Children:     []*doc.Block{textBlock("b")},
			ElseChildren: []*doc.Block{textBlock("c")},
		},
		{
			ID:       "sec",
			Type:     doc.BlockColumn,
			Children: []*doc.Block{textBlock("d")},
		},
	}
}

func TestFindNode(t *testing.T) {
	tree := sampleTree()

	t.Run("finds root level block", func(t *testing.T) {
		if got := FindNode(tree, "a"); got == nil || got.ID != "a" {
			t.Fatalf("FindNode(a) = %v", got)
		}
	})

	t.Run("finds nested block in children", func(t *testing.T) {
		if got := FindNode(tree, "d"); got == nil || got.ID != "d" {
			t.Fatalf("FindNode(d) = %v", got)
		}
	})

	t.Run("finds block in else branch", func(t *testing.T) {
		if got := FindNode(tree, "c"); got == nil || got.ID != "c" {
			t.Fatalf("FindNode(c) = %v", got)
		}
	})

	t.Run("missing id returns nil", func(t *testing.T) {
		if got := FindNode(tree, "nope"); got != nil {
			t.Fatalf("FindNode(nope) = %v, want nil", got)
		}
	})
}

func TestRemoveNode(t *testing.T) {
	t.Run("removes nested block and returns subtree", func(t *testing.T) {
		tree := sampleTree()
		next, removed := RemoveNode(tree, "sec")
		if removed == nil || removed.ID != "sec" {
			t.Fatalf("removed = %v", removed)
		}
		if len(removed.Children) != 1 || removed.Children[0].ID != "d" {
			t.Fatalf("removed subtree lost its children: %v", removed.Children)
		}
		if FindNode(next, "sec") != nil || FindNode(next, "d") != nil {
			t.Fatal("removed block still present in tree")
		}
		// The input tree is untouched.
		if FindNode(tree, "sec") == nil {
			t.Fatal("original tree was mutated")
		}
	})

	t.Run("removes from else branch", func(t *testing.T) {
		next, removed := RemoveNode(sampleTree(), "c")
		if removed == nil || removed.ID != "c" {
			t.Fatalf("removed = %v", removed)
		}
		if FindNode(next, "c") != nil {
			t.Fatal("block still present after removal")
		}
	})

	t.Run("missing id is a no-op", func(t *testing.T) {
		tree := sampleTree()
		next, removed := RemoveNode(tree, "ghost")
		if removed != nil {
			t.Fatalf("removed = %v, want nil", removed)
		}
		if !reflect.DeepEqual(CollectIDs(next), CollectIDs(tree)) {
			t.Fatal("tree changed on missing id")
		}
	})
}

func TestInsertNode(t *testing.T) {
	t.Run("empty target appends to root", func(t *testing.T) {
		next := InsertNode(sampleTree(), textBlock("z"), "", doc.PositionAfter)
		if next[len(next)-1].ID != "z" {
			t.Fatalf("last root id = %s, want z", next[len(next)-1].ID)
		}
	})

	t.Run("before splices into sibling list", func(t *testing.T) {
		next := InsertNode(sampleTree(), textBlock("z"), "cond", doc.PositionBefore)
		if next[1].ID != "z" || next[2].ID != "cond" {
			t.Fatalf("order = %v", CollectIDs(next))
		}
	})

	t.Run("after splices into sibling list", func(t *testing.T) {
		next := InsertNode(sampleTree(), textBlock("z"), "a", doc.PositionAfter)
		if next[0].ID != "a" || next[1].ID != "z" {
			t.Fatalf("order = %v", CollectIDs(next))
		}
	})

	t.Run("inside appends to children", func(t *testing.T) {
		next := InsertNode(sampleTree(), textBlock("z"), "sec", doc.PositionInside)
		sec := FindNode(next, "sec")
		if sec.Children[len(sec.Children)-1].ID != "z" {
			t.Fatalf("children = %v", CollectIDs(sec.Children))
		}
	})

	t.Run("inside-false appends to else branch", func(t *testing.T) {
		next := InsertNode(sampleTree(), textBlock("z"), "cond", doc.PositionInsideFalse)
		cond := FindNode(next, "cond")
		if cond.ElseChildren[len(cond.ElseChildren)-1].ID != "z" {
			t.Fatalf("elseChildren = %v", CollectIDs(cond.ElseChildren))
		}
	})

	t.Run("missing target leaves tree unchanged", func(t *testing.T) {
		tree := sampleTree()
		next := InsertNode(tree, textBlock("z"), "ghost", doc.PositionAfter)
		if !reflect.DeepEqual(CollectIDs(next), CollectIDs(tree)) {
			t.Fatalf("tree changed: %v", CollectIDs(next))
		}
	})

	t.Run("remove then insert restores id set", func(t *testing.T) {
		tree := sampleTree()
		before := CollectIDs(tree)
		next, removed := RemoveNode(tree, "cond")
		next = InsertNode(next, removed, "a", doc.PositionAfter)
		after := CollectIDs(next)
		if len(before) != len(after) {
			t.Fatalf("id count changed: %v vs %v", before, after)
		}
		for _, id := range before {
			if FindNode(next, id) == nil {
				t.Fatalf("id %s lost", id)
			}
		}
	})
}

func TestReplaceNode(t *testing.T) {
	t.Run("splices replacement sequence in place", func(t *testing.T) {
		next := ReplaceNode(sampleTree(), "cond", []*doc.Block{textBlock("x"), textBlock("y")})
		ids := make([]string, 0, len(next))
		for _, b := range next {
			ids = append(ids, b.ID)
		}
		want := []string{"a", "x", "y", "sec"}
		if !reflect.DeepEqual(ids, want) {
			t.Fatalf("root order = %v, want %v", ids, want)
		}
	})

	t.Run("replacement with empty sequence deletes", func(t *testing.T) {
		next := ReplaceNode(sampleTree(), "a", nil)
		if FindNode(next, "a") != nil {
			t.Fatal("block still present")
		}
		if len(next) != 2 {
			t.Fatalf("root length = %d, want 2", len(next))
		}
	})
}

func TestCloneTreeIndependence(t *testing.T) {
	tree := sampleTree()
	clone := CloneTree(tree)

	clone[0].Content = "mutated"
	FindNode(clone, "b").Content = "mutated"
	cond := FindNode(clone, "cond")
	cond.Condition.Value = "mutated"

	if tree[0].Content == "mutated" {
		t.Fatal("clone shares root block with source")
	}
	if FindNode(tree, "b").Content == "mutated" {
		t.Fatal("clone shares nested block with source")
	}
	if FindNode(tree, "cond").Condition.Value == "mutated" {
		t.Fatal("clone shares condition pointer with source")
	}
}

func TestIsDescendant(t *testing.T) {
	tree := sampleTree()
	cond := FindNode(tree, "cond")

	if !IsDescendant(cond, "b") {
		t.Fatal("b should be a descendant of cond")
	}
	if !IsDescendant(cond, "c") {
		t.Fatal("c in elseChildren should be a descendant of cond")
	}
	if IsDescendant(cond, "cond") {
		t.Fatal("a block is not its own descendant")
	}
	if IsDescendant(cond, "a") {
		t.Fatal("sibling reported as descendant")
	}
}

func TestFindByVariableName(t *testing.T) {
	tree := sampleTree()
	FindNode(tree, "d").VariableName = "total"

	if got := FindByVariableName(tree, "total"); got == nil || got.ID != "d" {
		t.Fatalf("FindByVariableName(total) = %v", got)
	}
	if got := FindByVariableName(tree, "missing"); got != nil {
		t.Fatalf("FindByVariableName(missing) = %v, want nil", got)
	}
}
