package docengine

import (
	"vellum/internal/domain/models/doc"
)

// The tree operations below are pure: every mutating operation deep-clones
// the input tree and returns a new one, so history snapshots held elsewhere
// can never be corrupted by a later edit. Operations that reference a
// missing target id return the tree unchanged rather than failing; callers
// that need to distinguish "not found" check FindNode first.

// FindNode returns the first block with the given id, searching depth-first
// through both Children and ElseChildren. Ids are unique across a well-formed
// tree, so the first match is the only match. Returns nil if absent.
func FindNode(tree []*doc.Block, id string) *doc.Block {
	for _, b := range tree {
		if b.ID == id {
			return b
		}
		if found := FindNode(b.Children, id); found != nil {
			return found
		}
		if found := FindNode(b.ElseChildren, id); found != nil {
			return found
		}
	}
	return nil
}

// RemoveNode returns a new tree with the block matching id removed, plus the
// detached subtree (children intact). The removed pointer is nil when the id
// does not occur anywhere.
func RemoveNode(tree []*doc.Block, id string) ([]*doc.Block, *doc.Block) {
	return removeFrom(CloneTree(tree), id)
}

func removeFrom(list []*doc.Block, id string) ([]*doc.Block, *doc.Block) {
	var removed *doc.Block
	out := make([]*doc.Block, 0, len(list))
	for _, b := range list {
		if removed == nil && b.ID == id {
			removed = b
			continue
		}
		if removed == nil {
			b.Children, removed = removeFrom(b.Children, id)
			if removed == nil {
				b.ElseChildren, removed = removeFrom(b.ElseChildren, id)
			}
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil, removed
	}
	return out, removed
}

// InsertNode returns a new tree with node placed relative to targetID.
// With an empty targetID the node is appended to the root list. If targetID
// is not found the tree is returned unchanged (minus the defensive clone).
func InsertNode(tree []*doc.Block, node *doc.Block, targetID string, position doc.Position) []*doc.Block {
	next := CloneTree(tree)
	if targetID == "" {
		return append(next, node)
	}
	next, _ = insertInto(next, node, targetID, position)
	return next
}

func insertInto(list []*doc.Block, node *doc.Block, targetID string, position doc.Position) ([]*doc.Block, bool) {
	for i, b := range list {
		if b.ID == targetID {
			switch position {
			case doc.PositionBefore:
				out := make([]*doc.Block, 0, len(list)+1)
				out = append(out, list[:i]...)
				out = append(out, node)
				out = append(out, list[i:]...)
				return out, true
			case doc.PositionAfter:
				out := make([]*doc.Block, 0, len(list)+1)
				out = append(out, list[:i+1]...)
				out = append(out, node)
				out = append(out, list[i+1:]...)
				return out, true
			case doc.PositionInsideFalse:
				b.ElseChildren = append(b.ElseChildren, node)
				return list, true
			default: // doc.PositionInside
				b.Children = append(b.Children, node)
				return list, true
			}
		}
	}
	for _, b := range list {
		if next, ok := insertInto(b.Children, node, targetID, position); ok {
			b.Children = next
			return list, true
		}
		if next, ok := insertInto(b.ElseChildren, node, targetID, position); ok {
			b.ElseChildren = next
			return list, true
		}
	}
	return list, false
}

// ReplaceNode returns a new tree with the block matching targetID replaced
// by the given sequence, spliced in place. Used for ungrouping containers.
func ReplaceNode(tree []*doc.Block, targetID string, newNodes []*doc.Block) []*doc.Block {
	next, _ := replaceIn(CloneTree(tree), targetID, newNodes)
	return next
}

func replaceIn(list []*doc.Block, targetID string, newNodes []*doc.Block) ([]*doc.Block, bool) {
	for i, b := range list {
		if b.ID == targetID {
			out := make([]*doc.Block, 0, len(list)-1+len(newNodes))
			out = append(out, list[:i]...)
			out = append(out, newNodes...)
			out = append(out, list[i+1:]...)
			return out, true
		}
	}
	for _, b := range list {
		if next, ok := replaceIn(b.Children, targetID, newNodes); ok {
			b.Children = next
			return list, true
		}
		if next, ok := replaceIn(b.ElseChildren, targetID, newNodes); ok {
			b.ElseChildren = next
			return list, true
		}
	}
	return list, false
}

// CloneTree deep-copies a block list. The result shares no mutable
// references with the source.
func CloneTree(tree []*doc.Block) []*doc.Block {
	if tree == nil {
		return nil
	}
	out := make([]*doc.Block, len(tree))
	for i, b := range tree {
		out[i] = CloneBlock(b)
	}
	return out
}

// CloneBlock deep-copies a single block and its whole subtree.
func CloneBlock(b *doc.Block) *doc.Block {
	if b == nil {
		return nil
	}
	clone := *b
	if b.Options != nil {
		clone.Options = append([]string(nil), b.Options...)
	}
	clone.Min = cloneFloat(b.Min)
	clone.Max = cloneFloat(b.Max)
	clone.Step = cloneFloat(b.Step)
	clone.Width = cloneFloat(b.Width)
	clone.MinLength = cloneInt(b.MinLength)
	clone.Height = cloneInt(b.Height)
	if b.Condition != nil {
		c := *b.Condition
		clone.Condition = &c
	}
	if b.CurrencySettings != nil {
		cs := *b.CurrencySettings
		clone.CurrencySettings = &cs
	}
	if b.PaymentSettings != nil {
		ps := *b.PaymentSettings
		clone.PaymentSettings = &ps
	}
	clone.Children = CloneTree(b.Children)
	clone.ElseChildren = CloneTree(b.ElseChildren)
	return &clone
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

// Walk visits every block depth-first, descending into both child lists.
// Returning false from fn stops the walk.
func Walk(tree []*doc.Block, fn func(*doc.Block) bool) bool {
	for _, b := range tree {
		if !fn(b) {
			return false
		}
		if !Walk(b.Children, fn) {
			return false
		}
		if !Walk(b.ElseChildren, fn) {
			return false
		}
	}
	return true
}

// CollectIDs returns the ids of every block in the tree, in walk order.
func CollectIDs(tree []*doc.Block) []string {
	var ids []string
	Walk(tree, func(b *doc.Block) bool {
		ids = append(ids, b.ID)
		return true
	})
	return ids
}

// FindByVariableName returns the first block whose variableName matches,
// searching the whole tree including both child lists.
func FindByVariableName(tree []*doc.Block, name string) *doc.Block {
	var found *doc.Block
	Walk(tree, func(b *doc.Block) bool {
		if b.VariableName == name {
			found = b
			return false
		}
		return true
	})
	return found
}

// IsDescendant reports whether id occurs anywhere inside root's subtree
// (root itself excluded).
func IsDescendant(root *doc.Block, id string) bool {
	if root == nil {
		return false
	}
	return FindNode(root.Children, id) != nil || FindNode(root.ElseChildren, id) != nil
}
