package docgraphtest

import (
	"fmt"

	"github.com/google/go-cmp/cmp"

	"github.com/go-digitaltwin/go-docgraph"
)

// A check is any function that returns unexpected problems with the given
// [docgraph.Document].
type check func(*docgraph.Document) (problem string)

// Checks that the item with the given id is reachable and holds want under
// attr. A nil want checks that the attribute is absent (or cleared).
func property(id docgraph.ID, attr string, want any) check {
	return func(doc *docgraph.Document) string {
		item := doc.ResolveID(id)
		if item == nil {
			return fmt.Sprintf("ResolveID(%d) = nil, want an item", id)
		}
		if diff := cmp.Diff(want, item.Get(attr)); diff != "" {
			return fmt.Sprintf("item(%d).%s mismatch (-want +got):\n%v", id, attr, diff)
		}
		return ""
	}
}

// Checks that no reachable item has the given id.
func absent(id docgraph.ID) check {
	return func(doc *docgraph.Document) string {
		if item := doc.ResolveID(id); item != nil {
			return fmt.Sprintf("ResolveID(%d) = %v, want nil", id, item)
		}
		return ""
	}
}

// Checks that the item with the given id is owned by the item with the parent
// id.
func parentOf(id, parent docgraph.ID) check {
	return func(doc *docgraph.Document) string {
		item := doc.ResolveID(id)
		if item == nil {
			return fmt.Sprintf("ResolveID(%d) = nil, want an item", id)
		}
		got := doc.GetParent(item)
		if got == nil || got.ID() != parent {
			return fmt.Sprintf("GetParent(item(%d)) = %v, want item(%d)", id, got, parent)
		}
		return ""
	}
}

// Checks that GetLowestCommonAncestor of the two items is the item with the
// want id, in both argument orders.
func lowestCommonAncestor(a, b, want docgraph.ID) check {
	return func(doc *docgraph.Document) string {
		x, y := doc.ResolveID(a), doc.ResolveID(b)
		for _, pair := range [][2]*docgraph.Item{{x, y}, {y, x}} {
			got := doc.GetLowestCommonAncestor(pair[0], pair[1])
			if got == nil || got.ID() != want {
				return fmt.Sprintf("GetLowestCommonAncestor(%v, %v) = %v, want item(%d)", pair[0], pair[1], got, want)
			}
		}
		return ""
	}
}

// Checks that item(id)[attr] resolves to the item with the target id, and that
// GetReference agrees with ResolveID. A zero target checks that the reference
// is unresolved.
func reference(id docgraph.ID, attr string, target docgraph.ID) check {
	return func(doc *docgraph.Document) string {
		item := doc.ResolveID(id)
		if item == nil {
			return fmt.Sprintf("ResolveID(%d) = nil, want an item", id)
		}
		got := doc.GetReference(item, attr)
		raw, _ := item.Reference(attr)
		if direct := doc.ResolveID(raw); got != direct {
			return fmt.Sprintf("GetReference(item(%d), %q) = %v, but ResolveID(%d) = %v", id, attr, got, raw, direct)
		}
		switch {
		case target == 0 && got != nil:
			return fmt.Sprintf("GetReference(item(%d), %q) = %v, want nil", id, attr, got)
		case target != 0 && (got == nil || got.ID() != target):
			return fmt.Sprintf("GetReference(item(%d), %q) = %v, want item(%d)", id, attr, got, target)
		}
		return ""
	}
}

// Checks the number of canonical entries in the pool.
func poolSize(want int) check {
	return func(doc *docgraph.Document) string {
		if got := len(doc.Entries()); got != want {
			return fmt.Sprintf("len(Entries()) = %d, want %d", got, want)
		}
		return ""
	}
}

// Checks the number of reachable instances referring to the entry with the
// given id.
func refCount(id docgraph.ID, want int) check {
	return func(doc *docgraph.Document) string {
		entry := doc.ResolveID(id)
		if entry == nil {
			return fmt.Sprintf("ResolveID(%d) = nil, want an entry", id)
		}
		if got := doc.RefCount(entry); got != want {
			return fmt.Sprintf("RefCount(item(%d)) = %d, want %d", id, got, want)
		}
		return ""
	}
}
