/*
Package assert checks that the indexes a [docgraph.Document] derives from its
graph agree with the graph itself.

A Document updates its reference index, parent index and canonical reference
counts incrementally, from the change notifications of its Store. Edits that
bypass the Store silently desynchronise those indexes. Consistent rebuilds each
index from the root and reports every disagreement, which makes it useful in
tests and in debug builds of collaborators editing the graph.
*/
package assert

import (
	"errors"
	"fmt"

	"github.com/go-digitaltwin/go-docgraph"
)

// Consistent returns nil if the derived indexes of doc agree with its graph.
// Otherwise, it returns the joined list of violations found:
//
//   - two reachable items share an id;
//   - the reference index misses a reachable item or holds an unreachable one;
//   - the parent index disagrees with the containment edges of the graph;
//   - the canonical reference count of a pool entry differs from the number of
//     reachable instances referring to it;
//   - two pool entries are isomorphic.
func Consistent(doc *docgraph.Document) error {
	var errs []error
	root := doc.Root()

	byID := make(map[docgraph.ID]*docgraph.Item)
	refAttr := doc.CanonicalReference()
	instances := make(map[docgraph.ID]int)
	docgraph.VisitSubtree(root, func(it *docgraph.Item) {
		if other, ok := byID[it.ID()]; ok {
			errs = append(errs, newIntegrityError("id", fmt.Sprintf("items %v and %v share id %d", other, it, it.ID())))
		}
		byID[it.ID()] = it
		if id, ok := it.Reference(refAttr); ok {
			instances[id]++
		}

		if got := doc.ResolveID(it.ID()); got != it {
			errs = append(errs, newIntegrityError("reference", fmt.Sprintf("ResolveID(%d) = %v, want %v", it.ID(), got, it)))
		}
		docgraph.VisitChildren(it, func(child *docgraph.Item) {
			if got := doc.GetParent(child); got != it {
				errs = append(errs, newIntegrityError("parent", fmt.Sprintf("GetParent(%v) = %v, want %v", child, got, it)))
			}
		})
	})

	if got := doc.GetParent(root); got != nil {
		errs = append(errs, newIntegrityError("parent", fmt.Sprintf("GetParent(root) = %v, want nil", got)))
	}
	if n := doc.ReferenceIndex.Len(); n != len(byID) {
		errs = append(errs, newIntegrityError("reference", fmt.Sprintf("index holds %d items, %d reachable", n, len(byID))))
	}
	for id, it := range doc.Items() {
		if byID[id] != it {
			errs = append(errs, newIntegrityError("reference", fmt.Sprintf("index holds unreachable %v", it)))
		}
	}

	entries := doc.Entries()
	for i, e := range entries {
		if got, want := doc.RefCount(e), instances[e.ID()]; got != want {
			errs = append(errs, newIntegrityError("canonical", fmt.Sprintf("RefCount(%v) = %d, want %d", e, got, want)))
		}
		for _, other := range entries[i+1:] {
			if doc.Isomorphic(e, other, nil) {
				errs = append(errs, newIntegrityError("canonical", fmt.Sprintf("entries %v and %v are isomorphic", e, other)))
			}
		}
	}

	return errors.Join(errs...)
}

// ErrInconsistent is wrapped by every violation Consistent reports.
var ErrInconsistent = errors.New("inconsistent document")

// newIntegrityError describes a violation of the named index.
//
// This function expects the index argument to be one of "id", "reference",
// "parent" or "canonical".
func newIntegrityError(index, detail string) error {
	switch index {
	case "id", "reference", "parent", "canonical":
	default:
		panic("github.com/go-digitaltwin/go-docgraph/assert: unknown index: " + index)
	}
	return fmt.Errorf("%w: %s index: %s", ErrInconsistent, index, detail)
}
