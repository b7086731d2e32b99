package docgraph

import (
	"reflect"
	"slices"
)

// ItemPair is a pair of items compared by Isomorphic.
type ItemPair struct {
	A, B *Item
}

// Visited records the pairs of items an isomorphism check already descended
// into. A pair found in Visited is treated as isomorphic; this is what ends the
// recursion on reference cycles and shared sub-structure.
type Visited map[ItemPair]struct{}

// Isomorphic reports whether a and b are structurally equal, ignoring ids.
//
// Two items are isomorphic when they hold the same set of present attributes,
// each of the same kind, and:
//   - property values are deeply equal;
//   - reference targets, resolved through refs, are themselves isomorphic (two
//     dangling references are equal); with a nil refs the raw ids are compared;
//   - child attributes hold the same number of children, in the same shape
//     (single or sequence), pairwise isomorphic in order.
//
// visited may be nil; a caller comparing many pairs that share structure can
// pass the same table to every call.
func Isomorphic(refs IDResolver, a, b *Item, visited Visited) bool {
	return IsomorphicWith(refs, refs, a, b, visited)
}

// IsomorphicWith is like Isomorphic, but resolves the references reached from a
// through refsA and those reached from b through refsB. Comparing an unattached
// sub-graph against an attached one needs a resolver per side (see
// SubtreeResolver).
func IsomorphicWith(refsA, refsB IDResolver, a, b *Item, visited Visited) bool {
	if visited == nil {
		visited = make(Visited)
	}
	return isomorphic(refsA, refsB, a, b, visited)
}

func isomorphic(refsA, refsB IDResolver, a, b *Item, visited Visited) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	pair := ItemPair{A: a, B: b}
	if _, ok := visited[pair]; ok {
		return true
	}
	visited[pair] = struct{}{}

	names := a.Names()
	if len(names) != len(b.Names()) {
		return false
	}
	for _, name := range names {
		x, y := a.present(name), b.present(name)
		if y == nil || x.kind != y.kind {
			return false
		}
		switch x.kind {
		case KindProperty:
			if !reflect.DeepEqual(x.value, y.value) {
				return false
			}
		case KindReference:
			if refsA == nil || refsB == nil {
				if x.value != y.value {
					return false
				}
				continue
			}
			if !isomorphic(refsA, refsB, refsA.ResolveID(x.value.(ID)), refsB.ResolveID(y.value.(ID)), visited) {
				return false
			}
		case KindChild:
			if reflect.TypeOf(x.value) != reflect.TypeOf(y.value) {
				return false
			}
			xs, ys := childItems(x.value), childItems(y.value)
			if len(xs) != len(ys) {
				return false
			}
			for i := range xs {
				if !isomorphic(refsA, refsB, xs[i], ys[i], visited) {
					return false
				}
			}
		}
	}
	return true
}

// SubtreeResolver resolves ids to the items of the subtree rooted at root, and
// any other id through next. A nil next leaves other ids unresolved.
type SubtreeResolver struct {
	items map[ID]*Item
	next  IDResolver
}

// NewSubtreeResolver indexes the subtree rooted at root. The index is not kept
// current; build a new resolver after editing the subtree.
func NewSubtreeResolver(root *Item, next IDResolver) *SubtreeResolver {
	r := &SubtreeResolver{items: make(map[ID]*Item), next: next}
	VisitSubtree(root, func(it *Item) {
		// the first item wins when ids repeat
		if _, ok := r.items[it.id]; !ok {
			r.items[it.id] = it
		}
	})
	return r
}

// ResolveID implements IDResolver.
func (r *SubtreeResolver) ResolveID(id ID) *Item {
	if it, ok := r.items[id]; ok {
		return it
	}
	if r.next == nil {
		return nil
	}
	return r.next.ResolveID(id)
}

// CloneGraph deep-clones the subtrees rooted at roots and returns the clones in
// input order. Every cloned item gets a fresh id from g. A reference whose
// target is among the cloned items is redirected to the target's clone, so the
// clones share structure exactly as the originals do; references leaving the
// cloned subtrees are copied unchanged.
//
// The clones are not attached to g.
func CloneGraph(g *Graph, roots []*Item) []*Item {
	c := cloner{graph: g, clones: make(map[*Item]*Item), byID: make(map[ID]*Item)}
	out := make([]*Item, len(roots))
	for i, r := range roots {
		out[i] = c.clone(r)
	}
	for _, clone := range c.order {
		for i := range clone.attrs {
			a := &clone.attrs[i]
			if a.kind != KindReference || a.value == nil {
				continue
			}
			if target, ok := c.byID[a.value.(ID)]; ok {
				a.value = target.id
			}
		}
	}
	return out
}

type cloner struct {
	graph  *Graph
	clones map[*Item]*Item // source to clone
	byID   map[ID]*Item    // source id to clone
	order  []*Item
}

func (c *cloner) clone(src *Item) *Item {
	if dst, ok := c.clones[src]; ok {
		return dst
	}
	dst := &Item{attrs: make([]slot, 0, len(src.attrs))}
	c.graph.AssignID(dst)
	c.clones[src] = dst
	c.byID[src.id] = dst
	c.order = append(c.order, dst)

	for _, a := range src.attrs {
		if a.value == nil {
			continue
		}
		v := a.value
		switch x := v.(type) {
		case *Item:
			v = c.clone(x)
		case []*Item:
			seq := make([]*Item, len(x))
			for i, child := range x {
				seq[i] = c.clone(child)
			}
			v = seq
		case []any:
			v = slices.Clone(x)
		}
		dst.attrs = append(dst.attrs, slot{name: a.name, kind: a.kind, value: v})
	}
	return dst
}
