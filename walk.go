package docgraph

// A Visitor's Visit method is invoked for each item encountered by Walk. If the
// result visitor w is not nil, Walk visits each child of the item with the
// visitor w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(item *Item) (w Visitor)
}

// Walk traverses the subtree rooted at item in depth-first order: It starts by
// calling v.Visit(item). If the visitor w returned by v.Visit(item) is not nil,
// Walk is invoked recursively with visitor w for each direct child of the item
// (see VisitChildren), followed by a call of w.Visit(nil).
func Walk(v Visitor, item *Item) {
	if v = v.Visit(item); v == nil {
		return
	}
	VisitChildren(item, func(child *Item) {
		Walk(v, child)
	})
	v.Visit(nil)
}

type inspector func(item *Item) bool

func (f inspector) Visit(item *Item) Visitor {
	if f(item) {
		return f
	}
	return nil
}

// Inspect traverses the subtree rooted at item in depth-first order: It starts
// by calling f(item); item must not be nil. If f returns true, Inspect invokes f
// recursively for each child of the item, followed by a call of f(nil).
func Inspect(item *Item, f func(item *Item) bool) {
	Walk(inspector(f), item)
}

// VisitSubtree calls fn for item and then, recursively and in VisitChildren
// order, for every item below it (pre-order).
func VisitSubtree(item *Item, fn func(item *Item)) {
	Inspect(item, func(it *Item) bool {
		if it != nil {
			fn(it)
		}
		return true
	})
}

// VisitChildren calls fn for each direct child of item, in attribute
// declaration order, expanding child sequences element by element. It does not
// recurse.
func VisitChildren(item *Item, fn func(child *Item)) {
	for _, a := range item.attrs {
		if a.kind != KindChild || a.value == nil {
			continue
		}
		for _, child := range childItems(a.value) {
			fn(child)
		}
	}
}

// IsProperty reports whether attr holds scalar data on item. References are
// properties too; the id and child attributes are not.
func IsProperty(item *Item, attr string) bool {
	k, ok := item.KindOf(attr)
	return ok && (k == KindProperty || k == KindReference)
}

// IsReference reports whether attr holds the ID of another item.
func IsReference(item *Item, attr string) bool {
	k, ok := item.KindOf(attr)
	return ok && k == KindReference
}

// VisitProperties calls fn for each property attribute of item (references
// included), in declaration order.
func VisitProperties(item *Item, fn func(item *Item, attr string)) {
	for _, a := range item.attrs {
		if a.value != nil && (a.kind == KindProperty || a.kind == KindReference) {
			fn(item, a.name)
		}
	}
}

// VisitReferences calls fn for each reference attribute of item, in
// declaration order.
func VisitReferences(item *Item, fn func(item *Item, attr string)) {
	for _, a := range item.attrs {
		if a.value != nil && a.kind == KindReference {
			fn(item, a.name)
		}
	}
}

//=============================================================================

// Graph is a rooted item graph together with its id space.
//
// The id allocator is monotonic: AssignID never returns an id at or below the
// highest id observed so far, whether it was reachable from the root when the
// Graph was created, attached later (see Observe), or assigned by AssignID.
// Items detached from the graph and re-attached later (e.g. by undo) therefore
// never collide with freshly assigned ids.
type Graph struct {
	root *Item
	high ID
}

// NewGraph returns the Graph rooted at root; root must not be nil.
func NewGraph(root *Item) *Graph {
	if root == nil {
		panic("docgraph: nil root")
	}
	g := &Graph{root: root}
	g.Observe(root)
	return g
}

// Root returns the root item of the graph.
func (g *Graph) Root() *Item { return g.root }

// Observe raises the id high-water mark to cover every item below item.
func (g *Graph) Observe(item *Item) {
	VisitSubtree(item, func(it *Item) {
		if it.id > g.high {
			g.high = it.id
		}
	})
}

// AssignID computes an id colliding with no id reachable from the root, stores
// it on the item, and returns it.
func (g *Graph) AssignID(item *Item) ID {
	g.high++
	item.id = g.high
	return item.id
}
