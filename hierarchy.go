package docgraph

// ParentIndex maps every item reachable from a Store's root to the item that
// owns it, following the Store's change notifications.
type ParentIndex struct {
	store   *Store
	parents map[*Item]*Item
	handle  Handle
}

// NewParentIndex derives the parent of every item reachable in store and keeps
// the index current until Close.
func NewParentIndex(store *Store) *ParentIndex {
	idx := &ParentIndex{store: store, parents: make(map[*Item]*Item)}
	idx.attach(store.Root())
	idx.handle = store.AddChangeHandler(idx.update)
	return idx
}

// Close stops following the store.
func (idx *ParentIndex) Close() {
	idx.store.hub.RemoveHandler(idx.handle)
}

func (idx *ParentIndex) update(c Change) {
	if !idx.reachable(c.Item) {
		return
	}
	for _, it := range c.Attached() {
		idx.parents[it] = c.Item
		idx.attach(it)
	}
	for _, it := range c.Detached() {
		// the item may have moved to another parent, or to another slot of the
		// same parent, since
		if idx.parents[it] == c.Item && !holds(c.Item, it) {
			idx.forget(it)
		}
	}
}

// holds reports whether item is a direct child of parent.
func holds(parent, item *Item) bool {
	found := false
	VisitChildren(parent, func(child *Item) {
		if child == item {
			found = true
		}
	})
	return found
}

func (idx *ParentIndex) reachable(item *Item) bool {
	return item == idx.store.Root() || idx.parents[item] != nil
}

func (idx *ParentIndex) attach(item *Item) {
	VisitChildren(item, func(child *Item) {
		idx.parents[child] = item
		idx.attach(child)
	})
}

func (idx *ParentIndex) forget(item *Item) {
	delete(idx.parents, item)
	VisitChildren(item, func(child *Item) {
		// a child moved out of item keeps its new parent
		if idx.parents[child] == item {
			idx.forget(child)
		}
	})
}

// GetParent returns the item owning item, or nil for the root and for detached
// items.
func (idx *ParentIndex) GetParent(item *Item) *Item {
	return idx.parents[item]
}

// GetLineage returns item followed by its ancestors, ending with the root (or
// with the topmost owner, for detached sub-graphs).
func (idx *ParentIndex) GetLineage(item *Item) []*Item {
	var lineage []*Item
	for it := item; it != nil; it = idx.parents[it] {
		lineage = append(lineage, it)
	}
	return lineage
}

// GetLowestCommonAncestor returns the nearest item that is in the lineage of
// both a and b: a (or b) itself when it is an ancestor of the other, the root
// when no closer ancestor exists, and nil when a and b share no lineage at all.
func (idx *ParentIndex) GetLowestCommonAncestor(a, b *Item) *Item {
	ancestors := make(map[*Item]struct{})
	for _, it := range idx.GetLineage(a) {
		ancestors[it] = struct{}{}
	}
	for _, it := range idx.GetLineage(b) {
		if _, ok := ancestors[it]; ok {
			return it
		}
	}
	return nil
}

// ReduceSelection returns the items of selection that have no ancestor in
// selection, in their original order.
//
// Use it to reduce a Selection in place:
//
//	sel.Set(idx.ReduceSelection(sel.Contents())...)
//
// Note that Set adds in order, so the reduced selection's recency order is
// reversed.
func (idx *ParentIndex) ReduceSelection(selection []*Item) []*Item {
	selected := make(map[*Item]struct{}, len(selection))
	for _, it := range selection {
		selected[it] = struct{}{}
	}
	var reduced []*Item
	for _, it := range selection {
		covered := false
		for anc := idx.parents[it]; anc != nil; anc = idx.parents[anc] {
			if _, ok := selected[anc]; ok {
				covered = true
				break
			}
		}
		if !covered {
			reduced = append(reduced, it)
		}
	}
	return reduced
}
