package docgraph

import "iter"

// IDResolver looks up items by identity. A nil result means the id has no
// current owner.
type IDResolver interface {
	ResolveID(id ID) *Item
}

// ReferenceIndex maps the id of every item reachable from a Store's root to the
// item, and resolves reference attributes through that map.
//
// The index follows the Store's change notifications: by the time a mutation
// returns, items it attached are indexed and items it detached are not.
type ReferenceIndex struct {
	store     *Store
	items     map[ID]*Item
	holders   map[*Item]int // child slots holding each reachable item
	resolvers map[string]*Resolver
	handle    Handle
}

// NewReferenceIndex indexes the graph under store and keeps the index current
// until Close.
func NewReferenceIndex(store *Store) *ReferenceIndex {
	idx := &ReferenceIndex{
		store:     store,
		items:     make(map[ID]*Item),
		holders:   make(map[*Item]int),
		resolvers: make(map[string]*Resolver),
	}
	// the store holds the root
	idx.hold(store.Root())
	idx.handle = store.AddChangeHandler(idx.update)
	return idx
}

// Close stops following the store.
func (idx *ReferenceIndex) Close() {
	idx.store.Hub().RemoveHandler(idx.handle)
}

func (idx *ReferenceIndex) update(c Change) {
	// edits on items that are not part of the graph attach nothing to it
	if !idx.Contains(c.Item) {
		return
	}
	for _, it := range c.Attached() {
		idx.hold(it)
	}
	for _, it := range c.Detached() {
		idx.release(it)
	}
}

// hold counts one more slot holding item. The first one indexes item and,
// through their own slots, its children.
func (idx *ReferenceIndex) hold(item *Item) {
	idx.holders[item]++
	if idx.holders[item] > 1 {
		return
	}
	idx.items[item.id] = item
	VisitChildren(item, idx.hold)
}

// release undoes hold. An item moved by inserting it at its new place before
// removing it from the old one is still held, and stays indexed.
func (idx *ReferenceIndex) release(item *Item) {
	idx.holders[item]--
	if idx.holders[item] > 0 {
		return
	}
	delete(idx.holders, item)
	// the same id may already belong to an item attached since
	if idx.items[item.id] == item {
		delete(idx.items, item.id)
	}
	VisitChildren(item, idx.release)
}

// ResolveID returns the reachable item with the given id, or nil.
func (idx *ReferenceIndex) ResolveID(id ID) *Item {
	return idx.items[id]
}

// GetReference returns the item that item[attr] refers to, or nil when the
// attribute is absent or the reference dangles.
func (idx *ReferenceIndex) GetReference(item *Item, attr string) *Item {
	id, ok := item.Reference(attr)
	if !ok {
		return nil
	}
	return idx.ResolveID(id)
}

// GetReferenceFn returns the Resolver bound to attr. Repeated calls with the
// same attr return the same *Resolver, so it can serve as a map key.
func (idx *ReferenceIndex) GetReferenceFn(attr string) *Resolver {
	r, ok := idx.resolvers[attr]
	if !ok {
		r = &Resolver{idx: idx, attr: attr}
		idx.resolvers[attr] = r
	}
	return r
}

// Contains reports whether item is reachable from the root.
func (idx *ReferenceIndex) Contains(item *Item) bool {
	return item != nil && idx.items[item.id] == item
}

// Len returns the number of reachable items.
func (idx *ReferenceIndex) Len() int { return len(idx.items) }

// Items yields every reachable item keyed by id, in no particular order.
func (idx *ReferenceIndex) Items() iter.Seq2[ID, *Item] {
	return func(yield func(ID, *Item) bool) {
		for id, it := range idx.items {
			if !yield(id, it) {
				return
			}
		}
	}
}

// Resolver resolves one reference attribute against a ReferenceIndex.
type Resolver struct {
	idx  *ReferenceIndex
	attr string
}

// Attr returns the attribute the resolver reads.
func (r *Resolver) Attr() string { return r.attr }

// Resolve returns the item that item[r.Attr()] refers to, or nil.
func (r *Resolver) Resolve(item *Item) *Item {
	return r.idx.GetReference(item, r.attr)
}
