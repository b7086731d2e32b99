package docgraph

import (
	"io"
	"log/slog"
	"slices"
)

// Default attribute names of the canonical pool (see WithPoolAttribute and
// WithCanonicalReference).
const (
	DefaultPoolAttribute      = "canonicals"
	DefaultCanonicalReference = "canonicalId"
)

// CanonicalPool deduplicates structurally equal sub-graphs into a sequence of
// canonical entries held by the root, and collects entries no reachable
// instance refers to anymore.
//
// An instance is any reachable item whose canonical reference attribute names
// an entry. The pool counts instances per entry as the Store reports items
// attached and detached. When a transaction ends, every entry whose count
// dropped to zero during the transaction is removed from the pool; the removal
// is recorded in the same transaction, so undo brings the entry back.
//
// Releases made outside a transaction are forgotten when the next one begins:
// an entry whose last instance was removed outside a transaction stays in the
// pool, with a zero RefCount, until an instance refers to it and is released
// again inside a transaction.
type CanonicalPool struct {
	store *Store
	refs  *ReferenceIndex
	log   *TransactionLog

	poolAttr string
	refAttr  string

	counts  map[ID]int
	dirty   map[ID]struct{}
	shapes  map[*Item]ShapeHash
	handles []Handle

	graph  string
	logger *slog.Logger
}

// NewCanonicalPool counts the instances reachable in store and maintains the
// pool held by the root's poolAttr child sequence until Close. Instances refer
// to their entry through refAttr.
func NewCanonicalPool(store *Store, refs *ReferenceIndex, log *TransactionLog, poolAttr, refAttr string) *CanonicalPool {
	p := &CanonicalPool{
		store:    store,
		refs:     refs,
		log:      log,
		poolAttr: poolAttr,
		refAttr:  refAttr,
		counts:   make(map[ID]int),
		dirty:    make(map[ID]struct{}),
		shapes:   make(map[*Item]ShapeHash),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	p.retain(store.Root())
	p.handles = []Handle{
		store.AddChangeHandler(p.update),
		log.AddTransactionHandler(EventTransactionBegan, func(*Transaction) { clear(p.dirty) }),
		log.AddTransactionHandler(EventTransactionEnding, p.collect),
	}
	return p
}

// Close stops maintaining the pool.
func (p *CanonicalPool) Close() {
	for _, h := range p.handles {
		p.store.hub.RemoveHandler(h)
	}
}

func (p *CanonicalPool) update(c Change) {
	clear(p.shapes)
	if !p.refs.Contains(c.Item) {
		return
	}
	for _, it := range c.Detached() {
		p.release(it)
	}
	for _, it := range c.Attached() {
		p.retain(it)
	}
	if c.Kind == ValueChanged && c.Attr == p.refAttr {
		if a := c.Item.lookup(c.Attr); a != nil && a.kind == KindReference {
			if id, ok := toID(c.OldValue); ok {
				p.drop(id)
			}
			if id, ok := toID(c.Value); ok {
				p.counts[id]++
			}
		}
	}
}

// retain counts every instance in the subtree rooted at item.
func (p *CanonicalPool) retain(item *Item) {
	VisitSubtree(item, func(it *Item) {
		if id, ok := it.Reference(p.refAttr); ok {
			p.counts[id]++
		}
	})
}

// release discounts every instance in the subtree rooted at item.
func (p *CanonicalPool) release(item *Item) {
	VisitSubtree(item, func(it *Item) {
		if id, ok := it.Reference(p.refAttr); ok {
			p.drop(id)
		}
	})
}

func (p *CanonicalPool) drop(id ID) {
	p.counts[id]--
	if p.counts[id] <= 0 {
		delete(p.counts, id)
	}
	p.dirty[id] = struct{}{}
}

// collect removes the entries that lost their last instance during tx. Removing
// an entry can release instances nested inside it, so collect repeats until no
// entry is removed.
func (p *CanonicalPool) collect(tx *Transaction) {
	if p.log.state != txEnding || p.log.current != tx {
		return
	}
	root := p.store.Root()
	collected := 0
	for {
		removed := 0
		entries := root.Items(p.poolAttr)
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			if _, ok := p.dirty[e.id]; !ok || p.counts[e.id] > 0 {
				continue
			}
			p.store.RemoveElement(root, p.poolAttr, i)
			delete(p.dirty, e.id)
			removed++
		}
		if removed == 0 {
			break
		}
		collected += removed
	}
	if collected > 0 {
		measureCollected(p.graph, collected)
		p.logger.Debug("Canonical entries collected", slog.String("transaction", tx.Name), slog.Int("count", collected))
	}
}

// Internalize returns the pool entry isomorphic to candidate. If there is none,
// it clones candidate with fresh ids, appends the clone to the pool and returns
// the clone. The candidate itself is never attached.
//
// An entry internalized while a transaction is open is collected when that
// transaction ends unless an instance refers to it by then.
func (p *CanonicalPool) Internalize(candidate *Item) *Item {
	shape, err := ShapeOf(candidate)
	// references inside the candidate resolve within it; it is not indexed
	local := NewSubtreeResolver(candidate, p.refs)
	for _, e := range p.Entries() {
		if err == nil {
			if s, ok := p.shapeOf(e); ok && s != shape {
				continue
			}
		}
		// a failed comparison may leave pairs behind in the table, so every
		// entry starts from a fresh one.
		if IsomorphicWith(local, NewSubtreeResolver(e, p.refs), candidate, e, nil) {
			return e
		}
	}

	clone := CloneGraph(p.store.graph, []*Item{candidate})[0]
	root := p.store.Root()
	p.store.InsertElement(root, p.poolAttr, root.Len(p.poolAttr), clone)
	if p.log.state != txIdle {
		p.dirty[clone.id] = struct{}{}
	}
	return clone
}

func (p *CanonicalPool) shapeOf(e *Item) (ShapeHash, bool) {
	if s, ok := p.shapes[e]; ok {
		return s, true
	}
	s, err := ShapeOf(e)
	if err != nil {
		return ShapeHash{}, false
	}
	p.shapes[e] = s
	return s, true
}

// Entries returns the canonical entries in pool order.
func (p *CanonicalPool) Entries() []*Item {
	return slices.Clone(p.store.Root().Items(p.poolAttr))
}

// RefCount returns the number of reachable instances referring to entry.
func (p *CanonicalPool) RefCount(entry *Item) int {
	return p.counts[entry.id]
}

// CanonicalOf returns the pool entry instance refers to, or nil when instance
// is not an instance or its entry is not in the pool.
func (p *CanonicalPool) CanonicalOf(instance *Item) *Item {
	e := p.refs.GetReference(instance, p.refAttr)
	if e == nil || !slices.Contains(p.store.Root().Items(p.poolAttr), e) {
		return nil
	}
	return e
}

// PoolAttribute returns the name of the root's child sequence holding the pool.
func (p *CanonicalPool) PoolAttribute() string { return p.poolAttr }

// CanonicalReference returns the name of the reference attribute through which
// instances refer to their entry.
func (p *CanonicalPool) CanonicalReference() string { return p.refAttr }
