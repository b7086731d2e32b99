package docgraph

import (
	"context"
	"iter"
	"log/slog"
	"maps"
	"sync"

	"github.com/danielorbach/go-component"
	"gocloud.dev/pubsub"
)

// An AttributeFunc is a function that defines a specific attribute of the items
// of a document graph. For a given ItemSnapshot, it returns the attribute's
// value and a bool indicating whether that attribute is valid for that item.
//
// It usually reads one of the snapshot's properties, but any value of type V is
// appropriate.
type AttributeFunc[V any] func(item ItemSnapshot) (V, bool)

// PropertyOf returns an AttributeFunc reading the named property, valid for the
// items whose property holds a V.
func PropertyOf[V any](name string) AttributeFunc[V] {
	return func(item ItemSnapshot) (V, bool) {
		v, ok := item.Properties[name].(V)
		return v, ok
	}
}

// AttributeMap correlates between the items of a document graph and their
// corresponding attribute value. The generic parameter V denotes the type of the
// attribute's value.
//
// Use the map's Update and Find methods to modify and access the stored
// attribute values by an item ID.
//
// AttributeMap is designed to be concurrently safe and can be accessed by multiple
// goroutines simultaneously.
type AttributeMap[V any] struct {
	m           map[ID]V
	mu          sync.Mutex
	attributeOf AttributeFunc[V]
}

// NewAttributeMap returns a mapping/view of a single attribute of the items of a
// document graph. The provided attr function defines the desired attribute to
// store for every item.
//
// If an existing map 'm' is provided to NewAttributeMap, it will be used;
// otherwise, a new empty map is initialized. Note that the type of 'm'
// should correspond to the type expected by the attr function.
func NewAttributeMap[V any](attr AttributeFunc[V], m map[ID]V) *AttributeMap[V] {
	newMap := make(map[ID]V)
	if m != nil {
		maps.Copy(newMap, m)
	}

	return &AttributeMap[V]{
		m:           newMap,
		attributeOf: attr,
	}
}

// Find looks up the given ID and returns its last known attribute value. If the
// given ID cannot be found, Find indicates that by returning ok == false.
//
// Find is safe for concurrent use.
func (a *AttributeMap[V]) Find(id ID) (v V, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok = a.m[id]
	return v, ok
}

// Len returns the number of items with a valid attribute.
func (a *AttributeMap[V]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.m)
}

// Update determines the effective value of the mapped attribute based on the
// given item snapshot.
//
// If the item was detached, or its attribute value is deemed invalid, this
// function will expunge the item from the AttributeMap. In cases where the item
// is not previously registered within the map, expunging is a no-op, and the
// map is left unmodified.
//
// Update is safe for concurrent use.
func (a *AttributeMap[V]) Update(item ItemSnapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if item.Detached {
		delete(a.m, item.ID)
		return
	}
	v, ok := a.attributeOf(item)
	if ok {
		a.m[item.ID] = v
	} else {
		// We are expunging the stored attribute value as it was deemed invalid by the
		// attribute function for the item at hand. We cannot keep the previous value
		// (if any) because of the definition of an "invalid" attribute for a specific
		// item (see comment on AttributeFunc)
		delete(a.m, item.ID)
	}
}

// All returns an iterator over the items and their associated attribute. The
// iterator ranges over a copy of the map taken when iteration starts, so the
// map may be updated while iterating.
func (a *AttributeMap[V]) All() iter.Seq2[ID, V] {
	return func(yield func(ID, V) bool) {
		a.mu.Lock()
		m := maps.Clone(a.m)
		a.mu.Unlock()
		for k, v := range m {
			if !yield(k, v) {
				return
			}
		}
	}
}

// TrackAttribute return a component.Proc that tracks the ItemChanged
// notifications of a Publisher and maintains an up-to-date view of attribute
// values for the observed items in its graph. The tracked attribute is defined
// by the provided AttributeMap.
//
// This procedure runs sequentially over ItemChanged messages and updates the
// given AttributeMap one item at a time. Use the Find method of AttributeMap to
// receive the attribute of a specific item.
func TrackAttribute[V any](m *AttributeMap[V], source *pubsub.Subscription) component.Proc {
	return ItemChanges(source).Stream(func(ctx context.Context, msg any) error {
		changed := msg.(ItemChanged)
		component.Logger(ctx).Debug("Tracking item change",
			slog.Int64("item", int64(changed.ID)),
			slog.String("transaction", changed.Transaction),
			slog.Bool("detached", changed.Detached),
		)
		m.Update(changed.ItemSnapshot)
		return nil
	})
}
