package docgraph

import "fmt"

// ChangeKind tags a Change record.
type ChangeKind uint8

const (
	ValueChanged ChangeKind = iota + 1
	ElementInserted
	ElementRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case ValueChanged:
		return "value-changed"
	case ElementInserted:
		return "element-inserted"
	case ElementRemoved:
		return "element-removed"
	default:
		return fmt.Sprintf("ChangeKind(%d)", uint8(k))
	}
}

// Change describes a single mutation of the graph.
//
// OldValue holds the value replaced by a ValueChanged, or the element taken out
// by an ElementRemoved. Value holds the value set by a ValueChanged, or the
// element put in by an ElementInserted; it is captured when the change is
// emitted so the change can be replayed verbatim.
type Change struct {
	Kind     ChangeKind
	Item     *Item
	Attr     string
	Index    int
	OldValue any
	Value    any
}

// Attached returns the items the change made children of c.Item.
func (c Change) Attached() []*Item {
	if c.Kind == ElementRemoved {
		return nil
	}
	return childItems(c.Value)
}

// Detached returns the items the change took away from c.Item.
func (c Change) Detached() []*Item {
	if c.Kind == ElementInserted {
		return nil
	}
	return childItems(c.OldValue)
}

func (c Change) String() string {
	switch c.Kind {
	case ValueChanged:
		return fmt.Sprintf("%v item(%d).%s: %v -> %v", c.Kind, c.Item.id, c.Attr, c.OldValue, c.Value)
	case ElementInserted:
		return fmt.Sprintf("%v item(%d).%s[%d]: %v", c.Kind, c.Item.id, c.Attr, c.Index, c.Value)
	default:
		return fmt.Sprintf("%v item(%d).%s[%d]: %v", c.Kind, c.Item.id, c.Attr, c.Index, c.OldValue)
	}
}

// Store applies mutations to a rooted graph and emits a Change for each one
// under EventChanged.
//
// Every mutation comes in two forms. The do-and-notify form (ChangeValue,
// InsertElement, RemoveElement) performs the edit and emits. The notify-only
// form (OnValueChanged, OnElementInserted, OnElementRemoved) assumes the caller
// already performed the edit on the item and only emits. Once a graph is under
// observation, editing it in any other way desynchronises the derived indexes.
type Store struct {
	graph *Graph
	hub   *EventHub
}

// NewStore returns a Store over the graph rooted at root, emitting through a new
// EventHub.
func NewStore(root *Item) *Store {
	return &Store{graph: NewGraph(root), hub: &EventHub{}}
}

// Root returns the root of the observed graph.
func (s *Store) Root() *Item { return s.graph.root }

// Graph returns the observed graph and its id space.
func (s *Store) Graph() *Graph { return s.graph }

// Hub returns the EventHub the store emits through.
func (s *Store) Hub() *EventHub { return s.hub }

// AddChangeHandler registers fn under EventChanged.
func (s *Store) AddChangeHandler(fn func(Change)) Handle {
	return s.hub.AddHandler(EventChanged, fn)
}

// ChangeValue sets item[attr] to value and emits the change. A nil value clears
// the attribute.
func (s *Store) ChangeValue(item *Item, attr string, value any) {
	old := item.set(attr, value)
	s.OnValueChanged(item, attr, old)
}

// OnValueChanged emits the change of item[attr] from oldValue to its current
// value.
func (s *Store) OnValueChanged(item *Item, attr string, oldValue any) {
	s.emit(Change{Kind: ValueChanged, Item: item, Attr: attr, OldValue: oldValue, Value: item.Get(attr)})
}

// InsertElement inserts value into the sequence item[attr] at index and emits
// the change. Inserting into an absent attribute first sets it to an empty
// sequence, emitted as a change of its own, so reverting both clears the
// attribute again.
func (s *Store) InsertElement(item *Item, attr string, index int, value any) {
	if item.Get(attr) == nil {
		s.ChangeValue(item, attr, emptySequence(value))
	}
	item.insertAt(attr, index, value)
	s.OnElementInserted(item, attr, index)
}

// emptySequence returns the empty sequence that can hold value.
func emptySequence(value any) any {
	if _, ok := value.(*Item); ok {
		return []*Item{}
	}
	return []any{}
}

// OnElementInserted emits the insertion of item[attr][index].
func (s *Store) OnElementInserted(item *Item, attr string, index int) {
	s.emit(Change{Kind: ElementInserted, Item: item, Attr: attr, Index: index, Value: item.elementAt(attr, index)})
}

// RemoveElement removes item[attr][index], emits the change, and returns the
// removed element.
func (s *Store) RemoveElement(item *Item, attr string, index int) any {
	old := item.removeAt(attr, index)
	s.OnElementRemoved(item, attr, index, old)
	return old
}

// OnElementRemoved emits the removal of oldValue from item[attr][index].
func (s *Store) OnElementRemoved(item *Item, attr string, index int, oldValue any) {
	s.emit(Change{Kind: ElementRemoved, Item: item, Attr: attr, Index: index, OldValue: oldValue})
}

func (s *Store) emit(c Change) {
	for _, it := range c.Attached() {
		s.graph.Observe(it)
	}
	s.hub.OnEvent(EventChanged, func(h any) {
		if fn, ok := h.(func(Change)); ok {
			fn(c)
		}
	})
}

// revert applies the inverse of c.
func (s *Store) revert(c Change) {
	switch c.Kind {
	case ValueChanged:
		s.ChangeValue(c.Item, c.Attr, c.OldValue)
	case ElementInserted:
		s.RemoveElement(c.Item, c.Attr, c.Index)
	case ElementRemoved:
		s.InsertElement(c.Item, c.Attr, c.Index, c.OldValue)
	}
}

// replay applies c again.
func (s *Store) replay(c Change) {
	switch c.Kind {
	case ValueChanged:
		s.ChangeValue(c.Item, c.Attr, c.Value)
	case ElementInserted:
		s.InsertElement(c.Item, c.Attr, c.Index, c.Value)
	case ElementRemoved:
		s.RemoveElement(c.Item, c.Attr, c.Index)
	}
}
