package compilation

import (
	"context"
	"encoding/gob"
	"fmt"
	"iter"

	"github.com/go-digitaltwin/go-docgraph"
)

// We register all Step implementations with gob.Register to enable serialisation
// and deserialisation across process boundaries.
//
// Without this registration, the gob encoder would fail when attempting to
// serialise these types.
func init() {
	gob.Register(setValue{})
	gob.Register(insertElement{})
	gob.Register(removeElement{})
}

// appendIndex makes an insertElement append to the sequence.
const appendIndex = -1

func resolve(e docgraph.Editor, id docgraph.ID) (*docgraph.Item, error) {
	item := e.ResolveID(id)
	if item == nil {
		return nil, fmt.Errorf("item %d: %w", id, docgraph.ErrUnresolved)
	}
	return item, nil
}

// sequence fails unless item[attr] is absent or a sequence whose elements can
// hold value.
func sequence(item *docgraph.Item, attr string, value any) error {
	switch item.Get(attr).(type) {
	case nil:
		return nil
	case []any:
		if _, ok := value.(*docgraph.Item); ok {
			return fmt.Errorf("item %d %s: cannot hold items", item.ID(), attr)
		}
		return nil
	case []*docgraph.Item:
		if _, ok := value.(*docgraph.Item); !ok && value != nil {
			return fmt.Errorf("item %d %s: cannot hold %T", item.ID(), attr, value)
		}
		return nil
	}
	return fmt.Errorf("item %d %s: not a sequence", item.ID(), attr)
}

func yieldOne(id docgraph.ID) iter.Seq[docgraph.ID] {
	return func(yield func(docgraph.ID) bool) {
		if !yield(id) {
			return
		}
	}
}

// A setValue is a Step that sets a single attribute of an item.
type setValue struct {
	Item  docgraph.ID
	Attr  string
	Value any
}

func (s setValue) Do(_ context.Context, e docgraph.Editor) error {
	item, err := resolve(e, s.Item)
	if err != nil {
		return err
	}
	e.ChangeValue(item, s.Attr, s.Value)
	return nil
}

func (s setValue) Targets() iter.Seq[docgraph.ID] { return yieldOne(s.Item) }

// An insertElement is a Step that inserts an element into a sequence attribute.
type insertElement struct {
	Item  docgraph.ID
	Attr  string
	Index int
	Value any
}

func (s insertElement) Do(_ context.Context, e docgraph.Editor) error {
	item, err := resolve(e, s.Item)
	if err != nil {
		return err
	}
	if s.Value == nil {
		return fmt.Errorf("insert into item %d %s: nil element", s.Item, s.Attr)
	}
	if err := sequence(item, s.Attr, s.Value); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	n := item.Len(s.Attr)
	index := s.Index
	if index == appendIndex {
		index = n
	}
	if index < 0 || index > n {
		return fmt.Errorf("insert into item %d %s: index %d out of range [0,%d]", s.Item, s.Attr, s.Index, n)
	}
	e.InsertElement(item, s.Attr, index, s.Value)
	return nil
}

func (s insertElement) Targets() iter.Seq[docgraph.ID] { return yieldOne(s.Item) }

// A removeElement is a Step that removes an element from a sequence attribute.
type removeElement struct {
	Item  docgraph.ID
	Attr  string
	Index int
}

func (s removeElement) Do(_ context.Context, e docgraph.Editor) error {
	item, err := resolve(e, s.Item)
	if err != nil {
		return err
	}
	if err := sequence(item, s.Attr, nil); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	if n := item.Len(s.Attr); s.Index < 0 || s.Index >= n {
		return fmt.Errorf("remove from item %d %s: index %d out of range [0,%d)", s.Item, s.Attr, s.Index, n)
	}
	e.RemoveElement(item, s.Attr, s.Index)
	return nil
}

func (s removeElement) Targets() iter.Seq[docgraph.ID] { return yieldOne(s.Item) }
