package docgraph

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"reflect"
	"strings"
)

// ID is the identity of an Item within the graph reachable from a Document's
// root. The zero ID means the item was not assigned an identity yet.
type ID int64

// Kind classifies an attribute of an Item. An attribute's kind is decided once,
// when the attribute is first declared on its item, and never changes
// afterwards.
type Kind uint8

const (
	// KindProperty attributes hold a scalar or a sequence of scalars.
	KindProperty Kind = iota + 1
	// KindReference attributes hold the ID of another item. They are properties
	// too (see IsProperty).
	KindReference
	// KindChild attributes hold an owned item or a sequence of owned items; they
	// are the containment edges of the graph.
	KindChild
)

func (k Kind) String() string {
	switch k {
	case KindProperty:
		return "property"
	case KindReference:
		return "reference"
	case KindChild:
		return "child"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// An Attr declares a named attribute of an Item together with its kind and
// initial value. Use the Prop, Ref, Child, Children and Field constructors.
type Attr struct {
	Name  string
	Kind  Kind
	Value any
}

// Prop declares a property attribute. Slices are copied into a []any sequence.
func Prop(name string, value any) Attr {
	return Attr{Name: name, Kind: KindProperty, Value: normalize(KindProperty, value)}
}

// Ref declares a reference attribute pointing at the item identified by id.
func Ref(name string, id ID) Attr {
	return Attr{Name: name, Kind: KindReference, Value: id}
}

// Child declares a child attribute owning a single item.
func Child(name string, item *Item) Attr {
	return Attr{Name: name, Kind: KindChild, Value: item}
}

// Children declares a child attribute owning a sequence of items. The sequence
// is empty (not absent) when no items are given.
func Children(name string, items ...*Item) Attr {
	seq := make([]*Item, len(items))
	copy(seq, items)
	return Attr{Name: name, Kind: KindChild, Value: seq}
}

// Field declares an attribute whose kind is derived from its name and value: an
// integer attribute named with the "Id" suffix is a reference, an *Item or
// []*Item is a child, and anything else is a property.
func Field(name string, value any) Attr {
	k := classify(name, value)
	return Attr{Name: name, Kind: k, Value: normalize(k, value)}
}

// classify derives the kind of an undeclared attribute by naming convention.
func classify(name string, value any) Kind {
	switch value.(type) {
	case *Item, []*Item:
		return KindChild
	}
	if name != "id" && strings.HasSuffix(name, "Id") {
		if _, ok := toID(value); ok {
			return KindReference
		}
	}
	return KindProperty
}

// toID converts any integer value to an ID.
func toID(v any) (ID, bool) {
	switch x := v.(type) {
	case ID:
		return x, true
	case nil:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return ID(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return ID(rv.Uint()), true
	}
	return 0, false
}

// normalize converts a value to the representation stored for the given kind.
// Sequences are always copied, so later edits never alias a caller's slice.
func normalize(k Kind, value any) any {
	if value == nil {
		return nil
	}
	switch k {
	case KindReference:
		id, ok := toID(value)
		if !ok {
			panic(fmt.Sprintf("docgraph: reference value must be an integer; got %T", value))
		}
		return id
	case KindChild:
		switch x := value.(type) {
		case *Item:
			return x
		case []*Item:
			seq := make([]*Item, len(x))
			copy(seq, x)
			return seq
		}
		panic(fmt.Sprintf("docgraph: child value must be *Item or []*Item; got %T", value))
	default:
		switch value.(type) {
		case *Item, []*Item:
			panic(fmt.Sprintf("docgraph: property value cannot hold %T", value))
		}
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Slice {
			seq := make([]any, rv.Len())
			for i := range seq {
				seq[i] = rv.Index(i).Interface()
			}
			return seq
		}
		return value
	}
}

type slot struct {
	name  string
	kind  Kind
	value any // nil when cleared
}

// Item is an identity-bearing node of a document graph: an ID plus an ordered
// list of declared attributes.
//
// Read an item freely, but mutate attached items only through a Store (or a
// Document); the derived indexes follow the Store's change notifications.
// Do not modify the sequences returned by Get and Items.
type Item struct {
	id    ID
	attrs []slot
}

// NewItem returns an item with the given identity and attributes, declared in
// the given order. A later declaration of the same name replaces the earlier
// value but keeps its position.
func NewItem(id ID, attrs ...Attr) *Item {
	it := &Item{id: id, attrs: make([]slot, 0, len(attrs))}
	for _, a := range attrs {
		if a.Name == "id" {
			panic("docgraph: 'id' is not an attribute; pass it to NewItem")
		}
		if s := it.lookup(a.Name); s != nil {
			s.value = normalize(s.kind, a.Value)
			continue
		}
		it.attrs = append(it.attrs, slot{name: a.Name, kind: a.Kind, value: normalize(a.Kind, a.Value)})
	}
	return it
}

// ID returns the item's identity.
func (it *Item) ID() ID { return it.id }

func (it *Item) lookup(name string) *slot {
	for i := range it.attrs {
		if it.attrs[i].name == name {
			return &it.attrs[i]
		}
	}
	return nil
}

// present returns the attribute if it is declared and holds a value.
func (it *Item) present(name string) *slot {
	if a := it.lookup(name); a != nil && a.value != nil {
		return a
	}
	return nil
}

// Has reports whether the named attribute holds a value.
func (it *Item) Has(name string) bool { return it.present(name) != nil }

// Get returns the attribute's value, or nil if absent or cleared.
func (it *Item) Get(name string) any {
	if a := it.present(name); a != nil {
		return a.value
	}
	return nil
}

// KindOf returns the declared kind of a present attribute.
func (it *Item) KindOf(name string) (Kind, bool) {
	if a := it.present(name); a != nil {
		return a.kind, true
	}
	return 0, false
}

// Reference returns the ID held by a reference attribute.
func (it *Item) Reference(name string) (ID, bool) {
	if a := it.present(name); a != nil && a.kind == KindReference {
		return a.value.(ID), true
	}
	return 0, false
}

// Items returns the items held by a child attribute; a single child is returned
// as a one-element slice.
func (it *Item) Items(name string) []*Item {
	if a := it.present(name); a != nil && a.kind == KindChild {
		return childItems(a.value)
	}
	return nil
}

// Len returns the length of a sequence attribute, or zero.
func (it *Item) Len(name string) int {
	switch x := it.Get(name).(type) {
	case []*Item:
		return len(x)
	case []any:
		return len(x)
	}
	return 0
}

// Names returns the names of the item's present attributes in declaration
// order.
func (it *Item) Names() []string {
	names := make([]string, 0, len(it.attrs))
	for _, a := range it.attrs {
		if a.value != nil {
			names = append(names, a.name)
		}
	}
	return names
}

func (it *Item) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "item(%d){", it.id)
	for i, name := range it.Names() {
		if i > 0 {
			b.WriteString(", ")
		}
		a := it.lookup(name)
		switch a.kind {
		case KindReference:
			fmt.Fprintf(&b, "%s:->%d", name, a.value)
		case KindChild:
			ids := make([]ID, 0)
			for _, c := range childItems(a.value) {
				ids = append(ids, c.id)
			}
			fmt.Fprintf(&b, "%s:%v", name, ids)
		default:
			fmt.Fprintf(&b, "%s:%#v", name, a.value)
		}
	}
	b.WriteString("}")
	return b.String()
}

// set stores value under name, declaring the attribute if needed, and returns
// the previous value.
func (it *Item) set(name string, value any) (old any) {
	if name == "id" {
		panic("docgraph: the 'id' attribute cannot be changed through the store")
	}
	a := it.lookup(name)
	if a == nil {
		if value == nil {
			return nil
		}
		k := classify(name, value)
		it.attrs = append(it.attrs, slot{name: name, kind: k, value: normalize(k, value)})
		return nil
	}
	old = a.value
	a.value = normalize(a.kind, value)
	return old
}

// elementAt returns the element of a sequence attribute.
func (it *Item) elementAt(name string, index int) any {
	switch x := it.Get(name).(type) {
	case []*Item:
		return x[index]
	case []any:
		return x[index]
	}
	panic(fmt.Sprintf("docgraph: attribute %q is not a sequence", name))
}

// insertAt inserts value into a sequence attribute. The sequence is rebuilt
// rather than shifted in place, so slices captured by earlier change records
// never observe the edit.
func (it *Item) insertAt(name string, index int, value any) {
	a := it.lookup(name)
	if a == nil {
		k := KindProperty
		if _, ok := value.(*Item); ok {
			k = KindChild
		}
		it.attrs = append(it.attrs, slot{name: name, kind: k})
		a = &it.attrs[len(it.attrs)-1]
	}
	switch a.kind {
	case KindChild:
		child, ok := value.(*Item)
		if !ok {
			panic(fmt.Sprintf("docgraph: cannot insert %T into child sequence %q", value, name))
		}
		seq, _ := a.value.([]*Item)
		if a.value != nil && seq == nil {
			panic(fmt.Sprintf("docgraph: attribute %q holds a single child, not a sequence", name))
		}
		checkIndex(name, index, len(seq)+1)
		next := make([]*Item, 0, len(seq)+1)
		next = append(next, seq[:index]...)
		next = append(next, child)
		a.value = append(next, seq[index:]...)
	case KindProperty:
		seq, _ := a.value.([]any)
		if a.value != nil && seq == nil {
			panic(fmt.Sprintf("docgraph: attribute %q holds a scalar, not a sequence", name))
		}
		checkIndex(name, index, len(seq)+1)
		next := make([]any, 0, len(seq)+1)
		next = append(next, seq[:index]...)
		next = append(next, value)
		a.value = append(next, seq[index:]...)
	default:
		panic(fmt.Sprintf("docgraph: attribute %q is a %v, not a sequence", name, a.kind))
	}
}

// removeAt removes and returns the element of a sequence attribute.
func (it *Item) removeAt(name string, index int) any {
	switch x := it.Get(name).(type) {
	case []*Item:
		checkIndex(name, index, len(x))
		old := x[index]
		next := make([]*Item, 0, len(x)-1)
		next = append(next, x[:index]...)
		it.lookup(name).value = append(next, x[index+1:]...)
		return old
	case []any:
		checkIndex(name, index, len(x))
		old := x[index]
		next := make([]any, 0, len(x)-1)
		next = append(next, x[:index]...)
		it.lookup(name).value = append(next, x[index+1:]...)
		return old
	}
	panic(fmt.Sprintf("docgraph: attribute %q is not a sequence", name))
}

func checkIndex(name string, index, n int) {
	if index < 0 || index >= n {
		panic(fmt.Sprintf("docgraph: index %d out of range for %q (length %d)", index, name, n))
	}
}

// childItems flattens a child attribute value into a slice of items.
func childItems(v any) []*Item {
	switch x := v.(type) {
	case *Item:
		if x == nil {
			return nil
		}
		return []*Item{x}
	case []*Item:
		return x
	}
	return nil
}

//=============================================================================

// Items are gob-encodable so that edit steps carrying new sub-graphs can be
// recorded and replayed (see the compilation package).
func init() {
	gob.Register(ID(0))
	gob.Register([]any(nil))
	gob.Register(&Item{})
	gob.Register([]*Item(nil))
}

type wireAttr struct {
	Name  string
	Kind  Kind
	Value any
}

type wireItem struct {
	ID    ID
	Attrs []wireAttr
}

func (it *Item) GobEncode() ([]byte, error) {
	w := wireItem{ID: it.id, Attrs: make([]wireAttr, 0, len(it.attrs))}
	for _, a := range it.attrs {
		if a.value == nil {
			continue
		}
		w.Attrs = append(w.Attrs, wireAttr{Name: a.name, Kind: a.kind, Value: a.value})
	}
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(w); err != nil {
		return nil, fmt.Errorf("encode item %d: %w", it.id, err)
	}
	return b.Bytes(), nil
}

func (it *Item) GobDecode(data []byte) error {
	var w wireItem
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return fmt.Errorf("decode item: %w", err)
	}
	it.id = w.ID
	it.attrs = make([]slot, 0, len(w.Attrs))
	for _, a := range w.Attrs {
		it.attrs = append(it.attrs, slot{name: a.Name, kind: a.Kind, value: a.Value})
	}
	return nil
}
