package docgraph

import (
	"crypto/sha1"
	"encoding"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"reflect"
	"sort"
)

// ShapeOf returns a ShapeHash for the subtree rooted at item.
//
// A shape hash is computed over everything Isomorphic compares except the
// targets of references: attribute names and kinds (irrespective of declaration
// order), property values, and the shapes of children in order. Hence two
// isomorphic items always share a ShapeHash, while items with the same
// ShapeHash may still differ in where their references lead.
//
// ShapeOf fails on property values it does not know how to hash (maps,
// structs, channels and the like).
func ShapeOf(item *Item) (ShapeHash, error) {
	h := sha1.New()
	if err := shapeAddress(h, item, make(map[*Item]bool)); err != nil {
		return ShapeHash{}, err
	}
	return ShapeHash(h.Sum(nil)), nil
}

// MustShapeOf is like ShapeOf but panics if the item cannot be hashed.
func MustShapeOf(item *Item) ShapeHash {
	h, err := ShapeOf(item)
	if err != nil {
		panic(fmt.Sprintf("docgraph: un-hashable item %d: %v", item.ID(), err))
	}
	return h
}

// markers separate the parts of a shape so that different shapes never
// serialise to the same byte stream.
const (
	markItem     = '{'
	markEnd      = '}'
	markSequence = '['
	markRef      = '&'
)

func shapeAddress(digest hash.Hash, item *Item, onStack map[*Item]bool) error {
	if onStack[item] {
		return fmt.Errorf("item %d: containment cycle", item.id)
	}
	onStack[item] = true
	defer delete(onStack, item)

	names := item.Names()
	// sort names to ensure a stable hash, regardless of the order in which the
	// attributes were declared.
	sort.Strings(names)

	digest.Write([]byte{markItem})
	for _, name := range names {
		a := item.present(name)
		digest.Write([]byte(name))
		digest.Write([]byte{byte(a.kind)})

		switch a.kind {
		case KindReference:
			// only the presence of a reference contributes; its target is not
			// part of the item's shape.
			digest.Write([]byte{markRef})
		case KindChild:
			if _, ok := a.value.([]*Item); ok {
				digest.Write([]byte{markSequence})
			}
			for _, child := range childItems(a.value) {
				if err := shapeAddress(digest, child, onStack); err != nil {
					return fmt.Errorf("child %s: %w", name, err)
				}
			}
		default:
			if err := valueAddress(digest, reflect.ValueOf(a.value)); err != nil {
				return fmt.Errorf("property %s: %w", name, err)
			}
		}
	}
	digest.Write([]byte{markEnd})
	return nil
}

// valueAddress hashes a property value. Every value is preceded by its kind so
// that, say, the string "1" and the integer 1 hash differently.
func valueAddress(digest hash.Hash, value reflect.Value) error {
	// unpack interfaces to their underlying values (sequence elements are
	// stored as interfaces)
	if value.Kind() == reflect.Interface {
		if value.IsNil() {
			digest.Write([]byte{0})
			return nil
		}
		value = value.Elem()
	}
	digest.Write([]byte{byte(value.Kind())})

	// fast-path for types that implement encoding.BinaryMarshaler
	if value.CanInterface() {
		if x, ok := value.Interface().(encoding.BinaryMarshaler); ok {
			b, err := x.MarshalBinary()
			if err != nil {
				return fmt.Errorf("binary %v: %w", value.Type(), err)
			}
			digest.Write(b)
			return nil
		}
	}

	switch value.Kind() {
	case reflect.String:
		s := value.String()
		writeLength(digest, len(s))
		digest.Write([]byte(s))
	case reflect.Int:
		// int is variable-size based on the architecture it is compiled for,
		// so to be consistent across architectures we convert to int64
		buf := make([]byte, binary.MaxVarintLen64)
		n := binary.PutVarint(buf, value.Int())
		digest.Write(buf[:n])
	case reflect.Uint:
		buf := make([]byte, binary.MaxVarintLen64)
		n := binary.PutUvarint(buf, value.Uint())
		digest.Write(buf[:n])
	case reflect.Bool, reflect.Float32, reflect.Float64,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		// binary package handles fixed-size signed/unsigned integers, floats and booleans
		if err := binary.Write(digest, binary.BigEndian, value.Interface()); err != nil {
			return fmt.Errorf("%v: %w", value.Type(), err)
		}
	case reflect.Slice, reflect.Array:
		writeLength(digest, value.Len())
		for i := 0; i < value.Len(); i++ {
			if err := valueAddress(digest, value.Index(i)); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
	default:
		// all other value kinds are not supported
		return fmt.Errorf("unsupported %s %v", value.Kind(), value.Type())
	}
	return nil
}

func writeLength(digest hash.Hash, n int) {
	buf := make([]byte, binary.MaxVarintLen64)
	digest.Write(buf[:binary.PutUvarint(buf, uint64(n))])
}

// ShapeHash is a consistent hash (i.e., content address) over the shape of an
// item's subtree. The canonical pool uses it to narrow the isomorphism checks
// needed to internalize a candidate.
//
// A ShapeHash is independent of item ids: a subtree and its clone share it.
type ShapeHash contentAddress

func (h ShapeHash) MarshalText() ([]byte, error)     { return contentAddress(h).MarshalText() }
func (h *ShapeHash) UnmarshalText(text []byte) error { return (*contentAddress)(h).UnmarshalText(text) }
func (h ShapeHash) String() string                   { return "shape(" + contentAddress(h).String() + ")" }
func (h ShapeHash) IsZero() bool                     { return contentAddress(h).IsZero() }

// contentAddress is a consistent hash primitive serving as the base for strongly
// typed hashes, like ShapeHash.
type contentAddress [sha1.Size]byte

func (h contentAddress) MarshalText() ([]byte, error) {
	text := make([]byte, hex.EncodedLen(len(h)))
	hex.Encode(text, h[:]) // always returns hex.EncodedLen(len(h)) (see hex.Encode)
	return text, nil
}

func (h *contentAddress) UnmarshalText(text []byte) error {
	n, err := hex.Decode(h[:], text)
	if err != nil {
		return fmt.Errorf("decode hex: %w", err)
	}
	if n != len(h) { // always n <= len(h[:]) (see hex.Decode)
		return fmt.Errorf("not enough bytes: %w", io.ErrUnexpectedEOF)
	}
	return nil
}

func (h contentAddress) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero value of the type.
func (h contentAddress) IsZero() bool {
	return h == contentAddress{}
}
