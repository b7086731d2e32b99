package docgraph

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"testing"
)

func TestShapeOf(t *testing.T) {
	tests := []struct {
		Name        string
		Left, Right *Item
		Equals      bool
	}{
		{
			Name:   "values=same",
			Left:   NewItem(1, Prop("v", "left")),
			Right:  NewItem(2, Prop("v", "left")),
			Equals: true,
		},
		{
			Name:   "values=different",
			Left:   NewItem(1, Prop("v", "left")),
			Right:  NewItem(1, Prop("v", "right")),
			Equals: false,
		},
		{
			Name:   "types=different,values=same",
			Left:   NewItem(1, Prop("v", "1")),
			Right:  NewItem(1, Prop("v", 1)),
			Equals: false,
		},
		{
			Name:   "order=different",
			Left:   NewItem(1, Prop("a", 1), Prop("b", "x")),
			Right:  NewItem(1, Prop("b", "x"), Prop("a", 1)),
			Equals: true,
		},
		{
			Name:   "kinds=different",
			Left:   NewItem(1, Prop("targetId", ID(2))),
			Right:  NewItem(1, Ref("targetId", 2)),
			Equals: false,
		},
		{
			// a reference contributes its presence, not its target
			Name:   "targets=different",
			Left:   NewItem(1, Ref("targetId", 2)),
			Right:  NewItem(1, Ref("targetId", 3)),
			Equals: true,
		},
		{
			Name:   "children=single-vs-sequence",
			Left:   NewItem(1, Child("c", NewItem(2))),
			Right:  NewItem(1, Children("c", NewItem(2))),
			Equals: false,
		},
		{
			// without separators, ["ab"] and ["a", "b"] would collide
			Name:   "sequences=regrouped",
			Left:   NewItem(1, Prop("s", []string{"ab"})),
			Right:  NewItem(1, Prop("s", []string{"a", "b"})),
			Equals: false,
		},
		{
			Name:   "children=moved",
			Left:   NewItem(1, Children("items", NewItem(2, Children("items", NewItem(3))))),
			Right:  NewItem(1, Children("items", NewItem(2), NewItem(3))),
			Equals: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			l, err := ShapeOf(tt.Left)
			if err != nil {
				t.Fatalf("ShapeOf(%v): %v", tt.Left, err)
			}
			r, err := ShapeOf(tt.Right)
			if err != nil {
				t.Fatalf("ShapeOf(%v): %v", tt.Right, err)
			}
			if (l == r) != tt.Equals {
				t.Errorf("ShapeOf(%v) == ShapeOf(%v) = %v, want %v", tt.Left, tt.Right, l == r, tt.Equals)
			}
		})
	}
}

// Isomorphic items share a shape.
func TestShapeOf_clone(t *testing.T) {
	root := tree()
	clone := CloneGraph(NewGraph(NewItem(100)), []*Item{root})[0]
	if l, r := MustShapeOf(root), MustShapeOf(clone); l != r {
		t.Errorf("ShapeOf(clone) = %v, want %v", r, l)
	}
}

func TestShapeOf_unsupported(t *testing.T) {
	tests := []struct {
		Name string
		Item *Item
	}{
		{"map", NewItem(1, Prop("m", map[string]int{"a": 1}))},
		{"struct", NewItem(1, Prop("s", struct{ A int }{1}))},
		{"nested", NewItem(1, Children("items", NewItem(2, Prop("p", new(int)))))},
	}
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			if h, err := ShapeOf(tt.Item); err == nil {
				t.Errorf("ShapeOf(%v) = %v, want an error", tt.Item, h)
			}
		})
	}
}

func TestShapeOf_containmentCycle(t *testing.T) {
	a := NewItem(1)
	a.set("self", a)
	if _, err := ShapeOf(a); err == nil {
		t.Errorf("ShapeOf(a) with a containment cycle: want an error")
	}
}

// ShapeOf should support all scalar builtin types and their slices.
//
// The test uses reflection to generate the types to test because valueAddress
// switches on the kind of the value, not the type of the attribute.
func TestShapeOf_reflectionTypes(t *testing.T) {
	types := []reflect.Type{
		reflect.TypeOf(""),
		reflect.TypeOf([]string{}),
		reflect.TypeOf(false),
		reflect.TypeOf([]bool{}),
		reflect.TypeOf(0),
		reflect.TypeOf([]int{}),
		reflect.TypeOf(int8(0)),
		reflect.TypeOf(int16(0)),
		reflect.TypeOf(int32(0)),
		reflect.TypeOf(int64(0)),
		reflect.TypeOf(uint(0)),
		reflect.TypeOf(uint8(0)),
		reflect.TypeOf([]uint8{}),
		reflect.TypeOf(uint16(0)),
		reflect.TypeOf(uint32(0)),
		reflect.TypeOf(uint64(0)),
		reflect.TypeOf(float32(0)),
		reflect.TypeOf(float64(0)),
		reflect.TypeOf([]float64{}),
		reflect.TypeOf([2]int{}),
		reflect.TypeOf(ID(0)),
	}

	for _, typ := range types {
		t.Run(typ.String(), func(t *testing.T) {
			rv := reflect.New(typ).Elem()
			h, err := ShapeOf(NewItem(1, Prop("v", rv.Interface())))
			if err != nil {
				t.Fatalf("ShapeOf(%v): %v", typ, err)
			}
			t.Logf("Zero shape for %v: %v", typ, h)
		})
	}
}

func TestShapeHash_text(t *testing.T) {
	h := MustShapeOf(tree())
	text, err := h.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText(): %v", err)
	}
	var got ShapeHash
	if err := got.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText(%s): %v", text, err)
	}
	if got != h {
		t.Errorf("UnmarshalText(MarshalText(%v)) = %v", h, got)
	}
	if got.IsZero() {
		t.Errorf("IsZero() = true for %v", got)
	}
	if err := got.UnmarshalText(text[:10]); err == nil {
		t.Errorf("UnmarshalText(%s) of a truncated hash: want an error", text[:10])
	}
}

func BenchmarkSHA1(b *testing.B) {
	type SHA1 [sha1.Size]byte

	b.Run("Compare", func(b *testing.B) {
		l := SHA1{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
		r := SHA1{255, 254, 253, 252, 251, 250, 249, 248, 247, 246, 245, 244, 243, 242, 241, 240, 239, 238, 237, 236}
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			var doNotOptimise int // see https://github.com/golang/go/issues/27400
			for pb.Next() {
				doNotOptimise = bytes.Compare(l[:], r[:])
			}
			runtime.KeepAlive(doNotOptimise)
		})
	})

	for _, count := range []int{0, 1, 2, 16, 512} {
		items := make([]ShapeHash, count)
		for i := range items {
			items[i] = MustShapeOf(NewItem(ID(i), Prop("v", i)))
		}
		b.Run(fmt.Sprintf("sort.Slice(len=%d)", count), func(b *testing.B) {
			b.RunParallel(func(pb *testing.PB) {
				scratch := make([]ShapeHash, len(items)) // disposable
				for pb.Next() {
					// sort 'scratch' instead of 'items' because this keeps the
					// raw input intact for the next benchmark iteration
					copy(scratch, items)
					sort.Slice(scratch, func(i, j int) bool {
						return bytes.Compare(scratch[i][:], scratch[j][:]) < 0
					})
				}
			})
			b.ReportAllocs()
		})
	}
}

func BenchmarkShapeOf(b *testing.B) {
	root := NewItem(1, Children("items"))
	for i := range 256 {
		root.insertAt("items", i, NewItem(ID(i+2), Prop("label", fmt.Sprint(i)), Prop("points", []int{i, i + 1})))
	}
	b.ResetTimer()
	for b.Loop() {
		MustShapeOf(root)
	}
}
