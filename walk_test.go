package docgraph

import (
	"fmt"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// tree returns the graph used by the traversal tests.
//
//	      ┌─ 4
//	      │
//	   2──┤
//	   │  │
//	   │  └─ 5
//	   │
//	1──┤
//	   │
//	   │  ┌─ 6
//	   │  │
//	   3──┤
//	      │
//	      └─ 7
func tree() *Item {
	return NewItem(1,
		Prop("label", "root"),
		Child("head", NewItem(2,
			Children("items", NewItem(4), NewItem(5)),
		)),
		Children("items", NewItem(3,
			Ref("targetId", 2),
			Children("items", NewItem(6), NewItem(7)),
		)),
	)
}

func TestInspect(t *testing.T) {
	root := tree()

	visited := make(map[*Item]struct{})
	var visitOrder []*Item
	Inspect(root, func(item *Item) bool {
		// Must check if item is nil before using it
		if item == nil {
			return false
		}
		visited[item] = struct{}{}
		visitOrder = append(visitOrder, item)
		return true
	})

	if len(visited) != 7 {
		t.Errorf("Inspect visited %d items, want 7", len(visited))
	}
	for item := range visited {
		nodePos := slices.Index(visitOrder, item)
		VisitChildren(item, func(child *Item) {
			// every child is visited, so slices.Index never returns -1 here
			if childPos := slices.Index(visitOrder, child); childPos < nodePos {
				t.Errorf("Item %v (at %d) was visited before its parent %v (at %d)", child, childPos, item, nodePos)
			}
		})
	}
}

func TestInspect_prune(t *testing.T) {
	var got []ID
	Inspect(tree(), func(item *Item) bool {
		if item == nil {
			return false
		}
		got = append(got, item.ID())
		return item.ID() != 3
	})
	if diff := cmp.Diff([]ID{1, 2, 4, 5, 3}, got); diff != "" {
		t.Errorf("Inspect order mismatch (-want +got):\n%s", diff)
	}
}

func ExampleInspect() {
	root := NewItem(1, Children("items",
		NewItem(2, Children("items",
			NewItem(3),
		)),
	))

	printFunc := func(item *Item) bool {
		if item == nil {
			fmt.Println("<nil>")
		} else {
			fmt.Println(item.ID())
		}
		return true
	}

	Inspect(root, printFunc)
	// Output:
	// 1
	// 2
	// 3
	// <nil>
	// <nil>
	// <nil>
}

func ExampleVisitSubtree() {
	VisitSubtree(tree(), func(item *Item) {
		fmt.Print(item.ID(), " ")
	})
	// Output: 1 2 4 5 3 6 7
}

func TestVisitProperties(t *testing.T) {
	it := NewItem(1,
		Prop("label", "x"),
		Children("items"),
		Ref("targetId", 2),
		Prop("cleared", nil),
	)

	var props, refs []string
	VisitProperties(it, func(_ *Item, attr string) { props = append(props, attr) })
	VisitReferences(it, func(_ *Item, attr string) { refs = append(refs, attr) })

	if diff := cmp.Diff([]string{"label", "targetId"}, props); diff != "" {
		t.Errorf("VisitProperties mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"targetId"}, refs); diff != "" {
		t.Errorf("VisitReferences mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		attr            string
		prop, reference bool
	}{
		{"label", true, false},
		{"targetId", true, true},
		{"items", false, false},
		{"cleared", false, false},
		{"id", false, false},
	}
	for _, tt := range tests {
		if got := IsProperty(it, tt.attr); got != tt.prop {
			t.Errorf("IsProperty(%q) = %v, want %v", tt.attr, got, tt.prop)
		}
		if got := IsReference(it, tt.attr); got != tt.reference {
			t.Errorf("IsReference(%q) = %v, want %v", tt.attr, got, tt.reference)
		}
	}
}

func TestGraph_AssignID(t *testing.T) {
	g := NewGraph(tree())

	fresh := NewItem(0)
	if got := g.AssignID(fresh); got != 8 {
		t.Errorf("AssignID() = %d, want 8", got)
	}
	if fresh.ID() != 8 {
		t.Errorf("AssignID did not store the id on the item: got %d", fresh.ID())
	}

	// ids seen once stay reserved, even after their items are gone
	g.Observe(NewItem(100))
	if got := g.AssignID(NewItem(0)); got != 101 {
		t.Errorf("AssignID() after Observe = %d, want 101", got)
	}
}
