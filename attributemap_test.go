package docgraph_test

import (
	"fmt"
	"maps"
	"net/netip"
	"slices"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gocloud.dev/pubsub"

	"github.com/danielorbach/go-component"
	. "github.com/go-digitaltwin/go-docgraph"
)

func TestAttributeMap(t *testing.T) {
	// A single snapshot is used across all subtests: an item with a label, a
	// sequence of points and a reference.
	snapshot := ItemSnapshot{
		ID: 7,
		Properties: map[string]any{
			"label":    "box",
			"points":   []any{1, 2, 3},
			"targetId": ID(3),
		},
	}

	t.Run("property", func(t *testing.T) {
		m := NewAttributeMap(PropertyOf[string]("label"), nil)

		if _, ok := m.Find(snapshot.ID); ok {
			t.Errorf("Find(empty map) = true, expected false")
		}
		m.Update(snapshot)
		got, ok := m.Find(snapshot.ID)
		if !ok {
			t.Errorf("Find(%d) not found", snapshot.ID)
		}
		if diff := cmp.Diff("box", got); diff != "" {
			t.Errorf("Find(%d) mismatch (-want +got):\n%s", snapshot.ID, diff)
		}
	})

	t.Run("property of another type", func(t *testing.T) {
		m := NewAttributeMap(PropertyOf[int]("label"), nil)
		m.Update(snapshot)
		if v, ok := m.Find(snapshot.ID); ok {
			t.Errorf("Find(%d) = %v, expected an invalid attribute", snapshot.ID, v)
		}
	})

	t.Run("reference", func(t *testing.T) {
		m := NewAttributeMap(PropertyOf[ID]("targetId"), nil)
		m.Update(snapshot)
		if got, ok := m.Find(snapshot.ID); !ok || got != 3 {
			t.Errorf("Find(%d) = %v, %v; want 3, true", snapshot.ID, got, ok)
		}
	})

	t.Run("slice", func(t *testing.T) {
		m := NewAttributeMap(func(item ItemSnapshot) ([]int, bool) {
			var vs []int
			for _, p := range item.Properties["points"].([]any) {
				vs = append(vs, p.(int))
			}
			return vs, len(vs) > 0
		}, nil)
		m.Update(snapshot)
		got, ok := m.Find(snapshot.ID)
		if !ok {
			t.Errorf("Find(%d) not found", snapshot.ID)
		}
		if diff := cmp.Diff([]int{1, 2, 3}, got); diff != "" {
			t.Errorf("Find(%d) mismatch (-want +got):\n%s", snapshot.ID, diff)
		}
	})

	t.Run("detached", func(t *testing.T) {
		m := NewAttributeMap(PropertyOf[string]("label"), nil)
		m.Update(snapshot)

		detached := snapshot
		detached.Detached = true
		m.Update(detached)
		if v, ok := m.Find(snapshot.ID); ok {
			t.Errorf("Find(%d) = %v after the item was detached, expected not found", snapshot.ID, v)
		}
		if m.Len() != 0 {
			t.Errorf("Len() = %d, want 0", m.Len())
		}
	})
}

// This example illustrates how to use NewAttributeMap in conjunction with the
// All method to transfer data between maps.
func ExampleNewAttributeMap() {
	// Initial map 'm1' is created, which will be the source data for our first
	// AttributeMap.
	m1 := map[ID]string{1: "1", 2: "2", 3: "3"}

	// The AttributeFunc must match the loaded map.
	fn := PropertyOf[string]("label")
	am1 := NewAttributeMap(fn, m1)

	// All is utilized to transfer all entries from am1 to a new map 'm2'.
	m2 := maps.Collect(am1.All())
	am2 := NewAttributeMap(fn, m2)

	for _, k := range slices.Sorted(maps.Keys(m1)) {
		v, ok := am2.Find(k)
		fmt.Printf("Key found=%t, value equal=%t\n", ok, v == m1[k])
	}

	// Output:
	// Key found=true, value equal=true
	// Key found=true, value equal=true
	// Key found=true, value equal=true
}

// This example demonstrates the usage of the AttributeMap. The items of a
// network diagram carry an "address" property; we track the addresses that
// belong to our subnet.
func ExampleAttributeMap() {
	snapshot := func(id ID, addr string) ItemSnapshot {
		return ItemSnapshot{ID: id, Properties: map[string]any{"address": addr}}
	}

	items := []ItemSnapshot{
		snapshot(1, "1.1.1.1"),
		snapshot(2, "1.1.1.2"),
		snapshot(3, "3.3.3.3"),
	}

	// Only addresses within the subnet are considered valid values of the
	// attribute.
	subnet := netip.MustParsePrefix("1.1.1.0/24")
	fn := func(item ItemSnapshot) (netip.Addr, bool) {
		s, _ := item.Properties["address"].(string)
		addr, err := netip.ParseAddr(s)
		return addr, err == nil && subnet.Contains(addr)
	}
	m := NewAttributeMap(fn, nil)

	fmt.Printf("Checking empty AttributeMap\n")
	for _, item := range items {
		attribute, ok := m.Find(item.ID)
		fmt.Printf("item=%d, ok=%t, attribute=%s\n", item.ID, ok, attribute)
	}

	// Updating the AttributeMap is safe for concurrent use.
	var wg sync.WaitGroup
	for _, item := range items {
		wg.Go(func() { m.Update(item) })
	}
	wg.Wait()

	fmt.Printf("\nChecking AttributeMap after updating items\n")
	for _, item := range items {
		attribute, ok := m.Find(item.ID)
		fmt.Printf("item=%d, ok=%t, attribute=%s\n", item.ID, ok, attribute)
	}

	// If an item's attribute changes, we update it in the map to reflect the
	// change.
	m.Update(snapshot(1, "1.1.1.4"))
	attribute, ok := m.Find(1)
	fmt.Printf("\nChecking item after changed attribute\n")
	fmt.Printf("item=%d, ok=%t, attribute=%s\n", 1, ok, attribute)

	// If the attribute value is deemed invalid by the AttributeFunc, the item is
	// removed from the map.
	m.Update(snapshot(1, "4.4.4.4"))
	attribute, ok = m.Find(1)
	fmt.Printf("\nChecking removed item\n")
	fmt.Printf("item=%d, ok=%t, attribute=%s\n", 1, ok, attribute)

	// Output:
	// Checking empty AttributeMap
	// item=1, ok=false, attribute=invalid IP
	// item=2, ok=false, attribute=invalid IP
	// item=3, ok=false, attribute=invalid IP
	//
	// Checking AttributeMap after updating items
	// item=1, ok=true, attribute=1.1.1.1
	// item=2, ok=true, attribute=1.1.1.2
	// item=3, ok=false, attribute=invalid IP
	//
	// Checking item after changed attribute
	// item=1, ok=true, attribute=1.1.1.4
	//
	// Checking removed item
	// item=1, ok=false, attribute=invalid IP
}

// The following example demonstrates the flow of using TrackAttribute function
// to monitor attribute changes on the items of a document graph. This code is
// for illustration purposes only and is not meant to be executed as is.
func ExampleTrackAttribute() {
	// Normally, a component is given a linker that is used to open an interest
	// to the aspect a Publisher sends to. For this example, we assume the outcome
	// of that process is stored at the following variable.
	var itemChanges *pubsub.Subscription

	m := NewAttributeMap(PropertyOf[string]("label"), nil)

	// Start the component process to observe attributes using TrackAttribute.
	component.RunProc(func(l *component.L) {
		l.Fork("track attribute", TrackAttribute(m, itemChanges))
		l.Go("something to do", func(l *component.L) {
			// Retrieve and display the attribute for a given item.
			v, ok := m.Find(1)
			if ok {
				l.Logf("Item %d has label %s", 1, v)
			}
		})
	})
}
