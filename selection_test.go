package docgraph

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSelection(t *testing.T) {
	tests := []struct {
		name string
		do   func(s *Selection[string])
		want []string
	}{
		{
			name: "add",
			do:   func(s *Selection[string]) { s.Add("a", "b", "c") },
			want: []string{"c", "b", "a"},
		},
		{
			name: "add-moves-to-front",
			do:   func(s *Selection[string]) { s.Add("a", "b", "c", "a") },
			want: []string{"a", "c", "b"},
		},
		{
			name: "remove",
			do: func(s *Selection[string]) {
				s.Add("a", "b")
				s.Remove("a")
				s.Remove("missing")
			},
			want: []string{"b"},
		},
		{
			name: "toggle",
			do: func(s *Selection[string]) {
				s.Add("a", "b")
				s.Toggle("a")
				s.Toggle("c")
			},
			want: []string{"c", "b"},
		},
		{
			name: "set",
			do: func(s *Selection[string]) {
				s.Add("a", "b")
				s.Set("c", "d")
			},
			want: []string{"d", "c"},
		},
		{
			name: "select-replaces",
			do: func(s *Selection[string]) {
				s.Add("a", "b")
				s.Select("c", false)
			},
			want: []string{"c"},
		},
		{
			name: "select-selected-moves-to-front",
			do: func(s *Selection[string]) {
				s.Add("a", "b", "c")
				s.Select("a", false)
			},
			want: []string{"a", "c", "b"},
		},
		{
			name: "select-extend-toggles",
			do: func(s *Selection[string]) {
				s.Add("a", "b")
				s.Select("a", true)
				s.Select("c", true)
			},
			want: []string{"c", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Selection[string]
			tt.do(&s)
			if diff := cmp.Diff(tt.want, s.Contents()); diff != "" {
				t.Errorf("Contents() mismatch (-want +got):\n%s", diff)
			}
			last, ok := s.LastSelected()
			if !ok || last != tt.want[0] {
				t.Errorf("LastSelected() = %q, %v; want %q, true", last, ok, tt.want[0])
			}
			for _, e := range tt.want {
				if !s.Contains(e) {
					t.Errorf("Contains(%q) = false, want true", e)
				}
			}
		})
	}
}

func TestSelection_empty(t *testing.T) {
	var s Selection[ID]
	if !s.IsEmpty() {
		t.Errorf("IsEmpty() = false for the zero value")
	}
	if _, ok := s.LastSelected(); ok {
		t.Errorf("LastSelected() ok = true for the zero value")
	}

	s.Toggle(1)
	s.Toggle(1)
	if !s.IsEmpty() {
		t.Errorf("IsEmpty() = false after toggling an element twice: %v", s.Contents())
	}
}

// Contents returns a copy; editing it does not edit the selection.
func TestSelection_Contents(t *testing.T) {
	var s Selection[ID]
	s.Add(1, 2)
	got := s.Contents()
	got[0] = 42
	if s.Contains(42) {
		t.Errorf("editing Contents() edited the selection")
	}
}

func ExampleSelection_Select() {
	var s Selection[string]
	s.Select("shape", false)
	s.Select("label", true)
	fmt.Println(s.Contents())
	s.Select("shape", false)
	fmt.Println(s.Contents())
	s.Select("arrow", false)
	fmt.Println(s.Contents())
	// Output:
	// [label shape]
	// [shape label]
	// [arrow]
}
