package docgraph

// Selection is an ordered set of elements ordered by how recently they were
// touched, most recent first. It does not depend on a graph; elements are
// usually items or ids.
//
// The zero value is an empty selection ready to use.
type Selection[T comparable] struct {
	elems []T
}

// Add moves each given element to the front of the selection, inserting it if
// absent. The last element given becomes LastSelected.
func (s *Selection[T]) Add(elems ...T) {
	for _, e := range elems {
		s.remove(e)
		s.elems = append([]T{e}, s.elems...)
	}
}

// Remove drops the element if present.
func (s *Selection[T]) Remove(e T) {
	s.remove(e)
}

// Toggle removes the element if present, else adds it to the front.
func (s *Selection[T]) Toggle(e T) {
	if s.remove(e) {
		return
	}
	s.Add(e)
}

// Set clears the selection, then adds the given elements in order.
func (s *Selection[T]) Set(elems ...T) {
	s.elems = nil
	s.Add(elems...)
}

// Select is the pointer-gesture form of selecting: with extend it toggles e;
// without it, it moves an already-selected e to the front or, if e is not
// selected, makes e the only selected element.
func (s *Selection[T]) Select(e T, extend bool) {
	switch {
	case extend:
		s.Toggle(e)
	case s.Contains(e):
		s.Add(e)
	default:
		s.Set(e)
	}
}

// Contents returns the elements, most recently touched first.
func (s *Selection[T]) Contents() []T {
	out := make([]T, len(s.elems))
	copy(out, s.elems)
	return out
}

// LastSelected returns the most recently touched element; ok is false when the
// selection is empty.
func (s *Selection[T]) LastSelected() (e T, ok bool) {
	if len(s.elems) == 0 {
		return e, false
	}
	return s.elems[0], true
}

// IsEmpty reports whether nothing is selected.
func (s *Selection[T]) IsEmpty() bool { return len(s.elems) == 0 }

// Contains reports whether e is selected.
func (s *Selection[T]) Contains(e T) bool {
	return s.index(e) >= 0
}

func (s *Selection[T]) index(e T) int {
	for i, x := range s.elems {
		if x == e {
			return i
		}
	}
	return -1
}

func (s *Selection[T]) remove(e T) bool {
	i := s.index(e)
	if i < 0 {
		return false
	}
	s.elems = append(s.elems[:i:i], s.elems[i+1:]...)
	return true
}
