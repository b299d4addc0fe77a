// Package sets provides a small value-set type used for source and group
// bookkeeping. A Set is a bare map, so callers can range over it directly.
package sets

type Set[T comparable] map[T]struct{}

func New[T comparable](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, item := range items {
		s.Add(item)
	}
	return s
}

func NewSized[T comparable](size int) Set[T] {
	return make(Set[T], size)
}

func (s Set[T]) Add(item T) {
	s[item] = struct{}{}
}

func (s Set[T]) Remove(item T) {
	delete(s, item)
}

func (s Set[T]) Contains(item T) bool {
	_, ok := s[item]
	return ok
}

func (s Set[T]) GetSlice() []T {
	slice := make([]T, 0, len(s))
	for item := range s {
		slice = append(slice, item)
	}
	return slice
}

// Union returns a new set with the elements of both s and other.
func (s Set[T]) Union(other Set[T]) Set[T] {
	union := NewSized[T](len(s) + len(other))
	for item := range s {
		union.Add(item)
	}
	for item := range other {
		union.Add(item)
	}
	return union
}

// Diff returns a new set with the elements of s that are not in other.
func (s Set[T]) Diff(other Set[T]) Set[T] {
	diff := New[T]()
	for item := range s {
		if !other.Contains(item) {
			diff.Add(item)
		}
	}
	return diff
}

func (s Set[T]) Equal(other Set[T]) bool {
	if len(s) != len(other) {
		return false
	}
	for item := range s {
		if !other.Contains(item) {
			return false
		}
	}
	return true
}

func (s Set[T]) Copy() Set[T] {
	c := NewSized[T](len(s))
	for item := range s {
		c.Add(item)
	}
	return c
}

func (s Set[T]) IsEmpty() bool {
	return len(s) == 0
}
