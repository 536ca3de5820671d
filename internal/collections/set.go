// Package collections provides small generic containers shared by the analyzer.
package collections

import "maps"

// Set is an unordered collection of unique comparable values.
type Set[T comparable] map[T]struct{}

// SetOf builds a set from the given values.
func SetOf[T comparable](values ...T) Set[T] {
	s := make(Set[T], len(values))
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// ToSet builds a set from a slice.
func ToSet[T comparable](values []T) Set[T] {
	return SetOf(values...)
}

// Add inserts v into the set.
func (s Set[T]) Add(v T) { s[v] = struct{}{} }

// Contains reports whether v is a member of the set.
func (s Set[T]) Contains(v T) bool {
	_, ok := s[v]
	return ok
}

// Join adds every element of other to s.
func (s Set[T]) Join(other Set[T]) {
	maps.Copy(s, other)
}

// Intersect returns a new set with the elements present in both s and other.
func (s Set[T]) Intersect(other Set[T]) Set[T] {
	out := Set[T]{}
	for v := range s {
		if other.Contains(v) {
			out.Add(v)
		}
	}
	return out
}

// Diff returns a new set with the elements of s that are not in other.
func (s Set[T]) Diff(other Set[T]) Set[T] {
	out := Set[T]{}
	for v := range s {
		if !other.Contains(v) {
			out.Add(v)
		}
	}
	return out
}

// Values returns the elements of the set in unspecified order.
// Returns nil for an empty set.
func (s Set[T]) Values() []T {
	if len(s) == 0 {
		return nil
	}
	out := make([]T, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	return out
}
