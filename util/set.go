// Package util holds small helpers shared by the database and the command line
// tool.
package util

import (
	"sort"
)

// SortedSet is a set of strings kept in lexicographic order. It's a plain
// slice underneath, so it encodes as a list.
type SortedSet []string

// NewSortedSet returns a set holding the given items.
func NewSortedSet(items ...string) *SortedSet {
	s := make(SortedSet, 0, len(items))
	s.Add(items...)
	return &s
}

// Find where item is, or where it would go.
func (s *SortedSet) search(item string) (int, bool) {
	i := sort.SearchStrings(*s, item)
	return i, i < len(*s) && (*s)[i] == item
}

// Add inserts each item not already present.
func (s *SortedSet) Add(items ...string) {
	for _, item := range items {
		i, found := s.search(item)
		if found {
			continue
		}
		*s = append(*s, "")
		copy((*s)[i+1:], (*s)[i:])
		(*s)[i] = item
	}
}

// Remove deletes each item that's present.
func (s *SortedSet) Remove(items ...string) {
	for _, item := range items {
		if i, found := s.search(item); found {
			*s = append((*s)[:i], (*s)[i+1:]...)
		}
	}
}

// Has reports whether item is in the set.
func (s *SortedSet) Has(item string) bool {
	_, found := s.search(item)
	return found
}

// Values returns a sorted copy of the items.
func (s *SortedSet) Values() []string {
	values := make([]string, len(*s))
	copy(values, *s)
	return values
}

func (s *SortedSet) Len() int {
	return len(*s)
}
