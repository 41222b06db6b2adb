package torrent

import (
	"maps"
	"slices"
)

// Set is an unordered collection of info-hashes.
type Set map[string]struct{}

// NewSet returns a [Set] containing the given hashes.
func NewSet(hashes ...string) Set {
	s := make(Set, len(hashes))
	for _, h := range hashes {
		s[h] = struct{}{}
	}

	return s
}

func (s Set) Add(hash string) {
	s[hash] = struct{}{}
}

func (s Set) Has(hash string) bool {
	_, ok := s[hash]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

// Union returns a new set with the members of both sets.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	maps.Copy(out, s)
	maps.Copy(out, other)

	return out
}

// Intersect returns a new set with the members present in both sets.
func (s Set) Intersect(other Set) Set {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}

	out := make(Set, len(small))
	for h := range small {
		if large.Has(h) {
			out[h] = struct{}{}
		}
	}

	return out
}

// Difference returns a new set with the members of s that are not in other.
func (s Set) Difference(other Set) Set {
	out := make(Set, len(s))
	for h := range s {
		if !other.Has(h) {
			out[h] = struct{}{}
		}
	}

	return out
}

// Equal reports whether both sets have the same members.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}

	for h := range s {
		if !other.Has(h) {
			return false
		}
	}

	return true
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}
