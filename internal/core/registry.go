package core

import (
	"fmt"
	"sort"

	"useeio/pkg/domain"
)

// Registry is an ordered, index-addressable list of sectors, flows or
// indicators. Indices are dense and 0-based; ids are unique.
type Registry[T domain.Indexed] struct {
	items []T
	byID  map[string]int
}

// NewRegistry validates and indexes items. Input order does not matter;
// items are ordered by their declared index.
func NewRegistry[T domain.Indexed](items []T) (*Registry[T], error) {
	sorted := append([]T(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position() < sorted[j].Position() })
	byID := make(map[string]int, len(sorted))
	for i, item := range sorted {
		if item.Position() != i {
			return nil, fmt.Errorf("index %d of %q breaks dense ordering at position %d", item.Position(), item.Key(), i)
		}
		if item.Key() == "" {
			return nil, fmt.Errorf("empty id at index %d", i)
		}
		if _, dup := byID[item.Key()]; dup {
			return nil, fmt.Errorf("duplicate id %q", item.Key())
		}
		byID[item.Key()] = i
	}
	return &Registry[T]{items: sorted, byID: byID}, nil
}

// Len returns the number of entries.
func (r *Registry[T]) Len() int { return len(r.items) }

// List returns a copy of the entries in index order.
func (r *Registry[T]) List() []T { return append([]T(nil), r.items...) }

// Get looks an entry up by id.
func (r *Registry[T]) Get(id string) (T, bool) {
	i, ok := r.byID[id]
	if !ok {
		var zero T
		return zero, false
	}
	return r.items[i], true
}

// IndexOf returns the index of id.
func (r *Registry[T]) IndexOf(id string) (int, bool) {
	i, ok := r.byID[id]
	return i, ok
}

// At returns the entry at index i.
func (r *Registry[T]) At(i int) T { return r.items[i] }

// IDs returns the ids in index order.
func (r *Registry[T]) IDs() []string {
	out := make([]string, len(r.items))
	for i, item := range r.items {
		out[i] = item.Key()
	}
	return out
}
