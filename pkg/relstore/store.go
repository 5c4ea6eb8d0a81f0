// Package relstore provides a normalized, immutable ordered map used as the
// client-side entity cache. Every operation returns a new Store value, so
// consumers can detect changes with a plain identity comparison and skip
// work when nothing they depend on moved.
package relstore

// Store is an ordered collection of items keyed by id. All lists ids in
// insertion order; ByID maps each id in All to its item. The two fields are
// kept in lockstep by the package operations.
type Store[T any] struct {
	All  []string
	ByID map[string]T
}

// New returns an empty store.
func New[T any]() Store[T] {
	return Store[T]{
		All:  []string{},
		ByID: map[string]T{},
	}
}

// FromSlice builds a store from items in slice order, keyed by the id
// function. Later duplicates overwrite earlier ones in ByID but are not
// appended to All a second time.
func FromSlice[T any](items []T, id func(T) string) Store[T] {
	s := Store[T]{
		All:  make([]string, 0, len(items)),
		ByID: make(map[string]T, len(items)),
	}
	for _, item := range items {
		key := id(item)
		if _, ok := s.ByID[key]; !ok {
			s.All = append(s.All, key)
		}
		s.ByID[key] = item
	}
	return s
}

// Add returns a new store with item appended under id. The caller must not
// pass an id already present; that precondition is not checked here, and
// violating it leaves a duplicate entry in All.
func Add[T any](s Store[T], id string, item T) Store[T] {
	all := make([]string, len(s.All), len(s.All)+1)
	copy(all, s.All)
	byID := make(map[string]T, len(s.ByID)+1)
	for k, v := range s.ByID {
		byID[k] = v
	}
	byID[id] = item
	return Store[T]{
		All:  append(all, id),
		ByID: byID,
	}
}

// Update returns a new store with only ByID[id] replaced. All is reused
// as-is so that consumers depending only on ordering see an unchanged value.
// The id must already be present; that precondition is not checked here.
func Update[T any](s Store[T], id string, item T) Store[T] {
	byID := make(map[string]T, len(s.ByID))
	for k, v := range s.ByID {
		byID[k] = v
	}
	byID[id] = item
	return Store[T]{
		All:  s.All,
		ByID: byID,
	}
}

// Delete returns a new store with id removed from both All and ByID.
// Deleting an absent id returns an equivalent store.
func Delete[T any](s Store[T], id string) Store[T] {
	all := make([]string, 0, len(s.All))
	for _, k := range s.All {
		if k != id {
			all = append(all, k)
		}
	}
	byID := make(map[string]T, len(s.ByID))
	for k, v := range s.ByID {
		if k != id {
			byID[k] = v
		}
	}
	return Store[T]{
		All:  all,
		ByID: byID,
	}
}
