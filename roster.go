package main

// roster keeps entities in insertion order keyed by a stable id.
// Removal is by id; callers iterate a snapshot from All and apply
// removals afterwards.
type roster[T any] struct {
	order []int
	items map[int]*T
}

func newRoster[T any]() roster[T] {
	return roster[T]{items: make(map[int]*T)}
}

// Add appends v under id. Duplicate ids are ignored.
func (r *roster[T]) Add(id int, v *T) {
	if _, ok := r.items[id]; ok {
		return
	}
	r.order = append(r.order, id)
	r.items[id] = v
}

// Get returns the entity with id, or nil
func (r *roster[T]) Get(id int) *T {
	return r.items[id]
}

// RemoveAll erases every id in ids
func (r *roster[T]) RemoveAll(ids map[int]bool) {
	if len(ids) == 0 {
		return
	}
	kept := r.order[:0]
	for _, id := range r.order {
		if ids[id] {
			delete(r.items, id)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}

// All returns the entities in insertion order. The slice is a fresh copy.
func (r *roster[T]) All() []*T {
	out := make([]*T, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out
}

func (r *roster[T]) Len() int {
	return len(r.order)
}

// Clear empties the roster
func (r *roster[T]) Clear() {
	r.order = nil
	r.items = make(map[int]*T)
}
