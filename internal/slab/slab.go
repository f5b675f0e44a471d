// Package slab implements the bounded, sparse task-id table the dispatcher
// uses to park a suspended worker and later hand it back on Resume.
package slab

import "github.com/pkg/errors"

// ErrFull is returned by Insert when the slab has reached its capacity.
var ErrFull = errors.New("slab: capacity exceeded")

// Slab is a sparse uint32 task_id -> V map with a fixed capacity. It is not
// safe for concurrent use; callers (the per-connection dispatcher) are
// already single-threaded by construction.
type Slab[V any] struct {
	capacity int
	entries  map[uint32]V
	next     uint32
}

// New returns an empty Slab bounded at capacity entries.
func New[V any](capacity int) *Slab[V] {
	return &Slab[V]{
		capacity: capacity,
		entries:  make(map[uint32]V, capacity),
	}
}

// Len returns the number of parked entries.
func (s *Slab[V]) Len() int {
	return len(s.entries)
}

// Insert parks v under a freshly minted task id, returning ErrFull if the
// slab is already at capacity. Task ids are never reused while their entry
// is live, only once the slot that held them has been freed by Remove.
func (s *Slab[V]) Insert(v V) (uint32, error) {
	if len(s.entries) >= s.capacity {
		return 0, ErrFull
	}
	for {
		id := s.next
		s.next++
		if _, taken := s.entries[id]; !taken {
			s.entries[id] = v
			return id, nil
		}
	}
}

// Remove takes the entry for id out of the slab, reporting whether it was
// present. The zero value of V is returned on a miss.
func (s *Slab[V]) Remove(id uint32) (V, bool) {
	v, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	return v, ok
}

// Drain removes every parked entry, invoking fn on each. Used when a
// connection ends: connection loss drops all parked workers without
// further notification.
func (s *Slab[V]) Drain(fn func(V)) {
	for id, v := range s.entries {
		delete(s.entries, id)
		if fn != nil {
			fn(v)
		}
	}
}
