// Package limitedset provides a fixed-capacity set that evicts in insertion order.
package limitedset

import (
	"fmt"
	"slices"

	"github.com/pauljones0/beatmaplinker/internal/models"
)

// Set is a set with a maximum size. Once full, adding a new element evicts the
// oldest inserted one. Re-adding an element already present does not refresh
// its age (FIFO, not LRU).
//
// A Set is not safe for concurrent use; each scan loop owns its own.
type Set[T comparable] struct {
	capacity int
	members  map[T]struct{}
	queue    []T
}

// New returns an empty Set holding at most capacity elements. A capacity of
// zero or less means unbounded. Seed elements are added in order, so only the
// last capacity distinct seeds survive.
func New[T comparable](capacity int, seed ...T) *Set[T] {
	s := &Set[T]{
		capacity: capacity,
		members:  make(map[T]struct{}),
	}
	for _, x := range seed {
		s.Add(x)
	}
	return s
}

func (s *Set[T]) Contains(x T) bool {
	_, ok := s.members[x]
	return ok
}

// Add inserts x, evicting the oldest element first when the set is full.
// It is a no-op if x is already present.
func (s *Set[T]) Add(x T) {
	if s.Contains(x) {
		return
	}
	if s.capacity > 0 && len(s.members) == s.capacity {
		oldest := s.queue[0]
		var zero T
		s.queue[0] = zero
		s.queue = s.queue[1:]
		delete(s.members, oldest)
	}
	s.members[x] = struct{}{}
	s.queue = append(s.queue, x)
}

// Remove deletes x. It returns models.ErrNotFound if x is absent.
func (s *Set[T]) Remove(x T) error {
	if !s.Contains(x) {
		return fmt.Errorf("remove %v: %w", x, models.ErrNotFound)
	}
	delete(s.members, x)
	if i := slices.Index(s.queue, x); i >= 0 {
		s.queue = slices.Delete(s.queue, i, i+1)
	}
	return nil
}

// Discard deletes x if present.
func (s *Set[T]) Discard(x T) {
	_ = s.Remove(x)
}

// Pop removes and returns the most recently inserted element.
func (s *Set[T]) Pop() (T, bool) {
	var zero T
	if len(s.queue) == 0 {
		return zero, false
	}
	last := s.queue[len(s.queue)-1]
	s.queue = s.queue[:len(s.queue)-1]
	delete(s.members, last)
	return last, true
}

func (s *Set[T]) Clear() {
	clear(s.members)
	s.queue = nil
}

func (s *Set[T]) Len() int {
	return len(s.members)
}

func (s *Set[T]) Cap() int {
	return s.capacity
}

// Items returns the elements oldest first.
func (s *Set[T]) Items() []T {
	return slices.Clone(s.queue)
}
