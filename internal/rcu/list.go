// Package rcu implements the read-copy-update snapshot container shared
// between the audio thread (readers) and the user thread (writer) for
// channels, waves and plug-ins. Readers take a Snapshot, which pins an
// immutable slice with no lock and no allocation; writers Clone, mutate the
// copy, and Swap it in — exactly the pattern spec §4.8/§9 asks for,
// realized as an atomic-pointer-to-slice rather than a hand-rolled
// epoch reclaimer, since Go's GC already defers reclamation of the old
// slice until the last reader's Snapshot is dropped.
package rcu

import "sync/atomic"

// Identified is the constraint for elements an ID-bearing List can look up.
type Identified interface {
	ID() string
}

// List is a generic RCU snapshot container for T.
//
// Writers (Clone/Swap/Push/Pop) must be externally serialized by the
// caller, per spec §4.8 ("writers serialize among themselves"); List adds
// no writer-side locking of its own.
type List[T Identified] struct {
	ptr atomic.Pointer[[]T]
}

// New returns an empty List.
func New[T Identified]() *List[T] {
	l := &List[T]{}
	empty := make([]T, 0)
	l.ptr.Store(&empty)
	return l
}

// Snapshot returns the current immutable slice. Safe to call from the
// audio thread: a single atomic load, no copy, no lock.
func (l *List[T]) Snapshot() []T {
	return *l.ptr.Load()
}

// Clone returns a writer-local copy of the current snapshot for mutation.
func (l *List[T]) Clone() []T {
	cur := *l.ptr.Load()
	out := make([]T, len(cur))
	copy(out, cur)
	return out
}

// Swap atomically publishes next as the new snapshot. The previous
// snapshot remains valid for any reader still holding it; it is reclaimed
// by the garbage collector once unreferenced.
func (l *List[T]) Swap(next []T) {
	l.ptr.Store(&next)
}

// Push appends one element via clone+swap.
func (l *List[T]) Push(item T) {
	next := append(l.Clone(), item)
	l.Swap(next)
}

// Pop removes the element with the given ID via clone+swap. Returns the
// removed element and whether it was found.
func (l *List[T]) Pop(id string) (T, bool) {
	cur := l.Clone()
	for i, item := range cur {
		if item.ID() == id {
			removed := item
			cur = append(cur[:i], cur[i+1:]...)
			l.Swap(cur)
			return removed, true
		}
	}
	var zero T
	return zero, false
}

// Get looks up an element by ID in the current snapshot.
func (l *List[T]) Get(id string) (T, bool) {
	for _, item := range l.Snapshot() {
		if item.ID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Replace swaps the element matching item.ID() for item via clone+swap.
// Returns false if no element with that ID was present.
func (l *List[T]) Replace(item T) bool {
	cur := l.Clone()
	for i, existing := range cur {
		if existing.ID() == item.ID() {
			cur[i] = item
			l.Swap(cur)
			return true
		}
	}
	return false
}

// Len reports the number of elements in the current snapshot.
func (l *List[T]) Len() int {
	return len(l.Snapshot())
}
