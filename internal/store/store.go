// Package store provides the reactive state container every domain store is
// built on.
//
// A Store holds one immutable snapshot of S. Mutations replace the snapshot
// through Set and synchronously notify subscribers with the new and previous
// snapshot. Consumers that only care about part of the state use Select or
// Watch, which fire only when the selected slice changes.
//
// Snapshots are shared between goroutines; callers must treat slices and maps
// reachable from S as read-only and produce new ones on update.
package store

import (
	"sync"
)

// Listener receives the snapshot after a mutation and the one it replaced.
type Listener[S any] func(next, prev S)

type subscription[S any] struct {
	id uint64
	fn Listener[S]
}

// Store is a single-writer, many-reader state container.
type Store[S any] struct {
	mu      sync.RWMutex
	state   S
	initial S
	version uint64

	subsMu sync.Mutex
	subs   []subscription[S] // copy-on-write
	nextID uint64
}

// New creates a store whose initial snapshot is init().
func New[S any](init func() S) *Store[S] {
	s := init()
	return &Store[S]{state: s, initial: s}
}

// Get returns the current snapshot.
func (s *Store[S]) Get() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Version increases by one on every mutation.
func (s *Store[S]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Initial returns the snapshot the store was created with.
func (s *Store[S]) Initial() S { return s.initial }

// Set applies update to the current snapshot and publishes the result.
// update runs under the store lock and must not call back into the store.
func (s *Store[S]) Set(update func(S) S) {
	s.mu.Lock()
	prev := s.state
	next := update(prev)
	s.state = next
	s.version++
	s.mu.Unlock()

	s.notify(next, prev)
}

// Replace swaps in next wholesale.
func (s *Store[S]) Replace(next S) {
	s.Set(func(S) S { return next })
}

// Reset restores the initial snapshot.
func (s *Store[S]) Reset() {
	s.Replace(s.initial)
}

// Subscribe registers fn for every mutation. The returned func removes it and
// is safe to call more than once.
func (s *Store[S]) Subscribe(fn Listener[S]) (unsubscribe func()) {
	s.subsMu.Lock()
	s.nextID++
	id := s.nextID
	subs := make([]subscription[S], len(s.subs), len(s.subs)+1)
	copy(subs, s.subs)
	s.subs = append(subs, subscription[S]{id: id, fn: fn})
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(id) })
	}
}

func (s *Store[S]) unsubscribe(id uint64) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	subs := make([]subscription[S], 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.id != id {
			subs = append(subs, sub)
		}
	}
	s.subs = subs
}

func (s *Store[S]) notify(next, prev S) {
	s.subsMu.Lock()
	subs := s.subs
	s.subsMu.Unlock()
	for _, sub := range subs {
		sub.fn(next, prev)
	}
}
