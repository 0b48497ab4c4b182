package store

import (
	"context"
	"sync"
)

type selectConfig[T any] struct {
	equal     func(a, b T) bool
	immediate bool
}

// SelectOption tunes Select and Watch.
type SelectOption[T any] func(*selectConfig[T])

// WithEqual replaces Shallow as the change test.
func WithEqual[T any](eq func(a, b T) bool) SelectOption[T] {
	return func(c *selectConfig[T]) { c.equal = eq }
}

// FireImmediately calls the listener once with the current slice on subscribe.
func FireImmediately[T any]() SelectOption[T] {
	return func(c *selectConfig[T]) { c.immediate = true }
}

// Source is anything Select and Watch can observe. *Store satisfies it, as
// do the domain stores that wrap one.
type Source[S any] interface {
	Get() S
	Subscribe(fn Listener[S]) (unsubscribe func())
}

// Select subscribes fn to the slice of s picked by sel. fn runs only when the
// slice differs from the last one it saw.
func Select[S, T any](s Source[S], sel func(S) T, fn func(next, prev T), opts ...SelectOption[T]) (unsubscribe func()) {
	cfg := selectConfig[T]{equal: Shallow[T]}
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		mu   sync.Mutex
		last T
	)
	// Hold mu across subscribe so a concurrent mutation waits for last to be set.
	mu.Lock()
	unsub := s.Subscribe(func(next, _ S) {
		slice := sel(next)
		mu.Lock()
		if cfg.equal(last, slice) {
			mu.Unlock()
			return
		}
		prev := last
		last = slice
		mu.Unlock()
		fn(slice, prev)
	})
	last = sel(s.Get())
	current := last
	mu.Unlock()
	if cfg.immediate {
		fn(current, current)
	}
	return unsub
}

// Watch streams the selected slice: the current value first, then every
// distinct change until ctx is done. The channel holds at most one value, so
// a slow reader skips straight to the latest slice.
func Watch[S, T any](ctx context.Context, s Source[S], sel func(S) T, opts ...SelectOption[T]) <-chan T {
	out := make(chan T, 1)
	var (
		mu     sync.Mutex
		closed bool
	)
	push := func(v T) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case <-out:
		default:
		}
		out <- v
	}

	push(sel(s.Get()))
	unsub := Select(s, sel, func(next, _ T) { push(next) }, opts...)

	go func() {
		<-ctx.Done()
		unsub()
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()
	return out
}
