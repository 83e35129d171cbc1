// Package events provides a minimal synchronous publish/subscribe primitive.
package events

import (
	"sync"
	"sync/atomic"
)

// Topic delivers values of type T to its subscribers, in subscription order, on
// the publishing goroutine.
//
// The subscriber list is copy-on-write: Publish iterates an immutable snapshot, so
// handlers may subscribe or unsubscribe (including themselves) while being called.
// Changes take effect from the next Publish.
type Topic[T any] struct {
	mu       sync.Mutex
	nextID   uint64
	handlers atomic.Pointer[[]subscription[T]]
}

type subscription[T any] struct {
	id uint64
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it. The returned
// function is idempotent.
func (t *Topic[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	id := t.nextID

	current := t.snapshot()
	next := make([]subscription[T], len(current), len(current)+1)
	copy(next, current)
	next = append(next, subscription[T]{id: id, fn: fn})
	t.handlers.Store(&next)

	var once sync.Once
	return func() {
		once.Do(func() {
			t.remove(id)
		})
	}
}

func (t *Topic[T]) remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := t.snapshot()
	next := make([]subscription[T], 0, len(current))
	for _, s := range current {
		if s.id != id {
			next = append(next, s)
		}
	}
	t.handlers.Store(&next)
}

// Publish calls every current subscriber with v.
func (t *Topic[T]) Publish(v T) {
	for _, s := range t.snapshot() {
		s.fn(v)
	}
}

func (t *Topic[T]) snapshot() []subscription[T] {
	if p := t.handlers.Load(); p != nil {
		return *p
	}
	return nil
}
