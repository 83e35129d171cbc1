// Package registry tracks the keys loaded into memory and which one is current.
//
// Mutations are serialized under a lock. Each mutation queues its events under
// that lock and the queue is delivered outside it, one event at a time, so every
// subscriber sees events in mutation order. The goroutine that finds the queue
// idle delivers it, including events queued meanwhile by other goroutines; a
// mutation made while another goroutine is delivering returns without waiting.
// Handlers may call back into the registry, and their own events are delivered
// after the event being handled.
package registry

import (
	"fmt"
	"sync"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
	"github.com/allisson/keymanager/internal/errors"
	"github.com/allisson/keymanager/internal/events"
)

var (
	// ErrKeyAlreadyLoaded indicates a key with the same id is already registered.
	ErrKeyAlreadyLoaded = errors.Wrap(errors.ErrConflict, "key already loaded")

	// ErrKeyNotFound indicates an index or key that is not in the registry.
	ErrKeyNotFound = errors.Wrap(errors.ErrNotFound, "key not found")
)

// CurrentChange describes a change of the current key. Either side may be nil.
type CurrentChange struct {
	Previous *cryptoDomain.Key
	Current  *cryptoDomain.Key
}

// Registry is an ordered collection of loaded keys with one optional current key.
// The zero value is not usable; call New.
type Registry struct {
	mu      sync.RWMutex
	keys    []*cryptoDomain.Key
	current *cryptoDomain.Key

	// pending and draining are guarded by mu.
	pending  []func()
	draining bool

	currentChanged events.Topic[CurrentChange]
	keyAdded       events.Topic[*cryptoDomain.Key]
	keyRemoved     events.Topic[*cryptoDomain.Key]
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{}
}

// OnCurrentChanged subscribes fn to current key changes.
func (r *Registry) OnCurrentChanged(fn func(CurrentChange)) (unsubscribe func()) {
	return r.currentChanged.Subscribe(fn)
}

// OnKeyAdded subscribes fn to key additions.
func (r *Registry) OnKeyAdded(fn func(*cryptoDomain.Key)) (unsubscribe func()) {
	return r.keyAdded.Subscribe(fn)
}

// OnKeyRemoved subscribes fn to key removals.
func (r *Registry) OnKeyRemoved(fn func(*cryptoDomain.Key)) (unsubscribe func()) {
	return r.keyRemoved.Subscribe(fn)
}

// Add appends key. A key whose id is already registered is rejected with
// ErrKeyAlreadyLoaded.
func (r *Registry) Add(key *cryptoDomain.Key) error {
	if key == nil {
		return fmt.Errorf("%w: nil key", errors.ErrInvalidInput)
	}

	r.mu.Lock()
	if r.indexOfLocked(key.ID()) >= 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrKeyAlreadyLoaded, key.ID())
	}
	r.keys = append(r.keys, key)
	r.unlockAndDeliver(func() { r.keyAdded.Publish(key) })
	return nil
}

// Remove deletes the key at index. Removing the current key clears the selection
// and publishes the current change before the removal.
func (r *Registry) Remove(index int) (*cryptoDomain.Key, error) {
	r.mu.Lock()
	if index < 0 || index >= len(r.keys) {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: index %d", ErrKeyNotFound, index)
	}
	return r.removeLocked(index), nil
}

// RemoveByID deletes the key with id. See Remove.
func (r *Registry) RemoveByID(id string) (*cryptoDomain.Key, error) {
	r.mu.Lock()
	index := r.indexOfLocked(id)
	if index < 0 {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, id)
	}
	return r.removeLocked(index), nil
}

// removeLocked must be called with the write lock held and releases it.
func (r *Registry) removeLocked(index int) *cryptoDomain.Key {
	key := r.keys[index]
	r.keys = append(r.keys[:index:index], r.keys[index+1:]...)

	var deliveries []func()
	if cryptoDomain.SameID(r.current, key) {
		previous := r.current
		r.current = nil
		deliveries = append(deliveries, func() {
			r.currentChanged.Publish(CurrentChange{Previous: previous})
		})
	}
	deliveries = append(deliveries, func() { r.keyRemoved.Publish(key) })

	r.unlockAndDeliver(deliveries...)
	return key
}

// SetCurrent selects key as current; nil clears the selection. The key must be
// registered. Selecting the key that already is current, compared by id, does
// nothing and publishes nothing.
//
// The registered instance becomes current, so callers holding a different
// instance with the same id still see the registry's copy through Current.
func (r *Registry) SetCurrent(key *cryptoDomain.Key) error {
	r.mu.Lock()
	var next *cryptoDomain.Key
	if key != nil {
		index := r.indexOfLocked(key.ID())
		if index < 0 {
			r.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrKeyNotFound, key.ID())
		}
		next = r.keys[index]
	}

	if cryptoDomain.SameID(r.current, next) {
		r.mu.Unlock()
		return nil
	}
	previous := r.current
	r.current = next
	r.unlockAndDeliver(func() {
		r.currentChanged.Publish(CurrentChange{Previous: previous, Current: next})
	})
	return nil
}

// Sweep calls visit for every registered key while holding the registry lock, so
// no mutation interleaves with the scan, and returns the keys visit accepted.
// Each accepted key is then passed to matched, followed by one call to done with
// the key that was current during the scan. Both are delivered in order with the
// registry's own events: a key removed after the scan is reported to matched
// before its removal event.
//
// visit must not call back into the registry.
func (r *Registry) Sweep(
	visit func(*cryptoDomain.Key) bool,
	matched func(*cryptoDomain.Key),
	done func(current *cryptoDomain.Key),
) []*cryptoDomain.Key {
	r.mu.Lock()
	var accepted []*cryptoDomain.Key
	deliveries := make([]func(), 0, len(r.keys)+1)
	for _, key := range r.keys {
		if !visit(key) {
			continue
		}
		accepted = append(accepted, key)
		deliveries = append(deliveries, func() { matched(key) })
	}
	current := r.current
	deliveries = append(deliveries, func() { done(current) })

	r.unlockAndDeliver(deliveries...)
	return accepted
}

// unlockAndDeliver queues deliveries, releases the write lock, and drains the
// queue unless another goroutine already is draining it.
func (r *Registry) unlockAndDeliver(deliveries ...func()) {
	r.pending = append(r.pending, deliveries...)
	if r.draining {
		r.mu.Unlock()
		return
	}
	r.draining = true
	// A panicking handler drops whatever is still queued.
	defer func() {
		r.draining = false
		r.pending = nil
		r.mu.Unlock()
	}()

	for len(r.pending) > 0 {
		next := r.pending[0]
		r.pending[0] = nil
		r.pending = r.pending[1:]
		r.deliver(next)
	}
}

// deliver runs fn without the lock and always returns with the lock held.
func (r *Registry) deliver(fn func()) {
	r.mu.Unlock()
	defer r.mu.Lock()
	fn()
}

// Current returns the current key or nil.
func (r *Registry) Current() *cryptoDomain.Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// IsCurrent reports whether key has the id of the current key.
func (r *Registry) IsCurrent(key *cryptoDomain.Key) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return key != nil && cryptoDomain.SameID(r.current, key)
}

// Keys returns a snapshot of the registered keys in insertion order.
func (r *Registry) Keys() []*cryptoDomain.Key {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*cryptoDomain.Key, len(r.keys))
	copy(out, r.keys)
	return out
}

// Get returns the key with id.
func (r *Registry) Get(id string) (*cryptoDomain.Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index := r.indexOfLocked(id)
	if index < 0 {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, id)
	}
	return r.keys[index], nil
}

// Len returns the number of registered keys.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

func (r *Registry) indexOfLocked(id string) int {
	for i, k := range r.keys {
		if k.ID() == id {
			return i
		}
	}
	return -1
}
