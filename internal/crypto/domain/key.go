// Package domain defines the core models of the key manager: the loaded Key with
// its idle-timeout state machine, the envelope and container constants, and the
// error taxonomy shared by the crypto packages.
package domain

import (
	"bytes"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Key is a named symmetric secret loaded into memory.
//
// A Key is either Active (secret present) or Timed-Out (secret zeroed). The
// secret, last access time and timeout flag are guarded by a single mutex so a
// reader never observes a secret on a timed-out key or a missing secret on an
// active one.
//
// Identity fields (id) never change after construction. Name, path and content
// digest are metadata and may be updated by save/load operations.
type Key struct {
	id    string
	clock clockwork.Clock

	mu            sync.Mutex
	name          string
	path          string
	contentDigest []byte
	secret        []byte
	lastAccess    time.Time
	timedOut      bool
}

// KeyOption configures optional Key behavior.
type KeyOption func(*Key)

// WithClock sets the clock used for access timestamps. Defaults to the real clock.
func WithClock(clock clockwork.Clock) KeyOption {
	return func(k *Key) {
		k.clock = clock
	}
}

// WithPath records the filesystem location of the key container.
func WithPath(path string) KeyOption {
	return func(k *Key) {
		k.path = path
	}
}

// WithContentDigest records the digest of the persisted container bytes.
func WithContentDigest(digest []byte) KeyOption {
	return func(k *Key) {
		k.contentDigest = bytes.Clone(digest)
	}
}

// NewKey creates an Active key with a freshly generated random id.
// The secret is copied; the caller keeps ownership of the slice it passed.
func NewKey(name string, secret []byte, opts ...KeyOption) *Key {
	return RestoreKey(uuid.NewString(), name, secret, opts...)
}

// RestoreKey creates an Active key with a known id, as read from a container.
func RestoreKey(id, name string, secret []byte, opts ...KeyOption) *Key {
	k := &Key{
		id:     id,
		name:   name,
		secret: bytes.Clone(secret),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(k)
	}
	k.lastAccess = k.clock.Now()
	return k
}

// ID returns the key's unique identifier.
func (k *Key) ID() string {
	return k.id
}

// Name returns the human-readable label.
func (k *Key) Name() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.name
}

// Path returns the container location, or "" for in-memory keys.
func (k *Key) Path() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.path
}

// SetPath records the container location.
func (k *Key) SetPath(path string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.path = path
}

// ContentDigest returns a copy of the digest of the last loaded or saved container bytes.
func (k *Key) ContentDigest() []byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	return bytes.Clone(k.contentDigest)
}

// SetContentDigest records the digest of the persisted container bytes.
func (k *Key) SetContentDigest(digest []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.contentDigest = bytes.Clone(digest)
}

// LastAccess returns the time of the last legitimate use of the secret.
func (k *Key) LastAccess() time.Time {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.lastAccess
}

// IsTimedOut reports whether the secret has been discarded.
func (k *Key) IsTimedOut() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.timedOut
}

// Secret returns a copy of the secret and refreshes the last access time.
// Callers should Zero the copy once done with it.
//
// Returns ErrKeyTimedOut if the key is Timed-Out.
func (k *Key) Secret() ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.timedOut {
		return nil, ErrKeyTimedOut
	}
	k.lastAccess = k.clock.Now()
	return bytes.Clone(k.secret), nil
}

// SetSecret replaces the secret, reactivating the key if it was Timed-Out.
// The previous secret is zeroed and the new one is copied.
func (k *Key) SetSecret(secret []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()

	Zero(k.secret)
	k.secret = bytes.Clone(secret)
	k.timedOut = false
	k.lastAccess = k.clock.Now()
}

// Touch refreshes the last access time without exposing the secret.
// Returns ErrKeyTimedOut if the key is Timed-Out.
func (k *Key) Touch() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.timedOut {
		return ErrKeyTimedOut
	}
	k.lastAccess = k.clock.Now()
	return nil
}

// ExpireIfIdle moves an Active key to Timed-Out when now - last access exceeds
// threshold. The check and the transition happen under one lock, so a concurrent
// Secret call either wins and refreshes the key or observes the timeout.
//
// Returns true only when this call performed the transition.
func (k *Key) ExpireIfIdle(now time.Time, threshold time.Duration) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.timedOut || now.Sub(k.lastAccess) <= threshold {
		return false
	}
	k.expireLocked()
	return true
}

// Expire forces the key into Timed-Out, discarding the secret.
func (k *Key) Expire() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.expireLocked()
}

func (k *Key) expireLocked() {
	Zero(k.secret)
	k.secret = nil
	k.timedOut = true
}

// Restore reactivates the key with material read back from its container.
// Used by reload so that subscribers holding this instance see it become Active.
func (k *Key) Restore(name string, secret []byte, path string, digest []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()

	Zero(k.secret)
	k.name = name
	k.secret = bytes.Clone(secret)
	k.path = path
	k.contentDigest = bytes.Clone(digest)
	k.timedOut = false
	k.lastAccess = k.clock.Now()
}

// SameID reports whether two keys share an identity. Nil keys match only each other.
func SameID(a, b *Key) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.id == b.id
}
