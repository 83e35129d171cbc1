// Package service implements the cryptographic primitives of the key manager:
// the AES-256-CBC envelope codec and the password-protected key container codec.
package service

import (
	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
)

// EnvelopeCodec encrypts arbitrary buffers into self-describing envelopes.
type EnvelopeCodec interface {
	// Encrypt wraps plaintext into an envelope under key.
	Encrypt(key, plaintext []byte) ([]byte, error)

	// Decrypt recovers the plaintext of an envelope. Input that does not start with
	// the envelope marker yields an empty result and no error.
	Decrypt(key, envelope []byte) ([]byte, error)

	// IsEnvelope reports whether data starts with the envelope marker.
	IsEnvelope(data []byte) bool
}

// ContainerCodec converts key containers to and from their on-disk bytes.
type ContainerCodec interface {
	// Seal serializes c. A nil protection stores the secret in the clear.
	Seal(c cryptoDomain.Container, p *Protection) ([]byte, error)

	// Open parses container bytes. Protection must be non-nil for password-protected
	// containers; its KDF field is ignored because the container records its own.
	Open(raw []byte, p *Protection) (cryptoDomain.Container, error)
}

// Protection carries the password used for a container.
type Protection struct {
	Password string
	// KDF selects inner key derivation for new containers. Empty means KDFLegacy.
	KDF cryptoDomain.KDF
}
