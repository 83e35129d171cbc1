package domain

import (
	"github.com/allisson/keymanager/internal/errors"
)

// Key management error definitions.
//
// These wrap the categories in internal/errors so callers can test either the
// specific condition or its category.
var (
	// ErrInvalidKeySize indicates key material is not a valid AES key size.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrInvalidPassword indicates a password is empty, too long, or does not match the
	// container's verification tag. The message never says which of these happened.
	ErrInvalidPassword = errors.Wrap(errors.ErrInvalidInput, "invalid password")

	// ErrMalformedEnvelope indicates an envelope whose header or ciphertext cannot be valid.
	ErrMalformedEnvelope = errors.Wrap(errors.ErrInvalidInput, "malformed envelope")

	// ErrMalformedContainer indicates a key container that cannot be parsed or misses
	// required entries.
	ErrMalformedContainer = errors.Wrap(errors.ErrInvalidInput, "malformed key container")

	// ErrKeyTimedOut indicates the secret was discarded after the key sat idle too long.
	// The key must be reloaded before use.
	ErrKeyTimedOut = errors.Wrap(errors.ErrUnauthorized, "key timed out")

	// ErrKeyFileExists indicates a new key would overwrite an existing file.
	ErrKeyFileExists = errors.Wrap(errors.ErrConflict, "key file already exists")

	// ErrKeyIDMismatch indicates a reload found a different key at the original path.
	ErrKeyIDMismatch = errors.Wrap(errors.ErrConflict, "key id mismatch")

	// ErrInvalidKeyName indicates an empty or overly long key name.
	ErrInvalidKeyName = errors.Wrap(errors.ErrInvalidInput, "invalid key name")

	// ErrKeyPathNotSet indicates an operation needs a key that was loaded from or saved to disk.
	ErrKeyPathNotSet = errors.Wrap(errors.ErrInvalidInput, "key path not set")
)
