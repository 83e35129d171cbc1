package domain

import "crypto/aes"

// Envelope wire format.
//
// Every envelope starts with a fixed 160-byte header:
//
//	[0:16)    Marker
//	[16:144)  big-endian plaintext length
//	[144:160) CBC initialization vector
//	[160:)    PKCS#7 padded AES-256-CBC ciphertext
//
// The length field is deliberately oversized so the header offsets never need to
// change when larger payloads are supported.
const (
	// Marker identifies the envelope format and its version.
	Marker = "AES-V-0000000001"

	// MarkerSize is the byte length of Marker.
	MarkerSize = len(Marker)

	// LengthFieldSize is the byte length of the big-endian plaintext length field.
	LengthFieldSize = 128

	// IVSize is the byte length of the CBC initialization vector (one AES block).
	IVSize = aes.BlockSize

	// HeaderSize is the total envelope header length.
	HeaderSize = MarkerSize + LengthFieldSize + IVSize
)

// KeySize is the length in bytes of every secret and derived key (AES-256).
const KeySize = 32

// MaxPasswordLength is the largest accepted password, measured in UTF-8 bytes.
// Passwords are padded up to KeySize, so anything longer cannot be represented.
const MaxPasswordLength = KeySize

// Container archive entry names.
const (
	EntryID       = "id"
	EntryName     = "name"
	EntryKey      = "key"
	EntryPassword = "passwd"
	EntryKDF      = "kdf"
	EntrySalt     = "salt"
)

// KDF selects how a container password becomes inner key material.
type KDF string

const (
	// KDFLegacy pads the UTF-8 password to KeySize with PKCS#7 and uses it directly.
	// This is the only scheme older readers understand.
	KDFLegacy KDF = "legacy"

	// KDFArgon2id derives the inner key with Argon2id over a random per-container salt.
	KDFArgon2id KDF = "argon2id"
)

// SaltSize is the length of the Argon2id salt stored in protected containers.
const SaltSize = 16

// Container is the plaintext content of a key container file.
type Container struct {
	ID     string
	Name   string
	Secret []byte
}
