package service

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
)

// lengthOffset is where the 64-bit big-endian length lives inside the 128-byte
// length field. Lengths above 2^64-1 are not representable in memory anyway, so the
// leading bytes of the field must be zero.
const lengthOffset = cryptoDomain.MarkerSize + cryptoDomain.LengthFieldSize - 8

// AESCBCEnvelope implements EnvelopeCodec with AES-CBC and PKCS#7 padding.
//
// The declared plaintext length in the header, not the padding, decides how many
// decrypted bytes are returned. The padding is still checked for consistency with
// that length so that corrupted trailing blocks are reported instead of silently
// ignored.
//
// The codec is stateless and safe for concurrent use.
type AESCBCEnvelope struct{}

// NewAESCBCEnvelope creates a new envelope codec.
func NewAESCBCEnvelope() *AESCBCEnvelope {
	return &AESCBCEnvelope{}
}

// IsEnvelope reports whether data starts with the envelope marker.
func IsEnvelope(data []byte) bool {
	return len(data) >= cryptoDomain.MarkerSize &&
		string(data[:cryptoDomain.MarkerSize]) == cryptoDomain.Marker
}

// IsEnvelope reports whether data starts with the envelope marker.
func (e *AESCBCEnvelope) IsEnvelope(data []byte) bool {
	return IsEnvelope(data)
}

// Encrypt pads plaintext, encrypts it under key with a fresh random IV, and prepends
// the envelope header. Returns ErrInvalidKeySize for keys that are not 16, 24 or 32
// bytes long.
func (e *AESCBCEnvelope) Encrypt(key, plaintext []byte) ([]byte, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	defer cryptoDomain.Zero(padded)

	out := make([]byte, cryptoDomain.HeaderSize+len(padded))
	copy(out, cryptoDomain.Marker)
	binary.BigEndian.PutUint64(
		out[lengthOffset:cryptoDomain.MarkerSize+cryptoDomain.LengthFieldSize],
		uint64(len(plaintext)),
	)

	iv := out[cryptoDomain.MarkerSize+cryptoDomain.LengthFieldSize : cryptoDomain.HeaderSize]
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[cryptoDomain.HeaderSize:], padded)
	return out, nil
}

// Decrypt verifies the marker, decrypts the ciphertext, and returns exactly the
// declared number of plaintext bytes.
//
// Data without the marker returns an empty slice and no error; callers that need
// to tell the cases apart check IsEnvelope first.
func (e *AESCBCEnvelope) Decrypt(key, envelope []byte) ([]byte, error) {
	if !IsEnvelope(envelope) {
		return []byte{}, nil
	}

	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}

	if len(envelope) < cryptoDomain.HeaderSize {
		return nil, fmt.Errorf("%w: truncated header", cryptoDomain.ErrMalformedEnvelope)
	}

	lengthField := envelope[cryptoDomain.MarkerSize : cryptoDomain.MarkerSize+cryptoDomain.LengthFieldSize]
	if !isZero(lengthField[:cryptoDomain.LengthFieldSize-8]) {
		return nil, fmt.Errorf("%w: declared length too large", cryptoDomain.ErrMalformedEnvelope)
	}
	declared := binary.BigEndian.Uint64(lengthField[cryptoDomain.LengthFieldSize-8:])

	ciphertext := envelope[cryptoDomain.HeaderSize:]
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a whole number of blocks", cryptoDomain.ErrMalformedEnvelope)
	}
	// PKCS#7 always adds at least one byte, so the plaintext is strictly shorter.
	if declared >= uint64(len(ciphertext)) {
		return nil, fmt.Errorf("%w: declared length exceeds ciphertext", cryptoDomain.ErrMalformedEnvelope)
	}

	iv := envelope[cryptoDomain.MarkerSize+cryptoDomain.LengthFieldSize : cryptoDomain.HeaderSize]
	decrypted := make([]byte, len(ciphertext))
	defer cryptoDomain.Zero(decrypted)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(decrypted, ciphertext)

	if !paddingMatches(decrypted, int(declared)) {
		return nil, fmt.Errorf("%w: integrity check failed", cryptoDomain.ErrMalformedEnvelope)
	}

	return bytes.Clone(decrypted[:declared]), nil
}

func newBlock(key []byte) (cipher.Block, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: got %d bytes", cryptoDomain.ErrInvalidKeySize, len(key))
	}
	return block, nil
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
