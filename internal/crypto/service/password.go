package service

import (
	"crypto/sha512"
	"fmt"

	validation "github.com/jellydator/validation"
	"golang.org/x/crypto/argon2"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
	appValidation "github.com/allisson/keymanager/internal/validation"
)

// Argon2id parameters for KDFArgon2id containers. They are stored implicitly by
// the kdf entry; changing them requires a new KDF value.
const (
	argon2Time    uint32 = 3
	argon2Memory  uint32 = 64 * 1024
	argon2Threads uint8  = 4
)

var passwordRules = []validation.Rule{
	validation.Required.Error("must not be empty"),
	appValidation.ValidUTF8,
	appValidation.ByteLength{Min: 1, Max: cryptoDomain.MaxPasswordLength},
}

// ValidatePassword checks that password is between 1 and MaxPasswordLength UTF-8
// bytes. Errors wrap ErrInvalidPassword.
func ValidatePassword(password string) error {
	if err := validation.Validate(password, passwordRules...); err != nil {
		return fmt.Errorf("%w: %s", cryptoDomain.ErrInvalidPassword, err.Error())
	}
	return nil
}

// PadKey turns a password into KeySize bytes of key material by PKCS#7-padding
// its UTF-8 encoding. A password of exactly KeySize bytes is used as is, since
// padding it would overflow the AES-256 key length.
func PadKey(password string) []byte {
	padded := pkcs7Pad([]byte(password), cryptoDomain.KeySize)
	if len(padded) > cryptoDomain.KeySize {
		cryptoDomain.Zero(padded[cryptoDomain.KeySize:])
		padded = padded[:cryptoDomain.KeySize]
	}
	return padded
}

// BlankKey is the padded empty password. It keys the outer envelope of protected
// containers, which exists to mark the file as protected rather than to hide it.
func BlankKey() []byte {
	return PadKey("")
}

// VerificationTag computes SHA-512(password || id), the value stored in the
// passwd entry to check a password before decrypting anything.
func VerificationTag(password, id string) []byte {
	h := sha512.New()
	h.Write([]byte(password))
	h.Write([]byte(id))
	return h.Sum(nil)
}

// deriveInnerKey returns the key that wraps the secret inside a protected container.
func deriveInnerKey(password string, kdf cryptoDomain.KDF, salt []byte) ([]byte, error) {
	switch kdf {
	case "", cryptoDomain.KDFLegacy:
		return PadKey(password), nil
	case cryptoDomain.KDFArgon2id:
		if len(salt) != cryptoDomain.SaltSize {
			return nil, fmt.Errorf("%w: salt must be %d bytes", cryptoDomain.ErrMalformedContainer, cryptoDomain.SaltSize)
		}
		return argon2.IDKey(
			[]byte(password), salt, argon2Time, argon2Memory, argon2Threads, cryptoDomain.KeySize,
		), nil
	default:
		return nil, fmt.Errorf("%w: unsupported kdf %q", cryptoDomain.ErrMalformedContainer, kdf)
	}
}
