package service

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
)

// ZipContainer implements ContainerCodec on top of a zip archive.
//
// Unprotected containers hold the id, name and raw secret. Protected containers
// hold the secret wrapped in an envelope under a password-derived key plus a
// verification tag, and the whole archive is wrapped in an outer envelope keyed
// by BlankKey so the file starts with the envelope marker.
type ZipContainer struct {
	envelope EnvelopeCodec
}

// NewZipContainer creates a container codec using envelope for both envelope layers.
func NewZipContainer(envelope EnvelopeCodec) *ZipContainer {
	return &ZipContainer{envelope: envelope}
}

// Seal serializes c, protecting the secret when p is non-nil.
func (z *ZipContainer) Seal(c cryptoDomain.Container, p *Protection) ([]byte, error) {
	if c.ID == "" {
		return nil, fmt.Errorf("%w: id is required", cryptoDomain.ErrMalformedContainer)
	}

	entries := []archiveEntry{
		{name: cryptoDomain.EntryID, data: []byte(c.ID)},
		{name: cryptoDomain.EntryName, data: []byte(c.Name)},
	}

	if p == nil {
		entries = append(entries, archiveEntry{name: cryptoDomain.EntryKey, data: c.Secret})
		return writeArchive(entries)
	}

	if err := ValidatePassword(p.Password); err != nil {
		return nil, err
	}

	kdf := p.KDF
	if kdf == "" {
		kdf = cryptoDomain.KDFLegacy
	}

	var salt []byte
	if kdf == cryptoDomain.KDFArgon2id {
		salt = make([]byte, cryptoDomain.SaltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	innerKey, err := deriveInnerKey(p.Password, kdf, salt)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(innerKey)

	wrapped, err := z.envelope.Encrypt(innerKey, c.Secret)
	if err != nil {
		return nil, err
	}

	entries = append(entries,
		archiveEntry{name: cryptoDomain.EntryKey, data: wrapped},
		archiveEntry{name: cryptoDomain.EntryPassword, data: VerificationTag(p.Password, c.ID)},
	)
	// Legacy containers carry no kdf entry so older readers keep working.
	if kdf != cryptoDomain.KDFLegacy {
		entries = append(entries,
			archiveEntry{name: cryptoDomain.EntryKDF, data: []byte(kdf)},
			archiveEntry{name: cryptoDomain.EntrySalt, data: salt},
		)
	}

	archive, err := writeArchive(entries)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(archive)

	return z.envelope.Encrypt(BlankKey(), archive)
}

// Open parses container bytes.
//
// A protected container opened without protection fails with ErrInvalidPassword.
// A wrong password also fails with ErrInvalidPassword, detected through the
// verification tag before the secret is decrypted.
func (z *ZipContainer) Open(raw []byte, p *Protection) (cryptoDomain.Container, error) {
	archive := raw
	protected := z.envelope.IsEnvelope(raw)

	switch {
	case p == nil && protected:
		return cryptoDomain.Container{}, fmt.Errorf("%w: password required", cryptoDomain.ErrInvalidPassword)
	case p != nil:
		if err := ValidatePassword(p.Password); err != nil {
			return cryptoDomain.Container{}, err
		}
		if !protected {
			return cryptoDomain.Container{}, fmt.Errorf("%w: container is not password protected", cryptoDomain.ErrMalformedContainer)
		}
		var err error
		archive, err = z.envelope.Decrypt(BlankKey(), raw)
		if err != nil {
			return cryptoDomain.Container{}, fmt.Errorf("%w: %s", cryptoDomain.ErrMalformedContainer, err.Error())
		}
		defer cryptoDomain.Zero(archive)
	}

	entries, err := readArchive(archive)
	if err != nil {
		return cryptoDomain.Container{}, err
	}

	for _, name := range []string{cryptoDomain.EntryID, cryptoDomain.EntryName, cryptoDomain.EntryKey} {
		if _, ok := entries[name]; !ok {
			return cryptoDomain.Container{}, fmt.Errorf("%w: missing %q entry", cryptoDomain.ErrMalformedContainer, name)
		}
	}

	c := cryptoDomain.Container{
		ID:   string(entries[cryptoDomain.EntryID]),
		Name: string(entries[cryptoDomain.EntryName]),
	}
	if c.ID == "" {
		return cryptoDomain.Container{}, fmt.Errorf("%w: empty id", cryptoDomain.ErrMalformedContainer)
	}

	if p == nil {
		c.Secret = entries[cryptoDomain.EntryKey]
		return c, nil
	}

	secret, err := z.unwrapSecret(entries, p.Password, c.ID)
	if err != nil {
		return cryptoDomain.Container{}, err
	}
	c.Secret = secret
	return c, nil
}

func (z *ZipContainer) unwrapSecret(entries map[string][]byte, password, id string) ([]byte, error) {
	tag, ok := entries[cryptoDomain.EntryPassword]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q entry", cryptoDomain.ErrMalformedContainer, cryptoDomain.EntryPassword)
	}
	if subtle.ConstantTimeCompare(tag, VerificationTag(password, id)) != 1 {
		return nil, cryptoDomain.ErrInvalidPassword
	}

	kdf := cryptoDomain.KDFLegacy
	if v, ok := entries[cryptoDomain.EntryKDF]; ok {
		kdf = cryptoDomain.KDF(v)
	}

	innerKey, err := deriveInnerKey(password, kdf, entries[cryptoDomain.EntrySalt])
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(innerKey)

	wrapped := entries[cryptoDomain.EntryKey]
	if !z.envelope.IsEnvelope(wrapped) {
		return nil, fmt.Errorf("%w: protected key is not an envelope", cryptoDomain.ErrMalformedContainer)
	}
	secret, err := z.envelope.Decrypt(innerKey, wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", cryptoDomain.ErrMalformedContainer, err.Error())
	}
	return secret, nil
}
