package usecase

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"

	validation "github.com/jellydator/validation"
	"github.com/jonboulle/clockwork"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
	cryptoService "github.com/allisson/keymanager/internal/crypto/service"
	apperrors "github.com/allisson/keymanager/internal/errors"
	appValidation "github.com/allisson/keymanager/internal/validation"
)

// maxKeyNameLength is the longest accepted key name, in characters.
const maxKeyNameLength = 255

// keyUseCase implements KeyUseCase.
type keyUseCase struct {
	files     FileRepository
	digests   DigestRepository
	container cryptoService.ContainerCodec
	kdf       cryptoDomain.KDF
	clock     clockwork.Clock
	logger    *slog.Logger
}

// Create generates a random secret and persists it as a new container.
func (k *keyUseCase) Create(ctx context.Context, name, path string, password *string) (*cryptoDomain.Key, error) {
	if err := validateKeyName(name, appValidation.NotBlank, appValidation.NoControlChars); err != nil {
		return nil, err
	}
	if err := validation.Validate(path, validation.Required); err != nil {
		return nil, fmt.Errorf("%w: path %s", cryptoDomain.ErrKeyPathNotSet, err.Error())
	}

	secret := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}
	key := cryptoDomain.NewKey(name, secret, cryptoDomain.WithClock(k.clock))
	cryptoDomain.Zero(secret)

	if err := k.persist(ctx, key, path, password, false); err != nil {
		key.Expire()
		return nil, err
	}

	k.logger.Info("key created",
		slog.String("key_id", key.ID()),
		slog.String("path", path),
		slog.Bool("protected", password != nil),
	)
	return key, nil
}

// Save persists key, replacing the file at path.
func (k *keyUseCase) Save(ctx context.Context, key *cryptoDomain.Key, path string, password *string) error {
	if path == "" {
		path = key.Path()
	}
	if path == "" {
		return cryptoDomain.ErrKeyPathNotSet
	}
	if err := validateKeyName(key.Name()); err != nil {
		return err
	}

	if err := k.persist(ctx, key, path, password, true); err != nil {
		return err
	}

	k.logger.Info("key saved",
		slog.String("key_id", key.ID()),
		slog.String("path", path),
		slog.Bool("protected", password != nil),
	)
	return nil
}

// persist seals key, writes the container, then records its digest. The file is
// written before the digest so a failed write never leaves a digest for bytes
// that are not on disk.
func (k *keyUseCase) persist(
	ctx context.Context,
	key *cryptoDomain.Key,
	path string,
	password *string,
	overwrite bool,
) error {
	secret, err := key.Secret()
	if err != nil {
		return err
	}
	defer cryptoDomain.Zero(secret)

	raw, err := k.container.Seal(cryptoDomain.Container{
		ID:     key.ID(),
		Name:   key.Name(),
		Secret: secret,
	}, k.protection(password))
	if err != nil {
		return err
	}

	digest, err := cryptoService.ContentDigest(raw)
	if err != nil {
		return err
	}

	if err := k.files.Write(ctx, path, raw, overwrite); err != nil {
		return err
	}
	if err := k.digests.Put(ctx, key.ID(), digest); err != nil {
		return apperrors.Wrap(err, "failed to record content digest")
	}

	key.SetPath(path)
	key.SetContentDigest(digest)
	return nil
}

// Load reads and opens the container at path.
func (k *keyUseCase) Load(ctx context.Context, path string, password *string) (*cryptoDomain.Key, error) {
	c, digest, err := k.open(ctx, path, password)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(c.Secret)

	key := cryptoDomain.RestoreKey(c.ID, c.Name, c.Secret,
		cryptoDomain.WithClock(k.clock),
		cryptoDomain.WithPath(path),
		cryptoDomain.WithContentDigest(digest),
	)

	k.logger.Debug("key loaded", slog.String("key_id", key.ID()), slog.String("path", path))
	return key, nil
}

// Reload re-reads the key's container into key.
func (k *keyUseCase) Reload(ctx context.Context, key *cryptoDomain.Key, password *string) error {
	path := key.Path()
	if path == "" {
		return cryptoDomain.ErrKeyPathNotSet
	}

	c, digest, err := k.open(ctx, path, password)
	if err != nil {
		return err
	}
	defer cryptoDomain.Zero(c.Secret)

	if c.ID != key.ID() {
		return fmt.Errorf("%w: %s holds %s, expected %s", cryptoDomain.ErrKeyIDMismatch, path, c.ID, key.ID())
	}

	key.Restore(c.Name, c.Secret, path, digest)

	k.logger.Info("key reloaded", slog.String("key_id", key.ID()), slog.String("path", path))
	return nil
}

func (k *keyUseCase) open(
	ctx context.Context,
	path string,
	password *string,
) (cryptoDomain.Container, []byte, error) {
	raw, err := k.files.Read(ctx, path)
	if err != nil {
		return cryptoDomain.Container{}, nil, err
	}

	digest, err := cryptoService.ContentDigest(raw)
	if err != nil {
		return cryptoDomain.Container{}, nil, err
	}

	c, err := k.container.Open(raw, k.protection(password))
	if err != nil {
		return cryptoDomain.Container{}, nil, err
	}
	return c, digest, nil
}

// NeedPassword inspects only the envelope marker of path.
func (k *keyUseCase) NeedPassword(ctx context.Context, path string) (bool, error) {
	header, err := k.files.ReadHeader(ctx, path, cryptoDomain.MarkerSize)
	if err != nil {
		return false, err
	}
	return cryptoService.IsEnvelope(header), nil
}

// ChangePassword loads the container with oldPassword and saves it with newPassword.
func (k *keyUseCase) ChangePassword(ctx context.Context, path string, oldPassword, newPassword *string) error {
	key, err := k.Load(ctx, path, oldPassword)
	if err != nil {
		return err
	}
	defer key.Expire()

	return k.Save(ctx, key, path, newPassword)
}

// IsModified compares the stored digest with the key's content digest.
func (k *keyUseCase) IsModified(ctx context.Context, key *cryptoDomain.Key) (bool, bool, error) {
	stored, err := k.digests.Get(ctx, key.ID())
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return false, false, nil
		}
		return false, false, err
	}
	return !bytes.Equal(stored, key.ContentDigest()), true, nil
}

func (k *keyUseCase) protection(password *string) *cryptoService.Protection {
	if password == nil {
		return nil
	}
	return &cryptoService.Protection{Password: *password, KDF: k.kdf}
}

// validateKeyName applies the base name rules plus extra. New keys get stricter
// rules than keys re-saved from existing containers.
func validateKeyName(name string, extra ...validation.Rule) error {
	rules := append([]validation.Rule{
		validation.Required,
		validation.RuneLength(1, maxKeyNameLength),
	}, extra...)
	err := validation.Validate(name, rules...)
	if err != nil {
		return fmt.Errorf("%w: %s", cryptoDomain.ErrInvalidKeyName, err.Error())
	}
	return nil
}

// NewKeyUseCase creates a KeyUseCase. kdf selects the derivation used for newly
// protected containers; loading always honors what the container records.
func NewKeyUseCase(
	files FileRepository,
	digests DigestRepository,
	container cryptoService.ContainerCodec,
	kdf cryptoDomain.KDF,
	clock clockwork.Clock,
	logger *slog.Logger,
) KeyUseCase {
	return &keyUseCase{
		files:     files,
		digests:   digests,
		container: container,
		kdf:       kdf,
		clock:     clock,
		logger:    logger,
	}
}
