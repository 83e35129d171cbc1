// Package usecase implements the key manager's application logic.
//
// KeyUseCase turns keys into container files and back: creating, saving, loading,
// reloading timed-out keys, changing passwords, and detecting containers modified
// on disk. FileUseCase encrypts and decrypts batches of files with a loaded key.
//
// Use cases coordinate the codecs from the service package with the filesystem
// repositories. They never keep plaintext secrets beyond the call that needed
// them; the only long-lived copy lives inside domain.Key.
//
// # Usage Example
//
//	keys := usecase.NewKeyUseCase(files, digests, containerCodec, cryptoDomain.KDFLegacy, clock, logger)
//	password := "hunter2"
//	key, err := keys.Load(ctx, "/home/me/keyA.bin", &password)
//
//	encrypter := usecase.NewFileUseCase(files, envelopeCodec, logger)
//	results, err := encrypter.EncryptFiles(ctx, key, []string{"notes.txt"}, "/tmp/out")
package usecase

import (
	"context"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
)

// FileRepository abstracts whole-file access to the filesystem.
type FileRepository interface {
	// Read returns the full content of path.
	// A missing file yields an error wrapping errors.ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)

	// ReadHeader returns at most the first n bytes of path.
	ReadHeader(ctx context.Context, path string, n int) ([]byte, error)

	// Write atomically stores data at path. When overwrite is false and the path
	// exists it fails with cryptoDomain.ErrKeyFileExists.
	Write(ctx context.Context, path string, data []byte, overwrite bool) error
}

// DigestRepository stores the last saved content digest per key id.
type DigestRepository interface {
	// Get returns the stored digest, or an error wrapping errors.ErrNotFound.
	Get(ctx context.Context, id string) ([]byte, error)

	// Put replaces the stored digest for id.
	Put(ctx context.Context, id string, digest []byte) error
}

// KeyUseCase manages key containers on disk.
//
// Password arguments are pointers: nil means the container is (or will be)
// unprotected, while a non-nil pointer to an empty string is an invalid password.
type KeyUseCase interface {
	// Create generates a new 32-byte random key, saves it to path, and returns it.
	// Fails with cryptoDomain.ErrKeyFileExists if path already exists.
	Create(ctx context.Context, name, path string, password *string) (*cryptoDomain.Key, error)

	// Save writes key to path, replacing any existing file. An empty path reuses
	// the key's current path. On success the key's path and content digest are
	// updated and the digest is recorded in the digest store.
	Save(ctx context.Context, key *cryptoDomain.Key, path string, password *string) error

	// Load reads the container at path and returns an Active key.
	Load(ctx context.Context, path string, password *string) (*cryptoDomain.Key, error)

	// Reload re-reads the key's own container into the existing instance,
	// reactivating it. The container must still hold the same key id.
	Reload(ctx context.Context, key *cryptoDomain.Key, password *string) error

	// NeedPassword reports whether the container at path is password protected.
	// Only the envelope marker is read.
	NeedPassword(ctx context.Context, path string) (bool, error)

	// ChangePassword re-saves the container at path under newPassword. A nil
	// newPassword removes the protection.
	ChangePassword(ctx context.Context, path string, oldPassword, newPassword *string) error

	// IsModified compares the digest recorded at the last save with the digest the
	// key was loaded from. known is false when no digest was ever recorded.
	IsModified(ctx context.Context, key *cryptoDomain.Key) (modified bool, known bool, err error)
}

// FileUseCase encrypts and decrypts files with a loaded key.
type FileUseCase interface {
	// EncryptFiles writes Envelope(secret, content) to outputDir/<basename> for each
	// input. Inputs that already are envelopes or that do not exist are skipped.
	// The returned error is set only when the whole batch had to stop.
	EncryptFiles(ctx context.Context, key *cryptoDomain.Key, inputs []string, outputDir string) ([]FileResult, error)

	// DecryptFiles is the inverse of EncryptFiles and skips inputs that are not envelopes.
	DecryptFiles(ctx context.Context, key *cryptoDomain.Key, inputs []string, outputDir string) ([]FileResult, error)
}

// FileStatus is the outcome of processing a single file.
type FileStatus string

const (
	FileEncrypted        FileStatus = "encrypted"
	FileDecrypted        FileStatus = "decrypted"
	FileSkippedEncrypted FileStatus = "skipped_already_encrypted"
	FileSkippedPlain     FileStatus = "skipped_not_encrypted"
	FileSkippedMissing   FileStatus = "skipped_missing"
	FileFailed           FileStatus = "failed"
)

// FileResult reports what happened to one input file.
type FileResult struct {
	Input  string
	Output string
	Status FileStatus
	Err    error
}
