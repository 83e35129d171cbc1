package usecase

import (
	"context"
	"time"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
	"github.com/allisson/keymanager/internal/metrics"
)

const (
	keysDomain  = "keys"
	filesDomain = "files"
)

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// keyUseCaseWithMetrics decorates KeyUseCase with metrics instrumentation.
type keyUseCaseWithMetrics struct {
	next    KeyUseCase
	metrics metrics.BusinessMetrics
}

// NewKeyUseCaseWithMetrics wraps a KeyUseCase with metrics recording.
func NewKeyUseCaseWithMetrics(useCase KeyUseCase, m metrics.BusinessMetrics) KeyUseCase {
	return &keyUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (k *keyUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := statusOf(err)
	k.metrics.RecordOperation(ctx, keysDomain, operation, status)
	k.metrics.RecordDuration(ctx, keysDomain, operation, time.Since(start), status)
}

// Create records metrics for key creation.
func (k *keyUseCaseWithMetrics) Create(
	ctx context.Context,
	name, path string,
	password *string,
) (*cryptoDomain.Key, error) {
	start := time.Now()
	key, err := k.next.Create(ctx, name, path, password)
	k.record(ctx, "key_create", start, err)
	return key, err
}

// Save records metrics for key saves.
func (k *keyUseCaseWithMetrics) Save(
	ctx context.Context,
	key *cryptoDomain.Key,
	path string,
	password *string,
) error {
	start := time.Now()
	err := k.next.Save(ctx, key, path, password)
	k.record(ctx, "key_save", start, err)
	return err
}

// Load records metrics for key loads.
func (k *keyUseCaseWithMetrics) Load(ctx context.Context, path string, password *string) (*cryptoDomain.Key, error) {
	start := time.Now()
	key, err := k.next.Load(ctx, path, password)
	k.record(ctx, "key_load", start, err)
	return key, err
}

// Reload records metrics for key reloads.
func (k *keyUseCaseWithMetrics) Reload(ctx context.Context, key *cryptoDomain.Key, password *string) error {
	start := time.Now()
	err := k.next.Reload(ctx, key, password)
	k.record(ctx, "key_reload", start, err)
	return err
}

// NeedPassword is not instrumented; it only peeks at a file header.
func (k *keyUseCaseWithMetrics) NeedPassword(ctx context.Context, path string) (bool, error) {
	return k.next.NeedPassword(ctx, path)
}

// ChangePassword records metrics for password changes.
func (k *keyUseCaseWithMetrics) ChangePassword(
	ctx context.Context,
	path string,
	oldPassword, newPassword *string,
) error {
	start := time.Now()
	err := k.next.ChangePassword(ctx, path, oldPassword, newPassword)
	k.record(ctx, "key_change_password", start, err)
	return err
}

// IsModified is not instrumented.
func (k *keyUseCaseWithMetrics) IsModified(ctx context.Context, key *cryptoDomain.Key) (bool, bool, error) {
	return k.next.IsModified(ctx, key)
}

// fileUseCaseWithMetrics decorates FileUseCase with metrics instrumentation.
type fileUseCaseWithMetrics struct {
	next    FileUseCase
	metrics metrics.BusinessMetrics
}

// NewFileUseCaseWithMetrics wraps a FileUseCase with metrics recording.
// Besides the batch itself, every file result is counted under its status.
func NewFileUseCaseWithMetrics(useCase FileUseCase, m metrics.BusinessMetrics) FileUseCase {
	return &fileUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (f *fileUseCaseWithMetrics) record(
	ctx context.Context,
	operation string,
	start time.Time,
	results []FileResult,
	err error,
) {
	status := statusOf(err)
	f.metrics.RecordOperation(ctx, filesDomain, operation, status)
	f.metrics.RecordDuration(ctx, filesDomain, operation, time.Since(start), status)
	for _, r := range results {
		f.metrics.RecordOperation(ctx, filesDomain, operation+"_file", string(r.Status))
	}
}

// EncryptFiles records metrics for batch encryption.
func (f *fileUseCaseWithMetrics) EncryptFiles(
	ctx context.Context,
	key *cryptoDomain.Key,
	inputs []string,
	outputDir string,
) ([]FileResult, error) {
	start := time.Now()
	results, err := f.next.EncryptFiles(ctx, key, inputs, outputDir)
	f.record(ctx, "files_encrypt", start, results, err)
	return results, err
}

// DecryptFiles records metrics for batch decryption.
func (f *fileUseCaseWithMetrics) DecryptFiles(
	ctx context.Context,
	key *cryptoDomain.Key,
	inputs []string,
	outputDir string,
) ([]FileResult, error) {
	start := time.Now()
	results, err := f.next.DecryptFiles(ctx, key, inputs, outputDir)
	f.record(ctx, "files_decrypt", start, results, err)
	return results, err
}
