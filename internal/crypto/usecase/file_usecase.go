package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
	cryptoService "github.com/allisson/keymanager/internal/crypto/service"
	apperrors "github.com/allisson/keymanager/internal/errors"
)

// fileUseCase implements FileUseCase.
type fileUseCase struct {
	files    FileRepository
	envelope cryptoService.EnvelopeCodec
	logger   *slog.Logger
}

// fileTransform describes one direction of the batch operation.
type fileTransform struct {
	done       FileStatus
	skipped    FileStatus
	shouldSkip func(header []byte) bool
	apply      func(secret, data []byte) ([]byte, error)
}

// EncryptFiles encrypts every input that is not already an envelope.
func (f *fileUseCase) EncryptFiles(
	ctx context.Context,
	key *cryptoDomain.Key,
	inputs []string,
	outputDir string,
) ([]FileResult, error) {
	return f.process(ctx, key, inputs, outputDir, fileTransform{
		done:       FileEncrypted,
		skipped:    FileSkippedEncrypted,
		shouldSkip: f.envelope.IsEnvelope,
		apply:      f.envelope.Encrypt,
	})
}

// DecryptFiles decrypts every input that is an envelope.
func (f *fileUseCase) DecryptFiles(
	ctx context.Context,
	key *cryptoDomain.Key,
	inputs []string,
	outputDir string,
) ([]FileResult, error) {
	return f.process(ctx, key, inputs, outputDir, fileTransform{
		done:    FileDecrypted,
		skipped: FileSkippedPlain,
		shouldSkip: func(header []byte) bool {
			return !f.envelope.IsEnvelope(header)
		},
		apply: f.envelope.Decrypt,
	})
}

func (f *fileUseCase) process(
	ctx context.Context,
	key *cryptoDomain.Key,
	inputs []string,
	outputDir string,
	t fileTransform,
) ([]FileResult, error) {
	if err := validation.Validate(outputDir, validation.Required); err != nil {
		return nil, fmt.Errorf("%w: output directory %s", apperrors.ErrInvalidInput, err.Error())
	}

	results := make([]FileResult, 0, len(inputs))
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := f.processOne(ctx, key, input, outputDir, t)
		if err != nil {
			return results, err
		}
		results = append(results, result)

		attrs := []any{
			slog.String("key_id", key.ID()),
			slog.String("path", input),
			slog.String("status", string(result.Status)),
		}
		if result.Err != nil {
			f.logger.Warn("file not processed", append(attrs, slog.Any("error", result.Err))...)
			continue
		}
		f.logger.Debug("file processed", attrs...)
	}
	return results, nil
}

// processOne handles a single input. Per-file problems end up in the result; the
// returned error is reserved for conditions that stop the batch.
func (f *fileUseCase) processOne(
	ctx context.Context,
	key *cryptoDomain.Key,
	input, outputDir string,
	t fileTransform,
) (FileResult, error) {
	result := FileResult{Input: input}

	data, err := f.files.Read(ctx, input)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			result.Status = FileSkippedMissing
			return result, nil
		}
		result.Status = FileFailed
		result.Err = err
		return result, nil
	}

	if t.shouldSkip(data) {
		result.Status = t.skipped
		return result, nil
	}

	secret, err := key.Secret()
	if err != nil {
		return result, err
	}
	defer cryptoDomain.Zero(secret)

	out, err := t.apply(secret, data)
	if err != nil {
		result.Status = FileFailed
		result.Err = err
		return result, nil
	}

	result.Output = filepath.Join(outputDir, filepath.Base(input))
	if err := f.files.Write(ctx, result.Output, out, true); err != nil {
		result.Status = FileFailed
		result.Err = err
		return result, nil
	}

	result.Status = t.done
	return result, nil
}

// NewFileUseCase creates a FileUseCase.
func NewFileUseCase(files FileRepository, envelope cryptoService.EnvelopeCodec, logger *slog.Logger) FileUseCase {
	return &fileUseCase{
		files:    files,
		envelope: envelope,
		logger:   logger,
	}
}
