package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
	cryptoUseCase "github.com/allisson/keymanager/internal/crypto/usecase"
)

// fileResultJSON is the JSON form of a FileResult.
type fileResultJSON struct {
	Input  string `json:"input"`
	Output string `json:"output,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RunEncryptFiles encrypts inputs into outputDir with the key stored at keyPath.
func RunEncryptFiles(
	ctx context.Context,
	keyUseCase cryptoUseCase.KeyUseCase,
	fileUseCase cryptoUseCase.FileUseCase,
	logger *slog.Logger,
	prompter *Prompter,
	writer io.Writer,
	keyPath string,
	outputDir string,
	inputs []string,
	format string,
) error {
	return runFiles(ctx, keyUseCase, logger, prompter, writer, keyPath, outputDir, inputs, format,
		fileUseCase.EncryptFiles)
}

// RunDecryptFiles decrypts inputs into outputDir with the key stored at keyPath.
func RunDecryptFiles(
	ctx context.Context,
	keyUseCase cryptoUseCase.KeyUseCase,
	fileUseCase cryptoUseCase.FileUseCase,
	logger *slog.Logger,
	prompter *Prompter,
	writer io.Writer,
	keyPath string,
	outputDir string,
	inputs []string,
	format string,
) error {
	return runFiles(ctx, keyUseCase, logger, prompter, writer, keyPath, outputDir, inputs, format,
		fileUseCase.DecryptFiles)
}

type batchFunc func(ctx context.Context, key *cryptoDomain.Key, inputs []string, outputDir string) ([]cryptoUseCase.FileResult, error)

func runFiles(
	ctx context.Context,
	keyUseCase cryptoUseCase.KeyUseCase,
	logger *slog.Logger,
	prompter *Prompter,
	writer io.Writer,
	keyPath string,
	outputDir string,
	inputs []string,
	format string,
	batch batchFunc,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if err := validation.Validate(inputs, validation.Required); err != nil {
		return fmt.Errorf("input files: %w", err)
	}

	password, err := passwordFor(ctx, keyUseCase, prompter, keyPath)
	if err != nil {
		return err
	}

	key, err := keyUseCase.Load(ctx, keyPath, password)
	if err != nil {
		return fmt.Errorf("failed to load key: %w", err)
	}
	defer key.Expire()

	results, err := batch(ctx, key, inputs, outputDir)
	if writeErr := writeResults(writer, results, format); writeErr != nil {
		return writeErr
	}
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Status == cryptoUseCase.FileFailed {
			failed++
		}
	}
	logger.Debug("batch finished",
		slog.String("key_id", key.ID()),
		slog.Int("files", len(results)),
		slog.Int("failed", failed),
	)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func writeResults(writer io.Writer, results []cryptoUseCase.FileResult, format string) error {
	if format == "json" {
		out := make([]fileResultJSON, 0, len(results))
		for _, r := range results {
			item := fileResultJSON{Input: r.Input, Output: r.Output, Status: string(r.Status)}
			if r.Err != nil {
				item.Error = r.Err.Error()
			}
			out = append(out, item)
		}
		return writeJSON(writer, out)
	}

	for _, r := range results {
		switch {
		case r.Err != nil:
			_, _ = fmt.Fprintf(writer, "%s: %s (%v)\n", r.Input, r.Status, r.Err)
		case r.Output != "":
			_, _ = fmt.Fprintf(writer, "%s: %s -> %s\n", r.Input, r.Status, r.Output)
		default:
			_, _ = fmt.Fprintf(writer, "%s: %s\n", r.Input, r.Status)
		}
	}
	return nil
}
