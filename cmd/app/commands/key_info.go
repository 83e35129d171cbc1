package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/multiformats/go-multihash"

	cryptoUseCase "github.com/allisson/keymanager/internal/crypto/usecase"
)

// KeyInfo is the metadata printed by key-info. It never carries the secret.
type KeyInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Protected bool   `json:"protected"`
	Digest    string `json:"digest"`
	// Modified is nil when no digest was recorded for the key.
	Modified *bool `json:"modified"`
}

// RunKeyInfo loads the key at path and prints its metadata, including whether the
// file changed since it was last saved by this tool.
func RunKeyInfo(
	ctx context.Context,
	keyUseCase cryptoUseCase.KeyUseCase,
	logger *slog.Logger,
	prompter *Prompter,
	writer io.Writer,
	path string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	password, err := passwordFor(ctx, keyUseCase, prompter, path)
	if err != nil {
		return err
	}

	key, err := keyUseCase.Load(ctx, path, password)
	if err != nil {
		return fmt.Errorf("failed to load key: %w", err)
	}
	defer key.Expire()

	info := KeyInfo{
		ID:        key.ID(),
		Name:      key.Name(),
		Path:      key.Path(),
		Protected: password != nil,
		Digest:    multihash.Multihash(key.ContentDigest()).B58String(),
	}

	modified, known, err := keyUseCase.IsModified(ctx, key)
	if err != nil {
		logger.Warn("failed to check key modification", slog.String("key_id", key.ID()), slog.Any("error", err))
	} else if known {
		info.Modified = &modified
	}

	if format == "json" {
		return writeJSON(writer, info)
	}

	_, _ = fmt.Fprintf(writer, "ID: %s\n", info.ID)
	_, _ = fmt.Fprintf(writer, "Name: %s\n", info.Name)
	_, _ = fmt.Fprintf(writer, "Path: %s\n", info.Path)
	_, _ = fmt.Fprintf(writer, "Protected: %t\n", info.Protected)
	_, _ = fmt.Fprintf(writer, "Digest: %s\n", info.Digest)
	switch {
	case info.Modified == nil:
		_, _ = fmt.Fprintln(writer, "Modified: unknown")
	default:
		_, _ = fmt.Fprintf(writer, "Modified: %t\n", *info.Modified)
	}
	return nil
}
