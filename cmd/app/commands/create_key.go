package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	cryptoUseCase "github.com/allisson/keymanager/internal/crypto/usecase"
)

// RunCreateKey generates a new key and saves it to path. Unless noPassword is set
// the user is prompted for a password twice.
func RunCreateKey(
	ctx context.Context,
	keyUseCase cryptoUseCase.KeyUseCase,
	logger *slog.Logger,
	prompter *Prompter,
	writer io.Writer,
	name string,
	path string,
	noPassword bool,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	var password *string
	if !noPassword {
		p, err := prompter.NewPassword("New password: ")
		if err != nil {
			return err
		}
		password = &p
	}

	key, err := keyUseCase.Create(ctx, name, path, password)
	if err != nil {
		return fmt.Errorf("failed to create key: %w", err)
	}
	defer key.Expire()

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"id":        key.ID(),
			"name":      key.Name(),
			"path":      key.Path(),
			"protected": password != nil,
		})
	}

	_, _ = fmt.Fprintln(writer, "Key created successfully!")
	_, _ = fmt.Fprintf(writer, "ID: %s\n", key.ID())
	_, _ = fmt.Fprintf(writer, "Name: %s\n", key.Name())
	_, _ = fmt.Fprintf(writer, "Path: %s\n", key.Path())
	if password == nil {
		_, _ = fmt.Fprintln(writer, "\nWARNING: The key is stored without a password.")
	}

	logger.Debug("create-key finished", slog.String("key_id", key.ID()))
	return nil
}
