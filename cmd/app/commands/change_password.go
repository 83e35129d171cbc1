package commands

import (
	"context"
	"fmt"
	"log/slog"

	cryptoUseCase "github.com/allisson/keymanager/internal/crypto/usecase"
)

// RunChangePassword re-saves the key at path under a new password, or without one
// when removePassword is set.
func RunChangePassword(
	ctx context.Context,
	keyUseCase cryptoUseCase.KeyUseCase,
	logger *slog.Logger,
	prompter *Prompter,
	path string,
	removePassword bool,
) error {
	oldPassword, err := passwordFor(ctx, keyUseCase, prompter, path)
	if err != nil {
		return err
	}

	var newPassword *string
	if !removePassword {
		p, err := prompter.NewPassword("New password: ")
		if err != nil {
			return err
		}
		newPassword = &p
	}

	if err := keyUseCase.ChangePassword(ctx, path, oldPassword, newPassword); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	logger.Info("password changed",
		slog.String("path", path),
		slog.Bool("protected", newPassword != nil),
	)
	return nil
}
