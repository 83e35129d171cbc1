package commands

import (
	"context"
	"fmt"
	"log/slog"

	validation "github.com/jellydator/validation"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/keymanager/internal/app"
	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
	"github.com/allisson/keymanager/internal/registry"
	"github.com/allisson/keymanager/internal/watchdog"
)

// RunAgent loads the keys at keyPaths, makes the first one current, and keeps them
// in memory under the idle watchdog while serving the status endpoints. It blocks
// until ctx is done or the HTTP server fails.
func RunAgent(
	ctx context.Context,
	container *app.Container,
	prompter *Prompter,
	keyPaths []string,
) error {
	cfg := container.Config()
	logger := container.Logger()

	if err := validation.Validate(keyPaths, validation.Required); err != nil {
		return fmt.Errorf("key paths: %w", err)
	}

	keyUseCase, err := container.KeyUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize key use case: %w", err)
	}
	wd, err := container.Watchdog()
	if err != nil {
		return fmt.Errorf("failed to initialize watchdog: %w", err)
	}
	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}
	reg := container.Registry()

	defer subscribeAgentEvents(reg, wd, logger)()

	for _, path := range keyPaths {
		password, err := passwordFor(ctx, keyUseCase, prompter, path)
		if err != nil {
			return err
		}
		key, err := keyUseCase.Load(ctx, path, password)
		if err != nil {
			return fmt.Errorf("failed to load key %s: %w", path, err)
		}
		if err := reg.Add(key); err != nil {
			key.Expire()
			return fmt.Errorf("failed to register key %s: %w", path, err)
		}
	}
	if err := reg.SetCurrent(reg.Keys()[0]); err != nil {
		return err
	}

	logger.Info("agent started",
		slog.Int("keys", reg.Len()),
		slog.Duration("idle_timeout", wd.Threshold()),
	)

	g, gctx := errgroup.WithContext(ctx)

	wd.Start(gctx)
	g.Go(func() error {
		<-wd.Done()
		return nil
	})
	g.Go(func() error {
		return server.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown http server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("agent stopped")
	return nil
}

// subscribeAgentEvents logs registry and watchdog events and returns a function
// removing every subscription.
func subscribeAgentEvents(
	reg *registry.Registry,
	wd *watchdog.Watchdog,
	logger *slog.Logger,
) func() {
	unsubscribe := []func(){
		reg.OnKeyAdded(func(key *cryptoDomain.Key) {
			logger.Info("key loaded", slog.String("key_id", key.ID()), slog.String("name", key.Name()))
		}),
		reg.OnKeyRemoved(func(key *cryptoDomain.Key) {
			logger.Info("key unloaded", slog.String("key_id", key.ID()))
		}),
		reg.OnCurrentChanged(func(change registry.CurrentChange) {
			attrs := []any{}
			if change.Previous != nil {
				attrs = append(attrs, slog.String("previous_key_id", change.Previous.ID()))
			}
			if change.Current != nil {
				attrs = append(attrs, slog.String("key_id", change.Current.ID()))
			}
			logger.Info("current key changed", attrs...)
		}),
		wd.OnInvalidate(func(key *cryptoDomain.Key) {
			logger.Warn("key timed out", slog.String("key_id", key.ID()), slog.String("path", key.Path()))
		}),
		wd.OnStatus(func(key *cryptoDomain.Key) {
			if key == nil {
				logger.Debug("no current key")
				return
			}
			logger.Debug("current key status",
				slog.String("key_id", key.ID()),
				slog.Bool("timed_out", key.IsTimedOut()),
			)
		}),
	}

	return func() {
		for _, fn := range unsubscribe {
			fn()
		}
	}
}
