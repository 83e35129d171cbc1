package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/allisson/keymanager/cmd/app/commands"
	"github.com/allisson/keymanager/internal/app"
	"github.com/allisson/keymanager/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "agent",
			Usage: "Hold keys in memory, discard idle ones, and serve status endpoints",
			Flags: []cli.Flag{
				&cli.StringSliceFlag{
					Name:     "key",
					Aliases:  []string{"k"},
					Required: true,
					Usage:    "Key file to load (repeatable, the first one becomes current)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				if err := cfg.Validate(); err != nil {
					return err
				}
				gin.SetMode(cfg.GetGinMode())

				container := app.NewContainer(cfg)
				logger := container.Logger()
				logger.Info("starting agent", slog.String("version", version))

				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
					defer cancel()
					if err := container.Shutdown(shutdownCtx); err != nil {
						logger.Error("failed to shutdown container", slog.Any("error", err))
					}
				}()

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				return commands.RunAgent(ctx, container, commands.NewPrompter(commands.DefaultIO()), cmd.StringSlice("key"))
			},
		},
	}
}
