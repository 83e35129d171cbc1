package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/keymanager/cmd/app/commands"
	"github.com/allisson/keymanager/internal/app"
	"github.com/allisson/keymanager/internal/config"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-key",
			Usage: "Generate a new key and save it to a key file",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Human-readable key name",
				},
				&cli.StringFlag{
					Name:     "path",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "Key file to create (must not exist)",
				},
				&cli.BoolFlag{
					Name:  "no-password",
					Usage: "Store the key without password protection",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				keyUseCase, err := container.KeyUseCase()
				if err != nil {
					return err
				}

				io := commands.DefaultIO()
				return commands.RunCreateKey(
					ctx,
					keyUseCase,
					container.Logger(),
					commands.NewPrompter(io),
					io.Writer,
					cmd.String("name"),
					cmd.String("path"),
					cmd.Bool("no-password"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "key-info",
			Usage: "Show the metadata of a key file",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "path",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "Key file",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				keyUseCase, err := container.KeyUseCase()
				if err != nil {
					return err
				}

				io := commands.DefaultIO()
				return commands.RunKeyInfo(
					ctx,
					keyUseCase,
					container.Logger(),
					commands.NewPrompter(io),
					io.Writer,
					cmd.String("path"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "change-password",
			Usage: "Change or remove the password of a key file",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "path",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "Key file",
				},
				&cli.BoolFlag{
					Name:  "remove-password",
					Usage: "Save the key without password protection",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				keyUseCase, err := container.KeyUseCase()
				if err != nil {
					return err
				}

				return commands.RunChangePassword(
					ctx,
					keyUseCase,
					container.Logger(),
					commands.NewPrompter(commands.DefaultIO()),
					cmd.String("path"),
					cmd.Bool("remove-password"),
				)
			},
		},
	}
}
