package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/keymanager/cmd/app/commands"
	"github.com/allisson/keymanager/internal/app"
	"github.com/allisson/keymanager/internal/config"
)

func fileFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "key",
			Aliases:  []string{"k"},
			Required: true,
			Usage:    "Key file",
		},
		&cli.StringFlag{
			Name:     "output-dir",
			Aliases:  []string{"o"},
			Required: true,
			Usage:    "Directory receiving the processed files",
		},
		formatFlag(),
	}
}

func getFileCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "encrypt-files",
			Usage:     "Encrypt files with a key",
			ArgsUsage: "FILE...",
			Flags:     fileFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				keyUseCase, err := container.KeyUseCase()
				if err != nil {
					return err
				}
				fileUseCase, err := container.FileUseCase()
				if err != nil {
					return err
				}

				io := commands.DefaultIO()
				return commands.RunEncryptFiles(
					ctx,
					keyUseCase,
					fileUseCase,
					container.Logger(),
					commands.NewPrompter(io),
					io.Writer,
					cmd.String("key"),
					cmd.String("output-dir"),
					cmd.Args().Slice(),
					cmd.String("format"),
				)
			},
		},
		{
			Name:      "decrypt-files",
			Usage:     "Decrypt files with a key",
			ArgsUsage: "FILE...",
			Flags:     fileFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				keyUseCase, err := container.KeyUseCase()
				if err != nil {
					return err
				}
				fileUseCase, err := container.FileUseCase()
				if err != nil {
					return err
				}

				io := commands.DefaultIO()
				return commands.RunDecryptFiles(
					ctx,
					keyUseCase,
					fileUseCase,
					container.Logger(),
					commands.NewPrompter(io),
					io.Writer,
					cmd.String("key"),
					cmd.String("output-dir"),
					cmd.Args().Slice(),
					cmd.String("format"),
				)
			},
		},
	}
}
