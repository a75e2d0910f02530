package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/logging"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	if err := newApp(os.Stdout).Run(context.Background(), args); err != nil {
		fmt.Fprintln(os.Stderr, "assetd:", err)
		os.Exit(1)
	}
}

func newApp(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "assetd",
		Usage: "Asset checkout, checkin and reservation service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error", Sources: cli.EnvVars("ASSETD_LOG_LEVEL")},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			importCommand(),
			operatorCommand(stdout),
		},
	}
}

func newLogger(c *cli.Command) (*slog.Logger, error) {
	logger, err := logging.New(os.Stderr, c.String("log-level"))
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}
