package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/iudanet/daybook/internal/client/app"
	"github.com/iudanet/daybook/internal/client/cli"
	"github.com/iudanet/daybook/internal/client/config"
	"github.com/iudanet/daybook/internal/client/iocli"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	console := iocli.NewStdio()

	c := cli.New(load, console, cli.VersionInfo{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
	})

	if err := c.Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// load собирает клиент для команды
func load(ctx context.Context, cfg *config.Config, console iocli.IO, logger *slog.Logger) (*cli.Runtime, error) {
	a, err := app.New(ctx, cfg, console, logger)
	if err != nil {
		return nil, err
	}
	return &cli.Runtime{
		Auth:   a.Auth(),
		Data:   a.Data(),
		Sync:   a,
		Daemon: a,
		Close:  a.Close,
	}, nil
}
