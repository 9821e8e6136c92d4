package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dukerupert/adoptrack/internal/config"
	"github.com/dukerupert/adoptrack/internal/logging"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "adoptrack",
		Usage: "Shelter adoption tracking with daily report sweeps",
		Commands: []*cli.Command{
			serveCommand,
			sweepCommand,
			seedCommand,
			vapidCommand,
			hashTokenCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads ADOPTRACK_* settings and installs the configured logger as
// the default.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logging.Setup(cfg.LogLevel, cfg.LogFormat), nil
}
