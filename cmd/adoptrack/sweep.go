package main

import (
	"context"
	"fmt"

	"github.com/dukerupert/adoptrack/internal/database"
	"github.com/dukerupert/adoptrack/internal/server"
	"github.com/dukerupert/adoptrack/internal/sweep"

	"github.com/urfave/cli/v2"
)

var sweepCommand = &cli.Command{
	Name:      "sweep",
	Usage:     "Run one sweep now",
	ArgsUsage: "compliance|completion",
	Action: func(c *cli.Context) error {
		name := c.Args().First()
		if name != sweep.NameCompliance && name != sweep.NameCompletion {
			return fmt.Errorf("sweep: want %q or %q, got %q", sweep.NameCompliance, sweep.NameCompletion, name)
		}

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		srv, err := server.New(db, cfg, logger)
		if err != nil {
			return err
		}

		run := srv.Sweeper().Compliance
		if name == sweep.NameCompletion {
			run = srv.Sweeper().Completion
		}
		res, err := run(context.Background())
		if err != nil {
			return err
		}
		logger.Info("sweep finished", "sweep", name, "result", fmt.Sprintf("%+v", res))
		return nil
	},
}
