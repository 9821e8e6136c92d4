package main

import (
	"errors"
	"fmt"

	"github.com/dukerupert/adoptrack/internal/push"

	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"
)

var vapidCommand = &cli.Command{
	Name:  "vapid",
	Usage: "Generate a VAPID key pair for web push",
	Action: func(c *cli.Context) error {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "ADOPTRACK_VAPID_PUBLIC_KEY=%s\nADOPTRACK_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return nil
	},
}

var hashTokenCommand = &cli.Command{
	Name:      "hash-token",
	Usage:     "Print a staff token entry for ADOPTRACK_STAFF_TOKENS",
	ArgsUsage: "NAME TOKEN",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "cost",
			Usage: "bcrypt cost",
			Value: bcrypt.DefaultCost,
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return errors.New("hash-token: want NAME TOKEN")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(c.Args().Get(1)), c.Int("cost"))
		if err != nil {
			return fmt.Errorf("hash token: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "%s:%s\n", c.Args().Get(0), hash)
		return nil
	},
}
