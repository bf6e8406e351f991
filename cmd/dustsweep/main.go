package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

const defaultConfigPath = "config.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "dustsweep",
		Usage: "find low-value token balances and convert them to SOL",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: defaultConfigPath, Usage: "path to YAML config"},
			&cli.StringFlag{Name: "account", Aliases: []string{"a"}, Usage: "account to inspect (defaults to the signing key's account)"},
			&cli.StringSliceFlag{Name: "skip", Usage: "mint to leave untouched, repeatable"},
		},
		Commands: []*cli.Command{
			{
				Name:   "discover",
				Usage:  "list dust holdings without converting anything",
				Action: discoverAction,
			},
			{
				Name:  "sweep",
				Usage: "discover dust holdings, pick which to keep, and convert the rest",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "convert every dust holding without prompting"},
				},
				Action: sweepAction,
			},
		},
	}
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
