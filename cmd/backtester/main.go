package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/findwinds/QuantCode/log"
	"github.com/urfave/cli/v2"
)

const version = "v0.1.0"

func main() {
	app := cli.NewApp()
	app.Name = "backtester"
	app.Version = version
	app.EnableBashCompletion = true
	app.Usage = "replay historical futures bars through a strategy and a simulated broker"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "loglevel",
			Value: "INFO|WARN|ERROR",
			Usage: "pipe separated log levels used when a config sets no log settings",
		},
	}
	app.Before = func(c *cli.Context) error {
		cfg := log.GenDefaultSettings()
		cfg.Level = c.String("loglevel")
		return log.SetupGlobalLogger(&cfg)
	}
	app.Commands = []*cli.Command{
		runCommand,
		validateCommand,
		strategiesCommand,
		migrateCommand,
		importCommand,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}
