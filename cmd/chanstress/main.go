// Command chanstress runs the classic channel torture tests against the
// channel package and optionally serves Prometheus metrics while doing so.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "chanstress",
		Usage: "Stress tests for github.com/Swind/go-channel",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level: debug, info, warn or error",
				EnvVars: []string{"CHANSTRESS_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:  "runner",
				Value: "loop",
				Usage: "Where matching passes run: loop (one dedicated goroutine) or pool (sequenced runner on a worker pool)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Value: 4,
				Usage: "Worker count for --runner pool",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address (e.g. :2112)",
			},
			&cli.DurationFlag{
				Name:  "linger",
				Usage: "Keep the metrics endpoint up this long after the run",
			},
		},

		Before: setup,
		After:  teardown,

		Commands: []*cli.Command{
			fifoCommand(),
			goroutinesCommand(),
			selectCommand(),
			doubleSelectCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
