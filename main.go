package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "price-monitor",
		Usage:   "Scrape retail prices and flag suspicious or erroneous discounts",
		Version: version,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "mock",
				Usage:   "Use the synthetic catalogue instead of the live site",
				EnvVars: []string{"USE_MOCK_DATA"},
			},
		},

		Commands: []*cli.Command{
			initCommand(),
			scrapeCommand(),
			analyzeCommand(),
			runCommand(),
			monitorCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
