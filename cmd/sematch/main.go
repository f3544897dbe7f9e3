package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

var log zerolog.Logger

func main() {
	app := &cli.App{
		Name:  "sematch",
		Usage: "Structural and topic matching over annotated documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Import serialized documents from a directory into the store",
				ArgsUsage: "<directory>",
				Action:    importCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to the document store",
						Required: true,
					},
				},
			},
			{
				Name:   "ls",
				Usage:  "List the document labels in the store",
				Action: lsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to the document store",
						Required: true,
					},
				},
			},
			{
				Name:      "topic",
				Usage:     "Rank the stored documents against a query document",
				ArgsUsage: "<query.json>",
				Action:    topicCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to the document store",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of matching workers",
						Value: 1,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Overall embedding similarity threshold, 1 disables embeddings",
						Value: 1.0,
					},
					&cli.IntFlag{
						Name:  "results",
						Usage: "Maximum number of results",
						Value: 10,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Match a search phrase against the stored documents",
				ArgsUsage: "<phrase.json>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to the document store",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "label",
						Usage: "Label for the search phrase",
						Value: "search",
					},
				},
			},
			{
				Name:   "console",
				Usage:  "Interactive topic matching or structural search",
				Action: consoleCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to the document store",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Console mode: topic or search",
						Value: "topic",
					},
					&cli.StringFlag{
						Name:  "queries",
						Usage: "Directory with serialized query documents",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "sematch: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger(c *cli.Context) error {
	level, err := zerolog.ParseLevel(c.String("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.String("log-level"), err)
	}
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
	return nil
}
