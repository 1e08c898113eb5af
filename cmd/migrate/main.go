package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tassosgomes/GestAuto-sub000/internal/config"
	"github.com/tassosgomes/GestAuto-sub000/internal/database"
)

// runner is the part of *database.MigrationRunner the commands use
type runner interface {
	Up() error
	Down(steps int) error
	Version() (version uint, dirty bool, ok bool, err error)
	Close() error
}

// openRunner is replaced in tests
var openRunner = func(databaseURL string) (runner, error) {
	return database.NewMigrationRunner(databaseURL)
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "migrate",
		Usage:     "manage the sales database schema",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "postgres:// URL; defaults to the DB_* environment",
				EnvVars: []string{"DATABASE_URL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply every pending migration",
				Action: withRunner(func(c *cli.Context, r runner) error {
					if err := r.Up(); err != nil {
						return err
					}
					return printVersion(c, r)
				}),
			},
			{
				Name:  "down",
				Usage: "roll back migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Value: 1, Usage: "migrations to roll back; 0 rolls back everything"},
				},
				Action: withRunner(func(c *cli.Context, r runner) error {
					if err := r.Down(c.Int("steps")); err != nil {
						return err
					}
					return printVersion(c, r)
				}),
			},
			{
				Name:   "version",
				Usage:  "print the applied schema version",
				Action: withRunner(printVersion),
			},
		},
	}
}

func withRunner(action func(c *cli.Context, r runner) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		databaseURL := c.String("database-url")
		if databaseURL == "" {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			databaseURL = cfg.Database.URL()
		}

		r, err := openRunner(databaseURL)
		if err != nil {
			return err
		}
		defer r.Close()
		return action(c, r)
	}
}

func printVersion(c *cli.Context, r runner) error {
	version, dirty, ok, err := r.Version()
	if err != nil {
		return err
	}
	switch {
	case !ok:
		fmt.Fprintln(c.App.Writer, "schema version: none")
	case dirty:
		fmt.Fprintf(c.App.Writer, "schema version: %d (dirty)\n", version)
	default:
		fmt.Fprintf(c.App.Writer, "schema version: %d\n", version)
	}
	return nil
}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
}
