// Package cmd implements the agrobench command line
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/agrobench/agrobench/internal/config"
	"github.com/agrobench/agrobench/internal/errors"
	"github.com/agrobench/agrobench/internal/logging"
	"github.com/agrobench/agrobench/internal/query"
	"github.com/agrobench/agrobench/internal/registry"
	"github.com/agrobench/agrobench/internal/service"
	"github.com/agrobench/agrobench/internal/storage"
)

// app carries the streams shared by every command
type app struct {
	in  io.Reader
	out io.Writer
}

// NewRootCommand builds the command tree reading from in and printing to out
func NewRootCommand(in io.Reader, out io.Writer) *cli.Command {
	a := &app{in: in, out: out}

	return &cli.Command{
		Name:  "agrobench",
		Usage: "Query agronomic benchmark data: filtered rows, medians and distributions",
		Description: `agrobench serves a schema-driven query engine over a DuckDB or PostgreSQL database
of farms, cropping systems, plots, rotations, interventions and indicators.
Every table and column is validated against a registry before any SQL runs.`,
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db-driver", Usage: "database driver (duckdb, postgres)"},
			&cli.StringFlag{Name: "db-path", Usage: "DuckDB database file"},
			&cli.StringFlag{Name: "db-dsn", Usage: "PostgreSQL connection string"},
			&cli.StringFlag{Name: "log-level", Usage: "log level (debug, info, warn, error)"},
			&cli.BoolFlag{Name: "verbose", Usage: "show detailed output"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug mode"},
		},
		Commands: []*cli.Command{
			a.serveCommand(),
			a.tablesCommand(),
			a.queryCommand(),
			a.medianCommand(),
			a.frequencyCommand(),
			a.seedCommand(),
			a.configCommand(),
		},
	}
}

// Execute runs the CLI with the process arguments
func Execute() error {
	root := NewRootCommand(os.Stdin, os.Stdout)

	err := root.Run(context.Background(), os.Args)
	if err != nil {
		printError(os.Stderr, err)
	}

	return err
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	if structErr, ok := errors.As(err); ok && len(structErr.Suggestions) > 0 {
		fmt.Fprintln(w, "Suggestions:")

		for _, s := range structErr.Suggestions {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
}

// loadConfig resolves the configuration with the global flags applied and
// installs the logger it describes
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	overrides := map[string]any{
		"db-driver": cmd.String("db-driver"),
		"db-path":   cmd.String("db-path"),
		"db-dsn":    cmd.String("db-dsn"),
		"log-level": cmd.String("log-level"),
	}

	if cmd.IsSet("verbose") {
		overrides["verbose"] = cmd.Bool("verbose")
	}

	if cmd.IsSet("debug") {
		overrides["debug"] = cmd.Bool("debug")
	}

	cfg, err := config.LoadConfigWithOverrides(overrides)
	if err != nil {
		logging.SetupFallbackLogger()
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "failed to load configuration")
	}

	cfg.ExpandAllPaths()

	if cfg.Debug.Enabled {
		cfg.Logging.Level = "debug"
	}

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		logging.SetupFallbackLogger()
		logging.ErrorWithErr("Failed to initialize logger, using fallback", err)
	}

	return cfg, nil
}

// engine bundles an open database with the service running on it
type engine struct {
	db      *storage.DB
	service *service.Service
}

func (e *engine) Close() error {
	return e.db.Close()
}

// openEngine connects to the configured database, applies migrations and
// builds the query service over the default registry
func openEngine(ctx context.Context, cfg *config.Config) (*engine, error) {
	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeStorage, "failed to open database")
	}

	if cfg.Debug.Enabled {
		db.SetQueryHook(func(_ context.Context, query string) {
			logging.Debugf("SQL: %s", query)
		})
	}

	if err := db.Initialize(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrTypeStorage, "failed to initialize database schema")
	}

	logSchemaStatus(ctx, db)

	return &engine{
		db:      db,
		service: service.New(registry.Default(), query.NewExecutor(db)),
	}, nil
}

func logSchemaStatus(ctx context.Context, db *storage.DB) {
	status, err := storage.NewMigrationManager(db).GetMigrationStatus(ctx)
	if err != nil {
		logging.WithField("driver", db.Dialect().Name()).ErrorWithErr("Failed to read schema status", err)
		return
	}

	applied := 0
	for _, ok := range status {
		if ok {
			applied++
		}
	}

	if applied < len(status) {
		logging.Warnf("Schema is behind: %d of %d migrations applied", applied, len(status))
		return
	}

	logging.WithField("driver", db.Dialect().Name()).
		Debugf("Schema up to date: %d migrations applied", applied)
}
