package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/agrobench/agrobench/internal/config"
	"github.com/agrobench/agrobench/internal/errors"
)

func (a *app) configCommand() *cli.Command {
	return &cli.Command{
		Name:        "config",
		Usage:       "Display the active configuration",
		Description: `Show the configuration resolved from the config file, AGROBENCH_* environment variables and command-line flags.`,
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			return printConfig(a.out, cfg)
		},
	}
}

func printConfig(w io.Writer, cfg *config.Config) error {
	if cfg == nil {
		return errors.NewConfigError("failed to load configuration", "")
	}

	fmt.Fprintln(w, "Active Configuration:")
	fmt.Fprintln(w, "=====================")

	fmt.Fprintln(w, "\nDatabase:")
	fmt.Fprintf(w, "  Driver: %s\n", cfg.Database.Driver)

	if cfg.Database.Driver == "postgres" || cfg.Database.Driver == "pgx" {
		fmt.Fprintf(w, "  DSN: %s\n", redactDSN(cfg.Database.DSN))
	} else {
		fmt.Fprintf(w, "  Path: %s\n", cfg.Database.Path)
	}

	fmt.Fprintf(w, "  Max Connections: %d\n", cfg.Database.MaxConnections)
	fmt.Fprintf(w, "  Max Idle Connections: %d\n", cfg.Database.MaxIdleConns)

	fmt.Fprintln(w, "\nServer:")
	fmt.Fprintf(w, "  Address: %s\n", cfg.Server.Address())
	fmt.Fprintf(w, "  CORS Origin: %s\n", cfg.Server.CORSOrigin)
	fmt.Fprintf(w, "  Rate Limit: %d/min (burst %d)\n", cfg.Server.RateLimitPerMinute, cfg.Server.RateLimitBurst)

	fmt.Fprintln(w, "\nPrediction:")

	if cfg.Prediction.URL != "" {
		fmt.Fprintf(w, "  URL: %s\n", cfg.Prediction.URL)
	} else {
		fmt.Fprintln(w, "  URL: (not configured)")
	}

	fmt.Fprintf(w, "  Timeout: %s\n", cfg.Prediction.Timeout)

	fmt.Fprintln(w, "\nLogging:")
	fmt.Fprintf(w, "  Level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(w, "  Format: %s\n", cfg.Logging.Format)
	fmt.Fprintf(w, "  Output: %s\n", cfg.Logging.Output)

	if cfg.Logging.Output == "file" {
		fmt.Fprintf(w, "  File: %s\n", cfg.Logging.File)
	}

	fmt.Fprintln(w, "\nDebug:")
	fmt.Fprintf(w, "  Enabled: %t\n", cfg.Debug.Enabled)
	fmt.Fprintf(w, "  Verbose: %t\n", cfg.Debug.Verbose)

	if cfg.Debug.Enabled {
		fmt.Fprintln(w, "\nRaw Configuration (JSON):")

		redacted := *cfg
		if redacted.Database.DSN != "" {
			redacted.Database.DSN = redactDSN(redacted.Database.DSN)
		}

		data, err := json.MarshalIndent(redacted, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}

		fmt.Fprintln(w, string(data))
	}

	return nil
}

// redactDSN hides connection strings, which usually carry a password
func redactDSN(dsn string) string {
	if dsn == "" {
		return "(not set)"
	}

	return "********"
}
