package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"

	"github.com/agrobench/agrobench/internal/fixtures"
	"github.com/agrobench/agrobench/internal/logging"
	"github.com/agrobench/agrobench/internal/registry"
)

func (a *app) seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Load a YAML dataset into the database",
		Description: `Insert the rows of a YAML document keyed by table name. Without an argument the
bundled demonstration dataset is loaded. The load is atomic: a single invalid row
or conflicting key leaves the database untouched.`,
		ArgsUsage: " [dataset.yaml]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() > 1 {
				return fmt.Errorf("expected at most 1 argument, got %d", cmd.Args().Len())
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			eng, err := openEngine(ctx, cfg)
			if err != nil {
				return err
			}
			defer eng.Close()

			return a.runSeed(ctx, eng, cmd.Args().First())
		},
	}
}

func (a *app) runSeed(ctx context.Context, eng *engine, path string) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(a.out))
	s.Suffix = " Loading dataset"
	s.Start()

	progress := fixtures.WithProgress(func(table string, inserted, total int) {
		s.Lock()
		s.Suffix = fmt.Sprintf(" %s %d/%d", table, inserted, total)
		s.Unlock()
	})

	var result fixtures.Result

	err := logging.Timed(logging.WithField("file", path), "seed", func() error {
		var err error

		if path == "" {
			result, err = fixtures.LoadSample(ctx, eng.db, registry.Default(), progress)
		} else {
			result, err = fixtures.LoadFile(ctx, eng.db, registry.Default(), path, progress)
		}

		return err
	})

	s.Stop()

	if err != nil {
		return err
	}

	for _, t := range result.Tables {
		fmt.Fprintf(a.out, "  %-14s %d rows\n", t.Table, t.Rows)
	}

	fmt.Fprintf(a.out, "Loaded %d rows into %d tables\n", result.Total(), len(result.Tables))

	return nil
}
