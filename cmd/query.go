package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/agrobench/agrobench/internal/api"
	"github.com/agrobench/agrobench/internal/errors"
	"github.com/agrobench/agrobench/internal/types"
)

const requestArgs = " <request.json|->"

func (a *app) queryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "Fetch filtered rows with their total count",
		Description: `Run a query request read from a JSON file, or from stdin with "-".

Example:
  echo '{"table":"plots","select":["id","areaHa"],"filters":[{"field":"soilType","operator":"eq","value":"loam"}],"limit":5}' | agrobench query -`,
		ArgsUsage: requestArgs,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var req types.QueryRequest

			return a.runRequest(ctx, cmd, &req, func(eng *engine) (any, error) {
				return eng.service.Query(ctx, req)
			})
		},
	}
}

func (a *app) medianCommand() *cli.Command {
	return &cli.Command{
		Name:  "median",
		Usage: "Compute the median of a numeric field",
		Description: `Run a median request read from a JSON file, or from stdin with "-".

Example:
  echo '{"table":"indicators","field":"workHoursHa","joins":[{"table":"sdc","field":"id","targetField":"sdcId","filters":[{"field":"type","operator":"eq","value":"Bio"}]}]}' | agrobench median -`,
		ArgsUsage: requestArgs,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var req types.MedianRequest

			return a.runRequest(ctx, cmd, &req, func(eng *engine) (any, error) {
				return eng.service.Median(ctx, req)
			})
		},
	}
}

func (a *app) frequencyCommand() *cli.Command {
	return &cli.Command{
		Name:  "frequency",
		Usage: "Count the distinct values of a field with percentages",
		Description: `Run a frequency request read from a JSON file, or from stdin with "-".

Example:
  echo '{"table":"rotations","field":"crop"}' | agrobench frequency -`,
		ArgsUsage: requestArgs,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var req types.FrequencyRequest

			return a.runRequest(ctx, cmd, &req, func(eng *engine) (any, error) {
				return eng.service.Frequency(ctx, req)
			})
		},
	}
}

// runRequest decodes the request argument into req, opens the engine and
// prints the result of run as JSON
func (a *app) runRequest(ctx context.Context, cmd *cli.Command, req any, run func(*engine) (any, error)) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected exactly 1 argument, got %d", cmd.Args().Len())
	}

	if err := a.readRequest(cmd.Args().First(), req); err != nil {
		return err
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

	resp, err := run(eng)
	if err != nil {
		return err
	}

	return writeJSON(a.out, resp)
}

// readRequest decodes a JSON request from path, or from stdin when path is
// "-", with the same rules as the HTTP API
func (a *app) readRequest(path string, out any) error {
	var (
		data []byte
		err  error
	)

	if path == "-" {
		data, err = io.ReadAll(a.in)
	} else {
		data, err = os.ReadFile(path)
	}

	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeValidation, "failed to read request %s", path)
	}

	return api.DecodeRequest(data, out)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	return nil
}
