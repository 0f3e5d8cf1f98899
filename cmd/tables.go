package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/agrobench/agrobench/internal/registry"
	"github.com/agrobench/agrobench/internal/types"
)

func (a *app) tablesCommand() *cli.Command {
	return &cli.Command{
		Name:        "tables",
		Usage:       "List the queryable tables and their columns",
		Description: `Print every table of the registry. With a table name, print its key and typed columns.`,
		ArgsUsage:   " [table]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print JSON instead of text"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			reg := registry.Default()
			asJSON := cmd.Bool("json")

			if cmd.Args().Len() > 1 {
				return fmt.Errorf("expected at most 1 argument, got %d", cmd.Args().Len())
			}

			if name := cmd.Args().First(); name != "" {
				desc, err := reg.Describe(name)
				if err != nil {
					return err
				}

				if asJSON {
					return writeJSON(a.out, desc)
				}

				printDescription(a.out, desc)

				return nil
			}

			tables := reg.ListAll()
			if asJSON {
				return writeJSON(a.out, tables)
			}

			printTables(a.out, tables)

			return nil
		},
	}
}

func printTables(w io.Writer, tables []types.TableInfo) {
	fmt.Fprintf(w, "Tables (%d)\n", len(tables))
	fmt.Fprintf(w, "==========\n\n")

	for _, t := range tables {
		fmt.Fprintf(w, "%-14s %s\n", t.Name, strings.Join(t.Columns, ", "))
	}
}

func printDescription(w io.Writer, desc types.TableDescription) {
	fmt.Fprintf(w, "Table: %s\n", desc.Name)
	fmt.Fprintf(w, "Key: %s\n\n", desc.Key)

	for _, col := range desc.Columns {
		fmt.Fprintf(w, "  %-20s %s\n", col.Name, col.Type)
	}
}
