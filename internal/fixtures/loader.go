// Package fixtures seeds the store from YAML documents keyed by logical table
// and column names:
//
//	plots:
//	  - {id: 1, sdcId: 1, name: Les Grands Champs, areaHa: 12.5}
//
// Tables and columns are validated through the registry and rows are inserted
// in document order inside a single transaction.
package fixtures

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agrobench/agrobench/internal/errors"
	"github.com/agrobench/agrobench/internal/registry"
	"github.com/agrobench/agrobench/internal/storage"
)

// Sample is the bundled demonstration dataset
//
//go:embed sample.yaml
var Sample []byte

// Result reports how many rows were inserted per table, in document order
type Result struct {
	Tables []TableCount
}

// TableCount is the number of rows inserted into one table
type TableCount struct {
	Table string
	Rows  int
}

// Total returns the number of rows inserted overall
func (r Result) Total() int {
	n := 0
	for _, t := range r.Tables {
		n += t.Rows
	}

	return n
}

// Option customizes Load
type Option func(*options)

type options struct {
	progress func(table string, inserted, total int)
}

// WithProgress reports every inserted row
func WithProgress(fn func(table string, inserted, total int)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

type tableRows struct {
	table *registry.Table
	rows  []*yaml.Node
}

// Load parses a fixture document and inserts its rows. Nothing is written
// unless the whole document is valid and every insert succeeds.
func Load(ctx context.Context, db *storage.DB, reg *registry.Registry, r io.Reader, opts ...Option) (Result, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return Result{}, nil
		}

		return Result{}, errors.Wrap(err, errors.ErrTypeValidation, "failed to parse fixture document")
	}

	sections, err := parseSections(&doc, reg)
	if err != nil {
		return Result{}, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, errors.Wrap(err, errors.ErrTypeStorage, "failed to start fixture transaction")
	}

	defer func() { _ = tx.Rollback() }()

	var result Result

	for _, section := range sections {
		for i, node := range section.rows {
			stmt, args, err := insertStatement(section.table, node)
			if err != nil {
				return Result{}, fmt.Errorf("%s row %d: %w", section.table.Name, i+1, err)
			}

			if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
				return Result{}, errors.Wrapf(err, errors.ErrTypeStorage,
					"failed to insert %s row %d", section.table.Name, i+1)
			}

			if o.progress != nil {
				o.progress(section.table.Name, i+1, len(section.rows))
			}
		}

		result.Tables = append(result.Tables, TableCount{Table: section.table.Name, Rows: len(section.rows)})
	}

	if err := tx.Commit(); err != nil {
		return Result{}, errors.Wrap(err, errors.ErrTypeStorage, "failed to commit fixtures")
	}

	return result, nil
}

// LoadFile loads a fixture document from disk
func LoadFile(ctx context.Context, db *storage.DB, reg *registry.Registry, path string, opts ...Option) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read fixture file: %w", err)
	}

	return Load(ctx, db, reg, bytes.NewReader(data), opts...)
}

// LoadSample loads the bundled demonstration dataset
func LoadSample(ctx context.Context, db *storage.DB, reg *registry.Registry, opts ...Option) (Result, error) {
	return Load(ctx, db, reg, bytes.NewReader(Sample), opts...)
}

func parseSections(doc *yaml.Node, reg *registry.Registry) ([]tableRows, error) {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New(errors.ErrTypeValidation, "fixture document is empty")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.Newf(errors.ErrTypeValidation,
			"line %d: fixture document must map table names to rows", root.Line)
	}

	sections := make([]tableRows, 0, len(root.Content)/2)

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]

		table, err := reg.Resolve(key.Value)
		if err != nil {
			return nil, err
		}

		if value.Kind != yaml.SequenceNode {
			return nil, errors.Newf(errors.ErrTypeValidation,
				"line %d: rows of %s must be a list", value.Line, table.Name)
		}

		for _, row := range value.Content {
			if row.Kind != yaml.MappingNode {
				return nil, errors.Newf(errors.ErrTypeValidation,
					"line %d: each %s row must be a mapping", row.Line, table.Name)
			}

			hasKey := false
			for j := 0; j < len(row.Content); j += 2 {
				col, err := table.MustColumn(row.Content[j].Value)
				if err != nil {
					return nil, err
				}

				hasKey = hasKey || col.Name == table.Key
			}

			if !hasKey {
				return nil, errors.Newf(errors.ErrTypeValidation,
					"line %d: %s row has no %q value", row.Line, table.Name, table.Key)
			}
		}

		sections = append(sections, tableRows{table: table, rows: value.Content})
	}

	return sections, nil
}

func insertStatement(table *registry.Table, row *yaml.Node) (string, []any, error) {
	n := len(row.Content) / 2
	cols := make([]string, 0, n)
	marks := make([]string, 0, n)
	args := make([]any, 0, n)

	for j := 0; j+1 < len(row.Content); j += 2 {
		col, err := table.MustColumn(row.Content[j].Value)
		if err != nil {
			return "", nil, err
		}

		var value any
		if err := row.Content[j+1].Decode(&value); err != nil {
			return "", nil, errors.Wrapf(err, errors.ErrTypeValidation, "invalid value for %s", col.Name)
		}

		if t, ok := value.(time.Time); ok {
			value = t.Format("2006-01-02")
		}

		cols = append(cols, registry.QuoteIdent(col.Physical))
		args = append(args, value)

		if col.Type == registry.TypeDate {
			marks = append(marks, "CAST(? AS DATE)")
		} else {
			marks = append(marks, "?")
		}
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table.Ref(), strings.Join(cols, ", "), strings.Join(marks, ", "))

	return stmt, args, nil
}
