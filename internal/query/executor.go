// Package query runs compiled predicates against storage: paginated row
// fetches with their total count, and the median and frequency aggregations.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agrobench/agrobench/internal/errors"
	"github.com/agrobench/agrobench/internal/filter"
	"github.com/agrobench/agrobench/internal/registry"
	"github.com/agrobench/agrobench/internal/storage"
	"github.com/agrobench/agrobench/internal/types"
)

const dateLayout = "2006-01-02"

// Page is one slice of matching rows plus the number of rows matching overall
type Page struct {
	Rows  []types.Row
	Total int64
}

// Executor runs queries built from registry descriptors and compiled
// predicates. It is safe for concurrent use.
type Executor struct {
	db *storage.DB
}

// NewExecutor creates an executor over db
func NewExecutor(db *storage.DB) *Executor {
	return &Executor{db: db}
}

// FetchRows returns the matching rows ordered by the table key. A limit of
// zero or less fetches every row after offset.
func (e *Executor) FetchRows(
	ctx context.Context,
	table *registry.Table,
	columns []*registry.Column,
	pred filter.Predicate,
	limit, offset int,
) ([]types.Row, error) {
	if len(columns) == 0 {
		columns = allColumns(table)
	}

	projection := make([]string, len(columns))
	for i, col := range columns {
		projection[i] = col.Expr(filter.TargetAlias) + " AS " + registry.QuoteIdent(col.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s AS %s%s ORDER BY %s",
		strings.Join(projection, ", "),
		table.Ref(),
		registry.QuoteIdent(filter.TargetAlias),
		pred.Where(),
		table.KeyColumn().Expr(filter.TargetAlias),
	)

	args := append([]any(nil), pred.Args...)

	if limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	b.WriteString(" OFFSET ?")
	args = append(args, offset)

	rows, err := e.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeStorage, "failed to fetch rows from %s", table.Name)
	}

	defer rows.Close()

	result := []types.Row{}

	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeStorage, "failed to scan row from %s", table.Name)
		}

		row := make(types.Row, len(columns))
		for i, col := range columns {
			row[col.Name] = normalize(col, values[i])
		}

		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeStorage, "failed to read rows from %s", table.Name)
	}

	return result, nil
}

// CountRows returns the number of rows matching pred
func (e *Executor) CountRows(ctx context.Context, table *registry.Table, pred filter.Predicate) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s AS %s%s",
		table.Ref(), registry.QuoteIdent(filter.TargetAlias), pred.Where())

	var total int64
	if err := e.db.QueryRowContext(ctx, query, pred.Args...).Scan(&total); err != nil {
		return 0, errors.Wrapf(err, errors.ErrTypeStorage, "failed to count rows in %s", table.Name)
	}

	return total, nil
}

// Fetch runs FetchRows and CountRows concurrently and waits for both. The
// total always comes from the count, never from the page.
func (e *Executor) Fetch(
	ctx context.Context,
	table *registry.Table,
	columns []*registry.Column,
	pred filter.Predicate,
	limit, offset int,
) (Page, error) {
	var page Page

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := e.FetchRows(gctx, table, columns, pred, limit, offset)
		page.Rows = rows
		return err
	})

	g.Go(func() error {
		total, err := e.CountRows(gctx, table, pred)
		page.Total = total
		return err
	})

	if err := g.Wait(); err != nil {
		return Page{}, err
	}

	return page, nil
}

func allColumns(table *registry.Table) []*registry.Column {
	cols := make([]*registry.Column, len(table.Columns))
	for i := range table.Columns {
		cols[i] = &table.Columns[i]
	}

	return cols
}

// normalize turns driver values into JSON-friendly ones
func normalize(col *registry.Column, v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		if col.Type == registry.TypeDate {
			return val.Format(dateLayout)
		}

		return val
	case sql.RawBytes:
		return string(val)
	default:
		return v
	}
}
