package query

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/agrobench/agrobench/internal/errors"
	"github.com/agrobench/agrobench/internal/filter"
	"github.com/agrobench/agrobench/internal/registry"
)

// MedianResult holds the interpolated median and the number of non-null
// values it was computed over. Median is nil when Count is zero.
type MedianResult struct {
	Median *float64
	Count  int64
}

// FrequencyBucket is one distinct value and how many matching rows hold it
type FrequencyBucket struct {
	Value any
	Count int64
}

// Median computes the continuous 50th percentile of column over matching rows
func (e *Executor) Median(
	ctx context.Context,
	table *registry.Table,
	column *registry.Column,
	pred filter.Predicate,
) (MedianResult, error) {
	expr := column.Expr(filter.TargetAlias)
	query := fmt.Sprintf("SELECT %s, COUNT(%s) FROM %s AS %s%s",
		e.db.Dialect().Median(expr),
		expr,
		table.Ref(),
		registry.QuoteIdent(filter.TargetAlias),
		pred.Where(),
	)

	var (
		median sql.NullFloat64
		count  int64
	)

	if err := e.db.QueryRowContext(ctx, query, pred.Args...).Scan(&median, &count); err != nil {
		return MedianResult{}, errors.Wrapf(err, errors.ErrTypeStorage,
			"failed to compute median of %s.%s", table.Name, column.Name)
	}

	result := MedianResult{Count: count}
	if median.Valid && count > 0 {
		m := median.Float64
		result.Median = &m
	}

	return result, nil
}

// Frequency counts matching rows per distinct value of column, NULL being a
// bucket of its own. Buckets come ordered by count descending, then value.
// With asBoolean, values are bucketed as zero (false) or non-zero (true),
// NULL counting as zero, and both buckets are always returned.
func (e *Executor) Frequency(
	ctx context.Context,
	table *registry.Table,
	column *registry.Column,
	pred filter.Predicate,
	asBoolean bool,
) ([]FrequencyBucket, error) {
	expr := column.Expr(filter.TargetAlias)
	if asBoolean {
		expr = fmt.Sprintf("(COALESCE(%s, 0) <> 0)", expr)
	}

	query := fmt.Sprintf(
		"SELECT %s AS bucket, COUNT(*) AS n FROM %s AS %s%s GROUP BY 1 ORDER BY 2 DESC, 1 ASC NULLS LAST",
		expr,
		table.Ref(),
		registry.QuoteIdent(filter.TargetAlias),
		pred.Where(),
	)

	rows, err := e.db.QueryContext(ctx, query, pred.Args...)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeStorage,
			"failed to compute frequency of %s.%s", table.Name, column.Name)
	}

	defer rows.Close()

	buckets := []FrequencyBucket{}

	for rows.Next() {
		var (
			value any
			count int64
		)

		if err := rows.Scan(&value, &count); err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeStorage,
				"failed to scan frequency of %s.%s", table.Name, column.Name)
		}

		buckets = append(buckets, FrequencyBucket{Value: normalize(column, value), Count: count})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeStorage,
			"failed to read frequency of %s.%s", table.Name, column.Name)
	}

	if asBoolean {
		return booleanBuckets(buckets), nil
	}

	return buckets, nil
}

// booleanBuckets fills in the missing side of a zero/non-zero split
func booleanBuckets(found []FrequencyBucket) []FrequencyBucket {
	counts := map[bool]int64{}
	for _, b := range found {
		if v, ok := b.Value.(bool); ok {
			counts[v] += b.Count
		}
	}

	buckets := []FrequencyBucket{
		{Value: true, Count: counts[true]},
		{Value: false, Count: counts[false]},
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}

		return buckets[i].Value == false
	})

	return buckets
}
