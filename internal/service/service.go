// Package service orchestrates the query operations: it validates requests
// against the registry, hands compiled predicates to the engine and shapes
// the response envelopes.
package service

import (
	"context"
	"math"
	"time"

	"github.com/agrobench/agrobench/internal/errors"
	"github.com/agrobench/agrobench/internal/filter"
	"github.com/agrobench/agrobench/internal/logging"
	"github.com/agrobench/agrobench/internal/metrics"
	"github.com/agrobench/agrobench/internal/query"
	"github.com/agrobench/agrobench/internal/registry"
	"github.com/agrobench/agrobench/internal/types"
)

const (
	OpQuery     = "query"
	OpMedian    = "median"
	OpFrequency = "frequency"
)

// Engine runs validated requests against storage
type Engine interface {
	Fetch(ctx context.Context, table *registry.Table, columns []*registry.Column, pred filter.Predicate, limit, offset int) (query.Page, error)
	Median(ctx context.Context, table *registry.Table, column *registry.Column, pred filter.Predicate) (query.MedianResult, error)
	Frequency(ctx context.Context, table *registry.Table, column *registry.Column, pred filter.Predicate, asBoolean bool) ([]query.FrequencyBucket, error)
}

// Service is safe for concurrent use
type Service struct {
	registry *registry.Registry
	compiler *filter.Compiler
	engine   Engine
}

// New creates a service over the registry and engine
func New(reg *registry.Registry, engine Engine) *Service {
	return &Service{
		registry: reg,
		compiler: filter.NewCompiler(reg),
		engine:   engine,
	}
}

// ListTables returns every queryable table with its columns
func (s *Service) ListTables() []types.TableInfo {
	return s.registry.ListAll()
}

// DescribeTable returns a table's key and typed columns
func (s *Service) DescribeTable(name string) (types.TableDescription, error) {
	return s.registry.Describe(name)
}

// Query returns one page of matching rows with the overall match count
func (s *Service) Query(ctx context.Context, req types.QueryRequest) (resp *types.QueryResponse, err error) {
	start := time.Now()
	label := s.tableLabel(req.Table)
	defer func() { s.observe(OpQuery, label, start, err) }()

	table, err := s.registry.Resolve(req.Table)
	if err != nil {
		return nil, err
	}

	var columns []*registry.Column
	for _, field := range req.Select {
		col, err := table.MustColumn(field)
		if err != nil {
			return nil, err
		}

		columns = append(columns, col)
	}

	if req.Limit < 0 {
		return nil, errors.Newf(errors.ErrTypeValidation, "limit must not be negative, got %d", req.Limit).
			WithDetail("limit", req.Limit)
	}

	if req.Offset < 0 {
		return nil, errors.Newf(errors.ErrTypeValidation, "offset must not be negative, got %d", req.Offset).
			WithDetail("offset", req.Offset)
	}

	pred, err := s.compiler.CompileTable(table, req.Filters, req.Joins)
	if err != nil {
		return nil, err
	}

	page, err := s.engine.Fetch(ctx, table, columns, pred, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}

	resp = &types.QueryResponse{
		Data:   page.Rows,
		Total:  page.Total,
		Offset: req.Offset,
	}

	if resp.Data == nil {
		resp.Data = []types.Row{}
	}

	if req.Limit > 0 {
		limit := req.Limit
		resp.Limit = &limit
	}

	return resp, nil
}

// Median returns the interpolated median of a numeric field
func (s *Service) Median(ctx context.Context, req types.MedianRequest) (resp *types.MedianResponse, err error) {
	start := time.Now()
	label := s.tableLabel(req.Table)
	defer func() { s.observe(OpMedian, label, start, err) }()

	table, column, err := s.resolveField(req.Table, req.Field)
	if err != nil {
		return nil, err
	}

	if !column.IsNumeric() {
		return nil, errors.NewNonNumericField(table.Name, column.Name, string(column.Type)).
			WithSuggestion("The median is only defined for number fields")
	}

	pred, err := s.compiler.CompileTable(table, req.Filters, req.Joins)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Median(ctx, table, column, pred)
	if err != nil {
		return nil, err
	}

	return &types.MedianResponse{
		Table:  table.Name,
		Field:  column.Name,
		Median: result.Median,
		Count:  result.Count,
	}, nil
}

// Frequency returns the distribution of a field's values with percentages
func (s *Service) Frequency(ctx context.Context, req types.FrequencyRequest) (resp *types.FrequencyResponse, err error) {
	start := time.Now()
	label := s.tableLabel(req.Table)
	defer func() { s.observe(OpFrequency, label, start, err) }()

	table, column, err := s.resolveField(req.Table, req.Field)
	if err != nil {
		return nil, err
	}

	if req.AsBoolean && !column.IsNumeric() {
		return nil, errors.NewNonNumericField(table.Name, column.Name, string(column.Type)).
			WithSuggestion("asBoolean buckets number fields into zero and non-zero")
	}

	pred, err := s.compiler.CompileTable(table, req.Filters, req.Joins)
	if err != nil {
		return nil, err
	}

	buckets, err := s.engine.Frequency(ctx, table, column, pred, req.AsBoolean)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, b := range buckets {
		total += b.Count
	}

	entries := make([]types.FrequencyEntry, len(buckets))
	for i, b := range buckets {
		entries[i] = types.FrequencyEntry{
			Value:      b.Value,
			Count:      b.Count,
			Percentage: Percentage(b.Count, total),
		}
	}

	return &types.FrequencyResponse{
		Table: table.Name,
		Field: column.Name,
		Total: total,
		Data:  entries,
	}, nil
}

// Percentage returns count/total as a percentage rounded to two decimals,
// or 0 when total is 0
func Percentage(count, total int64) float64 {
	if total == 0 {
		return 0
	}

	return math.Round(float64(count)/float64(total)*10000) / 100
}

func (s *Service) resolveField(tableName, field string) (*registry.Table, *registry.Column, error) {
	table, err := s.registry.Resolve(tableName)
	if err != nil {
		return nil, nil, err
	}

	column, err := table.MustColumn(field)
	if err != nil {
		return nil, nil, err
	}

	return table, column, nil
}

// tableLabel keeps metric label values within the registered table names
func (s *Service) tableLabel(name string) string {
	if _, err := s.registry.Resolve(name); err != nil {
		return "unknown"
	}

	return name
}

func (s *Service) observe(operation, table string, start time.Time, err error) {
	elapsed := time.Since(start)
	metrics.ObserveQuery(operation, table, err, elapsed)

	logger := logging.GetLogger().WithFields(map[string]any{
		"operation": operation,
		"table":     table,
		"duration":  elapsed.String(),
	})

	structErr, ok := errors.As(err)

	switch {
	case err == nil:
		logger.Debug("Query completed")
	case ok && structErr.IsClientError():
		logger.WithError(err).Debug("Query rejected")
	default:
		logger.ErrorWithErr("Query failed", err)
	}
}
