package testutil

import (
	"github.com/agrobench/agrobench/internal/types"
)

// Eq builds an equality condition
func Eq(field string, value types.Value) types.FilterCondition {
	return types.FilterCondition{Field: field, Operator: types.OpEq, Value: value}
}

// Cond builds a condition with any operator
func Cond(field string, op types.Operator, value types.Value) types.FilterCondition {
	return types.FilterCondition{Field: field, Operator: op, Value: value}
}

// Join builds a join filter keeping rows whose targetField is among the
// source table's field values
func Join(table, field, targetField string, filters ...types.FilterCondition) types.JoinFilter {
	return types.JoinFilter{Table: table, Field: field, TargetField: targetField, Filters: filters}
}

// QueryOption configures a QueryRequest
type QueryOption func(*types.QueryRequest)

// WithSelect restricts the projected fields
func WithSelect(fields ...string) QueryOption {
	return func(r *types.QueryRequest) {
		r.Select = fields
	}
}

// WithFilters appends filter conditions
func WithFilters(filters ...types.FilterCondition) QueryOption {
	return func(r *types.QueryRequest) {
		r.Filters = append(r.Filters, filters...)
	}
}

// WithJoins appends join filters
func WithJoins(joins ...types.JoinFilter) QueryOption {
	return func(r *types.QueryRequest) {
		r.Joins = append(r.Joins, joins...)
	}
}

// WithPage sets limit and offset
func WithPage(limit, offset int) QueryOption {
	return func(r *types.QueryRequest) {
		r.Limit = limit
		r.Offset = offset
	}
}

// NewQuery builds a QueryRequest on table
func NewQuery(table string, opts ...QueryOption) types.QueryRequest {
	req := types.QueryRequest{Table: table}
	for _, opt := range opts {
		opt(&req)
	}

	return req
}
