package types

// Operator is a filter comparison operator
type Operator string

const (
	OpEq        Operator = "eq"
	OpNeq       Operator = "neq"
	OpGt        Operator = "gt"
	OpGte       Operator = "gte"
	OpLt        Operator = "lt"
	OpLte       Operator = "lte"
	OpLike      Operator = "like"
	OpIn        Operator = "in"
	OpIsNull    Operator = "isNull"
	OpIsNotNull Operator = "isNotNull"
)

// Operators lists every supported operator in documentation order
func Operators() []Operator {
	return []Operator{OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpLike, OpIn, OpIsNull, OpIsNotNull}
}

// OperatorNames returns Operators as strings
func OperatorNames() []string {
	ops := Operators()
	names := make([]string, len(ops))

	for i, op := range ops {
		names[i] = string(op)
	}

	return names
}

// FilterCondition restricts rows on one column
type FilterCondition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    Value    `json:"value"`
}

// JoinFilter keeps target rows whose TargetField appears among the Field
// values of Table rows matching Filters. Join filters do not nest.
type JoinFilter struct {
	Table       string            `json:"table"`
	Field       string            `json:"field"`
	TargetField string            `json:"targetField"`
	Filters     []FilterCondition `json:"filters"`
}

// QueryRequest selects rows from one table. A zero Limit means unbounded.
type QueryRequest struct {
	Table   string            `json:"table" binding:"required"`
	Select  []string          `json:"select,omitempty"`
	Filters []FilterCondition `json:"filters,omitempty"`
	Joins   []JoinFilter      `json:"joins,omitempty"`
	Limit   int               `json:"limit,omitempty"`
	Offset  int               `json:"offset,omitempty"`
}

// MedianRequest asks for the median of a numeric column
type MedianRequest struct {
	Table   string            `json:"table" binding:"required"`
	Field   string            `json:"field" binding:"required"`
	Filters []FilterCondition `json:"filters,omitempty"`
	Joins   []JoinFilter      `json:"joins,omitempty"`
}

// FrequencyRequest asks for the distribution of a column's values
type FrequencyRequest struct {
	Table     string            `json:"table" binding:"required"`
	Field     string            `json:"field" binding:"required"`
	Filters   []FilterCondition `json:"filters,omitempty"`
	Joins     []JoinFilter      `json:"joins,omitempty"`
	AsBoolean bool              `json:"asBoolean,omitempty"`
}

// Row is one fetched record keyed by logical column name
type Row map[string]any

// QueryResponse is the envelope returned for table queries. Limit is nil
// when the request was unbounded.
type QueryResponse struct {
	Data   []Row `json:"data"`
	Total  int64 `json:"total"`
	Limit  *int  `json:"limit"`
	Offset int   `json:"offset"`
}

// MedianResponse is the envelope returned for median queries
type MedianResponse struct {
	Table  string   `json:"table"`
	Field  string   `json:"field"`
	Median *float64 `json:"median"`
	Count  int64    `json:"count"`
}

// FrequencyEntry is one distinct value with its share of the total
type FrequencyEntry struct {
	Value      any     `json:"value"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// FrequencyResponse is the envelope returned for frequency queries
type FrequencyResponse struct {
	Table string           `json:"table"`
	Field string           `json:"field"`
	Total int64            `json:"total"`
	Data  []FrequencyEntry `json:"data"`
}

// TableInfo lists a queryable table and its columns
type TableInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// ColumnInfo describes one column with its semantic type
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableDescription is the detailed introspection view of a table
type TableDescription struct {
	Name    string       `json:"name"`
	Key     string       `json:"key"`
	Columns []ColumnInfo `json:"columns"`
}
