// Package registry holds the closed set of queryable tables. It is built once
// at start-up and is read-only afterwards, so a *Registry may be shared by any
// number of goroutines.
package registry

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agrobench/agrobench/internal/errors"
	"github.com/agrobench/agrobench/internal/types"
)

// ColumnType is the semantic type tag of a column
type ColumnType string

const (
	TypeNumber  ColumnType = "number"
	TypeString  ColumnType = "string"
	TypeBoolean ColumnType = "boolean"
	TypeDate    ColumnType = "date"
)

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Column describes one queryable column. Name is the API (logical) name,
// Physical the storage column.
type Column struct {
	Name     string
	Physical string
	Type     ColumnType
}

// IsNumeric reports whether the column holds numbers
func (c *Column) IsNumeric() bool {
	return c.Type == TypeNumber
}

// Expr renders the quoted column reference qualified by alias
func (c *Column) Expr(alias string) string {
	return QuoteIdent(alias) + "." + QuoteIdent(c.Physical)
}

// Table describes one queryable table. Key names the column used to give
// paginated results a stable order.
type Table struct {
	Name     string
	Physical string
	Key      string
	Columns  []Column

	index map[string]*Column
}

// Column looks up a column by logical name
func (t *Table) Column(name string) (*Column, bool) {
	col, ok := t.index[name]
	return col, ok
}

// MustColumn looks up a column and reports UnknownColumn with every valid
// column name on a miss
func (t *Table) MustColumn(name string) (*Column, error) {
	col, ok := t.index[name]
	if !ok {
		return nil, errors.NewUnknownColumn(name, t.Name, t.ColumnNames())
	}

	return col, nil
}

// ColumnNames returns logical column names in declaration order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i := range t.Columns {
		names[i] = t.Columns[i].Name
	}

	return names
}

// KeyColumn returns the ordering column
func (t *Table) KeyColumn() *Column {
	return t.index[t.Key]
}

// Ref renders the quoted physical table name
func (t *Table) Ref() string {
	return QuoteIdent(t.Physical)
}

// Registry maps logical table names to descriptors
type Registry struct {
	tables map[string]*Table
	order  []string
}

// New validates the table definitions and builds a registry. Definitions are
// copied, later changes to the slice do not leak in.
func New(defs []Table) (*Registry, error) {
	r := &Registry{tables: make(map[string]*Table, len(defs))}

	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("table with physical name %q has no logical name", def.Physical)
		}

		if _, dup := r.tables[def.Name]; dup {
			return nil, fmt.Errorf("duplicate table %q", def.Name)
		}

		if !identPattern.MatchString(def.Physical) {
			return nil, fmt.Errorf("table %q: invalid physical name %q", def.Name, def.Physical)
		}

		table := &Table{
			Name:     def.Name,
			Physical: def.Physical,
			Key:      def.Key,
			Columns:  append([]Column(nil), def.Columns...),
			index:    make(map[string]*Column, len(def.Columns)),
		}

		for i := range table.Columns {
			col := &table.Columns[i]

			if _, dup := table.index[col.Name]; dup {
				return nil, fmt.Errorf("table %q: duplicate column %q", def.Name, col.Name)
			}

			if !identPattern.MatchString(col.Physical) {
				return nil, fmt.Errorf("table %q: invalid physical column %q", def.Name, col.Physical)
			}

			table.index[col.Name] = col
		}

		if table.KeyColumn() == nil {
			return nil, fmt.Errorf("table %q: key column %q is not declared", def.Name, def.Key)
		}

		r.tables[def.Name] = table
		r.order = append(r.order, def.Name)
	}

	return r, nil
}

// Default builds the registry of the agronomic schema
func Default() *Registry {
	r, err := New(DefaultTables())
	if err != nil {
		panic(fmt.Sprintf("registry: invalid built-in schema: %v", err))
	}

	return r
}

// Resolve returns the table registered under name
func (r *Registry) Resolve(name string) (*Table, error) {
	table, ok := r.tables[name]
	if !ok {
		return nil, errors.NewUnknownTable(name, r.Names())
	}

	return table, nil
}

// Names returns the logical table names in registration order
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// ListAll returns every table with its column names, in registration order
func (r *Registry) ListAll() []types.TableInfo {
	infos := make([]types.TableInfo, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, types.TableInfo{
			Name:    name,
			Columns: r.tables[name].ColumnNames(),
		})
	}

	return infos
}

// Describe returns the table with its column types
func (r *Registry) Describe(name string) (types.TableDescription, error) {
	table, err := r.Resolve(name)
	if err != nil {
		return types.TableDescription{}, err
	}

	desc := types.TableDescription{
		Name:    table.Name,
		Key:     table.Key,
		Columns: make([]types.ColumnInfo, len(table.Columns)),
	}

	for i, col := range table.Columns {
		desc.Columns[i] = types.ColumnInfo{Name: col.Name, Type: string(col.Type)}
	}

	return desc, nil
}

// QuoteIdent quotes an SQL identifier
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
