// Package filter compiles declarative filter conditions and join filters into
// a parameterized SQL predicate. Identifiers only ever come from the registry;
// every user-supplied value is a bound argument.
package filter

import (
	"fmt"
	"strings"

	"github.com/agrobench/agrobench/internal/errors"
	"github.com/agrobench/agrobench/internal/registry"
	"github.com/agrobench/agrobench/internal/types"
)

// TargetAlias is the alias the executor gives the queried table. Column
// references in a compiled predicate are qualified with it.
const TargetAlias = "t"

// Predicate is a WHERE fragment using ? placeholders and its arguments in
// placeholder order. The zero Predicate matches every row.
type Predicate struct {
	SQL  string
	Args []any
}

// IsEmpty reports whether the predicate matches everything
func (p Predicate) IsEmpty() bool {
	return p.SQL == ""
}

// Where renders the predicate as a WHERE clause, or "" when empty
func (p Predicate) Where() string {
	if p.IsEmpty() {
		return ""
	}

	return " WHERE " + p.SQL
}

var comparisons = map[types.Operator]string{
	types.OpEq:  "=",
	types.OpNeq: "<>",
	types.OpGt:  ">",
	types.OpGte: ">=",
	types.OpLt:  "<",
	types.OpLte: "<=",
}

// Compiler turns filter requests into predicates. It holds no mutable state
// and is safe for concurrent use.
type Compiler struct {
	registry *registry.Registry
}

// NewCompiler creates a compiler resolving tables through r
func NewCompiler(r *registry.Registry) *Compiler {
	return &Compiler{registry: r}
}

// Compile resolves tableName and builds the conjunction of filters and joins
func (c *Compiler) Compile(tableName string, filters []types.FilterCondition, joins []types.JoinFilter) (Predicate, error) {
	table, err := c.registry.Resolve(tableName)
	if err != nil {
		return Predicate{}, err
	}

	return c.CompileTable(table, filters, joins)
}

// CompileTable is Compile for an already resolved table
func (c *Compiler) CompileTable(table *registry.Table, filters []types.FilterCondition, joins []types.JoinFilter) (Predicate, error) {
	var b builder

	if err := b.conditions(table, TargetAlias, filters); err != nil {
		return Predicate{}, err
	}

	for i, join := range joins {
		if err := c.join(&b, table, join, fmt.Sprintf("j%d", i)); err != nil {
			return Predicate{}, err
		}
	}

	return b.predicate(), nil
}

func (c *Compiler) join(b *builder, target *registry.Table, join types.JoinFilter, alias string) error {
	source, err := c.registry.Resolve(join.Table)
	if err != nil {
		return errors.NewUnknownJoinTable(join.Table, c.registry.Names())
	}

	sourceCol, err := source.MustColumn(join.Field)
	if err != nil {
		return err
	}

	targetCol, err := target.MustColumn(join.TargetField)
	if err != nil {
		return err
	}

	var sub builder
	if err := sub.conditions(source, alias, join.Filters); err != nil {
		return err
	}

	inner := sub.predicate()
	b.add(fmt.Sprintf("%s IN (SELECT %s FROM %s AS %s%s)",
		targetCol.Expr(TargetAlias),
		sourceCol.Expr(alias),
		source.Ref(),
		registry.QuoteIdent(alias),
		inner.Where(),
	), inner.Args...)

	return nil
}

type builder struct {
	terms []string
	args  []any
}

func (b *builder) add(term string, args ...any) {
	b.terms = append(b.terms, term)
	b.args = append(b.args, args...)
}

func (b *builder) predicate() Predicate {
	if len(b.terms) == 0 {
		return Predicate{}
	}

	return Predicate{SQL: strings.Join(b.terms, " AND "), Args: b.args}
}

func (b *builder) conditions(table *registry.Table, alias string, filters []types.FilterCondition) error {
	for _, cond := range filters {
		col, err := table.MustColumn(cond.Field)
		if err != nil {
			return err
		}

		if err := b.condition(col, alias, cond); err != nil {
			return err
		}
	}

	return nil
}

func (b *builder) condition(col *registry.Column, alias string, cond types.FilterCondition) error {
	ref := col.Expr(alias)
	op := string(cond.Operator)

	if sym, ok := comparisons[cond.Operator]; ok {
		if !cond.Value.IsScalar() {
			return errors.NewInvalidOperatorValue(cond.Field, op,
				fmt.Sprintf("expected a single value, got %s", cond.Value.Kind()))
		}

		b.add(fmt.Sprintf("%s %s %s", ref, sym, placeholder(col)), cond.Value.Bind())
		return nil
	}

	switch cond.Operator {
	case types.OpLike:
		pattern, ok := cond.Value.Str()
		if !ok {
			return errors.NewInvalidOperatorValue(cond.Field, op,
				fmt.Sprintf("expected a string pattern, got %s", cond.Value.Kind()))
		}

		b.add(ref+" LIKE ?", pattern)

	case types.OpIn:
		items, ok := cond.Value.Items()
		if !ok {
			return errors.NewInvalidOperatorValue(cond.Field, op,
				fmt.Sprintf("expected an array, got %s", cond.Value.Kind()))
		}

		if len(items) == 0 {
			b.add("FALSE")
			return nil
		}

		marks := make([]string, len(items))
		args := make([]any, len(items))
		for i, item := range items {
			marks[i] = placeholder(col)
			args[i] = item.Bind()
		}

		b.add(fmt.Sprintf("%s IN (%s)", ref, strings.Join(marks, ", ")), args...)

	case types.OpIsNull:
		b.add(ref + " IS NULL")

	case types.OpIsNotNull:
		b.add(ref + " IS NOT NULL")

	default:
		return errors.NewUnknownOperator(op, cond.Field, types.OperatorNames())
	}

	return nil
}

// placeholder casts date operands so ISO strings compare as dates on every dialect
func placeholder(col *registry.Column) string {
	if col.Type == registry.TypeDate {
		return "CAST(? AS DATE)"
	}

	return "?"
}
