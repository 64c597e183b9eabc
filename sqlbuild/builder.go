// Package sqlbuild implements the Command Builder (spec.md §4.8): it takes a
// translation Context plus the fragments produced by the predicate, order,
// projection, and aggregate translators and assembles the final,
// parameterized SQL Server statement text, including the FROM clause and any
// LEFT OUTER JOINs required by remote-property references.
package sqlbuild

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/FuncularLabs/funkyorm"
	"github.com/FuncularLabs/funkyorm/expr"
	"github.com/FuncularLabs/funkyorm/identdialect"
	"github.com/FuncularLabs/funkyorm/metadata"
	"github.com/FuncularLabs/funkyorm/pathresolver"
	"github.com/FuncularLabs/funkyorm/translate"
)

// Command is a finished, ready-to-execute statement: its text and the
// ordered parameter bindings referenced within it (spec.md §3.5).
type Command struct {
	SQL    string
	Params []translate.Param
}

// Args returns the parameter values as sql.NamedArg, keyed by the minted
// `p__linq__<n>` name with its leading `@` stripped, so the driver binds
// each value to its symbolic name in the SQL text rather than relying on
// positional correlation (spec.md §3.5, §6.2).
func (c *Command) Args() []any {
	args := make([]any, len(c.Params))
	for i, p := range c.Params {
		args[i] = sql.Named(strings.TrimPrefix(p.Name, "@"), p.Value)
	}
	return args
}

// fromClause renders the base table's `FROM [Table] AS [alias]` fragment.
func fromClause(m *metadata.TypeMapping, alias string) string {
	return fmt.Sprintf("FROM %s AS %s", identdialect.QuoteQualified(m.Table), identdialect.Quote(alias))
}

// joinClauses renders every LEFT OUTER JOIN required by remote-property
// references collected on the shared resolver, in first-reference order
// (spec.md §4.7 "Command Builder emits one LEFT JOIN per unique chain").
func joinClauses(joins []pathresolver.JoinStep) string {
	if len(joins) == 0 {
		return ""
	}
	var b strings.Builder
	for _, j := range joins {
		fmt.Fprintf(&b, " LEFT JOIN %s AS %s ON %s.%s = %s.%s",
			identdialect.QuoteQualified(j.ToTable), identdialect.Quote(j.ToAlias),
			identdialect.Quote(j.FromAlias), identdialect.Quote(j.FromColumn),
			identdialect.Quote(j.ToAlias), identdialect.Quote(j.ToPKColumn))
	}
	return b.String()
}

// Select assembles the final SELECT statement for a deferred query IR
// (spec.md §4.8), dispatching to the aggregate form when a terminal
// aggregate is attached.
func Select(ctx *translate.Context, ir *expr.QueryIR) (*Command, error) {
	m, err := ctx.Registry.Resolve(ir.SourceType)
	if err != nil {
		return nil, err
	}

	where := ""
	if pred := ir.CombinedPredicate(); pred != nil {
		frag, err := ctx.Predicate(pred)
		if err != nil {
			return nil, err
		}
		where = frag
	}

	if ir.Aggregate != nil && ir.Aggregate.Kind != expr.NoAggregate {
		return selectAggregate(ctx, m, ir, where)
	}

	var selectList string
	if ir.Projection != nil && ir.Projection.Shape != nil {
		cols, err := ctx.Shaped(ir.Projection.Shape)
		if err != nil {
			return nil, err
		}
		selectList = translate.RenderSelectList(cols)
	} else {
		cols, err := ctx.Identity()
		if err != nil {
			return nil, err
		}
		selectList = translate.RenderSelectList(cols)
	}

	orderAndPage, err := ctx.OrderAndPage(ir.Orders, ir.Skip, ir.HasSkip, ir.Take, ir.HasTake, ir.Reversed)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s %s%s", selectList, fromClause(m, ctx.BaseAlias), joinClauses(ctx.Resolver.Joins()))
	if where != "" {
		fmt.Fprintf(&b, " WHERE %s", where)
	}
	if orderAndPage != "" {
		fmt.Fprintf(&b, " %s", orderAndPage)
	}

	return &Command{SQL: b.String(), Params: ctx.Params()}, nil
}

// selectAggregate assembles the SELECT form of a terminal Count/Any/All/Min/
// Max/Avg call (spec.md §4.6), supplying the base FROM/JOIN text the
// Aggregate Planner leaves to its caller.
func selectAggregate(ctx *translate.Context, m *metadata.TypeMapping, ir *expr.QueryIR, upstreamWhere string) (*Command, error) {
	result, err := ctx.Aggregate(ir.Aggregate, upstreamWhere)
	if err != nil {
		return nil, err
	}

	base := fromClause(m, ctx.BaseAlias) + joinClauses(ctx.Resolver.Joins())

	var selectExpr string
	switch result.Kind {
	case expr.CountAgg:
		selectExpr = fmt.Sprintf("COUNT(*) %s%s", base, whereSuffix(result.WhereFragment))

	case expr.AnyAgg:
		selectExpr = fmt.Sprintf("CASE WHEN EXISTS (SELECT 1 %s%s) THEN 1 ELSE 0 END",
			base, whereSuffix(result.WhereFragment))

	case expr.AllAgg:
		selectExpr = fmt.Sprintf("CASE WHEN EXISTS (SELECT 1 %s%s) THEN 0 ELSE 1 END",
			base, whereSuffix(result.WhereFragment))

	case expr.MinAgg, expr.MaxAgg, expr.AvgAgg:
		selectExpr = fmt.Sprintf("%s(%s) %s%s", result.Func, result.ColumnExpr, base, whereSuffix(result.WhereFragment))

	default:
		return nil, funkyorm.NewTranslationError("Aggregate", "", "unknown aggregate kind")
	}

	return &Command{SQL: "SELECT " + selectExpr, Params: ctx.Params()}, nil
}

func whereSuffix(where string) string {
	if where == "" {
		return ""
	}
	return " WHERE " + where
}

// InsertPlan describes one row to insert: the resolved type mapping and the
// bound field values, keyed by property name.
type InsertPlan struct {
	Mapping *metadata.TypeMapping
	Values  map[string]any
}

// Insert assembles an INSERT statement (spec.md §4.8 "Insert"). An identity
// primary key is omitted from the column list and fetched back through an
// `OUTPUT INSERTED.[pk]` clause; a non-identity primary key (client-assigned,
// e.g. a google/uuid value) is inserted like any other column.
func Insert(plan *InsertPlan) (*Command, error) {
	m := plan.Mapping
	var cols []string
	var placeholders []string
	var params []translate.Param
	seq := 0
	mint := func(v any) string {
		name := identdialect.MintParam(seq)
		seq++
		params = append(params, translate.Param{Name: name, Value: v})
		return name
	}

	for _, p := range m.Properties {
		if p.IsPK && p.Identity {
			continue
		}
		v, ok := plan.Values[p.Name]
		if !ok {
			continue
		}
		cols = append(cols, identdialect.Quote(p.Column))
		placeholders = append(placeholders, mint(v))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) ", identdialect.QuoteQualified(m.Table), strings.Join(cols, ", "))
	if m.PrimaryKey != nil && m.PrimaryKey.Identity {
		fmt.Fprintf(&b, "OUTPUT INSERTED.%s ", identdialect.Quote(m.PrimaryKey.Column))
	}
	fmt.Fprintf(&b, "VALUES (%s)", strings.Join(placeholders, ", "))

	return &Command{SQL: b.String(), Params: params}, nil
}

// UpdatePlan describes one row to update: its resolved type mapping, the
// primary-key value identifying the row, and the new values of every
// non-key mapped column being written.
type UpdatePlan struct {
	Mapping *metadata.TypeMapping
	PKValue any
	Values  map[string]any
}

// Update assembles an UPDATE statement covering every mapped column except
// the primary key, which is used as the WHERE predicate (spec.md §4.8
// "Update").
func Update(plan *UpdatePlan) (*Command, error) {
	m := plan.Mapping
	if m.PrimaryKey == nil {
		return nil, funkyorm.NewMetadataError(m.Type.Name(), "no primary key: cannot update without one")
	}

	var sets []string
	var params []translate.Param
	seq := 0
	mint := func(v any) string {
		name := identdialect.MintParam(seq)
		seq++
		params = append(params, translate.Param{Name: name, Value: v})
		return name
	}

	for _, p := range m.Properties {
		if p.IsPK {
			continue
		}
		v, ok := plan.Values[p.Name]
		if !ok {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = %s", identdialect.Quote(p.Column), mint(v)))
	}
	pkParam := mint(plan.PKValue)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		identdialect.QuoteQualified(m.Table), strings.Join(sets, ", "),
		identdialect.Quote(m.PrimaryKey.Column), pkParam)

	return &Command{SQL: sql, Params: params}, nil
}

// Delete assembles a DELETE statement over an explicit predicate (spec.md
// §4.8 "Delete", §5 "Shared-resource policy"). It rejects a nil predicate
// (ErrDeleteWithoutPredicate), a trivially-true predicate, and a predicate
// that references remote properties; otherwise it renders the WHERE fragment
// it is given.
func Delete(ctx *translate.Context, m *metadata.TypeMapping, predicate expr.Node) (*Command, error) {
	if predicate == nil {
		return nil, funkyorm.ErrDeleteWithoutPredicate
	}
	if isTriviallyTruePredicate(predicate) {
		return nil, funkyorm.NewTranslationError("Delete", "", "delete predicate is trivially true; refusing to delete the entire table")
	}
	where, err := ctx.Predicate(predicate)
	if err != nil {
		return nil, err
	}
	if joins := ctx.Resolver.Joins(); len(joins) > 0 {
		return nil, funkyorm.NewTranslationError("Delete", "", "delete predicate must not reference remote properties")
	}

	// SQL Server requires the alias-qualified DELETE form (`DELETE <alias>
	// FROM <table> AS <alias> WHERE ...`) since the WHERE fragment the shared
	// predicate translator emits always qualifies columns by alias.
	sql := fmt.Sprintf("DELETE %s FROM %s AS %s WHERE %s",
		identdialect.Quote(ctx.BaseAlias), identdialect.QuoteQualified(m.Table), identdialect.Quote(ctx.BaseAlias), where)
	return &Command{SQL: sql, Params: ctx.Params()}, nil
}

// isTriviallyTruePredicate reports whether predicate can never filter out a
// row, regardless of bound parameter values: a constant `true` literal, or a
// comparison of an expression against itself (spec.md §4.8 "Delete guard").
// This is a syntactic, not semantic, check — it catches the shapes callers
// actually write by mistake, not every tautology a predicate could encode.
func isTriviallyTruePredicate(n expr.Node) bool {
	switch p := n.(type) {
	case expr.Const:
		b, ok := p.Value.(bool)
		return ok && b
	case expr.Compare:
		return p.Op == expr.EQ && reflect.DeepEqual(p.Left, p.Right)
	default:
		return false
	}
}
