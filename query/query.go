// Package query implements the Query Facade (spec.md §4.10): the deferred,
// chainable builder entities are queried through. Every non-terminal method
// returns a new Query value carrying a mutated copy of the accumulated IR
// (spec.md §3.4); a terminal method triggers translation, command building,
// execution, and (for reads) materialization, exactly once.
package query

import (
	"bytes"
	"context"
	"encoding/gob"
	"reflect"
	"time"

	"github.com/FuncularLabs/funkyorm"
	"github.com/FuncularLabs/funkyorm/expr"
	"github.com/FuncularLabs/funkyorm/materialize"
	"github.com/FuncularLabs/funkyorm/metadata"
	"github.com/FuncularLabs/funkyorm/sqlbuild"
	"github.com/FuncularLabs/funkyorm/translate"
)

// Query is the deferred query builder for entity type T (spec.md §4.10).
// The zero value is not usable; construct with New.
type Query[T any] struct {
	conn     funkyorm.Connection
	registry *metadata.Registry
	cfg      *funkyorm.Config
	ir       *expr.QueryIR
}

// New returns an empty deferred Query over T, bound to conn and registry.
func New[T any](conn funkyorm.Connection, registry *metadata.Registry, cfg *funkyorm.Config) *Query[T] {
	var zero T
	t := reflect.TypeOf(zero)
	return &Query[T]{conn: conn, registry: registry, cfg: cfg, ir: expr.New(t)}
}

func (q *Query[T]) clone() *Query[T] {
	return &Query[T]{conn: q.conn, registry: q.registry, cfg: q.cfg, ir: q.ir.Clone()}
}

// Where appends a predicate, implicitly AND-combined with any predicate
// already accumulated (spec.md §3.4 "Chained Where = AND").
func (q *Query[T]) Where(pred expr.Node) *Query[T] {
	n := q.clone()
	n.ir.Predicates = append(n.ir.Predicates, pred)
	return n
}

// OrderBy appends an ascending order key.
func (q *Query[T]) OrderBy(key expr.Node) *Query[T] { return q.addOrder(key, false) }

// OrderByDescending appends a descending order key.
func (q *Query[T]) OrderByDescending(key expr.Node) *Query[T] { return q.addOrder(key, true) }

// ThenBy appends an additional ascending order key (spec.md §8 "Ordering
// stability"); identical to OrderBy, kept as a distinct name to mirror the
// chain's intent.
func (q *Query[T]) ThenBy(key expr.Node) *Query[T] { return q.addOrder(key, false) }

// ThenByDescending appends an additional descending order key.
func (q *Query[T]) ThenByDescending(key expr.Node) *Query[T] { return q.addOrder(key, true) }

func (q *Query[T]) addOrder(key expr.Node, desc bool) *Query[T] {
	n := q.clone()
	n.ir.Orders = append(n.ir.Orders, expr.OrderKey{Member: key, Desc: desc})
	return n
}

// Skip sets the number of rows to skip (spec.md §4.4).
func (q *Query[T]) Skip(n int) *Query[T] {
	c := q.clone()
	c.ir.Skip, c.ir.HasSkip = n, true
	return c
}

// Take sets the maximum number of rows to return (spec.md §4.4).
func (q *Query[T]) Take(n int) *Query[T] {
	c := q.clone()
	c.ir.Take, c.ir.HasTake = n, true
	return c
}

// newContext builds a fresh translation Context for one terminal call.
func (q *Query[T]) newContext() *translate.Context {
	return translate.NewContext(q.registry, q.ir.SourceType, "t0", q.cfg.LikeEscapeChar())
}

// execConn returns the active transaction carried on ctx, if the caller
// attached one via funkyorm.WithTx, falling back to the Query's own
// Connection otherwise (spec.md §5 "Shared-resource policy"). Read-only
// terminal calls participate in a caller's transaction when present, but
// never require one; only Delete does (see Delete in mutate.go).
func (q *Query[T]) execConn(ctx context.Context) funkyorm.ExecQuerier {
	if tx, ok := funkyorm.TxFromContext(ctx); ok {
		return tx
	}
	return q.conn
}

// ToList executes the accumulated query and returns every matching row
// (spec.md §4.10 "ToList").
func (q *Query[T]) ToList(ctx context.Context) ([]*T, error) {
	c := q.newContext()
	cmd, err := sqlbuild.Select(c, q.ir)
	if err != nil {
		q.logTranslation(err)
		return nil, err
	}
	return q.execList(ctx, cmd)
}

func (q *Query[T]) execList(ctx context.Context, cmd *sqlbuild.Command) ([]*T, error) {
	if cached, ok := q.readCache(ctx, cmd); ok {
		return cached, nil
	}

	start := time.Now()
	rows, err := q.execConn(ctx).QueryContext(ctx, cmd.SQL, cmd.Args()...)
	q.recordQuery(time.Since(start), err)
	if err != nil {
		return nil, funkyorm.NewDriverError(cmd.SQL, paramNames(cmd), err)
	}

	m, err := q.registry.Resolve(q.ir.SourceType)
	if err != nil {
		rows.Close()
		return nil, err
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	plan, err := materialize.Build(cols, m.AccessorPlan, materialize.EntityByName(m))
	if err != nil {
		rows.Close()
		return nil, err
	}

	out, err := materialize.All[T](rows, plan)
	if err != nil {
		return nil, err
	}
	q.writeCache(ctx, cmd, out)
	return out, nil
}

// First returns the first matching row, erroring if none matched (spec.md
// §4.10 "First", §8 scenario 1).
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	rows, err := q.Take(1).ToList(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, funkyorm.NewEmptySequenceError("First")
	}
	return rows[0], nil
}

// FirstOrDefault returns the first matching row, or nil if none matched.
func (q *Query[T]) FirstOrDefault(ctx context.Context) (*T, error) {
	rows, err := q.Take(1).ToList(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Last returns the last row of the query's ordering (or of a synthesized
// descending-primary-key order if none was set), erroring if none matched
// (spec.md §4.4 "Last without an order", §4.10 "Last").
func (q *Query[T]) Last(ctx context.Context) (*T, error) {
	reversed, err := q.reversedForLast()
	if err != nil {
		return nil, err
	}
	return reversed.First(ctx)
}

// LastOrDefault is Last's non-erroring counterpart.
func (q *Query[T]) LastOrDefault(ctx context.Context) (*T, error) {
	reversed, err := q.reversedForLast()
	if err != nil {
		return nil, err
	}
	return reversed.FirstOrDefault(ctx)
}

func (q *Query[T]) reversedForLast() (*Query[T], error) {
	c := q.clone()
	if len(c.ir.Orders) == 0 {
		c := q.newContext()
		key, err := c.RequirePrimaryKeyForReverse()
		if err != nil {
			return nil, err
		}
		n := q.clone()
		n.ir.Orders = []expr.OrderKey{key}
		return n, nil
	}
	c.ir.Reversed = !c.ir.Reversed
	return c, nil
}

// Any reports whether any row matching the accumulated predicates also
// matches pred; with a nil pred, whether any row matches the accumulated
// predicates alone (spec.md §4.6 "Any").
func (q *Query[T]) Any(ctx context.Context, pred expr.Node) (bool, error) {
	return q.boolAggregate(ctx, expr.AnyAgg, pred)
}

// All reports whether every matching row satisfies pred (spec.md §4.6
// "All"). Unlike Any, pred is required.
func (q *Query[T]) All(ctx context.Context, pred expr.Node) (bool, error) {
	return q.boolAggregate(ctx, expr.AllAgg, pred)
}

func (q *Query[T]) boolAggregate(ctx context.Context, kind expr.AggregateKind, pred expr.Node) (bool, error) {
	c := q.clone()
	c.ir.Aggregate = &expr.AggregateSpec{Kind: kind, Predicate: pred}
	cmd, err := sqlbuild.Select(c.newContext(), c.ir)
	if err != nil {
		q.logTranslation(err)
		return false, err
	}
	var result bool
	if err := q.queryRow(ctx, cmd, &result); err != nil {
		return false, err
	}
	return result, nil
}

// Count returns the number of matching rows, optionally narrowed by pred
// (spec.md §8 scenario 5).
func (q *Query[T]) Count(ctx context.Context, pred expr.Node) (int, error) {
	c := q.clone()
	c.ir.Aggregate = &expr.AggregateSpec{Kind: expr.CountAgg, Predicate: pred}
	cmd, err := sqlbuild.Select(c.newContext(), c.ir)
	if err != nil {
		q.logTranslation(err)
		return 0, err
	}
	var n int
	if err := q.queryRow(ctx, cmd, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (q *Query[T]) queryRow(ctx context.Context, cmd *sqlbuild.Command, dest any) error {
	start := time.Now()
	row := q.execConn(ctx).QueryRowContext(ctx, cmd.SQL, cmd.Args()...)
	err := row.Scan(dest)
	q.recordQuery(time.Since(start), err)
	if err != nil {
		return funkyorm.NewDriverError(cmd.SQL, paramNames(cmd), err)
	}
	return nil
}

func (q *Query[T]) recordQuery(d time.Duration, err error) {
	q.cfg.Stats().RecordQuery(d, q.cfg.SlowQueryThresholdMillis(), err)
	q.logOutcome("query", d, err)
}

// recordExec mirrors recordQuery for the non-query (Insert/Update/Delete)
// path, counted separately in QueryStats.
func (q *Query[T]) recordExec(d time.Duration, err error) {
	q.cfg.Stats().RecordExec(d, q.cfg.SlowQueryThresholdMillis(), err)
	q.logOutcome("exec", d, err)
}

// logOutcome logs a driver round trip's duration and error through the
// configured logger, if any (SPEC_FULL.md §B "translation and execution
// diagnostics"): an error at Error level, or a threshold breach at Warn.
func (q *Query[T]) logOutcome(kind string, d time.Duration, err error) {
	logger := q.cfg.Logger()
	if logger == nil {
		return
	}
	if err != nil {
		logger.Error("funkyorm "+kind+" failed", "duration", d, "error", err)
		return
	}
	if d.Milliseconds() >= q.cfg.SlowQueryThresholdMillis() {
		logger.Warn("funkyorm slow "+kind, "duration", d)
	}
}

// logTranslation logs a translation-phase failure (a predicate, order, or
// projection node that could not be lowered to SQL) before it is returned to
// the caller.
func (q *Query[T]) logTranslation(err error) {
	if logger := q.cfg.Logger(); logger != nil && err != nil {
		logger.Error("funkyorm translation failed", "error", err)
	}
}

// readCache consults the configured result cache for a prior ToList result
// of this exact finalized command (SPEC_FULL.md §D.3). Caching is opt-in and
// never participates in SQL generation; a cache miss or decode failure is
// treated as a miss, not an error.
func (q *Query[T]) readCache(ctx context.Context, cmd *sqlbuild.Command) ([]*T, bool) {
	cache := q.cfg.CacheHook()
	if cache == nil {
		return nil, false
	}
	key := funkyorm.CacheKey{SQL: cmd.SQL, Params: cmd.Args()}.String()
	raw, err := cache.Get(ctx, key)
	if err != nil || raw == nil {
		return nil, false
	}
	var out []*T
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&out); err != nil {
		return nil, false
	}
	return out, true
}

func (q *Query[T]) writeCache(ctx context.Context, cmd *sqlbuild.Command, value []*T) {
	cache := q.cfg.CacheHook()
	if cache == nil {
		return
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return
	}
	key := funkyorm.CacheKey{SQL: cmd.SQL, Params: cmd.Args()}.String()
	_ = cache.Set(ctx, key, buf.Bytes(), 0)
}

func paramNames(cmd *sqlbuild.Command) []string {
	names := make([]string, len(cmd.Params))
	for i, p := range cmd.Params {
		names[i] = p.Name
	}
	return names
}
