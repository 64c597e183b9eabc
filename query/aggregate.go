package query

import (
	"context"
	"reflect"
	"time"

	"github.com/FuncularLabs/funkyorm"
	"github.com/FuncularLabs/funkyorm/expr"
	"github.com/FuncularLabs/funkyorm/materialize"
	"github.com/FuncularLabs/funkyorm/sqlbuild"
)

// Min returns the minimum value of selector across matching rows (spec.md
// §4.6, §4.10 "Min"). Min is a free function, not a method, because it
// introduces a type parameter V the receiver Query[T] does not carry. If V
// is a pointer type, an empty sequence yields a nil V and no error (spec.md
// §9 Open Question: "nullable Min/Max returns nil"); otherwise an empty
// sequence is an *funkyorm.EmptySequenceError.
func Min[T any, V any](ctx context.Context, q *Query[T], selector expr.Node) (V, error) {
	return scalarAggregate[T, V](ctx, q, expr.MinAgg, selector, "Min")
}

// Max returns the maximum value of selector across matching rows.
func Max[T any, V any](ctx context.Context, q *Query[T], selector expr.Node) (V, error) {
	return scalarAggregate[T, V](ctx, q, expr.MaxAgg, selector, "Max")
}

// Avg returns the average value of selector across matching rows.
func Avg[T any, V any](ctx context.Context, q *Query[T], selector expr.Node) (V, error) {
	return scalarAggregate[T, V](ctx, q, expr.AvgAgg, selector, "Average")
}

func scalarAggregate[T any, V any](ctx context.Context, q *Query[T], kind expr.AggregateKind, selector expr.Node, opName string) (V, error) {
	var zero V
	c := q.clone()
	c.ir.Aggregate = &expr.AggregateSpec{Kind: kind, Selector: selector}
	cmd, err := sqlbuild.Select(c.newContext(), c.ir)
	if err != nil {
		q.logTranslation(err)
		return zero, err
	}

	start := time.Now()
	row := q.execConn(ctx).QueryRowContext(ctx, cmd.SQL, cmd.Args()...)
	var raw any
	err = row.Scan(&raw)
	q.recordQuery(time.Since(start), err)
	if err != nil {
		return zero, funkyorm.NewDriverError(cmd.SQL, paramNames(cmd), err)
	}

	if raw == nil {
		if reflect.TypeOf(zero) != nil && reflect.TypeOf(zero).Kind() == reflect.Ptr {
			return zero, nil
		}
		return zero, funkyorm.NewEmptySequenceError(opName)
	}
	return materialize.Scalar[V](raw)
}
