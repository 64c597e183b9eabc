package query

import (
	"context"
	"reflect"
	"time"

	"github.com/FuncularLabs/funkyorm"
	"github.com/FuncularLabs/funkyorm/expr"
	"github.com/FuncularLabs/funkyorm/materialize"
	"github.com/FuncularLabs/funkyorm/sqlbuild"
	"github.com/FuncularLabs/funkyorm/translate"
)

// ProjectedQuery is the result of a Select call: a deferred query still
// sourced from T's table, but materializing each row into the shape R
// instead of T (spec.md §4.5, §4.10 "Select"). Select is a free function,
// not a method, because Go methods cannot introduce an additional type
// parameter. R is resolved through the metadata registry like an entity
// type, so ToList fails with a MetadataError when R has no resolvable
// primary key.
type ProjectedQuery[R any] struct {
	base *Query[any]
	ir   *expr.QueryIR
}

// Select projects each matching row of q into shape, returning a deferred
// query materializing into R (spec.md §4.5 "Shaped"). shape's bindings are
// validated against T's mapped columns before translation: assigning a
// non-identity expression into a binding name that collides with one of T's
// mapped columns is rejected (spec.md §4.5 "no writing into persisted
// columns via projection").
func Select[T any, R any](q *Query[T], shape *expr.ObjectConstruct) (*ProjectedQuery[R], error) {
	m, err := q.registry.Resolve(q.ir.SourceType)
	if err != nil {
		return nil, err
	}
	mappedNames := make(map[string]bool, len(m.Properties))
	for _, p := range m.Properties {
		mappedNames[p.Name] = true
	}
	if err := translate.ValidateNoMappedWrite(shape, mappedNames); err != nil {
		return nil, err
	}

	c := q.clone()
	c.ir.Projection = &expr.Projection{Shape: shape}
	return &ProjectedQuery[R]{
		base: &Query[any]{conn: c.conn, registry: c.registry, cfg: c.cfg, ir: c.ir},
		ir:   c.ir,
	}, nil
}

// ToList executes the projected query and materializes every row into R.
func (p *ProjectedQuery[R]) ToList(ctx context.Context) ([]*R, error) {
	c := p.base.newContext()
	cmd, err := sqlbuild.Select(c, p.ir)
	if err != nil {
		p.base.logTranslation(err)
		return nil, err
	}

	start := time.Now()
	rows, err := p.base.execConn(ctx).QueryContext(ctx, cmd.SQL, cmd.Args()...)
	p.base.recordQuery(time.Since(start), err)
	if err != nil {
		return nil, funkyorm.NewDriverError(cmd.SQL, paramNames(cmd), err)
	}

	var zero R
	resultMapping, err := p.base.registry.Resolve(reflect.TypeOf(zero))
	if err != nil {
		rows.Close()
		return nil, err
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	plan, err := materialize.Build(cols, resultMapping.AccessorPlan, materialize.EntityByName(resultMapping))
	if err != nil {
		rows.Close()
		return nil, err
	}
	return materialize.All[R](rows, plan)
}
