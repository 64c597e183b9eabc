package query

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/FuncularLabs/funkyorm/expr"
)

// LoadMany fans out a ToList and a Count over the same accumulated query in
// parallel (SPEC_FULL.md §D.1), bounded to two goroutines via errgroup.Group
// — the one place in the engine that performs internal concurrency, and only
// over two otherwise-sequential driver round trips, never over translation
// work. Useful for paginated callers that need both a page of rows and the
// total match count in one call.
func LoadMany[T any](ctx context.Context, q *Query[T], countPredicate expr.Node) (rows []*T, total int, err error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		rows, err = q.ToList(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = q.Count(gctx, countPredicate)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
