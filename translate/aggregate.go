package translate

import (
	"fmt"

	"github.com/FuncularLabs/funkyorm"
	"github.com/FuncularLabs/funkyorm/expr"
)

// AggregateResult is the translated shape of a terminal aggregate (spec.md
// §4.6), structural rather than finished SQL text: the Command Builder owns
// assembling FROM/JOIN around it, since only it knows the final table and
// join alias list.
type AggregateResult struct {
	Kind          expr.AggregateKind
	WhereFragment string // combined WHERE body, "" if none
	ColumnExpr    string // resolved column reference, for Min/Max/Avg
	Func          string // "MIN"/"MAX"/"AVG", for Min/Max/Avg
	IsBoolean     bool   // Any/All results need int->bool conversion
}

// Aggregate rewrites a terminal aggregate spec into its structural pieces
// (spec.md §4.6). upstreamWhere is the already-combined WHERE fragment from
// any chained Where calls preceding the terminal aggregate call.
func (c *Context) Aggregate(spec *expr.AggregateSpec, upstreamWhere string) (*AggregateResult, error) {
	switch spec.Kind {
	case expr.CountAgg, expr.AnyAgg:
		where, err := combineWhere(c, upstreamWhere, spec.Predicate)
		if err != nil {
			return nil, err
		}
		return &AggregateResult{Kind: spec.Kind, WhereFragment: where, IsBoolean: spec.Kind == expr.AnyAgg}, nil

	case expr.AllAgg:
		if spec.Predicate == nil {
			return nil, funkyorm.NewTranslationError("All", "", "All requires a predicate")
		}
		negated, err := c.Predicate(expr.Not{Child: spec.Predicate})
		if err != nil {
			return nil, err
		}
		where := negated
		if upstreamWhere != "" {
			where = fmt.Sprintf("(%s) AND %s", upstreamWhere, negated)
		}
		return &AggregateResult{Kind: spec.Kind, WhereFragment: where, IsBoolean: true}, nil

	case expr.MinAgg, expr.MaxAgg, expr.AvgAgg:
		col, ok := spec.Selector.(expr.Member)
		if !ok {
			return nil, funkyorm.NewTranslationError(aggName(spec.Kind), "selector", "selector must be a simple mapped column reference")
		}
		ref, err := c.columnRef(col.Property)
		if err != nil {
			return nil, err
		}
		return &AggregateResult{
			Kind:          spec.Kind,
			WhereFragment: upstreamWhere,
			ColumnExpr:    ref,
			Func:          aggFunc(spec.Kind),
		}, nil

	default:
		return nil, funkyorm.NewTranslationError("Aggregate", "", "unknown aggregate kind")
	}
}

func combineWhere(c *Context, upstream string, extra expr.Node) (string, error) {
	if extra == nil {
		return upstream, nil
	}
	frag, err := c.Predicate(extra)
	if err != nil {
		return "", err
	}
	if upstream == "" {
		return frag, nil
	}
	return fmt.Sprintf("(%s) AND %s", upstream, frag), nil
}

func aggFunc(kind expr.AggregateKind) string {
	switch kind {
	case expr.MinAgg:
		return "MIN"
	case expr.MaxAgg:
		return "MAX"
	case expr.AvgAgg:
		return "AVG"
	}
	return ""
}

func aggName(kind expr.AggregateKind) string {
	switch kind {
	case expr.MinAgg:
		return "Min"
	case expr.MaxAgg:
		return "Max"
	case expr.AvgAgg:
		return "Average"
	}
	return "Aggregate"
}
