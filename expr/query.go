package expr

import "reflect"

// OrderKey is one ORDER BY / ThenBy key, with its direction (spec.md §3.4).
type OrderKey struct {
	Member Node
	Desc   bool
}

// AggregateKind enumerates the terminal aggregate operations (spec.md §4.6).
type AggregateKind int

const (
	NoAggregate AggregateKind = iota
	CountAgg
	AnyAgg
	AllAgg
	MinAgg
	MaxAgg
	AvgAgg
)

// AggregateSpec is the terminal aggregate call accumulated on a Query IR.
// Predicate is the optional inline predicate passed to Count/Any/All;
// Selector is the column-reference selector passed to Min/Max/Avg.
type AggregateSpec struct {
	Kind      AggregateKind
	Predicate Node
	Selector  Node
}

// Projection is the optional terminal projection accumulated on a Query IR
// (spec.md §3.4). A nil Projection means identity projection: every mapped
// column of the source entity (spec.md §4.5).
type Projection struct {
	Shape *ObjectConstruct
}

// QueryIR is the accumulated state of one deferred query (spec.md §3.4):
// source type, chained predicates (implicitly AND-combined in chain order),
// insertion-ordered keys, paging, optional projection, and optional terminal
// aggregate. It is consumed at most once, at the first terminal call.
type QueryIR struct {
	SourceType reflect.Type
	Predicates []Node
	Orders     []OrderKey
	Skip       int
	HasSkip    bool
	Take       int
	HasTake    bool
	Projection *Projection
	Aggregate  *AggregateSpec
	Reversed   bool // set by Last/LastOrDefault (spec.md §4.4)
}

// New returns an empty QueryIR for the given source entity type.
func New(sourceType reflect.Type) *QueryIR {
	return &QueryIR{SourceType: sourceType}
}

// Clone returns a shallow copy of the IR suitable for independent mutation
// by a chained facade call (the facade mutates a fresh copy per call so an
// earlier reference to the query remains valid, per spec.md §4.10 "All
// non-terminal methods return a new (or mutated) deferred Query IR").
func (q *QueryIR) Clone() *QueryIR {
	c := *q
	c.Predicates = append([]Node{}, q.Predicates...)
	c.Orders = append([]OrderKey{}, q.Orders...)
	return &c
}

// CombinedPredicate folds all accumulated predicates into a single AND-tree,
// in chain order (spec.md §3.4, §8 "Chained Where = AND"). Returns nil if no
// predicates were added.
func (q *QueryIR) CombinedPredicate() Node {
	if len(q.Predicates) == 0 {
		return nil
	}
	combined := q.Predicates[0]
	for _, p := range q.Predicates[1:] {
		combined = And{Left: combined, Right: p}
	}
	return combined
}
