// Package translate implements the Predicate Translator, Order/Paging
// Translator, Projection Translator, and Aggregate Planner (spec.md
// §4.3–§4.6): walking expr.Node IR and emitting SQL fragments plus
// parameters.
package translate

import (
	"reflect"

	"github.com/FuncularLabs/funkyorm"
	"github.com/FuncularLabs/funkyorm/identdialect"
	"github.com/FuncularLabs/funkyorm/metadata"
	"github.com/FuncularLabs/funkyorm/pathresolver"
)

// Param is one emitted parameter: a minted name and its bound value.
type Param struct {
	Name  string
	Value any
}

// Context is translation-unit-scoped state shared by every translator
// invoked during one Command Builder pass: the parameter counter (spec.md
// §3.5 "a translation owns its counter"), the Path Resolver (shared so
// remote properties referenced from predicate, order, and projection all
// see the same join aliases), and the LIKE escape configuration.
type Context struct {
	Registry   *metadata.Registry
	Resolver   *pathresolver.Resolver
	BaseType   reflect.Type
	BaseAlias  string
	LikeEscape rune

	params []Param
	seq    int
}

// NewContext returns a fresh translation Context for one Command Builder
// pass over baseType, aliased as baseAlias (conventionally "t0").
func NewContext(registry *metadata.Registry, baseType reflect.Type, baseAlias string, likeEscape rune) *Context {
	return &Context{
		Registry:   registry,
		Resolver:   pathresolver.NewResolver(registry, baseAlias),
		BaseType:   baseType,
		BaseAlias:  baseAlias,
		LikeEscape: likeEscape,
	}
}

// Params returns every parameter minted so far, in emission order.
func (c *Context) Params() []Param { return c.params }

// newParam mints a fresh parameter name bound to value and records it
// (spec.md §3.5). The same captured value always produces a new parameter
// (spec.md §8 "Parameter safety" / no accidental reuse).
func (c *Context) newParam(value any) string {
	name := identdialect.MintParam(c.seq)
	c.seq++
	c.params = append(c.params, Param{Name: name, Value: value})
	return name
}

// columnRef resolves a member's property name against BaseType to a
// dialect-quoted, alias-qualified column reference, registering any remote
// join chain it requires with the shared Resolver (spec.md §4.3 "member
// access that resolves... to a remote property").
func (c *Context) columnRef(property string) (string, error) {
	m, err := c.Registry.Resolve(c.BaseType)
	if err != nil {
		return "", err
	}
	if info, ok := m.RemoteInfo(property); ok && info.Kind != metadata.RemoteLink {
		path, err := c.Resolver.Resolve(c.BaseType, property, info)
		if err != nil {
			return "", err
		}
		return identdialect.Quote(path.SelectAlias) + "." + identdialect.Quote(path.SelectColumn), nil
	}
	col, ok := m.ColumnOf(property)
	if !ok {
		return "", unsupported("member", property, "not a mapped property of "+c.BaseType.Name())
	}
	return identdialect.Quote(c.BaseAlias) + "." + identdialect.Quote(col), nil
}

// unsupported builds the precise diagnostic required by spec.md §4.3
// "Failure modes".
func unsupported(op, node, reason string) error {
	return funkyorm.NewTranslationError(op, node, reason)
}
