package translate

import (
	"fmt"
	"strings"

	"github.com/FuncularLabs/funkyorm"
	"github.com/FuncularLabs/funkyorm/expr"
	"github.com/FuncularLabs/funkyorm/identdialect"
	"github.com/FuncularLabs/funkyorm/metadata"
)

// SelectColumn is one emitted SELECT-list entry: its SQL expression and its
// output column alias.
type SelectColumn struct {
	Expr  string
	Alias string
}

// Identity emits the SELECT list for entity projection: every mapped
// column of the source type in a stable order (primary key first), plus an
// aliased column for each remote property declared on the entity (spec.md
// §4.5 "Identity"). The returned aliases are what the Materializer matches
// result ordinals against.
func (c *Context) Identity() ([]SelectColumn, error) {
	m, err := c.Registry.Resolve(c.BaseType)
	if err != nil {
		return nil, err
	}

	var cols []SelectColumn
	for _, name := range m.SortedPropertyNames() {
		prop, _ := m.PropertyByName(name)
		if info, ok := m.RemoteInfo(prop.Name); ok && info.Kind != metadata.RemoteLink {
			// A remote-marked property has no storage of its own; its value
			// comes from the joined column the Path Resolver resolves.
			ref, err := c.columnRef(prop.Name)
			if err != nil {
				return nil, err
			}
			cols = append(cols, SelectColumn{Expr: ref, Alias: prop.Name})
			continue
		}
		cols = append(cols, SelectColumn{
			Expr:  identdialect.Quote(c.BaseAlias) + "." + identdialect.Quote(prop.Column),
			Alias: prop.Name,
		})
	}
	// Remote properties may also be declared on fields with no direct
	// storage column (pure projections); walk the remote index directly to
	// catch any not already covered by Properties above.
	for propName, info := range m.Remotes {
		if info.Kind == metadata.RemoteLink {
			continue
		}
		if _, already := m.PropertyByName(propName); already {
			continue
		}
		ref, err := c.columnRef(propName)
		if err != nil {
			return nil, err
		}
		cols = append(cols, SelectColumn{Expr: ref, Alias: propName})
	}
	return cols, nil
}

// Shaped emits the SELECT list for a constructed anonymous projection shape
// (spec.md §4.5 "Shaped"). Assignment to a mapped property with a
// non-identity source expression is rejected by the Query Facade before
// this is reached (Select must not compute into persisted columns); this
// translator assumes that check already ran and simply lowers each binding.
func (c *Context) Shaped(shape *expr.ObjectConstruct) ([]SelectColumn, error) {
	var cols []SelectColumn
	for _, b := range shape.Bindings {
		sqlExpr, err := c.projectionOperand(b.Value)
		if err != nil {
			return nil, err
		}
		cols = append(cols, SelectColumn{Expr: sqlExpr, Alias: b.Name})
	}
	return cols, nil
}

// projectionOperand lowers one SELECT-list binding, casting boolean
// constants to the backend's BIT type (spec.md §4.5 "boolean constants are
// cast to the backend's boolean/bit type").
func (c *Context) projectionOperand(n expr.Node) (string, error) {
	if cst, ok := n.(expr.Const); ok {
		if b, isBool := cst.Value.(bool); isBool {
			param := c.newParam(b)
			return fmt.Sprintf("CAST(%s AS BIT)", param), nil
		}
	}
	return c.operand(n)
}

// RenderSelectList joins SelectColumns into a `col AS [alias], …` SQL
// fragment, quoting every alias (spec.md §4.8 "All identifiers pass through
// the dialect's quote").
func RenderSelectList(cols []SelectColumn) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s AS %s", c.Expr, identdialect.Quote(c.Alias))
	}
	return strings.Join(parts, ", ")
}

// ValidateNoMappedWrite rejects a Select shape that assigns a non-identity
// expression into a binding name found in mappedNames (the source entity's
// mapped property names) (spec.md §4.5 "Assignment to a mapped property
// with a non-identity source expression is a translation error").
func ValidateNoMappedWrite(shape *expr.ObjectConstruct, mappedNames map[string]bool) error {
	for _, b := range shape.Bindings {
		if !mappedNames[b.Name] {
			continue
		}
		if _, isIdentity := b.Value.(expr.Member); isIdentity {
			continue
		}
		return funkyorm.NewTranslationError("Select", b.Name, "projection must not compute into persisted columns")
	}
	return nil
}
