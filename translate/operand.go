package translate

import (
	"fmt"

	"github.com/FuncularLabs/funkyorm/expr"
)

var arithOps = map[expr.ArithOp]string{
	expr.Add: "+",
	expr.Sub: "-",
	expr.Mul: "*",
	expr.Div: "/",
}

// operand translates a value-producing IR node (member access, constant,
// date-part access, arithmetic, conditional) into a SQL expression fragment.
// Constants are always parameterized, never inlined (spec.md §3.3, §8
// "Parameter safety").
func (c *Context) operand(n expr.Node) (string, error) {
	switch node := n.(type) {
	case expr.Member:
		return c.columnRef(node.Property)

	case expr.Const:
		return c.newParam(node.Value), nil

	case expr.DatePart:
		inner, err := c.operand(node.Target)
		if err != nil {
			return "", err
		}
		switch node.Kind {
		case expr.Year:
			return fmt.Sprintf("YEAR(%s)", inner), nil
		case expr.Month:
			return fmt.Sprintf("MONTH(%s)", inner), nil
		case expr.Day:
			return fmt.Sprintf("DAY(%s)", inner), nil
		default:
			return "", unsupported("Where", "date part", "unknown date part kind")
		}

	case expr.Arithmetic:
		opText, ok := arithOps[node.Op]
		if !ok {
			return "", unsupported("Where", "arithmetic", "unknown arithmetic operator")
		}
		left, err := c.operand(node.Left)
		if err != nil {
			return "", err
		}
		right, err := c.operand(node.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, opText, right), nil

	case expr.Conditional:
		return c.conditional(node)

	case expr.HasValue:
		inner, err := c.operand(node.Target)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(CASE WHEN %s IS NOT NULL THEN 1 ELSE 0 END)", inner), nil

	default:
		return "", unsupported("Where", fmt.Sprintf("%T", n), "calling a member that would require executing user code inside the database is not supported")
	}
}

// conditional lowers an if-then-else node to CASE WHEN … THEN … ELSE … END
// (spec.md §3.3, §4.5).
func (c *Context) conditional(node expr.Conditional) (string, error) {
	test, err := c.Predicate(node.Test)
	if err != nil {
		return "", err
	}
	ifTrue, err := c.operand(node.IfTrue)
	if err != nil {
		return "", err
	}
	ifFalse, err := c.operand(node.IfFalse)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CASE WHEN %s THEN %s ELSE %s END", test, ifTrue, ifFalse), nil
}
