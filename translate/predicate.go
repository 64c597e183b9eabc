package translate

import (
	"fmt"
	"strings"

	"github.com/FuncularLabs/funkyorm/expr"
)

var compareOps = map[expr.CompareOp]string{
	expr.EQ:  "=",
	expr.NEQ: "<>",
	expr.LT:  "<",
	expr.LTE: "<=",
	expr.GT:  ">",
	expr.GTE: ">=",
}

// Predicate translates a boolean IR node into a WHERE-clause fragment
// (spec.md §4.3). The returned fragment never ends mid-operator; the caller
// wraps it verbatim into `WHERE …`.
func (c *Context) Predicate(n expr.Node) (string, error) {
	switch node := n.(type) {
	case expr.And:
		left, err := c.Predicate(node.Left)
		if err != nil {
			return "", err
		}
		right, err := c.Predicate(node.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s AND %s)", left, right), nil

	case expr.Or:
		left, err := c.Predicate(node.Left)
		if err != nil {
			return "", err
		}
		right, err := c.Predicate(node.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s OR %s)", left, right), nil

	case expr.Not:
		child, err := c.Predicate(node.Child)
		if err != nil {
			return "", err
		}
		return "NOT " + child, nil

	case expr.Compare:
		return c.compare(node)

	case expr.In:
		return c.in(node)

	case expr.StringMatch:
		return c.stringMatch(node)

	case expr.HasValue:
		target, err := c.operand(node.Target)
		if err != nil {
			return "", err
		}
		return target + " IS NOT NULL", nil

	default:
		return "", unsupported("Where", fmt.Sprintf("%T", n), "not a boolean predicate node")
	}
}

// compare handles binary comparisons, including the null-equality law
// (spec.md §3.3 "A null equality comparison must translate to IS NULL / IS
// NOT NULL, never = NULL", §8 "Null comparison law").
func (c *Context) compare(node expr.Compare) (string, error) {
	_, leftNull := node.Left.(expr.NullLiteral)
	_, rightNull := node.Right.(expr.NullLiteral)

	if leftNull || rightNull {
		var operand expr.Node
		if leftNull {
			operand = node.Right
		} else {
			operand = node.Left
		}
		col, err := c.operand(operand)
		if err != nil {
			return "", err
		}
		switch node.Op {
		case expr.EQ:
			return col + " IS NULL", nil
		case expr.NEQ:
			return col + " IS NOT NULL", nil
		default:
			return "", unsupported("Where", "null comparison", "only = and <> are supported against null")
		}
	}

	opText, ok := compareOps[node.Op]
	if !ok {
		return "", unsupported("Where", "comparison", "unknown comparison operator")
	}
	left, err := c.operand(node.Left)
	if err != nil {
		return "", err
	}
	right, err := c.operand(node.Right)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", left, opText, right), nil
}

// in translates collection-containment (spec.md §3.3/§4.3). An empty or
// all-null collection yields the constant-false predicate 1=0 rather than a
// zero-length IN () (spec.md §8 "IN emptiness").
func (c *Context) in(node expr.In) (string, error) {
	target, err := c.operand(node.Target)
	if err != nil {
		return "", err
	}
	var placeholders []string
	for _, v := range node.Values {
		if v == nil {
			continue
		}
		placeholders = append(placeholders, c.newParam(v))
	}
	if len(placeholders) == 0 {
		return "1=0", nil
	}
	return fmt.Sprintf("%s IN (%s)", target, strings.Join(placeholders, ",")), nil
}

// stringMatch translates StartsWith/EndsWith/Contains to LIKE, escaping the
// pattern's wildcard characters and the escape character itself (spec.md
// §4.3, §6.2 "LIKE … ESCAPE").
func (c *Context) stringMatch(node expr.StringMatch) (string, error) {
	target, err := c.operand(node.Target)
	if err != nil {
		return "", err
	}
	escaped := escapeLikePattern(node.Pattern, c.LikeEscape)
	param := c.newParam(escaped)

	var sqlExpr string
	switch node.Kind {
	case expr.StartsWith:
		sqlExpr = fmt.Sprintf("%s LIKE %s + '%%'", target, param)
	case expr.EndsWith:
		sqlExpr = fmt.Sprintf("%s LIKE '%%' + %s", target, param)
	case expr.Contains:
		sqlExpr = fmt.Sprintf("%s LIKE '%%' + %s + '%%'", target, param)
	default:
		return "", unsupported("Where", "string match", "unknown match kind")
	}
	return fmt.Sprintf("%s ESCAPE '%c'", sqlExpr, c.LikeEscape), nil
}

// escapeLikePattern escapes the two standard LIKE wildcards (%, _) and the
// escape character itself, per spec.md §9 Open Question resolution.
func escapeLikePattern(s string, escapeChar rune) string {
	esc := string(escapeChar)
	s = strings.ReplaceAll(s, esc, esc+esc)
	s = strings.ReplaceAll(s, "%", esc+"%")
	s = strings.ReplaceAll(s, "_", esc+"_")
	return s
}
