package translate

import (
	"fmt"
	"strings"

	"github.com/FuncularLabs/funkyorm"
	"github.com/FuncularLabs/funkyorm/expr"
)

// OrderAndPage emits `ORDER BY … OFFSET … ROWS [FETCH NEXT … ROWS ONLY]`
// (spec.md §4.4), preserving insertion order of keys (spec.md §8 "Ordering
// stability"). If paging is requested without an explicit order, a
// deterministic primary-key-ascending fallback is synthesized; if the
// source type has no primary key, this fails with a precise diagnostic
// rather than guessing (spec.md §4.4, §9 "Last without an order").
func (c *Context) OrderAndPage(orders []expr.OrderKey, skip int, hasSkip bool, take int, hasTake bool, reversed bool) (string, error) {
	if len(orders) == 0 && (hasSkip || hasTake) {
		pk, err := c.Registry.PrimaryKeyOf(c.BaseType)
		if err != nil {
			return "", err
		}
		orders = []expr.OrderKey{{Member: expr.Member{Property: pk.Name}, Desc: false}}
	}
	if reversed {
		orders = reverseOrders(orders)
	}
	if len(orders) == 0 {
		return c.paging(skip, hasSkip, take, hasTake, ""), nil
	}

	var parts []string
	for _, key := range orders {
		col, err := c.operand(key.Member)
		if err != nil {
			return "", err
		}
		if key.Desc {
			parts = append(parts, col+" DESC")
		} else {
			parts = append(parts, col+" ASC")
		}
	}
	orderBy := "ORDER BY " + strings.Join(parts, ", ")
	return c.paging(skip, hasSkip, take, hasTake, orderBy), nil
}

func (c *Context) paging(skip int, hasSkip bool, take int, hasTake bool, orderBy string) string {
	if !hasSkip && !hasTake {
		return orderBy
	}
	offset := skip
	if !hasSkip {
		offset = 0
	}
	clause := fmt.Sprintf("OFFSET %d ROWS", offset)
	if hasTake {
		clause += fmt.Sprintf(" FETCH NEXT %d ROWS ONLY", take)
	}
	if orderBy == "" {
		return clause
	}
	return orderBy + " " + clause
}

// reverseOrders reverses each key's direction, for Last/LastOrDefault
// (spec.md §4.4 "the translator reverses the ordering... and maps the call
// to First/FirstOrDefault semantics on the reversed order").
func reverseOrders(orders []expr.OrderKey) []expr.OrderKey {
	reversed := make([]expr.OrderKey, len(orders))
	for i, o := range orders {
		reversed[i] = expr.OrderKey{Member: o.Member, Desc: !o.Desc}
	}
	return reversed
}

// RequirePrimaryKeyForReverse is used by the Query Facade's Last/LastOrDefault
// when no explicit order was set: it must synthesize a descending
// primary-key order, failing precisely if no primary key exists.
func (c *Context) RequirePrimaryKeyForReverse() (expr.OrderKey, error) {
	pk, err := c.Registry.PrimaryKeyOf(c.BaseType)
	if err != nil {
		return expr.OrderKey{}, funkyorm.NewMetadataError(c.BaseType.Name(), "no primary key: cannot order Last() without an explicit order")
	}
	return expr.OrderKey{Member: expr.Member{Property: pk.Name}, Desc: true}, nil
}
