package translate_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FuncularLabs/funkyorm/expr"
	"github.com/FuncularLabs/funkyorm/metadata"
	"github.com/FuncularLabs/funkyorm/translate"
)

type Person struct {
	Id        int `db:"pk,identity"`
	Age       int
	LastName  string
	Gender    string
	NickName  *string
	OrgId     int `db:"link=Organization"`
	OrgName   string `db:"remoteproperty=Organization:OrgId.Name"`
}

type Organization struct {
	Id   int `db:"pk,identity"`
	Name string
}

func newContext(t *testing.T) (*metadata.Registry, *translate.Context) {
	t.Helper()
	reg := metadata.NewRegistry()
	require.NoError(t, reg.MustResolve(reflect.TypeOf(Person{}), reflect.TypeOf(Organization{})))
	ctx := translate.NewContext(reg, reflect.TypeOf(Person{}), "t0", '\\')
	return reg, ctx
}

func TestPredicate_CompareAndStringMatch(t *testing.T) {
	_, ctx := newContext(t)

	ageCmp := expr.Compare{Op: expr.GTE, Left: expr.Member{Property: "Age"}, Right: expr.Const{Value: 18}}
	nameMatch := expr.StringMatch{Kind: expr.StartsWith, Target: expr.Member{Property: "LastName"}, Pattern: "D"}
	combined := expr.And{Left: ageCmp, Right: nameMatch}

	frag, err := ctx.Predicate(combined)
	require.NoError(t, err)
	assert.Equal(t, `([t0].[Age] >= @p__linq__0 AND [t0].[LastName] LIKE @p__linq__1 + '%' ESCAPE '\')`, frag)

	params := ctx.Params()
	require.Len(t, params, 2)
	assert.Equal(t, 18, params[0].Value)
	assert.Equal(t, "D", params[1].Value)
}

func TestPredicate_NullEquality(t *testing.T) {
	_, ctx := newContext(t)
	cmp := expr.Compare{Op: expr.EQ, Left: expr.Member{Property: "LastName"}, Right: expr.NullLiteral{}}
	frag, err := ctx.Predicate(cmp)
	require.NoError(t, err)
	assert.Equal(t, "[t0].[LastName] IS NULL", frag)
}

func TestIn_EmptyCollectionIsConstantFalse(t *testing.T) {
	_, ctx := newContext(t)
	frag, err := ctx.Predicate(expr.In{Target: expr.Member{Property: "Age"}, Values: nil})
	require.NoError(t, err)
	assert.Equal(t, "1=0", frag)
}

func TestOrderAndPage_SynthesizesPrimaryKeyWhenPagingWithoutOrder(t *testing.T) {
	_, ctx := newContext(t)
	clause, err := ctx.OrderAndPage(nil, 0, true, 10, true, false)
	require.NoError(t, err)
	assert.Equal(t, "ORDER BY [t0].[Id] ASC OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY", clause)
}

func TestOrderAndPage_DescendingTake(t *testing.T) {
	_, ctx := newContext(t)
	orders := []expr.OrderKey{{Member: expr.Member{Property: "Age"}, Desc: true}}
	clause, err := ctx.OrderAndPage(orders, 0, true, 10, true, false)
	require.NoError(t, err)
	assert.Equal(t, "ORDER BY [t0].[Age] DESC OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY", clause)
}

func TestColumnRef_RemoteProperty(t *testing.T) {
	_, ctx := newContext(t)
	ref, err := ctx.Predicate(expr.Compare{Op: expr.EQ, Left: expr.Member{Property: "OrgName"}, Right: expr.Const{Value: "Acme"}})
	require.NoError(t, err)
	assert.Contains(t, ref, "[t1].[Name]")
	assert.Len(t, ctx.Resolver.Joins(), 1)
	assert.Equal(t, "Organization", ctx.Resolver.Joins()[0].ToTable)
}

func TestIdentity_ExcludesRemotePropertyLocalColumn(t *testing.T) {
	reg, ctx := newContext(t)
	m, err := reg.Resolve(reflect.TypeOf(Person{}))
	require.NoError(t, err)
	_ = m

	cols, err := ctx.Identity()
	require.NoError(t, err)

	var orgNameExpr string
	for _, c := range cols {
		if c.Alias == "OrgName" {
			orgNameExpr = c.Expr
		}
	}
	assert.Contains(t, orgNameExpr, "[t1].[Name]")
}

func TestAggregate_CountWithPredicate(t *testing.T) {
	_, ctx := newContext(t)
	spec := &expr.AggregateSpec{Kind: expr.CountAgg, Predicate: expr.Compare{Op: expr.EQ, Left: expr.Member{Property: "Gender"}, Right: expr.Const{Value: "Female"}}}
	result, err := ctx.Aggregate(spec, "")
	require.NoError(t, err)
	assert.Equal(t, "[t0].[Gender] = @p__linq__0", result.WhereFragment)
}
