package sqlbuild_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FuncularLabs/funkyorm/expr"
	"github.com/FuncularLabs/funkyorm/metadata"
	"github.com/FuncularLabs/funkyorm/sqlbuild"
	"github.com/FuncularLabs/funkyorm/translate"
)

type Person struct {
	Id       int `db:"pk,identity"`
	Age      int
	Gender   string
	LastName string
}

type Log struct {
	Id      string `db:"pk"`
	Message string
}

func newCtx(t *testing.T) (*metadata.Registry, *translate.Context) {
	t.Helper()
	reg := metadata.NewRegistry()
	require.NoError(t, reg.MustResolve(reflect.TypeOf(Person{})))
	return reg, translate.NewContext(reg, reflect.TypeOf(Person{}), "t0", '\\')
}

// TestSelect_Scenario1 matches spec.md §8 scenario 1.
func TestSelect_Scenario1(t *testing.T) {
	_, ctx := newCtx(t)

	ir := expr.New(reflect.TypeOf(Person{}))
	ir.Predicates = []expr.Node{
		expr.Compare{Op: expr.GTE, Left: expr.Member{Property: "Age"}, Right: expr.Const{Value: 18}},
		expr.StringMatch{Kind: expr.StartsWith, Target: expr.Member{Property: "LastName"}, Pattern: "D"},
	}
	ir.Orders = []expr.OrderKey{{Member: expr.Member{Property: "Age"}, Desc: true}}
	ir.Take, ir.HasTake = 10, true

	cmd, err := sqlbuild.Select(ctx, ir)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT [t0].[Id] AS [Id], [t0].[Age] AS [Age], [t0].[Gender] AS [Gender], [t0].[LastName] AS [LastName] FROM [Person] AS [t0] WHERE ([t0].[Age] >= @p__linq__0 AND [t0].[LastName] LIKE @p__linq__1 + '%' ESCAPE '\') ORDER BY [t0].[Age] DESC OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY`,
		cmd.SQL)
	require.Len(t, cmd.Params, 2)
	assert.Equal(t, 18, cmd.Params[0].Value)
	assert.Equal(t, "D", cmd.Params[1].Value)
}

// TestSelect_CountScenario matches spec.md §8 scenario 5.
func TestSelect_CountScenario(t *testing.T) {
	_, ctx := newCtx(t)

	ir := expr.New(reflect.TypeOf(Person{}))
	ir.Aggregate = &expr.AggregateSpec{
		Kind:      expr.CountAgg,
		Predicate: expr.Compare{Op: expr.EQ, Left: expr.Member{Property: "Gender"}, Right: expr.Const{Value: "Female"}},
	}

	cmd, err := sqlbuild.Select(ctx, ir)
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM [Person] AS [t0] WHERE [t0].[Gender] = @p__linq__0`, cmd.SQL)
	require.Len(t, cmd.Params, 1)
	assert.Equal(t, "Female", cmd.Params[0].Value)
}

func TestInsert_IdentityPrimaryKeyOmitted(t *testing.T) {
	reg := metadata.NewRegistry()
	m, err := reg.Resolve(reflect.TypeOf(Person{}))
	require.NoError(t, err)

	cmd, err := sqlbuild.Insert(&sqlbuild.InsertPlan{
		Mapping: m,
		Values:  map[string]any{"Age": 30, "Gender": "Female", "LastName": "Doe"},
	})
	require.NoError(t, err)
	assert.NotContains(t, cmd.SQL, "[Id]")
	assert.Contains(t, cmd.SQL, "OUTPUT INSERTED.[Id]")
	assert.Contains(t, cmd.SQL, "INSERT INTO [Person]")
}

func TestInsert_NonIdentityPrimaryKeyIncluded(t *testing.T) {
	reg := metadata.NewRegistry()
	m, err := reg.Resolve(reflect.TypeOf(Log{}))
	require.NoError(t, err)

	cmd, err := sqlbuild.Insert(&sqlbuild.InsertPlan{
		Mapping: m,
		Values:  map[string]any{"Id": "11111111-1111-1111-1111-111111111111", "Message": "hello"},
	})
	require.NoError(t, err)
	assert.Contains(t, cmd.SQL, "[Id]")
	assert.NotContains(t, cmd.SQL, "OUTPUT INSERTED")
}

func TestUpdate_PrimaryKeyInWhereNotSet(t *testing.T) {
	reg := metadata.NewRegistry()
	m, err := reg.Resolve(reflect.TypeOf(Person{}))
	require.NoError(t, err)

	cmd, err := sqlbuild.Update(&sqlbuild.UpdatePlan{
		Mapping: m,
		PKValue: 1,
		Values:  map[string]any{"Age": 31},
	})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE [Person] SET [Age] = @p__linq__0 WHERE [Id] = @p__linq__1`, cmd.SQL)
}

func TestDelete_RequiresPredicate(t *testing.T) {
	_, ctx := newCtx(t)
	reg := metadata.NewRegistry()
	m, err := reg.Resolve(reflect.TypeOf(Person{}))
	require.NoError(t, err)

	_, err = sqlbuild.Delete(ctx, m, nil)
	assert.Error(t, err)
}

func TestDelete_RejectsTriviallyTruePredicate(t *testing.T) {
	_, ctx := newCtx(t)
	reg := metadata.NewRegistry()
	m, err := reg.Resolve(reflect.TypeOf(Person{}))
	require.NoError(t, err)

	_, err = sqlbuild.Delete(ctx, m, expr.Const{Value: true})
	require.Error(t, err)

	_, err = sqlbuild.Delete(ctx, m, expr.Compare{Op: expr.EQ, Left: expr.Member{Property: "Id"}, Right: expr.Member{Property: "Id"}})
	require.Error(t, err)
}

func TestDelete_WithPredicate(t *testing.T) {
	_, ctx := newCtx(t)
	reg := metadata.NewRegistry()
	m, err := reg.Resolve(reflect.TypeOf(Person{}))
	require.NoError(t, err)

	cmd, err := sqlbuild.Delete(ctx, m, expr.Compare{Op: expr.EQ, Left: expr.Member{Property: "Id"}, Right: expr.Const{Value: 7}})
	require.NoError(t, err)
	assert.Equal(t, `DELETE [t0] FROM [Person] AS [t0] WHERE [t0].[Id] = @p__linq__0`, cmd.SQL)
}
