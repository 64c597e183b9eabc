package query_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FuncularLabs/funkyorm"
	"github.com/FuncularLabs/funkyorm/expr"
	"github.com/FuncularLabs/funkyorm/metadata"
	"github.com/FuncularLabs/funkyorm/query"
)

type Person struct {
	Id       int `db:"pk,identity"`
	Age      int
	LastName string
}

func newQuery(t *testing.T) (*query.Query[Person], sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	conn := funkyorm.OpenDB(db)
	reg := metadata.NewRegistry()
	cfg := funkyorm.NewConfig()
	q := query.New[Person](conn, reg, cfg)
	return q, mock, func() { db.Close() }
}

func TestToList_ExecutesTranslatedSQL(t *testing.T) {
	q, mock, closeDB := newQuery(t)
	defer closeDB()

	rows := sqlmock.NewRows([]string{"Id", "Age", "LastName"}).
		AddRow(1, 30, "Doe")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT [t0].[Id] AS [Id], [t0].[Age] AS [Age], [t0].[LastName] AS [LastName] FROM [Person] AS [t0] WHERE [t0].[Age] >= @p__linq__0`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	out, err := q.Where(expr.Compare{Op: expr.GTE, Left: expr.Member{Property: "Age"}, Right: expr.Const{Value: 18}}).ToList(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Doe", out[0].LastName)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCount_ExecutesAggregateSQL(t *testing.T) {
	q, mock, closeDB := newQuery(t)
	defer closeDB()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM [Person] AS [t0]`)).
		WillReturnRows(sqlmock.NewRows([]string{""}).AddRow(3))

	n, err := q.Count(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFirst_EmptySequenceErrors(t *testing.T) {
	q, mock, closeDB := newQuery(t)
	defer closeDB()

	mock.ExpectQuery(".*").WillReturnRows(sqlmock.NewRows([]string{"Id", "Age", "LastName"}))

	_, err := q.First(context.Background())
	require.Error(t, err)
	assert.True(t, funkyorm.IsEmptySequenceError(err))
}
