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

func newTxQuery(t *testing.T) (*query.Query[Person], funkyorm.Connection, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	conn := funkyorm.OpenDB(db)
	reg := metadata.NewRegistry()
	cfg := funkyorm.NewConfig()
	q := query.New[Person](conn, reg, cfg)
	return q, conn, mock, func() { db.Close() }
}

func TestInsert_IdentityRoundTrip(t *testing.T) {
	q, mock, closeDB := newQuery(t)
	defer closeDB()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO [Person] ([Age], [LastName]) OUTPUT INSERTED.[Id] VALUES (@p__linq__0, @p__linq__1)`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(42))

	p := &Person{Age: 30, LastName: "Doe"}
	err := q.Insert(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 42, p.Id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_ExecutesGeneratedStatement(t *testing.T) {
	q, mock, closeDB := newQuery(t)
	defer closeDB()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE [Person] SET [Age] = @p__linq__0, [LastName] = @p__linq__1 WHERE [Id] = @p__linq__2`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &Person{Id: 7, Age: 31, LastName: "Doe"}
	err := q.Update(context.Background(), p)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_RejectsOutsideTransaction(t *testing.T) {
	q, _, closeDB := newQuery(t)
	defer closeDB()

	pred := expr.Compare{Op: expr.EQ, Left: expr.Member{Property: "Id"}, Right: expr.Const{Value: 7}}
	_, err := q.Delete(context.Background(), pred)
	require.Error(t, err)
	assert.ErrorIs(t, err, funkyorm.ErrDeleteOutsideTransaction)
}

func TestDelete_RunsWithinActiveTransaction(t *testing.T) {
	q, conn, mock, closeDB := newTxQuery(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE [t0] FROM [Person] AS [t0] WHERE [t0].[Id] = @p__linq__0`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := conn.BeginTx(ctx, nil)
	require.NoError(t, err)

	pred := expr.Compare{Op: expr.EQ, Left: expr.Member{Property: "Id"}, Right: expr.Const{Value: 7}}
	n, err := q.Delete(funkyorm.WithTx(ctx, tx), pred)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}
