package funkyorm

import (
	"context"
	"database/sql"
)

// Rows is the minimal row-cursor contract the Materializer consumes. It is
// satisfied by *sql.Rows.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close() error
}

// ExecQuerier is the abstract "command executor" the engine requires (§6.3):
// execute a reader, a scalar, or a non-query. No assumption beyond this is
// made about the underlying driver.
type ExecQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Tx extends ExecQuerier with transaction lifetime control.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// Connection is the external collaborator the engine borrows for the
// duration of one command (§5 "Shared-resource policy"). The engine never
// opens, closes, or pools connections itself.
type Connection interface {
	ExecQuerier
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
}

// dbConn adapts a *sql.DB to Connection.
type dbConn struct {
	db *sql.DB
}

// Open wraps database/sql.Open and returns a Connection, mirroring the
// teacher's dialect/sql.Open wrapper.
func Open(driverName, dataSourceName string) (Connection, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	return OpenDB(db), nil
}

// OpenDB wraps an existing *sql.DB as a Connection.
func OpenDB(db *sql.DB) Connection {
	return &dbConn{db: db}
}

func (c *dbConn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

func (c *dbConn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

func (c *dbConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

func (c *dbConn) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	tx, err := c.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &txConn{tx: tx}, nil
}

type txConn struct {
	tx *sql.Tx
}

func (c *txConn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.tx.QueryContext(ctx, query, args...)
}

func (c *txConn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.tx.QueryRowContext(ctx, query, args...)
}

func (c *txConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.tx.ExecContext(ctx, query, args...)
}

func (c *txConn) Commit() error   { return c.tx.Commit() }
func (c *txConn) Rollback() error { return c.tx.Rollback() }

// ctxTxKey marks a context that carries an active transaction, used by
// Delete's fail-closed guard (§5 "Delete must be invoked within an active
// transaction").
type ctxTxKey struct{}

// WithTx returns a new context carrying tx, marking it as the active
// transaction for any Query built from this context.
func WithTx(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, ctxTxKey{}, tx)
}

// TxFromContext returns the active transaction attached to ctx, if any.
func TxFromContext(ctx context.Context) (Tx, bool) {
	tx, ok := ctx.Value(ctxTxKey{}).(Tx)
	return tx, ok
}
