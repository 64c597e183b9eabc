// Package sqlconn wires the concrete SQL Server driver
// (github.com/denisenkom/go-mssqldb) behind the funkyorm.Connection contract
// (spec.md §6.3), and provides the identity-fetch helper specific to that
// driver (SPEC_FULL.md §C). Constraint-error classification lives in the
// sqlgraph package.
package sqlconn

import (
	"context"
	"database/sql"

	_ "github.com/denisenkom/go-mssqldb"

	"github.com/FuncularLabs/funkyorm"
)

// DriverName is the database/sql driver name go-mssqldb registers itself
// under.
const DriverName = "sqlserver"

// Open opens a SQL Server connection pool and returns it as a
// funkyorm.Connection, per spec.md §6.3's "caller supplies a live
// Connection" model. dsn is a `sqlserver://` connection string, as accepted
// by go-mssqldb.
func Open(dsn string) (funkyorm.Connection, error) {
	return funkyorm.Open(DriverName, dsn)
}

// ScopeIdentity fetches the last identity value generated on conn's current
// session via SELECT SCOPE_IDENTITY() (spec.md §4.8 "Insert"), used when the
// driver doesn't surface an OUTPUT-clause result set directly.
func ScopeIdentity(ctx context.Context, conn funkyorm.Connection) (int64, error) {
	var id sql.NullInt64
	row := conn.QueryRowContext(ctx, "SELECT SCOPE_IDENTITY()")
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	if !id.Valid {
		return 0, funkyorm.NewDriverError("SELECT SCOPE_IDENTITY()", nil, sql.ErrNoRows)
	}
	return id.Int64, nil
}
