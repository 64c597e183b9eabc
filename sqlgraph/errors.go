// Package sqlgraph classifies driver-level errors returned while executing a
// built command, adapted from the teacher's dialect/sql/sqlgraph/errors.go
// for the SQL Server backend (SPEC_FULL.md §D.4): the source ecosystem's ADO
// provider exposes a numeric SqlException.Number, which go-mssqldb surfaces
// through mssql.Error.Number.
package sqlgraph

import (
	"errors"
	"strings"
)

// ConstraintError wraps a classified constraint violation, keeping the
// underlying driver error reachable via Unwrap.
type ConstraintError struct {
	Err error
}

func (e *ConstraintError) Error() string { return e.Err.Error() }
func (e *ConstraintError) Unwrap() error { return e.Err }

// IsConstraintError returns true if err resulted from any constraint
// violation classified below.
func IsConstraintError(err error) bool {
	var e *ConstraintError
	return errors.As(err, &e) ||
		IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err)
}

// errorNumberer is implemented by github.com/denisenkom/go-mssqldb's
// mssql.Error, exposing the server's SqlException.Number.
type errorNumberer interface {
	SQLErrorNumber() int32
}

// SQL Server error numbers for constraint violations.
const (
	sqlServerUniqueIndexViolation = 2601 // Cannot insert duplicate key row in object with unique index
	sqlServerUniqueConstraint     = 2627 // Violation of UNIQUE KEY constraint / PRIMARY KEY constraint
	sqlServerForeignKeyOrCheck    = 547  // The INSERT/UPDATE/DELETE statement conflicted with the FOREIGN KEY/CHECK constraint
)

// IsUniqueConstraintError reports whether err resulted from a unique-index or
// unique/primary-key constraint violation (SQL Server error 2601 or 2627).
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[errorNumberer](err); ok {
		num := e.SQLErrorNumber()
		if num == sqlServerUniqueIndexViolation || num == sqlServerUniqueConstraint {
			return true
		}
	}
	return containsAny(err.Error(),
		"Violation of UNIQUE KEY constraint",
		"Violation of PRIMARY KEY constraint",
		"Cannot insert duplicate key row",
	)
}

// IsForeignKeyConstraintError reports whether err resulted from a foreign-key
// or check constraint violation (SQL Server error 547). The source ecosystem
// and SQL Server both fold foreign-key and check violations onto the same
// error number; callers needing to distinguish them must inspect the message.
func IsForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[errorNumberer](err); ok {
		if e.SQLErrorNumber() == sqlServerForeignKeyOrCheck {
			return true
		}
	}
	return containsAny(err.Error(),
		"conflicted with the FOREIGN KEY constraint",
		"conflicted with the CHECK constraint",
	)
}

// Classify wraps err in a *ConstraintError if it was caused by a constraint
// violation, returning err unchanged otherwise.
func Classify(err error) error {
	if IsConstraintError(err) {
		return &ConstraintError{Err: err}
	}
	return err
}

func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
