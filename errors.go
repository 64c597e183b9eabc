// Package funkyorm translates typed predicate, order, and projection
// expressions over entity types into parameterized SQL Server statements,
// executes them through a caller-supplied connection, and materializes rows
// back into entity instances.
package funkyorm

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure conditions, usable with errors.Is.
var (
	// ErrNoPrimaryKey is returned when a type's primary key cannot be
	// resolved by marker or convention.
	ErrNoPrimaryKey = errors.New("funkyorm: no primary key could be resolved")

	// ErrEmptySequence is returned by First, Min, and Max when no row
	// matched and the target cannot represent "no value".
	ErrEmptySequence = errors.New("funkyorm: sequence contains no matching element")

	// ErrDeleteWithoutPredicate is returned when Delete is called with no
	// WHERE clause at all.
	ErrDeleteWithoutPredicate = errors.New("funkyorm: delete requires a non-trivial predicate")

	// ErrDeleteOutsideTransaction is returned when Delete is invoked without
	// an active transaction on the connection.
	ErrDeleteOutsideTransaction = errors.New("funkyorm: delete must run inside a transaction")
)

// MetadataError reports a problem discovering or validating a type's mapping:
// no resolvable primary key, a duplicate column, or an ambiguous table name.
type MetadataError struct {
	Type    string
	Message string
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("funkyorm: metadata error for %s: %s", e.Type, e.Message)
}

// Is reports whether target is the generic ErrNoPrimaryKey sentinel when this
// error's message indicates a missing primary key.
func (e *MetadataError) Is(target error) bool {
	return target == ErrNoPrimaryKey && strings.Contains(e.Message, "no primary key")
}

// NewMetadataError returns a new MetadataError for the given type name.
func NewMetadataError(typeName, message string) *MetadataError {
	return &MetadataError{Type: typeName, Message: message}
}

// IsMetadataError returns true if err is a *MetadataError.
func IsMetadataError(err error) bool {
	var e *MetadataError
	return errors.As(err, &e)
}

// TranslationError reports a predicate, order, or projection node that could
// not be lowered to SQL: an unsupported expression kind, a projection that
// writes a mapped column, or a rejected delete predicate.
type TranslationError struct {
	Op      string // e.g. "Where", "Select", "Delete"
	Node    string // the offending node, described for diagnostics
	Message string
}

func (e *TranslationError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("funkyorm: %s: the expression %s is not supported: %s", e.Op, e.Node, e.Message)
	}
	return fmt.Sprintf("funkyorm: %s: %s", e.Op, e.Message)
}

// NewTranslationError returns a new TranslationError.
func NewTranslationError(op, node, message string) *TranslationError {
	return &TranslationError{Op: op, Node: node, Message: message}
}

// IsTranslationError returns true if err is a *TranslationError.
func IsTranslationError(err error) bool {
	var e *TranslationError
	return errors.As(err, &e)
}

// PathNotFoundError reports that no foreign-key chain could be found between
// a declaring type and the target type of a remote marker.
type PathNotFoundError struct {
	From string
	To   string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("funkyorm: no foreign-key path found from %s to %s", e.From, e.To)
}

// NewPathNotFoundError returns a new PathNotFoundError.
func NewPathNotFoundError(from, to string) *PathNotFoundError {
	return &PathNotFoundError{From: from, To: to}
}

// IsPathNotFoundError returns true if err is a *PathNotFoundError.
func IsPathNotFoundError(err error) bool {
	var e *PathNotFoundError
	return errors.As(err, &e)
}

// AmbiguousMatchError reports that more than one shortest foreign-key chain
// connects a declaring type to a remote marker's target type.
type AmbiguousMatchError struct {
	From string
	To   string
	N    int // number of equally-short paths found
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("funkyorm: %d equally-short foreign-key paths from %s to %s; declare an explicit key_path", e.N, e.From, e.To)
}

// NewAmbiguousMatchError returns a new AmbiguousMatchError.
func NewAmbiguousMatchError(from, to string, n int) *AmbiguousMatchError {
	return &AmbiguousMatchError{From: from, To: to, N: n}
}

// IsAmbiguousMatchError returns true if err is a *AmbiguousMatchError.
func IsAmbiguousMatchError(err error) bool {
	var e *AmbiguousMatchError
	return errors.As(err, &e)
}

// EmptySequenceError reports that a terminal call requiring at least one row
// (First, non-nullable Min/Max) matched nothing.
type EmptySequenceError struct {
	Op string
}

func (e *EmptySequenceError) Error() string {
	return fmt.Sprintf("funkyorm: %s: sequence contains no elements", e.Op)
}

// Is reports whether target is ErrEmptySequence.
func (e *EmptySequenceError) Is(target error) bool {
	return target == ErrEmptySequence
}

// NewEmptySequenceError returns a new EmptySequenceError.
func NewEmptySequenceError(op string) *EmptySequenceError {
	return &EmptySequenceError{Op: op}
}

// IsEmptySequenceError returns true if err is a *EmptySequenceError.
func IsEmptySequenceError(err error) bool {
	var e *EmptySequenceError
	return errors.As(err, &e)
}

// DriverError wraps an underlying connection/driver failure with the SQL
// text and parameter placeholder names that produced it (never parameter
// values, which may be sensitive).
type DriverError struct {
	SQL    string
	Params []string
	Err    error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("funkyorm: driver error executing %q (params: %s): %v", e.SQL, strings.Join(e.Params, ","), e.Err)
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

// NewDriverError returns a new DriverError.
func NewDriverError(sqlText string, paramNames []string, err error) *DriverError {
	return &DriverError{SQL: sqlText, Params: paramNames, Err: err}
}

// IsDriverError returns true if err is a *DriverError.
func IsDriverError(err error) bool {
	var e *DriverError
	return errors.As(err, &e)
}
