package edgemodel

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when the record's keys match no stored row.
	ErrNotFound = errors.New("edgemodel: record not found")
	// ErrNotPersisted is returned when an operation needs a key that was never set.
	ErrNotPersisted = errors.New("edgemodel: record key is not set")
	// ErrConstraint matches any *QueryError caused by a SQLite constraint violation.
	ErrConstraint = errors.New("edgemodel: constraint violation")
	// ErrEngine matches any *QueryError caused by another engine failure.
	ErrEngine = errors.New("edgemodel: database engine error")

	ErrNotOpened     = errors.New("edgemodel: database is not opened")
	ErrUnknownField  = errors.New("edgemodel: unknown field")
	ErrModelMismatch = errors.New("edgemodel: record belongs to a different model")
	ErrInvalidQuery  = errors.New("edgemodel: invalid query option")
	ErrEmptyPath     = errors.New("edgemodel: database path is empty")

	// ErrNothingToUpdate is returned when a stored record of a model whose
	// fields are all keys is saved again: no column can change.
	ErrNothingToUpdate = errors.New("edgemodel: model has no non-key fields to update")
)

// QueryError wraps a failure reported by the SQL engine while running one
// statement.
type QueryError struct {
	Op    Op
	Model string
	SQL   string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("edgemodel: %s %s: %v", e.Op, e.Model, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Is lets callers test errors.Is(err, ErrConstraint) or errors.Is(err, ErrEngine).
func (e *QueryError) Is(target error) bool {
	switch target {
	case ErrConstraint:
		return isConstraint(e.Err)
	case ErrEngine:
		return !isConstraint(e.Err)
	}
	return false
}

func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

func newQueryError(op Op, model, query string, err error) error {
	return &QueryError{Op: op, Model: model, SQL: query, Err: err}
}
