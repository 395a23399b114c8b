package edgemodel

// Op names the statement a Result or QueryError comes from.
type Op string

const (
	OpCreate Op = "create"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpLoad   Op = "load"
	OpProbe  Op = "probe"
	OpSelect Op = "select"
)

// Result encapsulates the outcome of a single-record operation.
type Result struct {
	Op           Op    // Statement that decided the outcome.
	Error        error // Holds any error that occurred during the operation.
	RowsAffected int64 // Number of rows affected (insert, update, delete).
	LastInsertID int64 // Row identifier assigned by an insert.
}

// OK reports whether the operation succeeded.
func (r *Result) OK() bool { return r.Error == nil }
