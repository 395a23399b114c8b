// pkg/edgemodel/crud.go
package edgemodel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chmenegatti/edgemodel/pkg/schema"
)

// namedArgs binds the current value of each field under its column name.
func (r *Record) namedArgs(fields []*schema.Field) []any {
	args := make([]any, len(fields))
	for i, f := range fields {
		var v any
		if c := r.cells[f.Name]; c.set {
			v = f.Bind(c.value)
		}
		args[i] = sql.Named(f.Name, v)
	}
	return args
}

// probe reports whether a row with the record's keys exists. A record with an
// unset key is not persisted and no query runs.
func (r *Record) probe(ctx context.Context) (bool, error) {
	if !r.keysSet() {
		return false, nil
	}
	exists := r.model.Statements().Exists
	rows, err := r.db.query(ctx, exists, r.namedArgs(r.model.Keys))
	if err != nil {
		return false, newQueryError(OpProbe, r.model.Name, exists, err)
	}
	defer rows.Close()

	found := rows.Next()
	if err := rows.Err(); err != nil {
		return false, newQueryError(OpProbe, r.model.Name, exists, err)
	}
	return found, nil
}

// Save inserts the record when the probe finds no stored row and updates it
// otherwise. After an insert every field is reloaded from the new row, so
// database-assigned keys become visible.
func (r *Record) Save(ctx context.Context) *Result {
	r.syncRelated()
	exists, err := r.probe(ctx)
	if err != nil {
		return r.fail(&Result{Op: OpProbe}, err)
	}
	op := OpInsert
	if exists {
		op = OpUpdate
	}
	if err := r.runHook(ctx, "before save", r.hooks().BeforeSave); err != nil {
		return r.fail(&Result{Op: op}, err)
	}

	var result *Result
	if exists {
		result = r.update(ctx)
	} else {
		result = r.insert(ctx)
	}
	if result.OK() {
		if err := r.runHook(ctx, "after save", r.hooks().AfterSave); err != nil {
			return r.fail(result, err)
		}
	}
	return result
}

func (r *Record) insert(ctx context.Context) *Result {
	result := &Result{Op: OpInsert}
	insert := r.model.Statements().Insert

	res, err := r.db.exec(ctx, insert, r.namedArgs(r.model.InsertOrder()))
	if err != nil {
		return r.fail(result, newQueryError(OpInsert, r.model.Name, insert, err))
	}
	if result.RowsAffected, err = res.RowsAffected(); err != nil {
		r.db.logger.Warn("rows affected unavailable", "model", r.model.Name, "error", err)
	}
	if result.LastInsertID, err = res.LastInsertId(); err != nil {
		return r.fail(result, newQueryError(OpInsert, r.model.Name, insert, err))
	}

	byRowID := r.model.Statements().SelectByRowID
	if err := r.loadOne(ctx, byRowID, []any{sql.Named(schema.RowIDParam, result.LastInsertID)}); err != nil {
		return r.fail(result, err)
	}
	r.db.logger.Debug("record inserted", "model", r.model.Name, "rowid", result.LastInsertID)
	return result
}

func (r *Record) update(ctx context.Context) *Result {
	result := &Result{Op: OpUpdate}
	update := r.model.Statements().Update
	if update == "" {
		r.state = Persisted
		return r.fail(result, ErrNothingToUpdate)
	}

	args := r.namedArgs(append(append([]*schema.Field{}, r.model.Regular...), r.model.Keys...))
	res, err := r.db.exec(ctx, update, args)
	if err != nil {
		return r.fail(result, newQueryError(OpUpdate, r.model.Name, update, err))
	}
	if result.RowsAffected, err = res.RowsAffected(); err != nil {
		return r.fail(result, newQueryError(OpUpdate, r.model.Name, update, err))
	}
	if result.RowsAffected == 0 {
		return r.fail(result, ErrNotFound)
	}
	r.state = Persisted
	return result
}

// Delete removes the stored row. It fails with ErrNotPersisted when a key is
// unset and with ErrNotFound when no row matches; neither case issues a
// DELETE.
func (r *Record) Delete(ctx context.Context) *Result {
	result := &Result{Op: OpDelete}
	if !r.keysSet() {
		return r.fail(result, ErrNotPersisted)
	}
	exists, err := r.probe(ctx)
	if err != nil {
		return r.fail(result, err)
	}
	if !exists {
		return r.fail(result, ErrNotFound)
	}

	if err := r.runHook(ctx, "before delete", r.hooks().BeforeDelete); err != nil {
		return r.fail(result, err)
	}

	del := r.model.Statements().Delete
	res, err := r.db.exec(ctx, del, r.namedArgs(r.model.Keys))
	if err != nil {
		return r.fail(result, newQueryError(OpDelete, r.model.Name, del, err))
	}
	if result.RowsAffected, err = res.RowsAffected(); err != nil {
		return r.fail(result, newQueryError(OpDelete, r.model.Name, del, err))
	}
	r.state = Pending
	if err := r.runHook(ctx, "after delete", r.hooks().AfterDelete); err != nil {
		return r.fail(result, err)
	}
	return result
}

// Load overwrites every field with the stored row matching the keys.
func (r *Record) Load(ctx context.Context) *Result {
	result := &Result{Op: OpLoad}
	if !r.keysSet() {
		return r.fail(result, ErrNotPersisted)
	}
	exists, err := r.probe(ctx)
	if err != nil {
		return r.fail(result, err)
	}
	if !exists {
		return r.fail(result, ErrNotFound)
	}
	if err := r.loadOne(ctx, r.model.Statements().SelectByKey, r.namedArgs(r.model.Keys)); err != nil {
		return r.fail(result, err)
	}
	if err := r.runHook(ctx, "after load", r.hooks().AfterLoad); err != nil {
		return r.fail(result, err)
	}
	return result
}

// GetByID loads the row whose first key equals id into the record.
func (r *Record) GetByID(ctx context.Context, id any) *Result {
	result := &Result{Op: OpLoad}
	records, err := r.GetWithParams(ctx, Where(r.model.FirstKey().Name, "=", id), Limit(1))
	if err != nil {
		return r.fail(result, err)
	}
	if len(records) == 0 {
		return r.fail(result, ErrNotFound)
	}
	return result
}

// GetAll returns one snapshot per stored row in select order. The receiver
// is rebound to each row in turn and ends holding the last one.
func (r *Record) GetAll(ctx context.Context) ([]*Record, error) {
	return r.list(ctx, r.model.Statements().Select, nil)
}

// GetSQL runs a caller-written query and maps its result columns onto
// fields by name, like GetAll. Besides args, named placeholders ":field"
// resolve to the receiver's current values.
func (r *Record) GetSQL(ctx context.Context, query string, args ...any) ([]*Record, error) {
	// go-sqlite3 binds positional arguments only ahead of named ones.
	bound := append(append([]any{}, args...), r.namedArgs(r.model.Fields)...)
	return r.list(ctx, query, bound)
}

func (r *Record) list(ctx context.Context, query string, args []any) ([]*Record, error) {
	rows, err := r.db.query(ctx, query, args)
	if err != nil {
		return nil, r.logErr(newQueryError(OpSelect, r.model.Name, query, err))
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		if err := r.scan(rows); err != nil {
			return nil, r.logErr(newQueryError(OpSelect, r.model.Name, query, err))
		}
		if err := r.runHook(ctx, "after load", r.hooks().AfterLoad); err != nil {
			return nil, r.logErr(err)
		}
		out = append(out, r.Clone())
	}
	if err := rows.Err(); err != nil {
		return nil, r.logErr(newQueryError(OpSelect, r.model.Name, query, err))
	}
	return out, nil
}

// loadOne reads exactly the first row of query into the record.
func (r *Record) loadOne(ctx context.Context, query string, args []any) error {
	rows, err := r.db.query(ctx, query, args)
	if err != nil {
		return newQueryError(OpLoad, r.model.Name, query, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return newQueryError(OpLoad, r.model.Name, query, err)
		}
		return ErrNotFound
	}
	if err := r.scan(rows); err != nil {
		return newQueryError(OpLoad, r.model.Name, query, err)
	}
	return nil
}

// scan maps the current row onto the record by column name. Columns that
// name no field are skipped; a row that maps to no field is an error.
func (r *Record) scan(rows *sql.Rows) error {
	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("reading result columns: %w", err)
	}

	raw := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return fmt.Errorf("scanning row: %w", err)
	}

	mapped := 0
	for i, col := range columns {
		field, ok := r.model.Field(col)
		if !ok {
			continue
		}
		value, err := field.Scan(raw[i])
		if err != nil {
			return err
		}
		c := r.cells[field.Name]
		if c.related != nil && c.related.Get(field.Foreign().Column) != value {
			c.related = nil
		}
		c.value, c.set = value, value != nil
		mapped++
	}
	if mapped == 0 {
		return fmt.Errorf("none of the columns %v belong to %s", columns, r.model.Name)
	}

	if r.keysSet() {
		r.state = Persisted
	} else {
		r.state = Transient
	}
	return nil
}

func (r *Record) fail(result *Result, err error) *Result {
	result.Error = r.logErr(err)
	return result
}

func (r *Record) logErr(err error) error {
	level := r.db.logger.Error
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotPersisted) {
		level = r.db.logger.Debug
	}
	level("operation failed", "model", r.model.Name, "error", err)
	return err
}
