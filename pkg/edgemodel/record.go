package edgemodel

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/chmenegatti/edgemodel/pkg/schema"
)

// State is the persistence state of a record.
type State int

const (
	// Transient records have at least one unset key and are never probed.
	Transient State = iota
	// Pending records have every key set but are not known to be stored.
	Pending
	// Persisted records were last saved to or read from the database.
	Persisted
)

func (s State) String() string {
	switch s {
	case Transient:
		return "transient"
	case Pending:
		return "pending"
	case Persisted:
		return "persisted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type cell struct {
	value   any
	set     bool
	related *Record
}

// Record holds the values of one row of a model. It is not safe for
// concurrent use.
type Record struct {
	db    *Database
	model *schema.Model
	cells map[string]*cell
	state State
}

func newRecord(db *Database, model *schema.Model) *Record {
	r := &Record{
		db:    db,
		model: model,
		cells: make(map[string]*cell, len(model.Fields)),
	}
	for _, f := range model.Fields {
		r.cells[f.Name] = &cell{value: f.Default, set: f.Default != nil}
	}
	r.state = r.keyState()
	return r
}

// Model returns the record's model.
func (r *Record) Model() *schema.Model { return r.model }

// State returns the persistence state.
func (r *Record) State() State { return r.state }

// Set assigns v to the named field after checking it against the field kind.
// A nil v unsets the field. Foreign-key fields also accept a *Record of the
// referenced model; its first key is stored and the record stays reachable
// through Related.
func (r *Record) Set(name string, v any) error {
	field, c, err := r.lookup(name)
	if err != nil {
		return err
	}

	if rel, ok := v.(*Record); ok {
		fk := field.Foreign()
		if fk == nil {
			return &schema.TypeError{Field: name, Kind: field.Kind, Value: v}
		}
		if rel == nil || rel.model != fk.Model {
			return fmt.Errorf("field %s expects a %s record: %w", name, fk.Model.Name, ErrModelMismatch)
		}
		key := rel.cells[fk.Column]
		r.assign(field, c, key.value, key.set)
		c.related = rel
		return nil
	}

	value, err := field.Convert(v)
	if err != nil {
		return err
	}
	r.assign(field, c, value, value != nil)
	c.related = nil
	return nil
}

func (r *Record) assign(field *schema.Field, c *cell, value any, set bool) {
	c.value, c.set = value, set
	if field.IsPrimaryKey() {
		r.state = r.keyState()
	}
}

// keyState is Transient or Pending depending on the key cells alone.
func (r *Record) keyState() State {
	if r.keysSet() {
		return Pending
	}
	return Transient
}

func (r *Record) keysSet() bool {
	for _, k := range r.model.Keys {
		if !r.cells[k.Name].set {
			return false
		}
	}
	return true
}

func (r *Record) lookup(name string) (*schema.Field, *cell, error) {
	field, ok := r.model.Field(name)
	if !ok {
		return nil, nil, fmt.Errorf("%s.%s: %w", r.model.Name, name, ErrUnknownField)
	}
	return field, r.cells[name], nil
}

// LoadFrom assigns every entry of values through Set. All failures are
// reported together; valid entries are still assigned.
func (r *Record) LoadFrom(values map[string]any) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := r.Set(name, values[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Get returns the field value, or nil when unset or unknown.
func (r *Record) Get(name string) any {
	c, ok := r.cells[name]
	if !ok || !c.set {
		return nil
	}
	return c.value
}

// IsSet reports whether the field holds a value.
func (r *Record) IsSet(name string) bool {
	c, ok := r.cells[name]
	return ok && c.set
}

// Int returns an Integer field, zero when unset.
func (r *Record) Int(name string) int64 {
	n, _ := r.Get(name).(int64)
	return n
}

// Text returns a Text field, empty when unset.
func (r *Record) Text(name string) string {
	s, _ := r.Get(name).(string)
	return s
}

// Real returns a Real field, zero when unset.
func (r *Record) Real(name string) float64 {
	f, _ := r.Get(name).(float64)
	return f
}

// DateTime returns a DateTime field, the zero time when unset.
func (r *Record) DateTime(name string) time.Time {
	t, _ := r.Get(name).(time.Time)
	return t
}

// Time returns a Time field as an offset from midnight.
func (r *Record) Time(name string) time.Duration {
	d, _ := r.Get(name).(time.Duration)
	return d
}

// Related returns the record last assigned to a foreign-key field, or nil.
func (r *Record) Related(name string) *Record {
	c, ok := r.cells[name]
	if !ok {
		return nil
	}
	return c.related
}

// Keys returns the set key values by column name.
func (r *Record) Keys() map[string]any {
	out := make(map[string]any, len(r.model.Keys))
	for _, k := range r.model.Keys {
		if c := r.cells[k.Name]; c.set {
			out[k.Name] = c.value
		}
	}
	return out
}

// Values returns every set field value by column name.
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.cells))
	for name, c := range r.cells {
		if c.set {
			out[name] = c.value
		}
	}
	return out
}

// Clone returns an independent copy. Related records are shared.
func (r *Record) Clone() *Record {
	out := &Record{
		db:    r.db,
		model: r.model,
		cells: make(map[string]*cell, len(r.cells)),
		state: r.state,
	}
	for name, c := range r.cells {
		cp := *c
		out.cells[name] = &cp
	}
	return out
}

func (r *Record) String() string {
	var b []byte
	b = append(b, r.model.Name...)
	b = append(b, '{')
	for i, f := range r.model.SelectOrder() {
		if i > 0 {
			b = append(b, ' ')
		}
		b = fmt.Appendf(b, "%s=%v", f.Name, r.Get(f.Name))
	}
	return string(append(b, '}'))
}

// syncRelated refreshes foreign-key cells from their related records, whose
// keys may have been assigned by an insert since the assignment.
func (r *Record) syncRelated() {
	for _, f := range r.model.Fields {
		c := r.cells[f.Name]
		if c.related == nil {
			continue
		}
		key := c.related.cells[f.Foreign().Column]
		if key.set {
			r.assign(f, c, key.value, true)
		}
	}
}
