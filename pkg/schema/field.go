package schema

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Kind is the declared scalar kind of a field.
type Kind int

const (
	Integer Kind = iota + 1
	Text
	Real
	DateTime
	Time
)

// String returns the lower-case kind name used in declaration files.
func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Text:
		return "text"
	case Real:
		return "real"
	case DateTime:
		return "datetime"
	case Time:
		return "time"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// SQLType returns the column type written into CREATE TABLE.
func (k Kind) SQLType() string {
	switch k {
	case Integer:
		return "INTEGER"
	case Text:
		return "TEXT"
	case Real:
		return "REAL"
	case DateTime:
		return "DATETIME"
	case Time:
		return "TIME"
	default:
		return ""
	}
}

// ParseKind maps a kind name ("integer", "text", ...) to its Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range []Kind{Integer, Text, Real, DateTime, Time} {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown field kind %q", name)
}

// Constraint is a bitmask of column-level constraints.
type Constraint int

const ConstraintNone Constraint = 0

const (
	PrimaryKey Constraint = 1 << iota
	NotNull
	Unique
	AutoIncrement
)

// Field describes one mapped column of a model.
type Field struct {
	Name        string
	Kind        Kind
	Constraints Constraint
	Default     any
	Description string
	Size        int
	Precision   int

	// References makes the field a foreign key to the first primary key of
	// the referenced model. Only Integer fields may reference another model.
	References *Model

	foreign *ForeignKey
}

// ForeignKey is the resolved target of a foreign-key field.
type ForeignKey struct {
	Model  *Model
	Table  string
	Column string
}

// Has reports whether every constraint in c is set on the field.
func (f *Field) Has(c Constraint) bool { return f.Constraints&c == c }

func (f *Field) IsPrimaryKey() bool { return f.Has(PrimaryKey) }

// Foreign returns the resolved foreign-key target, or nil.
func (f *Field) Foreign() *ForeignKey { return f.foreign }

func (f *Field) IsForeignKey() bool { return f.foreign != nil }

// TypeError reports a value whose Go type does not match the field kind.
type TypeError struct {
	Field string
	Kind  Kind
	Value any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("field %s: %T is not assignable to %s", e.Field, e.Value, e.Kind)
}

func (e *TypeError) Unwrap() error { return ErrKindMismatch }

// Convert validates v against the field kind and returns its canonical
// representation: int64, string, float64, time.Time or time.Duration.
// A nil v converts to nil.
func (f *Field) Convert(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Kind {
	case Integer:
		if n, ok := toInt64(v); ok {
			return n, nil
		}
	case Text:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case Real:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		}
	case DateTime:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
	case Time:
		if d, ok := v.(time.Duration); ok {
			return d, nil
		}
	}
	return nil, &TypeError{Field: f.Name, Kind: f.Kind, Value: v}
}

// Scan normalises a value read back from SQLite into the representation
// Convert produces. It is lenient about driver types since SQLite columns
// only carry affinities.
func (f *Field) Scan(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}
	switch f.Kind {
	case Integer:
		switch x := raw.(type) {
		case int64:
			return x, nil
		case float64:
			if x == math.Trunc(x) {
				return int64(x), nil
			}
		case string:
			if n, err := strconv.ParseInt(x, 10, 64); err == nil {
				return n, nil
			}
		}
	case Text:
		switch x := raw.(type) {
		case string:
			return x, nil
		case int64:
			return strconv.FormatInt(x, 10), nil
		case float64:
			return strconv.FormatFloat(x, 'g', -1, 64), nil
		case time.Time:
			return x.Format(sqlite3.SQLiteTimestampFormats[0]), nil
		}
	case Real:
		switch x := raw.(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		case string:
			if n, err := strconv.ParseFloat(x, 64); err == nil {
				return n, nil
			}
		}
	case DateTime:
		switch x := raw.(type) {
		case time.Time:
			return x, nil
		case string:
			if t, err := parseTimestamp(x); err == nil {
				return t, nil
			}
		case int64:
			return time.Unix(x, 0).UTC(), nil
		}
	case Time:
		switch x := raw.(type) {
		case int64:
			return time.Duration(x), nil
		case string:
			if d, err := time.ParseDuration(x); err == nil {
				return d, nil
			}
			if t, err := time.Parse(time.TimeOnly, x); err == nil {
				return time.Duration(t.Hour())*time.Hour +
					time.Duration(t.Minute())*time.Minute +
					time.Duration(t.Second())*time.Second, nil
			}
		}
	}
	return nil, fmt.Errorf("field %s: cannot read %T as %s: %w", f.Name, raw, f.Kind, ErrKindMismatch)
}

// Bind returns the driver argument for a canonical value.
func (f *Field) Bind(v any) any {
	if d, ok := v.(time.Duration); ok {
		return int64(d)
	}
	return v
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognised timestamp " + strconv.Quote(s))
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), uint64(x) <= math.MaxInt64
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), x <= math.MaxInt64
	}
	return 0, false
}
