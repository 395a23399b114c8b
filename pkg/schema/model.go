package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"
)

// --- Naming Strategy ---

// NamingStrategy derives a table name when a declaration leaves it empty.
type NamingStrategy interface {
	TableName(modelName string) string
}

// DefaultNamingStrategy produces plural snake_case names: "Person" -> "people",
// "OrderItem" -> "order_items".
type DefaultNamingStrategy struct{}

var defaultNamingStrategy NamingStrategy = DefaultNamingStrategy{}

func (DefaultNamingStrategy) TableName(modelName string) string {
	return inflection.Plural(strcase.ToSnake(modelName))
}

// --- Model ---

// Declaration is the explicit description of one record type.
type Declaration struct {
	Name   string // model name, the registry key
	Table  string // optional; derived from Name when empty
	Fields []Field
}

// Model is a compiled declaration: validated fields and derived SQL.
type Model struct {
	Name    string
	Table   string
	Fields  []*Field // declaration order
	Keys    []*Field // primary keys, declaration order
	Regular []*Field // non-key fields, declaration order

	byName     map[string]*Field
	statements Statements
	decl       Declaration // as given, for redeclaration checks
}

// Field looks up a field by column name.
func (m *Model) Field(name string) (*Field, bool) {
	f, ok := m.byName[name]
	return f, ok
}

// FirstKey returns the first declared primary key.
func (m *Model) FirstKey() *Field { return m.Keys[0] }

// Statements returns the SQL derived for the model.
func (m *Model) Statements() Statements { return m.statements }

// InsertOrder is the column order of CREATE and INSERT: non-key fields, then keys.
func (m *Model) InsertOrder() []*Field {
	out := make([]*Field, 0, len(m.Fields))
	out = append(out, m.Regular...)
	return append(out, m.Keys...)
}

// SelectOrder is the column order of every SELECT: keys, then non-key fields.
func (m *Model) SelectOrder() []*Field {
	out := make([]*Field, 0, len(m.Fields))
	out = append(out, m.Keys...)
	return append(out, m.Regular...)
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Field names double as named parameters, which database/sql requires to
// start with a letter.
var fieldNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Compile validates a declaration and derives its statements using the
// default naming strategy. Compiling the same declaration twice yields
// identical statements.
func Compile(decl Declaration) (*Model, error) {
	return compile(decl, defaultNamingStrategy)
}

func compile(decl Declaration, naming NamingStrategy) (*Model, error) {
	var errs []error

	if strings.TrimSpace(decl.Name) == "" {
		errs = append(errs, fmt.Errorf("model name is empty: %w", ErrInvalidIdentifier))
	}
	table := decl.Table
	if table == "" && decl.Name != "" {
		table = naming.TableName(decl.Name)
	}
	switch {
	case !identifierPattern.MatchString(table):
		errs = append(errs, fmt.Errorf("table %q: %w", table, ErrInvalidIdentifier))
	case IsKeyword(table):
		errs = append(errs, fmt.Errorf("table %q is an SQL keyword: %w", table, ErrInvalidIdentifier))
	}

	model := &Model{
		Name:   decl.Name,
		Table:  table,
		Fields: make([]*Field, 0, len(decl.Fields)),
		byName: make(map[string]*Field, len(decl.Fields)),
		decl:   Declaration{Name: decl.Name, Table: decl.Table, Fields: append([]Field(nil), decl.Fields...)},
	}

	for i := range decl.Fields {
		field := decl.Fields[i] // copy; the declaration stays untouched
		if err := checkField(&field, i); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := model.byName[field.Name]; dup {
			errs = append(errs, fmt.Errorf("field %s: %w", field.Name, ErrDuplicateField))
			continue
		}
		f := &field
		model.Fields = append(model.Fields, f)
		model.byName[f.Name] = f
		if f.IsPrimaryKey() {
			model.Keys = append(model.Keys, f)
		} else {
			model.Regular = append(model.Regular, f)
		}
	}

	if len(model.Keys) == 0 {
		errs = append(errs, ErrNoPrimaryKey)
	}
	for _, f := range model.Fields {
		if f.Has(AutoIncrement) && len(model.Keys) > 1 {
			errs = append(errs, fmt.Errorf("field %s: %w", f.Name, ErrInvalidAutoIncrement))
		}
	}

	if len(errs) > 0 {
		return nil, &DeclarationError{Model: decl.Name, Err: joinErrors(errs)}
	}

	model.statements = deriveStatements(model)
	return model, nil
}

// checkField validates a single field and resolves its foreign key.
func checkField(f *Field, index int) error {
	if f.Name == "" {
		return fmt.Errorf("field #%d: %w", index, ErrMissingFieldName)
	}
	if !fieldNamePattern.MatchString(f.Name) || strings.EqualFold(f.Name, RowIDParam) {
		return fmt.Errorf("field %q: %w", f.Name, ErrInvalidIdentifier)
	}
	if IsKeyword(f.Name) {
		return fmt.Errorf("field %q is an SQL keyword: %w", f.Name, ErrInvalidIdentifier)
	}
	if f.Kind.SQLType() == "" {
		return fmt.Errorf("field %s: %w", f.Name, ErrUnknownKind)
	}
	if f.Has(AutoIncrement) && (!f.IsPrimaryKey() || f.Kind != Integer) {
		return fmt.Errorf("field %s: %w", f.Name, ErrInvalidAutoIncrement)
	}
	if f.Default != nil {
		v, err := f.Convert(f.Default)
		if err != nil {
			return fmt.Errorf("field %s: %w", f.Name, ErrInvalidDefault)
		}
		f.Default = v
	}

	f.foreign = nil
	if ref := f.References; ref != nil {
		if f.Kind != Integer {
			return fmt.Errorf("field %s: only integer fields can reference %s: %w", f.Name, ref.Name, ErrInvalidForeignKey)
		}
		if len(ref.Keys) == 0 {
			return fmt.Errorf("field %s -> %s: %w", f.Name, ref.Name, ErrForeignKeyTarget)
		}
		if ref.Table == "" || ref.Keys[0].Name == "" {
			return fmt.Errorf("field %s -> %s: referenced model was not compiled: %w", f.Name, ref.Name, ErrInvalidForeignKey)
		}
		f.foreign = &ForeignKey{Model: ref, Table: ref.Table, Column: ref.Keys[0].Name}
	}
	return nil
}

func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	return fmt.Errorf("%d error(s): %w", len(errs), errors.Join(errs...))
}
