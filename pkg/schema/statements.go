package schema

import "strings"

// Statements holds the SQL text derived once per model. Parameters use the
// SQLite named form ":column".
type Statements struct {
	Create        string
	Insert        string
	Update        string // empty when the model has no non-key fields
	Delete        string
	Exists        string
	Select        string
	SelectByKey   string
	SelectByRowID string
}

// RowIDParam is the parameter name bound by SelectByRowID.
const RowIDParam = "rowid"

func deriveStatements(m *Model) Statements {
	keyWhere := assignments(m.Keys, " AND ")
	selectAll := "SELECT " + joinNames(m.SelectOrder(), ",") + " FROM " + m.Table

	st := Statements{
		Create:        createTable(m),
		Insert:        insert(m),
		Delete:        "DELETE FROM " + m.Table + " WHERE " + keyWhere,
		Exists:        "SELECT 1 FROM " + m.Table + " WHERE " + keyWhere,
		Select:        selectAll,
		SelectByKey:   selectAll + " WHERE " + keyWhere,
		SelectByRowID: selectAll + " WHERE rowid=:" + RowIDParam,
	}
	if len(m.Regular) > 0 {
		st.Update = "UPDATE " + m.Table + " SET " + assignments(m.Regular, ", ") + " WHERE " + keyWhere
	}
	return st
}

func createTable(m *Model) string {
	compositeKey := len(m.Keys) > 1

	defs := make([]string, 0, len(m.Fields)+2)
	for _, f := range m.InsertOrder() {
		def := f.Name + " " + f.Kind.SQLType()
		if f.IsPrimaryKey() && !compositeKey {
			def += " PRIMARY KEY"
		}
		if f.Has(AutoIncrement) {
			def += " AUTOINCREMENT"
		}
		if f.Has(NotNull) {
			def += " NOT NULL"
		}
		if f.Has(Unique) {
			def += " UNIQUE"
		}
		defs = append(defs, def)
	}
	// SQLite rejects more than one inline PRIMARY KEY.
	if compositeKey {
		defs = append(defs, "PRIMARY KEY("+joinNames(m.Keys, ",")+")")
	}
	for _, f := range m.InsertOrder() {
		if fk := f.Foreign(); fk != nil {
			defs = append(defs, "FOREIGN KEY("+f.Name+") REFERENCES "+fk.Table+"("+fk.Column+")")
		}
	}
	return "CREATE TABLE IF NOT EXISTS " + m.Table + "(" + strings.Join(defs, ", ") + ")"
}

func insert(m *Model) string {
	cols := m.InsertOrder()
	params := make([]string, len(cols))
	for i, f := range cols {
		params[i] = ":" + f.Name
	}
	return "INSERT INTO " + m.Table + " (" + joinNames(cols, ",") + ") VALUES (" + strings.Join(params, ",") + ")"
}

func assignments(fields []*Field, sep string) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Name + "=:" + f.Name
	}
	return strings.Join(parts, sep)
}

func joinNames(fields []*Field, sep string) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return strings.Join(names, sep)
}
