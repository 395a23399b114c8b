package edgemodel

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/chmenegatti/edgemodel/pkg/schema"
)

// queryOptions holds the optional clauses of a GetWithParams query.
type queryOptions struct {
	distinct bool
	joins    []*join
	conds    []condition
	orders   []string
	limit    int // -1 means no limit
	offset   int
	err      error
}

type join struct {
	alias string
	model *schema.Model
	on    string
}

type condition struct {
	model *schema.Model // nil for the base model
	field string
	op    string
	value any
}

// QueryOption adds a clause to GetWithParams.
type QueryOption func(*queryBuilder)

type queryBuilder struct {
	base *schema.Model
	queryOptions
}

func (b *queryBuilder) fail(format string, args ...any) {
	if b.err == nil {
		b.err = fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidQuery)
	}
}

// aliasOf returns the alias a model is reachable under: the base table name
// or the alias of its first join.
func (b *queryBuilder) aliasOf(model *schema.Model) (string, bool) {
	if model == nil || model == b.base {
		return b.base.Table, true
	}
	for _, j := range b.joins {
		if j.model == model {
			return j.alias, true
		}
	}
	return "", false
}

func (b *queryBuilder) addJoin(model *schema.Model, on func(alias string) string) {
	alias := "j" + strconv.Itoa(len(b.joins)+1)
	b.joins = append(b.joins, &join{alias: alias, model: model, on: on(alias)})
}

// Join joins the model referenced by the foreign-key field of the queried
// model.
func Join(field string) QueryOption {
	return func(b *queryBuilder) {
		f, ok := b.base.Field(field)
		if !ok || !f.IsForeignKey() {
			b.fail("join on %s.%s: not a foreign key", b.base.Name, field)
			return
		}
		fk := f.Foreign()
		b.addJoin(fk.Model, func(alias string) string {
			return alias + "." + fk.Column + "=" + b.base.Table + "." + f.Name
		})
	}
}

// JoinReferencing joins model through its foreign-key field that references
// the queried model. Combine with Distinct when one row may match many.
func JoinReferencing(model *schema.Model, field string) QueryOption {
	return func(b *queryBuilder) {
		if model == nil {
			b.fail("join: nil model")
			return
		}
		f, ok := model.Field(field)
		if !ok || !f.IsForeignKey() || f.Foreign().Model != b.base {
			b.fail("join on %s.%s: does not reference %s", model.Name, field, b.base.Name)
			return
		}
		fk := f.Foreign()
		b.addJoin(model, func(alias string) string {
			return alias + "." + f.Name + "=" + b.base.Table + "." + fk.Column
		})
	}
}

// Distinct removes duplicate rows.
func Distinct() QueryOption {
	return func(b *queryBuilder) { b.distinct = true }
}

// Where filters on a field of the queried model. op is one of =, !=, <>, <,
// <=, >, >=, LIKE. A nil value with = or != compares against NULL.
func Where(field, op string, value any) QueryOption {
	return WhereOn(nil, field, op, value)
}

// WhereOn filters on a field of a joined model. A nil model means the
// queried model.
func WhereOn(model *schema.Model, field, op string, value any) QueryOption {
	return func(b *queryBuilder) {
		b.conds = append(b.conds, condition{model: model, field: field, op: op, value: value})
	}
}

// OrderBy sorts by a field of the queried model.
func OrderBy(field string, desc bool) QueryOption {
	return func(b *queryBuilder) {
		if _, ok := b.base.Field(field); !ok {
			b.fail("order by %s.%s: unknown field", b.base.Name, field)
			return
		}
		clause := b.base.Table + "." + field
		if desc {
			clause += " DESC"
		}
		b.orders = append(b.orders, clause)
	}
}

// Limit sets the maximum number of records to retrieve.
// Use -1 to indicate no limit.
func Limit(limit int) QueryOption {
	return func(b *queryBuilder) {
		if limit < -1 {
			limit = -1
		}
		b.limit = limit
	}
}

// Offset sets the number of records to skip.
func Offset(offset int) QueryOption {
	return func(b *queryBuilder) {
		if offset < 0 {
			offset = 0
		}
		b.offset = offset
	}
}

var operators = map[string]string{
	"=": "=", "!=": "!=", "<>": "!=", "<": "<", "<=": "<=", ">": ">", ">=": ">=",
	"like": "LIKE",
}

// build renders the query. Every value is bound as a named parameter :pN and
// every identifier comes from a declaration.
func (b *queryBuilder) build() (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if b.distinct {
		sb.WriteString("DISTINCT ")
	}
	for i, f := range b.base.SelectOrder() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(b.base.Table + "." + f.Name)
	}
	sb.WriteString(" FROM " + b.base.Table)
	for _, j := range b.joins {
		sb.WriteString(" JOIN " + j.model.Table + " AS " + j.alias + " ON " + j.on)
	}

	var args []any
	for i, c := range b.conds {
		alias, ok := b.aliasOf(c.model)
		if !ok {
			return "", nil, fmt.Errorf("where on %s: model is not joined: %w", c.model.Name, ErrInvalidQuery)
		}
		target := b.base
		if c.model != nil {
			target = c.model
		}
		field, ok := target.Field(c.field)
		if !ok {
			return "", nil, fmt.Errorf("where on %s.%s: unknown field: %w", target.Name, c.field, ErrInvalidQuery)
		}
		op, ok := operators[strings.ToLower(strings.TrimSpace(c.op))]
		if !ok {
			return "", nil, fmt.Errorf("where on %s.%s: operator %q: %w", target.Name, c.field, c.op, ErrInvalidQuery)
		}

		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		column := alias + "." + field.Name

		value := c.value
		if rel, isRecord := value.(*Record); isRecord && field.IsForeignKey() && rel != nil {
			value = rel.Get(field.Foreign().Column)
		}
		if value == nil {
			switch op {
			case "=":
				sb.WriteString(column + " IS NULL")
			case "!=":
				sb.WriteString(column + " IS NOT NULL")
			default:
				return "", nil, fmt.Errorf("where on %s.%s: %s NULL: %w", target.Name, c.field, op, ErrInvalidQuery)
			}
			continue
		}

		converted, err := field.Convert(value)
		if err != nil {
			return "", nil, err
		}
		param := "p" + strconv.Itoa(len(args)+1)
		sb.WriteString(column + " " + op + " :" + param)
		args = append(args, sql.Named(param, field.Bind(converted)))
	}

	if len(b.orders) > 0 {
		sb.WriteString(" ORDER BY " + strings.Join(b.orders, ", "))
	}
	switch {
	case b.limit >= 0:
		sb.WriteString(" LIMIT " + strconv.Itoa(b.limit))
		if b.offset > 0 {
			sb.WriteString(" OFFSET " + strconv.Itoa(b.offset))
		}
	case b.offset > 0:
		// SQLite only accepts OFFSET after a LIMIT.
		sb.WriteString(" LIMIT -1 OFFSET " + strconv.Itoa(b.offset))
	}
	return sb.String(), args, nil
}

// GetWithParams runs the model's select extended with the given joins,
// filters, ordering and paging, mapping rows like GetAll.
func (r *Record) GetWithParams(ctx context.Context, opts ...QueryOption) ([]*Record, error) {
	b := &queryBuilder{base: r.model, queryOptions: queryOptions{limit: -1}}
	for _, opt := range opts {
		opt(b)
	}
	query, args, err := b.build()
	if err != nil {
		return nil, r.logErr(err)
	}
	return r.list(ctx, query, args)
}
