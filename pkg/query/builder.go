package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// SortField is one ORDER BY term. Field is a view field or column name.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSortFields parses "filename,-created_at" into sort terms; a leading
// "-" sorts descending. Empty input yields nil.
func ParseSortFields(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// params numbers placeholders in the order arguments are bound.
type params struct {
	args []any
}

func (p *params) bind(v any) string {
	p.args = append(p.args, v)
	return "$" + strconv.Itoa(len(p.args))
}

// Builder accumulates WHERE conditions joined by AND. Placeholders are
// numbered when a statement is built, so conditions can be added in any order.
type Builder struct {
	projection  *ProjectionMap
	conditions  []func(*params) string
	orderBy     []SortField
	defaultSort []SortField
}

// NewBuilder creates a Builder over projection with an optional default order.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{
		projection:  projection,
		defaultSort: defaultSort,
	}
}

// OrderByFields replaces the default order. Names the projection cannot
// resolve are dropped.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.orderBy = fields
	return b
}

// WhereEquals adds field = value. Nil values and nil pointers are skipped.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	col := b.projection.Column(field)
	b.conditions = append(b.conditions, func(p *params) string {
		return col + " = " + p.bind(value)
	})
	return b
}

// WhereIn adds field IN (values...). An empty list is skipped.
func WhereIn[T any](b *Builder, field string, values []T) *Builder {
	if len(values) == 0 {
		return b
	}
	col := b.projection.Column(field)
	b.conditions = append(b.conditions, func(p *params) string {
		ph := make([]string, len(values))
		for i, v := range values {
			ph[i] = p.bind(v)
		}
		return col + " IN (" + strings.Join(ph, ", ") + ")"
	})
	return b
}

// WhereContains adds a case-insensitive substring match. Nil or empty is skipped.
func (b *Builder) WhereContains(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	return b.WhereSearch(value, field)
}

// WhereSearch matches value as a substring of any of fields. Nil or empty is skipped.
func (b *Builder) WhereSearch(value *string, fields ...string) *Builder {
	if value == nil || *value == "" || len(fields) == 0 {
		return b
	}

	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = b.projection.Column(f)
	}
	pattern := "%" + escapeLike(*value) + "%"

	b.conditions = append(b.conditions, func(p *params) string {
		clauses := make([]string, len(cols))
		for i, col := range cols {
			clauses[i] = col + " ILIKE " + p.bind(pattern)
		}
		if len(clauses) == 1 {
			return clauses[0]
		}
		return "(" + strings.Join(clauses, " OR ") + ")"
	})
	return b
}

// BuildCount returns SELECT COUNT(*) over the current conditions.
func (b *Builder) BuildCount() (string, []any) {
	var p params
	sql := "SELECT COUNT(*) FROM " + b.projection.From() + b.where(&p)
	return sql, p.args
}

// BuildPage returns the projected SELECT for the 1-based page.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	var p params
	sql := fmt.Sprintf(
		"SELECT %s FROM %s%s%s LIMIT %d OFFSET %d",
		b.projection.Columns(),
		b.projection.From(),
		b.where(&p),
		b.order(),
		pageSize,
		(max(page, 1)-1)*pageSize,
	)
	return sql, p.args
}

// BuildSingle returns the projected SELECT for the row whose field equals id.
func (b *Builder) BuildSingle(field string, id any) (string, []any) {
	sql := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = $1",
		b.projection.Columns(),
		b.projection.From(),
		b.projection.Column(field),
	)
	return sql, []any{id}
}

func (b *Builder) where(p *params) string {
	if len(b.conditions) == 0 {
		return ""
	}
	clauses := make([]string, len(b.conditions))
	for i, cond := range b.conditions {
		clauses[i] = cond(p)
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

func (b *Builder) order() string {
	terms := b.terms(b.orderBy)
	if len(terms) == 0 {
		terms = b.terms(b.defaultSort)
	}
	if len(terms) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func (b *Builder) terms(fields []SortField) []string {
	var out []string
	for _, f := range fields {
		col, ok := b.projection.Lookup(f.Field)
		if !ok {
			continue
		}
		dir := " ASC"
		if f.Descending {
			dir = " DESC"
		}
		out = append(out, col+dir)
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
