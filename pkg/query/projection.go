// Package query builds parameterized PostgreSQL SELECT statements over a
// projection of view field names onto table columns.
package query

import "strings"

// ProjectionMap maps view field names (Go struct field names) onto the
// alias-qualified columns of one table. Column order is the SELECT order.
type ProjectionMap struct {
	table   string
	alias   string
	byField map[string]string
	byName  map[string]string
	columns []string
}

// NewProjectionMap creates a projection over schema.table aliased as alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		table:   schema + "." + table + " " + alias,
		alias:   alias,
		byField: make(map[string]string),
		byName:  make(map[string]string),
	}
}

// Project maps field onto column and appends it to the SELECT list.
func (p *ProjectionMap) Project(column, field string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.byField[field] = qualified
	p.byName[strings.ToLower(column)] = qualified
	p.columns = append(p.columns, qualified)
	return p
}

// From returns the qualified table reference with its alias.
func (p *ProjectionMap) From() string {
	return p.table
}

// Column returns the qualified column for field. It panics for unmapped
// fields, which are programming errors.
func (p *ProjectionMap) Column(field string) string {
	col, ok := p.byField[field]
	if !ok {
		panic("query: unmapped field " + field)
	}
	return col
}

// Lookup resolves a client-supplied name, either a field name or a raw
// column name, to its qualified column.
func (p *ProjectionMap) Lookup(name string) (string, bool) {
	if col, ok := p.byField[name]; ok {
		return col, true
	}
	col, ok := p.byName[strings.ToLower(name)]
	return col, ok
}

// Columns returns the SELECT list.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.columns, ", ")
}
