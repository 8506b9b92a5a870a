// Package query builds parameterized PostgreSQL statements from a
// projection map of view field names to table columns.
package query

import (
	"fmt"
	"strings"
)

// ProjectionMap maps view field names to columns of one aliased table.
// The mapped fields double as the allow-list of what a query may read,
// filter, sort or write.
type ProjectionMap struct {
	schema     string
	table      string
	alias      string
	columns    map[string]string
	bare       map[string]string
	columnList []string
}

func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		schema:  schema,
		table:   table,
		alias:   alias,
		columns: make(map[string]string),
		bare:    make(map[string]string),
	}
}

// Project maps column to viewName and appends it to the select list.
func (p *ProjectionMap) Project(column, viewName string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.columns[viewName] = qualified
	p.bare[viewName] = column
	p.columnList = append(p.columnList, qualified)
	return p
}

func (p *ProjectionMap) Alias() string {
	return p.alias
}

// From returns "schema.table alias".
func (p *ProjectionMap) From() string {
	return fmt.Sprintf("%s.%s %s", p.schema, p.table, p.alias)
}

// Has reports whether viewName is projected.
func (p *ProjectionMap) Has(viewName string) bool {
	_, ok := p.columns[viewName]
	return ok
}

// Column returns the alias-qualified column for viewName, or viewName
// itself when unmapped.
func (p *ProjectionMap) Column(viewName string) string {
	if col, ok := p.columns[viewName]; ok {
		return col
	}
	return viewName
}

// Bare returns the unqualified column for viewName, as required on the
// left side of an UPDATE assignment.
func (p *ProjectionMap) Bare(viewName string) string {
	if col, ok := p.bare[viewName]; ok {
		return col
	}
	return viewName
}

// Columns returns the select list.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.columnList, ", ")
}

func (p *ProjectionMap) ColumnList() []string {
	return p.columnList
}
