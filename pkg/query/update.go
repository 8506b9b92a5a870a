package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoAssignments is returned by UpdateBuilder.Build when nothing is set.
var ErrNoAssignments = errors.New("update has no assignments")

type assignment struct {
	column string
	expr   string
	arg    any
	raw    bool
}

// UpdateBuilder assembles "UPDATE ... SET ... WHERE ... RETURNING" for a
// projection. Only projected fields can be assigned; others are ignored.
type UpdateBuilder struct {
	projection *ProjectionMap
	sets       []assignment
	touched    []assignment
	conditions []condition
}

func NewUpdate(projection *ProjectionMap) *UpdateBuilder {
	return &UpdateBuilder{projection: projection}
}

// Set assigns value to field. Nil values are skipped so optional command
// fields can be passed straight through.
func (u *UpdateBuilder) Set(field string, value any) *UpdateBuilder {
	if isNil(value) || !u.projection.Has(field) {
		return u
	}
	u.sets = append(u.sets, assignment{column: u.projection.Bare(field), arg: value})
	return u
}

// Touch assigns a SQL expression such as now() to field. Touched fields do
// not count as assignments on their own.
func (u *UpdateBuilder) Touch(field, expr string) *UpdateBuilder {
	if u.projection.Has(field) {
		u.touched = append(u.touched, assignment{column: u.projection.Bare(field), expr: expr, raw: true})
	}
	return u
}

// Where adds an equality predicate on field. Every predicate must hold.
func (u *UpdateBuilder) Where(field string, value any) *UpdateBuilder {
	u.conditions = append(u.conditions, condition{
		clause: u.projection.Column(field) + " = $%d",
		args:   []any{value},
	})
	return u
}

// Fields returns the number of value assignments.
func (u *UpdateBuilder) Fields() int {
	return len(u.sets)
}

// Build returns the statement with the full projection in RETURNING.
func (u *UpdateBuilder) Build() (string, []any, error) {
	if len(u.sets) == 0 {
		return "", nil, ErrNoAssignments
	}

	parts := make([]string, 0, len(u.sets)+len(u.touched))
	args := make([]any, 0, len(u.sets))
	n := 1

	for _, a := range u.sets {
		parts = append(parts, fmt.Sprintf("%s = $%d", a.column, n))
		args = append(args, a.arg)
		n++
	}
	for _, a := range u.touched {
		parts = append(parts, a.column+" = "+a.expr)
	}

	where, whereArgs, _ := buildWhere(u.conditions, n)
	args = append(args, whereArgs...)

	sql := fmt.Sprintf(
		"UPDATE %s SET %s%s RETURNING %s",
		u.projection.From(),
		strings.Join(parts, ", "),
		where,
		u.projection.Columns(),
	)
	return sql, args, nil
}
