package repository

import (
	"fmt"
	"strings"
)

// Assignments accumulates column assignments for a partial UPDATE.
// Placeholders are numbered in the order Set is called.
type Assignments struct {
	cols []string
	args []any
}

// Set appends a column assignment.
func (a *Assignments) Set(column string, value any) *Assignments {
	a.cols = append(a.cols, column)
	a.args = append(a.args, value)
	return a
}

// Len reports the number of assignments.
func (a *Assignments) Len() int {
	return len(a.cols)
}

// Build renders an UPDATE statement for table filtered by keyColumn = key.
// The key is bound as the final placeholder. extra is appended verbatim to
// the SET clause, e.g. "updated_at = now()".
func (a *Assignments) Build(table, keyColumn string, key any, extra ...string) (string, []any) {
	sets := make([]string, 0, len(a.cols)+len(extra))
	for i, col := range a.cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+1))
	}
	sets = append(sets, extra...)

	args := make([]any, 0, len(a.args)+1)
	args = append(args, a.args...)
	args = append(args, key)

	q := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = $%d",
		table, strings.Join(sets, ", "), keyColumn, len(args),
	)
	return q, args
}
