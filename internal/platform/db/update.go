package db

import (
	"fmt"
	"strings"
)

// Patch accumulates the column assignments of a partial UPDATE. Column names
// are always constants of the calling repository, never client input.
type Patch struct {
	sets []string
	args []any
}

func (p *Patch) Set(column string, value any) {
	p.args = append(p.args, value)
	p.sets = append(p.sets, fmt.Sprintf("%s = $%d", column, len(p.args)))
}

func (p *Patch) SetNull(column string) {
	p.sets = append(p.sets, column+" = NULL")
}

// Len is the number of assignments collected so far.
func (p *Patch) Len() int { return len(p.sets) }

// Statement renders the UPDATE for the row whose keyColumn equals key and
// stamps updated_at.
func (p *Patch) Statement(table, keyColumn string, key any) (string, []any) {
	sets := make([]string, 0, len(p.sets)+1)
	sets = append(sets, p.sets...)
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	args := make([]any, 0, len(p.args)+1)
	args = append(args, p.args...)
	args = append(args, key)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		table, strings.Join(sets, ", "), keyColumn, len(args))
	return sql, args
}

// Optional is a tri-state partial-update input: absent, null, or a value.
type Optional interface {
	Present() bool
	IsNull() bool
	Any() any
}

// SetOptional skips an absent input and writes NULL for a null one.
func (p *Patch) SetOptional(column string, o Optional) {
	switch {
	case !o.Present():
	case o.IsNull():
		p.SetNull(column)
	default:
		p.Set(column, o.Any())
	}
}
