package postgres

import (
	"fmt"
	"strings"

	"github.com/voxmetrics/callcoach/pkg/store"
)

// condBuilder accumulates WHERE conditions with numbered pgx placeholders.
type condBuilder struct {
	conds []string
	args  []any
}

// add appends a condition containing exactly one placeholder, written as %s.
func (b *condBuilder) add(cond string, arg any) {
	b.args = append(b.args, arg)
	b.conds = append(b.conds, fmt.Sprintf(cond, fmt.Sprintf("$%d", len(b.args))))
}

// where returns the assembled WHERE clause, or "" when no condition was added.
func (b *condBuilder) where() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// orderClause builds an ORDER BY clause from a sort option, restricted to the
// given column whitelist. Unknown or empty fields fall back to defaultColumn
// descending (newest first).
func orderClause(sort store.Sort, allowed map[string]string, defaultColumn string) string {
	column, ok := allowed[sort.Field]
	if !ok {
		return " ORDER BY " + defaultColumn + " DESC"
	}
	dir := "DESC"
	if sort.Asc {
		dir = "ASC"
	}
	return " ORDER BY " + column + " " + dir
}

// trimID strips the space padding a CHAR column may carry.
func trimID(id string) string { return strings.TrimSpace(id) }

// limitClause builds LIMIT/OFFSET placeholders for the normalized page and
// appends the corresponding args.
func limitClause(b *condBuilder, p store.Page) string {
	n := p.Normalize()
	b.args = append(b.args, n.Limit, n.Offset())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(b.args)-1, len(b.args))
}
