package store

import (
	"fmt"
	"strings"
)

// ProductFilter describes a product query. Every keyword must appear in the
// title or the description (case-insensitive substring), so keywords are
// ANDed together and each keyword ORs the two fields.
type ProductFilter struct {
	Keywords   []string
	CategoryID int64
	ActiveOnly bool
	Limit      int
	Offset     int
}

// where renders the filter as a SQL condition over the products table aliased
// as p. Arguments are numbered from 1.
func (f ProductFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)

	if f.ActiveOnly {
		conds = append(conds, "p.is_active")
	}

	if f.CategoryID > 0 {
		args = append(args, f.CategoryID)
		conds = append(conds, fmt.Sprintf("p.category_id = $%d", len(args)))
	}

	for _, kw := range f.Keywords {
		if kw == "" {
			continue
		}
		args = append(args, containsPattern(kw))
		n := len(args)
		conds = append(conds, fmt.Sprintf("(p.title ILIKE $%d OR p.description ILIKE $%d)", n, n))
	}

	if len(conds) == 0 {
		return "TRUE", args
	}
	return strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s literally anywhere.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
