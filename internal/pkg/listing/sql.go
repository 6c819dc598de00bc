package listing

import (
	"strings"

	"github.com/Masterminds/squirrel"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards so user input is matched literally.
func EscapeLike(term string) string {
	return likeEscaper.Replace(term)
}

// Where builds the search and filter predicates of q. It returns nil when q has none.
func (s Schema) Where(q Query) squirrel.Sqlizer {
	var conds squirrel.And

	if q.Search != "" && len(s.SearchFields) > 0 {
		pattern := "%" + EscapeLike(q.Search) + "%"
		var anyOf squirrel.Or
		for _, col := range s.SearchFields {
			anyOf = append(anyOf, squirrel.ILike{col: pattern})
		}
		conds = append(conds, anyOf)
	}

	for _, param := range sortedKeys(q.Filters) {
		f, ok := s.Filters[param]
		if !ok {
			continue
		}
		value, err := f.parse(q.Filters[param])
		if err != nil {
			// ParseQuery already rejected these; a hand-built Query just loses the filter
			continue
		}
		conds = append(conds, squirrel.Eq{f.Column: value})
	}

	if len(conds) == 0 {
		return nil
	}
	return conds
}

// Apply adds the predicates of q to sb.
func (s Schema) Apply(sb squirrel.SelectBuilder, q Query) squirrel.SelectBuilder {
	if where := s.Where(q); where != nil {
		sb = sb.Where(where)
	}
	return sb
}

// OrderBy returns the ORDER BY clause for q. Unknown sort keys fall back to the default.
func (s Schema) OrderBy(q Query) []string {
	col, desc := s.DefaultSort, s.DefaultDesc
	if mapped, ok := s.Sorts[q.SortBy]; ok && q.SortBy != "" {
		col, desc = mapped, q.Desc
	}
	if col == "" {
		col = "id"
	}
	dir := " ASC"
	if desc {
		dir = " DESC"
	}
	clauses := []string{col + dir}
	if col != "id" {
		clauses = append(clauses, "id"+dir)
	}
	return clauses
}

// Page applies ordering, limit and offset for the current page.
func (s Schema) Page(sb squirrel.SelectBuilder, q Query) squirrel.SelectBuilder {
	return sb.OrderBy(s.OrderBy(q)...).Limit(uint64(q.Size)).Offset(uint64(q.Offset()))
}
