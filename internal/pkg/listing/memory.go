package listing

import (
	"sort"
	"strconv"
	"strings"
)

// FieldFunc returns the string form of a field of item, keyed like the Schema columns.
type FieldFunc[T any] func(item T, field string) string

// Filter applies the search and filter semantics of q to items in memory.
// The relative order of items is kept.
func Filter[T any](items []T, s Schema, q Query, field FieldFunc[T]) []T {
	term := strings.ToLower(q.Search)
	out := make([]T, 0, len(items))

	for _, item := range items {
		if term != "" && len(s.SearchFields) > 0 && !matchesSearch(item, s.SearchFields, term, field) {
			continue
		}
		if !matchesFilters(item, s, q.Filters, field) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Paginate slices the current page out of items.
func Paginate[T any](items []T, q Query) Page[T] {
	q = q.WithPage(q.Page, q.Size)
	total := len(items)
	start := q.Offset()
	if start < 0 || start > total {
		start = total
	}
	end := total
	if q.Size < total-start {
		end = start + q.Size
	}
	return NewPage(items[start:end], int64(total), q)
}

func matchesSearch[T any](item T, fields []string, term string, field FieldFunc[T]) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(field(item, f)), term) {
			return true
		}
	}
	return false
}

func matchesFilters[T any](item T, s Schema, filters map[string]string, field FieldFunc[T]) bool {
	for param, want := range filters {
		f, ok := s.Filters[param]
		if !ok {
			continue
		}
		if f.Kind == KindBool {
			if !boolEqual(field(item, f.Column), want) {
				return false
			}
			continue
		}
		if field(item, f.Column) != want {
			return false
		}
	}
	return true
}

// boolEqual compares two boolean spellings, so "1" matches "true".
func boolEqual(got, want string) bool {
	g, err := strconv.ParseBool(strings.TrimSpace(got))
	if err != nil {
		return false
	}
	w, err := strconv.ParseBool(strings.TrimSpace(want))
	return err == nil && g == w
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
