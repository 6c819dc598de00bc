// Package listing is the shared query model behind every list endpoint:
// a free-text search, equality filters, sorting and page-based pagination.
// The same Query can be applied to a SQL select or to an in-memory slice.
package listing

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps every offset inside an int32.
	MaxPage = math.MaxInt32 / MaxPageSize

	// AllValue in a filter parameter means "no filter".
	AllValue = "all"
)

// Kind is the value type a filter parameter is parsed as.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
)

// FilterField binds a query parameter to a column (or in-memory field key).
type FilterField struct {
	Column string
	Kind   Kind
}

// Schema describes what an entity list can be searched, filtered and sorted by.
type Schema struct {
	// SearchFields are matched case-insensitively with a substring search, OR'ed together.
	SearchFields []string
	// Filters maps query parameter names to columns. Each active filter is AND'ed.
	Filters map[string]FilterField
	// Sorts maps sortBy values to columns.
	Sorts map[string]string
	// DefaultSort is the column used when sortBy is absent or unknown.
	DefaultSort string
	// DefaultDesc flips the default direction.
	DefaultDesc bool
}

// Query is a parsed list request.
type Query struct {
	Search  string
	Filters map[string]string
	Page    int
	Size    int
	SortBy  string
	Desc    bool
}

// NewQuery returns the first page with default size and no criteria.
func NewQuery() Query {
	return Query{Page: DefaultPage, Size: DefaultPageSize, Filters: map[string]string{}}
}

// WithSearch returns a copy of q with the search term replaced.
func (q Query) WithSearch(term string) Query {
	q.Search = strings.TrimSpace(term)
	return q
}

// WithFilter returns a copy of q with param set. Empty values and "all" clear the filter.
func (q Query) WithFilter(param, value string) Query {
	filters := make(map[string]string, len(q.Filters)+1)
	for k, v := range q.Filters {
		filters[k] = v
	}
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, AllValue) {
		delete(filters, param)
	} else {
		filters[param] = value
	}
	q.Filters = filters
	return q
}

// WithPage returns a copy of q with page and size normalised.
func (q Query) WithPage(page, size int) Query {
	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	q.Page, q.Size = page, size
	return q
}

// WithSort returns a copy of q sorted by the given sortBy key.
func (q Query) WithSort(sortBy string, desc bool) Query {
	q.SortBy = sortBy
	q.Desc = desc
	return q
}

// Offset is the number of rows skipped before the current page.
func (q Query) Offset() int {
	q = q.WithPage(q.Page, q.Size)
	return (q.Page - 1) * q.Size
}

// CacheKey renders the query deterministically, so equal queries share a cache entry.
func (q Query) CacheKey() string {
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "q=%s", strings.ToLower(q.Search))
	for _, k := range keys {
		fmt.Fprintf(&b, "&%s=%s", k, q.Filters[k])
	}
	fmt.Fprintf(&b, "&page=%d&size=%d", q.Page, q.Size)
	if q.SortBy != "" {
		fmt.Fprintf(&b, "&sort=%s&desc=%t", q.SortBy, q.Desc)
	}
	return b.String()
}

// ParseQuery reads search, the schema's filter params, page, size, sortBy and sortOrder
// from the request. Filter values that do not parse as the declared kind are rejected.
func ParseQuery(c *gin.Context, schema Schema) (Query, error) {
	q := NewQuery().WithSearch(c.Query("search"))

	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	size, _ := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(DefaultPageSize)))
	q = q.WithPage(page, size)

	for param, f := range schema.Filters {
		raw, ok := c.GetQuery(param)
		if !ok {
			continue
		}
		q = q.WithFilter(param, raw)
		value, active := q.Filters[param]
		if !active {
			continue
		}
		if _, err := f.parse(value); err != nil {
			return Query{}, fmt.Errorf("invalid value %q for filter %s: %w", value, param, err)
		}
	}

	if sortBy := c.Query("sortBy"); sortBy != "" {
		if _, ok := schema.Sorts[sortBy]; ok {
			q = q.WithSort(sortBy, strings.EqualFold(c.Query("sortOrder"), "desc"))
		}
	}

	return q, nil
}

func (f FilterField) parse(value string) (interface{}, error) {
	switch f.Kind {
	case KindInt:
		return strconv.ParseInt(value, 10, 64)
	case KindBool:
		return strconv.ParseBool(value)
	default:
		return value, nil
	}
}

// PageInfo is the pagination block returned with every list.
type PageInfo struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	PageSize    int   `json:"pageSize"`
	TotalItems  int64 `json:"totalItems"`
}

// Page is one page of a list.
type Page[T any] struct {
	Items      []T      `json:"items"`
	Pagination PageInfo `json:"pagination"`
}

// NewPage wraps items with pagination computed from total and q.
func NewPage[T any](items []T, total int64, q Query) Page[T] {
	if items == nil {
		items = []T{}
	}
	size := q.Size
	if size < 1 {
		size = DefaultPageSize
	}
	return Page[T]{
		Items: items,
		Pagination: PageInfo{
			CurrentPage: q.Page,
			TotalPages:  int(math.Ceil(float64(total) / float64(size))),
			PageSize:    size,
			TotalItems:  total,
		},
	}
}
