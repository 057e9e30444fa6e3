package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Constants for pagination
const (
	DefaultPageSize = 20
	MaxPageSize     = 1000
)

// SortDirection represents the sort order
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortField represents a field to sort by
type SortField struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// Pagination represents pagination parameters. Pages are 1-indexed.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// SearchQuery builds the parameters of a server-side search: terms of the
// server's search language, raw parameters, ordering and paging.
type SearchQuery struct {
	Terms      []string       `json:"terms"`
	Filters    map[string]any `json:"filters"`
	Sort       []SortField    `json:"sort"`
	Pagination Pagination     `json:"pagination"`
}

// NewSearchQuery creates a query on the first page
func NewSearchQuery() *SearchQuery {
	return &SearchQuery{
		Terms:   []string{},
		Filters: make(map[string]any),
		Sort:    []SortField{},
		Pagination: Pagination{
			Page:    1,
			PerPage: getPageSizeFromEnv(),
		},
	}
}

// Where adds a `field = "value"` term
func (q *SearchQuery) Where(field string, value any) *SearchQuery {
	q.Terms = append(q.Terms, fmt.Sprintf("%s = %s", field, quoteTerm(paramString(value))))
	return q
}

// WithSearch adds a raw search-language expression
func (q *SearchQuery) WithSearch(expr string) *SearchQuery {
	if expr = strings.TrimSpace(expr); expr != "" {
		q.Terms = append(q.Terms, expr)
	}
	return q
}

// WithFilters adds raw query parameters, such as organization_id
func (q *SearchQuery) WithFilters(filters map[string]any) *SearchQuery {
	for k, v := range filters {
		q.Filters[k] = v
	}
	return q
}

// WithSort adds a sort field to the query
func (q *SearchQuery) WithSort(field string, direction SortDirection) *SearchQuery {
	q.Sort = append(q.Sort, SortField{
		Field:     field,
		Direction: direction,
	})
	return q
}

// WithPagination sets pagination parameters
func (q *SearchQuery) WithPagination(page, perPage int) *SearchQuery {
	if perPage > MaxPageSize {
		perPage = MaxPageSize
	}
	if perPage <= 0 {
		perPage = getPageSizeFromEnv()
	}
	if page < 1 {
		page = 1
	}

	q.Pagination.Page = page
	q.Pagination.PerPage = perPage
	return q
}

// NextPage creates a new query for the next page
func (q *SearchQuery) NextPage() *SearchQuery {
	next := &SearchQuery{
		Terms:      append([]string{}, q.Terms...),
		Filters:    make(map[string]any, len(q.Filters)),
		Sort:       append([]SortField{}, q.Sort...),
		Pagination: q.Pagination,
	}
	for k, v := range q.Filters {
		next.Filters[k] = v
	}
	next.Pagination.Page++
	return next
}

// Search returns the combined search-language expression
func (q *SearchQuery) Search() string {
	return strings.Join(q.Terms, " and ")
}

// Params renders the query as search parameters
func (q *SearchQuery) Params() map[string]any {
	params := make(map[string]any, len(q.Filters)+4)
	for k, v := range q.Filters {
		params[k] = v
	}
	if search := q.Search(); search != "" {
		params["search"] = search
	}
	if len(q.Sort) > 0 {
		order := make([]string, len(q.Sort))
		for i, s := range q.Sort {
			order[i] = s.Field + " " + strings.ToUpper(s.Direction.String())
		}
		params["order"] = strings.Join(order, ", ")
	}
	params["page"] = q.Pagination.Page
	params["per_page"] = q.Pagination.PerPage
	return params
}

func quoteTerm(s string) string {
	return strconv.Quote(s)
}

// getPageSizeFromEnv gets page size from environment variable or default
func getPageSizeFromEnv() int {
	if envSize := os.Getenv("NAILGUN_PAGE_SIZE"); envSize != "" {
		if size, err := strconv.Atoi(envSize); err == nil && size > 0 && size <= MaxPageSize {
			return size
		}
	}
	return DefaultPageSize
}

// String returns a string representation of the sort direction
func (sd SortDirection) String() string {
	return string(sd)
}

// IsValid checks if the sort direction is valid
func (sd SortDirection) IsValid() bool {
	return sd == SortAsc || sd == SortDesc
}
