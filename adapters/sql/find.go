package sql

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/preslavrachev/nailgun/core"
)

// StoreQuery selects records of a collection
type StoreQuery struct {
	// Filters are exact matches on document keys, compared as text
	Filters map[string]any
	// Search is a search expression such as `name = "x" and label ~ dev`.
	// Bare words match the name.
	Search string
	// Order is a list like "name ASC, id DESC"
	Order   string
	Page    int
	PerPage int
}

// FindResult is one page of records. Total counts the whole collection and
// Subtotal the records matching the query.
type FindResult struct {
	Records  []Record
	Total    int64
	Subtotal int64
	Page     int
	PerPage  int
}

type condition struct {
	field string
	op    string
	value string
}

// Find retrieves a page of records matching query
func (s *Store) Find(ctx context.Context, collection string, query StoreQuery) (*FindResult, error) {
	if err := s.ensureTable(ctx, collection); err != nil {
		return nil, err
	}

	conditions, err := parseSearch(query.Search)
	if err != nil {
		return nil, err
	}
	filterKeys := make([]string, 0, len(query.Filters))
	for k := range query.Filters {
		filterKeys = append(filterKeys, k)
	}
	sort.Strings(filterKeys)
	for _, k := range filterKeys {
		conditions = append(conditions, condition{field: k, op: "=", value: textValue(query.Filters[k])})
	}

	// Build WHERE clause
	var whereConditions []string
	var args []any
	for _, c := range conditions {
		clause, clauseArgs, err := c.sql()
		if err != nil {
			return nil, err
		}
		whereConditions = append(whereConditions, clause)
		args = append(args, clauseArgs...)
	}

	// Build ORDER BY clause
	orderClauses, orderArgs, err := parseOrder(query.Order)
	if err != nil {
		return nil, err
	}

	total, err := s.Count(ctx, collection)
	if err != nil {
		return nil, err
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", collection)
	if len(whereConditions) > 0 {
		countQuery += " WHERE " + strings.Join(whereConditions, " AND ")
	}
	var subtotal int64
	start := time.Now()
	err = s.db.QueryRowContext(ctx, countQuery, args...).Scan(&subtotal)
	duration := time.Since(start)
	if err != nil {
		s.logger.LogError(countQuery, args, duration, err)
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	s.logger.LogQuery(countQuery, args, duration, 1)

	page, perPage := query.Page, query.PerPage
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = core.DefaultPageSize
	}
	if perPage > core.MaxPageSize {
		perPage = core.MaxPageSize
	}

	queryStr := fmt.Sprintf("SELECT id, data FROM %s", collection)
	if len(whereConditions) > 0 {
		queryStr += " WHERE " + strings.Join(whereConditions, " AND ")
	}
	queryStr += " ORDER BY " + strings.Join(orderClauses, ", ")
	queryStr += fmt.Sprintf(" LIMIT %d OFFSET %d", perPage, (page-1)*perPage)
	queryArgs := append(append([]any(nil), args...), orderArgs...)

	start = time.Now()
	rows, err := s.loggedQueryContext(ctx, queryStr, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	result := &FindResult{Total: total, Subtotal: subtotal, Page: page, PerPage: perPage}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result.Records = append(result.Records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	// Log the query with row count
	s.logger.LogQuery(queryStr, queryArgs, time.Since(start), len(result.Records))
	return result, nil
}

func (c condition) sql() (string, []any, error) {
	if !identifier.MatchString(c.field) {
		return "", nil, fmt.Errorf("%w: field %q", ErrInvalidQuery, c.field)
	}
	column, args := "CAST(json_extract(data, ?) AS TEXT)", []any{"$." + c.field}
	if c.field == "id" {
		column, args = "CAST(id AS TEXT)", nil
	}

	switch c.op {
	case "=":
		return column + " = ?", append(args, c.value), nil
	case "!=":
		return "(" + column + " IS NULL OR " + column + " != ?)", append(append(args, args...), c.value), nil
	case "~":
		return column + " LIKE ?", append(args, "%"+c.value+"%"), nil
	}
	return "", nil, fmt.Errorf("%w: operator %q", ErrInvalidQuery, c.op)
}

// textValue renders a filter value the way SQLite renders JSON scalars as text
func textValue(v any) string {
	switch tv := v.(type) {
	case nil:
		return ""
	case bool:
		if tv {
			return "1"
		}
		return "0"
	case string:
		switch tv {
		case "true":
			return "1"
		case "false":
			return "0"
		}
		return tv
	}
	return fmt.Sprint(v)
}

// parseSearch splits an expression on "and" and parses each term as
// `field op value`; a term without an operator searches the name
func parseSearch(expr string) ([]condition, error) {
	var conditions []condition
	for _, term := range splitTerms(expr) {
		c, err := parseTerm(term)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, c)
	}
	return conditions, nil
}

func parseTerm(term string) (condition, error) {
	for _, op := range []string{"!=", "=", "~"} {
		i := strings.Index(term, op)
		if i <= 0 {
			continue
		}
		field := strings.TrimSpace(term[:i])
		value := strings.TrimSpace(term[i+len(op):])
		if unquoted, err := strconv.Unquote(value); err == nil {
			value = unquoted
		}
		return condition{field: field, op: op, value: textValue(value)}, nil
	}
	value := term
	if unquoted, err := strconv.Unquote(term); err == nil {
		value = unquoted
	}
	return condition{field: "name", op: "~", value: value}, nil
}

// splitTerms splits on the word "and" outside double quotes
func splitTerms(expr string) []string {
	var terms []string
	var current strings.Builder
	inQuotes := false

	flush := func() {
		if t := strings.TrimSpace(current.String()); t != "" {
			terms = append(terms, t)
		}
		current.Reset()
	}

	runes := []rune(expr)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '"' && (i == 0 || runes[i-1] != '\\') {
			inQuotes = !inQuotes
		}
		if !inQuotes && isAndAt(runes, i) {
			flush()
			i += 2
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return terms
}

// isAndAt reports whether a whitespace-delimited "and" starts at i
func isAndAt(runes []rune, i int) bool {
	if i+3 > len(runes) || !strings.EqualFold(string(runes[i:i+3]), "and") {
		return false
	}
	before := i == 0 || unicode.IsSpace(runes[i-1])
	after := i+3 == len(runes) || unicode.IsSpace(runes[i+3])
	return before && after
}

// parseOrder turns "name ASC, id DESC" into ORDER BY clauses. Records are
// ordered by id when nothing else is requested.
func parseOrder(order string) ([]string, []any, error) {
	var clauses []string
	var args []any
	for _, part := range strings.Split(order, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		if len(fields) > 2 {
			return nil, nil, fmt.Errorf("%w: order %q", ErrInvalidQuery, part)
		}
		name := fields[0]
		direction := core.SortAsc
		if len(fields) == 2 {
			direction = core.SortDirection(strings.ToLower(fields[1]))
			if !direction.IsValid() {
				return nil, nil, fmt.Errorf("%w: sort direction %q", ErrInvalidQuery, fields[1])
			}
		}
		if !identifier.MatchString(name) {
			return nil, nil, fmt.Errorf("%w: sort field %q", ErrInvalidQuery, name)
		}
		dir := strings.ToUpper(direction.String())
		if name == "id" {
			clauses = append(clauses, "id "+dir)
			continue
		}
		clauses = append(clauses, "json_extract(data, ?) "+dir)
		args = append(args, "$."+name)
	}
	clauses = append(clauses, "id ASC")
	return clauses, args, nil
}
