package core

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"time"
)

// SearchOptions controls Search
type SearchOptions struct {
	// Fields selects which assigned values become search parameters; nil
	// means all of them
	Fields []string
	// Query holds extra parameters, applied over field values
	Query map[string]any
	// Filters are matched locally against every result after reading it in
	// full. Relationship fields cannot be filtered.
	Filters map[string]any
}

// SearchResult is one page of search results
type SearchResult struct {
	Entities []*Entity
	Total    int
	Subtotal int
	Page     int
	PerPage  int
}

// Search lists entities of e's kind matching e's values
func (en *Engine) Search(ctx context.Context, e *Entity, opts SearchOptions) (*SearchResult, error) {
	if err := e.kind.requireOp(OpSearch); err != nil {
		return nil, err
	}
	if err := checkFilters(e.kind, opts.Filters); err != nil {
		return nil, err
	}
	payload, err := SearchPayload(e, opts.Fields, opts.Query)
	if err != nil {
		return nil, err
	}
	path, err := e.Path("base")
	if err != nil {
		return nil, err
	}

	ev := Event{Op: EventSearch, Kind: e.kind, Entity: e, Payload: payload}
	if err := en.before(ctx, ev); err != nil {
		return nil, err
	}
	result, err := en.search(ctx, e, path, payload, opts.Filters)
	ev.Result, ev.Err = result, err
	en.after(ctx, ev)
	return result, err
}

func (en *Engine) search(ctx context.Context, e *Entity, path string, payload, filters map[string]any) (*SearchResult, error) {
	resp, err := en.send(ctx, e.cfg, http.MethodGet, path, EncodeParams(payload), nil)
	if err != nil {
		return nil, err
	}
	body, err := decodeObject(resp)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{
		Total:    intOf(body["total"]),
		Subtotal: intOf(body["subtotal"]),
		Page:     intOf(body["page"]),
		PerPage:  intOf(body["per_page"]),
	}
	items, _ := body["results"].([]any)
	for _, item := range items {
		attrs, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: search result is %T, not an object", e.kind.Name, item)
		}
		found, err := Decode(e.kind, e.cfg, attrs, DecodeOptions{})
		if err != nil {
			return nil, err
		}
		carryParent(e, found)
		result.Entities = append(result.Entities, found)
	}

	if len(filters) == 0 {
		return result, nil
	}
	filtered := make([]*Entity, 0, len(result.Entities))
	for _, found := range result.Entities {
		full, err := en.Read(ctx, found, ReadOptions{})
		if err != nil {
			return nil, err
		}
		if matchesFilters(full, filters) {
			filtered = append(filtered, full)
		}
	}
	result.Entities = filtered
	return result, nil
}

// SearchAll walks every page of q and returns all matches
func (en *Engine) SearchAll(ctx context.Context, e *Entity, q *SearchQuery) ([]*Entity, error) {
	if q == nil {
		q = NewSearchQuery()
	}
	var all []*Entity
	for {
		page, err := en.Search(ctx, e, SearchOptions{Query: q.Params()})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Entities...)
		limit := page.Subtotal
		if limit == 0 {
			limit = page.Total
		}
		if len(page.Entities) == 0 || len(all) >= limit {
			return all, nil
		}
		q = q.NextPage()
	}
}

func checkFilters(kind *Kind, filters map[string]any) error {
	var unknown []string
	for name := range filters {
		f, ok := kind.Field(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if f.IsRelationship() {
			return fmt.Errorf("%s.%s: %w", kind.Name, name, ErrUnsupportedFilter)
		}
	}
	if len(unknown) > 0 {
		return &SchemaError{Kind: kind.Name, Fields: unknown, Valid: kind.validFieldNames(), Err: ErrUnknownField}
	}
	return nil
}

func matchesFilters(e *Entity, filters map[string]any) bool {
	for name, want := range filters {
		got, ok := e.values[name]
		if !ok {
			return false
		}
		if gt, ok := got.(time.Time); ok {
			f, _ := e.kind.Field(name)
			wt, err := parseTime(f.Kind, want)
			if err != nil || !gt.Equal(wt) {
				return false
			}
			continue
		}
		if !valuesEqual(got, want) && !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func intOf(v any) int {
	n, _ := asInt64(v)
	return int(n)
}
