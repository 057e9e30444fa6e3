package apiserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/preslavrachev/nailgun/adapters/sql"
	"github.com/preslavrachev/nailgun/core"
)

// Parameters that control listing rather than filter it
var reservedParams = map[string]bool{
	"search":     true,
	"order":      true,
	"page":       true,
	"per_page":   true,
	"full":       true,
	"thin":       true,
	"sort_by":    true,
	"sort_order": true,
}

// collectionPath rebuilds the collection path of a request from the
// matched route, e.g. "katello/api/v2/organizations"
func collectionPath(c *gin.Context) string {
	prefix := c.FullPath()
	if i := strings.Index(prefix, "/:collection"); i >= 0 {
		prefix = prefix[:i]
	}
	return strings.Trim(prefix, "/") + "/" + c.Param("collection")
}

func parseID(c *gin.Context, param string) (int64, bool) {
	raw := c.Param(param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, fmt.Sprintf("Invalid id %q", raw))
		return 0, false
	}
	return id, true
}

// readBody decodes a JSON object body. An empty body is an empty object.
func readBody(c *gin.Context) (map[string]any, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		writeError(c, http.StatusBadRequest, "Unable to read request body")
		return nil, false
	}
	body := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return body, true
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return nil, false
	}
	return body, true
}

// unwrap removes the wrapper key of kind. Keys sent next to the wrapper,
// like organization_id on katello routes, are kept.
func unwrap(kind *core.Kind, body map[string]any) map[string]any {
	if kind.Flat {
		return body
	}
	inner, ok := body[kind.WrapperKey].(map[string]any)
	if !ok {
		return body
	}
	data := make(map[string]any, len(inner)+len(body))
	for k, v := range body {
		if k != kind.WrapperKey {
			data[k] = v
		}
	}
	for k, v := range inner {
		data[k] = v
	}
	return data
}

// pickKind chooses among kinds sharing a collection by the provider a
// compute resource is created with
func pickKind(kinds []*core.Kind, data map[string]any) *core.Kind {
	if provider, ok := data["provider"].(string); ok && len(kinds) > 1 {
		for _, k := range kinds {
			if strings.HasPrefix(strings.ToLower(k.Name), strings.ToLower(provider)) {
				return k
			}
		}
	}
	return kinds[0]
}

// storeQuery turns listing parameters into a store query. Parameters naming
// a field (or the _id of a one-to-one field) filter by exact match; others
// are ignored like the real server does.
func storeQuery(kind *core.Kind, params url.Values) sql.StoreQuery {
	q := sql.StoreQuery{
		Search:  params.Get("search"),
		Order:   params.Get("order"),
		Filters: map[string]any{},
	}
	if by := params.Get("sort_by"); by != "" && q.Order == "" {
		q.Order = strings.TrimSpace(by + " " + params.Get("sort_order"))
	}
	q.Page, _ = strconv.Atoi(params.Get("page"))
	q.PerPage, _ = strconv.Atoi(params.Get("per_page"))

	for key, values := range params {
		if reservedParams[key] || len(values) == 0 || strings.HasSuffix(key, "[]") {
			continue
		}
		if filterable(kind, key) {
			q.Filters[key] = values[0]
		}
	}
	return q
}

func filterable(kind *core.Kind, key string) bool {
	if f, ok := kind.Field(key); ok {
		return !f.IsRelationship()
	}
	if base, ok := strings.CutSuffix(key, "_id"); ok {
		if f, ok := kind.Field(base); ok {
			return f.Kind == core.KindOneToOne
		}
	}
	return false
}

// missingRequired lists the required fields absent from a create body
func missingRequired(kind *core.Kind, data map[string]any) []string {
	var problems []string
	for _, f := range kind.Fields() {
		if !f.Required || f.Name == "id" {
			continue
		}
		var keys []string
		switch f.Kind {
		case core.KindOneToOne:
			keys = []string{f.Name + "_id", f.Name}
		case core.KindOneToMany:
			keys = []string{f.Name + "_ids", f.Name}
		default:
			keys = []string{f.Name}
		}
		if !anyPresent(data, keys) {
			problems = append(problems, fmt.Sprintf("%s can't be blank", f.Name))
		}
	}
	return problems
}

func anyPresent(data map[string]any, keys []string) bool {
	for _, k := range keys {
		if v, ok := data[k]; ok && v != nil && v != "" {
			return true
		}
	}
	return false
}

// textOf renders an id or filter value the way it appears in a URL
func textOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	}
	return fmt.Sprint(v)
}
