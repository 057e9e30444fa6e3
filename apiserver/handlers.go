package apiserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/preslavrachev/nailgun/adapters/sql"
	"github.com/preslavrachev/nailgun/core"
)

// resolve finds the kinds served at the request's collection
func (s *Server) resolve(c *gin.Context) (string, []*core.Kind, bool) {
	path := collectionPath(c)
	kinds, ok := s.collections[path]
	if !ok {
		writeError(c, http.StatusNotFound, "Route "+c.Request.Method+" /"+path+" not found")
		return "", nil, false
	}
	return path, kinds, true
}

// GET /<prefix>/:collection
func (s *Server) list(c *gin.Context) {
	_, kinds, ok := s.resolve(c)
	if !ok {
		return
	}
	s.writePage(c, kinds[0], storeQuery(kinds[0], c.Request.URL.Query()))
}

func (s *Server) writePage(c *gin.Context, kind *core.Kind, q sql.StoreQuery) {
	result, err := s.store.Find(c.Request.Context(), sql.Collection(kind), q)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":    result.Total,
		"subtotal": result.Subtotal,
		"page":     result.Page,
		"per_page": result.PerPage,
		"search":   nilIfEmpty(q.Search),
		"sort":     gin.H{"by": nilIfEmpty(q.Order), "order": nil},
		"results":  s.renderAll(kind, result.Records),
	})
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// POST /<prefix>/:collection
func (s *Server) create(c *gin.Context) {
	_, kinds, ok := s.resolve(c)
	if !ok {
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}
	kind := pickKind(kinds, unwrap(kinds[0], body))
	s.createRecord(c, kind, unwrap(kind, body))
}

func (s *Server) createRecord(c *gin.Context, kind *core.Kind, data map[string]any) {
	if !kind.Supports(core.OpCreate) {
		writeError(c, http.StatusNotFound, kind.Name+" cannot be created")
		return
	}
	problems := missingRequired(kind, data)
	taken, err := s.takenUnique(c, kind, data)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	problems = append(problems, taken...)
	if len(problems) > 0 {
		writeValidationError(c, problems)
		return
	}

	record, err := s.store.Create(c.Request.Context(), sql.Collection(kind), data)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	if err := s.afterCreate(c, kind, record); err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.render(kind, record))
}

// takenUnique reports unique fields whose value another record already holds
func (s *Server) takenUnique(c *gin.Context, kind *core.Kind, data map[string]any) ([]string, error) {
	var problems []string
	for _, f := range kind.Fields() {
		v, ok := data[f.Name]
		if !f.Unique || !ok || v == nil {
			continue
		}
		found, err := s.store.Find(c.Request.Context(), sql.Collection(kind), sql.StoreQuery{
			Filters: map[string]any{f.Name: textOf(v)},
			PerPage: 1,
		})
		if err != nil {
			return nil, err
		}
		if found.Subtotal > 0 {
			problems = append(problems, fmt.Sprintf("%s has already been taken", f.Name))
		}
	}
	return problems, nil
}

// afterCreate adds what the server creates alongside some records: every
// organization gets its Library lifecycle environment
func (s *Server) afterCreate(c *gin.Context, kind *core.Kind, record sql.Record) error {
	if kind.Name != "Organization" {
		return nil
	}
	env, ok := s.registry.Kind("LifecycleEnvironment")
	if !ok {
		return nil
	}
	_, err := s.store.Create(c.Request.Context(), sql.Collection(env), map[string]any{
		"name":            "Library",
		"label":           "Library",
		"library":         true,
		"organization_id": record["id"],
		"prior_id":        nil,
	})
	return err
}

// GET /<prefix>/:collection/:id
func (s *Server) get(c *gin.Context) {
	_, kinds, ok := s.resolve(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	s.getRecord(c, kinds[0], id)
}

func (s *Server) getRecord(c *gin.Context, kind *core.Kind, id int64) {
	record, err := s.store.Get(c.Request.Context(), sql.Collection(kind), id)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.render(kind, record))
}

// PUT|PATCH /<prefix>/:collection/:id
func (s *Server) update(c *gin.Context) {
	_, kinds, ok := s.resolve(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}
	s.updateRecord(c, kinds[0], id, unwrap(kinds[0], body))
}

func (s *Server) updateRecord(c *gin.Context, kind *core.Kind, id int64, data map[string]any) {
	if !kind.Supports(core.OpUpdate) {
		writeError(c, http.StatusNotFound, kind.Name+" cannot be updated")
		return
	}
	record, err := s.store.Update(c.Request.Context(), sql.Collection(kind), id, data)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.render(kind, record))
}

// DELETE /<prefix>/:collection/:id
func (s *Server) destroy(c *gin.Context) {
	_, kinds, ok := s.resolve(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	s.deleteRecord(c, kinds[0], id)
}

// deleteRecord removes a record. Kinds deleted asynchronously answer 202
// with the task doing the work.
func (s *Server) deleteRecord(c *gin.Context, kind *core.Kind, id int64) {
	if !kind.Supports(core.OpDelete) {
		writeError(c, http.StatusNotFound, kind.Name+" cannot be deleted")
		return
	}
	record, err := s.store.Delete(c.Request.Context(), sql.Collection(kind), id)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	if !kind.AsyncDelete {
		c.JSON(http.StatusOK, s.render(kind, record))
		return
	}
	s.startTask(c, fmt.Sprintf("Actions::Katello::%s::Destroy", kind.Name), s.failing(kind, "delete"))
}

// render returns record with every field of its kind present, the way the
// real API answers: absent scalars and references as null, absent
// one-to-many references as an empty list. Collections shared by several
// kinds render each record as the kind its provider names.
func (s *Server) render(kind *core.Kind, record sql.Record) sql.Record {
	if kinds := s.collections[kind.APIPath]; len(kinds) > 1 {
		kind = pickKind(kinds, record)
	}
	out := make(sql.Record, len(record))
	for k, v := range record {
		out[k] = v
	}
	for _, f := range kind.Fields() {
		switch f.Kind {
		case core.KindOneToOne:
			if _, ok := out[f.Name]; !ok {
				if _, ok := out[f.Name+"_id"]; !ok {
					out[f.Name+"_id"] = nil
				}
			}
		case core.KindOneToMany:
			_, named := out[f.Name]
			_, ids := out[f.Name+"_ids"]
			if !named && !ids {
				out[f.Name+"_ids"] = []any{}
			}
		default:
			if _, ok := out[f.Name]; !ok {
				out[f.Name] = nil
			}
		}
	}
	return out
}

func (s *Server) renderAll(kind *core.Kind, records []sql.Record) []sql.Record {
	out := make([]sql.Record, len(records))
	for i, record := range records {
		out[i] = s.render(kind, record)
	}
	return out
}
