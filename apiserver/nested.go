package apiserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/iancoleman/strcase"

	"github.com/preslavrachev/nailgun/adapters/sql"
	"github.com/preslavrachev/nailgun/core"
	"github.com/preslavrachev/nailgun/middleware/auth"
)

// below serves everything under an instance path:
//
//	/<collection>/:id/<segment>[/:sid]  nested kinds, e.g. sync plans
//	/<collection>/:id/<action path>     custom actions, e.g. sync
//	/users/:id/personal_access_tokens   bearer token issue
//	/<collection>/:id/<collection>      records of another kind scoped to the parent
func (s *Server) below(c *gin.Context) {
	path, kinds, ok := s.resolve(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sub, sid := c.Param("sub"), c.Param("sid")
	parent := kinds[0]

	if child, ok := s.nested[path+"/"+sub]; ok {
		s.nestedRecords(c, parent, id, child, sid)
		return
	}
	if action, ok := findAction(kinds, strings.Trim(sub+"/"+sid, "/"), c.Request.Method); ok {
		s.invoke(c, parent, id, action)
		return
	}
	if sub == "personal_access_tokens" && sid == "" && c.Request.Method == http.MethodPost {
		s.issueToken(c, id)
		return
	}
	if scoped := s.scopedKind(sub); scoped != nil && sid == "" && c.Request.Method == http.MethodGet {
		if _, err := s.store.Get(c.Request.Context(), sql.Collection(parent), id); err != nil {
			writeStoreError(c, err)
			return
		}
		q := storeQuery(scoped, c.Request.URL.Query())
		q.Filters[parent.WrapperKey+"_id"] = textOf(id)
		s.writePage(c, scoped, q)
		return
	}
	writeError(c, http.StatusNotFound, "Route "+c.Request.Method+" "+c.Request.URL.Path+" not found")
}

// nestedRecords runs CRUD on a kind living below a parent record
func (s *Server) nestedRecords(c *gin.Context, parent *core.Kind, parentID int64, child *core.Kind, sid string) {
	ctx := c.Request.Context()
	if _, err := s.store.Get(ctx, sql.Collection(parent), parentID); err != nil {
		writeStoreError(c, err)
		return
	}
	parentKey := child.ParentField() + "_id"

	if sid == "" {
		switch c.Request.Method {
		case http.MethodGet:
			q := storeQuery(child, c.Request.URL.Query())
			q.Filters[parentKey] = textOf(parentID)
			s.writePage(c, child, q)
		case http.MethodPost:
			body, ok := readBody(c)
			if !ok {
				return
			}
			data := unwrap(child, body)
			data[parentKey] = parentID
			s.createRecord(c, child, data)
		default:
			writeError(c, http.StatusMethodNotAllowed, c.Request.Method+" is not allowed here")
		}
		return
	}

	c.Params = append(c.Params, gin.Param{Key: "child_id", Value: sid})
	id, ok := parseID(c, "child_id")
	if !ok {
		return
	}
	record, err := s.store.Get(ctx, sql.Collection(child), id)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	if textOf(record[parentKey]) != textOf(parentID) {
		writeError(c, http.StatusNotFound, "Resource "+child.WrapperKey+" not found by id '"+sid+"'")
		return
	}

	switch c.Request.Method {
	case http.MethodGet:
		c.JSON(http.StatusOK, s.render(child, record))
	case http.MethodPut, http.MethodPatch:
		body, ok := readBody(c)
		if !ok {
			return
		}
		data := unwrap(child, body)
		delete(data, parentKey)
		s.updateRecord(c, child, id, data)
	case http.MethodDelete:
		s.deleteRecord(c, child, id)
	default:
		writeError(c, http.StatusMethodNotAllowed, c.Request.Method+" is not allowed here")
	}
}

// findAction looks up the custom action served at segment for method
func findAction(kinds []*core.Kind, segment, method string) (core.CustomAction, bool) {
	for _, kind := range kinds {
		for _, action := range kind.Actions() {
			if action.Method != method {
				continue
			}
			for _, sp := range kind.SubPaths() {
				if sp.Name == action.Path && sp.Scope == core.ScopeSelf && sp.Segment == segment {
					return action, true
				}
			}
		}
	}
	return core.CustomAction{}, false
}

// invoke runs a custom action. Async actions answer 202 with a task,
// others the record acted on.
func (s *Server) invoke(c *gin.Context, kind *core.Kind, id int64, action core.CustomAction) {
	record, err := s.store.Get(c.Request.Context(), sql.Collection(kind), id)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	if _, ok := readBody(c); !ok {
		return
	}
	if !action.Async {
		c.JSON(http.StatusOK, s.render(kind, record))
		return
	}
	label := "Actions::Katello::" + kind.Name + "::" + strcase.ToCamel(action.ID)
	s.startTask(c, label, s.failing(kind, action.ID))
}

// scopedKind returns the kind whose collection ends in segment, for
// listings like /organizations/:id/products
func (s *Server) scopedKind(segment string) *core.Kind {
	for path, kinds := range s.collections {
		if strings.HasSuffix(path, "/"+segment) {
			return kinds[0]
		}
	}
	return nil
}

// issueToken creates a bearer token for the authenticated user
func (s *Server) issueToken(c *gin.Context, id int64) {
	cfg := s.opts.Auth
	if cfg == nil || cfg.TokenStore == nil {
		writeError(c, http.StatusNotFound, "Personal access tokens are not enabled")
		return
	}
	user, ok := auth.GetAuthUser(c.Request.Context())
	if !ok {
		auth.WriteUnauthorized(c.Writer, cfg, auth.ErrNoCredentials)
		c.Abort()
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}
	token, err := cfg.TokenStore.CreateToken(c.Request.Context(), user)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	name := body["name"]
	if inner, ok := body["personal_access_token"].(map[string]any); ok {
		name = inner["name"]
	}
	c.JSON(http.StatusCreated, gin.H{
		"user_id": id,
		"name":    name,
		"token":   token,
	})
}
