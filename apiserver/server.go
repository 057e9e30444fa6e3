// Package apiserver serves a fake Satellite API from an adapters/sql store.
// Every kind of a registry gets its collection, instance, nested and action
// routes; answers mimic the real server closely enough for the client
// engine to run against it.
package apiserver

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/preslavrachev/nailgun/adapters/sql"
	"github.com/preslavrachev/nailgun/core"
	"github.com/preslavrachev/nailgun/middleware/auth"
)

// DefaultTaskPolls is how many reads a task stays running for
const DefaultTaskPolls = 1

// ServerVersion is reported by the status endpoint
const ServerVersion = "6.16.0"

// Options configures a Server
type Options struct {
	// Auth protects every route; nil or disabled serves anonymously
	Auth *auth.AuthConfig
	// TaskPolls is how many polls tasks run for before stopping
	TaskPolls int
	// FailingActions names actions whose tasks stop with an error, as
	// "Kind.action" or "Kind.delete"
	FailingActions []string
	// Debug enables gin's request log
	Debug bool
}

// Server is the fake API
type Server struct {
	store    *sql.Store
	registry *core.Registry
	opts     Options
	router   *gin.Engine

	// collections maps a collection path such as "api/v2/hosts" to the
	// kinds stored there
	collections map[string][]*core.Kind
	// nested maps "<parent collection path>/<segment>" to the nested kind
	nested map[string]*core.Kind
}

// New builds a server for every kind of registry
func New(store *sql.Store, registry *core.Registry, opts Options) *Server {
	if opts.TaskPolls < 0 {
		opts.TaskPolls = 0
	}
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		store:       store,
		registry:    registry,
		opts:        opts,
		collections: make(map[string][]*core.Kind),
		nested:      make(map[string]*core.Kind),
	}
	s.index()
	s.router = s.routes()
	return s
}

// Handler returns the server as an http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on addr until the listener fails
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) index() {
	for _, kind := range s.registry.Kinds() {
		if kind.SelfOnly {
			continue
		}
		if parent := kind.ParentField(); parent != "" {
			f, ok := kind.Field(parent)
			if !ok || len(f.Targets) == 0 {
				continue
			}
			parentKind, ok := s.registry.Kind(f.Targets[0])
			if !ok {
				continue
			}
			s.nested[parentKind.APIPath+"/"+kind.ParentSegment()] = kind
			continue
		}
		s.collections[kind.APIPath] = append(s.collections[kind.APIPath], kind)
	}
}

// prefixes returns the distinct parent paths of the collections, such as
// "api/v2" and "katello/api/v2"
func (s *Server) prefixes() []string {
	var out []string
	for path := range s.collections {
		i := strings.LastIndex(path, "/")
		if i < 0 {
			continue
		}
		if prefix := path[:i]; !slices.Contains(out, prefix) {
			out = append(out, prefix)
		}
	}
	slices.Sort(out)
	return out
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if s.opts.Debug {
		r.Use(gin.Logger())
	}
	r.Use(s.authenticate())
	r.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "Route "+c.Request.Method+" "+c.Request.URL.Path+" not found")
	})

	r.GET("/api/status", s.status)

	tasks := r.Group("/foreman_tasks/api/tasks")
	{
		tasks.GET("/:id", s.getTask)
		tasks.POST("/bulk_search", s.bulkSearchTasks)
	}

	for _, prefix := range s.prefixes() {
		g := r.Group("/" + prefix)
		{
			g.GET("/:collection", s.list)
			g.POST("/:collection", s.create)
			g.GET("/:collection/:id", s.get)
			g.PUT("/:collection/:id", s.update)
			g.PATCH("/:collection/:id", s.update)
			g.DELETE("/:collection/:id", s.destroy)

			// nested collections, actions and tokens
			g.Any("/:collection/:id/:sub", s.below)
			g.Any("/:collection/:id/:sub/:sid", s.below)
		}
	}
	return r
}

// authenticate runs auth.CreateAuthMiddleware inside gin. The wrapped
// handler only runs when the middleware lets the request through, carrying
// the authenticated user in its context.
func (s *Server) authenticate() gin.HandlerFunc {
	middleware := auth.CreateAuthMiddleware(s.opts.Auth)
	return func(c *gin.Context) {
		passed := false
		middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"result":      "ok",
		"status":      http.StatusOK,
		"version":     ServerVersion,
		"api_version": 2,
	})
}

func (s *Server) failing(kind *core.Kind, action string) bool {
	return slices.Contains(s.opts.FailingActions, kind.Name+"."+action)
}
