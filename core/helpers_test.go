package core

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/preslavrachev/nailgun/config"
)

// newTestRegistry declares a small catalogue shaped like the real one
func newTestRegistry() *Registry {
	reg := NewRegistry()

	reg.Register("Organization").
		WithAPIPath("katello/api/v2/organizations").
		WithField("name", StringField().Required(true)).
		WithField("label", StringField().Charset(CharsetAlpha)).
		WithField("description", StringField()).
		WithField("title", StringField().Unique(true)).
		WithSubPath("products", "products", ScopeSelf).
		WithSubPath("subscriptions/*", "subscriptions/*", ScopeSelf).
		WithAction(NewAction("refresh_manifest", "Refresh manifest").Path("subscriptions/refresh_manifest").Async().Build())

	reg.Register("Product").
		WithAPIPath("katello/api/v2/products").
		WithField("name", StringField().Required(true)).
		WithField("organization", OneToOne("Organization").Required(true)).
		WithField("gpg_key", OneToOne("GPGKey")).
		WithField("repositories", OneToMany("Repository")).
		WithAction(NewAction("sync", "Synchronize").Method(http.MethodPost).Async().Build()).
		WithReadIgnoreBefore("6.1", "organization")

	reg.Register("GPGKey").
		WithAPIPath("katello/api/v2/gpg_keys").
		WithField("name", StringField().Required(true)).
		WithField("content", StringField().Required(true))

	reg.Register("Repository").
		WithAPIPath("katello/api/v2/repositories").
		WithField("name", StringField().Required(true)).
		WithField("product", OneToOne("Product").Required(true)).
		WithField("url", URLField())

	reg.Register("SyncPlan").
		WithField("name", StringField().Required(true)).
		WithField("interval", StringField().Required(true).Choices("hourly", "daily", "weekly")).
		WithField("sync_date", DateTimeField().Required(true)).
		WithField("enabled", BooleanField().Required(true).Default(false)).
		WithField("organization", OneToOne("Organization").Required(true)).
		NestedUnder("organization", "sync_plans").
		WithReadIgnore("organization")

	reg.Register("LibvirtComputeResource").
		WithAPIPath("api/v2/compute_resources").
		WithWrapperKey("compute_resource").
		WithField("name", StringField().Required(true))

	reg.Register("DockerComputeResource").
		WithAPIPath("api/v2/compute_resources").
		WithWrapperKey("compute_resource").
		WithField("name", StringField().Required(true))

	reg.Register("Host").
		WithField("name", StringField().Required(true)).
		WithField("compute_resource", OneToOne("LibvirtComputeResource", "DockerComputeResource")).
		WithField("organization", OneToOne("Organization")).
		WithField("build", BooleanField()).
		WithField("root_pass", StringField().Length(8, 30)).
		WithReadIgnore("root_pass")

	reg.Register("User").
		WithField("login", StringField().Required(true).Charset(CharsetAlphanumeric)).
		WithField("mail", EmailField().Required(true)).
		WithField("password", StringField().Required(true)).
		WithField("admin", BooleanField()).
		WithField("created_on", DateField()).
		WithReadIgnore("password")

	reg.Register("ForemanTask").
		WithAPIPath("foreman_tasks/api/tasks").
		WithField("id", StringField()).
		WithField("state", StringField()).
		WithField("result", StringField()).
		WithOperations(OpRead).
		WithSubPath("bulk_search", "bulk_search", ScopeBase).
		SelfOnly()

	reg.Register("Setting").
		Flat().
		WithPatch().
		WithField("name", StringField()).
		WithField("value", StringField()).
		WithOperations(OpRead | OpUpdate | OpSearch)

	return reg
}

var fixedTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func testConfig() *config.ServerConfig {
	return &config.ServerConfig{
		URL:  "https://sat.example.com",
		Auth: &config.Auth{Username: "admin", Password: "changeme"},
	}
}

// mockTransport answers requests with handler and records them
type mockTransport struct {
	mu       sync.Mutex
	requests []*Request
	handler  func(req *Request) *Response
}

func (m *mockTransport) Do(_ context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	resp := m.handler(req)
	resp.Request = req
	return resp, nil
}

func (m *mockTransport) Requests() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Request(nil), m.requests...)
}

// queue returns a handler replaying responses in order
func queue(responses ...*Response) func(req *Request) *Response {
	var mu sync.Mutex
	i := 0
	return func(*Request) *Response {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(responses) {
			return &Response{StatusCode: http.StatusInternalServerError, Body: []byte(`{"error":{"message":"unexpected request"}}`)}
		}
		resp := responses[i]
		i++
		return resp
	}
}

func jsonResponse(t *testing.T, status int, body any) *Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	return &Response{StatusCode: status, Header: http.Header{"Content-Type": {"application/json"}}, Body: buf}
}

func newTestEngine(t *testing.T, handler func(req *Request) *Response, opts ...EngineOption) (*Engine, *mockTransport) {
	t.Helper()
	mt := &mockTransport{handler: handler}
	defaults := NewDefaults()
	defaults.SetServerConfig(testConfig())
	clock := NewManualClock(fixedTime)
	base := []EngineOption{WithDefaults(defaults), WithGenerator(NewFakeGenerator(42)), WithClock(clock)}
	return NewEngine(mt, append(base, opts...)...), mt
}

// bodyOf returns a request body as a JSON-shaped map
func bodyOf(t *testing.T, req *Request) map[string]any {
	t.Helper()
	buf, err := json.Marshal(req.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf, &out))
	return out
}
