package core

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// route answers by "METHOD URL" and fails the test on anything else
func route(t *testing.T, routes map[string]*Response) func(req *Request) *Response {
	return func(req *Request) *Response {
		if resp, ok := routes[req.Method+" "+req.URL]; ok {
			return resp
		}
		t.Errorf("unexpected request %s %s", req.Method, req.URL)
		return &Response{StatusCode: http.StatusNotFound}
	}
}

func TestCreateOrganization(t *testing.T) {
	reg := newTestRegistry()
	en, mt := newTestEngine(t, queue(jsonResponse(t, http.StatusCreated, map[string]any{
		"id": 1, "name": "Default Org", "label": "Default_Org", "title": "Default Org", "created_at": "2024-01-02",
	})))

	org := MustNew(reg.MustKind("Organization"), testConfig(), map[string]any{"name": "Default Org"})
	created, err := en.Create(context.Background(), org, CreateOptions{})
	require.NoError(t, err)

	requests := mt.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodPost, requests[0].Method)
	assert.Equal(t, "https://sat.example.com/katello/api/v2/organizations", requests[0].URL)
	assert.Equal(t, map[string]any{"organization": map[string]any{"name": "Default Org"}}, bodyOf(t, requests[0]))
	assert.Equal(t, "admin", requests[0].Options.Auth.Username)

	assert.Equal(t, 1, created.ID())
	label, _ := created.Get("label")
	assert.Equal(t, "Default_Org", label)
	assert.False(t, org.HasID(), "the input entity is left untouched")
}

func TestCreateEmptyEntityGeneratesRelated(t *testing.T) {
	reg := newTestRegistry()
	en, mt := newTestEngine(t, route(t, map[string]*Response{
		"POST https://sat.example.com/katello/api/v2/organizations": jsonResponse(t, http.StatusCreated, map[string]any{"id": 3, "name": "generated"}),
		"POST https://sat.example.com/katello/api/v2/products":      jsonResponse(t, http.StatusCreated, map[string]any{"id": 8, "name": "p", "organization_id": 3}),
	}))

	product, err := en.Create(context.Background(), MustNew(reg.MustKind("Product"), testConfig(), nil), CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 8, product.ID())

	requests := mt.Requests()
	require.Len(t, requests, 2)
	assert.True(t, strings.HasSuffix(requests[0].URL, "/organizations"), "the related organization is created first")

	body := bodyOf(t, requests[1])["product"].(map[string]any)
	assert.EqualValues(t, 3, body["organization_id"])
	name, ok := body["name"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, name)
	_, ok = body["gpg_key_id"]
	assert.False(t, ok, "optional relationships are not generated")
}

func TestCreatePartialEntityFillsRequiredRelationship(t *testing.T) {
	reg := newTestRegistry()
	en, mt := newTestEngine(t, route(t, map[string]*Response{
		"POST https://sat.example.com/katello/api/v2/organizations": jsonResponse(t, http.StatusCreated, map[string]any{"id": 4, "name": "generated"}),
		"POST https://sat.example.com/katello/api/v2/products":      jsonResponse(t, http.StatusCreated, map[string]any{"id": 9, "name": "p", "organization_id": 4}),
	}))

	product := MustNew(reg.MustKind("Product"), testConfig(), map[string]any{"name": "p"})
	created, err := en.Create(context.Background(), product, CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 9, created.ID())

	requests := mt.Requests()
	require.Len(t, requests, 2)
	assert.True(t, strings.HasSuffix(requests[0].URL, "/organizations"))
	body := bodyOf(t, requests[1])["product"].(map[string]any)
	assert.Equal(t, "p", body["name"], "assigned values are kept")
	assert.EqualValues(t, 4, body["organization_id"])
	_, ok := body["gpg_key_id"]
	assert.False(t, ok, "optional relationships are not generated")
	_, ok = product.Get("organization")
	assert.False(t, ok, "the input entity is left untouched")
}

func TestCreateMissingRelationshipFailsLocallyWhenDisabled(t *testing.T) {
	reg := newTestRegistry()
	en, mt := newTestEngine(t, queue())

	product := MustNew(reg.MustKind("Product"), testConfig(), map[string]any{"name": "p"})
	_, err := en.Create(context.Background(), product, CreateOptions{CreateMissing: Bool(false)})

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.ErrorIs(t, err, ErrMissingValue)
	assert.Equal(t, []string{"organization"}, schemaErr.Fields)
	assert.Empty(t, mt.Requests())
}

func TestCreateMissingCanBeDisabled(t *testing.T) {
	reg := newTestRegistry()
	kind := reg.MustKind("Organization")

	en, mt := newTestEngine(t, queue())
	_, err := en.Create(context.Background(), MustNew(kind, testConfig(), nil), CreateOptions{CreateMissing: Bool(false)})
	assert.ErrorIs(t, err, ErrMissingValue)
	assert.Empty(t, mt.Requests())

	en.Defaults().SetCreateMissing(Bool(false))
	_, err = en.Create(context.Background(), MustNew(kind, testConfig(), nil), CreateOptions{})
	assert.ErrorIs(t, err, ErrMissingValue, "the process-wide policy applies")

	en, mt = newTestEngine(t, queue(jsonResponse(t, http.StatusCreated, map[string]any{"id": 1})))
	en.Defaults().SetCreateMissing(Bool(false))
	_, err = en.Create(context.Background(), MustNew(kind, testConfig(), nil), CreateOptions{CreateMissing: Bool(true)})
	require.NoError(t, err, "the per-call flag wins")
	assert.Len(t, mt.Requests(), 1)
}

func TestCreateNestedKindUsesDefaultsAndChoices(t *testing.T) {
	reg := newTestRegistry()
	en, mt := newTestEngine(t, queue(jsonResponse(t, http.StatusCreated, map[string]any{"id": 9, "name": "n"})))

	plan := MustNew(reg.MustKind("SyncPlan"), testConfig(), map[string]any{"organization": 3})
	created, err := en.Create(context.Background(), plan, CreateOptions{})
	require.NoError(t, err)

	requests := mt.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "https://sat.example.com/katello/api/v2/organizations/3/sync_plans", requests[0].URL)

	body := bodyOf(t, requests[0])["sync_plan"].(map[string]any)
	assert.Equal(t, false, body["enabled"])
	assert.Contains(t, []any{"hourly", "daily", "weekly"}, body["interval"])
	_, err = time.Parse(DateTimeLayout, body["sync_date"].(string))
	assert.NoError(t, err)

	assert.Equal(t, 3, created.Related("organization").ID(), "the parent is carried over")
}

func TestOperationNotSupported(t *testing.T) {
	reg := newTestRegistry()
	en, mt := newTestEngine(t, queue())
	ctx := context.Background()

	task := MustNew(reg.MustKind("ForemanTask"), testConfig(), map[string]any{"id": "abc"})
	_, err := en.Create(ctx, task, CreateOptions{})
	assert.ErrorIs(t, err, ErrOperationNotSupported)
	_, err = en.Update(ctx, task)
	assert.ErrorIs(t, err, ErrOperationNotSupported)
	_, err = en.Delete(ctx, task, DeleteOptions{})
	assert.ErrorIs(t, err, ErrOperationNotSupported)
	_, err = en.Search(ctx, task, SearchOptions{})
	assert.ErrorIs(t, err, ErrOperationNotSupported)

	org := MustNew(reg.MustKind("Organization"), testConfig(), map[string]any{"id": 1})
	_, err = en.Invoke(ctx, org, "sync", nil, InvokeOptions{})
	assert.ErrorIs(t, err, ErrOperationNotSupported)

	assert.Empty(t, mt.Requests())
}

func TestRead(t *testing.T) {
	reg := newTestRegistry()
	en, mt := newTestEngine(t, queue(jsonResponse(t, http.StatusOK, map[string]any{
		"id": 4, "login": "admin", "mail": "admin@example.com", "password": "leaked", "admin": true, "created_on": "2024-01-01",
	})))

	user := MustNew(reg.MustKind("User"), testConfig(), map[string]any{"id": 4})
	read, err := en.Read(context.Background(), user, ReadOptions{Params: map[string]any{"full": true}})
	require.NoError(t, err)

	requests := mt.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodGet, requests[0].Method)
	assert.Equal(t, "https://sat.example.com/api/v2/users/4", requests[0].URL)
	assert.Equal(t, "true", requests[0].Params.Get("full"))

	login, _ := read.Get("login")
	assert.Equal(t, "admin", login)
	_, ok := read.Get("password")
	assert.False(t, ok, "write-only fields are not read back")
	created, _ := read.Get("created_on")
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), created)
}

func TestReadVersionedIgnore(t *testing.T) {
	reg := newTestRegistry()
	answer := map[string]any{"id": 5, "name": "p", "organization_id": 3, "gpg_key": nil, "repositories": []any{}}

	en, _ := newTestEngine(t, queue(jsonResponse(t, http.StatusOK, answer)))
	read, err := en.Read(context.Background(), MustNew(reg.MustKind("Product"), testConfig(), map[string]any{"id": 5}), ReadOptions{})
	require.NoError(t, err)
	assert.NotNil(t, read.Related("organization"), "unknown versions are treated as latest")

	old := testConfig()
	require.NoError(t, old.SetVersion("6.0"))
	en, _ = newTestEngine(t, queue(jsonResponse(t, http.StatusOK, answer)))
	read, err = en.Read(context.Background(), MustNew(reg.MustKind("Product"), old, map[string]any{"id": 5}), ReadOptions{})
	require.NoError(t, err)
	_, ok := read.Get("organization")
	assert.False(t, ok)
}

func TestReadRequiresFields(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()
	partial := map[string]any{"id": 5, "name": "p", "organization_id": 3}

	en, _ := newTestEngine(t, queue(jsonResponse(t, http.StatusOK, partial)))
	_, err := en.Read(ctx, MustNew(reg.MustKind("Product"), testConfig(), map[string]any{"id": 5}), ReadOptions{})
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.ErrorIs(t, err, ErrMissingValue)
	assert.Equal(t, []string{"gpg_key", "repositories"}, schemaErr.Fields)

	en, _ = newTestEngine(t, queue(jsonResponse(t, http.StatusOK, partial)))
	read, err := en.Read(ctx, MustNew(reg.MustKind("Product"), testConfig(), map[string]any{"id": 5}), ReadOptions{Ignore: []string{"gpg_key", "repositories"}})
	require.NoError(t, err)
	assert.Equal(t, 3, read.Related("organization").ID())

	en, _ = newTestEngine(t, queue(jsonResponse(t, http.StatusOK, partial)))
	read, err = en.Read(ctx, MustNew(reg.MustKind("Product"), testConfig(), map[string]any{"id": 5}), ReadOptions{Lenient: true})
	require.NoError(t, err)
	_, ok := read.Get("gpg_key")
	assert.False(t, ok)

	old := testConfig()
	require.NoError(t, old.SetVersion("6.0"))
	en, _ = newTestEngine(t, queue(jsonResponse(t, http.StatusOK, map[string]any{"id": 5, "name": "p", "gpg_key": nil, "repositories": []any{}})))
	_, err = en.Read(ctx, MustNew(reg.MustKind("Product"), old, map[string]any{"id": 5}), ReadOptions{})
	assert.NoError(t, err, "version-gated ignores excuse the missing organization")

	en, _ = newTestEngine(t, queue(jsonResponse(t, http.StatusOK, map[string]any{
		"id": 5, "name": "p", "organization_id": 3, "gpg_key": nil, "repositories": []any{}, "bogus": 1,
	})))
	_, err = en.Read(ctx, MustNew(reg.MustKind("Product"), testConfig(), map[string]any{"id": 5}), ReadOptions{Strict: true})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestReadIntoAndAttrs(t *testing.T) {
	reg := newTestRegistry()
	kind := reg.MustKind("Organization")
	en, mt := newTestEngine(t, queue())
	ctx := context.Background()

	into := MustNew(kind, testConfig(), map[string]any{"description": "stale"})
	read, err := en.Read(ctx, MustNew(kind, testConfig(), nil), ReadOptions{
		Into:    into,
		Attrs:   map[string]any{"id": 2, "name": "from attrs"},
		Lenient: true,
	})
	require.NoError(t, err)
	assert.Same(t, into, read)
	assert.Equal(t, 2, into.ID())
	_, ok := into.Get("description")
	assert.False(t, ok, "values are replaced, not merged")
	assert.Empty(t, mt.Requests())

	_, err = en.Read(ctx, MustNew(kind, testConfig(), nil), ReadOptions{})
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = en.Read(ctx, MustNew(kind, testConfig(), map[string]any{"id": 1}), ReadOptions{Into: MustNew(reg.MustKind("Product"), testConfig(), nil)})
	assert.Error(t, err)
	assert.Empty(t, mt.Requests())
}

func TestReadNestedCarriesParent(t *testing.T) {
	reg := newTestRegistry()
	en, mt := newTestEngine(t, queue(jsonResponse(t, http.StatusOK, map[string]any{
		"id": 9, "name": "nightly", "interval": "daily", "sync_date": nil, "enabled": true, "organization": map[string]any{"id": 3},
	})))

	plan := MustNew(reg.MustKind("SyncPlan"), testConfig(), map[string]any{"id": 9, "organization": 3})
	read, err := en.Read(context.Background(), plan, ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "https://sat.example.com/katello/api/v2/organizations/3/sync_plans/9", mt.Requests()[0].URL)
	assert.Equal(t, 3, read.Related("organization").ID(), "ignored parent is restored from the request entity")
}

func TestUpdate(t *testing.T) {
	reg := newTestRegistry()
	en, mt := newTestEngine(t, queue(
		jsonResponse(t, http.StatusOK, map[string]any{"id": 1, "name": "renamed", "description": "d"}),
		jsonResponse(t, http.StatusOK, map[string]any{"id": 4, "name": "idle_timeout", "value": "60"}),
	))
	ctx := context.Background()

	org := MustNew(reg.MustKind("Organization"), testConfig(), map[string]any{"id": 1, "name": "renamed", "description": "d"})
	updated, err := en.Update(ctx, org, "name")
	require.NoError(t, err)
	name, _ := updated.Get("name")
	assert.Equal(t, "renamed", name)

	setting := MustNew(reg.MustKind("Setting"), testConfig(), map[string]any{"id": 4, "value": "60"})
	_, err = en.Update(ctx, setting, "value")
	require.NoError(t, err)

	requests := mt.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, http.MethodPut, requests[0].Method)
	assert.Equal(t, "https://sat.example.com/katello/api/v2/organizations/1", requests[0].URL)
	assert.Equal(t, map[string]any{"organization": map[string]any{"name": "renamed"}}, bodyOf(t, requests[0]))

	assert.Equal(t, http.MethodPatch, requests[1].Method)
	assert.Equal(t, "https://sat.example.com/api/v2/settings/4", requests[1].URL)
	assert.Equal(t, map[string]any{"value": "60"}, bodyOf(t, requests[1]))

	_, err = en.Update(ctx, MustNew(reg.MustKind("Organization"), testConfig(), map[string]any{"name": "x"}))
	assert.ErrorIs(t, err, ErrMissingID)
	_, err = en.Update(ctx, org, "label")
	assert.ErrorIs(t, err, ErrMissingValue)
	assert.Len(t, mt.Requests(), 2)
}

func TestDeleteResponses(t *testing.T) {
	reg := newTestRegistry()
	org := func() *Entity {
		return MustNew(reg.MustKind("Organization"), testConfig(), map[string]any{"id": 1})
	}
	ctx := context.Background()

	t.Run("no content", func(t *testing.T) {
		en, _ := newTestEngine(t, queue(&Response{StatusCode: http.StatusNoContent}))
		result, err := en.Delete(ctx, org(), DeleteOptions{})
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, result.StatusCode)
		assert.Nil(t, result.Data)
		assert.Nil(t, result.Task)
	})

	t.Run("empty body", func(t *testing.T) {
		en, _ := newTestEngine(t, queue(&Response{StatusCode: http.StatusOK, Body: []byte("  ")}))
		result, err := en.Delete(ctx, org(), DeleteOptions{})
		require.NoError(t, err)
		assert.Nil(t, result.Data)
	})

	t.Run("json body", func(t *testing.T) {
		en, mt := newTestEngine(t, queue(jsonResponse(t, http.StatusOK, map[string]any{"id": 1, "name": "gone"})))
		result, err := en.Delete(ctx, org(), DeleteOptions{})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"id": 1, "name": "gone"}, result.Data)
		assert.Equal(t, http.MethodDelete, mt.Requests()[0].Method)
		assert.Equal(t, "https://sat.example.com/katello/api/v2/organizations/1", mt.Requests()[0].URL)
	})

	t.Run("task polled", func(t *testing.T) {
		clock := NewManualClock(fixedTime)
		en, mt := newTestEngine(t, queue(
			jsonResponse(t, http.StatusAccepted, map[string]any{"id": "t-1", "state": "planned"}),
			jsonResponse(t, http.StatusOK, map[string]any{"id": "t-1", "state": "running"}),
			jsonResponse(t, http.StatusOK, map[string]any{"id": "t-1", "state": "stopped", "result": "success"}),
		), WithClock(clock))

		result, err := en.Delete(ctx, org(), DeleteOptions{})
		require.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, result.StatusCode)
		require.NotNil(t, result.Task)
		assert.Equal(t, TaskSuccess, result.Task.State)
		assert.Equal(t, "stopped", result.Data.(map[string]any)["state"])

		requests := mt.Requests()
		require.Len(t, requests, 3)
		assert.Equal(t, "https://sat.example.com/foreman_tasks/api/tasks/t-1", requests[1].URL)
		assert.Equal(t, []time.Duration{DefaultPollRate}, clock.Sleeps())
	})

	t.Run("task async", func(t *testing.T) {
		en, mt := newTestEngine(t, queue(jsonResponse(t, http.StatusAccepted, map[string]any{"id": "t-2", "state": "planned"})))
		result, err := en.Delete(ctx, org(), DeleteOptions{Async: true})
		require.NoError(t, err)
		assert.Equal(t, TaskPending, result.Task.State)
		assert.Equal(t, "t-2", result.Task.ID)
		assert.Len(t, mt.Requests(), 1)
	})

	t.Run("missing id", func(t *testing.T) {
		en, mt := newTestEngine(t, queue())
		_, err := en.Delete(ctx, MustNew(reg.MustKind("Organization"), testConfig(), nil), DeleteOptions{})
		assert.ErrorIs(t, err, ErrMissingID)
		assert.Empty(t, mt.Requests())
	})
}

func TestSearchPaging(t *testing.T) {
	reg := newTestRegistry()
	en, mt := newTestEngine(t, queue(jsonResponse(t, http.StatusOK, map[string]any{
		"total": 5, "subtotal": 5, "page": 1, "per_page": 2,
		"results": []any{
			map[string]any{"id": 1, "name": "a"},
			map[string]any{"id": 2, "name": "b"},
		},
	})))

	result, err := en.Search(context.Background(), MustNew(reg.MustKind("Organization"), testConfig(), nil), SearchOptions{
		Query: map[string]any{"per_page": 2},
	})
	require.NoError(t, err)

	req := mt.Requests()[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "https://sat.example.com/katello/api/v2/organizations", req.URL)
	assert.Equal(t, "2", req.Params.Get("per_page"))

	require.Len(t, result.Entities, 2)
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 2, result.PerPage)
	assert.Equal(t, 2, result.Entities[1].ID())
}

func TestSearchUsesEntityValues(t *testing.T) {
	reg := newTestRegistry()
	en, mt := newTestEngine(t, queue(jsonResponse(t, http.StatusOK, map[string]any{"results": []any{}})))

	plan := MustNew(reg.MustKind("SyncPlan"), testConfig(), map[string]any{"organization": 3, "name": "nightly"})
	result, err := en.Search(context.Background(), plan, SearchOptions{Fields: []string{"name"}})
	require.NoError(t, err)
	assert.Empty(t, result.Entities)

	req := mt.Requests()[0]
	assert.Equal(t, "https://sat.example.com/katello/api/v2/organizations/3/sync_plans", req.URL)
	assert.Equal(t, "nightly", req.Params.Get("name"))
	assert.Empty(t, req.Params.Get("organization_id"))
}

func TestSearchFilters(t *testing.T) {
	reg := newTestRegistry()
	kind := reg.MustKind("Organization")
	base := "https://sat.example.com/katello/api/v2/organizations"
	en, _ := newTestEngine(t, route(t, map[string]*Response{
		"GET " + base: jsonResponse(t, http.StatusOK, map[string]any{"results": []any{
			map[string]any{"id": 1}, map[string]any{"id": 2},
		}}),
		"GET " + base + "/1": jsonResponse(t, http.StatusOK, map[string]any{"id": 1, "name": "A", "label": "a", "description": nil, "title": "A"}),
		"GET " + base + "/2": jsonResponse(t, http.StatusOK, map[string]any{"id": 2, "name": "B", "label": "b", "description": nil, "title": "B"}),
	}))
	ctx := context.Background()

	result, err := en.Search(ctx, MustNew(kind, testConfig(), nil), SearchOptions{Filters: map[string]any{"label": "b"}})
	require.NoError(t, err)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, 2, result.Entities[0].ID())

	products := MustNew(reg.MustKind("Product"), testConfig(), nil)
	_, err = en.Search(ctx, products, SearchOptions{Filters: map[string]any{"organization": 1}})
	assert.ErrorIs(t, err, ErrUnsupportedFilter)
	_, err = en.Search(ctx, products, SearchOptions{Filters: map[string]any{"colour": "red"}})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestSearchAll(t *testing.T) {
	reg := newTestRegistry()
	en, mt := newTestEngine(t, queue(
		jsonResponse(t, http.StatusOK, map[string]any{"subtotal": 3, "results": []any{map[string]any{"id": 1}, map[string]any{"id": 2}}}),
		jsonResponse(t, http.StatusOK, map[string]any{"subtotal": 3, "results": []any{map[string]any{"id": 3}}}),
	))

	all, err := en.SearchAll(context.Background(), MustNew(reg.MustKind("Organization"), testConfig(), nil),
		NewSearchQuery().Where("name", "x").WithPagination(1, 2))
	require.NoError(t, err)
	require.Len(t, all, 3)

	requests := mt.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, "1", requests[0].Params.Get("page"))
	assert.Equal(t, "2", requests[1].Params.Get("page"))
	assert.Equal(t, `name = "x"`, requests[1].Params.Get("search"))
}

func TestObservers(t *testing.T) {
	reg := newTestRegistry()
	denied := errors.New("read only mode")
	var seen []Op

	en, mt := newTestEngine(t, queue(jsonResponse(t, http.StatusOK, map[string]any{"id": 1, "name": "a", "label": "a", "description": nil, "title": "a"})),
		WithObserver(BeforeFunc(func(_ context.Context, ev Event) error {
			if ev.Op != EventRead {
				return denied
			}
			return nil
		})),
		WithObserver(AfterFunc(func(_ context.Context, ev Event) {
			seen = append(seen, ev.Op)
			assert.NotNil(t, ev.Result)
			assert.NoError(t, ev.Err)
		})),
	)
	ctx := context.Background()
	org := MustNew(reg.MustKind("Organization"), testConfig(), map[string]any{"id": 1, "name": "a"})

	_, err := en.Create(ctx, org, CreateOptions{})
	assert.ErrorIs(t, err, denied)
	_, err = en.Delete(ctx, org, DeleteOptions{})
	assert.ErrorIs(t, err, denied)
	assert.Empty(t, mt.Requests(), "a failing observer aborts before sending")

	_, err = en.Read(ctx, org, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Op{EventRead}, seen)
}

func TestInvoke(t *testing.T) {
	reg := newTestRegistry()
	ctx := context.Background()

	en, mt := newTestEngine(t, queue(jsonResponse(t, http.StatusAccepted, map[string]any{"id": "sync-1", "state": "planned"})))
	product := MustNew(reg.MustKind("Product"), testConfig(), map[string]any{"id": 5})
	result, err := en.Invoke(ctx, product, "sync", nil, InvokeOptions{Async: true})
	require.NoError(t, err)
	assert.Equal(t, "sync-1", result.Task.ID)

	req := mt.Requests()[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://sat.example.com/katello/api/v2/products/5/sync", req.URL)
	assert.Nil(t, req.Body)

	en, mt = newTestEngine(t, queue(jsonResponse(t, http.StatusOK, map[string]any{"message": "ok"})))
	org := MustNew(reg.MustKind("Organization"), testConfig(), map[string]any{"id": 1})
	result, err = en.Invoke(ctx, org, "refresh_manifest", map[string]any{"force": true}, InvokeOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"message": "ok"}, result.Data)

	req = mt.Requests()[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "https://sat.example.com/katello/api/v2/organizations/1/subscriptions/refresh_manifest", req.URL)
	assert.Equal(t, map[string]any{"force": true}, bodyOf(t, req))
}

func TestTransportErrorDetail(t *testing.T) {
	reg := newTestRegistry()
	en, _ := newTestEngine(t, queue(jsonResponse(t, http.StatusUnprocessableEntity, map[string]any{
		"error": map[string]any{"message": "Name has already been taken"},
	})))

	_, err := en.Create(context.Background(), MustNew(reg.MustKind("Organization"), testConfig(), map[string]any{"name": "dup"}), CreateOptions{})

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusUnprocessableEntity, transportErr.StatusCode)
	assert.Equal(t, http.MethodPost, transportErr.Method)
	assert.Contains(t, err.Error(), "Name has already been taken")
}

func TestEngineHeaders(t *testing.T) {
	reg := newTestRegistry()
	cfg := testConfig()
	cfg.Extra = map[string]string{"X-Client": "nailgun", "X-Trace": "server"}
	en, mt := newTestEngine(t, queue(jsonResponse(t, http.StatusOK, map[string]any{"id": 1})),
		WithHeaders(map[string]string{"X-Trace": "engine"}))

	_, err := en.Read(context.Background(), MustNew(reg.MustKind("Organization"), cfg, map[string]any{"id": 1}), ReadOptions{Lenient: true})
	require.NoError(t, err)

	headers := mt.Requests()[0].Options.Headers
	assert.Equal(t, "nailgun", headers["X-Client"])
	assert.Equal(t, "engine", headers["X-Trace"])
}
