package core

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePayloadOmitsUnsetAndWraps(t *testing.T) {
	reg := newTestRegistry()
	cfg := testConfig()

	product := MustNew(reg.MustKind("Product"), cfg, map[string]any{
		"name":         "p",
		"organization": 3,
		"gpg_key":      nil,
		"repositories": []any{4, 5},
	})

	assert.Equal(t, map[string]any{
		"product": map[string]any{
			"name":             "p",
			"organization_id":  3,
			"gpg_key_id":       nil,
			"repositories_ids": []any{4, 5},
		},
	}, CreatePayload(product))
}

func TestCreatePayloadFormatsTemporalValues(t *testing.T) {
	reg := newTestRegistry()
	cfg := testConfig()

	plan := MustNew(reg.MustKind("SyncPlan"), cfg, map[string]any{
		"sync_date":    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		"organization": 1,
	})
	user := MustNew(reg.MustKind("User"), cfg, map[string]any{"created_on": time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)})

	assert.Equal(t, "2024-01-02 03:04:05", CreatePayload(plan)["sync_plan"].(map[string]any)["sync_date"])
	assert.Equal(t, "2024-01-02", CreatePayload(user)["user"].(map[string]any)["created_on"])
}

func TestFlatKindPayload(t *testing.T) {
	reg := newTestRegistry()
	setting := MustNew(reg.MustKind("Setting"), testConfig(), map[string]any{"name": "a", "value": "b"})

	assert.Equal(t, map[string]any{"name": "a", "value": "b"}, CreatePayload(setting))
}

func TestUpdatePayloadSubset(t *testing.T) {
	reg := newTestRegistry()
	org := MustNew(reg.MustKind("Organization"), testConfig(), map[string]any{"id": 1, "name": "n", "description": "d"})

	payload, err := UpdatePayload(org, "name")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"organization": map[string]any{"name": "n"}}, payload)

	payload, err = UpdatePayload(org)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"organization": map[string]any{"id": 1, "name": "n", "description": "d"}}, payload)

	_, err = UpdatePayload(org, "label")
	assert.ErrorIs(t, err, ErrMissingValue)

	_, err = UpdatePayload(org, "colour")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestUpdatePayloadNilVersusUnset(t *testing.T) {
	reg := newTestRegistry()
	org := MustNew(reg.MustKind("Organization"), testConfig(), map[string]any{"id": 1, "description": nil})

	payload, err := UpdatePayload(org)
	require.NoError(t, err)

	inner := payload["organization"].(map[string]any)
	v, ok := inner["description"]
	assert.True(t, ok, "nil is sent as null")
	assert.Nil(t, v)
	_, ok = inner["name"]
	assert.False(t, ok, "unset fields are omitted")

	product := MustNew(reg.MustKind("Product"), testConfig(), map[string]any{"id": 5, "repositories": []any{7, 8}})
	require.NoError(t, product.Set("repositories", nil))
	payload, err = UpdatePayload(product, "repositories")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"product": map[string]any{"repositories_ids": nil}}, payload,
		"a null one-to-many is not an empty list")

	require.NoError(t, product.Set("repositories", []any{}))
	payload, err = UpdatePayload(product, "repositories")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"product": map[string]any{"repositories_ids": []any{}}}, payload)

	require.NoError(t, product.Unset("repositories"))
	_, err = UpdatePayload(product, "repositories")
	assert.ErrorIs(t, err, ErrMissingValue, "an unset field cannot be named")
}

func TestSearchPayload(t *testing.T) {
	reg := newTestRegistry()
	product := MustNew(reg.MustKind("Product"), testConfig(), map[string]any{"name": "p", "organization": 3})

	payload, err := SearchPayload(product, nil, map[string]any{"per_page": 2, "name": "override"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "override", "organization_id": 3, "per_page": 2}, payload)

	payload, err = SearchPayload(product, []string{"organization"}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"organization_id": 3}, payload)

	_, err = SearchPayload(product, []string{"gpg_key"}, nil)
	assert.ErrorIs(t, err, ErrMissingValue)
}

func TestEncodeParams(t *testing.T) {
	params := EncodeParams(map[string]any{
		"organization_id":  3,
		"repositories_ids": []any{4, 5},
		"search":           `name = "x"`,
		"enabled":          true,
		"description":      nil,
	})

	assert.Equal(t, url.Values{
		"organization_id":    {"3"},
		"repositories_ids[]": {"4", "5"},
		"search":             {`name = "x"`},
		"enabled":            {"true"},
		"description":        {""},
	}, params)
}
