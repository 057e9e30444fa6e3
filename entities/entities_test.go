package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preslavrachev/nailgun/config"
	"github.com/preslavrachev/nailgun/core"
)

func testConfig(t *testing.T, version string) *config.ServerConfig {
	t.Helper()
	cfg, err := config.NewServerConfig("https://sat.example.com", &config.Auth{Username: "admin", Password: "changeme"}, version)
	require.NoError(t, err)
	return cfg
}

func TestRelationshipTargetsAreDeclared(t *testing.T) {
	for _, kind := range Catalog.Kinds() {
		for _, f := range kind.Fields() {
			for _, target := range f.Targets {
				_, ok := Catalog.Kind(target)
				assert.True(t, ok, "%s.%s points at undeclared kind %s", kind.Name, f.Name, target)
			}
		}
	}
}

func TestNewRegistryIsIndependent(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, Catalog.Names(), reg.Names())
	assert.NotSame(t, Organization, reg.MustKind("Organization"))
}

func TestPaths(t *testing.T) {
	cfg := testConfig(t, "")
	org := core.MustNew(Organization, cfg, map[string]any{"id": 3})
	host := core.MustNew(Host, cfg, map[string]any{"id": 8})

	tests := []struct {
		name   string
		entity *core.Entity
		which  string
		want   string
	}{
		{"organization", org, "", "https://sat.example.com/katello/api/v2/organizations/3"},
		{"organization base", org, "base", "https://sat.example.com/katello/api/v2/organizations"},
		{"refresh manifest", org, "subscriptions/refresh_manifest", "https://sat.example.com/katello/api/v2/organizations/3/subscriptions/refresh_manifest"},
		{"sync plans", org, "sync_plans", "https://sat.example.com/katello/api/v2/organizations/3/sync_plans"},
		{"sync plan", core.MustNew(SyncPlan, cfg, map[string]any{"id": 5, "organization": org}), "", "https://sat.example.com/katello/api/v2/organizations/3/sync_plans/5"},
		{"interfaces", core.MustNew(Interface, cfg, map[string]any{"host": host}), "", "https://sat.example.com/api/v2/hosts/8/interfaces"},
		{"operating systems", core.MustNew(OperatingSystem, cfg, nil), "", "https://sat.example.com/api/v2/operatingsystems"},
		{"repository sync", core.MustNew(Repository, cfg, map[string]any{"id": 2}), "sync", "https://sat.example.com/katello/api/v2/repositories/2/sync"},
		{"repository sets", core.MustNew(Product, cfg, map[string]any{"id": 4}), "repository_sets/7/enable", "https://sat.example.com/katello/api/v2/products/4/repository_sets/7/enable"},
		{"task", core.MustNew(ForemanTask, cfg, map[string]any{"id": "abc"}), "", "https://sat.example.com/foreman_tasks/api/tasks/abc"},
		{"task bulk search", core.MustNew(ForemanTask, cfg, map[string]any{"id": "abc"}), "bulk_search", "https://sat.example.com/foreman_tasks/api/tasks/bulk_search"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.entity.Path(tt.which)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreatePayloadWrappers(t *testing.T) {
	cfg := testConfig(t, "")
	tests := []struct {
		kind *core.Kind
		key  string
	}{
		{Organization, "organization"},
		{HostGroup, "hostgroup"},
		{OperatingSystem, "operatingsystem"},
		{LibvirtComputeResource, "compute_resource"},
		{DockerComputeResource, "compute_resource"},
		{UserGroup, "usergroup"},
		{GPGKey, "gpg_key"},
	}
	for _, tt := range tests {
		payload := core.CreatePayload(core.MustNew(tt.kind, cfg, map[string]any{"name": "x"}))
		assert.Contains(t, payload, tt.key, tt.kind.Name)
	}
}

func TestReadIgnoreIsVersionGated(t *testing.T) {
	assert.Contains(t, Host.ReadIgnore(testConfig(t, "6.0")), "compute_resource")
	assert.NotContains(t, Host.ReadIgnore(testConfig(t, "6.1")), "compute_resource")
	assert.Contains(t, Host.ReadIgnore(testConfig(t, "6.1")), "root_pass")
	assert.Contains(t, User.ReadIgnore(nil), "password")
}

func TestHostDecodesEitherComputeResource(t *testing.T) {
	cfg := testConfig(t, "")
	host, err := core.Decode(Host, cfg, map[string]any{
		"id":               8,
		"name":             "web",
		"compute_resource": map[string]any{"id": 2, "type": "DockerComputeResource"},
		"parameters":       []any{map[string]any{"name": "a", "value": "b"}},
	}, core.DecodeOptions{Ignore: Host.ReadIgnore(cfg)})
	require.NoError(t, err)

	cr := host.Related("compute_resource")
	require.NotNil(t, cr)
	assert.Equal(t, DockerComputeResource, cr.Kind())
	assert.Equal(t, 2, cr.ID())

	params, ok := host.Get("host_parameters_attributes")
	assert.True(t, ok)
	assert.Len(t, params, 1)
}

func TestOperations(t *testing.T) {
	assert.True(t, ForemanTask.Supports(core.OpRead))
	assert.False(t, ForemanTask.Supports(core.OpCreate))
	assert.False(t, ContentViewVersion.Supports(core.OpCreate))
	assert.True(t, Product.AsyncDelete)

	sync, ok := Repository.Action("sync")
	require.True(t, ok)
	assert.True(t, sync.Async)
	assert.Equal(t, "POST", sync.Method)
}

func TestGeneratedValuesValidate(t *testing.T) {
	gen := core.NewFakeGenerator(42)
	for _, kind := range Catalog.Kinds() {
		for _, f := range kind.Fields() {
			if f.IsRelationship() || f.Name == "id" {
				continue
			}
			value, err := f.GenValue(gen)
			require.NoError(t, err, "%s.%s", kind.Name, f.Name)
			assert.NoError(t, f.Validate(value), "%s.%s = %v", kind.Name, f.Name, value)
		}
	}
}
