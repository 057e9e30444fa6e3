package main

import (
	"context"
	"net/http"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/preslavrachev/nailgun/adapters/http"
	"github.com/preslavrachev/nailgun/config"
	"github.com/preslavrachev/nailgun/core"
	"github.com/preslavrachev/nailgun/entities"
)

func newTestServer(t *testing.T, args ...string) *core.Engine {
	t.Helper()
	v := viper.New()
	cmd := newRootCmd(v)
	require.NoError(t, cmd.ParseFlags(append([]string{"--db", ":memory:"}, args...)))

	srv, closeAll, err := newServer(context.Background(), v)
	require.NoError(t, err)
	t.Cleanup(closeAll)
	return core.NewEngine(httpadapter.NewHandlerTransport(srv.Handler()))
}

func TestCredentialsFromEnvironment(t *testing.T) {
	t.Setenv(config.EnvUsername, "admin")
	t.Setenv(config.EnvPassword, "changeme")
	t.Setenv(config.EnvToken, "t0k3n")
	en := newTestServer(t)
	ctx := context.Background()

	good := &config.ServerConfig{URL: "https://sat.example.com", Auth: &config.Auth{Username: "admin", Password: "changeme"}}
	_, err := en.Create(ctx, core.MustNew(entities.Organization, good, map[string]any{"name": "ACME"}), core.CreateOptions{})
	require.NoError(t, err)

	token := &config.ServerConfig{URL: "https://sat.example.com", Auth: &config.Auth{Token: "t0k3n"}}
	found, err := en.Search(ctx, core.MustNew(entities.Organization, token, nil), core.SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, found.Entities, 1)

	bad := &config.ServerConfig{URL: "https://sat.example.com", Auth: &config.Auth{Username: "admin", Password: "wrong"}}
	_, err = en.Search(ctx, core.MustNew(entities.Organization, bad, nil), core.SearchOptions{})
	var transportErr *core.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusUnauthorized, transportErr.StatusCode)
}

func TestAnonymousWithoutCredentials(t *testing.T) {
	t.Setenv(config.EnvUsername, "")
	t.Setenv(config.EnvToken, "")
	en := newTestServer(t, "--task-polls", "0", "--fail", "Organization.delete")
	ctx := context.Background()

	cfg := &config.ServerConfig{URL: "https://sat.example.com"}
	org, err := en.Create(ctx, core.MustNew(entities.Organization, cfg, map[string]any{"name": "ACME"}), core.CreateOptions{})
	require.NoError(t, err)

	_, err = en.Delete(ctx, org, core.DeleteOptions{})
	var failed *core.TaskFailedError
	assert.ErrorAs(t, err, &failed)
}
