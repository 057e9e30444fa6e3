package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerConfig(t *testing.T) {
	cfg, err := NewServerConfig("https://sat.example.com/", &Auth{Username: "admin", Password: "changeme"}, "6.1")
	require.NoError(t, err)

	assert.Equal(t, "https://sat.example.com", cfg.URL)
	assert.True(t, cfg.VersionAtLeast("6.0"))
	assert.True(t, cfg.VersionAtLeast("6.1.0"))
	assert.False(t, cfg.VersionAtLeast("6.2"))

	_, err = NewServerConfig("sat.example.com", nil, "")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewServerConfig("https://sat.example.com", nil, "not-a-version")
	assert.Error(t, err)
}

func TestVersionAtLeastWithoutVersion(t *testing.T) {
	cfg := &ServerConfig{URL: "https://sat.example.com"}
	assert.True(t, cfg.VersionAtLeast("99.0"), "unknown version is treated as latest")
}

func TestClientOptionsMergesHeaders(t *testing.T) {
	cfg := &ServerConfig{
		URL:    "https://sat.example.com",
		Auth:   &Auth{Username: "admin", Password: "secret"},
		Verify: Verify{Disabled: true},
		Extra:  map[string]string{"X-A": "1", "X-B": "config"},
	}

	opts := cfg.ClientOptions(map[string]string{"X-B": "call"})

	assert.Equal(t, map[string]string{"X-A": "1", "X-B": "call"}, opts.Headers)
	assert.True(t, opts.Verify.Disabled)
	require.NotNil(t, opts.Auth)
	assert.Equal(t, "admin", opts.Auth.Username)

	opts.Auth.Username = "mutated"
	opts.Headers["X-A"] = "mutated"
	assert.Equal(t, "admin", cfg.Auth.Username, "options must not alias the config")
	assert.Equal(t, "1", cfg.Extra["X-A"])
}

func TestProfileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nailgun", "server_configs.yaml")

	cfg, err := NewServerConfig("https://sat.example.com", &Auth{Username: "admin", Password: "changeme"}, "6.2")
	require.NoError(t, err)
	cfg.Verify = Verify{CABundle: "/etc/pki/ca.pem"}
	cfg.Timeout = 30 * time.Second

	require.NoError(t, SaveProfile(DefaultLabel, cfg, path))
	require.NoError(t, SaveProfile("other", &ServerConfig{URL: "http://other.example.com"}, path))

	got, err := GetProfile(DefaultLabel, path)
	require.NoError(t, err)
	assert.Equal(t, cfg.URL, got.URL)
	assert.Equal(t, cfg.Auth, got.Auth)
	assert.Equal(t, cfg.Verify, got.Verify)
	assert.Equal(t, 30*time.Second, got.Timeout)
	require.NotNil(t, got.Version)
	assert.Equal(t, "6.2", got.Version.Original())

	labels, err := ProfileLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "other"}, labels)

	require.NoError(t, DeleteProfile("other", path))
	labels, err = ProfileLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"default"}, labels)
}

func TestProfileStoreErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := GetProfile(DefaultLabel, path)
	assert.True(t, errors.Is(err, ErrProfileStoreNotFound))

	require.NoError(t, SaveProfile("a", &ServerConfig{URL: "https://a.example.com"}, path))

	_, err = GetProfile("b", path)
	assert.ErrorIs(t, err, ErrProfileNotFound)
	assert.ErrorIs(t, DeleteProfile("b", path), ErrProfileNotFound)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvURL, "https://sat.example.com")
	t.Setenv(EnvUsername, "admin")
	t.Setenv(EnvPassword, "changeme")
	t.Setenv(EnvToken, "")
	t.Setenv(EnvVerify, "false")
	t.Setenv(EnvVersion, "6.1")
	t.Setenv(EnvTimeout, "45s")
	t.Setenv(EnvDebug, "true")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.DebugEnabled)
	assert.Equal(t, "https://sat.example.com", cfg.Server.URL)
	assert.Equal(t, &Auth{Username: "admin", Password: "changeme"}, cfg.Server.Auth)
	assert.True(t, cfg.Server.Verify.Disabled)
	assert.Equal(t, 45*time.Second, cfg.Server.Timeout)
	assert.False(t, cfg.Server.VersionAtLeast("6.2"))
}

func TestLoadFromEnvCABundleAndMissingURL(t *testing.T) {
	t.Setenv(EnvURL, "")
	t.Setenv(EnvDebug, "")
	_, err := LoadFromEnv()
	assert.ErrorIs(t, err, ErrNoURL)

	t.Setenv(EnvURL, "https://sat.example.com")
	t.Setenv(EnvUsername, "")
	t.Setenv(EnvToken, "")
	t.Setenv(EnvVerify, "/etc/pki/ca.pem")
	t.Setenv(EnvVersion, "")
	t.Setenv(EnvTimeout, "")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Nil(t, cfg.Server.Auth)
	assert.Nil(t, cfg.Server.Version)
	assert.Equal(t, Verify{CABundle: "/etc/pki/ca.pem"}, cfg.Server.Verify)
}

func TestAuthFromEnv(t *testing.T) {
	t.Setenv(EnvUsername, "")
	t.Setenv(EnvToken, "")
	assert.Nil(t, AuthFromEnv())

	t.Setenv(EnvToken, "t0k3n")
	t.Setenv(EnvPassword, "")
	assert.Equal(t, &Auth{Token: "t0k3n"}, AuthFromEnv())
}
