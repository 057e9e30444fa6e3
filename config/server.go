package config

import (
	"fmt"
	"maps"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
)

// Auth holds credentials. Token takes precedence over username/password.
type Auth struct {
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
	Token    string `yaml:"token,omitempty" json:"token,omitempty"`
}

// Verify is the TLS verification policy. The zero value verifies against
// the system roots.
type Verify struct {
	Disabled bool   `yaml:"disabled,omitempty" json:"disabled,omitempty"`
	CABundle string `yaml:"ca_bundle,omitempty" json:"ca_bundle,omitempty"`
}

// ServerConfig describes how to reach one Satellite server
type ServerConfig struct {
	URL     string
	Auth    *Auth
	Verify  Verify
	Version *version.Version // nil means latest
	Extra   map[string]string
	Timeout time.Duration
}

// ClientOptions holds what a transport needs to talk to a server
type ClientOptions struct {
	Auth    *Auth
	Verify  Verify
	Headers map[string]string
	Timeout time.Duration
}

// NewServerConfig builds a config for url. An empty ver means latest.
func NewServerConfig(rawURL string, auth *Auth, ver string) (*ServerConfig, error) {
	cfg := &ServerConfig{URL: strings.TrimRight(rawURL, "/"), Auth: auth}
	if err := cfg.SetVersion(ver); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetVersion parses and stores the server version. An empty string clears it.
func (c *ServerConfig) SetVersion(ver string) error {
	if ver == "" {
		c.Version = nil
		return nil
	}
	v, err := version.NewVersion(ver)
	if err != nil {
		return fmt.Errorf("invalid server version %q: %w", ver, err)
	}
	c.Version = v
	return nil
}

// Validate checks the URL is absolute
func (c *ServerConfig) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: url is not absolute: %q", ErrInvalidConfig, c.URL)
	}
	return nil
}

// VersionAtLeast reports whether the server runs at least ver. An unknown
// version is treated as the latest.
func (c *ServerConfig) VersionAtLeast(ver string) bool {
	if c.Version == nil {
		return true
	}
	v, err := version.NewVersion(ver)
	if err != nil {
		return false
	}
	return c.Version.GreaterThanOrEqual(v)
}

// ClientOptions returns the transport options for this server. Extra headers
// are merged over the configured ones.
func (c *ServerConfig) ClientOptions(extra map[string]string) ClientOptions {
	headers := make(map[string]string, len(c.Extra)+len(extra))
	maps.Copy(headers, c.Extra)
	maps.Copy(headers, extra)
	var auth *Auth
	if c.Auth != nil {
		a := *c.Auth
		auth = &a
	}
	return ClientOptions{
		Auth:    auth,
		Verify:  c.Verify,
		Headers: headers,
		Timeout: c.Timeout,
	}
}

// Clone returns a deep copy
func (c *ServerConfig) Clone() *ServerConfig {
	if c == nil {
		return nil
	}
	out := *c
	if c.Auth != nil {
		a := *c.Auth
		out.Auth = &a
	}
	out.Extra = maps.Clone(c.Extra)
	return &out
}

func (c *ServerConfig) String() string {
	ver := "latest"
	if c.Version != nil {
		ver = c.Version.String()
	}
	user := ""
	if c.Auth != nil {
		user = c.Auth.Username
	}
	return fmt.Sprintf("ServerConfig(url=%s, user=%s, version=%s, verify=%t)", c.URL, user, ver, !c.Verify.Disabled)
}
