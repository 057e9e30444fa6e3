package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	yaml "gopkg.in/yaml.v3"
)

var ErrProfileStoreNotFound = errors.New("profile store is not found")
var ErrProfileNotFound = errors.New("profile is not found")

// DefaultLabel is the profile used when none is named
const DefaultLabel = "default"

// storeMu serialises writes to profile stores within the process
var storeMu sync.Mutex

// Profile is the on-disk form of a ServerConfig
type Profile struct {
	URL     string            `yaml:"url"`
	Auth    *Auth             `yaml:"auth,omitempty"`
	Verify  Verify            `yaml:"verify,omitempty"`
	Version string            `yaml:"version,omitempty"`
	Extra   map[string]string `yaml:"extra,omitempty"`
	Timeout time.Duration     `yaml:"timeout,omitempty"`
}

// ProfileStore is a map from label to Profile
type ProfileStore map[string]*Profile

// DefaultProfilePath returns $XDG_CONFIG_HOME/nailgun/server_configs.yaml
func DefaultProfilePath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "nailgun", "server_configs.yaml"), nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DefaultProfilePath()
}

// LoadProfileStore loads profile store from file
func LoadProfileStore(path string) (ProfileStore, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrProfileStoreNotFound, path)
		}
		return nil, err
	}
	store := ProfileStore{}
	if err := yaml.Unmarshal(buf, &store); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return store, nil
}

// Save writes the store to path, replacing the file atomically
func (ps ProfileStore) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.FileMode(0700)); err != nil {
		return err
	}
	buf, err := yaml.Marshal(ps)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".server_configs-*.yaml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ToProfile converts a ServerConfig to its stored form
func ToProfile(cfg *ServerConfig) *Profile {
	p := &Profile{URL: cfg.URL, Verify: cfg.Verify, Extra: cfg.Extra, Timeout: cfg.Timeout}
	if cfg.Auth != nil {
		a := *cfg.Auth
		p.Auth = &a
	}
	if cfg.Version != nil {
		p.Version = cfg.Version.Original()
	}
	return p
}

// ServerConfig converts a stored profile back
func (p *Profile) ServerConfig() (*ServerConfig, error) {
	cfg, err := NewServerConfig(p.URL, p.Auth, p.Version)
	if err != nil {
		return nil, err
	}
	cfg.Verify = p.Verify
	cfg.Extra = p.Extra
	cfg.Timeout = p.Timeout
	return cfg, nil
}

// SaveProfile stores cfg under label, replacing any previous profile.
// An empty path means DefaultProfilePath.
func SaveProfile(label string, cfg *ServerConfig, path string) error {
	path, err := resolvePath(path)
	if err != nil {
		return err
	}
	storeMu.Lock()
	defer storeMu.Unlock()

	store, err := LoadProfileStore(path)
	if errors.Is(err, ErrProfileStoreNotFound) {
		store = ProfileStore{}
	} else if err != nil {
		return err
	}
	store[label] = ToProfile(cfg)
	return store.Save(path)
}

// GetProfile reads the profile stored under label
func GetProfile(label, path string) (*ServerConfig, error) {
	path, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	store, err := LoadProfileStore(path)
	if err != nil {
		return nil, err
	}
	p, ok := store[label]
	if !ok || p == nil {
		return nil, fmt.Errorf("%w: %q in %s", ErrProfileNotFound, label, path)
	}
	return p.ServerConfig()
}

// DeleteProfile removes the profile stored under label
func DeleteProfile(label, path string) error {
	path, err := resolvePath(path)
	if err != nil {
		return err
	}
	storeMu.Lock()
	defer storeMu.Unlock()

	store, err := LoadProfileStore(path)
	if err != nil {
		return err
	}
	if _, ok := store[label]; !ok {
		return fmt.Errorf("%w: %q in %s", ErrProfileNotFound, label, path)
	}
	delete(store, label)
	return store.Save(path)
}

// ProfileLabels lists stored labels in sorted order
func ProfileLabels(path string) ([]string, error) {
	path, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	store, err := LoadProfileStore(path)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(store))
	for label := range store {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels, nil
}
