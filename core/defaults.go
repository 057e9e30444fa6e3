package core

import (
	"sync"
	"time"

	"github.com/preslavrachev/nailgun/config"
)

// Task polling defaults
const (
	DefaultTaskTimeout = 300 * time.Second
	DefaultPollRate    = 5 * time.Second
)

// Defaults is process-wide ambient configuration: the fallback server, the
// create-missing policy and task polling limits. Values are read at call
// time, so changing them affects every caller sharing the provider,
// including concurrent ones.
type Defaults struct {
	mu            sync.RWMutex
	server        *config.ServerConfig
	createMissing *bool
	taskTimeout   time.Duration
	pollRate      time.Duration
	loader        func() (*config.ServerConfig, error)
}

// Global is the provider used unless an engine is given another one
var Global = NewDefaults()

// NewDefaults creates a provider that falls back to the "default" profile
func NewDefaults() *Defaults {
	return &Defaults{
		taskTimeout: DefaultTaskTimeout,
		pollRate:    DefaultPollRate,
		loader: func() (*config.ServerConfig, error) {
			return config.GetProfile(config.DefaultLabel, "")
		},
	}
}

// ServerConfig returns the configured fallback server, or loads one
func (d *Defaults) ServerConfig() (*config.ServerConfig, error) {
	d.mu.RLock()
	server, loader := d.server, d.loader
	d.mu.RUnlock()
	if server != nil {
		return server, nil
	}
	if loader == nil {
		return nil, ErrNoServerConfig
	}
	return loader()
}

// SetServerConfig sets the fallback server
func (d *Defaults) SetServerConfig(cfg *config.ServerConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.server = cfg
}

// SetLoader replaces the function used when no server is set
func (d *Defaults) SetLoader(loader func() (*config.ServerConfig, error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loader = loader
}

// CreateMissing returns the process-wide create-missing policy; nil means undecided
func (d *Defaults) CreateMissing() *bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.createMissing == nil {
		return nil
	}
	v := *d.createMissing
	return &v
}

// SetCreateMissing sets the create-missing policy. Nil restores the heuristic.
func (d *Defaults) SetCreateMissing(v *bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if v == nil {
		d.createMissing = nil
		return
	}
	b := *v
	d.createMissing = &b
}

func (d *Defaults) TaskTimeout() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.taskTimeout
}

func (d *Defaults) SetTaskTimeout(timeout time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.taskTimeout = timeout
}

func (d *Defaults) PollRate() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pollRate
}

func (d *Defaults) SetPollRate(rate time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pollRate = rate
}

// CallWithTimeout runs fn with the task timeout of d set to timeout and
// restores the previous value afterwards, even if fn panics. Other callers
// of d observe the override while fn runs.
func CallWithTimeout(d *Defaults, timeout time.Duration, fn func() error) error {
	previous := d.TaskTimeout()
	d.SetTaskTimeout(timeout)
	defer d.SetTaskTimeout(previous)
	return fn()
}

// Bool returns a pointer to b, for option fields
func Bool(b bool) *bool {
	return &b
}
