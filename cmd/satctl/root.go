package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	httpadapter "github.com/preslavrachev/nailgun/adapters/http"
	"github.com/preslavrachev/nailgun/config"
	"github.com/preslavrachev/nailgun/core"
	"github.com/preslavrachev/nailgun/entities"
)

// Settings keys, shared by flags, SATCTL_* variables and the config file
const (
	keyConfig        = "config"
	keyProfile       = "profile"
	keyProfilesFile  = "profiles-file"
	keyURL           = "url"
	keyUser          = "user"
	keyPassword      = "password"
	keyToken         = "token"
	keyInsecure      = "insecure"
	keyCABundle      = "ca-bundle"
	keyServerVersion = "server-version"
	keyTimeout       = "timeout"
	keyDebug         = "debug"
)

const envPrefix = "SATCTL"

// app is what every command shares: settings, the catalog and the engine
type app struct {
	v        *viper.Viper
	registry *core.Registry
	out      io.Writer

	// transport is used instead of the network when set
	transport core.Transport
	// clock is used instead of the system clock when set
	clock core.Clock
}

func newApp() *app {
	return &app{
		v:        viper.New(),
		registry: entities.Catalog,
		out:      os.Stdout,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "satctl",
		Short: "satctl manages Satellite entities",
		Long: `satctl creates, reads, updates, deletes and searches entities on a
Satellite server, and waits for the tasks it starts.

The server comes from --profile, --url, SATCTL_* variables, a config file,
or the NAILGUN_* variables, in that order.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadSettings()
		},
	}
	root.SetOut(a.out)

	flags := root.PersistentFlags()
	flags.String(keyConfig, "", "config file (yaml, toml or json)")
	flags.String(keyProfile, "", "saved server profile to use")
	flags.String(keyProfilesFile, "", "profile store (default: $XDG_CONFIG_HOME/nailgun/server_configs.yaml)")
	flags.String(keyURL, "", "server URL")
	flags.String(keyUser, "", "username")
	flags.String(keyPassword, "", "password")
	flags.String(keyToken, "", "bearer token, used instead of the password")
	flags.Bool(keyInsecure, false, "skip TLS certificate verification")
	flags.String(keyCABundle, "", "CA bundle to verify the server with")
	flags.String(keyServerVersion, "", "server version, e.g. 6.15 (default: latest)")
	flags.Duration(keyTimeout, 0, "request timeout")
	flags.Bool(keyDebug, false, "log every request")
	_ = a.v.BindPFlags(flags)

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		newProfileCmd(a),
		newKindsCmd(a),
		newReadCmd(a),
		newSearchCmd(a),
		newCreateCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newInvokeCmd(a),
		newTaskCmd(a),
	)
	return root
}

// loadSettings reads the config file named by --config or SATCTL_CONFIG,
// if any
func (a *app) loadSettings() error {
	path := a.v.GetString(keyConfig)
	if path == "" {
		return nil
	}
	a.v.SetConfigFile(path)
	if err := a.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// serverConfig resolves the server to talk to
func (a *app) serverConfig() (*config.ServerConfig, error) {
	var cfg *config.ServerConfig
	switch {
	case a.v.GetString(keyProfile) != "":
		var err error
		cfg, err = config.GetProfile(a.v.GetString(keyProfile), a.v.GetString(keyProfilesFile))
		if err != nil {
			return nil, err
		}
	case a.v.GetString(keyURL) != "":
		var err error
		cfg, err = config.NewServerConfig(a.v.GetString(keyURL), nil, "")
		if err != nil {
			return nil, err
		}
	default:
		env, err := config.LoadFromEnv()
		if errors.Is(err, config.ErrNoURL) {
			return nil, fmt.Errorf("no server: use --profile, --url, SATCTL_URL or %s", config.EnvURL)
		}
		if err != nil {
			return nil, err
		}
		cfg = env.Server
	}
	return a.applyOverrides(cfg)
}

// applyOverrides lays explicit settings over a profile or environment config
func (a *app) applyOverrides(cfg *config.ServerConfig) (*config.ServerConfig, error) {
	cfg = cfg.Clone()
	if user, token := a.v.GetString(keyUser), a.v.GetString(keyToken); user != "" || token != "" {
		auth := &config.Auth{}
		if cfg.Auth != nil {
			*auth = *cfg.Auth
		}
		if user != "" {
			auth.Username = user
			auth.Password = a.v.GetString(keyPassword)
		}
		if token != "" {
			auth.Token = token
		}
		cfg.Auth = auth
	}
	if a.v.GetBool(keyInsecure) {
		cfg.Verify = config.Verify{Disabled: true}
	} else if bundle := a.v.GetString(keyCABundle); bundle != "" {
		cfg.Verify = config.Verify{CABundle: bundle}
	}
	if ver := a.v.GetString(keyServerVersion); ver != "" {
		if err := cfg.SetVersion(ver); err != nil {
			return nil, err
		}
	}
	if d := a.v.GetDuration(keyTimeout); d > 0 {
		cfg.Timeout = d
	}
	return cfg, nil
}

// engine builds an engine for cfg
func (a *app) engine(cfg *config.ServerConfig) *core.Engine {
	transport := a.transport
	if transport == nil {
		transport = httpadapter.NewWithDebug(a.v.GetBool(keyDebug))
	}
	defaults := core.NewDefaults()
	defaults.SetServerConfig(cfg)

	opts := []core.EngineOption{core.WithDefaults(defaults)}
	if a.clock != nil {
		opts = append(opts, core.WithClock(a.clock))
	}
	return core.NewEngine(transport, opts...)
}

// connect resolves the server and builds an engine for it
func (a *app) connect() (*core.Engine, *config.ServerConfig, error) {
	cfg, err := a.serverConfig()
	if err != nil {
		return nil, nil, err
	}
	return a.engine(cfg), cfg, nil
}

func (a *app) kind(name string) (*core.Kind, error) {
	return a.registry.Lookup(name)
}

// pollFlags adds the task polling flags to cmd
func pollFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("poll-timeout", 0, "how long to wait for a task (default: 300s)")
	cmd.Flags().Duration("poll-rate", 0, "delay between task polls (default: 5s)")
	cmd.Flags().Bool("allow-failure", false, "do not fail when the task does not succeed")
}

func pollOptions(cmd *cobra.Command) core.PollOptions {
	timeout, _ := cmd.Flags().GetDuration("poll-timeout")
	rate, _ := cmd.Flags().GetDuration("poll-rate")
	allow, _ := cmd.Flags().GetBool("allow-failure")
	return core.PollOptions{Timeout: timeout, PollRate: rate, AllowFailure: allow}
}
