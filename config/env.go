package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

var (
	// ErrInvalidConfig is returned for unusable server settings
	ErrInvalidConfig = errors.New("invalid server configuration")
	// ErrNoURL is returned by LoadFromEnv when NAILGUN_URL is unset
	ErrNoURL = errors.New("NAILGUN_URL is not set")
)

// Environment variables read by LoadFromEnv
const (
	EnvURL      = "NAILGUN_URL"
	EnvUsername = "NAILGUN_USERNAME"
	EnvPassword = "NAILGUN_PASSWORD"
	EnvToken    = "NAILGUN_TOKEN"
	EnvVerify   = "NAILGUN_VERIFY"
	EnvVersion  = "NAILGUN_VERSION"
	EnvTimeout  = "NAILGUN_TIMEOUT"
	EnvDebug    = "NAILGUN_DEBUG"
)

// Config holds all client configuration
type Config struct {
	Server       *ServerConfig
	DebugEnabled bool
}

// LoadFromEnv loads configuration from environment variables.
// .env file is automatically loaded via autoload import
func LoadFromEnv() (*Config, error) {
	debugEnabled := getBoolEnvWithDefault(EnvDebug, false)

	rawURL := getEnvWithDefault(EnvURL, "")
	if rawURL == "" {
		return &Config{DebugEnabled: debugEnabled}, ErrNoURL
	}

	cfg, err := NewServerConfig(rawURL, AuthFromEnv(), getEnvWithDefault(EnvVersion, ""))
	if err != nil {
		return nil, err
	}
	cfg.Verify = parseVerify(getEnvWithDefault(EnvVerify, "true"))

	if raw := getEnvWithDefault(EnvTimeout, ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvTimeout, raw, err)
		}
		cfg.Timeout = d
	}

	if debugEnabled {
		log.Printf("[CONFIG] Loaded %s from environment", cfg)
	}

	return &Config{Server: cfg, DebugEnabled: debugEnabled}, nil
}

// AuthFromEnv reads credentials from NAILGUN_USERNAME, NAILGUN_PASSWORD and
// NAILGUN_TOKEN. It returns nil when neither a username nor a token is set.
func AuthFromEnv() *Auth {
	user, pass, token := getEnvWithDefault(EnvUsername, ""), os.Getenv(EnvPassword), getEnvWithDefault(EnvToken, "")
	if user == "" && token == "" {
		return nil
	}
	return &Auth{Username: user, Password: pass, Token: token}
}

// parseVerify accepts a boolean or the path of a CA bundle
func parseVerify(raw string) Verify {
	if b, err := strconv.ParseBool(raw); err == nil {
		return Verify{Disabled: !b}
	}
	return Verify{CABundle: raw}
}

// getEnvWithDefault gets an environment variable with a default fallback
func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnvWithDefault gets a boolean environment variable with a default fallback
func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
		log.Printf("[CONFIG] Invalid boolean value for %s='%s', using default %t", key, value, defaultValue)
	}
	return defaultValue
}
