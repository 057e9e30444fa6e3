package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/preslavrachev/nailgun/config"
)

var (
	// ErrUnknownUser is returned for a username nobody is configured under
	ErrUnknownUser = errors.New("user not found")
	// ErrBadPassword is returned when the password does not match
	ErrBadPassword = errors.New("invalid password")
)

const defaultRealm = "nailgun"

// BasicAuthUser represents a user configured for basic authentication
type BasicAuthUser struct {
	Username string
	Password string
	User     AuthUser
}

// WithBasicAuth creates an AuthConfig accepting HTTP basic credentials for
// users, and bearer tokens issued to them
func WithBasicAuth(users map[string]BasicAuthUser) AuthConfig {
	return WithBasicAuthAndTimeout(users, DefaultTokenTimeout)
}

// WithBasicAuthAndTimeout creates an AuthConfig with a custom token lifetime
func WithBasicAuthAndTimeout(users map[string]BasicAuthUser, tokenTimeout time.Duration) AuthConfig {
	return AuthConfig{
		Enabled:       true,
		Realm:         defaultRealm,
		Authenticator: basicAuthenticator(users),
		TokenStore:    NewMemoryTokenStoreWithTimeout(tokenTimeout),
		RequireAuth:   true,
	}
}

func basicAuthenticator(users map[string]BasicAuthUser) AuthenticatorFunc {
	return func(ctx context.Context, username, password string) (*AuthUser, error) {
		user, exists := users[username]
		if !exists {
			return nil, ErrUnknownUser
		}

		// Use constant time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(password), []byte(user.Password)) != 1 {
			return nil, ErrBadPassword
		}

		u := user.User
		return &u, nil
	}
}

// NewBasicAuthUser creates a BasicAuthUser with the provided details
func NewBasicAuthUser(username, password, id, email string, roles []string) BasicAuthUser {
	return BasicAuthUser{
		Username: username,
		Password: password,
		User: AuthUser{
			ID:       id,
			Username: username,
			Email:    email,
			Roles:    roles,
		},
	}
}

// WithBasicAuthFromConfig creates an AuthConfig for the single admin user
// described by NAILGUN_USERNAME and NAILGUN_PASSWORD. NAILGUN_TOKEN, when
// set, is accepted as a bearer token for the same user. Without credentials
// in the environment authentication is disabled.
func WithBasicAuthFromConfig() AuthConfig {
	creds := config.AuthFromEnv()
	if creds == nil {
		return WithNoAuth()
	}

	username := creds.Username
	if username == "" {
		username = "admin"
	}
	admin := NewBasicAuthUser(username, creds.Password, "1", username+"@example.com", []string{"admin"})
	cfg := WithBasicAuth(map[string]BasicAuthUser{username: admin})

	if creds.Token != "" {
		if store, ok := cfg.TokenStore.(*MemoryTokenStore); ok {
			store.AddToken(creds.Token, &admin.User)
		}
	}
	return cfg
}
