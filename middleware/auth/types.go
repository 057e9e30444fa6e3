package auth

import (
	"context"
	"net/http"
)

// AuthUser represents an authenticated API user
type AuthUser struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// HasRole reports whether the user holds role
func (u *AuthUser) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Method names how a request was authenticated
type Method string

const (
	MethodNone   Method = ""
	MethodBasic  Method = "basic"
	MethodBearer Method = "bearer"
)

// AuthenticatorFunc validates a username and password
type AuthenticatorFunc func(ctx context.Context, username, password string) (*AuthUser, error)

// AuthConfig holds the complete authentication configuration
type AuthConfig struct {
	// Enabled determines if authentication is active
	Enabled bool

	// Realm is announced in the WWW-Authenticate header of 401 answers
	Realm string

	// Authenticator validates HTTP basic credentials
	Authenticator AuthenticatorFunc

	// TokenStore resolves bearer tokens. Bearer auth is refused when nil.
	TokenStore TokenStore

	// RequireAuth rejects anonymous requests. If false, credentials are
	// checked when present and anonymous requests pass through.
	RequireAuth bool
}

// TokenStore defines the interface for bearer token management
type TokenStore interface {
	// GetToken retrieves the user a token was issued to
	GetToken(ctx context.Context, token string) (*AuthUser, error)

	// CreateToken issues a new token for the user
	CreateToken(ctx context.Context, user *AuthUser) (token string, err error)

	// DeleteToken revokes a token
	DeleteToken(ctx context.Context, token string) error

	// CleanExpiredTokens removes expired tokens (called periodically)
	CleanExpiredTokens(ctx context.Context) error
}

// AuthMiddleware wraps HTTP handlers to provide authentication
type AuthMiddleware func(http.Handler) http.Handler
