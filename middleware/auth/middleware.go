package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoCredentials is returned when a request carries no Authorization header
	ErrNoCredentials = errors.New("no credentials")
	// ErrUnsupportedScheme is returned for Authorization schemes other than Basic and Bearer
	ErrUnsupportedScheme = errors.New("unsupported authorization scheme")
)

// Authenticate resolves the user behind the Authorization header of r.
// Bearer tokens are looked up in the token store, basic credentials are
// checked by the authenticator.
func Authenticate(r *http.Request, authConfig *AuthConfig) (*AuthUser, Method, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, MethodNone, ErrNoCredentials
	}

	if token, ok := cutScheme(header, "Bearer"); ok {
		if authConfig.TokenStore == nil {
			return nil, MethodBearer, ErrUnsupportedScheme
		}
		user, err := authConfig.TokenStore.GetToken(r.Context(), token)
		return user, MethodBearer, err
	}

	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, MethodNone, ErrUnsupportedScheme
	}
	if authConfig.Authenticator == nil {
		return nil, MethodBasic, ErrUnsupportedScheme
	}
	user, err := authConfig.Authenticator(r.Context(), username, password)
	return user, MethodBasic, err
}

func cutScheme(header, scheme string) (string, bool) {
	if len(header) <= len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) || header[len(scheme)] != ' ' {
		return "", false
	}
	return strings.TrimSpace(header[len(scheme)+1:]), true
}

// CreateAuthMiddleware creates HTTP middleware for authentication. Failed
// or, when required, missing credentials are answered with 401 and a JSON
// error body.
func CreateAuthMiddleware(authConfig *AuthConfig) AuthMiddleware {
	if authConfig == nil || !authConfig.Enabled {
		// Return no-op middleware if auth is disabled
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, method, err := Authenticate(r, authConfig)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(WithAuthUser(r.Context(), user, method)))
			case errors.Is(err, ErrNoCredentials) && !authConfig.RequireAuth:
				next.ServeHTTP(w, r)
			default:
				WriteUnauthorized(w, authConfig, err)
			}
		})
	}
}

// WriteUnauthorized answers 401 the way the API reports errors
func WriteUnauthorized(w http.ResponseWriter, authConfig *AuthConfig, err error) {
	realm := authConfig.Realm
	if realm == "" {
		realm = defaultRealm
	}
	w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", realm))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": "Unable to authenticate user: " + err.Error()},
	})
}
