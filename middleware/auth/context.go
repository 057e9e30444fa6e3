package auth

import "context"

type contextKey string

const (
	authUserKey   contextKey = "authUser"
	authMethodKey contextKey = "authMethod"
)

// GetAuthUser retrieves the authenticated user from the request context
func GetAuthUser(ctx context.Context) (*AuthUser, bool) {
	user, ok := ctx.Value(authUserKey).(*AuthUser)
	return user, ok
}

// GetAuthMethod returns how the request in ctx was authenticated
func GetAuthMethod(ctx context.Context) Method {
	m, _ := ctx.Value(authMethodKey).(Method)
	return m
}

// WithAuthUser stores an authenticated user and the method used in ctx
func WithAuthUser(ctx context.Context, user *AuthUser, method Method) context.Context {
	ctx = context.WithValue(ctx, authUserKey, user)
	return context.WithValue(ctx, authMethodKey, method)
}

// IsAuthenticated checks if the request context contains an authenticated user
func IsAuthenticated(ctx context.Context) bool {
	_, ok := GetAuthUser(ctx)
	return ok
}

// RequireAuth returns the authenticated user or panics if not authenticated.
// Only use it behind a middleware with RequireAuth set.
func RequireAuth(ctx context.Context) *AuthUser {
	user, ok := GetAuthUser(ctx)
	if !ok {
		panic("authentication required but no user found in context")
	}
	return user
}
