package auth

// WithNoAuth creates an AuthConfig that disables authentication. Every
// request is served anonymously.
func WithNoAuth() AuthConfig {
	return AuthConfig{
		Enabled:     false,
		Realm:       defaultRealm,
		RequireAuth: false,
	}
}
