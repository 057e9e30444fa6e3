package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

var (
	// ErrTokenNotFound is returned when a token is unknown or revoked
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenExpired is returned when a token has expired
	ErrTokenExpired = errors.New("token expired")
)

// DefaultTokenTimeout is how long issued tokens stay valid
const DefaultTokenTimeout = 24 * time.Hour

// TokenData holds what a token was issued for
type TokenData struct {
	User      *AuthUser
	CreatedAt time.Time
	ExpiresAt time.Time // zero never expires
}

// IsExpired checks if the token has expired at now
func (d *TokenData) IsExpired(now time.Time) bool {
	return !d.ExpiresAt.IsZero() && now.After(d.ExpiresAt)
}

// MemoryTokenStore implements TokenStore in memory. Suitable for the fake
// server and tests, not for several processes.
type MemoryTokenStore struct {
	tokens map[string]*TokenData
	mutex  sync.RWMutex
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once

	// TokenTimeout defines how long issued tokens last
	TokenTimeout time.Duration
}

// NewMemoryTokenStore creates a new in-memory token store
func NewMemoryTokenStore() *MemoryTokenStore {
	return NewMemoryTokenStoreWithTimeout(DefaultTokenTimeout)
}

// NewMemoryTokenStoreWithTimeout creates a token store with a custom timeout
// and starts the hourly cleanup of expired tokens. Close stops it.
func NewMemoryTokenStoreWithTimeout(timeout time.Duration) *MemoryTokenStore {
	store := &MemoryTokenStore{
		tokens:       make(map[string]*TokenData),
		now:          time.Now,
		stop:         make(chan struct{}),
		TokenTimeout: timeout,
	}
	go store.cleanupLoop(time.Hour)
	return store
}

// AddToken registers a fixed token that never expires, such as one read
// from configuration
func (m *MemoryTokenStore) AddToken(token string, user *AuthUser) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.tokens[token] = &TokenData{User: user, CreatedAt: m.now()}
}

// GetToken retrieves the user a token was issued to
func (m *MemoryTokenStore) GetToken(ctx context.Context, token string) (*AuthUser, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	data, exists := m.tokens[token]
	if !exists {
		return nil, ErrTokenNotFound
	}
	if data.IsExpired(m.now()) {
		delete(m.tokens, token)
		return nil, ErrTokenExpired
	}
	return data.User, nil
}

// CreateToken issues a new token for the user
func (m *MemoryTokenStore) CreateToken(ctx context.Context, user *AuthUser) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	now := m.now()
	m.mutex.Lock()
	m.tokens[token] = &TokenData{User: user, CreatedAt: now, ExpiresAt: now.Add(m.TokenTimeout)}
	m.mutex.Unlock()

	return token, nil
}

// DeleteToken revokes a token
func (m *MemoryTokenStore) DeleteToken(ctx context.Context, token string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.tokens, token)
	return nil
}

// CleanExpiredTokens removes expired tokens
func (m *MemoryTokenStore) CleanExpiredTokens(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.now()
	for token, data := range m.tokens {
		if data.IsExpired(now) {
			delete(m.tokens, token)
		}
	}
	return nil
}

// TokenCount returns the number of stored tokens, expired ones included
func (m *MemoryTokenStore) TokenCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.tokens)
}

// Close stops the cleanup goroutine
func (m *MemoryTokenStore) Close() {
	m.once.Do(func() { close(m.stop) })
}

func (m *MemoryTokenStore) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = m.CleanExpiredTokens(context.Background())
		case <-m.stop:
			return
		}
	}
}

// generateToken creates a cryptographically secure random token
func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
