package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryTokenStore(t *testing.T) {
	store := NewMemoryTokenStore()
	defer store.Close()
	ctx := context.Background()

	user := &AuthUser{
		ID:       "7",
		Username: "testuser",
		Email:    "test@example.com",
		Roles:    []string{"viewer"},
	}

	token, err := store.CreateToken(ctx, user)
	if err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("Expected a 64 character token, got %q", token)
	}

	got, err := store.GetToken(ctx, token)
	if err != nil {
		t.Fatalf("Failed to get token: %v", err)
	}
	if got.Username != user.Username {
		t.Errorf("Expected username '%s', got '%s'", user.Username, got.Username)
	}

	if _, err := store.GetToken(ctx, "nonexistent"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Expected ErrTokenNotFound, got %v", err)
	}

	if err := store.DeleteToken(ctx, token); err != nil {
		t.Errorf("Failed to delete token: %v", err)
	}
	if _, err := store.GetToken(ctx, token); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Expected ErrTokenNotFound after deletion, got %v", err)
	}
}

func TestMemoryTokenStoreExpiry(t *testing.T) {
	store := NewMemoryTokenStoreWithTimeout(time.Minute)
	defer store.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return now }

	user := &AuthUser{ID: "1", Username: "admin"}
	issued, _ := store.CreateToken(ctx, user)
	other, _ := store.CreateToken(ctx, user)
	store.AddToken("fixed", user)

	if _, err := store.GetToken(ctx, issued); err != nil {
		t.Errorf("Token should be valid right after creation: %v", err)
	}

	now = now.Add(2 * time.Minute)

	if _, err := store.GetToken(ctx, issued); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Expected ErrTokenExpired, got %v", err)
	}
	if _, err := store.GetToken(ctx, "fixed"); err != nil {
		t.Errorf("Fixed tokens never expire, got %v", err)
	}

	if count := store.TokenCount(); count != 2 {
		t.Errorf("Expected 2 tokens before cleanup, got %d", count)
	}
	if err := store.CleanExpiredTokens(ctx); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if count := store.TokenCount(); count != 1 {
		t.Errorf("Expected 1 token after cleanup, got %d", count)
	}
	if _, err := store.GetToken(ctx, other); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Expected ErrTokenNotFound after cleanup, got %v", err)
	}
}

func TestMemoryTokenStoreCloseTwice(t *testing.T) {
	store := NewMemoryTokenStore()
	store.Close()
	store.Close()
}
