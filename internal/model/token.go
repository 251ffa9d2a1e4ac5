package model

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

const (
	DefaultAccessLifetime  = 10 * time.Hour
	DefaultRefreshLifetime = 10*time.Hour + 30*time.Minute

	tokenEntropyBytes = 128
)

// TokenPair is one access/refresh pair. It is a value type: callers replace
// a user's pair wholesale and never mutate a stored one.
type TokenPair struct {
	AccessValue     string        `json:"access_value"`
	RefreshValue    string        `json:"refresh_value"`
	AccessLifetime  time.Duration `json:"access_lifetime"`
	RefreshLifetime time.Duration `json:"refresh_lifetime"`
	Valid           bool          `json:"is_valid"`
	CreatedAt       time.Time     `json:"created"`
}

// TokenGenerator returns a fresh opaque token value.
type TokenGenerator func() (string, error)

// NewTokenValue returns 128 random bytes encoded as unpadded URL-safe base64.
func NewTokenValue() (string, error) {
	buf := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random token bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewTokenPair mints a valid pair created at now.
func NewTokenPair(gen TokenGenerator, now time.Time, accessLifetime time.Duration, refreshLifetime time.Duration) (TokenPair, error) {
	if gen == nil {
		gen = NewTokenValue
	}

	access, err := gen()
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := gen()
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessValue:     access,
		RefreshValue:    refresh,
		AccessLifetime:  accessLifetime,
		RefreshLifetime: refreshLifetime,
		Valid:           true,
		CreatedAt:       now.UTC(),
	}, nil
}

func (t TokenPair) AccessExpiresAt() time.Time {
	return t.CreatedAt.Add(t.AccessLifetime)
}

func (t TokenPair) RefreshExpiresAt() time.Time {
	return t.CreatedAt.Add(t.RefreshLifetime)
}

// IsAccessValid reports whether the access window is open and the pair was
// never invalidated.
func (t TokenPair) IsAccessValid(now time.Time) bool {
	return t.Valid && !now.After(t.AccessExpiresAt())
}

// IsRefreshValid ignores the Valid flag on purpose: an invalidated pair can
// still be refreshed while its refresh window is open.
func (t TokenPair) IsRefreshValid(now time.Time) bool {
	return !now.After(t.RefreshExpiresAt())
}

// Invalidated returns a copy of the pair with Valid cleared.
func (t TokenPair) Invalidated() TokenPair {
	t.Valid = false
	return t
}
