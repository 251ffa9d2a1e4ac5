package service

import (
	"context"
	"time"

	"lemon-sso/internal/model"
)

// UserStore is the persistence capability the user-facing services need.
// Lookups return model.ErrUserNotFound when nothing matches.
type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	FindByAccessToken(ctx context.Context, value string) (model.User, error)
	FindByRefreshToken(ctx context.Context, value string) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	// Create inserts a new user; a duplicate username yields model.ErrUsernameTaken.
	Create(ctx context.Context, user model.User) error
	// Save replaces the whole user document, token included.
	Save(ctx context.Context, user model.User) error
	// SwapToken replaces the user's pair with next (nil drops it) only if the
	// stored pair still has refresh value expectedRefresh ("" = no pair).
	// Otherwise it returns model.ErrTokenConflict.
	SwapToken(ctx context.Context, userID string, expectedRefresh string, next *model.TokenPair, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// ServiceStore persists registered services. Lookups return
// model.ErrServiceNotFound when nothing matches.
type ServiceStore interface {
	Create(ctx context.Context, svc model.RegisteredService) error
	FindByAPIKey(ctx context.Context, apiKey string) (model.RegisteredService, error)
	List(ctx context.Context) ([]model.RegisteredService, error)
	// Delete removes the service and returns what was removed.
	Delete(ctx context.Context, id string) (model.RegisteredService, error)
}

// ServiceCache caches API key resolution.
type ServiceCache interface {
	Get(ctx context.Context, apiKey string) (model.RegisteredService, bool, error)
	Set(ctx context.Context, svc model.RegisteredService, ttl time.Duration) error
	Delete(ctx context.Context, apiKey string) error
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext string, hash string) bool
}
