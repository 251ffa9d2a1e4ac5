package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"lemon-sso/internal/model"
	"lemon-sso/internal/repository/memory"
	"lemon-sso/internal/security"
	"lemon-sso/pkg/apierror"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// sequence yields predictable token values: A, R, A2, R2, A3, R3, ...
func sequence() model.TokenGenerator {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		round := (n + 1) / 2
		prefix := "A"
		if n%2 == 0 {
			prefix = "R"
		}
		if round == 1 {
			return prefix, nil
		}
		return fmt.Sprintf("%s%d", prefix, round), nil
	}
}

type authFixture struct {
	service *AuthService
	store   *memory.UserStore
	clock   *fakeClock
	hasher  *security.BcryptHasher
}

func newAuthFixture(t *testing.T, policy TokenPolicy) *authFixture {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.NewUserStore()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	svc := NewAuthService(store, hasher, policy, WithClock(clock.Now), WithTokenGenerator(sequence()))

	return &authFixture{service: svc, store: store, clock: clock, hasher: hasher}
}

func (f *authFixture) addUser(t *testing.T, id string, username string, password string) {
	t.Helper()

	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	now := f.clock.Now()
	require.NoError(t, f.store.Create(context.Background(), model.User{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()

	var apiErr *apierror.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	require.Equal(t, status, apiErr.Status)
}

func TestAliceScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newAuthFixture(t, DefaultTokenPolicy())
	f.addUser(t, "u-alice", "alice", "Secret1!")

	signedIn, err := f.service.SignIn(ctx, "alice", "Secret1!")
	require.NoError(t, err)
	assert.Equal(t, "A", signedIn.Auth.Token)
	assert.Equal(t, "R", signedIn.Auth.Refresh)
	assert.Equal(t, "alice", signedIn.User.Username)

	user, err := f.service.Verify(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "u-alice", user.ID)

	refreshed, err := f.service.Refresh(ctx, "R")
	require.NoError(t, err)
	assert.Equal(t, "A2", refreshed.Auth.Token)
	assert.Equal(t, "R2", refreshed.Auth.Refresh)
	assert.NotEqual(t, signedIn.Auth.Token, refreshed.Auth.Token)

	_, err = f.service.Refresh(ctx, "R")
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestSignIn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("wrong password and unknown user fail identically", func(t *testing.T) {
		f := newAuthFixture(t, DefaultTokenPolicy())
		f.addUser(t, "u1", "alice", "Secret1!")

		_, wrongPassword := f.service.SignIn(ctx, "alice", "Secret2!")
		_, unknownUser := f.service.SignIn(ctx, "mallory", "Secret1!")

		requireStatus(t, wrongPassword, http.StatusUnauthorized)
		requireStatus(t, unknownUser, http.StatusUnauthorized)
		assert.Equal(t, wrongPassword.Error(), unknownUser.Error())

		stored, err := f.store.FindByID(ctx, "u1")
		require.NoError(t, err)
		assert.Nil(t, stored.Token, "failed sign-in must not mint a pair")
	})

	t.Run("username match is case-sensitive", func(t *testing.T) {
		f := newAuthFixture(t, DefaultTokenPolicy())
		f.addUser(t, "u1", "alice", "Secret1!")

		_, err := f.service.SignIn(ctx, "Alice", "Secret1!")
		requireStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("reuses a still valid pair by default", func(t *testing.T) {
		f := newAuthFixture(t, DefaultTokenPolicy())
		f.addUser(t, "u1", "alice", "Secret1!")

		first, err := f.service.SignIn(ctx, "alice", "Secret1!")
		require.NoError(t, err)
		f.clock.Advance(time.Hour)
		second, err := f.service.SignIn(ctx, "alice", "Secret1!")
		require.NoError(t, err)

		assert.Equal(t, first.Auth, second.Auth)
	})

	t.Run("always rotates when reuse is disabled", func(t *testing.T) {
		policy := DefaultTokenPolicy()
		policy.ReuseOnSignIn = false
		f := newAuthFixture(t, policy)
		f.addUser(t, "u1", "alice", "Secret1!")

		first, err := f.service.SignIn(ctx, "alice", "Secret1!")
		require.NoError(t, err)
		second, err := f.service.SignIn(ctx, "alice", "Secret1!")
		require.NoError(t, err)

		assert.NotEqual(t, first.Auth.Token, second.Auth.Token)
		_, err = f.service.Verify(ctx, first.Auth.Token)
		requireStatus(t, err, http.StatusForbidden)
	})

	t.Run("mints a new pair once the access window closed", func(t *testing.T) {
		f := newAuthFixture(t, DefaultTokenPolicy())
		f.addUser(t, "u1", "alice", "Secret1!")

		first, err := f.service.SignIn(ctx, "alice", "Secret1!")
		require.NoError(t, err)
		f.clock.Advance(model.DefaultAccessLifetime + time.Second)
		second, err := f.service.SignIn(ctx, "alice", "Secret1!")
		require.NoError(t, err)

		assert.NotEqual(t, first.Auth.Token, second.Auth.Token)
		assert.NotEqual(t, first.Auth.Refresh, second.Auth.Refresh)
	})

	t.Run("mints a new pair when the old one was invalidated", func(t *testing.T) {
		f := newAuthFixture(t, DefaultTokenPolicy())
		f.addUser(t, "u1", "alice", "Secret1!")

		first, err := f.service.SignIn(ctx, "alice", "Secret1!")
		require.NoError(t, err)
		stored, err := f.store.FindByID(ctx, "u1")
		require.NoError(t, err)
		invalid := stored.Token.Invalidated()
		require.NoError(t, f.store.SwapToken(ctx, "u1", first.Auth.Refresh, &invalid, f.clock.Now()))

		second, err := f.service.SignIn(ctx, "alice", "Secret1!")
		require.NoError(t, err)
		assert.NotEqual(t, first.Auth.Token, second.Auth.Token)
	})

	t.Run("store failures collapse to unauthorized", func(t *testing.T) {
		store := &failingUserStore{UserStore: memory.NewUserStore(), err: errors.New("connection reset")}
		svc := NewAuthService(store, security.NewBcryptHasher(bcrypt.MinCost), DefaultTokenPolicy())

		_, err := svc.SignIn(ctx, "alice", "Secret1!")
		requireStatus(t, err, http.StatusUnauthorized)
		assert.NotContains(t, err.Error(), "connection reset")
	})

	t.Run("generator failures collapse to unauthorized", func(t *testing.T) {
		f := newAuthFixture(t, DefaultTokenPolicy())
		f.addUser(t, "u1", "alice", "Secret1!")
		f.service.generate = func() (string, error) { return "", errors.New("no entropy") }

		_, err := f.service.SignIn(ctx, "alice", "Secret1!")
		requireStatus(t, err, http.StatusUnauthorized)
	})
}

func TestVerify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("repeated verify does not mutate the pair", func(t *testing.T) {
		f := newAuthFixture(t, DefaultTokenPolicy())
		f.addUser(t, "u1", "alice", "Secret1!")
		signedIn, err := f.service.SignIn(ctx, "alice", "Secret1!")
		require.NoError(t, err)

		before, err := f.store.FindByID(ctx, "u1")
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			user, err := f.service.Verify(ctx, signedIn.Auth.Token)
			require.NoError(t, err)
			assert.Equal(t, "u1", user.ID)
		}

		after, err := f.store.FindByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("expired access token is refused and invalidated", func(t *testing.T) {
		f := newAuthFixture(t, DefaultTokenPolicy())
		f.addUser(t, "u1", "alice", "Secret1!")
		signedIn, err := f.service.SignIn(ctx, "alice", "Secret1!")
		require.NoError(t, err)

		f.clock.Advance(model.DefaultAccessLifetime + time.Second)
		_, err = f.service.Verify(ctx, signedIn.Auth.Token)
		requireStatus(t, err, http.StatusForbidden)

		stored, err := f.store.FindByID(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, stored.Token)
		assert.False(t, stored.Token.Valid)
		assert.Equal(t, signedIn.Auth.Refresh, stored.Token.RefreshValue)
	})

	t.Run("invalidated pair can still be refreshed inside its window", func(t *testing.T) {
		f := newAuthFixture(t, DefaultTokenPolicy())
		f.addUser(t, "u1", "alice", "Secret1!")
		signedIn, err := f.service.SignIn(ctx, "alice", "Secret1!")
		require.NoError(t, err)

		f.clock.Advance(model.DefaultAccessLifetime + time.Minute)
		_, err = f.service.Verify(ctx, signedIn.Auth.Token)
		requireStatus(t, err, http.StatusForbidden)

		refreshed, err := f.service.Refresh(ctx, signedIn.Auth.Refresh)
		require.NoError(t, err)
		_, err = f.service.Verify(ctx, refreshed.Auth.Token)
		require.NoError(t, err)
	})

	t.Run("unknown token is forbidden", func(t *testing.T) {
		f := newAuthFixture(t, DefaultTokenPolicy())
		_, err := f.service.Verify(ctx, "nope")
		requireStatus(t, err, http.StatusForbidden)
	})
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("expired refresh window drops the pair", func(t *testing.T) {
		f := newAuthFixture(t, DefaultTokenPolicy())
		f.addUser(t, "u1", "alice", "Secret1!")
		signedIn, err := f.service.SignIn(ctx, "alice", "Secret1!")
		require.NoError(t, err)

		f.clock.Advance(model.DefaultRefreshLifetime + time.Second)
		_, err = f.service.Refresh(ctx, signedIn.Auth.Refresh)
		requireStatus(t, err, http.StatusUnauthorized)

		stored, err := f.store.FindByID(ctx, "u1")
		require.NoError(t, err)
		assert.Nil(t, stored.Token)
	})

	t.Run("unknown refresh value is unauthorized", func(t *testing.T) {
		f := newAuthFixture(t, DefaultTokenPolicy())
		_, err := f.service.Refresh(ctx, "nope")
		requireStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("old access token dies with rotation", func(t *testing.T) {
		f := newAuthFixture(t, DefaultTokenPolicy())
		f.addUser(t, "u1", "alice", "Secret1!")
		signedIn, err := f.service.SignIn(ctx, "alice", "Secret1!")
		require.NoError(t, err)

		_, err = f.service.Refresh(ctx, signedIn.Auth.Refresh)
		require.NoError(t, err)
		_, err = f.service.Verify(ctx, signedIn.Auth.Token)
		requireStatus(t, err, http.StatusForbidden)
	})

	t.Run("concurrent refreshes spend the value once", func(t *testing.T) {
		f := newAuthFixture(t, DefaultTokenPolicy())
		f.service.generate = model.NewTokenValue
		f.addUser(t, "u1", "alice", "Secret1!")
		signedIn, err := f.service.SignIn(ctx, "alice", "Secret1!")
		require.NoError(t, err)

		const callers = 8
		var wg sync.WaitGroup
		results := make(chan error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.service.Refresh(ctx, signedIn.Auth.Refresh)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		succeeded := 0
		for err := range results {
			if err == nil {
				succeeded++
			}
		}
		assert.Equal(t, 1, succeeded)
	})
}

func TestSignOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("drops the pair so neither token works", func(t *testing.T) {
		f := newAuthFixture(t, DefaultTokenPolicy())
		f.addUser(t, "u1", "alice", "Secret1!")
		signedIn, err := f.service.SignIn(ctx, "alice", "Secret1!")
		require.NoError(t, err)

		require.NoError(t, f.service.SignOut(ctx, signedIn.Auth.Token))

		stored, err := f.store.FindByID(ctx, "u1")
		require.NoError(t, err)
		assert.Nil(t, stored.Token)

		_, err = f.service.Verify(ctx, signedIn.Auth.Token)
		requireStatus(t, err, http.StatusForbidden)
		_, err = f.service.Refresh(ctx, signedIn.Auth.Refresh)
		requireStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("unknown token is not found", func(t *testing.T) {
		f := newAuthFixture(t, DefaultTokenPolicy())
		err := f.service.SignOut(ctx, "nope")
		requireStatus(t, err, http.StatusNotFound)
	})

	t.Run("store failure is internal", func(t *testing.T) {
		store := &failingUserStore{UserStore: memory.NewUserStore(), err: errors.New("timeout")}
		svc := NewAuthService(store, security.NewBcryptHasher(bcrypt.MinCost), DefaultTokenPolicy())

		err := svc.SignOut(ctx, "A")
		requireStatus(t, err, http.StatusInternalServerError)
	})
}

func TestNewAuthServiceDefaultsLifetimes(t *testing.T) {
	t.Parallel()

	svc := NewAuthService(memory.NewUserStore(), security.NewBcryptHasher(bcrypt.MinCost), TokenPolicy{})
	assert.Equal(t, model.DefaultAccessLifetime, svc.policy.AccessLifetime)
	assert.Equal(t, model.DefaultRefreshLifetime, svc.policy.RefreshLifetime)
	assert.False(t, svc.policy.ReuseOnSignIn)
}

// failingUserStore fails every lookup with err.
type failingUserStore struct {
	*memory.UserStore
	err error
}

func (s *failingUserStore) FindByUsername(context.Context, string) (model.User, error) {
	return model.User{}, s.err
}

func (s *failingUserStore) FindByAccessToken(context.Context, string) (model.User, error) {
	return model.User{}, s.err
}

func (s *failingUserStore) FindByRefreshToken(context.Context, string) (model.User, error) {
	return model.User{}, s.err
}
