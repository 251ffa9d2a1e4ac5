package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"lemon-sso/internal/event"
	"lemon-sso/internal/model"
	"lemon-sso/pkg/apierror"
)

// TokenPolicy fixes the lifetimes of minted pairs and whether sign-in reuses
// a pair whose access window is still open.
type TokenPolicy struct {
	AccessLifetime  time.Duration
	RefreshLifetime time.Duration
	ReuseOnSignIn   bool
}

func DefaultTokenPolicy() TokenPolicy {
	return TokenPolicy{
		AccessLifetime:  model.DefaultAccessLifetime,
		RefreshLifetime: model.DefaultRefreshLifetime,
		ReuseOnSignIn:   true,
	}
}

type AuthService struct {
	users    UserStore
	hasher   PasswordHasher
	policy   TokenPolicy
	now      func() time.Time
	generate model.TokenGenerator
	events   event.Publisher

	dummyOnce sync.Once
	dummyHash string
}

type AuthOption func(*AuthService)

func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func WithTokenGenerator(gen model.TokenGenerator) AuthOption {
	return func(s *AuthService) { s.generate = gen }
}

// WithEvents publishes token lifecycle events to p.
func WithEvents(p event.Publisher) AuthOption {
	return func(s *AuthService) { s.events = p }
}

func NewAuthService(users UserStore, hasher PasswordHasher, policy TokenPolicy, opts ...AuthOption) *AuthService {
	if policy.AccessLifetime <= 0 {
		policy.AccessLifetime = model.DefaultAccessLifetime
	}
	if policy.RefreshLifetime <= 0 {
		policy.RefreshLifetime = model.DefaultRefreshLifetime
	}

	s := &AuthService{
		users:    users,
		hasher:   hasher,
		policy:   policy,
		now:      func() time.Time { return time.Now().UTC() },
		generate: model.NewTokenValue,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func errWrongCredentials() error { return apierror.Unauthorized("Wrong credentials") }
func errInvalidRefresh() error   { return apierror.Unauthorized("Token is not valid") }
func errInvalidAccess() error    { return apierror.Forbidden("Token expired or not valid.") }

// SignIn checks the credentials and returns the user's current pair,
// minting one when the user has none or its access window is closed.
// Every failure, internal ones included, surfaces as the same Unauthorized.
func (s *AuthService) SignIn(ctx context.Context, username string, password string) (model.AuthenticatedUser, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, model.ErrUserNotFound) {
			slog.WarnContext(ctx, "sign-in lookup failed", "error", err)
		}
		// Burn a comparison so unknown usernames cost the same as bad passwords.
		s.hasher.Verify(password, s.placeholderHash())
		s.publish(event.TypeSignInFailed, model.User{Username: username})
		return model.AuthenticatedUser{}, errWrongCredentials()
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		slog.DebugContext(ctx, "sign-in password mismatch", "user_id", user.ID)
		s.publish(event.TypeSignInFailed, user)
		return model.AuthenticatedUser{}, errWrongCredentials()
	}

	now := s.now()
	if user.Token != nil && user.Token.IsAccessValid(now) && s.policy.ReuseOnSignIn {
		s.publish(event.TypeSignedIn, user)
		return authenticated(user), nil
	}

	rotated, err := s.rotate(ctx, user, now)
	if errors.Is(err, model.ErrTokenConflict) {
		// A concurrent sign-in or refresh replaced the pair first; hand out
		// whatever it stored if that is usable.
		rotated, err = s.users.FindByID(ctx, user.ID)
		if err == nil && (rotated.Token == nil || !rotated.Token.IsAccessValid(now)) {
			err = model.ErrTokenConflict
		}
	}
	if err != nil {
		slog.WarnContext(ctx, "sign-in token rotation failed", "user_id", user.ID, "error", err)
		return model.AuthenticatedUser{}, errWrongCredentials()
	}

	s.publish(event.TypeSignedIn, rotated)
	return authenticated(rotated), nil
}

// Verify resolves an access token to its owner. An expired pair is marked
// invalid in the store before the request is refused.
func (s *AuthService) Verify(ctx context.Context, accessToken string) (model.User, error) {
	user, err := s.users.FindByAccessToken(ctx, accessToken)
	if err != nil {
		if !errors.Is(err, model.ErrUserNotFound) {
			slog.WarnContext(ctx, "verify lookup failed", "error", err)
		}
		return model.User{}, errInvalidAccess()
	}
	if user.Token == nil {
		return model.User{}, errInvalidAccess()
	}

	now := s.now()
	if user.Token.IsAccessValid(now) {
		return user, nil
	}

	if user.Token.Valid {
		invalid := user.Token.Invalidated()
		err := s.users.SwapToken(ctx, user.ID, user.RefreshValue(), &invalid, now)
		switch {
		case err == nil:
			s.publish(event.TypeTokenInvalidated, user)
		case !errors.Is(err, model.ErrTokenConflict):
			slog.WarnContext(ctx, "token invalidation failed", "user_id", user.ID, "error", err)
		}
	}

	return model.User{}, errInvalidAccess()
}

// Refresh always rotates both values. A refresh value can be spent once:
// the swap is conditioned on it, so a concurrent second use loses.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.AuthenticatedUser, error) {
	user, err := s.users.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if !errors.Is(err, model.ErrUserNotFound) {
			slog.WarnContext(ctx, "refresh lookup failed", "error", err)
		}
		return model.AuthenticatedUser{}, errInvalidRefresh()
	}

	now := s.now()
	if user.Token == nil || !user.Token.IsRefreshValid(now) {
		err := s.users.SwapToken(ctx, user.ID, refreshToken, nil, now)
		switch {
		case err == nil:
			s.publish(event.TypeTokenDropped, user)
		case !errors.Is(err, model.ErrTokenConflict):
			slog.WarnContext(ctx, "dropping expired token failed", "user_id", user.ID, "error", err)
		}
		return model.AuthenticatedUser{}, errInvalidRefresh()
	}

	rotated, err := s.rotate(ctx, user, now)
	if err != nil {
		if errors.Is(err, model.ErrTokenConflict) {
			slog.DebugContext(ctx, "refresh value already spent", "user_id", user.ID)
		} else {
			slog.WarnContext(ctx, "refresh rotation failed", "user_id", user.ID, "error", err)
		}
		return model.AuthenticatedUser{}, errInvalidRefresh()
	}

	s.publish(event.TypeTokenRefreshed, rotated)
	return authenticated(rotated), nil
}

// SignOut drops the pair owning accessToken.
func (s *AuthService) SignOut(ctx context.Context, accessToken string) error {
	for attempt := 0; attempt < 2; attempt++ {
		user, err := s.users.FindByAccessToken(ctx, accessToken)
		if errors.Is(err, model.ErrUserNotFound) {
			if attempt > 0 {
				return nil
			}
			return apierror.NotFound("User not found.")
		}
		if err != nil {
			slog.WarnContext(ctx, "sign-out lookup failed", "error", err)
			return apierror.Internal()
		}

		err = s.users.SwapToken(ctx, user.ID, user.RefreshValue(), nil, s.now())
		if err == nil {
			s.publish(event.TypeSignedOut, user)
			return nil
		}
		if !errors.Is(err, model.ErrTokenConflict) {
			slog.WarnContext(ctx, "sign-out failed", "user_id", user.ID, "error", err)
			return apierror.Internal()
		}
	}

	slog.WarnContext(ctx, "sign-out kept losing token swaps")
	return apierror.Internal()
}

func (s *AuthService) publish(t event.Type, user model.User) {
	if s.events == nil {
		return
	}
	s.events.Publish(event.Event{Type: t, UserID: user.ID, Username: user.Username, Timestamp: s.now()})
}

func (s *AuthService) rotate(ctx context.Context, user model.User, now time.Time) (model.User, error) {
	pair, err := model.NewTokenPair(s.generate, now, s.policy.AccessLifetime, s.policy.RefreshLifetime)
	if err != nil {
		return model.User{}, err
	}

	if err := s.users.SwapToken(ctx, user.ID, user.RefreshValue(), &pair, now); err != nil {
		return model.User{}, err
	}

	return user.WithToken(&pair, now), nil
}

func (s *AuthService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("placeholder-password")
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

func authenticated(user model.User) model.AuthenticatedUser {
	return model.AuthenticatedUser{
		User: user.View(),
		Auth: model.Authentication{
			Token:   user.Token.AccessValue,
			Refresh: user.Token.RefreshValue,
		},
	}
}
