package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"lemon-sso/internal/model"
	"lemon-sso/internal/security"
	"lemon-sso/pkg/apierror"
)

type UserService struct {
	users  UserStore
	hasher PasswordHasher
	now    func() time.Time
}

func NewUserService(users UserStore, hasher PasswordHasher) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *UserService) SignUp(ctx context.Context, username string, password string) (model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return model.User{}, apierror.Unprocessable("username is required")
	}
	if err := security.ValidatePassword(password); err != nil {
		return model.User{}, apierror.Unprocessable(err.Error())
	}

	if err := s.ensureUsernameFree(ctx, username, ""); err != nil {
		return model.User{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.User{}, err
	}

	now := s.now()
	user := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrUsernameTaken) {
			return model.User{}, apierror.Conflict("Username is not unique")
		}
		return model.User{}, fmt.Errorf("sign up: %w", err)
	}

	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]model.UserView, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	views := make([]model.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, u.View())
	}
	return views, nil
}

func (s *UserService) Get(ctx context.Context, id string) (model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, apierror.NotFound("User not found")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Update changes the username and/or password. Nil fields are left alone;
// the user's token is never touched.
func (s *UserService) Update(ctx context.Context, id string, username *string, password *string) (model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	if username != nil {
		name := strings.TrimSpace(*username)
		if name == "" {
			return model.User{}, apierror.Unprocessable("username cannot be empty")
		}
		if name != user.Username {
			if err := s.ensureUsernameFree(ctx, name, user.ID); err != nil {
				return model.User{}, err
			}
			user.Username = name
		}
	}

	if password != nil {
		if err := security.ValidatePassword(*password); err != nil {
			return model.User{}, apierror.Unprocessable(err.Error())
		}
		hash, err := s.hasher.Hash(*password)
		if err != nil {
			return model.User{}, err
		}
		user.PasswordHash = hash
	}

	user.UpdatedAt = s.now()
	if err := s.users.Save(ctx, user); err != nil {
		switch {
		case errors.Is(err, model.ErrUsernameTaken):
			return model.User{}, apierror.Conflict("Username is not unique")
		case errors.Is(err, model.ErrUserNotFound):
			return model.User{}, apierror.NotFound("User not found")
		}
		return model.User{}, fmt.Errorf("update user: %w", err)
	}

	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	err := s.users.Delete(ctx, id)
	if errors.Is(err, model.ErrUserNotFound) {
		return apierror.Gone("Resource gone")
	}
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *UserService) ensureUsernameFree(ctx context.Context, username string, selfID string) error {
	existing, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, model.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if existing.ID != selfID {
		return apierror.Conflict("Username is not unique")
	}
	return nil
}
