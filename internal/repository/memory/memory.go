// Package memory keeps users and registered services in process memory.
// It backs the memory store driver and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"lemon-sso/internal/model"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: map[string]model.User{}}
}

func (s *UserStore) FindByID(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return clone(u), nil
}

func (s *UserStore) FindByUsername(_ context.Context, username string) (model.User, error) {
	return s.findFirst(func(u model.User) bool { return u.Username == username })
}

func (s *UserStore) FindByAccessToken(_ context.Context, value string) (model.User, error) {
	return s.findFirst(func(u model.User) bool { return u.Token != nil && u.Token.AccessValue == value })
}

func (s *UserStore) FindByRefreshToken(_ context.Context, value string) (model.User, error) {
	return s.findFirst(func(u model.User) bool { return u.Token != nil && u.Token.RefreshValue == value })
}

func (s *UserStore) List(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *UserStore) Create(_ context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.usernameTakenLocked(user.Username, user.ID) {
		return model.ErrUsernameTaken
	}
	s.users[user.ID] = clone(user)
	return nil
}

func (s *UserStore) Save(_ context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return model.ErrUserNotFound
	}
	if s.usernameTakenLocked(user.Username, user.ID) {
		return model.ErrUsernameTaken
	}
	s.users[user.ID] = clone(user)
	return nil
}

func (s *UserStore) SwapToken(_ context.Context, userID string, expectedRefresh string, next *model.TokenPair, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	if u.RefreshValue() != expectedRefresh {
		return model.ErrTokenConflict
	}
	s.users[userID] = u.WithToken(next, updatedAt)
	return nil
}

func (s *UserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return model.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

// Ping satisfies the health check.
func (s *UserStore) Ping(context.Context) error { return nil }

func (s *UserStore) findFirst(match func(model.User) bool) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (s *UserStore) usernameTakenLocked(username string, selfID string) bool {
	for id, u := range s.users {
		if id != selfID && u.Username == username {
			return true
		}
	}
	return false
}

func clone(u model.User) model.User {
	if u.Token != nil {
		pair := *u.Token
		u.Token = &pair
	}
	return u
}

type ServiceStore struct {
	mu       sync.RWMutex
	services map[string]model.RegisteredService
}

func NewServiceStore() *ServiceStore {
	return &ServiceStore{services: map[string]model.RegisteredService{}}
}

func (s *ServiceStore) Create(_ context.Context, svc model.RegisteredService) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.services[svc.ID] = svc
	return nil
}

func (s *ServiceStore) FindByAPIKey(_ context.Context, apiKey string) (model.RegisteredService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, svc := range s.services {
		if svc.APIKey == apiKey {
			return svc, nil
		}
	}
	return model.RegisteredService{}, model.ErrServiceNotFound
}

func (s *ServiceStore) List(_ context.Context) ([]model.RegisteredService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RegisteredService, 0, len(s.services))
	for _, svc := range s.services {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *ServiceStore) Delete(_ context.Context, id string) (model.RegisteredService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, ok := s.services[id]
	if !ok {
		return model.RegisteredService{}, model.ErrServiceNotFound
	}
	delete(s.services, id)
	return svc, nil
}
