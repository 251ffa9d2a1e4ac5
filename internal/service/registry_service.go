package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"lemon-sso/internal/model"
	"lemon-sso/pkg/apierror"
)

const defaultCacheTTL = 5 * time.Minute

// RegistryService manages registered services and resolves API keys.
type RegistryService struct {
	services ServiceStore
	cache    ServiceCache
	cacheTTL time.Duration
	adminKey string
	now      func() time.Time
	generate model.TokenGenerator
}

func NewRegistryService(services ServiceStore, cache ServiceCache, cacheTTL time.Duration, adminKey string) *RegistryService {
	if cache == nil {
		cache = noopCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}

	return &RegistryService{
		services: services,
		cache:    cache,
		cacheTTL: cacheTTL,
		adminKey: adminKey,
		now:      func() time.Time { return time.Now().UTC() },
		generate: model.NewTokenValue,
	}
}

func errNotPermitted() error { return apierror.Forbidden("Action not permitted") }

func (s *RegistryService) Register(ctx context.Context, name string) (model.RegisteredService, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.RegisteredService{}, apierror.Unprocessable("name is required")
	}

	key, err := s.generate()
	if err != nil {
		return model.RegisteredService{}, err
	}

	svc := model.RegisteredService{
		ID:        uuid.NewString(),
		Name:      name,
		APIKey:    key,
		CreatedAt: s.now(),
	}
	if err := s.services.Create(ctx, svc); err != nil {
		return model.RegisteredService{}, fmt.Errorf("register service: %w", err)
	}

	slog.InfoContext(ctx, "registered service created", "service_id", svc.ID, "name", svc.Name)
	return svc, nil
}

func (s *RegistryService) List(ctx context.Context) ([]model.RegisteredService, error) {
	services, err := s.services.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

func (s *RegistryService) Delete(ctx context.Context, id string) error {
	svc, err := s.services.Delete(ctx, id)
	if errors.Is(err, model.ErrServiceNotFound) {
		return apierror.Gone("Resource gone")
	}
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}

	if err := s.cache.Delete(ctx, svc.APIKey); err != nil {
		slog.WarnContext(ctx, "api key cache eviction failed", "service_id", svc.ID, "error", err)
	}

	slog.InfoContext(ctx, "registered service deleted", "service_id", svc.ID)
	return nil
}

// Authenticate resolves a per-integration API key. Cache failures fall back
// to the store.
func (s *RegistryService) Authenticate(ctx context.Context, apiKey string) (model.RegisteredService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return model.RegisteredService{}, errNotPermitted()
	}

	svc, ok, err := s.cache.Get(ctx, apiKey)
	if err != nil {
		slog.WarnContext(ctx, "api key cache read failed", "error", err)
	}
	if ok {
		return svc, nil
	}

	svc, err = s.services.FindByAPIKey(ctx, apiKey)
	if err != nil {
		if !errors.Is(err, model.ErrServiceNotFound) {
			slog.WarnContext(ctx, "api key lookup failed", "error", err)
		}
		return model.RegisteredService{}, errNotPermitted()
	}

	if err := s.cache.Set(ctx, svc, s.cacheTTL); err != nil {
		slog.WarnContext(ctx, "api key cache write failed", "error", err)
	}
	return svc, nil
}

func (s *RegistryService) AuthenticateAdmin(apiKey string) error {
	if s.adminKey == "" || subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.adminKey)) != 1 {
		return errNotPermitted()
	}
	return nil
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (model.RegisteredService, bool, error) {
	return model.RegisteredService{}, false, nil
}

func (noopCache) Set(context.Context, model.RegisteredService, time.Duration) error { return nil }

func (noopCache) Delete(context.Context, string) error { return nil }
