// Package cache caches API key to registered service resolution.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lemon-sso/internal/model"
)

const keyPrefix = "sso:svc:"

type Redis struct {
	client *redis.Client
}

// NewRedis parses a redis:// URL, connects and pings.
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 3

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{client: client}, nil
}

// Get reports a miss as ok=false with a nil error.
func (r *Redis) Get(ctx context.Context, apiKey string) (model.RegisteredService, bool, error) {
	val, err := r.client.Get(ctx, cacheKey(apiKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.RegisteredService{}, false, nil
	}
	if err != nil {
		return model.RegisteredService{}, false, fmt.Errorf("redis get: %w", err)
	}

	var svc model.RegisteredService
	if err := json.Unmarshal(val, &svc); err != nil {
		return model.RegisteredService{}, false, fmt.Errorf("decode cached service: %w", err)
	}
	return svc, true, nil
}

func (r *Redis) Set(ctx context.Context, svc model.RegisteredService, ttl time.Duration) error {
	data, err := json.Marshal(svc)
	if err != nil {
		return fmt.Errorf("encode service: %w", err)
	}
	if err := r.client.Set(ctx, cacheKey(svc.APIKey), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, apiKey string) error {
	if err := r.client.Del(ctx, cacheKey(apiKey)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Keys are hashed so raw API keys never sit in Redis key space.
func cacheKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Noop never stores anything. It is used when REDIS_URL is empty.
type Noop struct{}

func (Noop) Get(context.Context, string) (model.RegisteredService, bool, error) {
	return model.RegisteredService{}, false, nil
}

func (Noop) Set(context.Context, model.RegisteredService, time.Duration) error { return nil }

func (Noop) Delete(context.Context, string) error { return nil }

func (Noop) Close() error { return nil }
