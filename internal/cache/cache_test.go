package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lemon-sso/internal/model"
)

func TestCacheKey(t *testing.T) {
	t.Parallel()

	k := cacheKey("secret-api-key")
	assert.True(t, strings.HasPrefix(k, keyPrefix))
	assert.NotContains(t, k, "secret-api-key")
	assert.Equal(t, k, cacheKey("secret-api-key"))
	assert.NotEqual(t, k, cacheKey("other"))
}

func TestNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var c Noop

	require.NoError(t, c.Set(ctx, model.RegisteredService{APIKey: "k"}, time.Minute))
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Delete(ctx, "k"))
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := NewRedis(context.Background(), "not-a-redis-url")
	require.Error(t, err)
}
