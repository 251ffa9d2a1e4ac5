package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lemon-sso/internal/config"
)

func memoryConfig() *config.Config {
	return &config.Config{
		ServerPort:      "0",
		RequestTimeout:  5 * time.Second,
		AppVersion:      "1.2.4",
		AdminAPIKey:     "admin",
		StoreDriver:     config.StoreDriverMemory,
		APIKeyCacheTTL:  time.Minute,
		TokenAccessTTL:  10 * time.Hour,
		TokenRefreshTTL: 10*time.Hour + 30*time.Minute,
		BcryptCost:      4,
		CORSOrigins:     []string{"*"},
	}
}

func TestNewWithMemoryDriver(t *testing.T) {
	a, err := New(memoryConfig())
	require.NoError(t, err)
	t.Cleanup(a.cleanup)

	rec := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"memory":"up"`)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreDriver = "sqlite"

	_, err := New(cfg)
	require.Error(t, err)
}

func TestNewFailsOnBadRedisURL(t *testing.T) {
	cfg := memoryConfig()
	cfg.RedisURL = "not-a-url"

	_, err := New(cfg)
	require.Error(t, err)
}
