package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lemon-sso/internal/model"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware_UnlimitedGeneral(t *testing.T) {
	handler := NewRateLimitMiddleware(0, 1, "1.2.4").Handler(okHandler())

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
}

func TestRateLimitMiddleware_LimitedAuth(t *testing.T) {
	handler := NewRateLimitMiddleware(0, 1, "1.2.4").Handler(okHandler())

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", nil))
	assert.Equal(t, http.StatusOK, rec1.Code)

	// Burst of one: the second immediate request is rejected.
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", nil))
	require.Equal(t, http.StatusTooManyRequests, rec2.Code)
	assert.Equal(t, "60", rec2.Header().Get("Retry-After"))

	var body model.APIResponse
	require.NoError(t, json.NewDecoder(rec2.Body).Decode(&body))
	assert.True(t, body.Meta.Error)
	assert.Equal(t, "KO_RATE_LIMITED", body.Meta.Code)
	assert.Equal(t, "1.2.4", body.Meta.Version)
}

func TestRateLimitMiddleware_PerClient(t *testing.T) {
	handler := NewRateLimitMiddleware(1, 0, "").Handler(okHandler())

	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/", nil)
		req.RemoteAddr = ip + ":5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, ip)
	}
}

func TestRateLimitMiddleware_IgnoresForwardedForByDefault(t *testing.T) {
	handler := NewRateLimitMiddleware(0, 1, "").Handler(okHandler())

	codes := make([]int, 0, 2)
	for _, forwarded := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", nil)
		req.RemoteAddr = "192.0.2.7:4321"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitMiddleware_BehindRealIP(t *testing.T) {
	handler := chimiddleware.RealIP(NewRateLimitMiddleware(0, 1, "").Handler(okHandler()))

	for _, forwarded := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", nil)
		req.RemoteAddr = "192.0.2.7:4321"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, forwarded)
	}
}

func TestExtractClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:4321"
	assert.Equal(t, "192.0.2.7", extractClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "192.0.2.7", extractClientIP(req))

	req.RemoteAddr = "198.51.100.2"
	assert.Equal(t, "198.51.100.2", extractClientIP(req))

	req.RemoteAddr = ""
	assert.Equal(t, "unknown", extractClientIP(req))
}
