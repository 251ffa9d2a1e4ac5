package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"lemon-sso/internal/model"
	"lemon-sso/pkg/apierror"
)

const APIKeyHeader = "X-API-Key"

type contextKey string

const serviceContextKey contextKey = "registered_service"

type keyAuthenticator interface {
	Authenticate(ctx context.Context, apiKey string) (model.RegisteredService, error)
	AuthenticateAdmin(apiKey string) error
}

type APIKeyMiddleware struct {
	auth    keyAuthenticator
	version string
}

func NewAPIKeyMiddleware(auth keyAuthenticator, version string) *APIKeyMiddleware {
	return &APIKeyMiddleware{auth: auth, version: version}
}

// RequireService admits requests carrying the API key of a registered service
// and stores that service in the request context.
func (m *APIKeyMiddleware) RequireService(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		svc, err := m.auth.Authenticate(r.Context(), apiKeyFrom(r))
		if err != nil {
			m.reject(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), serviceContextKey, svc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin admits requests carrying the administrator key.
func (m *APIKeyMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := m.auth.AuthenticateAdmin(apiKeyFrom(r)); err != nil {
			m.reject(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *APIKeyMiddleware) reject(w http.ResponseWriter, err error) {
	var apiErr *apierror.APIError
	if !errors.As(err, &apiErr) {
		apiErr = apierror.Internal()
	}
	writeAPIError(w, m.version, apiErr)
}

func ServiceFromContext(ctx context.Context) (model.RegisteredService, bool) {
	svc, ok := ctx.Value(serviceContextKey).(model.RegisteredService)
	return svc, ok
}

func apiKeyFrom(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(APIKeyHeader))
}
