package middleware

import (
	"net/http"
	"time"

	"lemon-sso/pkg/apierror"
)

func Timeout(timeout time.Duration, version string) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	message := errorJSON(version, apierror.New(apierror.CodeTimeout, "Request timed out.", nil, http.StatusServiceUnavailable))

	return func(next http.Handler) http.Handler {
		timed := http.TimeoutHandler(next, timeout, message)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			timed.ServeHTTP(w, r)
		})
	}
}
