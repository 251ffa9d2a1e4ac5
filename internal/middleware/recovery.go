package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"lemon-sso/pkg/apierror"
)

func Recovery(version string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}

				slog.ErrorContext(r.Context(), "panic recovered",
					"error", fmt.Sprintf("%v", recovered),
					"path", r.URL.Path,
					"stack", string(debug.Stack()))
				writeAPIError(w, version, apierror.Internal())
			}()

			next.ServeHTTP(w, r)
		})
	}
}
