package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"lemon-sso/internal/model"
	"lemon-sso/pkg/apierror"
)

// responder writes the API envelope stamped with the service version.
type responder struct {
	version string
}

func (rs responder) writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.SuccessResponse(rs.version, data))
}

func (rs responder) writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	if apiErr.Critical {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse(rs.version, apiErr))
}

// toAPIError maps store sentinels that escaped the services; anything else
// becomes a critical internal error with no detail for the client.
func toAPIError(err error) *apierror.APIError {
	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, model.ErrUserNotFound):
		return apierror.NotFound("User not found.")
	case errors.Is(err, model.ErrUsernameTaken):
		return apierror.Conflict("Username is not unique")
	case errors.Is(err, model.ErrServiceNotFound):
		return apierror.NotFound("Registered service not found.")
	default:
		return apierror.Internal()
	}
}
