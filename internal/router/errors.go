package router

import (
	"encoding/json"
	"net/http"

	"lemon-sso/internal/model"
	"lemon-sso/pkg/apierror"
)

func writeRouteError(w http.ResponseWriter, version string, e *apierror.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse(version, e))
}
