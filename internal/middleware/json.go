package middleware

import (
	"encoding/json"
	"net/http"

	"lemon-sso/internal/model"
	"lemon-sso/pkg/apierror"
)

func writeAPIError(w http.ResponseWriter, version string, e *apierror.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse(version, e))
}

func errorJSON(version string, e *apierror.APIError) string {
	raw, err := json.Marshal(model.ErrorResponse(version, e))
	if err != nil {
		return `{"meta":{"error":true,"code":"` + e.Code + `"}}`
	}
	return string(raw)
}
