package handler

import (
	"errors"
	"net/http"

	"lemon-sso/internal/model"
	"lemon-sso/internal/service"
	"lemon-sso/pkg/apierror"
)

type AuthHandler struct {
	responder
	service *service.AuthService
}

func NewAuthHandler(service *service.AuthService, version string) *AuthHandler {
	return &AuthHandler{responder: responder{version: version}, service: service}
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var payload model.CredentialsRequest
	if err := decodeAndValidate(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}

	authenticated, err := h.service.SignIn(r.Context(), payload.Username, payload.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, authenticated)
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	var payload model.AccessTokenRequest
	if err := decodeAndValidate(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.SignOut(r.Context(), payload.AccessToken); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, model.OperationExit{Operation: true})
}

// Verify answers {operation:false} instead of 403 for an unusable token.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var payload model.AccessTokenRequest
	if err := decodeAndValidate(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}

	_, err := h.service.Verify(r.Context(), payload.AccessToken)
	var apiErr *apierror.APIError
	switch {
	case err == nil:
		h.writeSuccess(w, http.StatusOK, model.OperationExit{Operation: true})
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden:
		h.writeSuccess(w, http.StatusOK, model.OperationExit{Operation: false})
	default:
		h.writeError(w, r, err)
	}
}

// SSO resolves an access token to the user it belongs to.
func (h *AuthHandler) SSO(w http.ResponseWriter, r *http.Request) {
	var payload model.AccessTokenRequest
	if err := decodeAndValidate(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.service.Verify(r.Context(), payload.AccessToken)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, user.View())
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var payload model.RefreshRequest
	if err := decodeAndValidate(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}

	authenticated, err := h.service.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, authenticated)
}
