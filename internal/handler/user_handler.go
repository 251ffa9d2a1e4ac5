package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lemon-sso/internal/model"
	"lemon-sso/internal/service"
)

type UserHandler struct {
	responder
	service *service.UserService
}

func NewUserHandler(service *service.UserService, version string) *UserHandler {
	return &UserHandler{responder: responder{version: version}, service: service}
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateUserRequest
	if err := decodeAndValidate(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.service.SignUp(r.Context(), payload.Username, payload.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusCreated, user.View())
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, user.View())
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdateUserRequest
	if err := decodeAndValidate(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), payload.Username, payload.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, user.View())
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, model.OperationExit{Operation: true})
}
