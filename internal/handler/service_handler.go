package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lemon-sso/internal/model"
	"lemon-sso/internal/service"
)

// ServiceHandler manages registered services. Every route is admin-only.
type ServiceHandler struct {
	responder
	service *service.RegistryService
}

func NewServiceHandler(service *service.RegistryService, version string) *ServiceHandler {
	return &ServiceHandler{responder: responder{version: version}, service: service}
}

func (h *ServiceHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterServiceRequest
	if err := decodeAndValidate(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}

	svc, err := h.service.Register(r.Context(), payload.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusCreated, svc)
}

func (h *ServiceHandler) List(w http.ResponseWriter, r *http.Request) {
	services, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, services)
}

func (h *ServiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, model.OperationExit{Operation: true})
}
