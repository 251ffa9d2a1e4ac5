package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"lemon-sso/internal/model"
	"lemon-sso/pkg/apierror"
)

const (
	echoMessage = "Everything works fine! 🚀"
	echoOrigin  = "sso-service"
)

// Pinger is a backing dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

type SystemHandler struct {
	responder
	checks map[string]Pinger
}

func NewSystemHandler(version string, checks map[string]Pinger) *SystemHandler {
	if checks == nil {
		checks = map[string]Pinger{}
	}
	return &SystemHandler{responder: responder{version: version}, checks: checks}
}

func (h *SystemHandler) Echo(w http.ResponseWriter, _ *http.Request) {
	h.writeSuccess(w, http.StatusOK, model.EchoResponse{Message: echoMessage, Origin: echoOrigin})
}

// Health pings every dependency and answers 503 if any is down.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := map[string]string{}
	healthy := true
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "up"
	}

	if !healthy {
		h.writeError(w, r, apierror.New(apierror.CodeTimeout, "Service unavailable.", status, http.StatusServiceUnavailable))
		return
	}
	h.writeSuccess(w, http.StatusOK, status)
}
