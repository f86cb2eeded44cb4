package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles readiness checks.
type HealthHandler struct {
	store   Pinger
	timeout time.Duration
}

// NewHealthHandler creates a health handler that pings store with timeout.
func NewHealthHandler(store Pinger, timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthHandler{store: store, timeout: timeout}
}

// Ready returns the readiness of the API and its session store.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		slog.Error("Readiness check failed", "error", err)
		status["status"] = "degraded"
		checks["sessions"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["sessions"] = "ok"
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the readiness route. Liveness is served by the
// router heartbeat on /health.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/readyz", h.Ready)
}
