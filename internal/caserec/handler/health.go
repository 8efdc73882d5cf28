package handler

import (
	"context"
	"net/http"

	platformredis "meldeamt/internal/platform/redis"
	"meldeamt/pkg/platform/httputil"
)

// Pinger is the database health probe.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports readiness of the backing services. The cache is
// optional; a nil client reports "disabled" rather than failing the check.
type HealthHandler struct {
	db    Pinger
	cache *platformredis.Client
}

func NewHealthHandler(db Pinger, cache *platformredis.Client) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	if err := h.db.PingContext(r.Context()); err != nil {
		checks["database"] = "down"
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	switch {
	case h.cache == nil:
		checks["cache"] = "disabled"
	case h.cache.Health(r.Context()) != nil:
		checks["cache"] = "down"
		healthy = false
	default:
		checks["cache"] = "ok"
	}

	status := http.StatusOK
	body := map[string]any{"status": "ok", "checks": checks}
	if !healthy {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	httputil.WriteJSON(w, status, body)
}
