package handlers

import (
	"context"
	"net/http"
	"time"

	"event-checkout/internal/middleware"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service health
type HealthHandler struct {
	db      Pinger
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db, started: time.Now()}
}

// Health pings the database and reports uptime
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code, database := "ok", http.StatusOK, "ok"
	if err := h.db.Ping(ctx); err != nil {
		middleware.LoggerFromContext(r.Context()).WithError(err).Warn("health check: database unreachable")
		status, code, database = "degraded", http.StatusServiceUnavailable, "unreachable"
	}

	writeJSON(w, code, map[string]interface{}{
		"status":   status,
		"database": database,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	})
}
