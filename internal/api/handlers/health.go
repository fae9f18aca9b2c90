package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/capitolsignal/backend/pkg/database"
	"github.com/capitolsignal/backend/pkg/logger"
)

// HealthChecker probes database connectivity. Satisfied by *database.DB.
type HealthChecker interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

// DisclosureCounter reports how many disclosure rows a lookback covers.
type DisclosureCounter interface {
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// QueueCounter reports the reference-queue backlog.
type QueueCounter interface {
	PendingCount(ctx context.Context) (int, error)
}

// HealthHandler reports service health plus data freshness and queue depth.
// The counters are advisory: a failed count is logged and omitted, never a
// degraded status.
type HealthHandler struct {
	db          HealthChecker
	disclosures DisclosureCounter
	queue       QueueCounter
	logger      *logger.Logger
}

// NewHealthHandler creates a new health handler. The counters may be nil.
func NewHealthHandler(db HealthChecker, disclosures DisclosureCounter, queue QueueCounter, log *logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, disclosures: disclosures, queue: queue, logger: log}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":    "ok",
		"service":   "capitolsignal-api",
		"timestamp": time.Now().UTC(),
	}

	status, err := h.db.HealthCheck(r.Context())
	if err != nil || !status.Healthy {
		h.logger.WithError(err).Warn("Database health check failed")
		resp["status"] = "degraded"
		resp["database"] = "unreachable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	resp["database"] = "ok"
	resp["db_response_ms"] = status.ResponseTime.Milliseconds()

	if h.disclosures != nil {
		if count, err := h.disclosures.CountSince(r.Context(), time.Now().AddDate(0, 0, -30)); err != nil {
			h.logger.WithError(err).Warn("Disclosure freshness count failed")
		} else {
			resp["disclosures_30d"] = count
		}
	}
	if h.queue != nil {
		if pending, err := h.queue.PendingCount(r.Context()); err != nil {
			h.logger.WithError(err).Warn("Reference queue count failed")
		} else {
			resp["queue_pending"] = pending
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
