package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/equitylens/pkg/logger"
)

// HealthCheck is one named dependency probe
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler reports service and dependency health
type HealthHandler struct {
	checks  []HealthCheck
	timeout time.Duration
	logger  *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(log *logger.Logger, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		timeout: 3 * time.Second,
		logger:  log.Component("health"),
	}
}

// Get returns 200 when every dependency answers, 503 otherwise
// GET /health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			h.logger.WithError(err).WithField("check", c.Name).Warn("Health check failed")
			results[c.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[c.Name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}

	respondJSON(w, status, map[string]interface{}{
		"status":  overall,
		"service": "equitylens-api",
		"checks":  results,
	})
}
