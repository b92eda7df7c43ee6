package v2

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck names a dependency reported by /health.
type HealthCheck struct {
	Name   string
	Pinger Pinger
}

type HealthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

const healthTimeout = 5 * time.Second

// CheckHealth godoc
// @Summary Check system health status
// @Tags system
// @Produce json
// @Success 200 {object} HealthStatus
// @Failure 503 {object} HealthStatus
// @Router /health [get]
func (h *Handler) CheckHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := HealthStatus{Status: "ok", Components: make(map[string]string, len(h.checks))}
	for _, check := range h.checks {
		if err := check.Pinger.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Components[check.Name] = err.Error()
			continue
		}
		status.Components[check.Name] = "ok"
	}

	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	sendJSON(c, code, status)
}
