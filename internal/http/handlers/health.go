package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck is one dependency that must answer before the API reports ready.
type ReadinessCheck struct {
	Name   string
	Pinger Pinger
}

type HealthHandler struct {
	checks  []ReadinessCheck
	timeout time.Duration
}

// create a new instance of the health handler
func NewHealthHandler(checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	results := make(gin.H, len(h.checks))
	ready := true

	for _, check := range h.checks {
		if err := check.Pinger.Ping(cctx); err != nil {
			ready = false
			results[check.Name] = "unavailable"
			_ = ctx.Error(fmt.Errorf("readiness check %s: %w", check.Name, err))
			continue
		}
		results[check.Name] = "ok"
	}

	if !ready {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": results})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready", "checks": results})
}
