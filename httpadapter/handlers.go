// Package httpadapter exposes a Coordinator's live and frozen results
// over HTTP, adapted from the teacher's internal/health/handlers.go
// three-tier Handler (shallow/deep/ready) and internal/server/server.go
// route registration, generalized from a single bootstrap-readiness
// flag to the coordinator's full aggregate.Snapshot.
package httpadapter

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/arc-framework/readiness/aggregate"
)

// ResultSource is the subset of Coordinator the adapter depends on.
type ResultSource interface {
	GetResult() aggregate.Snapshot
}

// Handler serves /healthz, /readyz, and /livez over a ResultSource.
type Handler struct {
	source ResultSource
}

// NewHandler builds a Handler bound to source.
func NewHandler(source ResultSource) *Handler {
	return &Handler{source: source}
}

// Livez handles shallow liveness checks: the process is up and serving,
// independent of any signal outcome (spec's shallow-health mirror of the
// teacher's HealthHandler).
func (h *Handler) Livez(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
		"mode":   "shallow",
	})
}

// Healthz handles a deep health check: the full current snapshot,
// regardless of whether it is terminal yet (mirrors the teacher's
// DeepHealthHandler, generalized from a map of ProbeResult to the full
// aggregate.Snapshot).
func (h *Handler) Healthz(c *gin.Context) {
	snap := h.source.GetResult()

	status := http.StatusOK
	switch snap.OverallStatus {
	case aggregate.OverallFailed, aggregate.OverallCancelled:
		status = http.StatusServiceUnavailable
	case aggregate.OverallPartialSuccess:
		status = http.StatusOK
	case aggregate.OverallPending:
		status = http.StatusOK
	}

	c.JSON(status, gin.H{
		"overall_status": snap.OverallStatus,
		"results":        snap.Results,
		"total_duration": snap.TotalDuration.String(),
	})
}

// Readyz handles a readiness probe: only Succeeded is a 200, everything
// else (including Pending and PartialSuccess) is a 503, mirroring the
// teacher's ReadyHandler's boolean gate generalized to the wider status
// set (spec's readiness-probe contract).
func (h *Handler) Readyz(c *gin.Context) {
	snap := h.source.GetResult()

	if snap.OverallStatus != aggregate.OverallSucceeded {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"ready":          false,
			"overall_status": snap.OverallStatus,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ready":          true,
		"overall_status": snap.OverallStatus,
	})
}

// RegisterRoutes wires the three endpoints onto router.
func (h *Handler) RegisterRoutes(router *gin.Engine, serviceName string) {
	router.Use(otelgin.Middleware(serviceName))
	router.GET("/livez", h.Livez)
	router.GET("/healthz", h.Healthz)
	router.GET("/readyz", h.Readyz)
}
