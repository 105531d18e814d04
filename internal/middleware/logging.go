// Package middleware holds the gin middleware chain for the reference
// readinessd host binary, adapted from the teacher's
// internal/middleware/logging.go request logger and the Recovery
// middleware its server.go wires ahead of it.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs each HTTP request's method, path, status, duration
// and client IP with structured logging. It records no metrics: the
// readiness domain tracks run and signal durations through
// telemetry.Sink rather than per-route HTTP metrics.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		logger.Info("request completed",
			"method", method,
			"path", path,
			"status", status,
			"duration_ms", duration.Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// Recovery converts a panic in a downstream handler into a 500 response
// and a structured log line instead of crashing the process.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered", "error", rec, "path", c.Request.URL.Path)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}
