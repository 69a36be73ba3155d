package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"jobleads/internal/store"
	"jobleads/pkg/models"
)

// Version is reported by the health endpoints
var Version = "dev"

var startTime = time.Now()

// HealthHandler handles health check requests
func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(startTime),
		Checks: map[string]string{
			"api": "ok",
		},
	})
}

// LivenessHandler handles liveness probe requests
func LivenessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(startTime),
	})
}

// ReadinessHandler reports ready when the task manager accepts work and the
// result sink answers. The browser launches lazily, so a browser that is not
// running yet is reported as idle rather than failing the probe.
func ReadinessHandler(tasks TaskQueue, monitor BrowserMonitor, sink store.Sink) echo.HandlerFunc {
	return func(c echo.Context) error {
		checks := map[string]string{"api": "ok"}
		ready := true

		if tasks.IsHealthy() {
			checks["tasks"] = "ok"
		} else {
			checks["tasks"] = "stopped"
			ready = false
		}

		switch {
		case monitor.Healthy():
			checks["browser"] = "ok"
		case monitor.Metrics().Launches == 0:
			checks["browser"] = "idle"
		default:
			checks["browser"] = "relaunch_pending"
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := sink.Ping(ctx); err != nil {
			checks["store"] = err.Error()
			ready = false
		} else {
			checks["store"] = "ok"
		}

		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		return c.JSON(code, models.HealthResponse{
			Status:    status,
			Timestamp: time.Now(),
			Version:   Version,
			Uptime:    time.Since(startTime),
			Checks:    checks,
		})
	}
}
