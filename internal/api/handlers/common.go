// Package handlers implements the HTTP endpoints of the enrichment service.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"jobleads/internal/background"
	"jobleads/internal/scraper/browser"
	"jobleads/internal/scraper/ratelimit"
	"jobleads/pkg/models"
	"jobleads/pkg/utils"
)

var validate = validator.New()

// Enricher enriches a single job; implemented by enrichment.Orchestrator
type Enricher interface {
	Enrich(ctx context.Context, job models.JobRecord) *models.EnrichmentResult
}

// TaskQueue accepts and reports batch tasks; implemented by background.TaskManager
type TaskQueue interface {
	SubmitBatch(ctx context.Context, jobs []models.JobRecord) (string, error)
	Get(ctx context.Context, processID string) (*background.TaskResult, error)
	List(ctx context.Context) ([]*background.TaskResult, error)
	Stats() background.Stats
	IsHealthy() bool
}

// BrowserMonitor exposes the browser session's counters; implemented by
// browser.Session
type BrowserMonitor interface {
	Metrics() browser.Metrics
	Healthy() bool
}

// HostStatser reports per-host limiter state; implemented by ratelimit.Limiter
type HostStatser interface {
	Stats() []ratelimit.HostStats
}

// requestID returns the id set by the request middleware, or a fresh one
func requestID(c echo.Context) string {
	if id, ok := c.Get("request_id").(string); ok && id != "" {
		return id
	}
	return utils.GenerateRequestID()
}

func errorJSON(c echo.Context, status int, code, message string) error {
	return c.JSON(status, models.ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: requestID(c),
		Timestamp: time.Now(),
	})
}

// statusFor maps an error to an HTTP status
func statusFor(err error) int {
	var te *background.TaskError
	if errors.As(err, &te) {
		switch te {
		case background.ErrTaskNotFound:
			return http.StatusNotFound
		case background.ErrQueueFull, background.ErrNotRunning:
			return http.StatusServiceUnavailable
		}
	}
	return utils.StatusCode(err)
}
