package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"jobleads/internal/scraper/browser"
	"jobleads/internal/scraper/ratelimit"
)

// BrowserMetricsResponse represents the browser session metrics response
type BrowserMetricsResponse struct {
	Status  string                `json:"status"`
	Healthy bool                  `json:"healthy"`
	Metrics browser.Metrics       `json:"metrics"`
	Hosts   []ratelimit.HostStats `json:"hosts,omitempty"`
}

// BrowserMetricsHandler returns the session, slot and per-host limiter
// counters. hosts may be nil.
func BrowserMetricsHandler(monitor BrowserMonitor, hosts HostStatser) echo.HandlerFunc {
	return func(c echo.Context) error {
		response := BrowserMetricsResponse{
			Status:  "ok",
			Healthy: monitor.Healthy(),
			Metrics: monitor.Metrics(),
		}
		if hosts != nil {
			response.Hosts = hosts.Stats()
		}
		return c.JSON(http.StatusOK, response)
	}
}
