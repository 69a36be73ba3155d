package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SelectiveTimeoutConfig bounds every request by timeout except the paths
// in skip, which carry their own route-level timeout.
func SelectiveTimeoutConfig(timeout time.Duration, skip ...string) echo.MiddlewareFunc {
	return middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Skipper: func(c echo.Context) bool {
			for _, p := range skip {
				if c.Path() == p {
					return true
				}
			}
			return false
		},
		Timeout:      timeout,
		ErrorMessage: "request timed out",
	})
}

// TimeoutConfig returns timeout middleware for a single route
func TimeoutConfig(timeout time.Duration) echo.MiddlewareFunc {
	return middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout:      timeout,
		ErrorMessage: "request timed out",
	})
}
