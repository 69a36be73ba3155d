package routes

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"jobleads/internal/api/handlers"
	"jobleads/internal/api/middleware"
	"jobleads/internal/config"
	"jobleads/internal/logging"
	"jobleads/internal/store"
)

// Dependencies are the services the HTTP surface talks to. Hosts may be nil.
type Dependencies struct {
	Enricher handlers.Enricher
	Tasks    handlers.TaskQueue
	Browser  handlers.BrowserMonitor
	Hosts    handlers.HostStatser
	Sink     store.Sink
	Logger   logging.Logger
}

const enrichPath = "/api/v1/enrich"

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, cfg *config.Config, deps Dependencies) {
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSConfig())
	e.Use(middleware.RequestValidation())
	e.Use(middleware.SelectiveTimeoutConfig(cfg.Server.ReadTimeout, enrichPath))

	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/live", handlers.LivenessHandler)
		health.GET("/ready", handlers.ReadinessHandler(deps.Tasks, deps.Browser, deps.Sink))
	}

	enrichTimeout := cfg.Enrichment.JobTimeout + 30*time.Second

	v1 := e.Group("/api/v1")
	{
		v1.POST("/enrich", handlers.EnrichHandler(deps.Enricher, deps.Logger), middleware.TimeoutConfig(enrichTimeout))
		v1.POST("/enrich/batch", handlers.BatchEnrichHandler(deps.Tasks, deps.Logger))

		tasks := v1.Group("/tasks")
		{
			tasks.GET("", handlers.ListTasksHandler(deps.Tasks))
			tasks.GET("/:id", handlers.TaskHandler(deps.Tasks))
		}

		v1.GET("/results/:jobId", handlers.ResultHandler(deps.Sink))
		v1.GET("/browser/metrics", handlers.BrowserMetricsHandler(deps.Browser, deps.Hosts))
	}

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "jobleads enrichment",
			"version": handlers.Version,
			"status":  "running",
		})
	})
}
