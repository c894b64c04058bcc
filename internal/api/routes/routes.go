package routes

import (
	"jobscout/internal/api/handlers"
	"jobscout/internal/api/middleware"
	"jobscout/internal/config"
	"jobscout/internal/jobstore"
	"jobscout/internal/matcher"
	"jobscout/internal/monitor"
	"jobscout/internal/pipeline"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

// SetupRoutes configures the thin HTTP surface in front of C7/C12/C13
// (spec §1: explicitly out-of-scope glue, kept minimal).
func SetupRoutes(e *echo.Echo, cfg *config.Config, store *jobstore.Store, p *pipeline.Pipeline, m *matcher.Matcher, mon *monitor.Monitor) {
	// Global middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSConfig())
	e.Use(middleware.RequestValidation())
	e.Use(middleware.TimeoutConfig(cfg.Server.ReadTimeout))

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(store))
		health.GET("/live", handlers.LivenessHandler)
	}

	// Status and monitor routes
	e.GET("/status", handlers.StatusHandler(mon))
	e.GET("/monitor", handlers.MonitorHandler(mon))

	// API v1 routes
	v1 := e.Group("/api/v1")
	{
		v1.POST("/match", handlers.MatchHandler(m))
		v1.POST("/extract", handlers.ExtractHandler(p))
	}

	// Root route
	e.GET("/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"service": cfg.App.Name,
			"version": "1.0.0",
			"status":  "running",
		})
	})
}
