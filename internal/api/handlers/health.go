package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"jobscout/internal/jobstore"
	"jobscout/internal/logging"
	"jobscout/internal/monitor"
)

var startTime = time.Now()

// HealthResponse is the thin JSON envelope returned by the health surface.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler reports whether the process is up.
func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    time.Since(startTime).String(),
	})
}

// ReadinessHandler reports whether C2 is reachable, so an orchestrator
// can hold traffic until the job store is actually usable.
func ReadinessHandler(store *jobstore.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		checks := map[string]string{"jobstore": "ok"}
		status := "ready"
		httpStatus := http.StatusOK

		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if _, err := store.GetDeduplicationStats(ctx); err != nil {
			checks["jobstore"] = "unreachable"
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		}

		return c.JSON(httpStatus, HealthResponse{
			Status: status, Timestamp: time.Now(), Uptime: time.Since(startTime).String(), Checks: checks,
		})
	}
}

// LivenessHandler reports whether the process is still running its main
// loop; unlike ReadinessHandler it never checks external dependencies, so
// an orchestrator never restarts a process that is merely waiting on a
// slow dependency.
func LivenessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status: "alive", Timestamp: time.Now(), Uptime: time.Since(startTime).String(),
	})
}

// StatusHandler reports a coarse operational summary alongside C13's
// latest snapshot, for a single combined-status endpoint.
func StatusHandler(m *monitor.Monitor) echo.HandlerFunc {
	return func(c echo.Context) error {
		snapshot, alerts := m.Latest()
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "operational",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
			"snapshot":  snapshot,
			"alerts":    alerts,
		})
	}
}

// MonitorHandler exposes C13's latest snapshot and any open alerts, so an
// operator can poll match-quality health without waiting for the next
// scheduled cycle to log it.
func MonitorHandler(m *monitor.Monitor) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := logging.GetGlobalLogger()
		snapshot, alerts := m.Latest()
		logger.Debug("monitor snapshot requested", map[string]interface{}{
			"alerts": len(alerts),
		})
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now(),
			"snapshot":  snapshot,
			"alerts":    alerts,
		})
	}
}
