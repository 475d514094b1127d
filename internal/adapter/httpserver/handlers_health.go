package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/OccupiedNine220/radiovecher/internal/platform/version"
	"github.com/labstack/echo/v4"
)

const (
	startupProbeTimeout   = 2 * time.Second
	readinessProbeTimeout = 5 * time.Second
)

// HealthCheck is a named health check function. Startup-only checks are
// skipped by the readiness probe.
type HealthCheck struct {
	Name        string
	Check       func(ctx context.Context) error
	StartupOnly bool
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleStartup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), startupProbeTimeout)
	defer cancel()

	return s.runHealthChecks(ctx, c, true)
}

func (s *Server) handleLiveness(c echo.Context) error {
	response := map[string]any{
		"status":      "ok",
		"uptime":      s.clock.Since(s.startTime).Seconds(),
		"connections": s.connections.Current(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}

	return nil
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessProbeTimeout)
	defer cancel()

	return s.runHealthChecks(ctx, c, false)
}

func (s *Server) runHealthChecks(ctx context.Context, c echo.Context, startup bool) error {
	checks := make(map[string]string, len(s.deps.HealthChecks))
	for _, hc := range s.deps.HealthChecks {
		if hc.StartupOnly && !startup {
			continue
		}
		err := hc.Check(ctx)
		if err == nil {
			checks[hc.Name] = "ok"
			continue
		}

		response := map[string]any{
			"status":       "unhealthy",
			"failed_check": hc.Name,
			"error":        err.Error(),
		}
		if err := c.JSON(http.StatusServiceUnavailable, response); err != nil {
			return fmt.Errorf("failed to send JSON response: %w", err)
		}
		return nil
	}

	if err := c.JSON(http.StatusOK, map[string]any{"status": "ready", "checks": checks}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
