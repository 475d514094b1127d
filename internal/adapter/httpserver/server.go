package httpserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/OccupiedNine220/radiovecher/internal/adapter/metrics"
	"github.com/OccupiedNine220/radiovecher/internal/dashboard"
	"github.com/OccupiedNine220/radiovecher/internal/notify"
	"github.com/OccupiedNine220/radiovecher/internal/platform/config"
	"github.com/OccupiedNine220/radiovecher/internal/view"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// PageController is the per-page state machine a WebSocket connection drives.
type PageController interface {
	Start()
	Stop()
	Execute(ctx context.Context, cmd dashboard.Command) error
}

// ControllerFactory creates the controller for the page at path; patches go to sink.
type ControllerFactory func(path string, sink notify.Sink) PageController

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Renderer      *view.Renderer
	NewController ControllerFactory
	Registry      *prometheus.Registry
	HTTPMetrics   *metrics.HTTPMetrics
	WSMetrics     *metrics.WebSocketMetrics
	HealthChecks  []HealthCheck
	Clock         clockwork.Clock
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	deps   Deps
	clock  clockwork.Clock

	upgrader    websocket.Upgrader
	connections *connectionLimiter
	startTime   time.Time
}

func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Renderer == nil || deps.NewController == nil {
		return nil, errors.New("renderer and controller factory are required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:   e,
		config: cfg,
		deps:   deps,
		clock:  clock,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     NewCheckOrigin(cfg.AppURL, cfg.IsDevelopment()),
		},
		connections: newConnectionLimiter(int64(cfg.MaxWebSocketConnections)),
		startTime:   clock.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP makes the server usable with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) renderPage(c echo.Context, name string, data view.PageData) error {
	var buf bytes.Buffer
	if err := s.deps.Renderer.Page(&buf, name, data); err != nil {
		slog.ErrorContext(c.Request().Context(), "Template execution failed", "path", c.Request().URL.Path, "error", err)
		if err := c.String(http.StatusInternalServerError, "Failed to render page"); err != nil {
			return fmt.Errorf("failed to send error response: %w", err)
		}
		return nil
	}
	if err := c.HTMLBlob(http.StatusOK, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send HTML response: %w", err)
	}
	return nil
}
