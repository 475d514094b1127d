package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/OccupiedNine220/radiovecher/internal/dashboard"
	"github.com/OccupiedNine220/radiovecher/internal/platform/correlation"
	apperrors "github.com/OccupiedNine220/radiovecher/internal/platform/errors"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const maxActionBytes = 4096

// handleWebSocket binds one browser page to a dashboard controller: patches
// flow out through a patchWriter, actions flow in through the read loop.
func (s *Server) handleWebSocket(c echo.Context) error {
	if !s.connections.Acquire() {
		if s.deps.WSMetrics != nil {
			s.deps.WSMetrics.RejectedTotal.Inc()
		}
		return echo.NewHTTPError(http.StatusServiceUnavailable, "too many connections")
	}
	defer s.connections.Release()

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		slog.DebugContext(c.Request().Context(), "WebSocket upgrade failed", "error", err)
		return nil
	}

	if s.deps.WSMetrics != nil {
		s.deps.WSMetrics.ActiveConnections.Inc()
		defer s.deps.WSMetrics.ActiveConnections.Dec()
	}

	path := c.QueryParam("path")
	writer := newPatchWriter(conn, s.clock, s.deps.WSMetrics)
	ctrl := s.deps.NewController(path, writer.send)
	ctrl.Start()

	var inflight sync.WaitGroup
	defer writer.stop("page closed")
	defer inflight.Wait()
	defer ctrl.Stop()

	slog.DebugContext(c.Request().Context(), "Dashboard page connected", "path", path)
	s.readActions(conn, ctrl, &inflight)
	return nil
}

// readActions decodes browser actions until the connection fails. Each action
// runs in its own goroutine; the controller serializes their effects.
func (s *Server) readActions(conn *websocket.Conn, ctrl PageController, inflight *sync.WaitGroup) {
	conn.SetReadLimit(maxActionBytes)
	limiter := rate.NewLimiter(rate.Limit(s.config.ActionRatePerSecond), s.config.ActionBurst)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("WebSocket read failed", "error", err)
			}
			return
		}

		var cmd dashboard.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			slog.Debug("Ignoring malformed action", "error", err)
			continue
		}
		if !limiter.Allow() {
			if s.deps.WSMetrics != nil {
				s.deps.WSMetrics.ActionsThrottled.Inc()
			}
			continue
		}
		if s.deps.WSMetrics != nil {
			label := string(cmd.Action)
			if !cmd.Action.Known() {
				label = "unknown"
			}
			s.deps.WSMetrics.ActionsReceived.WithLabelValues(label).Inc()
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			s.execute(ctrl, cmd)
		}()
	}
}

func (s *Server) execute(ctrl PageController, cmd dashboard.Command) {
	ctx := correlation.WithID(context.Background(), correlation.NewID())
	err := ctrl.Execute(ctx, cmd)
	switch {
	case err == nil:
	case apperrors.IsType(err, apperrors.TypeValidation):
		slog.DebugContext(ctx, "Action not sent", "action", cmd.Action, "error", err)
	default:
		// The controller has already shown a toast for rejections and transport failures.
		slog.DebugContext(ctx, "Action failed", "action", cmd.Action, "error", err)
	}
}
