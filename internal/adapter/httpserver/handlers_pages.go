package httpserver

import (
	"github.com/OccupiedNine220/radiovecher/internal/dashboard"
	apperrors "github.com/OccupiedNine220/radiovecher/internal/platform/errors"
	"github.com/OccupiedNine220/radiovecher/internal/view"
	"github.com/labstack/echo/v4"
)

func (s *Server) handleIndex(c echo.Context) error {
	return s.renderPage(c, view.PageIndex, view.PageData{Title: "Servers"})
}

// handleQueue serves the shell of a server page; its content arrives over the WebSocket.
func (s *Server) handleQueue(c echo.Context) error {
	serverID := c.Param("serverID")
	if dashboard.NewSession("/queue/"+serverID).ActiveServerID != serverID {
		return apperrors.NotFoundError("unknown server").WithContext("server_id", serverID)
	}
	return s.renderPage(c, view.PageQueue, view.PageData{Title: "Queue", ServerID: serverID})
}
