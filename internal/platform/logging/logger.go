package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/OccupiedNine220/radiovecher/internal/platform/correlation"
)

// Logger is the application-wide structured logger instance.
var Logger = slog.Default()

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitLogger initializes the global logger with the specified level and format.
// format: "json" or "text" (defaults to "text")
func InitLogger(level, format string) {
	Logger = New(os.Stdout, level, format)
	slog.SetDefault(Logger)
}

// New builds a correlation-aware logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(correlation.NewHandler(handler))
}

// WithServer returns a logger scoped to one bot server (guild).
func WithServer(serverID string) *slog.Logger {
	return Logger.With("server_id", serverID)
}
