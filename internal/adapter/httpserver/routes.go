package httpserver

import (
	"log/slog"

	"github.com/OccupiedNine220/radiovecher/internal/adapter/metrics"
	"github.com/OccupiedNine220/radiovecher/web"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Upgrades are rate limited per IP; actions inside a connection have their own limiter.
const (
	upgradeRatePerSecond = 1.0
	upgradeBurst         = 10
)

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	if s.deps.HTTPMetrics != nil {
		s.echo.Use(s.deps.HTTPMetrics.Middleware())
	}
	s.echo.Use(ErrorHandlingMiddleware())
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         63072000, // 2 years; only sent over HTTPS
		HSTSPreloadEnabled: true,
		ContentSecurityPolicy: "default-src 'self'; " +
			"script-src 'self' https://cdn.jsdelivr.net; " +
			"style-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net; " +
			"font-src 'self' https://cdn.jsdelivr.net; " +
			"img-src 'self' https: data:; " +
			"connect-src 'self'; " +
			"frame-ancestors 'none'",
		ReferrerPolicy: "strict-origin-when-cross-origin",
	}))

	s.echo.GET("/", s.handleIndex)
	s.echo.GET("/queue/:serverID", s.handleQueue)
	s.echo.StaticFS("/static", echo.MustSubFS(web.StaticFiles, "static"))
	s.echo.GET("/ws", s.handleWebSocket, newRateLimiter(upgradeRatePerSecond, upgradeBurst))

	s.registerHealthRoutes()

	if s.deps.Registry != nil {
		s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler(s.deps.Registry)))
	}
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}
