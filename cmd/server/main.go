package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OccupiedNine220/radiovecher/internal/adapter/botapi"
	"github.com/OccupiedNine220/radiovecher/internal/adapter/httpserver"
	"github.com/OccupiedNine220/radiovecher/internal/adapter/metrics"
	"github.com/OccupiedNine220/radiovecher/internal/catalog"
	"github.com/OccupiedNine220/radiovecher/internal/dashboard"
	"github.com/OccupiedNine220/radiovecher/internal/notify"
	"github.com/OccupiedNine220/radiovecher/internal/platform/config"
	"github.com/OccupiedNine220/radiovecher/internal/platform/logging"
	"github.com/OccupiedNine220/radiovecher/internal/platform/version"
	"github.com/OccupiedNine220/radiovecher/internal/pushchannel"
	"github.com/OccupiedNine220/radiovecher/internal/view"
	"github.com/jonboulle/clockwork"
)

const catalogEvictionInterval = time.Minute

func runGracefulShutdown(srv *httpserver.Server, stopListener context.CancelFunc, listenerDone <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopListener()
		select {
		case <-listenerDone:
		case <-shutdownCtx.Done():
			slog.Warn("Push listener did not stop in time")
		}

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func startListener(cfg *config.Config, hub *pushchannel.Hub, clock clockwork.Clock, m *metrics.PushMetrics) (*pushchannel.Listener, context.CancelFunc, <-chan struct{}) {
	endpoint, err := pushchannel.EndpointURL(cfg.BotPushURL)
	if err != nil {
		slog.Error("Invalid push channel URL", "error", err)
		os.Exit(1)
	}

	listener := pushchannel.NewListener(endpoint, hub, clock, m)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := listener.Run(ctx); err != nil {
			slog.Error("Push listener stopped", "error", err)
		}
	}()
	return listener, cancel, done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Version, "bot_api", cfg.BotAPIURL)

	registry := metrics.NewRegistry()
	commandMetrics := metrics.NewCommandMetrics(registry)

	api := botapi.NewClient(cfg.BotAPIURL, cfg.BotAPITimeout, metrics.NewBotAPIMetrics(registry))

	radios := catalog.NewCache(api, cfg.CatalogTTL, clock, metrics.NewCacheMetrics(registry))
	stopEviction := radios.StartEvictionTimer(catalogEvictionInterval)
	defer stopEviction()

	pushMetrics := metrics.NewPushMetrics(registry)
	hub := pushchannel.NewHub(pushMetrics)
	listener, stopListener, listenerDone := startListener(cfg, hub, clock, pushMetrics)

	renderer, err := view.NewRenderer()
	if err != nil {
		slog.Error("Failed to parse templates", "error", err)
		os.Exit(1)
	}

	deps := dashboard.Deps{
		API:      api,
		Radios:   radios,
		Hub:      hub,
		Renderer: renderer,
		Clock:    clock,
		Metrics:  commandMetrics,
	}

	srv, err := httpserver.NewServer(cfg, httpserver.Deps{
		Renderer: renderer,
		NewController: func(path string, sink notify.Sink) httpserver.PageController {
			return dashboard.NewController(path, deps, sink)
		},
		Registry:    registry,
		HTTPMetrics: metrics.NewHTTPMetrics(registry),
		WSMetrics:   metrics.NewWebSocketMetrics(registry),
		Clock:       clock,
		HealthChecks: []httpserver.HealthCheck{
			{Name: "push_channel", Check: func(context.Context) error {
				if !listener.Connected() {
					return errors.New("push channel not connected")
				}
				return nil
			}},
			{Name: "bot_api", StartupOnly: true, Check: func(ctx context.Context) error {
				_, err := api.ListServers(ctx)
				return err
			}},
		},
	})
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv, stopListener, listenerDone)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
