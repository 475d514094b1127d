package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	AppURL    string `env:"APP_URL" default:"http://localhost:8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	BotAPIURL     string        `env:"BOT_API_URL"`
	BotPushURL    string        `env:"BOT_PUSH_URL"`
	BotAPITimeout time.Duration `env:"BOT_API_TIMEOUT" default:"5s"`

	MaxWebSocketConnections int     `env:"MAX_WEBSOCKET_CONNECTIONS" default:"1000"`
	ActionRatePerSecond     float64 `env:"ACTION_RATE_PER_SECOND" default:"5"`
	ActionBurst             int     `env:"ACTION_BURST" default:"10"`

	CatalogTTL time.Duration `env:"CATALOG_TTL" default:"1m"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if cfg.BotPushURL == "" {
		cfg.BotPushURL = cfg.BotAPIURL
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.BotAPIURL == "" {
		return errors.New("BOT_API_URL is required")
	}
	if err := validateURL("BOT_API_URL", cfg.BotAPIURL); err != nil {
		return err
	}
	if err := validateURL("BOT_PUSH_URL", cfg.BotPushURL); err != nil {
		return err
	}

	if cfg.BotAPITimeout <= 0 {
		return errors.New("BOT_API_TIMEOUT must be positive")
	}
	if cfg.MaxWebSocketConnections < 1 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS must be at least 1")
	}
	if cfg.ActionRatePerSecond <= 0 || cfg.ActionBurst < 1 {
		return errors.New("ACTION_RATE_PER_SECOND and ACTION_BURST must be positive")
	}
	if cfg.CatalogTTL < 0 {
		return errors.New("CATALOG_TTL must not be negative")
	}

	return nil
}

func validateURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s must be a valid URL: %w", name, err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("%s must use http, https, ws or wss, got %q", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
