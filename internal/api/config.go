// Package api provides the HTTP server for the AquaPredict service.
// The server owns the echo instance and middleware; the JSON endpoints live
// on the Controller in handlers.go.
package api

import (
	"fmt"
	"sync"
	"time"

	"github.com/labstack/gommon/bytes"

	"github.com/aquapredict/aquapredict-go/internal/conf"
	"github.com/aquapredict/aquapredict-go/internal/logger"
)

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("api")
	})
	return serviceLogger
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBodyLimit       = "1M"

	// APIPrefix is the group all JSON endpoints are served under.
	APIPrefix = "/api/v2"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Server binding
	Host string // Host to bind to (empty for all interfaces)
	Port int

	// Security settings
	AllowedOrigins []string // CORS allowed origins, empty disables CORS

	// Per-client rate limiting, RateLimit 0 disables it
	RateLimit float64
	RateBurst int

	// Timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Limits
	BodyLimit string // Maximum request body size (e.g., "1M", "10M")

	// LegacyRoutes also registers every endpoint at the unversioned root path
	LegacyRoutes bool

	// MetricsPath serves Prometheus metrics on this server; empty disables it
	MetricsPath string

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            5000,
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       DefaultBodyLimit,
		LegacyRoutes:    true,
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()

	cfg.Host = settings.Server.Host
	cfg.Port = settings.Server.Port
	cfg.AllowedOrigins = settings.Server.CORSOrigins
	cfg.RateLimit = settings.Server.RateLimit
	cfg.RateBurst = settings.Server.RateBurst
	cfg.LegacyRoutes = settings.Server.LegacyRoutes
	cfg.Debug = settings.Debug

	if settings.Server.BodyLimit != "" {
		cfg.BodyLimit = settings.Server.BodyLimit
	}
	if settings.Server.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = settings.Server.ShutdownTimeout
	}

	// A separate listener takes over metrics from the API server
	if settings.Metrics.Enabled && settings.Metrics.Listen == "" {
		cfg.MetricsPath = settings.Metrics.Path
	}

	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", c.Port)
	}

	if _, err := bytes.Parse(c.BodyLimit); err != nil {
		return fmt.Errorf("invalid body limit %q: %w", c.BodyLimit, err)
	}

	if c.RateLimit < 0 || c.RateBurst < 0 {
		return fmt.Errorf("rate limit and burst must not be negative")
	}

	// Validate timeouts
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}

	return nil
}

// Address returns the full address string for the server to listen on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	rate := "disabled"
	if c.RateLimit > 0 {
		rate = fmt.Sprintf("%.1f/s burst %d", c.RateLimit, c.RateBurst)
	}
	return fmt.Sprintf("Server Config: address=%s, rate=%s, legacy_routes=%v, debug=%v",
		c.Address(), rate, c.LegacyRoutes, c.Debug)
}
