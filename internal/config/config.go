// Package config loads and validates the relay's runtime settings from the
// environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 8765
	defaultMaxMessageSize  = 1 << 20
	defaultWriteTimeout    = 10 * time.Second
	defaultPingInterval    = 54 * time.Second
	defaultPongTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// RateLimitConfig defines per-connection inbound message throttling.
// A Burst of zero disables rate limiting.
type RateLimitConfig struct {
	Burst     int     `env:"RATE_LIMIT_BURST" default:"0"`
	PerSecond float64 `env:"RATE_LIMIT_PER_SECOND" default:"0"`
}

// Enabled reports whether inbound messages are throttled.
func (c RateLimitConfig) Enabled() bool {
	return c.Burst > 0
}

// Config holds the relay configuration.
type Config struct {
	Host           string   `env:"SERVER_HOST" default:"0.0.0.0"`
	Port           int      `env:"SERVER_PORT" default:"8765"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" default:"*"`

	// MaxMessageSize bounds a single inbound frame in bytes.
	MaxMessageSize int64 `env:"MAX_MESSAGE_SIZE" default:"1048576"`

	// MaxConnections caps concurrent sessions, counted from the upgrade until
	// the session ends; zero means unlimited.
	MaxConnections int `env:"MAX_CONNECTIONS" default:"0"`

	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" default:"10s"`
	// PingInterval of zero disables keepalive pings and read deadlines.
	PingInterval time.Duration `env:"PING_INTERVAL" default:"54s"`
	PongTimeout  time.Duration `env:"PONG_TIMEOUT" default:"60s"`

	RateLimit RateLimitConfig

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// Default returns a Config populated with default values for all settings.
func Default() *Config {
	return &Config{
		Host:            defaultHost,
		Port:            defaultPort,
		AllowedOrigins:  []string{"*"},
		MaxMessageSize:  defaultMaxMessageSize,
		WriteTimeout:    defaultWriteTimeout,
		PingInterval:    defaultPingInterval,
		PongTimeout:     defaultPongTimeout,
		ShutdownTimeout: defaultShutdownTimeout,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; variables already set in
// the environment take precedence over it. A .env file that exists but
// cannot be parsed is an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Sanitize replaces unusable values with defaults and trims list entries.
func (c *Config) Sanitize() {
	if strings.TrimSpace(c.Host) == "" {
		c.Host = defaultHost
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	if c.MaxConnections < 0 {
		c.MaxConnections = 0
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.PingInterval < 0 {
		c.PingInterval = 0
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = defaultPongTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.RateLimit.Burst < 0 {
		c.RateLimit.Burst = 0
	}

	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, origin := range c.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.AllowedOrigins = origins

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

// Validate reports settings that cannot be corrected by Sanitize.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.PingInterval > 0 && c.PongTimeout <= c.PingInterval {
		return fmt.Errorf("PONG_TIMEOUT (%s) must be longer than PING_INTERVAL (%s)", c.PongTimeout, c.PingInterval)
	}
	if c.RateLimit.Enabled() && c.RateLimit.PerSecond <= 0 {
		return errors.New("RATE_LIMIT_PER_SECOND must be positive when RATE_LIMIT_BURST is set")
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be \"text\" or \"json\", got %q", c.LogFormat)
	}
	return nil
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
