// Package config provides application configuration through environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	validation "github.com/jellydator/validation"
	"github.com/joho/godotenv"

	cryptoDomain "github.com/allisson/keymanager/internal/crypto/domain"
)

// Config holds all application configuration.
type Config struct {
	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string
	// LogFormat selects the slog handler: "text" or "json".
	LogFormat string

	// KeyIdleTimeout is how long a loaded key may go unused before its secret is discarded.
	KeyIdleTimeout time.Duration
	// WatchdogInterval is the time between two idle checks.
	WatchdogInterval time.Duration

	// DataDir holds the content digest of every saved key.
	DataDir string
	// ContainerKDF is the key derivation used when protecting new containers.
	ContainerKDF cryptoDomain.KDF

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the prefix of every metric name.
	MetricsNamespace string
	// MetricsHost is the address the metrics server binds to.
	MetricsHost string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int

	// CORSEnabled indicates whether CORS is enabled on the status server.
	CORSEnabled bool
	// CORSAllowOrigins is a comma-separated list of allowed origins for CORS.
	CORSAllowOrigins string

	// RateLimitEnabled indicates whether the status server is rate limited.
	RateLimitEnabled bool
	// RateLimitRequestsPerSec is the number of requests allowed per second.
	RateLimitRequestsPerSec float64
	// RateLimitBurst is the burst size of the rate limiter.
	RateLimitBurst int

	// ShutdownTimeout bounds graceful shutdown of the agent.
	ShutdownTimeout time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	loadDotEnv()

	return &Config{
		// Logging
		LogLevel:  env.GetString("LOG_LEVEL", "info"),
		LogFormat: env.GetString("LOG_FORMAT", "text"),

		// Key lifecycle
		KeyIdleTimeout:   env.GetDuration("KEY_IDLE_TIMEOUT_SECONDS", 1800, time.Second),
		WatchdogInterval: env.GetDuration("WATCHDOG_INTERVAL_SECONDS", 1, time.Second),

		// Storage
		DataDir:      env.GetString("DATA_DIR", defaultDataDir()),
		ContainerKDF: cryptoDomain.KDF(env.GetString("CONTAINER_KDF", string(cryptoDomain.KDFLegacy))),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "keymanager"),
		MetricsHost:      env.GetString("METRICS_HOST", "127.0.0.1"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),

		// CORS
		CORSEnabled:      env.GetBool("CORS_ENABLED", false),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		// Rate limiting
		RateLimitEnabled:        env.GetBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequestsPerSec: env.GetFloat64("RATE_LIMIT_REQUESTS_PER_SEC", 10.0),
		RateLimitBurst:          env.GetInt("RATE_LIMIT_BURST", 20),

		ShutdownTimeout: env.GetDuration("SHUTDOWN_TIMEOUT_SECONDS", 10, time.Second),
	}
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.LogFormat, validation.In("text", "json")),
		validation.Field(&c.KeyIdleTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.WatchdogInterval, validation.Required, validation.Min(10*time.Millisecond)),
		validation.Field(&c.DataDir, validation.Required),
		validation.Field(&c.ContainerKDF, validation.In(cryptoDomain.KDFLegacy, cryptoDomain.KDFArgon2id)),
		validation.Field(&c.MetricsNamespace, validation.When(c.MetricsEnabled, validation.Required)),
		validation.Field(&c.MetricsPort, validation.When(c.MetricsEnabled, validation.Min(1), validation.Max(65535))),
		validation.Field(&c.CORSAllowOrigins, validation.When(c.CORSEnabled, validation.Required)),
		validation.Field(&c.RateLimitRequestsPerSec, validation.When(c.RateLimitEnabled, validation.Required, validation.Min(0.0))),
		validation.Field(&c.RateLimitBurst, validation.When(c.RateLimitEnabled, validation.Required, validation.Min(1))),
		validation.Field(&c.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// MetricsAddr returns the host:port the metrics server listens on.
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.MetricsHost, c.MetricsPort)
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	if c.LogLevel == "debug" {
		return "debug"
	}
	return "release"
}

// defaultDataDir is <user config dir>/keymanager, falling back to a dot directory
// in the working directory when no config dir can be determined.
func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".keymanager"
	}
	return filepath.Join(dir, "keymanager")
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}
