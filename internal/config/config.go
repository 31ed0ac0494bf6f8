// Package config loads application configuration from the
// environment. Every knob has a default except the database URL, so a
// bare `DATABASE_URL=... ./api` is enough to boot the template.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

const (
	// DefaultBusConcurrency is the default number of bus worker
	// goroutines.
	DefaultBusConcurrency = 4

	// DefaultBusMaxAttempts is how many deliveries a bus command gets
	// before it is dropped.
	DefaultBusMaxAttempts = 3

	// DefaultCallTimeout is how long a bus client waits for a reply.
	DefaultCallTimeout = 5 * time.Second
)

// Config holds all application configuration.
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	API       APIConfig
	Bus       BusConfig
	Telemetry TelemetryConfig
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// BusConfig holds message-bus worker settings.
type BusConfig struct {
	Concurrency     int
	MaxAttempts     int
	CallTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// TelemetryConfig holds tracing settings. Metrics are always on; the
// OTLP exporter is only wired when an endpoint is set.
type TelemetryConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	SampleRate     float64
}

// Validation errors.
var (
	ErrDatabaseURLRequired = errors.New("DATABASE_URL environment variable is required")
	ErrBusConcurrency      = errors.New("BUS_CONCURRENCY must be at least 1")
)

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	if cfg.Database.URL == "" {
		return nil, ErrDatabaseURLRequired
	}
	cfg.Database.MaxConns = int32(getEnvInt("DATABASE_MAX_CONNS", 20))
	cfg.Database.MinConns = int32(getEnvInt("DATABASE_MIN_CONNS", 2))
	cfg.Database.MaxConnLifetime = getEnvDuration("DATABASE_MAX_CONN_LIFETIME", 1*time.Hour)
	cfg.Database.MaxConnIdleTime = getEnvDuration("DATABASE_MAX_CONN_IDLE_TIME", 30*time.Minute)

	cfg.Redis.URL = getEnv("REDIS_URL", "localhost:6379")
	cfg.Redis.PoolSize = getEnvInt("REDIS_POOL_SIZE", 20)
	cfg.Redis.ReadTimeout = getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second)
	cfg.Redis.WriteTimeout = getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second)

	cfg.API.Addr = getEnv("API_ADDR", ":8080")
	cfg.API.ReadTimeout = getEnvDuration("API_READ_TIMEOUT", 15*time.Second)
	cfg.API.WriteTimeout = getEnvDuration("API_WRITE_TIMEOUT", 15*time.Second)
	cfg.API.IdleTimeout = getEnvDuration("API_IDLE_TIMEOUT", 60*time.Second)
	cfg.API.RequestTimeout = getEnvDuration("API_REQUEST_TIMEOUT", 30*time.Second)
	cfg.API.ShutdownTimeout = getEnvDuration("API_SHUTDOWN_TIMEOUT", 30*time.Second)

	cfg.Bus.Concurrency = getEnvInt("BUS_CONCURRENCY", DefaultBusConcurrency)
	if cfg.Bus.Concurrency < 1 {
		return nil, ErrBusConcurrency
	}
	cfg.Bus.MaxAttempts = getEnvInt("BUS_MAX_ATTEMPTS", DefaultBusMaxAttempts)
	cfg.Bus.CallTimeout = getEnvDuration("BUS_CALL_TIMEOUT", DefaultCallTimeout)
	cfg.Bus.ShutdownTimeout = getEnvDuration("BUS_SHUTDOWN_TIMEOUT", 30*time.Second)

	cfg.Telemetry.ServiceName = getEnv("SERVICE_NAME", "groundwork")
	cfg.Telemetry.ServiceVersion = getEnv("SERVICE_VERSION", "dev")
	cfg.Telemetry.Environment = getEnv("ENVIRONMENT", "development")
	cfg.Telemetry.OTLPEndpoint = os.Getenv("OTLP_ENDPOINT")
	cfg.Telemetry.SampleRate = getEnvFloat("TRACE_SAMPLE_RATE", 1.0)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
