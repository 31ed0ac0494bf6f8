// Package app provides shared bootstrap and lifecycle plumbing for
// the binaries under cmd/.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mkamau/groundwork/internal/config"
	"github.com/mkamau/groundwork/internal/health"
	"github.com/mkamau/groundwork/internal/logging"
	"github.com/mkamau/groundwork/internal/observability"
	"github.com/mkamau/groundwork/migrations"
)

// Services holds everything a binary needs after bootstrap.
type Services struct {
	Config  *config.Config
	Logger  *slog.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics
	Tracing *observability.Tracing
	Checker *health.Checker
}

// Init connects dependencies, applies migrations and builds the
// shared services. Callers own the returned Services and must Close
// them.
func Init(ctx context.Context, cfg *config.Config) (*Services, error) {
	logger := logging.Root()

	pool, err := ConnectPostgres(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(cfg.Database.URL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	redisClient, err := ConnectRedis(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	tracing, err := observability.NewTracing(ctx, observability.TracingConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Telemetry.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	checker := health.NewChecker().
		Add("postgres", pool.Ping).
		Add("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})

	return &Services{
		Config:  cfg,
		Logger:  logger,
		Pool:    pool,
		Redis:   redisClient,
		Metrics: observability.NewMetrics("groundwork"),
		Tracing: tracing,
		Checker: checker,
	}, nil
}

// Close releases all services.
func (s *Services) Close(ctx context.Context) {
	if s.Tracing != nil {
		_ = s.Tracing.Close(ctx)
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// ConnectPostgres opens a pgx pool and verifies connectivity.
func ConnectPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return pool, nil
}

// ConnectRedis opens a Redis client and verifies connectivity.
func ConnectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.URL,
		PoolSize:     cfg.Redis.PoolSize,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// RunMigrations applies all embedded migrations. An up-to-date schema
// is not an error.
func RunMigrations(databaseURL string) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open migration target: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// WaitForShutdown blocks until SIGINT or SIGTERM.
func WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}
