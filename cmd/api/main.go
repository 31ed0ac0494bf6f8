// The api binary serves the HTTP transport: REST routes, health and
// metrics.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/mkamau/groundwork/internal/api"
	"github.com/mkamau/groundwork/internal/app"
	"github.com/mkamau/groundwork/internal/config"
	"github.com/mkamau/groundwork/internal/failure"
	"github.com/mkamau/groundwork/internal/logging"
	"github.com/mkamau/groundwork/internal/note"
)

func main() {
	logger := logging.Root()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	services, err := app.Init(ctx, cfg)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer services.Close(ctx)

	logger.Info("connected",
		"database_max_conns", cfg.Database.MaxConns,
		"redis_pool_size", cfg.Redis.PoolSize,
	)

	server := api.NewServer(api.ServerConfig{
		Normalizer:     failure.NewNormalizer(logging.Component("failure")),
		Checker:        services.Checker,
		Metrics:        services.Metrics,
		Notes:          note.NewStore(services.Pool),
		RequestTimeout: cfg.API.RequestTimeout,
	})

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	go func() {
		logger.Info("starting API server", "addr", cfg.API.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	app.WaitForShutdown()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
