// The worker binary serves the message transport: it consumes bus
// commands and replies over Redis.
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/google/uuid"

	"github.com/mkamau/groundwork/internal/app"
	"github.com/mkamau/groundwork/internal/bus"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := app.Init(ctx, cfg)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer services.Close(context.Background())

	normalizer := failure.NewNormalizer(logging.Component("failure"))
	worker := bus.NewWorker(services.Redis, normalizer, bus.WorkerConfig{
		Concurrency: cfg.Bus.Concurrency,
		MaxAttempts: cfg.Bus.MaxAttempts,
		Metrics:     services.Metrics,
	})

	notes := note.NewStore(services.Pool)
	registerHandlers(worker, services, notes)

	worker.Start(ctx)
	logger.Info("worker started", "concurrency", cfg.Bus.Concurrency)

	app.WaitForShutdown()
	logger.Info("shutting down worker")

	if err := worker.StopAndWait(cfg.Bus.ShutdownTimeout); err != nil {
		logger.Error("worker shutdown error", "error", err)
	}
	cancel()
	logger.Info("worker stopped")
}

func registerHandlers(worker *bus.Worker, services *app.Services, notes *note.Store) {
	worker.Handle("health.check", func(ctx context.Context, _ json.RawMessage) (any, error) {
		return services.Checker.Check(ctx), nil
	})

	worker.Handle("note.create", func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, failure.NewDomain("invalid command payload")
		}

		n := note.New(req.Title, req.Body)
		if err := n.Validate(); err != nil {
			return nil, err
		}
		return notes.Create(ctx, n)
	})

	worker.Handle("note.get", func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, failure.NewDomain("invalid command payload")
		}

		id, err := uuid.Parse(req.ID)
		if err != nil {
			return nil, failure.NewDomain("invalid note id")
		}
		return notes.GetByID(ctx, id)
	})
}
