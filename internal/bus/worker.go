package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkamau/groundwork/internal/failure"
	"github.com/mkamau/groundwork/internal/observability"
)

// Handler processes one command payload and returns a result to send
// back, or an error to be normalized into the reply envelope.
type Handler func(ctx context.Context, payload json.RawMessage) (any, error)

// WorkerConfig holds worker configuration.
type WorkerConfig struct {
	Concurrency int
	MaxAttempts int
	Metrics     *observability.Metrics
}

// DefaultWorkerConfig returns the default worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Concurrency: 4,
		MaxAttempts: 3,
	}
}

// Worker consumes commands, dispatches them to registered handlers,
// and replies with either the handler result or a normalized failure
// envelope. A failed command is still nacked after the error reply so
// the bus retry policy applies; the failure is never swallowed.
type Worker struct {
	client          *redis.Client
	normalizer      *failure.Normalizer
	handlers        map[string]Handler
	metrics         *observability.Metrics
	concurrency     int
	maxAttempts     int
	blockingTimeout time.Duration
	stopCh          chan struct{}
	wg              sync.WaitGroup
}

// NewWorker creates a bus worker. Handlers are registered with Handle
// before Start.
func NewWorker(client *redis.Client, normalizer *failure.Normalizer, cfg WorkerConfig) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultWorkerConfig().Concurrency
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = DefaultWorkerConfig().MaxAttempts
	}
	return &Worker{
		client:          client,
		normalizer:      normalizer,
		handlers:        make(map[string]Handler),
		metrics:         cfg.Metrics,
		concurrency:     cfg.Concurrency,
		maxAttempts:     cfg.MaxAttempts,
		blockingTimeout: defaultBlockingTimeout,
		stopCh:          make(chan struct{}),
	}
}

// Handle registers a handler for a command name.
func (w *Worker) Handle(name string, h Handler) {
	w.handlers[name] = h
}

// Start begins consuming commands.
func (w *Worker) Start(ctx context.Context) {
	log.Info("bus worker started", "concurrency", w.concurrency, "commands", len(w.handlers))

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.consumeLoop(ctx)
		}()
	}
}

// Stop signals the worker to stop consuming.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// StopAndWait stops the worker and waits for in-flight commands.
func (w *Worker) StopAndWait(timeout time.Duration) error {
	w.Stop()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.New("timed out waiting for bus worker shutdown")
	}
}

func (w *Worker) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		raw, err := w.client.BRPopLPush(ctx, commandsKey, processingKey, w.blockingTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("failed to dequeue command", "error", err)
			continue
		}

		var cmd Command
		if err := json.Unmarshal([]byte(raw), &cmd); err != nil {
			// Poison payload: drop it, nothing to reply to.
			log.Error("failed to decode command", "error", err)
			w.ack(ctx, raw)
			continue
		}

		if err := w.process(ctx, cmd); err != nil {
			w.nack(ctx, raw, cmd)
		} else {
			w.ack(ctx, raw)
		}
	}
}

// process runs the command handler and sends the reply. The returned
// error mirrors the handler failure so the caller can nack; the reply
// containing the failure envelope has already been delivered.
func (w *Worker) process(ctx context.Context, cmd Command) error {
	handler, ok := w.handlers[cmd.Name]

	var (
		result any
		raised any
	)
	if !ok {
		raised = failure.NewDomainStatus(http.StatusNotFound, "unknown command: "+cmd.Name)
	} else {
		result, raised = invoke(ctx, handler, cmd.Payload)
	}

	if raised != nil {
		env := w.normalizer.Normalize(raised, failure.TransportMessage)
		w.reply(ctx, cmd, Reply{OK: false, Error: &env})
		if w.metrics != nil {
			w.metrics.BusCommand(cmd.Name, "error")
			w.metrics.Failure(failure.TransportMessage.String(), env.StatusCode)
		}
		if err, ok := raised.(error); ok {
			return err
		}
		return fmt.Errorf("handler panic: %v", raised)
	}

	data, err := json.Marshal(result)
	if err != nil {
		env := w.normalizer.Normalize(err, failure.TransportMessage)
		w.reply(ctx, cmd, Reply{OK: false, Error: &env})
		if w.metrics != nil {
			w.metrics.BusCommand(cmd.Name, "error")
			w.metrics.Failure(failure.TransportMessage.String(), env.StatusCode)
		}
		return err
	}

	w.reply(ctx, cmd, Reply{OK: true, Result: data})
	if w.metrics != nil {
		w.metrics.BusCommand(cmd.Name, "ok")
	}
	log.Debug("command handled", "command", cmd.Name, "command_id", cmd.ID)
	return nil
}

// invoke runs the handler, converting a panic into a raised value so
// the normalizer's unclassified branch deals with it.
func invoke(ctx context.Context, h Handler, payload json.RawMessage) (result any, raised any) {
	defer func() {
		if r := recover(); r != nil {
			raised = r
		}
	}()

	result, err := h(ctx, payload)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (w *Worker) reply(ctx context.Context, cmd Command, r Reply) {
	if cmd.ReplyTo == "" {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		log.Error("failed to marshal reply", "command_id", cmd.ID, "error", err)
		return
	}

	pipe := w.client.Pipeline()
	pipe.LPush(ctx, cmd.ReplyTo, data)
	pipe.Expire(ctx, cmd.ReplyTo, replyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error("failed to send reply", "command_id", cmd.ID, "error", err)
	}
}

func (w *Worker) ack(ctx context.Context, raw string) {
	if err := w.client.LRem(ctx, processingKey, 1, raw).Err(); err != nil {
		log.Error("failed to ack command", "error", err)
	}
}

// nack removes the command from the processing list and requeues it
// with one more attempt on its count, until the budget is spent.
func (w *Worker) nack(ctx context.Context, raw string, cmd Command) {
	w.ack(ctx, raw)

	cmd.Attempts++
	if cmd.Attempts >= w.maxAttempts {
		log.Warn("command dropped after max attempts",
			"command", cmd.Name,
			"command_id", cmd.ID,
			"attempts", cmd.Attempts,
		)
		return
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		log.Error("failed to marshal command for redelivery", "command_id", cmd.ID, "error", err)
		return
	}
	if err := w.client.LPush(ctx, commandsKey, data).Err(); err != nil {
		log.Error("failed to requeue command", "command_id", cmd.ID, "error", err)
	}
}
