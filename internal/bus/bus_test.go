package bus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkamau/groundwork/internal/failure"
)

func setupBus(t *testing.T) (*Client, *Worker) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	normalizer := failure.NewNormalizer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	worker := NewWorker(client, normalizer, WorkerConfig{Concurrency: 2, MaxAttempts: 3})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return NewClient(client).WithCallTimeout(3 * time.Second), worker
}

func startWorker(t *testing.T, w *Worker) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	t.Cleanup(func() {
		_ = w.StopAndWait(5 * time.Second)
		cancel()
	})
}

func TestCall_Roundtrip(t *testing.T) {
	client, worker := setupBus(t)

	worker.Handle("echo", func(_ context.Context, payload json.RawMessage) (any, error) {
		var in map[string]string
		if err := json.Unmarshal(payload, &in); err != nil {
			return nil, err
		}
		return in, nil
	})
	startWorker(t, worker)

	result, err := client.Call(context.Background(), "echo", map[string]string{"hello": "world"})
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, json.Unmarshal(result, &out))
	assert.Equal(t, "world", out["hello"])
}

func TestCall_DomainFailureCrossesBus(t *testing.T) {
	client, worker := setupBus(t)

	worker.Handle("note.get", func(context.Context, json.RawMessage) (any, error) {
		return nil, failure.NewDomainStatus(http.StatusForbidden, "Resource disabled")
	})
	startWorker(t, worker)

	_, err := client.Call(context.Background(), "note.get", nil)
	require.Error(t, err)

	var fe *failure.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusForbidden, fe.Envelope.StatusCode)
	assert.Equal(t, "Resource disabled", fe.Envelope.Message)
	assert.Equal(t, []string{"Resource disabled"}, fe.Envelope.Errors)
	// No HTTP context on the message transport.
	assert.Empty(t, fe.Envelope.Path)
	assert.Empty(t, fe.Envelope.Method)
}

func TestCall_ValidationFailureKeepsAllMessages(t *testing.T) {
	client, worker := setupBus(t)
	messages := []string{
		"test must not be empty",
		"test must be at least 5 characters long",
	}

	worker.Handle("note.create", func(context.Context, json.RawMessage) (any, error) {
		return nil, failure.NewValidation(messages...)
	})
	startWorker(t, worker)

	_, err := client.Call(context.Background(), "note.create", nil)

	var fe *failure.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusBadRequest, fe.Envelope.StatusCode)
	assert.Equal(t, "Validation error", fe.Envelope.Message)
	assert.Equal(t, messages, fe.Envelope.Errors)
}

func TestCall_UnknownCommand(t *testing.T) {
	client, worker := setupBus(t)
	startWorker(t, worker)

	_, err := client.Call(context.Background(), "no.such.command", nil)

	var fe *failure.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.Envelope.StatusCode)
}

func TestCall_PanicNeverLeaks(t *testing.T) {
	client, worker := setupBus(t)

	worker.Handle("explode", func(context.Context, json.RawMessage) (any, error) {
		panic("This is a test error")
	})
	startWorker(t, worker)

	_, err := client.Call(context.Background(), "explode", nil)

	var fe *failure.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusInternalServerError, fe.Envelope.StatusCode)
	assert.Equal(t, "Internal server error", fe.Envelope.Message)
	assert.Equal(t, []string{"Internal Server Error"}, fe.Envelope.Errors)
	assert.NotContains(t, fe.Envelope.Message, "This is a test error")
}

func TestWorker_RedeliversFailedCommands(t *testing.T) {
	client, worker := setupBus(t)

	var calls atomic.Int32
	worker.Handle("flaky", func(context.Context, json.RawMessage) (any, error) {
		calls.Add(1)
		return nil, errors.New("transient")
	})
	startWorker(t, worker)

	_, err := client.Call(context.Background(), "flaky", nil)
	require.Error(t, err)

	// The nack path requeues until MaxAttempts is spent.
	assert.Eventually(t, func() bool {
		return calls.Load() == 3
	}, 5*time.Second, 20*time.Millisecond)
}

func TestCall_TimeoutWithoutWorker(t *testing.T) {
	client, _ := setupBus(t)

	_, err := client.WithCallTimeout(100 * time.Millisecond).Call(context.Background(), "nobody.home", nil)
	assert.ErrorIs(t, err, ErrCallTimeout)
}
