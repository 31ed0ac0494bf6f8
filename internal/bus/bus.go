// Package bus is the message-based transport: a Redis-backed command
// bus with RPC-style replies. Commands travel on a list, are moved to
// a processing list while a worker holds them, and are redelivered on
// failure until their attempt budget runs out. Failed handlers reply
// with a normalized failure envelope so peers see the same error shape
// the HTTP API produces.
package bus

import (
	"encoding/json"
	"time"

	"github.com/mkamau/groundwork/internal/failure"
	"github.com/mkamau/groundwork/internal/logging"
)

var log = logging.Component("bus")

const (
	commandsKey    = "groundwork:bus:commands"
	processingKey  = "groundwork:bus:processing"
	replyKeyPrefix = "groundwork:bus:reply:"

	// How long a reply stays claimable before it expires.
	replyTTL = 60 * time.Second

	// How long a dequeue blocks before rechecking for shutdown.
	defaultBlockingTimeout = 1 * time.Second
)

// Command is one unit of work on the bus.
type Command struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ReplyTo    string          `json:"reply_to,omitempty"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Reply is the response carried back to the calling peer. Exactly one
// of Result or Error is set.
type Reply struct {
	OK     bool              `json:"ok"`
	Result json.RawMessage   `json:"result,omitempty"`
	Error  *failure.Envelope `json:"error,omitempty"`
}

func replyKey(commandID string) string {
	return replyKeyPrefix + commandID
}
