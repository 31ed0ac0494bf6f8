package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrCallTimeout is returned when no reply arrives within the call
// timeout.
var ErrCallTimeout = errors.New("bus call timed out waiting for reply")

// Client issues commands over the bus and waits for replies.
type Client struct {
	client  *redis.Client
	timeout time.Duration
}

// NewClient creates a bus client with the default call timeout.
func NewClient(client *redis.Client) *Client {
	return &Client{client: client, timeout: 5 * time.Second}
}

// WithCallTimeout sets how long Call waits for a reply.
func (c *Client) WithCallTimeout(timeout time.Duration) *Client {
	return &Client{client: c.client, timeout: timeout}
}

// Call enqueues a command and blocks until its reply arrives. An error
// reply surfaces as *failure.Error so the normalized envelope crosses
// the transport intact.
func (c *Client) Call(ctx context.Context, name string, payload any) (json.RawMessage, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		raw = data
	}

	cmd := Command{
		ID:         uuid.New().String(),
		Name:       name,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}
	cmd.ReplyTo = replyKey(cmd.ID)

	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}

	if err := c.client.LPush(ctx, commandsKey, data).Err(); err != nil {
		return nil, fmt.Errorf("enqueue command: %w", err)
	}

	log.Debug("command sent", "command", name, "command_id", cmd.ID)

	result, err := c.client.BRPop(ctx, c.timeout, cmd.ReplyTo).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCallTimeout
	}
	if err != nil {
		return nil, fmt.Errorf("await reply: %w", err)
	}

	// BRPop returns [key, value].
	var reply Reply
	if err := json.Unmarshal([]byte(result[1]), &reply); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}

	if !reply.OK {
		if reply.Error == nil {
			return nil, errors.New("error reply without envelope")
		}
		return nil, reply.Error.Err()
	}
	return reply.Result, nil
}
