package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"session-sync/internal/logger"
	"session-sync/internal/redis"
)

// Channel is the pub/sub channel other open clients subscribe to for
// session and user updates.
const Channel = "auth.events"

const (
	EventSessionCreated  = "session_created"
	EventSessionFallback = "session_fallback"
	EventSessionDeleted  = "session_deleted"
)

type Event struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// Publisher pushes auth change events to other open clients. It is an
// external sink: publish failures are logged and never affect the
// caller's outcome.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// RedisPublisher broadcasts events over redis pub/sub.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, Channel, data).Err()
}

// FireAndForget publishes event on its own deadline, detached from the
// request lifecycle, logging failures instead of returning them.
func FireAndForget(p Publisher, event Event) {
	if p == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := p.Publish(ctx, event); err != nil {
			logger.Warn("broadcast publish failed", map[string]any{
				"type":  event.Type,
				"error": err.Error(),
			})
		}
	}()
}
