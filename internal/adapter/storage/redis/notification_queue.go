package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rubi-trail/internal/core/domain"
	"rubi-trail/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultPopTimeout = 2 * time.Second

// NotificationQueue is a durable FIFO over a Redis list: producers LPUSH,
// workers BRPOP. A message popped by a worker that then crashes is lost.
type NotificationQueue struct {
	client     *goredis.Client
	key        string
	popTimeout time.Duration
	log        zerolog.Logger
}

// NewNotificationQueue creates a queue on the given list key.
func NewNotificationQueue(client *goredis.Client, key string, log zerolog.Logger) *NotificationQueue {
	return &NotificationQueue{
		client:     client,
		key:        key,
		popTimeout: defaultPopTimeout,
		log:        log,
	}
}

// Publish implements ports.NotificationPublisher.
func (q *NotificationQueue) Publish(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("redis lpush notification: %w", err)
	}
	return nil
}

// Consume pops messages until ctx is cancelled. Handler errors are the
// handler's concern; malformed payloads are logged and dropped.
func (q *NotificationQueue) Consume(ctx context.Context, handler ports.NotificationHandler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		res, err := q.client.BRPop(ctx, q.popTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			q.log.Warn().Err(err).Str("key", q.key).Msg("notification queue pop failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		// res is [key, value]
		if len(res) != 2 {
			continue
		}
		var n domain.Notification
		if err := json.Unmarshal([]byte(res[1]), &n); err != nil {
			q.log.Error().Err(err).Str("key", q.key).Msg("dropping malformed notification")
			continue
		}
		_ = handler(ctx, n)
	}
}

// Len returns the number of queued messages.
func (q *NotificationQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Close is a no-op; the client is owned by the caller.
func (q *NotificationQueue) Close() error {
	return nil
}
