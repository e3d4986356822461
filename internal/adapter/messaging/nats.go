package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rubi-trail/internal/core/domain"
	"rubi-trail/internal/core/ports"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// DefaultWorkerGroup is the NATS queue group shared by all dispatcher workers,
// so each message is handled by exactly one subscriber.
const DefaultWorkerGroup = "notification-workers"

// drainTimeout bounds delivery of each message still buffered when Consume is stopped.
const drainTimeout = 15 * time.Second

// natsConn is the part of *nats.Conn the queue needs.
type natsConn interface {
	Publish(subj string, data []byte) error
	QueueSubscribe(subj, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
	Drain() error
}

// Connect dials NATS with reconnects enabled and connection events logged.
func Connect(url string, log zerolog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("rubi-trail"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	log.Info().Str("url", url).Msg("NATS connection established")
	return nc, nil
}

// NATSQueue publishes notifications on a subject and consumes them through a queue group.
type NATSQueue struct {
	conn    natsConn
	subject string
	group   string
	drain   time.Duration
	log     zerolog.Logger
}

// NewNATSQueue creates a queue over an established connection.
func NewNATSQueue(conn natsConn, subject string, log zerolog.Logger) *NATSQueue {
	return &NATSQueue{
		conn:    conn,
		subject: subject,
		group:   DefaultWorkerGroup,
		drain:   drainTimeout,
		log:     log,
	}
}

// Publish implements ports.NotificationPublisher.
func (q *NATSQueue) Publish(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := q.conn.Publish(q.subject, payload); err != nil {
		return fmt.Errorf("nats publish notification: %w", err)
	}
	return nil
}

// Consume subscribes to the worker group and blocks until ctx is cancelled,
// then drains the subscription.
func (q *NATSQueue) Consume(ctx context.Context, handler ports.NotificationHandler) error {
	sub, err := q.conn.QueueSubscribe(q.subject, q.group, func(m *nats.Msg) {
		var n domain.Notification
		if err := json.Unmarshal(m.Data, &n); err != nil {
			q.log.Error().Err(err).Str("subject", m.Subject).Msg("dropping malformed notification")
			return
		}
		hctx, cancel := q.handlerContext(ctx)
		defer cancel()
		_ = handler(hctx, n)
	})
	if err != nil {
		return fmt.Errorf("nats queue subscribe %s: %w", q.subject, err)
	}

	<-ctx.Done()

	if sub != nil {
		if err := sub.Drain(); err != nil {
			q.log.Debug().Err(err).Msg("draining notification subscription")
		}
	}
	return nil
}

// handlerContext returns ctx while Consume is running. Messages delivered by
// Drain after cancellation get a detached context bounded by q.drain, so they
// are still attempted.
func (q *NATSQueue) handlerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx.Err() == nil {
		return ctx, func() {}
	}
	return context.WithTimeout(context.WithoutCancel(ctx), q.drain)
}

// Close drains the underlying connection.
func (q *NATSQueue) Close() error {
	return q.conn.Drain()
}
