// Package messaging holds the non-Redis notification queue providers.
package messaging

import (
	"context"
	"errors"
	"sync"

	"rubi-trail/internal/core/domain"
	"rubi-trail/internal/core/ports"
)

var (
	ErrQueueFull   = errors.New("notification queue is full")
	ErrQueueClosed = errors.New("notification queue is closed")
)

// ChannelQueue is a bounded in-process queue. Publish never blocks: when the
// buffer is full the message is rejected and the caller decides what to log.
type ChannelQueue struct {
	mu     sync.RWMutex
	ch     chan domain.Notification
	closed bool
}

// NewChannelQueue creates a queue holding up to buffer pending messages.
func NewChannelQueue(buffer int) *ChannelQueue {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelQueue{ch: make(chan domain.Notification, buffer)}
}

// Publish implements ports.NotificationPublisher.
func (q *ChannelQueue) Publish(ctx context.Context, n domain.Notification) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Consume delivers messages until ctx is cancelled or the queue is closed and drained.
func (q *ChannelQueue) Consume(ctx context.Context, handler ports.NotificationHandler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-q.ch:
			if !ok {
				return nil
			}
			_ = handler(ctx, n)
		}
	}
}

// Len returns the number of pending messages.
func (q *ChannelQueue) Len() int {
	return len(q.ch)
}

// Close stops accepting messages. Consumers drain what is left.
func (q *ChannelQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	return nil
}
