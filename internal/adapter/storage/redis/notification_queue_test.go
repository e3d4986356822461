package redis_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"rubi-trail/internal/adapter/storage/redis"
	"rubi-trail/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationQueue_PublishConsume(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	q := redis.NewNotificationQueue(client, "rt:notifications", zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := domain.Notification{ID: uuid.New(), Kind: domain.NotificationVoucherCreated, ChatID: "1", Token: "a"}
	second := domain.Notification{ID: uuid.New(), Kind: domain.NotificationVoucherCreated, ChatID: "2", Token: "b"}
	require.NoError(t, q.Publish(ctx, first))
	require.NoError(t, q.Publish(ctx, second))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var mu sync.Mutex
	var got []domain.Notification
	done := make(chan error, 1)
	go func() {
		done <- q.Consume(ctx, func(_ context.Context, n domain.Notification) error {
			mu.Lock()
			got = append(got, n)
			mu.Unlock()
			return nil
		})
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "a", got[0].Token, "FIFO order")
	assert.Equal(t, "b", got[1].Token)
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
	assert.NoError(t, q.Close())
}

func TestNotificationQueue_DropsMalformed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	q := redis.NewNotificationQueue(client, "rt:notifications", zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := mr.Lpush("rt:notifications", "{not json")
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, domain.Notification{Token: "ok"}))

	received := make(chan domain.Notification, 1)
	go func() {
		_ = q.Consume(ctx, func(_ context.Context, n domain.Notification) error {
			received <- n
			return nil
		})
	}()

	select {
	case n := <-received:
		assert.Equal(t, "ok", n.Token)
	case <-time.After(5 * time.Second):
		t.Fatal("valid message not delivered")
	}
}
