package service

import (
	"context"
	"fmt"
	"time"

	"rubi-trail/internal/core/domain"
	"rubi-trail/internal/core/ports"
	"rubi-trail/pkg/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const defaultSendTimeout = 15 * time.Second

// QRRenderer renders content as a PNG image.
type QRRenderer func(content string) ([]byte, error)

// DispatcherConfig tunes notification delivery.
type DispatcherConfig struct {
	Workers     int
	SendTimeout time.Duration
	SendRate    float64 // messages per second across all workers; <= 0 is unlimited
}

// NotificationDispatcher consumes queued notifications and delivers them through a Notifier.
// Deliveries are never retried beyond the single text fallback.
type NotificationDispatcher struct {
	queue       ports.NotificationQueue
	notifier    ports.Notifier
	renderQR    QRRenderer
	limiter     *rate.Limiter
	sendTimeout time.Duration
	workers     int
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// NewNotificationDispatcher creates a dispatcher. A nil notifier drops every message,
// and a nil renderer sends text only.
func NewNotificationDispatcher(
	queue ports.NotificationQueue,
	notifier ports.Notifier,
	renderQR QRRenderer,
	cfg DispatcherConfig,
	m *metrics.Metrics,
	log zerolog.Logger,
) *NotificationDispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.SendRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.SendRate), 1)
	}
	return &NotificationDispatcher{
		queue:       queue,
		notifier:    notifier,
		renderQR:    renderQR,
		limiter:     limiter,
		sendTimeout: cfg.SendTimeout,
		workers:     cfg.Workers,
		metrics:     m,
		log:         log,
	}
}

// Run starts the workers and blocks until ctx is cancelled or a consumer fails.
func (d *NotificationDispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		worker := i
		g.Go(func() error {
			d.log.Debug().Int("worker", worker).Msg("notification worker started")
			if err := d.queue.Consume(gctx, d.Handle); err != nil {
				return fmt.Errorf("notification worker %d: %w", worker, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Handle delivers one notification: QR photo first, plain text if that fails.
func (d *NotificationDispatcher) Handle(ctx context.Context, n domain.Notification) error {
	logger := d.log.With().
		Str("notification_id", n.ID.String()).
		Str("voucher_id", n.VoucherID.String()).
		Logger()

	if d.notifier == nil {
		d.metrics.Notification("dropped")
		logger.Debug().Msg("notifications disabled, message dropped")
		return nil
	}

	if err := d.limiter.Wait(ctx); err != nil {
		d.metrics.Notification("dropped")
		return fmt.Errorf("rate limiter: %w", err)
	}

	text := n.Text()

	var image []byte
	if d.renderQR != nil && n.RedeemURL != "" {
		png, err := d.renderQR(n.RedeemURL)
		if err != nil {
			logger.Warn().Err(err).Msg("qr render failed, sending text only")
		} else {
			image = png
		}
	}

	err := d.send(ctx, n.ChatID, text, image)
	if err == nil {
		d.metrics.Notification("sent")
		logger.Info().Bool("photo", image != nil).Msg("notification delivered")
		return nil
	}

	if image != nil {
		logger.Warn().Err(err).Msg("photo send failed, falling back to text")
		fbErr := d.send(ctx, n.ChatID, text, nil)
		if fbErr == nil {
			d.metrics.Notification("fallback")
			logger.Info().Msg("notification delivered as text")
			return nil
		}
		err = fbErr
	}

	d.metrics.Notification("failed")
	logger.Error().Err(err).Msg("notification delivery failed")
	return err
}

func (d *NotificationDispatcher) send(ctx context.Context, chatID, text string, image []byte) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return d.notifier.Notify(sendCtx, chatID, text, image)
}
