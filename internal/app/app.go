// Package app is the composition root: it turns a Config into a running
// HTTP server and notification dispatcher.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"rubi-trail/config"
	httpHandler "rubi-trail/internal/adapter/http/handler"
	"rubi-trail/internal/adapter/messaging"
	"rubi-trail/internal/adapter/storage/memory"
	pgStorage "rubi-trail/internal/adapter/storage/postgres"
	redisStorage "rubi-trail/internal/adapter/storage/redis"
	"rubi-trail/internal/adapter/telegram"
	"rubi-trail/internal/core/ports"
	"rubi-trail/internal/service"
	"rubi-trail/pkg/logger"
	"rubi-trail/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	botHTTPTimeout    = 30 * time.Second
)

// App owns every long-lived component built from the configuration.
type App struct {
	cfg        *config.Config
	log        zerolog.Logger
	metrics    *metrics.Metrics
	router     *gin.Engine
	dispatcher *service.NotificationDispatcher

	// closers run in reverse order on Close.
	closers []func()
}

type storage struct {
	accounts   ports.AccountRepository
	scans      ports.ScanRepository
	rewards    ports.RewardRepository
	vouchers   ports.VoucherRepository
	transactor ports.DBTransactor
	health     ports.HealthChecker
}

// New connects to the configured backends and wires the services. On error,
// anything already opened is closed.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
	}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg, log := a.cfg, a.log

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	store, err := a.openStorage(ctx)
	if err != nil {
		return err
	}
	checkers := []ports.HealthChecker{store.health}

	var rateLimits ports.RateLimitStore
	var queue ports.NotificationQueue

	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		rateLimits = redisStorage.NewRateLimitStore(rdb)
		checkers = append(checkers, redisStorage.NewHealthCheck(rdb))
		if cfg.Notify.Queue == config.QueueRedis {
			queue = redisStorage.NewNotificationQueue(rdb, cfg.Notify.RedisKey, logger.Component(log, "notify-queue"))
		}
	} else {
		log.Warn().Msg("Redis disabled, rate limiting is off")
	}

	switch cfg.Notify.Queue {
	case config.QueueMemory:
		q := messaging.NewChannelQueue(cfg.Notify.Buffer)
		a.closers = append(a.closers, func() { _ = q.Close() })
		queue = q
	case config.QueueNATS:
		nc, err := messaging.Connect(cfg.Notify.NATSURL, log)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = nc.Drain() })
		queue = messaging.NewNATSQueue(nc, cfg.Notify.NATSSubject, logger.Component(log, "notify-queue"))
	case config.QueueRedis:
		if queue == nil {
			return errors.New("notify.queue=redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("unknown notify.queue %q", cfg.Notify.Queue)
	}

	// Left as an untyped nil when disabled so the dispatcher drops messages.
	var notifier ports.Notifier
	if cfg.Telegram.NotificationsEnabled {
		notifier = telegram.NewBotClient(
			cfg.Telegram.APIBaseURL,
			cfg.Telegram.BotToken,
			&http.Client{Timeout: botHTTPTimeout},
		)
	} else {
		log.Warn().Msg("Telegram notifications disabled, voucher messages will be dropped")
	}

	verifier := service.NewTelegramVerifier(cfg.Telegram.BotToken, cfg.Telegram.InitDataMaxAge)
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	identitySvc := service.NewIdentityService(verifier, store.accounts, a.metrics, logger.Component(log, "identity"))
	ledgerSvc := service.NewLedgerService(store.accounts, store.scans, store.transactor, a.metrics, logger.Component(log, "ledger"))
	voucherSvc := service.NewVoucherService(
		store.rewards,
		store.vouchers,
		store.accounts,
		ledgerSvc,
		store.transactor,
		queue,
		cfg.Server.PublicBaseURL,
		a.metrics,
		logger.Component(log, "voucher"),
	)

	a.dispatcher = service.NewNotificationDispatcher(
		queue,
		notifier,
		telegram.QRCodePNG,
		service.DispatcherConfig{
			Workers:     cfg.Notify.Workers,
			SendTimeout: cfg.Telegram.SendTimeout,
			SendRate:    cfg.Telegram.SendRate,
		},
		a.metrics,
		logger.Component(log, "dispatcher"),
	)

	a.router = httpHandler.SetupRouter(httpHandler.RouterDeps{
		IdentitySvc:    identitySvc,
		LedgerSvc:      ledgerSvc,
		VoucherSvc:     voucherSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimits,
		HealthCheckers: checkers,
		Metrics:        a.metrics,
		ScanReward:     cfg.Ledger.ScanReward,
		PublicBaseURL:  cfg.Server.PublicBaseURL,
		CORSOrigins:    cfg.Server.CORSOrigins,
		Logger:         log,
	})

	return nil
}

func (a *App) openStorage(ctx context.Context) (*storage, error) {
	switch a.cfg.Storage.Driver {
	case config.DriverMemory:
		s := memory.NewStore(memory.DefaultRewards()...)
		a.log.Warn().Msg("Using in-memory storage, data is lost on restart")
		return &storage{
			accounts:   memory.NewAccountRepo(s),
			scans:      memory.NewScanRepo(s),
			rewards:    memory.NewRewardRepo(s),
			vouchers:   memory.NewVoucherRepo(s),
			transactor: s,
			health:     s,
		}, nil

	case config.DriverPostgres:
		if a.cfg.Database.AutoMigrate {
			if err := pgStorage.RunMigrations(ctx, a.cfg.Database.DSN(), "up", a.log); err != nil {
				return nil, fmt.Errorf("auto migrate: %w", err)
			}
		}
		pool, err := pgStorage.NewPool(ctx, a.cfg.Database, a.log)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		return &storage{
			accounts:   pgStorage.NewAccountRepo(pool),
			scans:      pgStorage.NewScanRepo(),
			rewards:    pgStorage.NewRewardRepo(pool),
			vouchers:   pgStorage.NewVoucherRepo(pool),
			transactor: pgStorage.NewTransactor(pool),
			health:     pgStorage.NewHealthCheck(pool),
		}, nil
	}
	return nil, fmt.Errorf("unknown storage.driver %q", a.cfg.Storage.Driver)
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// Metrics returns the collectors shared by every component.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Run listens on the configured address and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Server.Addr(), err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln together with the notification workers.
// When ctx is cancelled the server is shut down gracefully and Serve returns
// once every worker has stopped.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.dispatcher.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Close releases backend connections. It is safe to call more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
