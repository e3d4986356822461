package ports

import (
	"context"
	"time"

	"rubi-trail/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// IdentityVerifier checks a signed Telegram Mini App initData payload.
type IdentityVerifier interface {
	Verify(initData string) (*domain.ExternalIdentity, error)
}

// TokenService handles session token operations.
type TokenService interface {
	Generate(accountID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed session claims.
type TokenClaims struct {
	AccountID uuid.UUID
	ExpiresAt time.Time
}

// RateLimitStore is a fixed-window request counter.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// NotificationPublisher enqueues outbound notifications.
type NotificationPublisher interface {
	Publish(ctx context.Context, n domain.Notification) error
}

// NotificationHandler processes one dequeued notification.
type NotificationHandler func(ctx context.Context, n domain.Notification) error

// NotificationQueue decouples committed state changes from outbound delivery.
type NotificationQueue interface {
	NotificationPublisher
	// Consume blocks, feeding messages to handler until ctx is cancelled.
	Consume(ctx context.Context, handler NotificationHandler) error
	Close() error
}

// Notifier delivers a message, optionally with an image, to a chat.
type Notifier interface {
	Notify(ctx context.Context, chatID, text string, image []byte) error
}

// --- Service Ports (Business Logic) ---

// IdentityService maps verified identities to accounts.
type IdentityService interface {
	Authenticate(ctx context.Context, initData string) (*domain.Account, error)
	ResolveAccount(ctx context.Context, identity domain.ExternalIdentity) (*domain.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

// LedgerService owns balance mutation and scan deduplication.
type LedgerService interface {
	CreditForScan(ctx context.Context, accountID uuid.UUID, locationCode string, amount int64) (*domain.ScanResult, error)
	Debit(ctx context.Context, accountID uuid.UUID, amount int64) (int64, error)
	DebitTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64) (int64, error)
	Balance(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// VoucherService defines voucher purchase and redemption.
type VoucherService interface {
	Purchase(ctx context.Context, accountID uuid.UUID, rewardID int64) (*domain.PurchaseResult, error)
	Redeem(ctx context.Context, token string) (*domain.Voucher, error)
	Get(ctx context.Context, token string) (*domain.VoucherDetails, error)
	ListForAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Voucher, error)
	ListRewards(ctx context.Context) ([]domain.Reward, error)
}
