package ports

import (
	"context"
	"errors"
	"time"

	"rubi-trail/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrConflict is returned by Create methods when a unique constraint rejects the row.
var ErrConflict = errors.New("unique constraint violation")

// AccountRepository defines persistence operations for loyalty accounts.
// Methods accepting pgx.Tx are used inside transaction blocks for row locking.
// Getters return (nil, nil) when the row does not exist.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error)
	UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error)
	// AddBalance applies delta (negative for debits) and returns the new balance.
	AddBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (int64, error)
}

// ScanRepository persists scan dedup records.
type ScanRepository interface {
	// Insert returns false when the (account, location) pair already exists.
	Insert(ctx context.Context, tx pgx.Tx, record *domain.ScanRecord) (bool, error)
}

// RewardRepository reads the reward catalog.
type RewardRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Reward, error)
	List(ctx context.Context) ([]domain.Reward, error)
}

// VoucherRepository defines persistence operations for vouchers.
type VoucherRepository interface {
	Create(ctx context.Context, tx pgx.Tx, voucher *domain.Voucher) error
	GetByToken(ctx context.Context, token string) (*domain.Voucher, error)
	// MarkRedeemed flips ACTIVE to REDEEMED. Returns false if the voucher was not ACTIVE.
	MarkRedeemed(ctx context.Context, token string, at time.Time) (bool, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Voucher, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
