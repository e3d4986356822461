package service

import (
	"context"
	"fmt"
	"time"

	"rubi-trail/internal/core/domain"
	"rubi-trail/internal/core/ports"
	"rubi-trail/pkg/apperror"
	"rubi-trail/pkg/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// LedgerServiceImpl implements ports.LedgerService.
// Every balance change runs inside a database transaction.
type LedgerServiceImpl struct {
	accountRepo ports.AccountRepository
	scanRepo    ports.ScanRepository
	transactor  ports.DBTransactor
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	accountRepo ports.AccountRepository,
	scanRepo ports.ScanRepository,
	transactor ports.DBTransactor,
	m *metrics.Metrics,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		accountRepo: accountRepo,
		scanRepo:    scanRepo,
		transactor:  transactor,
		metrics:     m,
		log:         log,
	}
}

// CreditForScan credits amount once per (account, location code).
// A repeated scan is not an error: it returns Credited=false with the current balance.
func (s *LedgerServiceImpl) CreditForScan(ctx context.Context, accountID uuid.UUID, locationCode string, amount int64) (*domain.ScanResult, error) {
	if amount <= 0 {
		return nil, apperror.Validation("amount must be positive")
	}
	if locationCode == "" {
		return nil, apperror.Validation("location code is required")
	}
	if len([]rune(locationCode)) > domain.MaxLocationCodeLength {
		return nil, apperror.Validation(fmt.Sprintf("location code exceeds %d characters", domain.MaxLocationCodeLength))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	inserted, err := s.scanRepo.Insert(ctx, dbTx, &domain.ScanRecord{
		ID:           uuid.New(),
		AccountID:    accountID,
		LocationCode: locationCode,
		ScannedAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("insert scan: %w", err))
	}

	if !inserted {
		account, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, accountID)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("read balance: %w", err))
		}
		if account == nil {
			return nil, apperror.ErrNotFound("Account")
		}
		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
		}
		s.metrics.ScanDuplicate()
		return &domain.ScanResult{Credited: false, AmountAdded: 0, NewBalance: account.Balance}, nil
	}

	newBalance, err := s.accountRepo.AddBalance(ctx, dbTx, accountID, amount)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("credit balance: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.metrics.ScanCredited(amount)
	s.log.Info().
		Str("account_id", accountID.String()).
		Str("location_code", locationCode).
		Int64("amount", amount).
		Int64("new_balance", newBalance).
		Msg("scan credited")

	return &domain.ScanResult{Credited: true, AmountAdded: amount, NewBalance: newBalance}, nil
}

// Debit subtracts amount in its own transaction.
func (s *LedgerServiceImpl) Debit(ctx context.Context, accountID uuid.UUID, amount int64) (int64, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return 0, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	newBalance, err := s.DebitTx(ctx, dbTx, accountID, amount)
	if err != nil {
		return 0, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return 0, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}
	s.metrics.Debited(amount)
	return newBalance, nil
}

// DebitTx locks the account row and subtracts amount within tx.
// The caller owns commit and rollback.
func (s *LedgerServiceImpl) DebitTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, apperror.Validation("amount must be positive")
	}

	account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, accountID)
	if err != nil {
		return 0, apperror.ErrDatabaseError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return 0, apperror.ErrNotFound("Account")
	}

	if account.Balance < amount {
		return 0, apperror.ErrInsufficientFunds(account.Balance)
	}

	newBalance, err := s.accountRepo.AddBalance(ctx, tx, accountID, -amount)
	if err != nil {
		return 0, apperror.ErrDatabaseError(fmt.Errorf("debit balance: %w", err))
	}
	return newBalance, nil
}

// Balance returns the current balance.
func (s *LedgerServiceImpl) Balance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return 0, apperror.ErrDatabaseError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return 0, apperror.ErrNotFound("Account")
	}
	return account.Balance, nil
}
