package postgres

import (
	"context"
	"errors"
	"fmt"

	"rubi-trail/internal/core/domain"
	"rubi-trail/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, external_id, display_name, balance, created_at, updated_at`

// ErrNegativeBalance is returned when the balance CHECK constraint rejects an update.
var ErrNegativeBalance = errors.New("balance would become negative")

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create inserts a new account. A duplicate external_id yields ports.ErrConflict.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (id, external_id, display_name, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.ExternalID, a.DisplayName, a.Balance, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert account %s: %w", a.ExternalID, ports.ErrConflict)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID fetches an account by its UUID (without locking).
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get account by id: %w", err)
	}
	return a, nil
}

// GetByExternalID fetches an account by its Telegram user id.
func (r *AccountRepo) GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE external_id = $1`

	a, err := scanAccount(r.pool.QueryRow(ctx, query, externalID))
	if err != nil {
		return nil, fmt.Errorf("get account by external id: %w", err)
	}
	return a, nil
}

// UpdateDisplayName renames an account. Balance is untouched.
func (r *AccountRepo) UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) error {
	query := `UPDATE accounts SET display_name = $1, updated_at = NOW() WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, name, id)
	if err != nil {
		return fmt.Errorf("update account name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", id)
	}
	return nil
}

// GetByIDForUpdate fetches an account and locks its row.
// This MUST be called within a transaction.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	a, err := scanAccount(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	return a, nil
}

// AddBalance applies delta atomically and returns the resulting balance.
func (r *AccountRepo) AddBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (int64, error) {
	query := `UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE id = $2 RETURNING balance`

	var balance int64
	if err := tx.QueryRow(ctx, query, delta, id).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("account not found: %s", id)
		}
		if pgErrCode(err) == checkViolation {
			return 0, fmt.Errorf("add balance %d to %s: %w", delta, id, ErrNegativeBalance)
		}
		return 0, fmt.Errorf("add balance: %w", err)
	}
	return balance, nil
}

// scanAccount maps a row to an Account, returning (nil, nil) for no rows.
func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(&a.ID, &a.ExternalID, &a.DisplayName, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}
