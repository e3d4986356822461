package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rubi-trail/internal/core/domain"
	"rubi-trail/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const voucherColumns = `id, account_id, reward_id, token, status, created_at, redeemed_at`

// VoucherRepo implements ports.VoucherRepository.
type VoucherRepo struct {
	pool Pool
}

// NewVoucherRepo creates a new VoucherRepo.
func NewVoucherRepo(pool Pool) *VoucherRepo {
	return &VoucherRepo{pool: pool}
}

// Create inserts a voucher within the purchase transaction.
func (r *VoucherRepo) Create(ctx context.Context, tx pgx.Tx, v *domain.Voucher) error {
	query := `INSERT INTO vouchers (id, account_id, reward_id, token, status, created_at, redeemed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		v.ID, v.AccountID, v.RewardID, v.Token, string(v.Status), v.CreatedAt, v.RedeemedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert voucher: %w", ports.ErrConflict)
		}
		return fmt.Errorf("insert voucher: %w", err)
	}
	return nil
}

// GetByToken fetches a voucher by its redemption token.
func (r *VoucherRepo) GetByToken(ctx context.Context, token string) (*domain.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE token = $1`

	v, err := scanVoucher(r.pool.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher by token: %w", err)
	}
	return v, nil
}

// MarkRedeemed is a compare-and-swap on status. Only one caller can win.
func (r *VoucherRepo) MarkRedeemed(ctx context.Context, token string, at time.Time) (bool, error) {
	query := `UPDATE vouchers SET status = $1, redeemed_at = $2
		WHERE token = $3 AND status = $4`

	tag, err := r.pool.Exec(ctx, query,
		string(domain.VoucherStatusRedeemed), at, token, string(domain.VoucherStatusActive),
	)
	if err != nil {
		return false, fmt.Errorf("mark voucher redeemed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByAccount returns an account's vouchers, newest first.
func (r *VoucherRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE account_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	defer rows.Close()

	var vouchers []domain.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voucher: %w", err)
		}
		vouchers = append(vouchers, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vouchers: %w", err)
	}
	return vouchers, nil
}

func scanVoucher(row pgx.Row) (*domain.Voucher, error) {
	v := &domain.Voucher{}
	var status string
	if err := row.Scan(&v.ID, &v.AccountID, &v.RewardID, &v.Token, &status, &v.CreatedAt, &v.RedeemedAt); err != nil {
		return nil, err
	}
	v.Status = domain.VoucherStatus(status)
	return v, nil
}
