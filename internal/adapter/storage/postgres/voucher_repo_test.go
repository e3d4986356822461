package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"rubi-trail/internal/core/domain"
	"rubi-trail/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVoucher() *domain.Voucher {
	return &domain.Voucher{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		RewardID:  1,
		Token:     "q2Zr7b9mYk1nS0dX4vVt8A",
		Status:    domain.VoucherStatusActive,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func voucherColumnNames() []string {
	return []string{"id", "account_id", "reward_id", "token", "status", "created_at", "redeemed_at"}
}

func voucherRow(v *domain.Voucher) *pgxmock.Rows {
	return pgxmock.NewRows(voucherColumnNames()).
		AddRow(v.ID, v.AccountID, v.RewardID, v.Token, string(v.Status), v.CreatedAt, v.RedeemedAt)
}

func TestVoucherRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVoucherRepo(mock)
	v := newTestVoucher()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO vouchers").
		WithArgs(v.ID, v.AccountID, v.RewardID, v.Token, "ACTIVE", v.CreatedAt, v.RedeemedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Create(context.Background(), tx, v))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoucherRepo_Create_TokenCollision(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVoucherRepo(mock)
	v := newTestVoucher()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO vouchers").
		WithArgs(v.ID, v.AccountID, v.RewardID, v.Token, "ACTIVE", v.CreatedAt, v.RedeemedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, v)
	assert.True(t, errors.Is(err, ports.ErrConflict))
}

func TestVoucherRepo_GetByToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVoucherRepo(mock)
	v := newTestVoucher()

	mock.ExpectQuery("SELECT .+ FROM vouchers WHERE token").
		WithArgs(v.Token).
		WillReturnRows(voucherRow(v))

	result, err := repo.GetByToken(context.Background(), v.Token)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, v.ID, result.ID)
	assert.Equal(t, domain.VoucherStatusActive, result.Status)
	assert.Nil(t, result.RedeemedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoucherRepo_GetByToken_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVoucherRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM vouchers WHERE token").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(voucherColumnNames()))

	result, err := repo.GetByToken(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestVoucherRepo_MarkRedeemed(t *testing.T) {
	tests := []struct {
		name         string
		rowsAffected int64
		want         bool
	}{
		{"active voucher flips", 1, true},
		{"already redeemed loses", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			repo := NewVoucherRepo(mock)
			at := time.Now().UTC()

			mock.ExpectExec("UPDATE vouchers SET status .+ WHERE token .+ AND status").
				WithArgs("REDEEMED", at, "tok", "ACTIVE").
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.rowsAffected))

			ok, err := repo.MarkRedeemed(context.Background(), "tok", at)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestVoucherRepo_ListByAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVoucherRepo(mock)
	v1 := newTestVoucher()
	v2 := newTestVoucher()
	v2.AccountID = v1.AccountID
	redeemed := time.Now().UTC().Truncate(time.Microsecond)
	v2.Status = domain.VoucherStatusRedeemed
	v2.RedeemedAt = &redeemed

	mock.ExpectQuery("SELECT .+ FROM vouchers WHERE account_id .+ ORDER BY created_at DESC").
		WithArgs(v1.AccountID).
		WillReturnRows(pgxmock.NewRows(voucherColumnNames()).
			AddRow(v2.ID, v2.AccountID, v2.RewardID, v2.Token, string(v2.Status), v2.CreatedAt, v2.RedeemedAt).
			AddRow(v1.ID, v1.AccountID, v1.RewardID, v1.Token, string(v1.Status), v1.CreatedAt, v1.RedeemedAt))

	vouchers, err := repo.ListByAccount(context.Background(), v1.AccountID)
	require.NoError(t, err)
	require.Len(t, vouchers, 2)
	assert.Equal(t, domain.VoucherStatusRedeemed, vouchers[0].Status)
	require.NotNil(t, vouchers[0].RedeemedAt)
	assert.Equal(t, v1.ID, vouchers[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
