package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rubi-trail/internal/core/domain"
	"rubi-trail/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Accounts ---

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct{ s *Store }

func NewAccountRepo(s *Store) *AccountRepo { return &AccountRepo{s: s} }

func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.byExternal[a.ExternalID]; exists {
		return fmt.Errorf("insert account %s: %w", a.ExternalID, ports.ErrConflict)
	}
	if _, exists := r.s.accounts[a.ID]; exists {
		return fmt.Errorf("insert account %s: %w", a.ID, ports.ErrConflict)
	}
	r.s.accounts[a.ID] = *a
	r.s.byExternal[a.ExternalID] = a.ID
	return nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *AccountRepo) GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.byExternal[externalID]
	if !ok {
		return nil, nil
	}
	a := r.s.accounts[id]
	return &a, nil
}

func (r *AccountRepo) UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return fmt.Errorf("account not found: %s", id)
	}
	a.DisplayName = name
	a.UpdatedAt = time.Now().UTC()
	r.s.accounts[id] = a
	return nil
}

// GetByIDForUpdate reads inside tx. Serialized transactions make the lock implicit.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	if _, err := r.s.txFrom(tx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *AccountRepo) AddBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (int64, error) {
	mt, err := r.s.txFrom(tx)
	if err != nil {
		return 0, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return 0, fmt.Errorf("account not found: %s", id)
	}
	if a.Balance+delta < 0 {
		return 0, fmt.Errorf("add balance %d to %s: %w", delta, id, ErrNegativeBalance)
	}

	prev := a
	a.Balance += delta
	a.UpdatedAt = time.Now().UTC()
	r.s.accounts[id] = a
	mt.record(func() { r.s.accounts[id] = prev })
	return a.Balance, nil
}

// --- Scans ---

// ScanRepo implements ports.ScanRepository.
type ScanRepo struct{ s *Store }

func NewScanRepo(s *Store) *ScanRepo { return &ScanRepo{s: s} }

func (r *ScanRepo) Insert(ctx context.Context, tx pgx.Tx, rec *domain.ScanRecord) (bool, error) {
	mt, err := r.s.txFrom(tx)
	if err != nil {
		return false, err
	}

	key := scanKey{accountID: rec.AccountID, locationCode: rec.LocationCode}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.scans[key]; exists {
		return false, nil
	}
	r.s.scans[key] = *rec
	mt.record(func() { delete(r.s.scans, key) })
	return true, nil
}

// --- Rewards ---

// RewardRepo implements ports.RewardRepository.
type RewardRepo struct{ s *Store }

func NewRewardRepo(s *Store) *RewardRepo { return &RewardRepo{s: s} }

func (r *RewardRepo) GetByID(ctx context.Context, id int64) (*domain.Reward, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rw, ok := r.s.rewards[id]
	if !ok {
		return nil, nil
	}
	return &rw, nil
}

func (r *RewardRepo) List(ctx context.Context) ([]domain.Reward, error) {
	r.s.mu.RLock()
	out := make([]domain.Reward, 0, len(r.s.rewards))
	for _, rw := range r.s.rewards {
		out = append(out, rw)
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Vouchers ---

// VoucherRepo implements ports.VoucherRepository.
type VoucherRepo struct{ s *Store }

func NewVoucherRepo(s *Store) *VoucherRepo { return &VoucherRepo{s: s} }

func (r *VoucherRepo) Create(ctx context.Context, tx pgx.Tx, v *domain.Voucher) error {
	mt, err := r.s.txFrom(tx)
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.vouchers[v.Token]; exists {
		return fmt.Errorf("insert voucher: %w", ports.ErrConflict)
	}
	r.s.vouchers[v.Token] = *v
	token := v.Token
	mt.record(func() { delete(r.s.vouchers, token) })
	return nil
}

func (r *VoucherRepo) GetByToken(ctx context.Context, token string) (*domain.Voucher, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.vouchers[token]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// MarkRedeemed checks and flips status under the write lock.
func (r *VoucherRepo) MarkRedeemed(ctx context.Context, token string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vouchers[token]
	if !ok || v.Status != domain.VoucherStatusActive {
		return false, nil
	}
	v.Status = domain.VoucherStatusRedeemed
	v.RedeemedAt = &at
	r.s.vouchers[token] = v
	return true, nil
}

func (r *VoucherRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Voucher, error) {
	r.s.mu.RLock()
	var out []domain.Voucher
	for _, v := range r.s.vouchers {
		if v.AccountID == accountID {
			out = append(out, v)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
