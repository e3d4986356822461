package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"rubi-trail/internal/core/domain"
	"rubi-trail/internal/core/ports"
	"rubi-trail/pkg/apperror"
	"rubi-trail/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// voucherTokenBytes is the entropy of a voucher token (128 bits).
const voucherTokenBytes = 16

// VoucherServiceImpl implements ports.VoucherService.
type VoucherServiceImpl struct {
	rewardRepo    ports.RewardRepository
	voucherRepo   ports.VoucherRepository
	accountRepo   ports.AccountRepository
	ledger        ports.LedgerService
	transactor    ports.DBTransactor
	publisher     ports.NotificationPublisher
	publicBaseURL string
	metrics       *metrics.Metrics
	log           zerolog.Logger
	now           func() time.Time
}

// NewVoucherService creates a new VoucherServiceImpl. publisher may be nil.
func NewVoucherService(
	rewardRepo ports.RewardRepository,
	voucherRepo ports.VoucherRepository,
	accountRepo ports.AccountRepository,
	ledger ports.LedgerService,
	transactor ports.DBTransactor,
	publisher ports.NotificationPublisher,
	publicBaseURL string,
	m *metrics.Metrics,
	log zerolog.Logger,
) *VoucherServiceImpl {
	return &VoucherServiceImpl{
		rewardRepo:    rewardRepo,
		voucherRepo:   voucherRepo,
		accountRepo:   accountRepo,
		ledger:        ledger,
		transactor:    transactor,
		publisher:     publisher,
		publicBaseURL: publicBaseURL,
		metrics:       m,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Purchase debits the reward price and issues an ACTIVE voucher in one transaction.
// The chat notification is queued only after commit; a queue failure does not fail the purchase.
func (s *VoucherServiceImpl) Purchase(ctx context.Context, accountID uuid.UUID, rewardID int64) (*domain.PurchaseResult, error) {
	reward, err := s.rewardRepo.GetByID(ctx, rewardID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get reward: %w", err))
	}
	if reward == nil {
		s.metrics.Purchase("not_found")
		return nil, apperror.ErrNotFound("Reward")
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("Account")
	}

	token, err := generateVoucherToken()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate voucher token: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	newBalance, err := s.ledger.DebitTx(ctx, dbTx, accountID, reward.Price)
	if err != nil {
		if apperror.Is(err, apperror.CodeInsufficientFunds) {
			s.metrics.Purchase("insufficient_funds")
		}
		return nil, err
	}

	voucher := &domain.Voucher{
		ID:        uuid.New(),
		AccountID: accountID,
		RewardID:  reward.ID,
		Token:     token,
		Status:    domain.VoucherStatusActive,
		CreatedAt: s.now(),
	}
	if err := s.voucherRepo.Create(ctx, dbTx, voucher); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create voucher: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.metrics.Purchase("ok")
	s.metrics.Debited(reward.Price)

	redeemURL := domain.RedeemURL(s.publicBaseURL, token)
	s.log.Info().
		Str("account_id", accountID.String()).
		Str("voucher_id", voucher.ID.String()).
		Int64("reward_id", reward.ID).
		Int64("new_balance", newBalance).
		Msg("voucher purchased")

	s.enqueueNotification(ctx, account, *voucher, *reward, redeemURL)

	return &domain.PurchaseResult{
		Voucher:    *voucher,
		Reward:     *reward,
		RedeemURL:  redeemURL,
		NewBalance: newBalance,
	}, nil
}

func (s *VoucherServiceImpl) enqueueNotification(ctx context.Context, account *domain.Account, v domain.Voucher, r domain.Reward, redeemURL string) {
	if s.publisher == nil {
		return
	}
	n := domain.NewVoucherCreatedNotification(account.ExternalID, v, r, redeemURL)
	if err := s.publisher.Publish(context.WithoutCancel(ctx), n); err != nil {
		s.metrics.Notification("dropped")
		s.log.Warn().Err(err).
			Str("voucher_id", v.ID.String()).
			Msg("failed to enqueue voucher notification")
	}
}

// Redeem flips an ACTIVE voucher to REDEEMED. Of concurrent callers exactly one succeeds.
func (s *VoucherServiceImpl) Redeem(ctx context.Context, token string) (*domain.Voucher, error) {
	voucher, err := s.voucherRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get voucher: %w", err))
	}
	if voucher == nil {
		s.metrics.Redemption("not_found")
		return nil, apperror.ErrNotFound("Voucher")
	}
	if !voucher.IsRedeemable() {
		s.metrics.Redemption("already_redeemed")
		return nil, apperror.ErrAlreadyRedeemed()
	}

	at := s.now()
	ok, err := s.voucherRepo.MarkRedeemed(ctx, token, at)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("mark redeemed: %w", err))
	}
	if !ok {
		// Lost the race to a concurrent redemption.
		s.metrics.Redemption("already_redeemed")
		return nil, apperror.ErrAlreadyRedeemed()
	}

	voucher.Status = domain.VoucherStatusRedeemed
	voucher.RedeemedAt = &at

	s.metrics.Redemption("ok")
	s.log.Info().
		Str("voucher_id", voucher.ID.String()).
		Str("account_id", voucher.AccountID.String()).
		Msg("voucher redeemed")
	return voucher, nil
}

// Get returns a voucher together with its reward.
func (s *VoucherServiceImpl) Get(ctx context.Context, token string) (*domain.VoucherDetails, error) {
	voucher, err := s.voucherRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get voucher: %w", err))
	}
	if voucher == nil {
		return nil, apperror.ErrNotFound("Voucher")
	}

	reward, err := s.rewardRepo.GetByID(ctx, voucher.RewardID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get reward: %w", err))
	}
	if reward == nil {
		return nil, apperror.ErrNotFound("Reward")
	}

	return &domain.VoucherDetails{Voucher: *voucher, Reward: *reward}, nil
}

// ListForAccount returns the account's vouchers, newest first.
func (s *VoucherServiceImpl) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Voucher, error) {
	vouchers, err := s.voucherRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list vouchers: %w", err))
	}
	return vouchers, nil
}

// ListRewards returns the reward catalog.
func (s *VoucherServiceImpl) ListRewards(ctx context.Context) ([]domain.Reward, error) {
	rewards, err := s.rewardRepo.List(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list rewards: %w", err))
	}
	return rewards, nil
}

// generateVoucherToken returns 128 random bits, base64url without padding.
func generateVoucherToken() (string, error) {
	b := make([]byte, voucherTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
