package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rubi-trail/internal/core/domain"
	"rubi-trail/internal/core/ports"
	"rubi-trail/pkg/apperror"
	"rubi-trail/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// IdentityServiceImpl implements ports.IdentityService.
type IdentityServiceImpl struct {
	verifier    ports.IdentityVerifier
	accountRepo ports.AccountRepository
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// NewIdentityService creates a new IdentityServiceImpl.
func NewIdentityService(
	verifier ports.IdentityVerifier,
	accountRepo ports.AccountRepository,
	m *metrics.Metrics,
	log zerolog.Logger,
) *IdentityServiceImpl {
	return &IdentityServiceImpl{
		verifier:    verifier,
		accountRepo: accountRepo,
		metrics:     m,
		log:         log,
	}
}

// Authenticate verifies initData and returns the account bound to its identity.
func (s *IdentityServiceImpl) Authenticate(ctx context.Context, initData string) (*domain.Account, error) {
	identity, err := s.verifier.Verify(initData)
	if err != nil {
		s.metrics.Auth("rejected")
		s.log.Debug().Err(err).Msg("initData rejected")
		return nil, err
	}

	account, err := s.ResolveAccount(ctx, *identity)
	if err != nil {
		s.metrics.Auth("error")
		return nil, err
	}
	s.metrics.Auth("ok")
	return account, nil
}

// ResolveAccount finds or creates the account for identity, keeping its display name current.
func (s *IdentityServiceImpl) ResolveAccount(ctx context.Context, identity domain.ExternalIdentity) (*domain.Account, error) {
	account, err := s.accountRepo.GetByExternalID(ctx, identity.ExternalID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("find account: %w", err))
	}

	if account == nil {
		account, err = s.createAccount(ctx, identity)
		if err != nil {
			return nil, err
		}
		return account, nil
	}

	if account.NeedsRename(identity.DisplayName) {
		if err := s.accountRepo.UpdateDisplayName(ctx, account.ID, identity.NameOrDefault()); err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("update display name: %w", err))
		}
		account.DisplayName = identity.NameOrDefault()
	}

	return account, nil
}

func (s *IdentityServiceImpl) createAccount(ctx context.Context, identity domain.ExternalIdentity) (*domain.Account, error) {
	now := time.Now().UTC()
	account := &domain.Account{
		ID:          uuid.New(),
		ExternalID:  identity.ExternalID,
		DisplayName: identity.NameOrDefault(),
		Balance:     0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.accountRepo.Create(ctx, account)
	if errors.Is(err, ports.ErrConflict) {
		// A concurrent first login created the row.
		existing, getErr := s.accountRepo.GetByExternalID(ctx, identity.ExternalID)
		if getErr != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("find account after conflict: %w", getErr))
		}
		if existing == nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("account %s vanished after conflict", identity.ExternalID))
		}
		return existing, nil
	}
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create account: %w", err))
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Str("external_id", account.ExternalID).
		Msg("account created")
	return account, nil
}

// GetAccount loads an account by id.
func (s *IdentityServiceImpl) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("Account")
	}
	return account, nil
}
