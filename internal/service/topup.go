package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/model"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/pkg/restrict"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/repository"
)

// TopupService runs the top-up state machine:
// pending -> approved | rejected. Creation has no balance effect;
// approval credits the amount exactly once.
type TopupService struct {
	accounts  *repository.AccountRepository
	topups    *repository.TopupRepository
	settings  *repository.SettingsRepository
	authz     *AuthzService
	gate      *restrict.Gate
	minAmount int64
}

// NewTopupService creates a new TopupService instance.
func NewTopupService(
	accounts *repository.AccountRepository,
	topups *repository.TopupRepository,
	settings *repository.SettingsRepository,
	authz *AuthzService,
	gate *restrict.Gate,
	minAmount int64,
) *TopupService {
	return &TopupService{
		accounts:  accounts,
		topups:    topups,
		settings:  settings,
		authz:     authz,
		gate:      gate,
		minAmount: minAmount,
	}
}

// Submit records a pending top-up. No balance effect; the account is
// interaction-restricted until an admin resolves it. At most one
// draft top-up may be in flight per account.
func (s *TopupService) Submit(ctx context.Context, accountID int64, amount int64, channel string, proofFileID *string) (*model.Topup, error) {
	if !s.authz.IsAuthorized(accountID) {
		return nil, ErrNotAuthorized
	}
	if amount < s.minAmount {
		return nil, ErrAmountBelowMinimum
	}

	if _, ok, err := s.settings.PaymentChannel(ctx, channel); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrUnknownChannel
	}

	s.gate.Lock(accountID)
	defer s.gate.Unlock(accountID)

	// Advisory fast path, then the authoritative persisted status.
	if s.gate.Restricted(accountID) {
		return nil, ErrPendingTopup
	}
	pending, err := s.topups.HasPending(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if pending {
		s.gate.Restrict(accountID)
		return nil, ErrPendingTopup
	}

	now := time.Now()
	topup := &model.Topup{
		TopupID:     newItemID("T", now, accountID),
		AccountID:   accountID,
		Amount:      amount,
		Channel:     channel,
		ProofFileID: proofFileID,
		Status:      model.TopupPending,
		CreatedAt:   now,
	}

	if err := s.topups.Append(ctx, topup); err != nil {
		return nil, err
	}

	s.gate.Restrict(accountID)

	log.Info().
		Int64("account_id", accountID).
		Str("topup_id", topup.TopupID).
		Int64("amount", amount).
		Str("channel", channel).
		Msg("Top-up submitted")

	return topup, nil
}

// Resolve applies the admin's terminal decision by top-up id.
// Approval credits the amount with the same compensating-action rule
// as order cancellation; rejection has no balance effect. Either way
// the account's interaction restriction is cleared.
func (s *TopupService) Resolve(ctx context.Context, topupID string, approve bool, actor int64) (*model.Topup, error) {
	if !s.authz.IsAdmin(actor) {
		return nil, ErrNotAdmin
	}

	to := model.TopupRejected
	if approve {
		to = model.TopupApproved
	}

	topup, err := s.topups.Transition(ctx, topupID, to, actor, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyResolved) {
			s.clearIfNoPending(ctx, topup.AccountID)
			return topup, err
		}
		return nil, err
	}

	if approve {
		if _, err := s.accounts.AdjustBalance(ctx, topup.AccountID, topup.Amount); err != nil {
			if revertErr := s.topups.RevertToPending(ctx, topupID, model.TopupApproved); revertErr != nil {
				recErr := &ReconciliationError{
					AccountID: topup.AccountID,
					ItemID:    topupID,
					Delta:     topup.Amount,
					Cause:     errors.Join(err, revertErr),
				}
				log.Error().
					Int64("admin_id", actor).
					Int64("account_id", topup.AccountID).
					Str("topup_id", topupID).
					Int64("uncredited", topup.Amount).
					Err(recErr.Cause).
					Msg("RECONCILIATION REQUIRED: approval credit failed and status revert failed")
				return nil, recErr
			}
			return nil, fmt.Errorf("failed to credit approved top-up: %w", err)
		}
	}

	s.clearIfNoPending(ctx, topup.AccountID)

	operation := "reject_topup"
	if approve {
		operation = "approve_topup"
	}
	log.Info().
		Int64("admin_id", actor).
		Int64("account_id", topup.AccountID).
		Str("topup_id", topupID).
		Int64("amount", topup.Amount).
		Str("operation", operation).
		Msg("Top-up resolved")

	return topup, nil
}

// ResolveByAmount resolves the most recently created pending top-up
// on the account matching the amount. Fails with ErrTopupNotFound
// when nothing matches rather than guessing.
func (s *TopupService) ResolveByAmount(ctx context.Context, accountID int64, amount int64, approve bool, actor int64) (*model.Topup, error) {
	if !s.authz.IsAdmin(actor) {
		return nil, ErrNotAdmin
	}

	topup, err := s.topups.LatestPendingByAmount(ctx, accountID, amount)
	if err != nil {
		return nil, err
	}

	return s.Resolve(ctx, topup.TopupID, approve, actor)
}

// clearIfNoPending lowers the advisory restriction once the store
// confirms no top-up remains pending. Best effort: on a store error
// the flag stays raised and a later check repairs it.
func (s *TopupService) clearIfNoPending(ctx context.Context, accountID int64) {
	pending, err := s.topups.HasPending(ctx, accountID)
	if err == nil && !pending {
		s.gate.Clear(accountID)
	}
}
