package service

import (
	"context"
	"fmt"

	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/model"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/repository"
)

// AccountService handles account reads and first-interaction creation.
type AccountService struct {
	accounts *repository.AccountRepository
	orders   *repository.OrderRepository
	topups   *repository.TopupRepository
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(
	accounts *repository.AccountRepository,
	orders *repository.OrderRepository,
	topups *repository.TopupRepository,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		orders:   orders,
		topups:   topups,
	}
}

// EnsureAccount creates the account on first interaction and keeps
// the captured profile fields fresh afterwards. Returns the account
// and whether it was newly created.
func (s *AccountService) EnsureAccount(ctx context.Context, telegramID int64, displayName, username string) (*model.Account, bool, error) {
	created, err := s.accounts.CreateIfAbsent(ctx, telegramID, displayName, username)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure account: %w", err)
	}

	if !created {
		// Refresh the profile in place; non-fatal if the row vanished
		// between the two statements.
		_ = s.accounts.UpdateProfile(ctx, telegramID, displayName, username)
	}

	account, err := s.accounts.GetByID(ctx, telegramID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load account: %w", err)
	}

	return account, created, nil
}

// Balance returns the current balance.
func (s *AccountService) Balance(ctx context.Context, telegramID int64) (int64, error) {
	account, err := s.accounts.GetByID(ctx, telegramID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// Summary returns the at-a-glance account view.
func (s *AccountService) Summary(ctx context.Context, telegramID int64) (*model.AccountSummary, error) {
	return s.accounts.Summary(ctx, telegramID)
}

// ListIDs returns every known account id, used by broadcasts.
func (s *AccountService) ListIDs(ctx context.Context) ([]int64, error) {
	return s.accounts.ListIDs(ctx)
}

// History returns the account's last N orders and last N top-ups,
// newest first.
func (s *AccountService) History(ctx context.Context, telegramID int64, limit int) ([]*model.Order, []*model.Topup, error) {
	orders, err := s.orders.ListByAccount(ctx, telegramID, limit)
	if err != nil {
		return nil, nil, err
	}
	topups, err := s.topups.ListByAccount(ctx, telegramID, limit)
	if err != nil {
		return nil, nil, err
	}
	return orders, topups, nil
}
