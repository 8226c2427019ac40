package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/model"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/pkg/restrict"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/pricing"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/repository"
)

// Game/server id format bounds.
const (
	gameIDMinDigits   = 6
	gameIDMaxDigits   = 10
	serverIDMinDigits = 4
	serverIDMaxDigits = 6
)

// OrderResult is returned to the transport layer after a successful
// order submission.
type OrderResult struct {
	OrderID    string
	Price      int64
	NewBalance int64
}

// OrderService runs the diamond order state machine:
// pending -> confirmed | cancelled. Creation debits the price from
// the balance; cancellation refunds it exactly once.
type OrderService struct {
	accounts *repository.AccountRepository
	orders   *repository.OrderRepository
	topups   *repository.TopupRepository
	resolver *pricing.Resolver
	authz    *AuthzService
	gate     *restrict.Gate
}

// NewOrderService creates a new OrderService instance.
func NewOrderService(
	accounts *repository.AccountRepository,
	orders *repository.OrderRepository,
	topups *repository.TopupRepository,
	resolver *pricing.Resolver,
	authz *AuthzService,
	gate *restrict.Gate,
) *OrderService {
	return &OrderService{
		accounts: accounts,
		orders:   orders,
		topups:   topups,
		resolver: resolver,
		authz:    authz,
		gate:     gate,
	}
}

// Submit validates and creates a pending order, debiting the snapshot
// price from the account balance. All checks run before the first
// mutation; the debit and the history append are two store calls, so
// a failed append is compensated by crediting the price back before
// the error is reported.
func (s *OrderService) Submit(ctx context.Context, accountID int64, gameID, serverID, itemCode string) (*OrderResult, error) {
	if !s.authz.IsAuthorized(accountID) {
		return nil, ErrNotAuthorized
	}
	if !isDigits(gameID, gameIDMinDigits, gameIDMaxDigits) {
		return nil, ErrInvalidGameID
	}
	if !isDigits(serverID, serverIDMinDigits, serverIDMaxDigits) {
		return nil, ErrInvalidServerID
	}

	if err := s.checkUnrestricted(ctx, accountID); err != nil {
		return nil, err
	}

	price, err := s.resolver.Resolve(ctx, itemCode)
	if err != nil {
		return nil, err
	}

	// Serialize the balance check and debit for this account so two
	// in-flight submissions cannot both pass the check.
	s.gate.Lock(accountID)
	defer s.gate.Unlock(accountID)

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Balance < price {
		return nil, ErrInsufficientBalance
	}

	newBalance, err := s.accounts.AdjustBalance(ctx, accountID, -price)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order := &model.Order{
		OrderID:   newItemID("D", now, accountID),
		AccountID: accountID,
		GameID:    gameID,
		ServerID:  serverID,
		ItemCode:  itemCode,
		Price:     price,
		Status:    model.OrderPending,
		CreatedAt: now,
	}

	if err := s.orders.Append(ctx, order); err != nil {
		// A debit without a record must never be left standing.
		if _, creditErr := s.accounts.AdjustBalance(ctx, accountID, price); creditErr != nil {
			recErr := &ReconciliationError{
				AccountID: accountID,
				ItemID:    order.OrderID,
				Delta:     price,
				Cause:     creditErr,
			}
			log.Error().
				Int64("account_id", accountID).
				Str("order_id", order.OrderID).
				Int64("unrefunded", price).
				Err(creditErr).
				Msg("RECONCILIATION REQUIRED: order append failed and compensating credit failed")
			return nil, recErr
		}
		return nil, fmt.Errorf("failed to record order: %w", err)
	}

	log.Info().
		Int64("account_id", accountID).
		Str("order_id", order.OrderID).
		Str("item_code", itemCode).
		Int64("price", price).
		Int64("new_balance", newBalance).
		Msg("Order submitted")

	return &OrderResult{
		OrderID:    order.OrderID,
		Price:      price,
		NewBalance: newBalance,
	}, nil
}

// Resolve applies the admin's terminal decision. Confirm keeps the
// debit; cancel refunds the snapshot price exactly once. An order
// that already left pending is reported with ErrAlreadyResolved and
// its existing state, and nothing is mutated.
func (s *OrderService) Resolve(ctx context.Context, orderID string, confirm bool, actor int64) (*model.Order, error) {
	if !s.authz.IsAdmin(actor) {
		return nil, ErrNotAdmin
	}

	to := model.OrderCancelled
	if confirm {
		to = model.OrderConfirmed
	}

	order, err := s.orders.Transition(ctx, orderID, to, actor, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyResolved) {
			return order, err
		}
		return nil, err
	}

	if confirm {
		log.Info().
			Int64("admin_id", actor).
			Str("order_id", orderID).
			Str("operation", "confirm_order").
			Msg("Order confirmed")
		return order, nil
	}

	// Cancellation releases the escrowed debit.
	if _, err := s.accounts.AdjustBalance(ctx, order.AccountID, order.Price); err != nil {
		// Try to put the order back to pending so the debit stays
		// consistent with the recorded status. If even that fails
		// the ledger needs manual attention.
		if revertErr := s.orders.RevertToPending(ctx, orderID, model.OrderCancelled); revertErr != nil {
			recErr := &ReconciliationError{
				AccountID: order.AccountID,
				ItemID:    orderID,
				Delta:     order.Price,
				Cause:     errors.Join(err, revertErr),
			}
			log.Error().
				Int64("admin_id", actor).
				Int64("account_id", order.AccountID).
				Str("order_id", orderID).
				Int64("unrefunded", order.Price).
				Err(recErr.Cause).
				Msg("RECONCILIATION REQUIRED: cancel refund failed and status revert failed")
			return nil, recErr
		}
		return nil, fmt.Errorf("failed to refund cancelled order: %w", err)
	}

	log.Info().
		Int64("admin_id", actor).
		Int64("account_id", order.AccountID).
		Str("order_id", orderID).
		Int64("refunded", order.Price).
		Str("operation", "cancel_order").
		Msg("Order cancelled and refunded")

	return order, nil
}

// checkUnrestricted blocks new ledger-mutating commands while a
// top-up awaits review. The in-process flag is the fast path; the
// persisted pending status decides, and repairs the flag on mismatch.
func (s *OrderService) checkUnrestricted(ctx context.Context, accountID int64) error {
	if s.gate.Restricted(accountID) {
		return ErrPendingTopup
	}

	pending, err := s.topups.HasPending(ctx, accountID)
	if err != nil {
		return err
	}
	if pending {
		s.gate.Restrict(accountID)
		return ErrPendingTopup
	}

	return nil
}
