package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/model"
)

// OrderRepository handles diamond order persistence. Orders are an
// append-only history per account; the single terminal transition is
// a conditional update keyed on the current status.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository creates a new OrderRepository instance.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `order_id, account_id, game_id, server_id, item_code, price, status, created_at, resolved_by, resolved_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.OrderID,
		&o.AccountID,
		&o.GameID,
		&o.ServerID,
		&o.ItemCode,
		&o.Price,
		&o.Status,
		&o.CreatedAt,
		&o.ResolvedBy,
		&o.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Append inserts a new pending order into the account's history.
func (r *OrderRepository) Append(ctx context.Context, o *model.Order) error {
	const query = `
		INSERT INTO orders (order_id, account_id, game_id, server_id, item_code, price, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		o.OrderID, o.AccountID, o.GameID, o.ServerID, o.ItemCode, o.Price, o.Status, o.CreatedAt)
	if err != nil {
		return storeErr("failed to append order", err)
	}

	return nil
}

// GetByID retrieves an order by its id.
// Returns ErrOrderNotFound if no such order exists.
func (r *OrderRepository) GetByID(ctx context.Context, orderID string) (*model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, storeErr("failed to get order", err)
	}

	return order, nil
}

// Transition flips a pending order to a terminal status. The update
// is conditional on the current status, so if two resolutions race
// exactly one succeeds; the loser gets the already-terminal snapshot
// together with ErrAlreadyResolved.
func (r *OrderRepository) Transition(ctx context.Context, orderID string, to model.OrderStatus, actor int64, at time.Time) (*model.Order, error) {
	const query = `
		UPDATE orders
		SET status = $2, resolved_by = $3, resolved_at = $4
		WHERE order_id = $1 AND status = 'pending'
		RETURNING ` + orderColumns

	order, err := scanOrder(r.pool.QueryRow(ctx, query, orderID, to, actor, at))
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, storeErr("failed to transition order", err)
	}

	// No pending row matched: either the order does not exist or it
	// is already terminal. GetByID distinguishes the two.
	existing, err := r.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return existing, ErrAlreadyResolved
}

// RevertToPending is the compensating action for a failed
// cancel-refund: it undoes the terminal flip so the debit stays
// consistent with the recorded status.
func (r *OrderRepository) RevertToPending(ctx context.Context, orderID string, from model.OrderStatus) error {
	const query = `
		UPDATE orders
		SET status = 'pending', resolved_by = NULL, resolved_at = NULL
		WHERE order_id = $1 AND status = $2
	`

	tag, err := r.pool.Exec(ctx, query, orderID, from)
	if err != nil {
		return storeErr("failed to revert order", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// ListByAccount retrieves the account's most recent orders, newest first.
func (r *OrderRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*model.Order, error) {
	const query = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, storeErr("failed to list orders", err)
	}
	defer rows.Close()

	var orders []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, storeErr("failed to scan order", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("error iterating orders", err)
	}

	return orders, nil
}

// Aggregate sums confirmed orders whose confirmation time falls in
// the half-open window [from, to).
func (r *OrderRepository) Aggregate(ctx context.Context, from, to time.Time) (total int64, count int64, err error) {
	const query = `
		SELECT COALESCE(SUM(price), 0), COUNT(*)
		FROM orders
		WHERE status = 'confirmed'
		  AND resolved_at >= $1
		  AND resolved_at < $2
	`

	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&total, &count); err != nil {
		return 0, 0, storeErr("failed to aggregate orders", err)
	}

	return total, count, nil
}
