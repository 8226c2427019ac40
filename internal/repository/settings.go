package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/model"
)

// SettingsRepository persists the global configuration the admins can
// change at runtime: the admin set, the authorized-user allowlist,
// price overrides and payment channels. All set mutations are
// idempotent upserts or deletes.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository creates a new SettingsRepository instance.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// AddAdmin grants the admin role. No-op if already granted.
func (r *SettingsRepository) AddAdmin(ctx context.Context, userID int64) error {
	const query = `INSERT INTO admins (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return storeErr("failed to add admin", err)
	}
	return nil
}

// RemoveAdmin revokes the admin role. No-op if not granted.
// The owner is never stored here; keeping it out of the table is what
// makes the owner irrevocable.
func (r *SettingsRepository) RemoveAdmin(ctx context.Context, userID int64) error {
	const query = `DELETE FROM admins WHERE user_id = $1`

	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return storeErr("failed to remove admin", err)
	}
	return nil
}

// ListAdmins returns all granted admin ids.
func (r *SettingsRepository) ListAdmins(ctx context.Context) ([]int64, error) {
	return r.listIDs(ctx, `SELECT user_id FROM admins ORDER BY user_id`)
}

// AuthorizeUser adds a user to the allowlist. Idempotent.
func (r *SettingsRepository) AuthorizeUser(ctx context.Context, userID int64) error {
	const query = `INSERT INTO authorized_users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return storeErr("failed to authorize user", err)
	}
	return nil
}

// RevokeUser removes a user from the allowlist. Idempotent.
func (r *SettingsRepository) RevokeUser(ctx context.Context, userID int64) error {
	const query = `DELETE FROM authorized_users WHERE user_id = $1`

	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return storeErr("failed to revoke user", err)
	}
	return nil
}

// ListAuthorized returns all allowlisted user ids.
func (r *SettingsRepository) ListAuthorized(ctx context.Context) ([]int64, error) {
	return r.listIDs(ctx, `SELECT user_id FROM authorized_users ORDER BY user_id`)
}

func (r *SettingsRepository) listIDs(ctx context.Context, query string) ([]int64, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, storeErr("failed to list ids", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("failed to scan id", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("error iterating ids", err)
	}

	return ids, nil
}

// SetPriceOverride upserts a manual price for an item code.
func (r *SettingsRepository) SetPriceOverride(ctx context.Context, itemCode string, price int64) error {
	const query = `
		INSERT INTO price_overrides (item_code, price)
		VALUES ($1, $2)
		ON CONFLICT (item_code) DO UPDATE SET price = EXCLUDED.price
	`

	if _, err := r.pool.Exec(ctx, query, itemCode, price); err != nil {
		return storeErr("failed to set price override", err)
	}
	return nil
}

// RemovePriceOverride drops a manual price. Idempotent.
func (r *SettingsRepository) RemovePriceOverride(ctx context.Context, itemCode string) error {
	const query = `DELETE FROM price_overrides WHERE item_code = $1`

	if _, err := r.pool.Exec(ctx, query, itemCode); err != nil {
		return storeErr("failed to remove price override", err)
	}
	return nil
}

// PriceOverride looks up a manual price for an item code.
func (r *SettingsRepository) PriceOverride(ctx context.Context, itemCode string) (int64, bool, error) {
	const query = `SELECT price FROM price_overrides WHERE item_code = $1`

	var price int64
	err := r.pool.QueryRow(ctx, query, itemCode).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, storeErr("failed to get price override", err)
	}

	return price, true, nil
}

// SetPaymentChannel upserts a payment channel record.
func (r *SettingsRepository) SetPaymentChannel(ctx context.Context, ch *model.PaymentChannel) error {
	const query = `
		INSERT INTO payment_channels (name, account_number, account_name, qr_file_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET account_number = EXCLUDED.account_number,
		    account_name = EXCLUDED.account_name,
		    qr_file_id = EXCLUDED.qr_file_id
	`

	if _, err := r.pool.Exec(ctx, query, ch.Name, ch.AccountNumber, ch.AccountName, ch.QRFileID); err != nil {
		return storeErr("failed to set payment channel", err)
	}
	return nil
}

// RemovePaymentChannel drops a payment channel. Idempotent.
func (r *SettingsRepository) RemovePaymentChannel(ctx context.Context, name string) error {
	const query = `DELETE FROM payment_channels WHERE name = $1`

	if _, err := r.pool.Exec(ctx, query, name); err != nil {
		return storeErr("failed to remove payment channel", err)
	}
	return nil
}

// PaymentChannel looks up a channel by name.
func (r *SettingsRepository) PaymentChannel(ctx context.Context, name string) (*model.PaymentChannel, bool, error) {
	const query = `SELECT name, account_number, account_name, qr_file_id FROM payment_channels WHERE name = $1`

	var ch model.PaymentChannel
	err := r.pool.QueryRow(ctx, query, name).Scan(&ch.Name, &ch.AccountNumber, &ch.AccountName, &ch.QRFileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, storeErr("failed to get payment channel", err)
	}

	return &ch, true, nil
}

// ListPaymentChannels returns all configured payment channels.
func (r *SettingsRepository) ListPaymentChannels(ctx context.Context) ([]*model.PaymentChannel, error) {
	const query = `SELECT name, account_number, account_name, qr_file_id FROM payment_channels ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, storeErr("failed to list payment channels", err)
	}
	defer rows.Close()

	var channels []*model.PaymentChannel
	for rows.Next() {
		var ch model.PaymentChannel
		if err := rows.Scan(&ch.Name, &ch.AccountNumber, &ch.AccountName, &ch.QRFileID); err != nil {
			return nil, storeErr("failed to scan payment channel", err)
		}
		channels = append(channels, &ch)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("error iterating payment channels", err)
	}

	return channels, nil
}
