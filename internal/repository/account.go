// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/model"
)

// Common errors for repository operations.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrTopupNotFound   = errors.New("top-up not found")
	ErrCloneNotFound   = errors.New("clone account not found")

	// ErrAlreadyResolved is returned when a terminal transition is
	// attempted on an item that already left the pending state. The
	// item snapshot returned alongside it carries the existing
	// terminal status; callers treat this as a no-op, not a failure.
	ErrAlreadyResolved = errors.New("item already resolved")
)

// AccountRepository handles account data persistence.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository instance.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `telegram_id, display_name, username, balance, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.TelegramID,
		&a.DisplayName,
		&a.Username,
		&a.Balance,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID retrieves an account by its Telegram ID.
// Returns ErrAccountNotFound if the account does not exist.
func (r *AccountRepository) GetByID(ctx context.Context, telegramID int64) (*model.Account, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE telegram_id = $1
	`

	account, err := scanAccount(r.pool.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, storeErr("failed to get account", err)
	}

	return account, nil
}

// CreateIfAbsent inserts an account with a zero balance if none exists
// for the id. It is idempotent: a second call is a no-op and reports
// created=false.
func (r *AccountRepository) CreateIfAbsent(ctx context.Context, telegramID int64, displayName, username string) (bool, error) {
	const query = `
		INSERT INTO accounts (telegram_id, display_name, username, balance, created_at, updated_at)
		VALUES ($1, $2, $3, 0, NOW(), NOW())
		ON CONFLICT (telegram_id) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query, telegramID, displayName, username)
	if err != nil {
		return false, storeErr("failed to create account", err)
	}

	return tag.RowsAffected() > 0, nil
}

// AdjustBalance applies delta to the account balance as a single
// atomic statement and returns the new balance. The account is
// created with balance=delta if absent (upsert). Concurrent calls
// for the same id never lose updates because the increment happens
// inside the database, not as read-then-write in application code.
//
// This layer never clamps or rejects negative results; preventing a
// negative balance is the calling workflow's responsibility.
func (r *AccountRepository) AdjustBalance(ctx context.Context, telegramID int64, delta int64) (int64, error) {
	const query = `
		INSERT INTO accounts (telegram_id, display_name, username, balance, created_at, updated_at)
		VALUES ($1, '', '', $2, NOW(), NOW())
		ON CONFLICT (telegram_id)
		DO UPDATE SET balance = accounts.balance + EXCLUDED.balance, updated_at = NOW()
		RETURNING balance
	`

	var balance int64
	if err := r.pool.QueryRow(ctx, query, telegramID, delta).Scan(&balance); err != nil {
		return 0, storeErr("failed to adjust balance", err)
	}

	return balance, nil
}

// UpdateProfile refreshes the display name and username captured from
// the chat transport. Missing values are left untouched.
func (r *AccountRepository) UpdateProfile(ctx context.Context, telegramID int64, displayName, username string) error {
	const query = `
		UPDATE accounts
		SET display_name = COALESCE(NULLIF($2, ''), display_name),
		    username = COALESCE(NULLIF($3, ''), username),
		    updated_at = NOW()
		WHERE telegram_id = $1
	`

	tag, err := r.pool.Exec(ctx, query, telegramID, displayName, username)
	if err != nil {
		return storeErr("failed to update profile", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// Summary returns the balance plus order/top-up counts for one account.
func (r *AccountRepository) Summary(ctx context.Context, telegramID int64) (*model.AccountSummary, error) {
	const query = `
		SELECT a.balance,
		       (SELECT COUNT(*) FROM orders o WHERE o.account_id = a.telegram_id),
		       (SELECT COUNT(*) FROM topups t WHERE t.account_id = a.telegram_id),
		       (SELECT COUNT(*) FROM topups t WHERE t.account_id = a.telegram_id AND t.status = 'pending')
		FROM accounts a
		WHERE a.telegram_id = $1
	`

	var s model.AccountSummary
	err := r.pool.QueryRow(ctx, query, telegramID).Scan(
		&s.Balance,
		&s.OrderCount,
		&s.TopupCount,
		&s.PendingTopupCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, storeErr("failed to get account summary", err)
	}

	return &s, nil
}

// ListIDs returns every account id. Used by the broadcast fan-out.
func (r *AccountRepository) ListIDs(ctx context.Context) ([]int64, error) {
	const query = `SELECT telegram_id FROM accounts ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, storeErr("failed to list accounts", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("failed to scan account id", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("error iterating accounts", err)
	}

	return ids, nil
}
