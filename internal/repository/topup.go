package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/model"
)

// TopupRepository handles top-up persistence with the same
// append-only, conditional-transition contract as orders.
type TopupRepository struct {
	pool *pgxpool.Pool
}

// NewTopupRepository creates a new TopupRepository instance.
func NewTopupRepository(pool *pgxpool.Pool) *TopupRepository {
	return &TopupRepository{pool: pool}
}

const topupColumns = `topup_id, account_id, amount, channel, proof_file_id, status, created_at, resolved_by, resolved_at`

func scanTopup(row pgx.Row) (*model.Topup, error) {
	var t model.Topup
	err := row.Scan(
		&t.TopupID,
		&t.AccountID,
		&t.Amount,
		&t.Channel,
		&t.ProofFileID,
		&t.Status,
		&t.CreatedAt,
		&t.ResolvedBy,
		&t.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Append inserts a new pending top-up into the account's history.
func (r *TopupRepository) Append(ctx context.Context, t *model.Topup) error {
	const query = `
		INSERT INTO topups (topup_id, account_id, amount, channel, proof_file_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		t.TopupID, t.AccountID, t.Amount, t.Channel, t.ProofFileID, t.Status, t.CreatedAt)
	if err != nil {
		return storeErr("failed to append top-up", err)
	}

	return nil
}

// GetByID retrieves a top-up by its id.
// Returns ErrTopupNotFound if no such top-up exists.
func (r *TopupRepository) GetByID(ctx context.Context, topupID string) (*model.Topup, error) {
	const query = `SELECT ` + topupColumns + ` FROM topups WHERE topup_id = $1`

	topup, err := scanTopup(r.pool.QueryRow(ctx, query, topupID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTopupNotFound
		}
		return nil, storeErr("failed to get top-up", err)
	}

	return topup, nil
}

// Transition flips a pending top-up to a terminal status with the
// same race semantics as OrderRepository.Transition.
func (r *TopupRepository) Transition(ctx context.Context, topupID string, to model.TopupStatus, actor int64, at time.Time) (*model.Topup, error) {
	const query = `
		UPDATE topups
		SET status = $2, resolved_by = $3, resolved_at = $4
		WHERE topup_id = $1 AND status = 'pending'
		RETURNING ` + topupColumns

	topup, err := scanTopup(r.pool.QueryRow(ctx, query, topupID, to, actor, at))
	if err == nil {
		return topup, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, storeErr("failed to transition top-up", err)
	}

	existing, err := r.GetByID(ctx, topupID)
	if err != nil {
		return nil, err
	}
	return existing, ErrAlreadyResolved
}

// RevertToPending undoes a terminal flip after a failed approval
// credit, keeping the recorded status consistent with the balance.
func (r *TopupRepository) RevertToPending(ctx context.Context, topupID string, from model.TopupStatus) error {
	const query = `
		UPDATE topups
		SET status = 'pending', resolved_by = NULL, resolved_at = NULL
		WHERE topup_id = $1 AND status = $2
	`

	tag, err := r.pool.Exec(ctx, query, topupID, from)
	if err != nil {
		return storeErr("failed to revert top-up", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTopupNotFound
	}

	return nil
}

// LatestPendingByAmount resolves the admin's "by amount" lookup: the
// most recently created pending top-up on the account matching the
// amount. Returns ErrTopupNotFound when nothing matches; the caller
// must fail rather than guess.
func (r *TopupRepository) LatestPendingByAmount(ctx context.Context, accountID int64, amount int64) (*model.Topup, error) {
	const query = `
		SELECT ` + topupColumns + `
		FROM topups
		WHERE account_id = $1 AND amount = $2 AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1
	`

	topup, err := scanTopup(r.pool.QueryRow(ctx, query, accountID, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTopupNotFound
		}
		return nil, storeErr("failed to find pending top-up", err)
	}

	return topup, nil
}

// HasPending reports whether the account has an unresolved top-up.
// This is the authoritative check behind the advisory restriction flag.
func (r *TopupRepository) HasPending(ctx context.Context, accountID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM topups WHERE account_id = $1 AND status = 'pending')`

	var pending bool
	if err := r.pool.QueryRow(ctx, query, accountID).Scan(&pending); err != nil {
		return false, storeErr("failed to check pending top-ups", err)
	}

	return pending, nil
}

// AccountIDsWithPending lists accounts holding an unresolved top-up.
// Used at startup to rebuild the advisory restriction flags.
func (r *TopupRepository) AccountIDsWithPending(ctx context.Context) ([]int64, error) {
	const query = `SELECT DISTINCT account_id FROM topups WHERE status = 'pending'`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, storeErr("failed to list pending top-up accounts", err)
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
		return nil, storeErr("error iterating pending top-up accounts", err)
	}

	return ids, nil
}

// ListByAccount retrieves the account's most recent top-ups, newest first.
func (r *TopupRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*model.Topup, error) {
	const query = `
		SELECT ` + topupColumns + `
		FROM topups
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, storeErr("failed to list top-ups", err)
	}
	defer rows.Close()

	var topups []*model.Topup
	for rows.Next() {
		t, err := scanTopup(rows)
		if err != nil {
			return nil, storeErr("failed to scan top-up", err)
		}
		topups = append(topups, t)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("error iterating top-ups", err)
	}

	return topups, nil
}

// Aggregate sums approved top-ups whose approval time falls in the
// half-open window [from, to).
func (r *TopupRepository) Aggregate(ctx context.Context, from, to time.Time) (total int64, count int64, err error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0), COUNT(*)
		FROM topups
		WHERE status = 'approved'
		  AND resolved_at >= $1
		  AND resolved_at < $2
	`

	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&total, &count); err != nil {
		return 0, 0, storeErr("failed to aggregate top-ups", err)
	}

	return total, count, nil
}
