package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/model"
)

// CloneRepository handles delegate sub-account ("clone") persistence.
// Clones are independent ledgers with the same atomic credit/debit
// contract as the main account balance.
type CloneRepository struct {
	pool *pgxpool.Pool
}

// NewCloneRepository creates a new CloneRepository instance.
func NewCloneRepository(pool *pgxpool.Pool) *CloneRepository {
	return &CloneRepository{pool: pool}
}

const cloneColumns = `id, owner_admin_id, balance, status, created_at, updated_at`

func scanClone(row pgx.Row) (*model.Clone, error) {
	var c model.Clone
	err := row.Scan(&c.ID, &c.OwnerAdminID, &c.Balance, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create registers a clone under its owning admin. Idempotent: a
// second registration of the same id is a no-op.
func (r *CloneRepository) Create(ctx context.Context, id, ownerAdminID int64) (bool, error) {
	const query = `
		INSERT INTO clones (id, owner_admin_id, balance, status, created_at, updated_at)
		VALUES ($1, $2, 0, 'active', NOW(), NOW())
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query, id, ownerAdminID)
	if err != nil {
		return false, storeErr("failed to create clone", err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetByID retrieves a clone by id.
// Returns ErrCloneNotFound if no such clone exists.
func (r *CloneRepository) GetByID(ctx context.Context, id int64) (*model.Clone, error) {
	const query = `SELECT ` + cloneColumns + ` FROM clones WHERE id = $1`

	clone, err := scanClone(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCloneNotFound
		}
		return nil, storeErr("failed to get clone", err)
	}

	return clone, nil
}

// AdjustBalance applies delta atomically and returns the new balance.
// Same single-statement contract as AccountRepository.AdjustBalance,
// except clones must already exist.
func (r *CloneRepository) AdjustBalance(ctx context.Context, id int64, delta int64) (int64, error) {
	const query = `
		UPDATE clones
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING balance
	`

	var balance int64
	err := r.pool.QueryRow(ctx, query, id, delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrCloneNotFound
		}
		return 0, storeErr("failed to adjust clone balance", err)
	}

	return balance, nil
}

// SetStatus switches a clone between active and disabled.
func (r *CloneRepository) SetStatus(ctx context.Context, id int64, status string) error {
	const query = `UPDATE clones SET status = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return storeErr("failed to set clone status", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCloneNotFound
	}

	return nil
}

// ListByOwner returns the clones registered under one admin.
func (r *CloneRepository) ListByOwner(ctx context.Context, ownerAdminID int64) ([]*model.Clone, error) {
	const query = `
		SELECT ` + cloneColumns + `
		FROM clones
		WHERE owner_admin_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, ownerAdminID)
	if err != nil {
		return nil, storeErr("failed to list clones", err)
	}
	defer rows.Close()

	var clones []*model.Clone
	for rows.Next() {
		c, err := scanClone(rows)
		if err != nil {
			return nil, storeErr("failed to scan clone", err)
		}
		clones = append(clones, c)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("error iterating clones", err)
	}

	return clones, nil
}
