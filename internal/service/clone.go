package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/model"
	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/repository"
)

// CloneService manages delegate sub-accounts. A clone belongs to one
// admin; only the owning admin or the operator may move its balance.
type CloneService struct {
	clones *repository.CloneRepository
	authz  *AuthzService
}

// NewCloneService creates a new CloneService instance.
func NewCloneService(clones *repository.CloneRepository, authz *AuthzService) *CloneService {
	return &CloneService{clones: clones, authz: authz}
}

// Register creates a clone owned by the acting admin. Idempotent.
func (s *CloneService) Register(ctx context.Context, actor, cloneID int64) (bool, error) {
	if !s.authz.IsAdmin(actor) {
		return false, ErrNotAdmin
	}

	created, err := s.clones.Create(ctx, cloneID, actor)
	if err != nil {
		return false, err
	}

	if created {
		log.Info().Int64("admin_id", actor).Int64("clone_id", cloneID).Msg("Clone registered")
	}
	return created, nil
}

// Adjust applies delta to a clone balance. Debits are checked against
// the current balance first so a ledger operation never produces a
// negative result; the increment itself is atomic in the store.
func (s *CloneService) Adjust(ctx context.Context, actor, cloneID int64, delta int64) (int64, error) {
	clone, err := s.authorize(ctx, actor, cloneID)
	if err != nil {
		return 0, err
	}

	if delta < 0 && clone.Balance+delta < 0 {
		return 0, ErrInsufficientBalance
	}

	balance, err := s.clones.AdjustBalance(ctx, cloneID, delta)
	if err != nil {
		return 0, err
	}

	log.Info().
		Int64("admin_id", actor).
		Int64("clone_id", cloneID).
		Int64("delta", delta).
		Int64("new_balance", balance).
		Msg("Clone balance adjusted")

	return balance, nil
}

// SetStatus enables or disables a clone.
func (s *CloneService) SetStatus(ctx context.Context, actor, cloneID int64, status string) error {
	if _, err := s.authorize(ctx, actor, cloneID); err != nil {
		return err
	}
	return s.clones.SetStatus(ctx, cloneID, status)
}

// List returns the clones owned by the acting admin.
func (s *CloneService) List(ctx context.Context, actor int64) ([]*model.Clone, error) {
	if !s.authz.IsAdmin(actor) {
		return nil, ErrNotAdmin
	}
	return s.clones.ListByOwner(ctx, actor)
}

// authorize loads the clone and checks the actor may operate on it.
func (s *CloneService) authorize(ctx context.Context, actor, cloneID int64) (*model.Clone, error) {
	if !s.authz.IsAdmin(actor) {
		return nil, ErrNotAdmin
	}

	clone, err := s.clones.GetByID(ctx, cloneID)
	if err != nil {
		return nil, err
	}
	if clone.OwnerAdminID != actor && !s.authz.IsOwner(actor) {
		return nil, ErrNotAdmin
	}

	return clone, nil
}
