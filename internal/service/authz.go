package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/immortal-music/cailinmlbbordertopup-sub000/internal/repository"
)

// AuthzService is the owner/admin/authorized-user registry. The
// persisted settings tables are the source of truth; the in-memory
// sets are an advisory cache refreshed at startup and on every write,
// never trusted across restarts.
type AuthzService struct {
	settings *repository.SettingsRepository
	ownerID  int64

	mu         sync.RWMutex
	admins     map[int64]struct{}
	authorized map[int64]struct{}
}

// NewAuthzService creates the registry for the given owner id.
func NewAuthzService(settings *repository.SettingsRepository, ownerID int64) *AuthzService {
	return &AuthzService{
		settings:   settings,
		ownerID:    ownerID,
		admins:     make(map[int64]struct{}),
		authorized: make(map[int64]struct{}),
	}
}

// Refresh reloads the cached sets from the settings store.
func (s *AuthzService) Refresh(ctx context.Context) error {
	adminIDs, err := s.settings.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to load admins: %w", err)
	}
	authorizedIDs, err := s.settings.ListAuthorized(ctx)
	if err != nil {
		return fmt.Errorf("failed to load authorized users: %w", err)
	}

	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	authorized := make(map[int64]struct{}, len(authorizedIDs))
	for _, id := range authorizedIDs {
		authorized[id] = struct{}{}
	}

	s.mu.Lock()
	s.admins = admins
	s.authorized = authorized
	s.mu.Unlock()

	log.Info().
		Int("admins", len(admins)).
		Int("authorized_users", len(authorized)).
		Msg("Authorization registry refreshed")

	return nil
}

// IsOwner reports whether the user is the operator.
func (s *AuthzService) IsOwner(userID int64) bool {
	return userID == s.ownerID
}

// IsAdmin reports whether the user may resolve orders/top-ups and
// change settings. The owner is implicitly an admin.
func (s *AuthzService) IsAdmin(userID int64) bool {
	if userID == s.ownerID {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.admins[userID]
	return ok
}

// IsAuthorized reports whether the user may submit orders and
// top-ups. Admins are implicitly authorized regardless of allowlist
// membership.
func (s *AuthzService) IsAuthorized(userID int64) bool {
	if s.IsAdmin(userID) {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.authorized[userID]
	return ok
}

// Admins returns the current admin ids including the owner.
func (s *AuthzService) Admins() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.admins)+1)
	ids = append(ids, s.ownerID)
	for id := range s.admins {
		if id != s.ownerID {
			ids = append(ids, id)
		}
	}
	return ids
}

// AddAdmin grants the admin role. Owner only; idempotent.
func (s *AuthzService) AddAdmin(ctx context.Context, actor, target int64) error {
	if !s.IsOwner(actor) {
		return ErrNotOwner
	}
	if target == s.ownerID {
		// Already implicitly an admin.
		return nil
	}

	if err := s.settings.AddAdmin(ctx, target); err != nil {
		return err
	}

	s.mu.Lock()
	s.admins[target] = struct{}{}
	s.mu.Unlock()

	log.Info().Int64("actor", actor).Int64("target", target).Str("operation", "add_admin").Msg("Admin granted")
	return nil
}

// RemoveAdmin revokes the admin role. Owner only; removing the owner
// fails closed.
func (s *AuthzService) RemoveAdmin(ctx context.Context, actor, target int64) error {
	if !s.IsOwner(actor) {
		return ErrNotOwner
	}
	if target == s.ownerID {
		return ErrOwnerImmutable
	}

	if err := s.settings.RemoveAdmin(ctx, target); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.admins, target)
	s.mu.Unlock()

	log.Info().Int64("actor", actor).Int64("target", target).Str("operation", "remove_admin").Msg("Admin revoked")
	return nil
}

// AuthorizeUser adds a user to the allowlist. Admin only; idempotent.
func (s *AuthzService) AuthorizeUser(ctx context.Context, actor, target int64) error {
	if !s.IsAdmin(actor) {
		return ErrNotAdmin
	}

	if err := s.settings.AuthorizeUser(ctx, target); err != nil {
		return err
	}

	s.mu.Lock()
	s.authorized[target] = struct{}{}
	s.mu.Unlock()

	log.Info().Int64("actor", actor).Int64("target", target).Str("operation", "authorize_user").Msg("User authorized")
	return nil
}

// RevokeUser removes a user from the allowlist. Admin only; idempotent.
func (s *AuthzService) RevokeUser(ctx context.Context, actor, target int64) error {
	if !s.IsAdmin(actor) {
		return ErrNotAdmin
	}

	if err := s.settings.RevokeUser(ctx, target); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.authorized, target)
	s.mu.Unlock()

	log.Info().Int64("actor", actor).Int64("target", target).Str("operation", "revoke_user").Msg("User authorization revoked")
	return nil
}
