// Package restrict provides process-local, per-account advisory state:
// a mutex serializing multi-step ledger flows for one account, and an
// interaction-restriction flag raised while a top-up awaits review.
//
// Both are advisory fast-path checks only. They do not survive a
// restart and are not shared across processes; the persisted status
// field is always the authoritative guard.
package restrict

import "sync"

// accountState holds the per-account mutex and restriction flag.
type accountState struct {
	mu         sync.Mutex
	restricted bool
}

// Gate tracks advisory per-account state keyed by account id.
type Gate struct {
	states sync.Map // map[int64]*accountState
	flagMu sync.RWMutex
}

// NewGate creates a new Gate instance.
func NewGate() *Gate {
	return &Gate{}
}

// getState retrieves or creates the state for the given account id.
func (g *Gate) getState(accountID int64) *accountState {
	if v, ok := g.states.Load(accountID); ok {
		return v.(*accountState)
	}
	actual, _ := g.states.LoadOrStore(accountID, &accountState{})
	return actual.(*accountState)
}

// Lock acquires the per-account mutex. Call before any multi-step
// balance flow so two in-flight submissions for the same account
// cannot interleave between the balance check and the debit.
func (g *Gate) Lock(accountID int64) {
	g.getState(accountID).mu.Lock()
}

// Unlock releases the per-account mutex.
func (g *Gate) Unlock(accountID int64) {
	if v, ok := g.states.Load(accountID); ok {
		v.(*accountState).mu.Unlock()
	}
}

// WithLock executes fn while holding the account's mutex.
func (g *Gate) WithLock(accountID int64, fn func() error) error {
	g.Lock(accountID)
	defer g.Unlock(accountID)
	return fn()
}

// Restrict raises the interaction-restriction flag for an account.
func (g *Gate) Restrict(accountID int64) {
	g.flagMu.Lock()
	defer g.flagMu.Unlock()
	g.getState(accountID).restricted = true
}

// Clear lowers the interaction-restriction flag for an account.
func (g *Gate) Clear(accountID int64) {
	g.flagMu.Lock()
	defer g.flagMu.Unlock()
	if v, ok := g.states.Load(accountID); ok {
		v.(*accountState).restricted = false
	}
}

// Restricted reports whether the flag is currently raised.
// Point-in-time check; the persisted pending top-up is authoritative.
func (g *Gate) Restricted(accountID int64) bool {
	g.flagMu.RLock()
	defer g.flagMu.RUnlock()
	if v, ok := g.states.Load(accountID); ok {
		return v.(*accountState).restricted
	}
	return false
}
