// Package service provides business logic implementations.
package service

import (
	"errors"
	"fmt"
)

// Validation errors. All are rejected before any mutation.
var (
	ErrInvalidGameID       = errors.New("invalid game id: must be 6-10 digits")
	ErrInvalidServerID     = errors.New("invalid server id: must be 4-6 digits")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAmountBelowMinimum  = errors.New("amount below the configured minimum")
	ErrUnknownChannel      = errors.New("unknown payment channel")
	ErrPendingTopup        = errors.New("a top-up is already awaiting review")
)

// Authorization errors. Rejected before any mutation.
var (
	ErrNotAuthorized  = errors.New("user is not authorized")
	ErrNotAdmin       = errors.New("admin privileges required")
	ErrNotOwner       = errors.New("owner privileges required")
	ErrOwnerImmutable = errors.New("the owner cannot be removed from admins")
)

// ReconciliationError is the one fatal class: a compensating action
// itself failed after a partial multi-step mutation, leaving the
// balance and the recorded status out of step. It is surfaced loudly
// for manual operator remediation; no automatic retry beyond the
// single compensating attempt is made.
type ReconciliationError struct {
	AccountID int64
	ItemID    string
	Delta     int64
	Cause     error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf(
		"reconciliation required: account %d, item %s, unapplied delta %d: %v",
		e.AccountID, e.ItemID, e.Delta, e.Cause,
	)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Cause
}
