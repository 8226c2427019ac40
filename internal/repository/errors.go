package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrStoreUnavailable marks a failure where the statement may never
// have reached the database. The write must be assumed not applied;
// only idempotent operations are safe to retry.
var ErrStoreUnavailable = errors.New("store unavailable")

// storeErr wraps a driver failure. A server-reported error means the
// statement was received and rejected, so it keeps its own identity;
// anything else is a connection-class failure and carries
// ErrStoreUnavailable.
func storeErr(msg string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, ErrStoreUnavailable, err)
}
