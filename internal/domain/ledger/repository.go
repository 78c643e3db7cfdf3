package ledger

import (
	"context"
	"time"
)

// Page controls pagination of transaction listings.
type Page struct {
	// Limit is the page size (repository applies its own default when 0).
	Limit int

	// Offset is the number of rows to skip.
	Offset int
}

// Repository defines persistence operations for the transaction log.
//
// Append-only: there is no update or delete. The storage layer must hold a
// uniqueness constraint on the event id; Append folds that constraint's
// violation into shared.ErrDuplicateEvent so a concurrent duplicate submission
// is reported as a business outcome rather than a raw storage error.
type Repository interface {
	// Exists reports whether a transaction with this event id was committed.
	Exists(ctx context.Context, eventID EventID) (bool, error)

	// Append persists a new transaction. Returns shared.ErrDuplicateEvent if
	// a transaction with the same event id already exists, whether detected
	// by the pre-check or by the storage constraint under a concurrent race.
	Append(ctx context.Context, tx *Transaction) error

	// DailySum returns the sum of points earned by the user for the type on
	// the UTC calendar day containing the given instant. Computed from the
	// log on every call, never cached.
	DailySum(ctx context.Context, externalUserID string, typeCode string, day time.Time) (int, error)

	// SumByUser returns the all-time sum of points earned by the user.
	// Used by the reconciliation job to verify profile totals.
	SumByUser(ctx context.Context, externalUserID string) (int, error)

	// ListByUser returns the user's transactions ordered by creation time
	// descending, plus the total count for pagination.
	ListByUser(ctx context.Context, externalUserID string, page Page) ([]*Transaction, int, error)

	// List returns all transactions ordered by creation time descending,
	// plus the total count for pagination.
	List(ctx context.Context, page Page) ([]*Transaction, int, error)
}
