package event

import (
	"context"
	"time"
)

// Repository defines persistence operations for the event type catalog.
type Repository interface {
	// Create persists a new event type. Returns shared.ErrEventTypeExists
	// when the type code is already registered.
	Create(ctx context.Context, et *EventType) error

	// Update persists edits to an existing type (display name, points, cap,
	// active flag). Returns shared.ErrEventTypeNotFound when absent.
	Update(ctx context.Context, et *EventType) error

	// GetByCode returns a type by code regardless of the active flag.
	// Returns shared.ErrEventTypeNotFound when absent.
	GetByCode(ctx context.Context, code TypeCode) (*EventType, error)

	// GetActiveByCode returns the type only if it exists and is active.
	// Returns shared.ErrEventTypeNotFound otherwise, covering both "no such
	// code" and "deactivated".
	GetActiveByCode(ctx context.Context, code TypeCode) (*EventType, error)

	// List returns all event types ordered by code. Inactive types are
	// included only when includeInactive is set.
	List(ctx context.Context, includeInactive bool) ([]*EventType, error)
}

// DailySummer exposes the ledger's per-day aggregation the registry needs for
// cap checks. Satisfied by ledger.Repository.
type DailySummer interface {
	// DailySum returns the points already awarded to the user for the given
	// type on the calendar day containing the given instant (UTC day window).
	DailySum(ctx context.Context, externalUserID string, code string, day time.Time) (int, error)
}

// Registry resolves event types and enforces per-type daily award ceilings.
// The daily sum is always computed from the transaction log, never cached.
type Registry struct {
	types Repository
	sums  DailySummer
}

// NewRegistry creates a Registry over the catalog and the ledger aggregation.
func NewRegistry(types Repository, sums DailySummer) *Registry {
	return &Registry{types: types, sums: sums}
}

// GetActiveByCode resolves an active event type by code.
func (r *Registry) GetActiveByCode(ctx context.Context, code TypeCode) (*EventType, error) {
	return r.types.GetActiveByCode(ctx, code)
}

// DailySum returns the points already awarded for (user, type) on the day.
func (r *Registry) DailySum(ctx context.Context, externalUserID string, code TypeCode, day time.Time) (int, error) {
	return r.sums.DailySum(ctx, externalUserID, code.String(), day)
}

// CanAward reports whether awarding amount more points on the given day stays
// within the type's daily cap. Side-effect free.
func (r *Registry) CanAward(ctx context.Context, externalUserID string, et *EventType, amount int, day time.Time) (bool, error) {
	if et.MaxDailyPoints == nil {
		return true, nil
	}

	current, err := r.sums.DailySum(ctx, externalUserID, et.TypeCode.String(), day)
	if err != nil {
		return false, err
	}
	return current+amount <= *et.MaxDailyPoints, nil
}
