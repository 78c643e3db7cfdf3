package user

import "context"

// ListOptions controls pagination of user listings.
type ListOptions struct {
	// Limit is the page size (repository applies its own default when 0).
	Limit int

	// Offset is the number of rows to skip.
	Offset int
}

// Repository defines persistence operations for user profiles.
type Repository interface {
	// Create persists a new profile. Returns shared.ErrUserAlreadyExists when
	// the external id is already taken.
	Create(ctx context.Context, u *User) error

	// GetByID returns a profile by internal id.
	// Returns shared.ErrUserNotFound when absent.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByExternalID returns a profile by the LMS user id.
	// Returns shared.ErrUserNotFound when absent.
	GetByExternalID(ctx context.Context, externalID ExternalID) (*User, error)

	// AddPoints atomically increments total points at the storage layer and
	// returns the new total. The increment is a single UPDATE so concurrent
	// awards to the same user never lose points.
	AddPoints(ctx context.Context, id string, delta int) (int, error)

	// UpdateLevel persists a recomputed level.
	UpdateLevel(ctx context.Context, id string, level int) error

	// List returns profiles ordered by total points descending, plus the
	// total number of profiles.
	List(ctx context.Context, opts ListOptions) ([]*User, int, error)
}
