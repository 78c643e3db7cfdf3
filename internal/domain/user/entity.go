// Package user contains the user profile model of the gamification service.
// A user is created lazily on the first event received for an external id;
// total points and level are mutated only inside the awarding transaction.
package user

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/misis-lms/gamification-service/internal/domain/shared"
)

// ExternalID is the user identifier assigned by the LMS. It is unique and
// immutable for the lifetime of the profile.
type ExternalID string

// IsValid reports whether the external id is usable as a key.
func (id ExternalID) IsValid() bool {
	s := strings.TrimSpace(string(id))
	return s != "" && len(s) <= 100
}

// String returns the string representation of the external id.
func (id ExternalID) String() string {
	return string(id)
}

// User is the profile accumulating points across all events.
type User struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// ExternalID is the LMS user identifier.
	ExternalID ExternalID

	// TotalPoints is the cumulative sum of all awarded points. Never negative.
	TotalPoints int

	// Level is derived from TotalPoints by the level engine. Never below 1.
	Level int

	// CreatedAt is when the profile was first created.
	CreatedAt time.Time

	// UpdatedAt is when the profile was last modified.
	UpdatedAt time.Time
}

// New creates a fresh profile for an external id with zero points at level 1.
func New(externalID ExternalID) (*User, error) {
	if !externalID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}

	now := time.Now().UTC()
	return &User{
		ID:          uuid.NewString(),
		ExternalID:  externalID,
		TotalPoints: 0,
		Level:       1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Validate checks the profile invariants.
func (u *User) Validate() error {
	if u.ID == "" {
		return shared.NewDomainError("user", "Validate", shared.ErrInvalidID, "internal id is missing")
	}
	if !u.ExternalID.IsValid() {
		return shared.ErrInvalidUserID
	}
	if u.TotalPoints < 0 {
		return shared.NewDomainError("user", "Validate", shared.ErrNegativeValue, "total points cannot be negative")
	}
	if u.Level < 1 {
		return shared.NewDomainError("user", "Validate", shared.ErrValueOutOfRange, "level cannot be below 1")
	}
	return nil
}
