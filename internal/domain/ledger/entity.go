// Package ledger contains the append-only transaction log: one row per
// applied external event. The unique constraint on the event id is the
// system's idempotency guarantee; rows are never updated or deleted.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/misis-lms/gamification-service/internal/domain/shared"
)

// EventID is the external event identifier, the sole idempotency key.
// At most one transaction may ever exist per event id.
type EventID string

// IsValid reports whether the event id is usable as a key.
func (id EventID) IsValid() bool {
	s := strings.TrimSpace(string(id))
	return s != "" && len(s) <= 100
}

// String returns the string representation of the event id.
func (id EventID) String() string {
	return string(id)
}

// Transaction is one applied event. PointsEarned is a snapshot taken at award
// time; later edits to the event type never change historical rows.
type Transaction struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// UserID is the external LMS user id the points were awarded to.
	UserID string

	// EventID is the external event id. Unique across the whole ledger.
	EventID EventID

	// EventTypeCode is the code of the event type at award time.
	EventTypeCode string

	// PointsEarned is the point value snapshotted at award time.
	PointsEarned int

	// Description is a free-text note about the award.
	Description string

	// CreatedAt is when the transaction was appended.
	CreatedAt time.Time
}

// New creates a transaction for an award about to be committed.
func New(userID string, eventID EventID, typeCode string, points int, displayName string) (*Transaction, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, shared.ErrInvalidUserID
	}
	if !eventID.IsValid() {
		return nil, shared.ErrInvalidEventID
	}
	if points <= 0 {
		return nil, shared.NewDomainError("ledger", "New", shared.ErrValueOutOfRange, "points earned must be positive")
	}

	return &Transaction{
		ID:            uuid.NewString(),
		UserID:        userID,
		EventID:       eventID,
		EventTypeCode: typeCode,
		PointsEarned:  points,
		Description:   fmt.Sprintf("Points awarded for %s", displayName),
		CreatedAt:     time.Now().UTC(),
	}, nil
}
