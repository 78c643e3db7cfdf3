// Package event contains the event type catalog: named categories of
// point-granting events with a fixed point value and an optional daily cap.
// The catalog is maintained by administrators; the awarding engine reads it.
package event

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/misis-lms/gamification-service/internal/domain/shared"
)

// TypeCode identifies an event type (e.g. "quiz", "lab").
type TypeCode string

// IsValid reports whether the code is usable.
func (c TypeCode) IsValid() bool {
	s := strings.TrimSpace(string(c))
	return s != "" && len(s) <= 50
}

// String returns the string representation of the code.
func (c TypeCode) String() string {
	return string(c)
}

// EventType describes one category of point-granting events.
type EventType struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// TypeCode is the unique code the LMS sends in events.
	TypeCode TypeCode

	// DisplayName is a human-readable name shown in responses and admin views.
	DisplayName string

	// Points is the fixed number of points granted per event. Always positive.
	Points int

	// MaxDailyPoints caps the points a user can earn per calendar day from
	// this type. Nil means unlimited.
	MaxDailyPoints *int

	// Active controls whether the engine accepts events of this type.
	// Deactivation is soft: historical transactions stay valid.
	Active bool

	// CreatedAt is when the type was registered.
	CreatedAt time.Time

	// UpdatedAt is when the type was last edited.
	UpdatedAt time.Time
}

// New creates an active event type with the given attributes.
func New(code TypeCode, displayName string, points int, maxDailyPoints *int) (*EventType, error) {
	et := &EventType{
		ID:             uuid.NewString(),
		TypeCode:       code,
		DisplayName:    displayName,
		Points:         points,
		MaxDailyPoints: maxDailyPoints,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := et.Validate(); err != nil {
		return nil, err
	}
	return et, nil
}

// Validate checks the event type invariants.
func (et *EventType) Validate() error {
	if !et.TypeCode.IsValid() {
		return shared.NewDomainError("event", "Validate", shared.ErrInvalidInput, "type code must not be blank")
	}
	if strings.TrimSpace(et.DisplayName) == "" {
		return shared.NewDomainError("event", "Validate", shared.ErrEmptyValue, "display name must not be blank")
	}
	if et.Points <= 0 {
		return shared.NewDomainError("event", "Validate", shared.ErrValueOutOfRange, "points per event must be positive")
	}
	if et.MaxDailyPoints != nil && *et.MaxDailyPoints < 0 {
		return shared.NewDomainError("event", "Validate", shared.ErrNegativeValue, "daily cap cannot be negative")
	}
	return nil
}

// Deactivate flips the active flag off. The type is never deleted.
func (et *EventType) Deactivate() {
	et.Active = false
	et.UpdatedAt = time.Now().UTC()
}
