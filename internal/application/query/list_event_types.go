package query

import (
	"context"
	"time"

	"github.com/misis-lms/gamification-service/internal/domain/event"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST EVENT TYPES QUERY
// Admin view of the event type catalog.
// ══════════════════════════════════════════════════════════════════════════════

// EventTypeDTO is one catalog entry.
type EventTypeDTO struct {
	// TypeCode is the unique code the LMS sends.
	TypeCode string `json:"typeCode"`

	// DisplayName is the human-readable name.
	DisplayName string `json:"displayName"`

	// Points is the point value per event.
	Points int `json:"points"`

	// MaxDailyPoints is the per-day cap, null when unlimited.
	MaxDailyPoints *int `json:"maxDailyPoints"`

	// Active indicates whether the engine accepts events of this type.
	Active bool `json:"active"`

	// UpdatedAt is when the type was last edited.
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListEventTypesHandler handles catalog listings.
type ListEventTypesHandler struct {
	types event.Repository
}

// NewListEventTypesHandler creates a new ListEventTypesHandler.
func NewListEventTypesHandler(types event.Repository) *ListEventTypesHandler {
	return &ListEventTypesHandler{types: types}
}

// Handle lists the catalog ordered by type code. Inactive types are included
// only when includeInactive is set.
func (h *ListEventTypesHandler) Handle(ctx context.Context, includeInactive bool) ([]EventTypeDTO, error) {
	types, err := h.types.List(ctx, includeInactive)
	if err != nil {
		return nil, err
	}

	dtos := make([]EventTypeDTO, len(types))
	for i, et := range types {
		dtos[i] = toEventTypeDTO(et)
	}
	return dtos, nil
}

// Get returns one catalog entry by code regardless of the active flag.
func (h *ListEventTypesHandler) Get(ctx context.Context, typeCode string) (*EventTypeDTO, error) {
	et, err := h.types.GetByCode(ctx, event.TypeCode(typeCode))
	if err != nil {
		return nil, err
	}
	dto := toEventTypeDTO(et)
	return &dto, nil
}

func toEventTypeDTO(et *event.EventType) EventTypeDTO {
	return EventTypeDTO{
		TypeCode:       et.TypeCode.String(),
		DisplayName:    et.DisplayName,
		Points:         et.Points,
		MaxDailyPoints: et.MaxDailyPoints,
		Active:         et.Active,
		UpdatedAt:      et.UpdatedAt,
	}
}
