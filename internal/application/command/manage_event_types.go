package command

import (
	"context"

	"github.com/misis-lms/gamification-service/internal/domain/event"
	"github.com/misis-lms/gamification-service/internal/domain/shared"
	"github.com/misis-lms/gamification-service/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT TYPE MANAGEMENT COMMANDS
// Admin maintenance of the event type catalog: create, edit, deactivate.
// Historical ledger rows are never touched; point values apply going forward.
// ══════════════════════════════════════════════════════════════════════════════

// CreateEventTypeCommand registers a new event type.
type CreateEventTypeCommand struct {
	// TypeCode is the unique code the LMS will send.
	TypeCode string

	// DisplayName is the human-readable name.
	DisplayName string

	// Points is the fixed point value per event.
	Points int

	// MaxDailyPoints caps per-day earnings for the type. Nil means unlimited.
	MaxDailyPoints *int
}

// UpdateEventTypeCommand edits an existing event type. The type code itself
// is immutable; all other attributes can change.
type UpdateEventTypeCommand struct {
	TypeCode       string
	DisplayName    string
	Points         int
	MaxDailyPoints *int
	Active         bool
}

// ManageEventTypesHandler handles catalog maintenance commands.
type ManageEventTypesHandler struct {
	types event.Repository
	log   *logger.Logger
}

// NewManageEventTypesHandler creates a new ManageEventTypesHandler.
func NewManageEventTypesHandler(types event.Repository, log *logger.Logger) *ManageEventTypesHandler {
	return &ManageEventTypesHandler{
		types: types,
		log:   log.With(logger.Component("event-type-admin")),
	}
}

// Create registers a new active event type.
func (h *ManageEventTypesHandler) Create(ctx context.Context, cmd CreateEventTypeCommand) (*event.EventType, error) {
	et, err := event.New(event.TypeCode(cmd.TypeCode), cmd.DisplayName, cmd.Points, cmd.MaxDailyPoints)
	if err != nil {
		return nil, err
	}

	if err := h.types.Create(ctx, et); err != nil {
		return nil, err
	}

	h.log.Info("event type created",
		logger.EventType(cmd.TypeCode),
		logger.Points(cmd.Points),
	)
	return et, nil
}

// Update edits an existing event type. Changing the point value only affects
// future awards; snapshots in the ledger keep their original value.
func (h *ManageEventTypesHandler) Update(ctx context.Context, cmd UpdateEventTypeCommand) (*event.EventType, error) {
	et, err := h.types.GetByCode(ctx, event.TypeCode(cmd.TypeCode))
	if err != nil {
		return nil, err
	}

	et.DisplayName = cmd.DisplayName
	et.Points = cmd.Points
	et.MaxDailyPoints = cmd.MaxDailyPoints
	et.Active = cmd.Active
	if err := et.Validate(); err != nil {
		return nil, err
	}

	if err := h.types.Update(ctx, et); err != nil {
		return nil, err
	}

	h.log.Info("event type updated",
		logger.EventType(cmd.TypeCode),
		logger.Points(cmd.Points),
		logger.Bool("active", cmd.Active),
	)
	return et, nil
}

// Deactivate soft-disables a type so the engine stops accepting its events.
func (h *ManageEventTypesHandler) Deactivate(ctx context.Context, typeCode string) (*event.EventType, error) {
	et, err := h.types.GetByCode(ctx, event.TypeCode(typeCode))
	if err != nil {
		return nil, err
	}
	if !et.Active {
		return nil, shared.NewDomainError("event", "Deactivate", shared.ErrInvalidState, "event type is already inactive")
	}

	et.Deactivate()
	if err := h.types.Update(ctx, et); err != nil {
		return nil, err
	}

	h.log.Info("event type deactivated", logger.EventType(typeCode))
	return et, nil
}
