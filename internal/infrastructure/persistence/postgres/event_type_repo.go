// Package postgres implements the PostgreSQL persistence layer of the
// gamification service.
package postgres

import (
	"context"
	"fmt"

	"github.com/misis-lms/gamification-service/internal/domain/event"
	"github.com/misis-lms/gamification-service/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT TYPE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EventTypeRepository implements event.Repository for PostgreSQL.
type EventTypeRepository struct {
	conn *Connection
}

// NewEventTypeRepository creates a new EventTypeRepository.
func NewEventTypeRepository(conn *Connection) *EventTypeRepository {
	return &EventTypeRepository{conn: conn}
}

// Create registers a new event type.
func (r *EventTypeRepository) Create(ctx context.Context, et *event.EventType) error {
	query := `
		INSERT INTO event_types (id, type_code, display_name, points, max_daily_points, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := querierFrom(ctx, r.conn).Exec(ctx, query,
		et.ID,
		et.TypeCode.String(),
		et.DisplayName,
		et.Points,
		et.MaxDailyPoints,
		et.Active,
		et.CreatedAt,
		et.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrEventTypeExists
		}
		return fmt.Errorf("failed to create event type: %w", err)
	}

	return nil
}

// Update persists edits to an existing type.
func (r *EventTypeRepository) Update(ctx context.Context, et *event.EventType) error {
	query := `
		UPDATE event_types
		SET display_name = $1, points = $2, max_daily_points = $3, active = $4, updated_at = NOW()
		WHERE type_code = $5
	`

	tag, err := querierFrom(ctx, r.conn).Exec(ctx, query,
		et.DisplayName,
		et.Points,
		et.MaxDailyPoints,
		et.Active,
		et.TypeCode.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update event type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrEventTypeNotFound
	}

	return nil
}

// GetByCode returns a type by code regardless of the active flag.
func (r *EventTypeRepository) GetByCode(ctx context.Context, code event.TypeCode) (*event.EventType, error) {
	query := `
		SELECT id, type_code, display_name, points, max_daily_points, active, created_at, updated_at
		FROM event_types
		WHERE type_code = $1
	`

	row := querierFrom(ctx, r.conn).QueryRow(ctx, query, code.String())
	return r.scanEventType(row)
}

// GetActiveByCode returns the type only if it exists and is active.
func (r *EventTypeRepository) GetActiveByCode(ctx context.Context, code event.TypeCode) (*event.EventType, error) {
	query := `
		SELECT id, type_code, display_name, points, max_daily_points, active, created_at, updated_at
		FROM event_types
		WHERE type_code = $1 AND active
	`

	row := querierFrom(ctx, r.conn).QueryRow(ctx, query, code.String())
	return r.scanEventType(row)
}

// List returns the catalog ordered by type code.
func (r *EventTypeRepository) List(ctx context.Context, includeInactive bool) ([]*event.EventType, error) {
	query := `
		SELECT id, type_code, display_name, points, max_daily_points, active, created_at, updated_at
		FROM event_types
		WHERE active OR $1
		ORDER BY type_code
	`

	rows, err := querierFrom(ctx, r.conn).Query(ctx, query, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list event types: %w", err)
	}
	defer rows.Close()

	var types []*event.EventType
	for rows.Next() {
		et, err := r.scanEventType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, et)
	}

	return types, rows.Err()
}

// scanEventType scans one event type row.
func (r *EventTypeRepository) scanEventType(row pgx.Row) (*event.EventType, error) {
	var et event.EventType
	var code string

	err := row.Scan(&et.ID, &code, &et.DisplayName, &et.Points, &et.MaxDailyPoints, &et.Active, &et.CreatedAt, &et.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrEventTypeNotFound
		}
		return nil, fmt.Errorf("failed to scan event type: %w", err)
	}

	et.TypeCode = event.TypeCode(code)
	return &et, nil
}
