// Package postgres implements the PostgreSQL persistence layer of the
// gamification service.
package postgres

import (
	"context"
	"fmt"

	"github.com/misis-lms/gamification-service/internal/domain/shared"
	"github.com/misis-lms/gamification-service/internal/domain/user"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

// Create creates a new user profile.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, external_id, total_points, level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := querierFrom(ctx, r.conn).Exec(ctx, query,
		u.ID,
		u.ExternalID.String(),
		u.TotalPoints,
		u.Level,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID returns a user by internal ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	query := `
		SELECT id, external_id, total_points, level, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	row := querierFrom(ctx, r.conn).QueryRow(ctx, query, id)
	return r.scanUser(row)
}

// GetByExternalID returns a user by the LMS user id.
func (r *UserRepository) GetByExternalID(ctx context.Context, externalID user.ExternalID) (*user.User, error) {
	query := `
		SELECT id, external_id, total_points, level, created_at, updated_at
		FROM users
		WHERE external_id = $1
	`

	row := querierFrom(ctx, r.conn).QueryRow(ctx, query, externalID.String())
	return r.scanUser(row)
}

// AddPoints increments total points in a single UPDATE and returns the new
// total. The arithmetic runs in the database so two concurrent awards to the
// same user never lose an increment.
func (r *UserRepository) AddPoints(ctx context.Context, id string, delta int) (int, error) {
	query := `
		UPDATE users
		SET total_points = total_points + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING total_points
	`

	var total int
	err := querierFrom(ctx, r.conn).QueryRow(ctx, query, delta, id).Scan(&total)
	if err != nil {
		if IsNoRows(err) {
			return 0, shared.ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to add points: %w", err)
	}

	return total, nil
}

// UpdateLevel persists a recomputed level.
func (r *UserRepository) UpdateLevel(ctx context.Context, id string, level int) error {
	query := `
		UPDATE users
		SET level = $1, updated_at = NOW()
		WHERE id = $2
	`

	tag, err := querierFrom(ctx, r.conn).Exec(ctx, query, level, id)
	if err != nil {
		return fmt.Errorf("failed to update level: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}

	return nil
}

// List returns profiles ordered by total points descending.
func (r *UserRepository) List(ctx context.Context, opts user.ListOptions) ([]*user.User, int, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	q := querierFrom(ctx, r.conn)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := `
		SELECT id, external_id, total_points, level, created_at, updated_at
		FROM users
		ORDER BY total_points DESC, external_id
		LIMIT $1 OFFSET $2
	`

	rows, err := q.Query(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}

	return users, total, rows.Err()
}

// scanUser scans one user row.
func (r *UserRepository) scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	var externalID string

	err := row.Scan(&u.ID, &externalID, &u.TotalPoints, &u.Level, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.ExternalID = user.ExternalID(externalID)
	return &u, nil
}
