// Package postgres implements the PostgreSQL persistence layer of the
// gamification service.
package postgres

import (
	"context"
	"fmt"

	"github.com/misis-lms/gamification-service/internal/domain/course"
	"github.com/misis-lms/gamification-service/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY IMPLEMENTATION
// Course-scoped point totals and the ranked leaderboard read. Ranking is
// computed in SQL with ROW_NUMBER over points_in_course descending.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository implements course.EnrollmentRepository for PostgreSQL.
type EnrollmentRepository struct {
	conn *Connection
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{conn: conn}
}

// Create persists a new enrollment row.
func (r *EnrollmentRepository) Create(ctx context.Context, e *course.Enrollment) error {
	query := `
		INSERT INTO user_course_enrollments (id, user_ref, course_ref, group_ref, points_in_course, enrolled_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
	`

	_, err := querierFrom(ctx, r.conn).Exec(ctx, query,
		e.ID,
		e.UserRef,
		e.CourseRef,
		e.GroupRef,
		e.PointsInCourse,
		e.EnrolledAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyEnrolled
		}
		return fmt.Errorf("failed to create enrollment: %w", err)
	}

	return nil
}

// Exists reports whether the user is enrolled in the course.
func (r *EnrollmentRepository) Exists(ctx context.Context, userRef, courseRef string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM user_course_enrollments WHERE user_ref = $1 AND course_ref = $2)`

	var exists bool
	err := querierFrom(ctx, r.conn).QueryRow(ctx, query, userRef, courseRef).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}

	return exists, nil
}

// AddPoints adds points to the user's course-scoped total in a single UPDATE.
func (r *EnrollmentRepository) AddPoints(ctx context.Context, userRef, courseRef string, points int) error {
	query := `
		UPDATE user_course_enrollments
		SET points_in_course = points_in_course + $1
		WHERE user_ref = $2 AND course_ref = $3
	`

	tag, err := querierFrom(ctx, r.conn).Exec(ctx, query, points, userRef, courseRef)
	if err != nil {
		return fmt.Errorf("failed to add course points: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotEnrolled
	}

	return nil
}

// Leaderboard returns one ranked page of a course (optionally group)
// leaderboard, newest points first, plus the total number of ranked users.
func (r *EnrollmentRepository) Leaderboard(ctx context.Context, courseRef, groupRef string, limit, offset int) ([]course.LeaderboardRow, int, error) {
	if limit <= 0 {
		limit = 20
	}

	q := querierFrom(ctx, r.conn)

	countQuery := `SELECT COUNT(*) FROM user_course_enrollments WHERE course_ref = $1`
	countArgs := []interface{}{courseRef}
	if groupRef != "" {
		countQuery += ` AND group_ref = $2`
		countArgs = append(countArgs, groupRef)
	}

	var total int
	if err := q.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count leaderboard rows: %w", err)
	}

	query := `
		SELECT u.external_id,
			   e.points_in_course,
			   u.level,
			   ROW_NUMBER() OVER (ORDER BY e.points_in_course DESC, u.external_id) AS rank
		FROM user_course_enrollments e
		JOIN users u ON u.id = e.user_ref
		WHERE e.course_ref = $1
	`
	args := []interface{}{courseRef}
	if groupRef != "" {
		query += ` AND e.group_ref = $2`
		args = append(args, groupRef)
		query += ` ORDER BY e.points_in_course DESC, u.external_id LIMIT $3 OFFSET $4`
		args = append(args, limit, offset)
	} else {
		query += ` ORDER BY e.points_in_course DESC, u.external_id LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var board []course.LeaderboardRow
	for rows.Next() {
		var row course.LeaderboardRow
		var rank int64
		if err := rows.Scan(&row.UserExternalID, &row.PointsInCourse, &row.GlobalLevel, &rank); err != nil {
			return nil, 0, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		row.Rank = int(rank)
		board = append(board, row)
	}

	return board, total, rows.Err()
}
