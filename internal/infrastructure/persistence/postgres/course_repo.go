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
// COURSE AND GROUP REPOSITORY IMPLEMENTATIONS
// ══════════════════════════════════════════════════════════════════════════════

// CourseRepository implements course.Repository for PostgreSQL.
type CourseRepository struct {
	conn *Connection
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(conn *Connection) *CourseRepository {
	return &CourseRepository{conn: conn}
}

// Create registers a new course.
func (r *CourseRepository) Create(ctx context.Context, c *course.Course) error {
	query := `
		INSERT INTO courses (id, course_id, title, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := querierFrom(ctx, r.conn).Exec(ctx, query, c.ID, c.CourseID, c.Title, c.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("course", "Create", shared.ErrAlreadyExists, "course already registered")
		}
		return fmt.Errorf("failed to create course: %w", err)
	}

	return nil
}

// GetByCourseID returns a course by its external id.
func (r *CourseRepository) GetByCourseID(ctx context.Context, courseID string) (*course.Course, error) {
	query := `
		SELECT id, course_id, title, created_at
		FROM courses
		WHERE course_id = $1
	`

	var c course.Course
	err := querierFrom(ctx, r.conn).QueryRow(ctx, query, courseID).
		Scan(&c.ID, &c.CourseID, &c.Title, &c.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	return &c, nil
}

// ExistsByCourseID reports whether the course is registered.
func (r *CourseRepository) ExistsByCourseID(ctx context.Context, courseID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM courses WHERE course_id = $1)`

	var exists bool
	err := querierFrom(ctx, r.conn).QueryRow(ctx, query, courseID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check course: %w", err)
	}

	return exists, nil
}

// List returns all courses ordered by external id.
func (r *CourseRepository) List(ctx context.Context) ([]*course.Course, error) {
	query := `
		SELECT id, course_id, title, created_at
		FROM courses
		ORDER BY course_id
	`

	rows, err := querierFrom(ctx, r.conn).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var courses []*course.Course
	for rows.Next() {
		var c course.Course
		if err := rows.Scan(&c.ID, &c.CourseID, &c.Title, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, &c)
	}

	return courses, rows.Err()
}

// GroupRepository implements course.GroupRepository for PostgreSQL.
type GroupRepository struct {
	conn *Connection
}

// NewGroupRepository creates a new GroupRepository.
func NewGroupRepository(conn *Connection) *GroupRepository {
	return &GroupRepository{conn: conn}
}

// Create registers a new group inside its course.
func (r *GroupRepository) Create(ctx context.Context, g *course.Group) error {
	query := `
		INSERT INTO groups (id, group_id, course_ref, title, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := querierFrom(ctx, r.conn).Exec(ctx, query, g.ID, g.GroupID, g.CourseRef, g.Title, g.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("course", "CreateGroup", shared.ErrAlreadyExists, "group already registered")
		}
		return fmt.Errorf("failed to create group: %w", err)
	}

	return nil
}

// GetByGroupID returns a group by its external id within a course.
func (r *GroupRepository) GetByGroupID(ctx context.Context, groupID, courseRef string) (*course.Group, error) {
	query := `
		SELECT id, group_id, course_ref, title, created_at
		FROM groups
		WHERE group_id = $1 AND course_ref = $2
	`

	var g course.Group
	err := querierFrom(ctx, r.conn).QueryRow(ctx, query, groupID, courseRef).
		Scan(&g.ID, &g.GroupID, &g.CourseRef, &g.Title, &g.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return &g, nil
}

// ExistsByGroupID reports whether the group exists within the course.
func (r *GroupRepository) ExistsByGroupID(ctx context.Context, groupID, courseRef string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM groups WHERE group_id = $1 AND course_ref = $2)`

	var exists bool
	err := querierFrom(ctx, r.conn).QueryRow(ctx, query, groupID, courseRef).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check group: %w", err)
	}

	return exists, nil
}
