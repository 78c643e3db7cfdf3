// Package course contains course and group reference data plus the
// user-course enrollment link that scopes a secondary, course-local point
// total used by leaderboards. Courses and groups are managed by external
// collaborators; the engine only reads existence and membership.
package course

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/misis-lms/gamification-service/internal/domain/shared"
)

// Course is a unit of study identified by an external LMS id.
type Course struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// CourseID is the external LMS course identifier (e.g. "MATH101").
	CourseID string

	// Title is the display name of the course.
	Title string

	// CreatedAt is when the course was registered.
	CreatedAt time.Time
}

// NewCourse creates a course with the given external id and title.
func NewCourse(courseID, title string) (*Course, error) {
	if strings.TrimSpace(courseID) == "" {
		return nil, shared.NewDomainError("course", "New", shared.ErrEmptyValue, "course id must not be blank")
	}
	return &Course{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Group is a cohort within a course. A group belongs to exactly one course.
type Group struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// GroupID is the external LMS group identifier (e.g. "1-A").
	GroupID string

	// CourseRef is the internal id of the owning course.
	CourseRef string

	// Title is the display name of the group.
	Title string

	// CreatedAt is when the group was registered.
	CreatedAt time.Time
}

// NewGroup creates a group inside the given course.
func NewGroup(groupID, courseRef, title string) (*Group, error) {
	if strings.TrimSpace(groupID) == "" {
		return nil, shared.NewDomainError("course", "NewGroup", shared.ErrEmptyValue, "group id must not be blank")
	}
	if courseRef == "" {
		return nil, shared.NewDomainError("course", "NewGroup", shared.ErrInvalidID, "owning course reference is missing")
	}
	return &Group{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		CourseRef: courseRef,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Enrollment links a user to a course, optionally within a group, and
// accumulates the user's course-scoped points. One row per (user, course).
type Enrollment struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// UserRef is the internal id of the enrolled user.
	UserRef string

	// CourseRef is the internal id of the course.
	CourseRef string

	// GroupRef is the internal id of the group, empty when not assigned.
	GroupRef string

	// PointsInCourse is the cumulative points earned within this course.
	// Never negative and never exceeds the user's total points.
	PointsInCourse int

	// EnrolledAt is when the enrollment row was created.
	EnrolledAt time.Time
}

// NewEnrollment creates an enrollment with zero course points.
func NewEnrollment(userRef, courseRef, groupRef string) (*Enrollment, error) {
	if userRef == "" || courseRef == "" {
		return nil, shared.NewDomainError("course", "Enroll", shared.ErrInvalidID, "user and course references are required")
	}
	return &Enrollment{
		ID:             uuid.NewString(),
		UserRef:        userRef,
		CourseRef:      courseRef,
		GroupRef:       groupRef,
		PointsInCourse: 0,
		EnrolledAt:     time.Now().UTC(),
	}, nil
}
