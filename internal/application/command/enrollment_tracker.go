package command

import (
	"context"
	"fmt"

	"github.com/misis-lms/gamification-service/internal/domain/course"
	"github.com/misis-lms/gamification-service/internal/domain/shared"
	"github.com/misis-lms/gamification-service/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE ENROLLMENT TRACKER
// Maintains the course-scoped side of an award: lazy enrollment on the first
// course event and accrual of the course-local point total.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentTracker enrolls users into courses on first sight and accrues
// course-scoped points. When disabled every call is a no-op so the global
// awarding path works without course reference data.
type EnrollmentTracker struct {
	enabled     bool
	courses     course.Repository
	groups      course.GroupRepository
	enrollments course.EnrollmentRepository
	log         *logger.Logger
}

// NewEnrollmentTracker creates a tracker. Pass enabled=false to turn all
// course accounting off.
func NewEnrollmentTracker(
	enabled bool,
	courses course.Repository,
	groups course.GroupRepository,
	enrollments course.EnrollmentRepository,
	log *logger.Logger,
) *EnrollmentTracker {
	return &EnrollmentTracker{
		enabled:     enabled,
		courses:     courses,
		groups:      groups,
		enrollments: enrollments,
		log:         log.With(logger.Component("enrollment-tracker")),
	}
}

// Enabled reports whether course accounting is on.
func (t *EnrollmentTracker) Enabled() bool {
	return t.enabled
}

// Accrue resolves the course and optional group, enrolls the user if this is
// their first event in the course, and adds points to the course-scoped total.
//
// Unknown course or group ids are errors: they abort the surrounding award
// transaction so no ledger row survives a reference-data failure.
func (t *EnrollmentTracker) Accrue(ctx context.Context, userRef, courseID, groupID string, points int) error {
	if !t.enabled || courseID == "" {
		return nil
	}

	crs, err := t.courses.GetByCourseID(ctx, courseID)
	if err != nil {
		return err
	}

	groupRef := ""
	if groupID != "" {
		grp, err := t.groups.GetByGroupID(ctx, groupID, crs.ID)
		if err != nil {
			return err
		}
		groupRef = grp.ID
	}

	if err := t.enrollIfNeeded(ctx, userRef, crs.ID, groupRef); err != nil {
		return err
	}

	if points <= 0 {
		return nil
	}
	if err := t.enrollments.AddPoints(ctx, userRef, crs.ID, points); err != nil {
		return fmt.Errorf("tracker: add course points: %w", err)
	}

	t.log.Debug("course points accrued",
		logger.UserID(userRef),
		logger.CourseID(courseID),
		logger.Points(points),
	)

	return nil
}

// enrollIfNeeded creates the enrollment row on the user's first course event.
// A concurrent first event loses the insert race harmlessly.
func (t *EnrollmentTracker) enrollIfNeeded(ctx context.Context, userRef, courseRef, groupRef string) error {
	enrolled, err := t.enrollments.Exists(ctx, userRef, courseRef)
	if err != nil {
		return fmt.Errorf("tracker: enrollment check: %w", err)
	}
	if enrolled {
		return nil
	}

	enr, err := course.NewEnrollment(userRef, courseRef, groupRef)
	if err != nil {
		return err
	}
	if err := t.enrollments.Create(ctx, enr); err != nil {
		if shared.IsAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("tracker: enroll: %w", err)
	}
	return nil
}
