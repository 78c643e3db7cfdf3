package command

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/misis-lms/gamification-service/internal/domain/shared"
	"github.com/misis-lms/gamification-service/pkg/logger"
)

func newTrackerFixture(t *testing.T, enabled bool) (*EnrollmentTracker, *memCourseRepo, *memGroupRepo, *memEnrollmentRepo) {
	t.Helper()
	courses := newMemCourseRepo()
	groups := newMemGroupRepo()
	enrollments := newMemEnrollmentRepo()
	log := logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
	return NewEnrollmentTracker(enabled, courses, groups, enrollments, log), courses, groups, enrollments
}

func TestEnrollmentTracker_DisabledIsNoOp(t *testing.T) {
	tracker, _, _, enrollments := newTrackerFixture(t, false)

	// Even an unknown course id passes when tracking is off.
	err := tracker.Accrue(context.Background(), "u-ref", "GHOST", "", 30)

	require.NoError(t, err)
	assert.Equal(t, -1, enrollments.pointsOf("u-ref", "GHOST"))
}

func TestEnrollmentTracker_EnrollsOnFirstAccrual(t *testing.T) {
	tracker, courses, _, enrollments := newTrackerFixture(t, true)
	f := &awardFixture{courses: courses}
	crs, err := f.coursesCreate("MATH101", "Calculus")
	require.NoError(t, err)

	require.NoError(t, tracker.Accrue(context.Background(), "u-ref", "MATH101", "", 30))
	assert.Equal(t, 30, enrollments.pointsOf("u-ref", crs.ID))

	require.NoError(t, tracker.Accrue(context.Background(), "u-ref", "MATH101", "", 20))
	assert.Equal(t, 50, enrollments.pointsOf("u-ref", crs.ID))
}

func TestEnrollmentTracker_UnknownGroup(t *testing.T) {
	tracker, courses, _, _ := newTrackerFixture(t, true)
	f := &awardFixture{courses: courses}
	_, err := f.coursesCreate("MATH101", "Calculus")
	require.NoError(t, err)

	err = tracker.Accrue(context.Background(), "u-ref", "MATH101", "GHOST", 30)

	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestEnrollmentTracker_NonPositivePointsOnlyEnrolls(t *testing.T) {
	tracker, courses, _, enrollments := newTrackerFixture(t, true)
	f := &awardFixture{courses: courses}
	crs, err := f.coursesCreate("MATH101", "Calculus")
	require.NoError(t, err)

	require.NoError(t, tracker.Accrue(context.Background(), "u-ref", "MATH101", "", 0))

	assert.Equal(t, 0, enrollments.pointsOf("u-ref", crs.ID))
}
