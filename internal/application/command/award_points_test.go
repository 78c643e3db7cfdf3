package command

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/misis-lms/gamification-service/internal/domain/course"
	"github.com/misis-lms/gamification-service/internal/domain/event"
	"github.com/misis-lms/gamification-service/internal/domain/ledger"
	"github.com/misis-lms/gamification-service/internal/domain/level"
	"github.com/misis-lms/gamification-service/internal/domain/shared"
	"github.com/misis-lms/gamification-service/internal/domain/user"
	"github.com/misis-lms/gamification-service/pkg/logger"
)

type awardFixture struct {
	handler     *AwardPointsHandler
	users       *memUserRepo
	types       *memEventTypeRepo
	ledger      *memLedgerRepo
	courses     *memCourseRepo
	groups      *memGroupRepo
	enrollments *memEnrollmentRepo
}

func newAwardFixture(t *testing.T) *awardFixture {
	t.Helper()

	users := newMemUserRepo()
	types := newMemEventTypeRepo()
	ledgerRepo := newMemLedgerRepo()
	courses := newMemCourseRepo()
	groups := newMemGroupRepo()
	enrollments := newMemEnrollmentRepo()

	log := logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
	tracker := NewEnrollmentTracker(true, courses, groups, enrollments, log)
	engine := level.NewEngine("TRIANGULAR", 500, 200)
	registry := event.NewRegistry(types, ledgerRepo)

	handler := NewAwardPointsHandler(shared.NopTxManager{}, users, registry, ledgerRepo, engine, tracker, log)

	return &awardFixture{
		handler:     handler,
		users:       users,
		types:       types,
		ledger:      ledgerRepo,
		courses:     courses,
		groups:      groups,
		enrollments: enrollments,
	}
}

func (f *awardFixture) addEventType(t *testing.T, code string, points int, cap *int) {
	t.Helper()
	et, err := event.New(event.TypeCode(code), "Event "+code, points, cap)
	require.NoError(t, err)
	require.NoError(t, f.types.Create(context.Background(), et))
}

func intPtr(v int) *int { return &v }

func TestAwardPointsHandler_FirstEventCreatesUserAndCredits(t *testing.T) {
	f := newAwardFixture(t)
	f.addEventType(t, "quiz", 30, nil)

	res, err := f.handler.Handle(context.Background(), AwardPointsCommand{
		UserID:    "user-1",
		EventID:   "evt-1",
		EventType: "quiz",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 30, res.PointsEarned)
	assert.Equal(t, 30, res.TotalPoints)
	assert.Equal(t, 1, res.NewLevel)
	assert.False(t, res.LevelUp)
	assert.NotEmpty(t, res.TransactionID)
	assert.Equal(t, 1000, res.PointsToNextLevel)
	assert.InDelta(t, 3.0, res.ProgressPercent, 0.001)

	usr, err := f.users.GetByExternalID(context.Background(), user.ExternalID("user-1"))
	require.NoError(t, err)
	assert.Equal(t, 30, usr.TotalPoints)
	assert.Equal(t, 1, usr.Level)
}

func TestAwardPointsHandler_DuplicateEventIsNoOp(t *testing.T) {
	f := newAwardFixture(t)
	f.addEventType(t, "quiz", 30, nil)

	cmd := AwardPointsCommand{UserID: "user-1", EventID: "evt-1", EventType: "quiz"}

	first, err := f.handler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, first.Status)

	second, err := f.handler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, StatusDuplicate, second.Status)
	assert.Zero(t, second.PointsEarned)
	assert.NotEmpty(t, second.Message)

	assert.Equal(t, 1, f.ledger.count())
	usr, err := f.users.GetByExternalID(context.Background(), user.ExternalID("user-1"))
	require.NoError(t, err)
	assert.Equal(t, 30, usr.TotalPoints)
}

func TestAwardPointsHandler_DailyCapRejectsSecondAward(t *testing.T) {
	f := newAwardFixture(t)
	f.addEventType(t, "lab", 80, intPtr(150))

	first, err := f.handler.Handle(context.Background(), AwardPointsCommand{
		UserID: "user-1", EventID: "evt-1", EventType: "lab",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, first.Status)

	// 80 + 80 = 160 > 150: blocked.
	second, err := f.handler.Handle(context.Background(), AwardPointsCommand{
		UserID: "user-1", EventID: "evt-2", EventType: "lab",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, second.Status)
	assert.Zero(t, second.PointsEarned)
	assert.Equal(t, 80, second.TotalPoints)
	assert.Contains(t, second.Message, "lab")

	// The rejection left no ledger row and no points.
	assert.Equal(t, 1, f.ledger.count())
	usr, err := f.users.GetByExternalID(context.Background(), user.ExternalID("user-1"))
	require.NoError(t, err)
	assert.Equal(t, 80, usr.TotalPoints)
}

func TestAwardPointsHandler_CapIsPerEventType(t *testing.T) {
	f := newAwardFixture(t)
	f.addEventType(t, "lab", 80, intPtr(150))
	f.addEventType(t, "quiz", 30, nil)

	_, err := f.handler.Handle(context.Background(), AwardPointsCommand{
		UserID: "user-1", EventID: "evt-1", EventType: "lab",
	})
	require.NoError(t, err)

	rejected, err := f.handler.Handle(context.Background(), AwardPointsCommand{
		UserID: "user-1", EventID: "evt-2", EventType: "lab",
	})
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)

	// A different type is unaffected by the lab cap.
	quiz, err := f.handler.Handle(context.Background(), AwardPointsCommand{
		UserID: "user-1", EventID: "evt-3", EventType: "quiz",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, quiz.Status)
	assert.Equal(t, 110, quiz.TotalPoints)
}

func TestAwardPointsHandler_CapIsPerUser(t *testing.T) {
	f := newAwardFixture(t)
	f.addEventType(t, "lab", 80, intPtr(150))

	_, err := f.handler.Handle(context.Background(), AwardPointsCommand{
		UserID: "user-1", EventID: "evt-1", EventType: "lab",
	})
	require.NoError(t, err)

	// Another user has their own budget.
	other, err := f.handler.Handle(context.Background(), AwardPointsCommand{
		UserID: "user-2", EventID: "evt-2", EventType: "lab",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, other.Status)
}

func TestAwardPointsHandler_UnknownEventTypeIsRejected(t *testing.T) {
	f := newAwardFixture(t)

	res, err := f.handler.Handle(context.Background(), AwardPointsCommand{
		UserID: "user-1", EventID: "evt-1", EventType: "ghost",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusRejected, res.Status)
	assert.Zero(t, res.PointsEarned)
	assert.Contains(t, res.Message, "unknown or disabled event type")
	assert.Equal(t, 0, f.ledger.count())
}

func TestAwardPointsHandler_InactiveEventTypeIsRejected(t *testing.T) {
	f := newAwardFixture(t)
	et, err := event.New("quiz", "Quiz", 30, nil)
	require.NoError(t, err)
	et.Deactivate()
	require.NoError(t, f.types.Create(context.Background(), et))

	res, err := f.handler.Handle(context.Background(), AwardPointsCommand{
		UserID: "user-1", EventID: "evt-1", EventType: "quiz",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusRejected, res.Status)
	assert.Equal(t, 0, f.ledger.count())
}

func TestAwardPointsHandler_LevelUpOnThreshold(t *testing.T) {
	f := newAwardFixture(t)
	f.addEventType(t, "exam", 500, nil)

	res, err := f.handler.Handle(context.Background(), AwardPointsCommand{
		UserID: "user-1", EventID: "evt-1", EventType: "exam",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 2, res.NewLevel)
	assert.True(t, res.LevelUp)
	assert.Equal(t, 1500, res.PointsToNextLevel)

	usr, err := f.users.GetByExternalID(context.Background(), user.ExternalID("user-1"))
	require.NoError(t, err)
	assert.Equal(t, 2, usr.Level)
}

func TestAwardPointsHandler_CourseAccrual(t *testing.T) {
	f := newAwardFixture(t)
	f.addEventType(t, "quiz", 30, nil)

	crs, err := f.coursesCreate("MATH101", "Calculus")
	require.NoError(t, err)
	require.NoError(t, f.groupsCreate("1-A", crs.ID))

	res, err := f.handler.Handle(context.Background(), AwardPointsCommand{
		UserID: "user-1", EventID: "evt-1", EventType: "quiz",
		CourseID: "MATH101", GroupID: "1-A",
	})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Status)

	usr, err := f.users.GetByExternalID(context.Background(), user.ExternalID("user-1"))
	require.NoError(t, err)
	assert.Equal(t, 30, f.enrollments.pointsOf(usr.ID, crs.ID))

	// A second course event accrues onto the same enrollment.
	_, err = f.handler.Handle(context.Background(), AwardPointsCommand{
		UserID: "user-1", EventID: "evt-2", EventType: "quiz",
		CourseID: "MATH101", GroupID: "1-A",
	})
	require.NoError(t, err)
	assert.Equal(t, 60, f.enrollments.pointsOf(usr.ID, crs.ID))
}

func TestAwardPointsHandler_EventWithoutCourseSkipsAccrual(t *testing.T) {
	f := newAwardFixture(t)
	f.addEventType(t, "quiz", 30, nil)

	res, err := f.handler.Handle(context.Background(), AwardPointsCommand{
		UserID: "user-1", EventID: "evt-1", EventType: "quiz",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)

	usr, err := f.users.GetByExternalID(context.Background(), user.ExternalID("user-1"))
	require.NoError(t, err)
	assert.Equal(t, -1, f.enrollments.pointsOf(usr.ID, "anything"))
}

func TestAwardPointsHandler_UnknownCourseFailsAward(t *testing.T) {
	f := newAwardFixture(t)
	f.addEventType(t, "quiz", 30, nil)

	_, err := f.handler.Handle(context.Background(), AwardPointsCommand{
		UserID: "user-1", EventID: "evt-1", EventType: "quiz",
		CourseID: "GHOST",
	})

	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestAwardPointsHandler_MidAwardFailureLeavesNoLedgerRow(t *testing.T) {
	f := newAwardFixture(t)
	f.handler.tx = &rollbackTxManager{users: f.users, ledger: f.ledger}
	f.addEventType(t, "quiz", 30, nil)

	// The course is never registered, so the award fails after the ledger
	// append and the profile credit. The rollback must discard both.
	cmd := AwardPointsCommand{
		UserID: "user-1", EventID: "evt-1", EventType: "quiz",
		CourseID: "GHOST",
	}
	_, err := f.handler.Handle(context.Background(), cmd)
	require.Error(t, err)
	require.True(t, shared.IsNotFound(err))

	seen, err := f.ledger.Exists(context.Background(), ledger.EventID("evt-1"))
	require.NoError(t, err)
	assert.False(t, seen)
	assert.Zero(t, f.ledger.count())

	_, err = f.users.GetByExternalID(context.Background(), user.ExternalID("user-1"))
	assert.True(t, shared.IsNotFound(err))

	// Once the course exists the same event is accepted, not treated as a
	// duplicate of the aborted attempt.
	crs, err := course.NewCourse("GHOST", "Ghost Course")
	require.NoError(t, err)
	require.NoError(t, f.courses.Create(context.Background(), crs))

	res, err := f.handler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 1, f.ledger.count())
}

func TestAwardPointsHandler_ConcurrentSameEvent(t *testing.T) {
	f := newAwardFixture(t)
	f.addEventType(t, "quiz", 30, nil)

	const attempts = 8
	results := make([]Status, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.handler.Handle(context.Background(), AwardPointsCommand{
				UserID: "user-1", EventID: "evt-1", EventType: "quiz",
			})
			if assert.NoError(t, err) {
				results[i] = res.Status
			}
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, s := range results {
		if s == StatusSuccess {
			successes++
		} else {
			assert.Equal(t, StatusDuplicate, s)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, f.ledger.count())

	usr, err := f.users.GetByExternalID(context.Background(), user.ExternalID("user-1"))
	require.NoError(t, err)
	assert.Equal(t, 30, usr.TotalPoints)
}

func TestAwardPointsCommand_Validate(t *testing.T) {
	tests := []struct {
		name string
		cmd  AwardPointsCommand
	}{
		{"blank user id", AwardPointsCommand{EventID: "e", EventType: "quiz"}},
		{"blank event id", AwardPointsCommand{UserID: "u", EventType: "quiz"}},
		{"blank event type", AwardPointsCommand{UserID: "u", EventID: "e"}},
		{"group without course", AwardPointsCommand{UserID: "u", EventID: "e", EventType: "quiz", GroupID: "1-A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err), "expected a validation error, got %v", err)
		})
	}
}

// coursesCreate registers a course directly through the fake repository.
func (f *awardFixture) coursesCreate(courseID, title string) (*course.Course, error) {
	crs, err := course.NewCourse(courseID, title)
	if err != nil {
		return nil, err
	}
	if err := f.courses.Create(context.Background(), crs); err != nil {
		return nil, err
	}
	return crs, nil
}

// groupsCreate registers a group directly through the fake repository.
func (f *awardFixture) groupsCreate(groupID, courseRefID string) error {
	grp, err := course.NewGroup(groupID, courseRefID, "Group "+groupID)
	if err != nil {
		return err
	}
	return f.groups.Create(context.Background(), grp)
}
