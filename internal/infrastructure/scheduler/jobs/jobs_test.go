package jobs

import (
	"context"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/misis-lms/gamification-service/internal/domain/course"
	"github.com/misis-lms/gamification-service/internal/domain/ledger"
	"github.com/misis-lms/gamification-service/internal/domain/level"
	"github.com/misis-lms/gamification-service/internal/domain/shared"
	"github.com/misis-lms/gamification-service/internal/domain/user"
	"github.com/misis-lms/gamification-service/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
}

// fakeUserRepo serves a fixed set of profiles and records repairs.
type fakeUserRepo struct {
	users []*user.User
}

func (r *fakeUserRepo) byID(id string) *user.User {
	for _, u := range r.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (r *fakeUserRepo) Create(context.Context, *user.User) error { return shared.ErrInternal }

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	if u := r.byID(id); u != nil {
		return u, nil
	}
	return nil, shared.ErrUserNotFound
}

func (r *fakeUserRepo) GetByExternalID(context.Context, user.ExternalID) (*user.User, error) {
	return nil, shared.ErrUserNotFound
}

func (r *fakeUserRepo) AddPoints(_ context.Context, id string, delta int) (int, error) {
	u := r.byID(id)
	if u == nil {
		return 0, shared.ErrUserNotFound
	}
	u.TotalPoints += delta
	return u.TotalPoints, nil
}

func (r *fakeUserRepo) UpdateLevel(_ context.Context, id string, lvl int) error {
	u := r.byID(id)
	if u == nil {
		return shared.ErrUserNotFound
	}
	u.Level = lvl
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, opts user.ListOptions) ([]*user.User, int, error) {
	total := len(r.users)
	if opts.Offset >= total {
		return nil, total, nil
	}
	out := r.users[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, total, nil
}

// fakeLedgerRepo answers SumByUser from a fixed map.
type fakeLedgerRepo struct {
	sums map[string]int
}

func (r *fakeLedgerRepo) Exists(context.Context, ledger.EventID) (bool, error) { return false, nil }

func (r *fakeLedgerRepo) Append(context.Context, *ledger.Transaction) error {
	return shared.ErrInternal
}

func (r *fakeLedgerRepo) DailySum(context.Context, string, string, time.Time) (int, error) {
	return 0, nil
}

func (r *fakeLedgerRepo) SumByUser(_ context.Context, externalUserID string) (int, error) {
	return r.sums[externalUserID], nil
}

func (r *fakeLedgerRepo) ListByUser(context.Context, string, ledger.Page) ([]*ledger.Transaction, int, error) {
	return nil, 0, nil
}

func (r *fakeLedgerRepo) List(context.Context, ledger.Page) ([]*ledger.Transaction, int, error) {
	return nil, 0, nil
}

func seededUser(t *testing.T, externalID string, storedPoints, storedLevel int) *user.User {
	t.Helper()
	u, err := user.New(user.ExternalID(externalID))
	require.NoError(t, err)
	u.TotalPoints = storedPoints
	u.Level = storedLevel
	return u
}

func TestReconcileTotalsJob_RepairsDriftedTotal(t *testing.T) {
	engine := level.NewEngine("TRIANGULAR", 500, 200)

	// Stored total disagrees with the log: the log says 1250, the row 900.
	drifted := seededUser(t, "user-1", 900, 1)
	users := &fakeUserRepo{users: []*user.User{drifted}}
	entries := &fakeLedgerRepo{sums: map[string]int{"user-1": 1250}}

	job := NewReconcileTotalsJob(users, entries, engine, testLogger())

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 1250, drifted.TotalPoints)
	assert.Equal(t, engine.Level(1250), drifted.Level)
}

func TestReconcileTotalsJob_RepairsLevelOnly(t *testing.T) {
	engine := level.NewEngine("TRIANGULAR", 500, 200)

	// Total matches the log but the level was never recomputed.
	stale := seededUser(t, "user-1", 1250, 0)
	users := &fakeUserRepo{users: []*user.User{stale}}
	entries := &fakeLedgerRepo{sums: map[string]int{"user-1": 1250}}

	job := NewReconcileTotalsJob(users, entries, engine, testLogger())

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 1250, stale.TotalPoints)
	assert.Equal(t, engine.Level(1250), stale.Level)
}

func TestReconcileTotalsJob_ConsistentUserUntouched(t *testing.T) {
	engine := level.NewEngine("TRIANGULAR", 500, 200)

	clean := seededUser(t, "user-1", 300, 0)
	users := &fakeUserRepo{users: []*user.User{clean}}
	entries := &fakeLedgerRepo{sums: map[string]int{"user-1": 300}}

	job := NewReconcileTotalsJob(users, entries, engine, testLogger())

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 300, clean.TotalPoints)
	assert.Equal(t, 0, clean.Level)
}

func TestReconcileTotalsJob_WalksAllPages(t *testing.T) {
	engine := level.NewEngine("TRIANGULAR", 500, 200)

	var all []*user.User
	sums := make(map[string]int)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		all = append(all, seededUser(t, id, 0, 0))
		sums[id] = 100
	}
	users := &fakeUserRepo{users: all}
	entries := &fakeLedgerRepo{sums: sums}

	job := NewReconcileTotalsJob(users, entries, engine, testLogger())
	job.pageSize = 2

	require.NoError(t, job.Run(context.Background()))

	for _, u := range all {
		assert.Equal(t, 100, u.TotalPoints)
	}
}

// fakeCourseRepo lists a fixed set of courses.
type fakeCourseRepo struct {
	courses []*course.Course
}

func (r *fakeCourseRepo) Create(context.Context, *course.Course) error { return shared.ErrInternal }

func (r *fakeCourseRepo) GetByCourseID(context.Context, string) (*course.Course, error) {
	return nil, shared.ErrCourseNotFound
}

func (r *fakeCourseRepo) ExistsByCourseID(context.Context, string) (bool, error) {
	return false, nil
}

func (r *fakeCourseRepo) List(context.Context) ([]*course.Course, error) {
	return r.courses, nil
}

// fakeEnrollmentRepo serves one fixed ranking per course ref.
type fakeEnrollmentRepo struct {
	rowsByCourse map[string][]course.LeaderboardRow
}

func (r *fakeEnrollmentRepo) Create(context.Context, *course.Enrollment) error {
	return shared.ErrInternal
}

func (r *fakeEnrollmentRepo) Exists(context.Context, string, string) (bool, error) {
	return false, nil
}

func (r *fakeEnrollmentRepo) AddPoints(context.Context, string, string, int) error {
	return shared.ErrInternal
}

func (r *fakeEnrollmentRepo) Leaderboard(_ context.Context, courseRef, _ string, limit, offset int) ([]course.LeaderboardRow, int, error) {
	rows := r.rowsByCourse[courseRef]
	total := len(rows)
	if offset >= len(rows) {
		return nil, total, nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, total, nil
}

// recordingCache captures cache writes and invalidations.
type recordingCache struct {
	invalidated []string
	pages       map[string][]course.LeaderboardRow
}

func newRecordingCache() *recordingCache {
	return &recordingCache{pages: make(map[string][]course.LeaderboardRow)}
}

func (c *recordingCache) GetPage(context.Context, string, string, int, int) ([]course.LeaderboardRow, int, bool, error) {
	return nil, 0, false, nil
}

func (c *recordingCache) PutPage(_ context.Context, courseRef, _ string, _, _ int, rows []course.LeaderboardRow, _ int) error {
	c.pages[courseRef] = rows
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, courseRef string) error {
	c.invalidated = append(c.invalidated, courseRef)
	return nil
}

func TestWarmLeaderboardJob_RefreshesEveryCourse(t *testing.T) {
	crs1, err := course.NewCourse("MATH101", "Calculus")
	require.NoError(t, err)
	crs2, err := course.NewCourse("PHYS201", "Mechanics")
	require.NoError(t, err)

	enrollments := &fakeEnrollmentRepo{rowsByCourse: map[string][]course.LeaderboardRow{
		crs1.ID: {{Rank: 1, UserExternalID: "user-1", PointsInCourse: 200}},
		crs2.ID: {{Rank: 1, UserExternalID: "user-2", PointsInCourse: 150}},
	}}
	cache := newRecordingCache()

	job := NewWarmLeaderboardJob(&fakeCourseRepo{courses: []*course.Course{crs1, crs2}}, enrollments, cache, testLogger())

	require.NoError(t, job.Run(context.Background()))

	sort.Strings(cache.invalidated)
	want := []string{crs1.ID, crs2.ID}
	sort.Strings(want)
	assert.Equal(t, want, cache.invalidated)
	assert.Len(t, cache.pages[crs1.ID], 1)
	assert.Equal(t, "user-1", cache.pages[crs1.ID][0].UserExternalID)
}

func TestWarmLeaderboardJob_NilCacheIsNoop(t *testing.T) {
	crs, err := course.NewCourse("MATH101", "Calculus")
	require.NoError(t, err)

	job := NewWarmLeaderboardJob(&fakeCourseRepo{courses: []*course.Course{crs}}, &fakeEnrollmentRepo{}, nil, testLogger())

	assert.NoError(t, job.Run(context.Background()))
}
