package query

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/misis-lms/gamification-service/internal/domain/course"
	"github.com/misis-lms/gamification-service/internal/domain/shared"
	"github.com/misis-lms/gamification-service/pkg/logger"
)

// stubCourseData holds one course with one group and precomputed rows.
type stubCourseData struct {
	course *course.Course
	group  *course.Group
	rows   []course.LeaderboardRow
}

func (s *stubCourseData) Create(context.Context, *course.Course) error { return shared.ErrInternal }

func (s *stubCourseData) GetByCourseID(_ context.Context, courseID string) (*course.Course, error) {
	if s.course == nil || s.course.CourseID != courseID {
		return nil, shared.ErrCourseNotFound
	}
	return s.course, nil
}

func (s *stubCourseData) ExistsByCourseID(_ context.Context, courseID string) (bool, error) {
	return s.course != nil && s.course.CourseID == courseID, nil
}

func (s *stubCourseData) List(context.Context) ([]*course.Course, error) {
	if s.course == nil {
		return nil, nil
	}
	return []*course.Course{s.course}, nil
}

type stubGroupRepo struct {
	data *stubCourseData
}

func (s *stubGroupRepo) Create(context.Context, *course.Group) error { return shared.ErrInternal }

func (s *stubGroupRepo) GetByGroupID(_ context.Context, groupID, courseRef string) (*course.Group, error) {
	g := s.data.group
	if g == nil || g.GroupID != groupID || g.CourseRef != courseRef {
		return nil, shared.ErrGroupNotFound
	}
	return g, nil
}

func (s *stubGroupRepo) ExistsByGroupID(_ context.Context, groupID, courseRef string) (bool, error) {
	g := s.data.group
	return g != nil && g.GroupID == groupID && g.CourseRef == courseRef, nil
}

type stubEnrollmentRepo struct {
	data *stubCourseData
}

func (s *stubEnrollmentRepo) Create(context.Context, *course.Enrollment) error {
	return shared.ErrInternal
}

func (s *stubEnrollmentRepo) Exists(context.Context, string, string) (bool, error) {
	return false, nil
}

func (s *stubEnrollmentRepo) AddPoints(context.Context, string, string, int) error {
	return shared.ErrInternal
}

func (s *stubEnrollmentRepo) Leaderboard(_ context.Context, _, _ string, limit, offset int) ([]course.LeaderboardRow, int, error) {
	rows := s.data.rows
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

// countingCache records hits and serves one fixed page.
type countingCache struct {
	rows  []course.LeaderboardRow
	total int
	hit   bool
	gets  int
	puts  int
}

func (c *countingCache) GetPage(context.Context, string, string, int, int) ([]course.LeaderboardRow, int, bool, error) {
	c.gets++
	if c.hit {
		return c.rows, c.total, true, nil
	}
	return nil, 0, false, nil
}

func (c *countingCache) PutPage(_ context.Context, _, _ string, _, _ int, rows []course.LeaderboardRow, total int) error {
	c.puts++
	c.rows = rows
	c.total = total
	return nil
}

func (c *countingCache) Invalidate(context.Context, string) error { return nil }

func newLeaderboardFixture(t *testing.T, rows []course.LeaderboardRow, cache course.LeaderboardCache) *GetLeaderboardHandler {
	t.Helper()

	crs, err := course.NewCourse("MATH101", "Calculus")
	require.NoError(t, err)
	grp, err := course.NewGroup("1-A", crs.ID, "Group 1-A")
	require.NoError(t, err)

	data := &stubCourseData{course: crs, group: grp, rows: rows}
	log := logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})

	return NewGetLeaderboardHandler(data, &stubGroupRepo{data: data}, &stubEnrollmentRepo{data: data}, cache, log)
}

func sampleRows() []course.LeaderboardRow {
	return []course.LeaderboardRow{
		{Rank: 1, UserExternalID: "user-3", PointsInCourse: 300, GlobalLevel: 2},
		{Rank: 2, UserExternalID: "user-1", PointsInCourse: 200, GlobalLevel: 1},
		{Rank: 3, UserExternalID: "user-2", PointsInCourse: 100, GlobalLevel: 1},
	}
}

func TestGetLeaderboardHandler_RankedPage(t *testing.T) {
	h := newLeaderboardFixture(t, sampleRows(), nil)

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{
		CourseID: "MATH101", GroupID: "1-A", Page: 0, Size: 2,
	})

	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, 1, res.Entries[0].Rank)
	assert.Equal(t, "user-3", res.Entries[0].UserID)
	assert.Equal(t, 300, res.Entries[0].PointsInCourse)
	assert.Equal(t, 3, res.TotalElements)
	assert.Equal(t, 2, res.TotalPages)
	assert.True(t, res.HasNext)
	assert.False(t, res.HasPrevious)
}

func TestGetLeaderboardHandler_LastPageMetadata(t *testing.T) {
	h := newLeaderboardFixture(t, sampleRows(), nil)

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{
		CourseID: "MATH101", GroupID: "1-A", Page: 1, Size: 2,
	})

	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.False(t, res.HasNext)
	assert.True(t, res.HasPrevious)
}

func TestGetLeaderboardHandler_EmptyGroupIsNotAnError(t *testing.T) {
	h := newLeaderboardFixture(t, nil, nil)

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{
		CourseID: "MATH101", GroupID: "1-A",
	})

	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Zero(t, res.TotalElements)
	assert.Zero(t, res.TotalPages)
}

func TestGetLeaderboardHandler_UnknownCourse(t *testing.T) {
	h := newLeaderboardFixture(t, nil, nil)

	_, err := h.Handle(context.Background(), GetLeaderboardQuery{
		CourseID: "GHOST", GroupID: "1-A",
	})

	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestGetLeaderboardHandler_UnknownGroup(t *testing.T) {
	h := newLeaderboardFixture(t, nil, nil)

	_, err := h.Handle(context.Background(), GetLeaderboardQuery{
		CourseID: "MATH101", GroupID: "9-Z",
	})

	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestGetLeaderboardHandler_BlankCourseID(t *testing.T) {
	h := newLeaderboardFixture(t, nil, nil)

	_, err := h.Handle(context.Background(), GetLeaderboardQuery{
		CourseID: "", GroupID: "1-A",
	})

	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestGetLeaderboardHandler_WhitespaceGroupID(t *testing.T) {
	h := newLeaderboardFixture(t, nil, nil)

	_, err := h.Handle(context.Background(), GetLeaderboardQuery{
		CourseID: "MATH101", GroupID: "  ",
	})

	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestGetLeaderboardHandler_CourseWideWithoutGroup(t *testing.T) {
	h := newLeaderboardFixture(t, sampleRows(), nil)

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{
		CourseID: "MATH101",
	})

	require.NoError(t, err)
	assert.Len(t, res.Entries, 3)
	assert.Empty(t, res.GroupID)
}

func TestGetLeaderboardHandler_CachePopulatedOnMiss(t *testing.T) {
	cache := &countingCache{}
	h := newLeaderboardFixture(t, sampleRows(), cache)

	_, err := h.Handle(context.Background(), GetLeaderboardQuery{
		CourseID: "MATH101", GroupID: "1-A",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, cache.gets)
	assert.Equal(t, 1, cache.puts)
}

func TestGetLeaderboardHandler_CacheHitSkipsStorage(t *testing.T) {
	cache := &countingCache{hit: true, rows: sampleRows(), total: 3}
	// Storage holds nothing; a hit must serve entirely from cache.
	h := newLeaderboardFixture(t, nil, cache)

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{
		CourseID: "MATH101", GroupID: "1-A",
	})

	require.NoError(t, err)
	assert.Len(t, res.Entries, 3)
	assert.Equal(t, 3, res.TotalElements)
	assert.Zero(t, cache.puts)
}
