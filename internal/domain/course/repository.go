package course

import "context"

// Repository defines persistence operations for course reference data.
type Repository interface {
	// Create persists a new course. Returns shared.ErrAlreadyExists on a
	// duplicate external course id.
	Create(ctx context.Context, c *Course) error

	// GetByCourseID returns a course by its external id.
	// Returns shared.ErrCourseNotFound when absent.
	GetByCourseID(ctx context.Context, courseID string) (*Course, error)

	// ExistsByCourseID reports whether a course with this external id exists.
	ExistsByCourseID(ctx context.Context, courseID string) (bool, error)

	// List returns all courses ordered by external id.
	List(ctx context.Context) ([]*Course, error)
}

// GroupRepository defines persistence operations for groups.
type GroupRepository interface {
	// Create persists a new group inside its course.
	Create(ctx context.Context, g *Group) error

	// GetByGroupID returns a group by its external id within a course.
	// Returns shared.ErrGroupNotFound when absent.
	GetByGroupID(ctx context.Context, groupID, courseRef string) (*Group, error)

	// ExistsByGroupID reports whether the group exists within the course.
	ExistsByGroupID(ctx context.Context, groupID, courseRef string) (bool, error)
}

// LeaderboardRow is one ranked entry of a course+group leaderboard.
type LeaderboardRow struct {
	// UserExternalID is the LMS user id of the enrolled user.
	UserExternalID string

	// PointsInCourse is the user's course-scoped point total.
	PointsInCourse int

	// GlobalLevel is the user's level derived from all-time points.
	GlobalLevel int

	// Rank is the 1-based position ordered by PointsInCourse descending.
	Rank int
}

// EnrollmentRepository defines persistence operations for enrollments.
type EnrollmentRepository interface {
	// Create persists a new enrollment row.
	Create(ctx context.Context, e *Enrollment) error

	// Exists reports whether the user is enrolled in the course.
	Exists(ctx context.Context, userRef, courseRef string) (bool, error)

	// AddPoints adds points to the user's course-scoped total.
	// Returns shared.ErrUserNotEnrolled when no enrollment row exists.
	AddPoints(ctx context.Context, userRef, courseRef string, points int) error

	// Leaderboard returns ranked enrollments for a course+group ordered by
	// points-in-course descending, plus the total number of enrolled users.
	Leaderboard(ctx context.Context, courseRef, groupRef string, limit, offset int) ([]LeaderboardRow, int, error)
}

// LeaderboardCache is a read-through cache over ranked leaderboard pages.
// Implementations may miss at any time; callers must fall back to the
// repository and repopulate.
type LeaderboardCache interface {
	// GetPage returns a cached page and the cached total, or ok=false on miss.
	GetPage(ctx context.Context, courseRef, groupRef string, limit, offset int) (rows []LeaderboardRow, total int, ok bool, err error)

	// PutPage caches a page with its total.
	PutPage(ctx context.Context, courseRef, groupRef string, limit, offset int, rows []LeaderboardRow, total int) error

	// Invalidate drops all cached pages of a course after a write.
	Invalidate(ctx context.Context, courseRef string) error
}
