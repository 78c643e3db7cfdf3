// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"strings"
	"time"

	"github.com/misis-lms/gamification-service/internal/domain/course"
	"github.com/misis-lms/gamification-service/internal/domain/shared"
	"github.com/misis-lms/gamification-service/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET COURSE LEADERBOARD QUERY
// Ranks the users of one course group by their course-scoped points.
// Pages are cache-backed; an empty page is a valid result, not an error.
// ══════════════════════════════════════════════════════════════════════════════

// defaultPageSize is used when a query does not name a page size.
const defaultPageSize = 20

// maxPageSize bounds a single page.
const maxPageSize = 100

// GetLeaderboardQuery contains the leaderboard request parameters.
type GetLeaderboardQuery struct {
	// CourseID is the external course id. Required.
	CourseID string

	// GroupID is the external group id within the course. Blank means the
	// course-wide leaderboard.
	GroupID string

	// Page is the 0-based page number.
	Page int

	// Size is the page size (default 20, max 100).
	Size int
}

// Validate checks and normalizes the query parameters.
func (q *GetLeaderboardQuery) Validate() error {
	if strings.TrimSpace(q.CourseID) == "" {
		return shared.NewDomainError("query", "GetLeaderboard", shared.ErrEmptyValue, "course id must not be blank")
	}
	if q.GroupID != "" && strings.TrimSpace(q.GroupID) == "" {
		return shared.NewDomainError("query", "GetLeaderboard", shared.ErrEmptyValue, "group id must not be blank")
	}
	if q.Page < 0 {
		return shared.NewDomainError("query", "GetLeaderboard", shared.ErrValueOutOfRange, "page cannot be negative")
	}
	if q.Size < 0 {
		return shared.NewDomainError("query", "GetLeaderboard", shared.ErrValueOutOfRange, "size cannot be negative")
	}
	if q.Size == 0 {
		q.Size = defaultPageSize
	}
	if q.Size > maxPageSize {
		q.Size = maxPageSize
	}
	return nil
}

// LeaderboardEntryDTO is one ranked row of the leaderboard.
type LeaderboardEntryDTO struct {
	// Rank is the 1-based position within the group.
	Rank int `json:"rank"`

	// UserID is the external LMS user id.
	UserID string `json:"userId"`

	// PointsInCourse is the user's course-scoped point total.
	PointsInCourse int `json:"pointsInCourse"`

	// Level is the user's global level.
	Level int `json:"level"`
}

// GetLeaderboardResult contains one leaderboard page with metadata.
type GetLeaderboardResult struct {
	// CourseID echoes the external course id.
	CourseID string `json:"courseId"`

	// GroupID echoes the external group id.
	GroupID string `json:"groupId"`

	// Entries are the ranked rows of this page.
	Entries []LeaderboardEntryDTO `json:"entries"`

	// PageNumber is the 0-based page number.
	PageNumber int `json:"pageNumber"`

	// PageSize is the page size used.
	PageSize int `json:"pageSize"`

	// TotalElements is the total number of ranked users.
	TotalElements int `json:"totalElements"`

	// TotalPages is the number of pages at this page size.
	TotalPages int `json:"totalPages"`

	// HasNext indicates more pages follow.
	HasNext bool `json:"hasNext"`

	// HasPrevious indicates earlier pages exist.
	HasPrevious bool `json:"hasPrevious"`

	// GeneratedAt is when the result was assembled.
	GeneratedAt time.Time `json:"generatedAt"`
}

// GetLeaderboardHandler handles leaderboard queries.
type GetLeaderboardHandler struct {
	courses     course.Repository
	groups      course.GroupRepository
	enrollments course.EnrollmentRepository
	cache       course.LeaderboardCache
	log         *logger.Logger
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler.
// The cache is optional; pass nil to always read from storage.
func NewGetLeaderboardHandler(
	courses course.Repository,
	groups course.GroupRepository,
	enrollments course.EnrollmentRepository,
	cache course.LeaderboardCache,
	log *logger.Logger,
) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{
		courses:     courses,
		groups:      groups,
		enrollments: enrollments,
		cache:       cache,
		log:         log.With(logger.Component("leaderboard-query")),
	}
}

// Handle executes the leaderboard query. Unknown course or group ids return
// their not-found errors; a group with no enrollments returns an empty page.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	crs, err := h.courses.GetByCourseID(ctx, q.CourseID)
	if err != nil {
		return nil, err
	}
	groupRef := ""
	if q.GroupID != "" {
		grp, err := h.groups.GetByGroupID(ctx, q.GroupID, crs.ID)
		if err != nil {
			return nil, err
		}
		groupRef = grp.ID
	}

	offset := q.Page * q.Size

	rows, total, err := h.loadPage(ctx, crs.ID, groupRef, q.Size, offset)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntryDTO, len(rows))
	for i, r := range rows {
		entries[i] = LeaderboardEntryDTO{
			Rank:           r.Rank,
			UserID:         r.UserExternalID,
			PointsInCourse: r.PointsInCourse,
			Level:          r.GlobalLevel,
		}
	}

	totalPages := 0
	if q.Size > 0 {
		totalPages = (total + q.Size - 1) / q.Size
	}

	return &GetLeaderboardResult{
		CourseID:      q.CourseID,
		GroupID:       q.GroupID,
		Entries:       entries,
		PageNumber:    q.Page,
		PageSize:      q.Size,
		TotalElements: total,
		TotalPages:    totalPages,
		HasNext:       offset+len(entries) < total,
		HasPrevious:   q.Page > 0,
		GeneratedAt:   time.Now().UTC(),
	}, nil
}

// loadPage reads one page through the cache when available.
func (h *GetLeaderboardHandler) loadPage(ctx context.Context, courseRef, groupRef string, limit, offset int) ([]course.LeaderboardRow, int, error) {
	if h.cache != nil {
		rows, total, ok, err := h.cache.GetPage(ctx, courseRef, groupRef, limit, offset)
		if err != nil {
			// Cache trouble never fails the query.
			h.log.Warn("leaderboard cache read failed", logger.Err(err))
		} else if ok {
			return rows, total, nil
		}
	}

	rows, total, err := h.enrollments.Leaderboard(ctx, courseRef, groupRef, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	if h.cache != nil {
		if err := h.cache.PutPage(ctx, courseRef, groupRef, limit, offset, rows, total); err != nil {
			h.log.Warn("leaderboard cache write failed", logger.Err(err))
		}
	}

	return rows, total, nil
}
