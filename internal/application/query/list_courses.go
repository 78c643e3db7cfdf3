package query

import (
	"context"
	"time"

	"github.com/misis-lms/gamification-service/internal/domain/course"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST COURSES QUERY
// Admin view of the course reference data.
// ══════════════════════════════════════════════════════════════════════════════

// CourseDTO is one registered course.
type CourseDTO struct {
	// CourseID is the external LMS course id.
	CourseID string `json:"courseId"`

	// Title is the display name.
	Title string `json:"title"`

	// CreatedAt is when the course was registered.
	CreatedAt time.Time `json:"createdAt"`
}

// ListCoursesHandler handles course listings.
type ListCoursesHandler struct {
	courses course.Repository
}

// NewListCoursesHandler creates a new ListCoursesHandler.
func NewListCoursesHandler(courses course.Repository) *ListCoursesHandler {
	return &ListCoursesHandler{courses: courses}
}

// Handle lists all registered courses ordered by external id.
func (h *ListCoursesHandler) Handle(ctx context.Context) ([]CourseDTO, error) {
	rows, err := h.courses.List(ctx)
	if err != nil {
		return nil, err
	}

	dtos := make([]CourseDTO, len(rows))
	for i, c := range rows {
		dtos[i] = CourseDTO{
			CourseID:  c.CourseID,
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
		}
	}
	return dtos, nil
}
