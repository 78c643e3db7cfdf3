package command

import (
	"context"

	"github.com/misis-lms/gamification-service/internal/domain/course"
	"github.com/misis-lms/gamification-service/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE REFERENCE COMMANDS
// Admin registration of courses and groups. The awarding engine only reads
// this reference data; it never creates courses on its own.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterCourseCommand registers a course known to the LMS.
type RegisterCourseCommand struct {
	// CourseID is the external LMS course identifier.
	CourseID string

	// Title is the display name.
	Title string
}

// RegisterGroupCommand registers a group within an existing course.
type RegisterGroupCommand struct {
	// CourseID is the external id of the owning course.
	CourseID string

	// GroupID is the external LMS group identifier.
	GroupID string

	// Title is the display name.
	Title string
}

// ManageCoursesHandler handles course reference maintenance.
type ManageCoursesHandler struct {
	courses course.Repository
	groups  course.GroupRepository
	log     *logger.Logger
}

// NewManageCoursesHandler creates a new ManageCoursesHandler.
func NewManageCoursesHandler(courses course.Repository, groups course.GroupRepository, log *logger.Logger) *ManageCoursesHandler {
	return &ManageCoursesHandler{
		courses: courses,
		groups:  groups,
		log:     log.With(logger.Component("course-admin")),
	}
}

// RegisterCourse registers a new course.
func (h *ManageCoursesHandler) RegisterCourse(ctx context.Context, cmd RegisterCourseCommand) (*course.Course, error) {
	crs, err := course.NewCourse(cmd.CourseID, cmd.Title)
	if err != nil {
		return nil, err
	}

	if err := h.courses.Create(ctx, crs); err != nil {
		return nil, err
	}

	h.log.Info("course registered", logger.CourseID(cmd.CourseID))
	return crs, nil
}

// RegisterGroup registers a new group inside an existing course.
func (h *ManageCoursesHandler) RegisterGroup(ctx context.Context, cmd RegisterGroupCommand) (*course.Group, error) {
	crs, err := h.courses.GetByCourseID(ctx, cmd.CourseID)
	if err != nil {
		return nil, err
	}

	grp, err := course.NewGroup(cmd.GroupID, crs.ID, cmd.Title)
	if err != nil {
		return nil, err
	}

	if err := h.groups.Create(ctx, grp); err != nil {
		return nil, err
	}

	h.log.Info("group registered",
		logger.CourseID(cmd.CourseID),
		logger.GroupID(cmd.GroupID),
	)
	return grp, nil
}
