package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/misis-lms/gamification-service/internal/application/command"
	"github.com/misis-lms/gamification-service/internal/application/query"
	"github.com/misis-lms/gamification-service/internal/domain/shared"
	"github.com/misis-lms/gamification-service/pkg/logger"
)

// maxBodyBytes bounds request bodies on write endpoints.
const maxBodyBytes = 64 << 10

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth returns the aggregated health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())

	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// handleReady returns readiness for traffic.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())

	if !status.Ready {
		writeJSONError(w, http.StatusServiceUnavailable, "not_ready", status.Message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

// handleLive is the liveness probe. The process answering is the check.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"alive": true})
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT INGESTION
// ══════════════════════════════════════════════════════════════════════════════

// handlePostEvent processes one learning event from the LMS.
// Success, duplicate, and rejected are all HTTP 200; only malformed requests
// and infrastructure failures map to error codes.
func (s *Server) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, err := s.deps.AwardPoints.Handle(r.Context(), command.AwardPointsCommand{
		UserID:    req.UserID,
		EventID:   req.EventID,
		EventType: req.EventType,
		CourseID:  req.CourseID,
		GroupID:   req.GroupID,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, awardResponse{
		Status:            string(res.Status),
		UserID:            res.UserID,
		EventID:           res.EventID,
		PointsEarned:      res.PointsEarned,
		TotalPoints:       res.TotalPoints,
		NewLevel:          res.NewLevel,
		LevelUp:           res.LevelUp,
		TransactionID:     res.TransactionID,
		PointsToNextLevel: res.PointsToNextLevel,
		ProgressPercent:   res.ProgressPercent,
		Message:           res.Message,
		ProcessedAt:       res.ProcessedAt,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// READ HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetProgress returns a user's leveling progress.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.GetProgress.Handle(r.Context(), query.GetProgressQuery{
		UserID: r.PathValue("userId"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleListUserTransactions returns one user's transaction log page.
func (s *Server) handleListUserTransactions(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.ListTransactions.Handle(r.Context(), query.ListTransactionsQuery{
		UserID: r.PathValue("userId"),
		Page:   getQueryParamInt(r, "page", 0),
		Size:   getQueryParamInt(r, "size", 0),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGetCourseLeaderboard returns a course-wide leaderboard page.
func (s *Server) handleGetCourseLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.serveLeaderboard(w, r, r.PathValue("courseId"), "")
}

// handleGetGroupLeaderboard returns a group-scoped leaderboard page.
func (s *Server) handleGetGroupLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.serveLeaderboard(w, r, r.PathValue("courseId"), r.PathValue("groupId"))
}

func (s *Server) serveLeaderboard(w http.ResponseWriter, r *http.Request, courseID, groupID string) {
	res, err := s.deps.GetLeaderboard.Handle(r.Context(), query.GetLeaderboardQuery{
		CourseID: courseID,
		GroupID:  groupID,
		Page:     getQueryParamInt(r, "page", 0),
		Size:     getQueryParamInt(r, "size", 0),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleListEventTypes returns the event type catalog.
func (s *Server) handleListEventTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.deps.ListEventTypes.Handle(r.Context(), getQueryParamBool(r, "includeInactive"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleCreateEventType registers a new event type.
func (s *Server) handleCreateEventType(w http.ResponseWriter, r *http.Request) {
	var req createEventTypeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	et, err := s.deps.ManageEventTypes.Create(r.Context(), command.CreateEventTypeCommand{
		TypeCode:       req.TypeCode,
		DisplayName:    req.DisplayName,
		Points:         req.Points,
		MaxDailyPoints: req.MaxDailyPoints,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toEventTypeResponse(et))
}

// handleUpdateEventType edits an existing event type.
func (s *Server) handleUpdateEventType(w http.ResponseWriter, r *http.Request) {
	var req updateEventTypeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	et, err := s.deps.ManageEventTypes.Update(r.Context(), command.UpdateEventTypeCommand{
		TypeCode:       r.PathValue("typeCode"),
		DisplayName:    req.DisplayName,
		Points:         req.Points,
		MaxDailyPoints: req.MaxDailyPoints,
		Active:         req.Active,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventTypeResponse(et))
}

// handleDeactivateEventType retires an event type without touching history.
func (s *Server) handleDeactivateEventType(w http.ResponseWriter, r *http.Request) {
	et, err := s.deps.ManageEventTypes.Deactivate(r.Context(), r.PathValue("typeCode"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventTypeResponse(et))
}

// handleRegisterCourse registers a course known to the LMS.
func (s *Server) handleRegisterCourse(w http.ResponseWriter, r *http.Request) {
	var req registerCourseRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	crs, err := s.deps.ManageCourses.RegisterCourse(r.Context(), command.RegisterCourseCommand{
		CourseID: req.CourseID,
		Title:    req.Title,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, courseResponse{
		CourseID:  crs.CourseID,
		Title:     crs.Title,
		CreatedAt: crs.CreatedAt,
	})
}

// handleRegisterGroup registers a group within a course.
func (s *Server) handleRegisterGroup(w http.ResponseWriter, r *http.Request) {
	var req registerGroupRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	courseID := r.PathValue("courseId")
	grp, err := s.deps.ManageCourses.RegisterGroup(r.Context(), command.RegisterGroupCommand{
		CourseID: courseID,
		GroupID:  req.GroupID,
		Title:    req.Title,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, groupResponse{
		GroupID:   grp.GroupID,
		CourseID:  courseID,
		Title:     grp.Title,
		CreatedAt: grp.CreatedAt,
	})
}

// handleListCourses returns all registered courses.
func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.deps.ListCourses.Handle(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

// handleListUsers returns user profiles ordered by total points.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.ListUsers.Handle(r.Context(), query.ListUsersQuery{
		Page: getQueryParamInt(r, "page", 0),
		Size: getQueryParamInt(r, "size", 0),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleAdminGetProgress returns the admin view of a user's progress,
// including the internal profile id and timestamps.
func (s *Server) handleAdminGetProgress(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.GetProgress.HandleAdmin(r.Context(), query.GetProgressQuery{
		UserID: r.PathValue("userId"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleListTransactions returns the full transaction log page by page.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.ListTransactions.Handle(r.Context(), query.ListTransactionsQuery{
		UserID: r.URL.Query().Get("userId"),
		Page:   getQueryParamInt(r, "page", 0),
		Size:   getQueryParamInt(r, "size", 0),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody decodes a JSON request body into dest and writes the 400 on
// failure. Returns false when the handler should stop.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			writeJSONError(w, http.StatusBadRequest, "empty_body", "Request body is required")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "malformed_json", "Request body is not valid JSON")
		return false
	}

	return true
}

// writeDomainError maps domain errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var de *shared.DomainError
	message := err.Error()
	if errors.As(err, &de) {
		message = de.Message
	}

	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", message)
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", message)
	case shared.IsAlreadyExists(err):
		writeJSONError(w, http.StatusConflict, "already_exists", message)
	case errors.Is(err, shared.ErrInvalidState):
		writeJSONError(w, http.StatusConflict, "invalid_state", message)
	default:
		s.logger.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
