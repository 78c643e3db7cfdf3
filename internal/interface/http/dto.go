package http

import (
	"time"

	"github.com/misis-lms/gamification-service/internal/domain/event"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DTOs
// The LMS contract: field names mirror what the LMS sends.
// ══════════════════════════════════════════════════════════════════════════════

// eventRequest is the body of POST /api/v1/events.
type eventRequest struct {
	UserID    string `json:"userId"`
	EventID   string `json:"eventId"`
	EventType string `json:"eventType"`
	CourseID  string `json:"courseId,omitempty"`
	GroupID   string `json:"groupId,omitempty"`
}

// createEventTypeRequest is the body of POST /api/v1/admin/event-types.
type createEventTypeRequest struct {
	TypeCode       string `json:"typeCode"`
	DisplayName    string `json:"displayName"`
	Points         int    `json:"points"`
	MaxDailyPoints *int   `json:"maxDailyPoints,omitempty"`
}

// updateEventTypeRequest is the body of PUT /api/v1/admin/event-types/{typeCode}.
type updateEventTypeRequest struct {
	DisplayName    string `json:"displayName"`
	Points         int    `json:"points"`
	MaxDailyPoints *int   `json:"maxDailyPoints,omitempty"`
	Active         bool   `json:"active"`
}

// registerCourseRequest is the body of POST /api/v1/admin/courses.
type registerCourseRequest struct {
	CourseID string `json:"courseId"`
	Title    string `json:"title"`
}

// registerGroupRequest is the body of POST /api/v1/admin/courses/{courseId}/groups.
type registerGroupRequest struct {
	GroupID string `json:"groupId"`
	Title   string `json:"title"`
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE DTOs
// ══════════════════════════════════════════════════════════════════════════════

// awardResponse is the body returned for every processed event. Business
// outcomes (success, duplicate, rejected) all come back as 200 so the LMS
// never retries what the service has already decided.
type awardResponse struct {
	Status            string    `json:"status"`
	UserID            string    `json:"userId"`
	EventID           string    `json:"eventId"`
	PointsEarned      int       `json:"pointsEarned"`
	TotalPoints       int       `json:"totalPoints"`
	NewLevel          int       `json:"newLevel"`
	LevelUp           bool      `json:"levelUp"`
	TransactionID     string    `json:"transactionId,omitempty"`
	PointsToNextLevel int       `json:"pointsToNextLevel"`
	ProgressPercent   float64   `json:"progressPercent"`
	Message           string    `json:"message,omitempty"`
	ProcessedAt       time.Time `json:"processedAt"`
}

// eventTypeResponse is the body returned by admin event type mutations.
type eventTypeResponse struct {
	TypeCode       string    `json:"typeCode"`
	DisplayName    string    `json:"displayName"`
	Points         int       `json:"points"`
	MaxDailyPoints *int      `json:"maxDailyPoints"`
	Active         bool      `json:"active"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// toEventTypeResponse maps a catalog entry to its response shape.
func toEventTypeResponse(et *event.EventType) eventTypeResponse {
	return eventTypeResponse{
		TypeCode:       et.TypeCode.String(),
		DisplayName:    et.DisplayName,
		Points:         et.Points,
		MaxDailyPoints: et.MaxDailyPoints,
		Active:         et.Active,
		UpdatedAt:      et.UpdatedAt,
	}
}

// courseResponse is the body returned by admin course registration.
type courseResponse struct {
	CourseID  string    `json:"courseId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// groupResponse is the body returned by admin group registration.
type groupResponse struct {
	GroupID   string    `json:"groupId"`
	CourseID  string    `json:"courseId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}
