package query

import (
	"context"
	"strings"
	"time"

	"github.com/misis-lms/gamification-service/internal/domain/level"
	"github.com/misis-lms/gamification-service/internal/domain/shared"
	"github.com/misis-lms/gamification-service/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER PROGRESS QUERY
// Reports a user's total points, level and distance to the next level.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery contains the progress request parameters.
type GetProgressQuery struct {
	// UserID is the external LMS user id. Required.
	UserID string
}

// Validate checks the query parameters.
func (q GetProgressQuery) Validate() error {
	if strings.TrimSpace(q.UserID) == "" {
		return shared.NewDomainError("query", "GetProgress", shared.ErrEmptyValue, "user id must not be blank")
	}
	return nil
}

// GetProgressResult contains the user's leveling progress.
type GetProgressResult struct {
	// UserID echoes the external user id.
	UserID string `json:"userId"`

	// TotalPoints is the all-time point total.
	TotalPoints int `json:"totalPoints"`

	// Level is the current level.
	Level int `json:"level"`

	// PointsToNextLevel is the width of the current level bucket.
	PointsToNextLevel int `json:"pointsToNextLevel"`

	// ProgressPercent is the progress through the bucket, 0-100.
	ProgressPercent float64 `json:"progressPercent"`

	// MemberSince is when the profile was created.
	MemberSince time.Time `json:"memberSince"`
}

// GetProgressHandler handles progress queries.
type GetProgressHandler struct {
	users  user.Repository
	levels *level.Engine
}

// NewGetProgressHandler creates a new GetProgressHandler.
func NewGetProgressHandler(users user.Repository, levels *level.Engine) *GetProgressHandler {
	return &GetProgressHandler{users: users, levels: levels}
}

// Handle executes the progress query. Unknown users return
// shared.ErrUserNotFound; profiles are never created by reads.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*GetProgressResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	usr, err := h.users.GetByExternalID(ctx, user.ExternalID(q.UserID))
	if err != nil {
		return nil, err
	}

	return &GetProgressResult{
		UserID:            usr.ExternalID.String(),
		TotalPoints:       usr.TotalPoints,
		Level:             usr.Level,
		PointsToNextLevel: h.levels.PointsToNextLevel(usr.Level),
		ProgressPercent:   h.levels.ProgressPercent(usr.TotalPoints, usr.Level),
		MemberSince:       usr.CreatedAt,
	}, nil
}

// AdminProgressResult is the admin view of a user's progress. It exposes the
// internal profile id and timestamps on top of the public fields.
type AdminProgressResult struct {
	GetProgressResult

	// ID is the internal profile id.
	ID string `json:"id"`

	// UpdatedAt is when the profile last changed.
	UpdatedAt time.Time `json:"updatedAt"`
}

// HandleAdmin executes the progress query for the admin surface.
func (h *GetProgressHandler) HandleAdmin(ctx context.Context, q GetProgressQuery) (*AdminProgressResult, error) {
	res, err := h.Handle(ctx, q)
	if err != nil {
		return nil, err
	}

	usr, err := h.users.GetByExternalID(ctx, user.ExternalID(q.UserID))
	if err != nil {
		return nil, err
	}

	return &AdminProgressResult{
		GetProgressResult: *res,
		ID:                usr.ID,
		UpdatedAt:         usr.UpdatedAt,
	}, nil
}
