package query

import (
	"context"
	"time"

	"github.com/misis-lms/gamification-service/internal/domain/shared"
	"github.com/misis-lms/gamification-service/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST USERS QUERY
// Admin listing of user profiles ordered by total points descending.
// ══════════════════════════════════════════════════════════════════════════════

// ListUsersQuery contains the listing parameters.
type ListUsersQuery struct {
	// Page is the 0-based page number.
	Page int

	// Size is the page size (default 20, max 100).
	Size int
}

// Validate checks and normalizes the query parameters.
func (q *ListUsersQuery) Validate() error {
	if q.Page < 0 {
		return shared.NewDomainError("query", "ListUsers", shared.ErrValueOutOfRange, "page cannot be negative")
	}
	if q.Size < 0 {
		return shared.NewDomainError("query", "ListUsers", shared.ErrValueOutOfRange, "size cannot be negative")
	}
	if q.Size == 0 {
		q.Size = defaultPageSize
	}
	if q.Size > maxPageSize {
		q.Size = maxPageSize
	}
	return nil
}

// UserDTO is one user profile row.
type UserDTO struct {
	// UserID is the external LMS user id.
	UserID string `json:"userId"`

	// TotalPoints is the all-time point total.
	TotalPoints int `json:"totalPoints"`

	// Level is the current level.
	Level int `json:"level"`

	// CreatedAt is when the profile was created.
	CreatedAt time.Time `json:"createdAt"`
}

// ListUsersResult contains one page of profiles.
type ListUsersResult struct {
	Entries       []UserDTO `json:"entries"`
	PageNumber    int       `json:"pageNumber"`
	PageSize      int       `json:"pageSize"`
	TotalElements int       `json:"totalElements"`
	TotalPages    int       `json:"totalPages"`
	HasNext       bool      `json:"hasNext"`
	HasPrevious   bool      `json:"hasPrevious"`
}

// ListUsersHandler handles profile listings.
type ListUsersHandler struct {
	users user.Repository
}

// NewListUsersHandler creates a new ListUsersHandler.
func NewListUsersHandler(users user.Repository) *ListUsersHandler {
	return &ListUsersHandler{users: users}
}

// Handle executes the listing.
func (h *ListUsersHandler) Handle(ctx context.Context, q ListUsersQuery) (*ListUsersResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	offset := q.Page * q.Size
	rows, total, err := h.users.List(ctx, user.ListOptions{Limit: q.Size, Offset: offset})
	if err != nil {
		return nil, err
	}

	entries := make([]UserDTO, len(rows))
	for i, u := range rows {
		entries[i] = UserDTO{
			UserID:      u.ExternalID.String(),
			TotalPoints: u.TotalPoints,
			Level:       u.Level,
			CreatedAt:   u.CreatedAt,
		}
	}

	totalPages := (total + q.Size - 1) / q.Size

	return &ListUsersResult{
		Entries:       entries,
		PageNumber:    q.Page,
		PageSize:      q.Size,
		TotalElements: total,
		TotalPages:    totalPages,
		HasNext:       offset+len(entries) < total,
		HasPrevious:   q.Page > 0,
	}, nil
}
