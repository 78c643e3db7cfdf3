package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/misis-lms/gamification-service/internal/domain/level"
	"github.com/misis-lms/gamification-service/internal/domain/shared"
	"github.com/misis-lms/gamification-service/internal/domain/user"
)

// stubUserRepo serves a fixed set of profiles keyed by external id.
type stubUserRepo struct {
	users map[user.ExternalID]*user.User
}

func (s *stubUserRepo) Create(context.Context, *user.User) error { return shared.ErrInternal }

func (s *stubUserRepo) GetByID(context.Context, string) (*user.User, error) {
	return nil, shared.ErrUserNotFound
}

func (s *stubUserRepo) GetByExternalID(_ context.Context, id user.ExternalID) (*user.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return u, nil
}

func (s *stubUserRepo) AddPoints(context.Context, string, int) (int, error) {
	return 0, shared.ErrInternal
}

func (s *stubUserRepo) UpdateLevel(context.Context, string, int) error { return shared.ErrInternal }

func (s *stubUserRepo) List(context.Context, user.ListOptions) ([]*user.User, int, error) {
	out := make([]*user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func TestGetProgressHandler_KnownUser(t *testing.T) {
	usr, err := user.New("user-1")
	require.NoError(t, err)
	usr.TotalPoints = 1250
	usr.Level = 2

	h := NewGetProgressHandler(
		&stubUserRepo{users: map[user.ExternalID]*user.User{"user-1": usr}},
		level.NewEngine("TRIANGULAR", 500, 200),
	)

	res, err := h.Handle(context.Background(), GetProgressQuery{UserID: "user-1"})

	require.NoError(t, err)
	assert.Equal(t, "user-1", res.UserID)
	assert.Equal(t, 1250, res.TotalPoints)
	assert.Equal(t, 2, res.Level)
	assert.Equal(t, 1500, res.PointsToNextLevel)
	assert.Greater(t, res.ProgressPercent, 0.0)
}

func TestGetProgressHandler_AdminViewIncludesInternalID(t *testing.T) {
	usr, err := user.New("user-1")
	require.NoError(t, err)
	usr.TotalPoints = 300

	h := NewGetProgressHandler(
		&stubUserRepo{users: map[user.ExternalID]*user.User{"user-1": usr}},
		level.NewEngine("TRIANGULAR", 500, 200),
	)

	res, err := h.HandleAdmin(context.Background(), GetProgressQuery{UserID: "user-1"})

	require.NoError(t, err)
	assert.Equal(t, usr.ID, res.ID)
	assert.Equal(t, "user-1", res.UserID)
	assert.Equal(t, 300, res.TotalPoints)
	assert.Equal(t, usr.UpdatedAt, res.UpdatedAt)
}

func TestGetProgressHandler_UnknownUser(t *testing.T) {
	h := NewGetProgressHandler(
		&stubUserRepo{users: map[user.ExternalID]*user.User{}},
		level.NewEngine("TRIANGULAR", 500, 200),
	)

	_, err := h.Handle(context.Background(), GetProgressQuery{UserID: "ghost"})

	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestGetProgressHandler_BlankUserID(t *testing.T) {
	h := NewGetProgressHandler(
		&stubUserRepo{users: map[user.ExternalID]*user.User{}},
		level.NewEngine("TRIANGULAR", 500, 200),
	)

	_, err := h.Handle(context.Background(), GetProgressQuery{UserID: "   "})

	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}
