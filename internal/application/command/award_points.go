// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/misis-lms/gamification-service/internal/domain/event"
	"github.com/misis-lms/gamification-service/internal/domain/ledger"
	"github.com/misis-lms/gamification-service/internal/domain/level"
	"github.com/misis-lms/gamification-service/internal/domain/shared"
	"github.com/misis-lms/gamification-service/internal/domain/user"
	"github.com/misis-lms/gamification-service/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD POINTS COMMAND
// Applies one external LMS event: exactly-once points credit, daily cap
// enforcement, level recomputation and optional course-scoped accrual.
// ══════════════════════════════════════════════════════════════════════════════

// Status is the business outcome of an award attempt. Duplicates and cap
// rejections are ordinary outcomes, not errors.
type Status string

const (
	// StatusSuccess - points were credited.
	StatusSuccess Status = "success"

	// StatusDuplicate - the event id was already applied; nothing changed.
	StatusDuplicate Status = "duplicate"

	// StatusRejected - the event was refused (unknown or disabled event
	// type, or the daily cap was reached); nothing changed.
	StatusRejected Status = "rejected"
)

// AwardPointsCommand contains one LMS event to apply.
type AwardPointsCommand struct {
	// UserID is the external LMS user id. Users are created on first sight.
	UserID string

	// EventID is the globally unique event id, the idempotency key.
	EventID string

	// EventType is the event type code to award points for.
	EventType string

	// CourseID optionally scopes the award to a course (external id).
	CourseID string

	// GroupID optionally names the user's group within the course.
	GroupID string
}

// Validate validates the command.
func (c AwardPointsCommand) Validate() error {
	if !user.ExternalID(c.UserID).IsValid() {
		return shared.ErrInvalidUserID
	}
	if !ledger.EventID(c.EventID).IsValid() {
		return shared.ErrInvalidEventID
	}
	if !event.TypeCode(c.EventType).IsValid() {
		return shared.NewDomainError("award", "Validate", shared.ErrInvalidInput, "event type code must not be blank")
	}
	if c.GroupID != "" && c.CourseID == "" {
		return shared.NewDomainError("award", "Validate", shared.ErrInvalidInput, "group id requires a course id")
	}
	return nil
}

// AwardResult is the outcome of one award attempt.
type AwardResult struct {
	// Status is the business outcome.
	Status Status

	// UserID echoes the external user id.
	UserID string

	// EventID echoes the event id.
	EventID string

	// PointsEarned is the credited amount. Zero unless Status is success.
	PointsEarned int

	// TotalPoints is the user's all-time total after the award.
	TotalPoints int

	// NewLevel is the user's level after the award.
	NewLevel int

	// LevelUp indicates the award crossed a level threshold.
	LevelUp bool

	// TransactionID is the internal id of the appended ledger row.
	TransactionID string

	// PointsToNextLevel is the width of the current level bucket.
	PointsToNextLevel int

	// ProgressPercent is the progress through the current bucket (0-100).
	ProgressPercent float64

	// Message explains duplicate and rejected outcomes.
	Message string

	// ProcessedAt is when the attempt finished.
	ProcessedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AwardPointsHandler handles the AwardPointsCommand.
//
// Ordering inside the transaction is fixed: the ledger row is appended before
// the profile total is touched, so a committed transaction always has its
// points reflected in the profile and an aborted one leaves no trace.
type AwardPointsHandler struct {
	tx       shared.TxManager
	users    user.Repository
	registry *event.Registry
	ledger   ledger.Repository
	levels   *level.Engine
	tracker  *EnrollmentTracker
	log      *logger.Logger
}

// NewAwardPointsHandler creates a new AwardPointsHandler.
func NewAwardPointsHandler(
	tx shared.TxManager,
	users user.Repository,
	registry *event.Registry,
	ledgerRepo ledger.Repository,
	levels *level.Engine,
	tracker *EnrollmentTracker,
	log *logger.Logger,
) *AwardPointsHandler {
	return &AwardPointsHandler{
		tx:       tx,
		users:    users,
		registry: registry,
		ledger:   ledgerRepo,
		levels:   levels,
		tracker:  tracker,
		log:      log.With(logger.Component("award-engine")),
	}
}

// Handle executes the award points command.
//
// Returned errors mean the event was NOT applied and is safe to resubmit:
// validation failures, unknown courses or groups, and storage failures.
// Duplicates, unknown or disabled event types and cap rejections are final
// decisions and come back as results with a nil error.
func (h *AwardPointsHandler) Handle(ctx context.Context, cmd AwardPointsCommand) (*AwardResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var result *AwardResult
	err := h.tx.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		result, txErr = h.apply(ctx, cmd)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	h.log.Info("event processed",
		logger.EventID(cmd.EventID),
		logger.UserID(cmd.UserID),
		logger.EventType(cmd.EventType),
		logger.Status(string(result.Status)),
		logger.Points(result.PointsEarned),
	)

	return result, nil
}

// apply runs the awarding steps inside one transaction.
func (h *AwardPointsHandler) apply(ctx context.Context, cmd AwardPointsCommand) (*AwardResult, error) {
	now := time.Now().UTC()
	eventID := ledger.EventID(cmd.EventID)

	// Fast duplicate check. The unique constraint on the ledger is the real
	// guarantee; this avoids doing work for the common resubmission case.
	seen, err := h.ledger.Exists(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("award: duplicate check: %w", err)
	}
	if seen {
		return h.duplicateResult(cmd, now), nil
	}

	et, err := h.registry.GetActiveByCode(ctx, event.TypeCode(cmd.EventType))
	if err != nil {
		// An unrecognized or retired type is a final decision, not a
		// resubmittable failure.
		if shared.IsNotFound(err) {
			return h.unknownTypeResult(cmd, now), nil
		}
		return nil, fmt.Errorf("award: resolve event type: %w", err)
	}

	usr, err := h.getOrCreateUser(ctx, user.ExternalID(cmd.UserID))
	if err != nil {
		return nil, err
	}

	// Cap check happens before any write so a rejected event leaves no trace.
	ok, err := h.registry.CanAward(ctx, cmd.UserID, et, et.Points, now)
	if err != nil {
		return nil, fmt.Errorf("award: cap check: %w", err)
	}
	if !ok {
		return h.rejectedResult(cmd, usr, et, now), nil
	}

	txRow, err := ledger.New(cmd.UserID, eventID, et.TypeCode.String(), et.Points, et.DisplayName)
	if err != nil {
		return nil, err
	}
	if err := h.ledger.Append(ctx, txRow); err != nil {
		// A concurrent submission of the same event id won the race.
		if shared.IsDuplicate(err) {
			return h.duplicateResult(cmd, now), nil
		}
		return nil, fmt.Errorf("award: ledger append: %w", err)
	}

	newTotal, err := h.users.AddPoints(ctx, usr.ID, et.Points)
	if err != nil {
		return nil, fmt.Errorf("award: add points: %w", err)
	}

	newLevel := h.levels.Level(newTotal)
	levelUp := newLevel > usr.Level
	if newLevel != usr.Level {
		if err := h.users.UpdateLevel(ctx, usr.ID, newLevel); err != nil {
			return nil, fmt.Errorf("award: update level: %w", err)
		}
	}

	if cmd.CourseID != "" {
		if err := h.tracker.Accrue(ctx, usr.ID, cmd.CourseID, cmd.GroupID, et.Points); err != nil {
			return nil, err
		}
	}

	return &AwardResult{
		Status:            StatusSuccess,
		UserID:            cmd.UserID,
		EventID:           cmd.EventID,
		PointsEarned:      et.Points,
		TotalPoints:       newTotal,
		NewLevel:          newLevel,
		LevelUp:           levelUp,
		TransactionID:     txRow.ID,
		PointsToNextLevel: h.levels.PointsToNextLevel(newLevel),
		ProgressPercent:   h.levels.ProgressPercent(newTotal, newLevel),
		ProcessedAt:       now,
	}, nil
}

// getOrCreateUser resolves the profile, creating it on first sight. A creation
// race between two first events for the same user folds into a re-read.
func (h *AwardPointsHandler) getOrCreateUser(ctx context.Context, externalID user.ExternalID) (*user.User, error) {
	usr, err := h.users.GetByExternalID(ctx, externalID)
	if err == nil {
		return usr, nil
	}
	if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("award: get user: %w", err)
	}

	usr, err = user.New(externalID)
	if err != nil {
		return nil, err
	}
	if err := h.users.Create(ctx, usr); err != nil {
		if shared.IsAlreadyExists(err) {
			return h.users.GetByExternalID(ctx, externalID)
		}
		return nil, fmt.Errorf("award: create user: %w", err)
	}
	return usr, nil
}

// duplicateResult builds the no-op outcome for an already-applied event.
func (h *AwardPointsHandler) duplicateResult(cmd AwardPointsCommand, now time.Time) *AwardResult {
	return &AwardResult{
		Status:      StatusDuplicate,
		UserID:      cmd.UserID,
		EventID:     cmd.EventID,
		Message:     "event already processed",
		ProcessedAt: now,
	}
}

// unknownTypeResult builds the no-op outcome for an unknown or disabled
// event type.
func (h *AwardPointsHandler) unknownTypeResult(cmd AwardPointsCommand, now time.Time) *AwardResult {
	return &AwardResult{
		Status:      StatusRejected,
		UserID:      cmd.UserID,
		EventID:     cmd.EventID,
		Message:     fmt.Sprintf("unknown or disabled event type: %s", cmd.EventType),
		ProcessedAt: now,
	}
}

// rejectedResult builds the no-op outcome for a cap-blocked event.
func (h *AwardPointsHandler) rejectedResult(cmd AwardPointsCommand, usr *user.User, et *event.EventType, now time.Time) *AwardResult {
	return &AwardResult{
		Status:      StatusRejected,
		UserID:      cmd.UserID,
		EventID:     cmd.EventID,
		TotalPoints: usr.TotalPoints,
		NewLevel:    usr.Level,
		Message:     fmt.Sprintf("daily points limit reached for event type %s", et.TypeCode),
		ProcessedAt: now,
	}
}
