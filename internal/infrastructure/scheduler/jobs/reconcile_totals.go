// Package jobs contains implementations of scheduled jobs for the
// gamification service.
package jobs

import (
	"context"
	"fmt"

	"github.com/misis-lms/gamification-service/internal/domain/ledger"
	"github.com/misis-lms/gamification-service/internal/domain/level"
	"github.com/misis-lms/gamification-service/internal/domain/user"
	"github.com/misis-lms/gamification-service/pkg/logger"
	"github.com/misis-lms/gamification-service/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILE TOTALS JOB
// The transaction log is the source of truth. Cached totals on the user row
// can only drift through operator intervention or a partial restore; this job
// re-derives every total from the log and repairs the difference, then
// recomputes the level from the corrected total.
// ══════════════════════════════════════════════════════════════════════════════

// ReconcileTotalsJob re-derives user totals from the transaction log.
type ReconcileTotalsJob struct {
	users   user.Repository
	entries ledger.Repository
	levels  *level.Engine
	log     *logger.Logger
	retrier *retry.Retrier

	pageSize int
}

// NewReconcileTotalsJob creates a new ReconcileTotalsJob.
func NewReconcileTotalsJob(users user.Repository, entries ledger.Repository, levels *level.Engine, log *logger.Logger) *ReconcileTotalsJob {
	if log == nil {
		log = logger.Default()
	}
	return &ReconcileTotalsJob{
		users:    users,
		entries:  entries,
		levels:   levels,
		log:      log.With(logger.Component("reconcile_totals")),
		retrier:  retry.DatabaseRetrier(),
		pageSize: 200,
	}
}

// Name returns the unique name of the job.
func (j *ReconcileTotalsJob) Name() string {
	return "reconcile_totals"
}

// Description returns a human-readable description of the job.
func (j *ReconcileTotalsJob) Description() string {
	return "Re-derives user point totals from the transaction log and repairs drift"
}

// Run walks all users page by page and repairs any total or level that does
// not match the transaction log.
func (j *ReconcileTotalsJob) Run(ctx context.Context) error {
	var checked, repaired, failed int

	for offset := 0; ; offset += j.pageSize {
		users, total, err := j.users.List(ctx, user.ListOptions{Limit: j.pageSize, Offset: offset})
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		if len(users) == 0 {
			break
		}

		for _, u := range users {
			if err := ctx.Err(); err != nil {
				return err
			}

			checked++
			fixed, err := j.reconcileUser(ctx, u)
			if err != nil {
				failed++
				j.log.Error("reconciliation failed",
					logger.UserID(u.ExternalID.String()),
					logger.Err(err),
				)
				continue
			}
			if fixed {
				repaired++
			}
		}

		if offset+j.pageSize >= total {
			break
		}
	}

	j.log.Info("reconciliation finished",
		logger.Int("checked", checked),
		logger.Int("repaired", repaired),
		logger.Int("failed", failed),
	)

	if failed > 0 {
		return fmt.Errorf("reconciliation finished with %d failures", failed)
	}
	return nil
}

// reconcileUser repairs one user and reports whether anything changed.
func (j *ReconcileTotalsJob) reconcileUser(ctx context.Context, u *user.User) (bool, error) {
	var fixed bool

	err := j.retrier.Do(ctx, func(ctx context.Context) error {
		fixed = false

		trueTotal, err := j.entries.SumByUser(ctx, u.ExternalID.String())
		if err != nil {
			return err
		}

		if trueTotal != u.TotalPoints {
			if _, err := j.users.AddPoints(ctx, u.ID, trueTotal-u.TotalPoints); err != nil {
				return err
			}
			j.log.Warn("total repaired",
				logger.UserID(u.ExternalID.String()),
				logger.Int("stored", u.TotalPoints),
				logger.Int("derived", trueTotal),
			)
			fixed = true
		}

		trueLevel := j.levels.Level(trueTotal)
		if trueLevel != u.Level {
			if err := j.users.UpdateLevel(ctx, u.ID, trueLevel); err != nil {
				return err
			}
			fixed = true
		}

		return nil
	})

	return fixed, err
}
