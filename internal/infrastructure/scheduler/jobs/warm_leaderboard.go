package jobs

import (
	"context"
	"fmt"

	"github.com/misis-lms/gamification-service/internal/domain/course"
	"github.com/misis-lms/gamification-service/pkg/logger"
	"github.com/misis-lms/gamification-service/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// WARM LEADERBOARD JOB
// Recomputes the first course-wide page of every leaderboard and replaces the
// cached copy, so the hottest read never pays the cold-start query.
// ══════════════════════════════════════════════════════════════════════════════

// WarmLeaderboardJob refreshes the first cached page of every course leaderboard.
type WarmLeaderboardJob struct {
	courses     course.Repository
	enrollments course.EnrollmentRepository
	cache       course.LeaderboardCache
	log         *logger.Logger
	retrier     *retry.Retrier

	pageSize int
}

// NewWarmLeaderboardJob creates a new WarmLeaderboardJob.
func NewWarmLeaderboardJob(courses course.Repository, enrollments course.EnrollmentRepository, cache course.LeaderboardCache, log *logger.Logger) *WarmLeaderboardJob {
	if log == nil {
		log = logger.Default()
	}
	return &WarmLeaderboardJob{
		courses:     courses,
		enrollments: enrollments,
		cache:       cache,
		log:         log.With(logger.Component("warm_leaderboard")),
		retrier:     retry.CacheRetrier(),
		pageSize:    20,
	}
}

// Name returns the unique name of the job.
func (j *WarmLeaderboardJob) Name() string {
	return "warm_leaderboard"
}

// Description returns a human-readable description of the job.
func (j *WarmLeaderboardJob) Description() string {
	return "Refreshes the first cached leaderboard page of every course"
}

// Run refreshes each course in turn. A failed course is logged and skipped so
// one broken course never starves the rest.
func (j *WarmLeaderboardJob) Run(ctx context.Context) error {
	if j.cache == nil {
		return nil
	}

	courses, err := j.courses.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list courses: %w", err)
	}

	var warmed, failed int
	for _, c := range courses {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := j.warmCourse(ctx, c.ID, c.CourseID); err != nil {
			failed++
			j.log.Error("leaderboard warmup failed",
				logger.CourseID(c.CourseID),
				logger.Err(err),
			)
			continue
		}
		warmed++
	}

	j.log.Info("leaderboard warmup finished",
		logger.Int("warmed", warmed),
		logger.Int("failed", failed),
	)

	if failed > 0 {
		return fmt.Errorf("leaderboard warmup finished with %d failures", failed)
	}
	return nil
}

// warmCourse replaces every cached page of one course with a fresh first page.
func (j *WarmLeaderboardJob) warmCourse(ctx context.Context, courseRef, courseID string) error {
	rows, total, err := j.enrollments.Leaderboard(ctx, courseRef, "", j.pageSize, 0)
	if err != nil {
		return err
	}

	return j.retrier.Do(ctx, func(ctx context.Context) error {
		if err := j.cache.Invalidate(ctx, courseRef); err != nil {
			return err
		}
		return j.cache.PutPage(ctx, courseRef, "", j.pageSize, 0, rows, total)
	})
}
