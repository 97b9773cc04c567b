package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESET DAILY GOALS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ResetDailyGoalsJob zeroes daily goal progress for all users at the UTC
// day boundary. Streak accounting does not depend on this job: the streak
// tracker compares calendar days on its own, the reset only restarts the
// visible progress bar.
type ResetDailyGoalsJob struct {
	statsRepo stats.Repository
	logger    *slog.Logger
	timeout   time.Duration
}

// NewResetDailyGoalsJob creates a new daily goal reset job.
func NewResetDailyGoalsJob(statsRepo stats.Repository, logger *slog.Logger) *ResetDailyGoalsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResetDailyGoalsJob{
		statsRepo: statsRepo,
		logger:    logger,
		timeout:   2 * time.Minute,
	}
}

// Name returns the job name.
func (j *ResetDailyGoalsJob) Name() string {
	return "reset_daily_goals"
}

// Description returns a human-readable description.
func (j *ResetDailyGoalsJob) Description() string {
	return "Resets daily goal progress for all users at the UTC day boundary"
}

// Run executes the reset.
func (j *ResetDailyGoalsJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	affected, err := j.statsRepo.ResetDailyGoals(ctx)
	if err != nil {
		return fmt.Errorf("reset daily goals: %w", err)
	}

	j.logger.Info("daily goal reset completed", "affected", affected)
	return nil
}
