package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/quest"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRE QUESTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ExpireQuestsJob marks stale daily quests as expired across all users.
// Quest generation already expires a user's stale quests lazily; this job
// is the sweep for users who never came back, so completed-but-unclaimed
// rewards do not linger forever.
type ExpireQuestsJob struct {
	questRepo quest.Repository
	logger    *slog.Logger
	timeout   time.Duration
}

// NewExpireQuestsJob creates a new quest expiry job.
func NewExpireQuestsJob(questRepo quest.Repository, logger *slog.Logger) *ExpireQuestsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpireQuestsJob{
		questRepo: questRepo,
		logger:    logger,
		timeout:   2 * time.Minute,
	}
}

// Name returns the job name.
func (j *ExpireQuestsJob) Name() string {
	return "expire_quests"
}

// Description returns a human-readable description.
func (j *ExpireQuestsJob) Description() string {
	return "Expires stale daily quests across all users"
}

// Run executes the expiry sweep.
func (j *ExpireQuestsJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	expired, err := j.questRepo.ExpireAllStale(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("expire quests: %w", err)
	}

	j.logger.Info("quest expiry sweep completed", "expired", expired)
	return nil
}
