// Package jobs contains implementations of scheduled jobs for TilHub Core.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tilhub/tilhub-core/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROTATE LEAGUES JOB
// ══════════════════════════════════════════════════════════════════════════════

// RotateLeaguesJob archives elapsed weekly league sessions, applies
// promotions and demotions, and opens fresh sessions. Scheduled weekly
// on the session boundary; each run is idempotent because only sessions
// whose end date has passed are touched.
type RotateLeaguesJob struct {
	handler *command.RotateLeaguesHandler
	logger  *slog.Logger
	config  RotateLeaguesConfig

	lastRunStats atomic.Value // *RotateLeaguesStats
}

// RotateLeaguesConfig contains configuration for the rotation job.
type RotateLeaguesConfig struct {
	// Timeout is the maximum duration for one rotation pass.
	Timeout time.Duration
}

// DefaultRotateLeaguesConfig returns sensible defaults.
func DefaultRotateLeaguesConfig() RotateLeaguesConfig {
	return RotateLeaguesConfig{
		Timeout: 5 * time.Minute,
	}
}

// RotateLeaguesStats contains statistics from one rotation run.
type RotateLeaguesStats struct {
	StartedAt       time.Time
	CompletedAt     time.Time
	Duration        time.Duration
	SessionsRotated int
	Promoted        int
	Demoted         int
}

// NewRotateLeaguesJob creates a new league rotation job.
func NewRotateLeaguesJob(handler *command.RotateLeaguesHandler, logger *slog.Logger, config RotateLeaguesConfig) *RotateLeaguesJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RotateLeaguesJob{
		handler: handler,
		logger:  logger,
		config:  config,
	}
}

// Name returns the job name.
func (j *RotateLeaguesJob) Name() string {
	return "rotate_leagues"
}

// Description returns a human-readable description.
func (j *RotateLeaguesJob) Description() string {
	return "Archives elapsed league sessions and applies promotions and demotions"
}

// Run executes the rotation job.
func (j *RotateLeaguesJob) Run(ctx context.Context) error {
	startedAt := time.Now()

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	result, err := j.handler.Handle(ctx, command.RotateLeaguesCommand{Timestamp: startedAt.UTC()})
	if err != nil {
		return fmt.Errorf("rotate leagues: %w", err)
	}

	completedAt := time.Now()
	stats := &RotateLeaguesStats{
		StartedAt:       startedAt,
		CompletedAt:     completedAt,
		Duration:        completedAt.Sub(startedAt),
		SessionsRotated: result.SessionsRotated,
		Promoted:        result.Promoted,
		Demoted:         result.Demoted,
	}
	j.lastRunStats.Store(stats)

	j.logger.Info("league rotation completed",
		"sessions_rotated", stats.SessionsRotated,
		"promoted", stats.Promoted,
		"demoted", stats.Demoted,
		"duration", stats.Duration.String(),
	)

	return nil
}

// LastRunStats returns statistics from the most recent run, or nil.
func (j *RotateLeaguesJob) LastRunStats() *RotateLeaguesStats {
	v := j.lastRunStats.Load()
	if v == nil {
		return nil
	}
	return v.(*RotateLeaguesStats)
}
