package command

import (
	"context"
	"fmt"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/notification"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPAIR STREAK COMMAND
// Restores a streak that was just reset inside the 24-48h window.
// ══════════════════════════════════════════════════════════════════════════════

// RepairStreakCommand contains the data to repair a streak.
type RepairStreakCommand struct {
	// UserID is the learner's ID.
	UserID string

	// Timestamp defaults to now if zero.
	Timestamp time.Time
}

// Validate validates the command.
func (c RepairStreakCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("streak", "Repair", shared.ErrInvalidInput, "user_id is required")
	}
	return nil
}

// RepairStreakResult contains the restored streak.
type RepairStreakResult struct {
	// RestoredStreak is the streak value after repair.
	RestoredStreak int
}

// RepairStreakHandler handles the RepairStreakCommand.
type RepairStreakHandler struct {
	statsRepo      stats.Repository
	eventPublisher shared.EventPublisher
	notifier       notification.Sink
}

// NewRepairStreakHandler creates a new RepairStreakHandler.
func NewRepairStreakHandler(
	statsRepo stats.Repository,
	eventPublisher shared.EventPublisher,
	notifier notification.Sink,
) *RepairStreakHandler {
	return &RepairStreakHandler{
		statsRepo:      statsRepo,
		eventPublisher: eventPublisher,
		notifier:       notifier,
	}
}

// Handle executes the repair streak command.
func (h *RepairStreakHandler) Handle(ctx context.Context, cmd RepairStreakCommand) (*RepairStreakResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	ledger, err := h.statsRepo.Get(ctx, shared.UserID(cmd.UserID))
	if err != nil {
		return nil, fmt.Errorf("repair_streak: failed to get ledger: %w", err)
	}

	restored, err := ledger.RepairStreak(now)
	if err != nil {
		return nil, err
	}
	if err := h.statsRepo.Update(ctx, ledger); err != nil {
		return nil, fmt.Errorf("repair_streak: failed to update ledger: %w", err)
	}

	_ = h.eventPublisher.Publish(shared.NewStreakMaintainedEvent(cmd.UserID, restored, ledger.BestStreak))
	_ = h.notifier.Create(ctx, notification.Request{
		UserID:  shared.UserID(cmd.UserID),
		Type:    notification.TypeStreakMaintained,
		Title:   "Streak restored",
		Message: fmt.Sprintf("Your streak is back at %d days", restored),
	})
	return &RepairStreakResult{RestoredStreak: restored}, nil
}
