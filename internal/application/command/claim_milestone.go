package command

import (
	"context"
	"fmt"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/milestone"
	"github.com/tilhub/tilhub-core/internal/domain/notification"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLAIM MILESTONE COMMAND
// Claims a streak-day milestone reward. An unclaimable milestone (inactive,
// already claimed, streak too short) is a quiet no-op, not an error.
// ══════════════════════════════════════════════════════════════════════════════

// ClaimMilestoneCommand contains the data to claim a milestone.
type ClaimMilestoneCommand struct {
	// UserID is the learner's ID.
	UserID string

	// Day is the milestone's day threshold.
	Day int

	// Timestamp defaults to now if zero.
	Timestamp time.Time
}

// Validate validates the command.
func (c ClaimMilestoneCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("milestone", "Claim", shared.ErrInvalidInput, "user_id is required")
	}
	if c.Day <= 0 {
		return shared.NewDomainError("milestone", "Claim", shared.ErrInvalidInput, "day must be positive")
	}
	return nil
}

// ClaimMilestoneResult contains the claim outcome.
type ClaimMilestoneResult struct {
	// Claimed is false when the milestone was not claimable.
	Claimed bool

	// Milestone is the claimed milestone (zero value when not claimed).
	Milestone milestone.Milestone
}

// ClaimMilestoneHandler handles the ClaimMilestoneCommand.
type ClaimMilestoneHandler struct {
	statsRepo stats.Repository
	notifier  notification.Sink
}

// NewClaimMilestoneHandler creates a new ClaimMilestoneHandler.
func NewClaimMilestoneHandler(statsRepo stats.Repository, notifier notification.Sink) *ClaimMilestoneHandler {
	return &ClaimMilestoneHandler{
		statsRepo: statsRepo,
		notifier:  notifier,
	}
}

// Handle executes the claim milestone command.
func (h *ClaimMilestoneHandler) Handle(ctx context.Context, cmd ClaimMilestoneCommand) (*ClaimMilestoneResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	ledger, err := h.statsRepo.Get(ctx, shared.UserID(cmd.UserID))
	if err != nil {
		return nil, fmt.Errorf("claim_milestone: failed to get ledger: %w", err)
	}

	m, ok := milestone.Claimable(ledger, cmd.Day)
	if !ok {
		return &ClaimMilestoneResult{Claimed: false}, nil
	}

	milestone.Apply(ledger, m, now)
	if err := h.statsRepo.Update(ctx, ledger); err != nil {
		return nil, fmt.Errorf("claim_milestone: failed to update ledger: %w", err)
	}
	// Gems are a hot counter outside Update's column set; credit them the
	// same way quest rewards are credited.
	if m.Reward.Gems > 0 {
		if _, err := h.statsRepo.AddXP(ctx, ledger.UserID, 0, m.Reward.Gems); err != nil {
			return nil, fmt.Errorf("claim_milestone: failed to credit gems: %w", err)
		}
	}

	_ = h.notifier.Create(ctx, notification.Request{
		UserID:  shared.UserID(cmd.UserID),
		Type:    notification.TypeMilestoneClaimed,
		Title:   "Milestone reward",
		Message: fmt.Sprintf("%d-day streak reward claimed", m.Day),
	})
	return &ClaimMilestoneResult{Claimed: true, Milestone: m}, nil
}
