package command

import (
	"context"
	"fmt"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/quest"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLAIM QUEST COMMAND
// Claims a completed quest's gem reward. Credits exactly once.
// ══════════════════════════════════════════════════════════════════════════════

// ClaimQuestCommand contains the data to claim a quest reward.
type ClaimQuestCommand struct {
	// UserID is the learner's ID.
	UserID string

	// QuestID is the quest being claimed.
	QuestID string

	// Timestamp defaults to now if zero.
	Timestamp time.Time
}

// Validate validates the command.
func (c ClaimQuestCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("quest", "Claim", shared.ErrInvalidInput, "user_id is required")
	}
	if c.QuestID == "" {
		return shared.NewDomainError("quest", "Claim", shared.ErrInvalidInput, "quest_id is required")
	}
	return nil
}

// ClaimQuestResult contains the claim outcome.
type ClaimQuestResult struct {
	// GemsGained is the credited reward.
	GemsGained int
}

// ClaimQuestHandler handles the ClaimQuestCommand.
type ClaimQuestHandler struct {
	questRepo quest.Repository
	statsRepo stats.Repository
}

// NewClaimQuestHandler creates a new ClaimQuestHandler.
func NewClaimQuestHandler(questRepo quest.Repository, statsRepo stats.Repository) *ClaimQuestHandler {
	return &ClaimQuestHandler{
		questRepo: questRepo,
		statsRepo: statsRepo,
	}
}

// Handle executes the claim quest command.
func (h *ClaimQuestHandler) Handle(ctx context.Context, cmd ClaimQuestCommand) (*ClaimQuestResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	q, err := h.questRepo.Get(ctx, cmd.QuestID)
	if err != nil {
		return nil, fmt.Errorf("claim_quest: failed to get quest: %w", err)
	}
	if q.UserID != shared.UserID(cmd.UserID) {
		return nil, shared.ErrQuestNotFound
	}

	if err := q.Claim(now); err != nil {
		return nil, err
	}
	if err := h.questRepo.Update(ctx, q); err != nil {
		return nil, fmt.Errorf("claim_quest: failed to update quest: %w", err)
	}

	ledger, err := h.statsRepo.GetOrCreate(ctx, shared.UserID(cmd.UserID))
	if err != nil {
		return nil, fmt.Errorf("claim_quest: failed to get ledger: %w", err)
	}
	ledger.Gems += q.Reward
	if _, err := h.statsRepo.AddXP(ctx, ledger.UserID, 0, q.Reward); err != nil {
		return nil, fmt.Errorf("claim_quest: failed to credit gems: %w", err)
	}
	return &ClaimQuestResult{GemsGained: q.Reward}, nil
}
