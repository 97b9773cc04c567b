package command

import (
	"context"
	"fmt"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/mastery"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTEMPT LEGENDARY COMMAND
// Records a legendary challenge attempt for a mastered skill.
// ══════════════════════════════════════════════════════════════════════════════

// Legendary challenge rewards.
const (
	legendaryXPReward  = 40
	legendaryGemReward = 20
)

// AttemptLegendaryCommand contains the data of one legendary attempt.
type AttemptLegendaryCommand struct {
	// UserID is the learner's ID.
	UserID string

	// SkillID is the skill being challenged.
	SkillID string

	// Passed is the grader's verdict.
	Passed bool

	// Timestamp defaults to now if zero.
	Timestamp time.Time
}

// Validate validates the command.
func (c AttemptLegendaryCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("mastery", "AttemptLegendary", shared.ErrInvalidInput, "user_id is required")
	}
	if c.SkillID == "" {
		return shared.NewDomainError("mastery", "AttemptLegendary", shared.ErrInvalidInput, "skill_id is required")
	}
	return nil
}

// AttemptLegendaryResult contains the attempt outcome.
type AttemptLegendaryResult struct {
	// IsLegendary is true after a pass.
	IsLegendary bool

	// Attempts is the total attempt count after this one.
	Attempts int

	// XPGained / GemsGained are the pass rewards (zero on a fail).
	XPGained   int
	GemsGained int
}

// AttemptLegendaryHandler handles the AttemptLegendaryCommand.
type AttemptLegendaryHandler struct {
	masteryRepo    mastery.Repository
	statsRepo      stats.Repository
	eventPublisher shared.EventPublisher
}

// NewAttemptLegendaryHandler creates a new AttemptLegendaryHandler.
func NewAttemptLegendaryHandler(
	masteryRepo mastery.Repository,
	statsRepo stats.Repository,
	eventPublisher shared.EventPublisher,
) *AttemptLegendaryHandler {
	return &AttemptLegendaryHandler{
		masteryRepo:    masteryRepo,
		statsRepo:      statsRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the attempt legendary command.
func (h *AttemptLegendaryHandler) Handle(ctx context.Context, cmd AttemptLegendaryCommand) (*AttemptLegendaryResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	sp, err := h.masteryRepo.Get(ctx, shared.UserID(cmd.UserID), shared.SkillID(cmd.SkillID))
	if err != nil {
		return nil, fmt.Errorf("attempt_legendary: failed to get skill: %w", err)
	}

	if err := sp.AttemptLegendary(cmd.Passed, now); err != nil {
		return nil, err
	}
	if err := h.masteryRepo.Update(ctx, sp); err != nil {
		return nil, fmt.Errorf("attempt_legendary: failed to update skill: %w", err)
	}

	result := &AttemptLegendaryResult{
		IsLegendary: sp.IsLegendary,
		Attempts:    sp.LegendaryAttempts,
	}
	if !cmd.Passed {
		return result, nil
	}

	// Pass reward flows through the XP pipeline like everything else.
	ledger, err := h.statsRepo.GetOrCreate(ctx, shared.UserID(cmd.UserID))
	if err != nil {
		return result, nil
	}
	gems := ledger.ApplyXP(legendaryXPReward, now)
	ledger.Gems += legendaryGemReward
	result.XPGained = legendaryXPReward
	result.GemsGained = gems + legendaryGemReward
	if _, err := h.statsRepo.AddXP(ctx, ledger.UserID, legendaryXPReward, gems+legendaryGemReward); err == nil {
		_ = h.eventPublisher.Publish(shared.NewXPGainedEvent(cmd.UserID, legendaryXPReward, "legendary", map[string]interface{}{
			"skill_id": cmd.SkillID,
		}))
	}
	return result, nil
}
