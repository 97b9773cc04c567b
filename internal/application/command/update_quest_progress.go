package command

import (
	"context"
	"fmt"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/notification"
	"github.com/tilhub/tilhub-core/internal/domain/quest"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE QUEST PROGRESS COMMAND
// Forwards activity deltas into the user's matching active quests. Invoked
// from the session applicator and from event handlers; always best-effort
// from the caller's perspective.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateQuestProgressCommand contains one activity delta.
type UpdateQuestProgressCommand struct {
	// UserID is the learner's ID.
	UserID string

	// Type is the quest type the delta applies to.
	Type quest.Type

	// Delta is the progress amount.
	Delta int

	// Timestamp defaults to now if zero.
	Timestamp time.Time
}

// Validate validates the command.
func (c UpdateQuestProgressCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("quest", "UpdateProgress", shared.ErrInvalidInput, "user_id is required")
	}
	if c.Type == "" {
		return shared.NewDomainError("quest", "UpdateProgress", shared.ErrInvalidInput, "quest type is required")
	}
	if c.Delta <= 0 {
		return shared.NewDomainError("quest", "UpdateProgress", shared.ErrInvalidInput, "delta must be positive")
	}
	return nil
}

// UpdateQuestProgressResult contains the quests touched by a delta.
type UpdateQuestProgressResult struct {
	// Updated is the number of quests that accepted progress.
	Updated int

	// Completed lists quests that crossed into completed on this delta.
	Completed []*quest.Quest
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// UpdateQuestProgressHandler handles the UpdateQuestProgressCommand.
type UpdateQuestProgressHandler struct {
	questRepo      quest.Repository
	eventPublisher shared.EventPublisher
	notifier       notification.Sink
}

// NewUpdateQuestProgressHandler creates a new UpdateQuestProgressHandler.
func NewUpdateQuestProgressHandler(
	questRepo quest.Repository,
	eventPublisher shared.EventPublisher,
	notifier notification.Sink,
) *UpdateQuestProgressHandler {
	return &UpdateQuestProgressHandler{
		questRepo:      questRepo,
		eventPublisher: eventPublisher,
		notifier:       notifier,
	}
}

// Handle executes the update quest progress command.
func (h *UpdateQuestProgressHandler) Handle(ctx context.Context, cmd UpdateQuestProgressCommand) (*UpdateQuestProgressResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	active, err := h.questRepo.ListActive(ctx, shared.UserID(cmd.UserID))
	if err != nil {
		return nil, fmt.Errorf("update_quest_progress: failed to list active quests: %w", err)
	}

	result := &UpdateQuestProgressResult{}
	for _, q := range active {
		if q.Type != cmd.Type {
			continue
		}

		completed := q.AddProgress(cmd.Delta, now)
		if err := h.questRepo.Update(ctx, q); err != nil {
			return nil, fmt.Errorf("update_quest_progress: failed to update quest: %w", err)
		}
		result.Updated++

		if completed {
			result.Completed = append(result.Completed, q)
			_ = h.eventPublisher.Publish(shared.NewQuestCompletedEvent(
				cmd.UserID, q.ID, string(q.Type), q.Reward,
			))
			_ = h.notifier.Create(ctx, notification.Request{
				UserID:            shared.UserID(cmd.UserID),
				Type:              notification.TypeQuestCompleted,
				Title:             "Quest completed",
				Message:           q.Description,
				RelatedEntityKind: notification.EntityQuest,
				RelatedEntityID:   q.ID,
			})
		}
	}
	return result, nil
}
