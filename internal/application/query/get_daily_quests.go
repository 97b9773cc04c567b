package query

import (
	"context"
	"fmt"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/quest"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DAILY QUESTS QUERY
// Returns the user's active daily quests with progress.
// ══════════════════════════════════════════════════════════════════════════════

// GetDailyQuestsQuery contains the parameters for a quest list read.
type GetDailyQuestsQuery struct {
	// UserID is the learner's ID.
	UserID string
}

// Validate validates the query.
func (q GetDailyQuestsQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("quest", "GetDaily", shared.ErrInvalidInput, "user_id is required")
	}
	return nil
}

// QuestDTO is one quest's view.
type QuestDTO struct {
	QuestID     string    `json:"quest_id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Target      int       `json:"target"`
	Progress    int       `json:"progress"`
	Reward      int       `json:"reward"`
	Status      string    `json:"status"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// GetDailyQuestsResult is the quest list.
type GetDailyQuestsResult struct {
	Quests []QuestDTO `json:"quests"`
}

// GetDailyQuestsHandler handles the GetDailyQuestsQuery.
type GetDailyQuestsHandler struct {
	questRepo quest.Repository
}

// NewGetDailyQuestsHandler creates a new GetDailyQuestsHandler.
func NewGetDailyQuestsHandler(questRepo quest.Repository) *GetDailyQuestsHandler {
	return &GetDailyQuestsHandler{questRepo: questRepo}
}

// Handle executes the get daily quests query.
func (h *GetDailyQuestsHandler) Handle(ctx context.Context, q GetDailyQuestsQuery) (*GetDailyQuestsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	active, err := h.questRepo.ListActive(ctx, shared.UserID(q.UserID))
	if err != nil {
		return nil, fmt.Errorf("get_daily_quests: failed to list quests: %w", err)
	}

	result := &GetDailyQuestsResult{Quests: make([]QuestDTO, 0, len(active))}
	for _, dq := range active {
		result.Quests = append(result.Quests, QuestDTO{
			QuestID:     dq.ID,
			Type:        string(dq.Type),
			Description: dq.Description,
			Target:      dq.Target,
			Progress:    dq.Progress,
			Reward:      dq.Reward,
			Status:      string(dq.Status),
			ExpiresAt:   dq.ExpiresAt,
		})
	}
	return result, nil
}
