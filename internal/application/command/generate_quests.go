package command

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/tilhub/tilhub-core/internal/domain/quest"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GENERATE QUESTS COMMAND
// Issues today's daily quests for a user: expires stale ones, fills the
// remaining slots from the highest-priority templates not already active.
// ══════════════════════════════════════════════════════════════════════════════

// GenerateQuestsCommand contains the data to generate daily quests.
type GenerateQuestsCommand struct {
	// UserID is the learner's ID.
	UserID string

	// Timestamp defaults to now if zero.
	Timestamp time.Time
}

// Validate validates the command.
func (c GenerateQuestsCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("quest", "Generate", shared.ErrInvalidInput, "user_id is required")
	}
	return nil
}

// GenerateQuestsResult contains the generation outcome.
type GenerateQuestsResult struct {
	// Expired is how many stale quests were expired first.
	Expired int

	// Generated lists the newly issued quests.
	Generated []*quest.Quest

	// Active lists all active quests after generation.
	Active []*quest.Quest
}

// GenerateQuestsHandler handles the GenerateQuestsCommand.
type GenerateQuestsHandler struct {
	questRepo quest.Repository
	templates []quest.Template
	rng       *rand.Rand
}

// NewGenerateQuestsHandler creates a new GenerateQuestsHandler.
func NewGenerateQuestsHandler(questRepo quest.Repository, rng *rand.Rand) *GenerateQuestsHandler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &GenerateQuestsHandler{
		questRepo: questRepo,
		templates: quest.DefaultTemplates(),
		rng:       rng,
	}
}

// Handle executes the generate quests command.
func (h *GenerateQuestsHandler) Handle(ctx context.Context, cmd GenerateQuestsCommand) (*GenerateQuestsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}
	userID := shared.UserID(cmd.UserID)

	expired, err := h.questRepo.ExpireStale(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("generate_quests: failed to expire stale quests: %w", err)
	}

	active, err := h.questRepo.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("generate_quests: failed to list active quests: %w", err)
	}

	result := &GenerateQuestsResult{Expired: expired, Active: active}
	slots := quest.MaxActiveQuests - len(active)
	if slots <= 0 {
		return result, nil
	}

	activeTypes := make(map[quest.Type]bool, len(active))
	for _, q := range active {
		activeTypes[q.Type] = true
	}

	expiresAt := timeutil.StartOfNextDay(now)
	for _, tpl := range quest.SelectTemplates(h.templates, activeTypes, slots) {
		target := tpl.RollTarget(h.rng)
		q := quest.NewQuest(uuid.New().String(), userID, tpl, target, expiresAt, now)
		if err := h.questRepo.Create(ctx, q); err != nil {
			return nil, fmt.Errorf("generate_quests: failed to create quest: %w", err)
		}
		result.Generated = append(result.Generated, q)
		result.Active = append(result.Active, q)
	}
	return result, nil
}

