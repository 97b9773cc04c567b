package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tilhub/tilhub-core/internal/domain/content"
	"github.com/tilhub/tilhub-core/internal/domain/progress"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT FINAL QUIZ COMMAND
// Records a category's final-quiz attempt. A first pass completes the
// category and runs the unlock cascade: next category, or next level with
// its first category when this was the last one.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitFinalQuizCommand contains the data of one final-quiz attempt.
type SubmitFinalQuizCommand struct {
	// UserID is the learner's ID.
	UserID string

	// CategoryID is the category whose final quiz was taken.
	CategoryID string

	// Score is the attempt's score in [0, 1].
	Score float64

	// Passed is the grader's verdict for this attempt.
	Passed bool

	// Timestamp is when the attempt finished (defaults to now if zero).
	Timestamp time.Time
}

// Validate validates the command.
func (c SubmitFinalQuizCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("progress", "SubmitQuiz", shared.ErrInvalidInput, "user_id is required")
	}
	if c.CategoryID == "" {
		return shared.NewDomainError("progress", "SubmitQuiz", shared.ErrInvalidInput, "category_id is required")
	}
	if c.Score < 0 || c.Score > 1 {
		return shared.NewDomainError("progress", "SubmitQuiz", shared.ErrValueOutOfRange, "score must be in [0, 1]")
	}
	return nil
}

// SubmitFinalQuizResult contains the result of a final-quiz attempt.
type SubmitFinalQuizResult struct {
	// CategoryCompleted is true on the first pass (false→true transition).
	CategoryCompleted bool

	// BestScore is the best score after this attempt.
	BestScore float64

	// Unlocked lists nodes the cascade made reachable.
	Unlocked []content.Node
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SubmitFinalQuizHandler handles the SubmitFinalQuizCommand.
type SubmitFinalQuizHandler struct {
	contentStore content.Store
	progressRepo progress.Repository
	cascade      *CascadeEngine
}

// NewSubmitFinalQuizHandler creates a new SubmitFinalQuizHandler.
func NewSubmitFinalQuizHandler(
	contentStore content.Store,
	progressRepo progress.Repository,
	cascade *CascadeEngine,
) *SubmitFinalQuizHandler {
	return &SubmitFinalQuizHandler{
		contentStore: contentStore,
		progressRepo: progressRepo,
		cascade:      cascade,
	}
}

// Handle executes the submit final quiz command.
func (h *SubmitFinalQuizHandler) Handle(ctx context.Context, cmd SubmitFinalQuizCommand) (*SubmitFinalQuizResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	category, err := h.contentStore.Get(ctx, shared.NodeID(cmd.CategoryID))
	if err != nil {
		return nil, fmt.Errorf("submit_final_quiz: failed to get category: %w", err)
	}
	if category.Kind != content.KindCategory {
		return nil, shared.ErrWrongNodeKind
	}

	unlocked, err := h.cascade.IsUnlocked(ctx, shared.UserID(cmd.UserID), *category)
	if err != nil {
		return nil, err
	}
	if !unlocked {
		return nil, shared.ErrContentLocked
	}

	rec, err := h.getOrCreateRecord(ctx, shared.UserID(cmd.UserID), *category, now)
	if err != nil {
		return nil, err
	}

	firstPass := rec.RecordQuizResult(cmd.Score, cmd.Passed, now)
	if err := h.progressRepo.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("submit_final_quiz: failed to update record: %w", err)
	}

	result := &SubmitFinalQuizResult{
		CategoryCompleted: firstPass,
		BestScore:         rec.FinalQuizBestScore,
	}

	if firstPass {
		nodes, err := h.cascade.CascadeAfterCategory(ctx, shared.UserID(cmd.UserID), *category, now)
		if err != nil {
			return nil, err
		}
		result.Unlocked = nodes
	} else if cmd.Passed && rec.FinalQuizPassed {
		// Self-healing on a repeat pass: re-run the cascade in case an
		// earlier run failed between completion and the next record.
		nodes, err := h.cascade.CascadeAfterCategory(ctx, shared.UserID(cmd.UserID), *category, now)
		if err != nil {
			return nil, err
		}
		result.Unlocked = nodes
	}
	return result, nil
}

func (h *SubmitFinalQuizHandler) getOrCreateRecord(ctx context.Context, userID shared.UserID, category content.Node, now time.Time) (*progress.Record, error) {
	rec, err := h.progressRepo.Get(ctx, userID, category.ID)
	if err == nil {
		return rec, nil
	}
	if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("submit_final_quiz: failed to get record: %w", err)
	}

	fresh := progress.NewRecord(uuid.New().String(), userID, category, now)
	if _, err := h.progressRepo.CreateIfAbsent(ctx, fresh); err != nil {
		return nil, fmt.Errorf("submit_final_quiz: failed to create record: %w", err)
	}
	return h.progressRepo.Get(ctx, userID, category.ID)
}
