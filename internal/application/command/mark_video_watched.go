package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tilhub/tilhub-core/internal/domain/content"
	"github.com/tilhub/tilhub-core/internal/domain/progress"
	"github.com/tilhub/tilhub-core/internal/domain/quest"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MARK VIDEO WATCHED COMMAND
// Records a watched video inside a lesson and, on the lesson's first
// completion, runs the unlock cascade for the next lesson.
// ══════════════════════════════════════════════════════════════════════════════

// MarkVideoWatchedCommand contains the data to record a watched video.
type MarkVideoWatchedCommand struct {
	// UserID is the learner's ID.
	UserID string

	// LessonID is the lesson the video belongs to.
	LessonID string

	// VideoID is the watched video.
	VideoID string

	// Timestamp is when the video was watched (defaults to now if zero).
	Timestamp time.Time
}

// Validate validates the command.
func (c MarkVideoWatchedCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("progress", "MarkWatched", shared.ErrInvalidInput, "user_id is required")
	}
	if c.LessonID == "" {
		return shared.NewDomainError("progress", "MarkWatched", shared.ErrInvalidInput, "lesson_id is required")
	}
	if c.VideoID == "" {
		return shared.NewDomainError("progress", "MarkWatched", shared.ErrInvalidInput, "video_id is required")
	}
	return nil
}

// MarkVideoWatchedResult contains the result of recording a watched video.
type MarkVideoWatchedResult struct {
	// AlreadyWatched is true when the video was already in the watched set.
	AlreadyWatched bool

	// LessonCompleted is true when this call completed the lesson
	// (first false→true transition only).
	LessonCompleted bool

	// WatchedCount / RequiredCount describe completion progress.
	WatchedCount  int
	RequiredCount int

	// Unlocked lists nodes the cascade made reachable.
	Unlocked []content.Node
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// MarkVideoWatchedHandler handles the MarkVideoWatchedCommand.
type MarkVideoWatchedHandler struct {
	contentStore   content.Store
	progressRepo   progress.Repository
	cascade        *CascadeEngine
	eventPublisher shared.EventPublisher
	questProgress  *UpdateQuestProgressHandler
}

// NewMarkVideoWatchedHandler creates a new MarkVideoWatchedHandler.
func NewMarkVideoWatchedHandler(
	contentStore content.Store,
	progressRepo progress.Repository,
	cascade *CascadeEngine,
	eventPublisher shared.EventPublisher,
	questProgress *UpdateQuestProgressHandler,
) *MarkVideoWatchedHandler {
	return &MarkVideoWatchedHandler{
		contentStore:   contentStore,
		progressRepo:   progressRepo,
		cascade:        cascade,
		eventPublisher: eventPublisher,
		questProgress:  questProgress,
	}
}

// Handle executes the mark video watched command.
func (h *MarkVideoWatchedHandler) Handle(ctx context.Context, cmd MarkVideoWatchedCommand) (*MarkVideoWatchedResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	lesson, err := h.contentStore.Get(ctx, shared.NodeID(cmd.LessonID))
	if err != nil {
		return nil, fmt.Errorf("mark_video_watched: failed to get lesson: %w", err)
	}
	if lesson.Kind != content.KindLesson {
		return nil, shared.ErrWrongNodeKind
	}

	unlocked, err := h.cascade.IsUnlocked(ctx, shared.UserID(cmd.UserID), *lesson)
	if err != nil {
		return nil, err
	}
	if !unlocked {
		return nil, shared.ErrContentLocked
	}

	videos, err := h.contentStore.ListChildren(ctx, lesson.ID)
	if err != nil {
		return nil, fmt.Errorf("mark_video_watched: failed to list videos: %w", err)
	}
	forLesson := content.ForLessonVideos(videos)
	if !containsNode(forLesson, shared.NodeID(cmd.VideoID)) {
		return nil, shared.ErrVideoNotInLesson
	}

	rec, err := h.getOrCreateRecord(ctx, shared.UserID(cmd.UserID), *lesson, now)
	if err != nil {
		return nil, err
	}

	changed := rec.AddWatchedVideo(shared.NodeID(cmd.VideoID), now)
	if changed && h.questProgress != nil {
		// Every newly watched video feeds WATCH_VIDEOS quests. Log-free
		// best effort: quest failures must not block progress writes.
		_, _ = h.questProgress.Handle(ctx, UpdateQuestProgressCommand{
			UserID:    cmd.UserID,
			Type:      quest.TypeWatchVideos,
			Delta:     1,
			Timestamp: now,
		})
	}

	result := &MarkVideoWatchedResult{
		AlreadyWatched: !changed,
		WatchedCount:   len(rec.WatchedVideos),
		RequiredCount:  len(forLesson),
	}

	// Completion re-check always runs, even on a re-mark.
	if rec.CoversAll(forLesson) {
		if rec.MarkLessonComplete(now) {
			result.LessonCompleted = true
			_ = h.eventPublisher.Publish(shared.NewLessonCompletedEvent(
				cmd.UserID, cmd.LessonID, lesson.ParentID.String(), 0, true,
			))
		} else if changed {
			// Already complete but the set still changed: persist below.
		} else {
			// Self-healing: completion was already recorded. Re-run the
			// cascade in case an earlier run failed after the completion
			// write but before the next record was created.
			nodes, err := h.cascade.CascadeAfterLesson(ctx, shared.UserID(cmd.UserID), *lesson, now)
			if err != nil {
				return nil, err
			}
			result.Unlocked = nodes
			return result, nil
		}
	}

	if changed || result.LessonCompleted {
		if err := h.progressRepo.Update(ctx, rec); err != nil {
			return nil, fmt.Errorf("mark_video_watched: failed to update record: %w", err)
		}
	}

	if result.LessonCompleted {
		nodes, err := h.cascade.CascadeAfterLesson(ctx, shared.UserID(cmd.UserID), *lesson, now)
		if err != nil {
			return nil, err
		}
		result.Unlocked = nodes
	}
	return result, nil
}

// getOrCreateRecord loads the lesson record, creating it on the lesson's
// first interaction (the node is already known to be reachable here).
func (h *MarkVideoWatchedHandler) getOrCreateRecord(ctx context.Context, userID shared.UserID, lesson content.Node, now time.Time) (*progress.Record, error) {
	rec, err := h.progressRepo.Get(ctx, userID, lesson.ID)
	if err == nil {
		return rec, nil
	}
	if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("mark_video_watched: failed to get record: %w", err)
	}

	fresh := progress.NewRecord(uuid.New().String(), userID, lesson, now)
	if _, err := h.progressRepo.CreateIfAbsent(ctx, fresh); err != nil {
		return nil, fmt.Errorf("mark_video_watched: failed to create record: %w", err)
	}
	// Re-read: a concurrent first interaction may have won the insert.
	return h.progressRepo.Get(ctx, userID, lesson.ID)
}

func containsNode(nodes []content.Node, id shared.NodeID) bool {
	for _, n := range nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}
