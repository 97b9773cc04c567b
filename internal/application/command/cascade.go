// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tilhub/tilhub-core/internal/domain/content"
	"github.com/tilhub/tilhub-core/internal/domain/notification"
	"github.com/tilhub/tilhub-core/internal/domain/progress"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK CASCADE ENGINE
// Shared by the content-progress commands: decides reachability and performs
// the cascade side effects (create-if-absent record, unlocked event,
// notification request) when a completion promotes the next node.
// ══════════════════════════════════════════════════════════════════════════════

// CascadeEngine orchestrates unlock decisions and cascade side effects.
type CascadeEngine struct {
	contentStore   content.Store
	progressRepo   progress.Repository
	rules          *progress.UnlockRules
	eventPublisher shared.EventPublisher
	notifier       notification.Sink
}

// NewCascadeEngine creates a new CascadeEngine.
func NewCascadeEngine(
	contentStore content.Store,
	progressRepo progress.Repository,
	eventPublisher shared.EventPublisher,
	notifier notification.Sink,
) *CascadeEngine {
	return &CascadeEngine{
		contentStore:   contentStore,
		progressRepo:   progressRepo,
		rules:          progress.NewUnlockRules(),
		eventPublisher: eventPublisher,
		notifier:       notifier,
	}
}

// recordLookup builds an in-memory lookup over the user's records for the
// given nodes, so the unlock rules never touch storage themselves.
func (e *CascadeEngine) recordLookup(ctx context.Context, userID shared.UserID, nodes []content.Node) (progress.RecordLookup, error) {
	ids := make([]shared.NodeID, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	records, err := e.progressRepo.GetByNodes(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("cascade: failed to load progress records: %w", err)
	}
	return func(id shared.NodeID) (*progress.Record, bool) {
		r, ok := records[id]
		return r, ok
	}, nil
}

// siblingsOf returns the node's ordered active sibling list.
func (e *CascadeEngine) siblingsOf(ctx context.Context, node content.Node) ([]content.Node, error) {
	if node.Kind == content.KindLevel {
		return e.contentStore.ListLevels(ctx)
	}
	return e.contentStore.ListChildren(ctx, node.ParentID)
}

// IsUnlocked decides reachability of a node for a user, walking up the tree:
// a node is reachable only within a reachable parent.
func (e *CascadeEngine) IsUnlocked(ctx context.Context, userID shared.UserID, node content.Node) (bool, error) {
	siblings, err := e.siblingsOf(ctx, node)
	if err != nil {
		return false, err
	}
	lookup, err := e.recordLookup(ctx, userID, siblings)
	if err != nil {
		return false, err
	}

	if node.Kind == content.KindLevel {
		return e.rules.IsLevelUnlocked(node, siblings, lookup), nil
	}

	parent, err := e.contentStore.Get(ctx, node.ParentID)
	if err != nil {
		return false, fmt.Errorf("cascade: failed to load parent node: %w", err)
	}
	parentUnlocked, err := e.IsUnlocked(ctx, userID, *parent)
	if err != nil {
		return false, err
	}
	return e.rules.IsUnlocked(node, siblings, parentUnlocked, lookup), nil
}

// Unlock creates the node's progress record if absent, with unlockedAt = now,
// and fires the unlocked event plus a notification request. Returns true when
// a record was actually created. Safe to call repeatedly.
func (e *CascadeEngine) Unlock(ctx context.Context, userID shared.UserID, node content.Node, now time.Time) (bool, error) {
	rec := progress.NewRecord(uuid.New().String(), userID, node, now)
	created, err := e.progressRepo.CreateIfAbsent(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("cascade: failed to create progress record: %w", err)
	}
	if !created {
		return false, nil
	}

	_ = e.eventPublisher.Publish(shared.NewContentUnlockedEvent(
		userID.String(), node.ID.String(), string(node.Kind),
	))
	e.notifyUnlocked(ctx, userID, node)
	return true, nil
}

// notifyUnlocked sends the unlocked notification request. One-way: failure is
// the sink's problem, not ours.
func (e *CascadeEngine) notifyUnlocked(ctx context.Context, userID shared.UserID, node content.Node) {
	_ = e.notifier.Create(ctx, notification.Request{
		UserID:            userID,
		Type:              notification.TypeContentUnlocked,
		Title:             "New content unlocked",
		Message:           fmt.Sprintf("%q is now available", node.Title),
		RelatedEntityKind: entityKindFor(node.Kind),
		RelatedEntityID:   node.ID.String(),
	})
}

func entityKindFor(kind content.NodeKind) notification.EntityKind {
	switch kind {
	case content.KindLevel:
		return notification.EntityLevel
	case content.KindCategory:
		return notification.EntityCategory
	default:
		return notification.EntityLesson
	}
}

// CascadeAfterLesson promotes the lesson's next sibling after a lesson
// completion. The last lesson of a category promotes nothing: the category
// completes through its final quiz, not through its lessons.
func (e *CascadeEngine) CascadeAfterLesson(ctx context.Context, userID shared.UserID, lesson content.Node, now time.Time) ([]content.Node, error) {
	siblings, err := e.siblingsOf(ctx, lesson)
	if err != nil {
		return nil, err
	}
	next := e.rules.NextToUnlock(siblings, lesson.ID)
	if next == nil {
		return nil, nil
	}
	created, err := e.Unlock(ctx, userID, *next, now)
	if err != nil || !created {
		return nil, err
	}
	return []content.Node{*next}, nil
}

// CascadeAfterCategory promotes reachability after a category completion:
// the next category in the level, or on the last category the level itself
// completes and the next level with its first category opens.
func (e *CascadeEngine) CascadeAfterCategory(ctx context.Context, userID shared.UserID, category content.Node, now time.Time) ([]content.Node, error) {
	siblings, err := e.siblingsOf(ctx, category)
	if err != nil {
		return nil, err
	}

	if next := e.rules.NextToUnlock(siblings, category.ID); next != nil {
		created, err := e.Unlock(ctx, userID, *next, now)
		if err != nil || !created {
			return nil, err
		}
		return []content.Node{*next}, nil
	}

	// Last category: derive level completion from the siblings and hop to
	// the next level.
	lookup, err := e.recordLookup(ctx, userID, siblings)
	if err != nil {
		return nil, err
	}
	if !e.rules.AllCompleted(siblings, lookup) {
		return nil, nil
	}
	return e.completeLevel(ctx, userID, category.ParentID, now)
}

// completeLevel marks the level's record complete and unlocks the next level
// together with its first category.
func (e *CascadeEngine) completeLevel(ctx context.Context, userID shared.UserID, levelID shared.NodeID, now time.Time) ([]content.Node, error) {
	level, err := e.contentStore.Get(ctx, levelID)
	if err != nil {
		return nil, fmt.Errorf("cascade: failed to load level: %w", err)
	}

	levelRec, err := e.progressRepo.Get(ctx, userID, levelID)
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, err
		}
		// Heal the missing level record before completing it.
		if _, err := e.Unlock(ctx, userID, *level, now); err != nil {
			return nil, err
		}
		levelRec, err = e.progressRepo.Get(ctx, userID, levelID)
		if err != nil {
			return nil, err
		}
	}
	if levelRec.MarkLevelComplete(now) {
		if err := e.progressRepo.Update(ctx, levelRec); err != nil {
			return nil, fmt.Errorf("cascade: failed to complete level: %w", err)
		}
	}

	levels, err := e.contentStore.ListLevels(ctx)
	if err != nil {
		return nil, err
	}
	nextLevel := e.rules.NextToUnlock(levels, levelID)
	if nextLevel == nil {
		return nil, nil
	}

	unlocked := make([]content.Node, 0, 2)
	created, err := e.Unlock(ctx, userID, *nextLevel, now)
	if err != nil {
		return nil, err
	}
	if created {
		unlocked = append(unlocked, *nextLevel)
	}

	// The next level's first category opens with it.
	categories, err := e.contentStore.ListChildren(ctx, nextLevel.ID)
	if err != nil {
		return nil, err
	}
	if first := e.rules.FirstActive(categories); first != nil {
		created, err := e.Unlock(ctx, userID, *first, now)
		if err != nil {
			return nil, err
		}
		if created {
			unlocked = append(unlocked, *first)
		}
	}
	return unlocked, nil
}
