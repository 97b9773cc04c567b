// Package quest contains domain entities and business logic for daily quests:
// template-driven issuance, forward-only status transitions, progress
// accumulation from domain events, and one-time reward claiming.
// This is a pure domain layer with zero external dependencies.
package quest

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// MaxActiveQuests caps the number of simultaneously active quests per user.
const MaxActiveQuests = 3

// ══════════════════════════════════════════════════════════════════════════════
// QUEST TYPES & STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Type identifies what kind of activity a quest tracks.
type Type string

const (
	// TypeEarnXP tracks XP earned from any source.
	TypeEarnXP Type = "EARN_XP"
	// TypeCompleteLessons tracks completed lessons.
	TypeCompleteLessons Type = "COMPLETE_LESSONS"
	// TypeCompleteQuiz tracks passed quizzes.
	TypeCompleteQuiz Type = "COMPLETE_QUIZ"
	// TypeWatchVideos tracks watched videos.
	TypeWatchVideos Type = "WATCH_VIDEOS"
	// TypePerfectScore tracks sessions answered without mistakes.
	TypePerfectScore Type = "PERFECT_SCORE"
)

// Status is the lifecycle state of a quest. Transitions are forward-only:
// pending → in_progress → completed → claimed, with expired terminal from
// any unclaimed state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusClaimed    Status = "claimed"
	StatusExpired    Status = "expired"
)

// IsActive reports whether the quest still accepts progress.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusInProgress
}

// ══════════════════════════════════════════════════════════════════════════════
// TEMPLATES
// ══════════════════════════════════════════════════════════════════════════════

// Template describes a quest kind that generation can issue.
type Template struct {
	// Type of activity tracked.
	Type Type

	// Priority orders template selection (higher first).
	Priority int

	// MinTarget/MaxTarget bound the randomized target. When the range is
	// empty the DefaultTarget is used.
	MinTarget int
	MaxTarget int

	// DefaultTarget is the fallback target.
	DefaultTarget int

	// Reward is the gem reward for claiming.
	Reward int

	// DescriptionFormat is a fmt string taking the target.
	DescriptionFormat string
}

// DefaultTemplates returns the built-in daily quest templates, highest
// priority first.
func DefaultTemplates() []Template {
	return []Template{
		{Type: TypeEarnXP, Priority: 100, MinTarget: 30, MaxTarget: 100, DefaultTarget: 50, Reward: 10, DescriptionFormat: "Earn %d XP today"},
		{Type: TypeCompleteLessons, Priority: 90, MinTarget: 1, MaxTarget: 3, DefaultTarget: 2, Reward: 15, DescriptionFormat: "Complete %d lessons"},
		{Type: TypeCompleteQuiz, Priority: 80, MinTarget: 1, MaxTarget: 2, DefaultTarget: 1, Reward: 15, DescriptionFormat: "Pass %d quizzes"},
		{Type: TypeWatchVideos, Priority: 70, MinTarget: 2, MaxTarget: 5, DefaultTarget: 3, Reward: 10, DescriptionFormat: "Watch %d videos"},
		{Type: TypePerfectScore, Priority: 60, MinTarget: 1, MaxTarget: 1, DefaultTarget: 1, Reward: 20, DescriptionFormat: "Finish %d session with no mistakes"},
	}
}

// RollTarget picks a target within the template's range, or the default
// when the range is not usable.
func (t Template) RollTarget(rng *rand.Rand) int {
	if t.MinTarget <= 0 || t.MaxTarget < t.MinTarget {
		return t.DefaultTarget
	}
	if t.MinTarget == t.MaxTarget {
		return t.MinTarget
	}
	return t.MinTarget + rng.Intn(t.MaxTarget-t.MinTarget+1)
}

// Describe formats the template description for a target.
func (t Template) Describe(target int) string {
	return fmt.Sprintf(t.DescriptionFormat, target)
}

// ══════════════════════════════════════════════════════════════════════════════
// QUEST ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Quest is one issued daily quest. Per-user and time-boxed; once expired it
// can never be progressed or claimed again.
type Quest struct {
	// ID is the quest's unique identifier.
	ID string

	// UserID identifies the learner.
	UserID shared.UserID

	// Type of activity tracked.
	Type Type

	// Target is the amount of progress needed.
	Target int

	// Progress is the accumulated amount, capped at Target.
	Progress int

	// Reward is the gem reward for claiming.
	Reward int

	// Status is the lifecycle state.
	Status Status

	// Description is the formatted display text.
	Description string

	// ExpiresAt is the end of the quest's validity window.
	ExpiresAt time.Time

	// CreatedAt is when the quest was issued.
	CreatedAt time.Time

	// UpdatedAt is when the quest was last updated.
	UpdatedAt time.Time
}

// NewQuest issues a quest from a template, expiring at expiresAt.
func NewQuest(id string, userID shared.UserID, tpl Template, target int, expiresAt, now time.Time) *Quest {
	return &Quest{
		ID:          id,
		UserID:      userID,
		Type:        tpl.Type,
		Target:      target,
		Reward:      tpl.Reward,
		Status:      StatusPending,
		Description: tpl.Describe(target),
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsExpired reports whether the quest's window has passed.
func (q *Quest) IsExpired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}

// AddProgress accumulates progress. Progress is capped at the target, never
// overshot. Returns true when the quest crosses into completed.
func (q *Quest) AddProgress(delta int, now time.Time) (completed bool) {
	if delta <= 0 || !q.Status.IsActive() || q.IsExpired(now) {
		return false
	}

	q.Progress += delta
	if q.Progress >= q.Target {
		q.Progress = q.Target
		q.Status = StatusCompleted
		completed = true
	} else {
		q.Status = StatusInProgress
	}
	q.UpdatedAt = now
	return completed
}

// Claim transitions a completed quest to claimed.
func (q *Quest) Claim(now time.Time) error {
	switch q.Status {
	case StatusClaimed:
		return shared.ErrQuestClaimed
	case StatusExpired:
		return shared.ErrQuestExpired
	case StatusCompleted:
		q.Status = StatusClaimed
		q.UpdatedAt = now
		return nil
	default:
		return shared.ErrQuestNotCompleted
	}
}

// Expire transitions an unclaimed quest to expired.
// Claimed quests stay claimed.
func (q *Quest) Expire(now time.Time) bool {
	if q.Status == StatusClaimed || q.Status == StatusExpired {
		return false
	}
	q.Status = StatusExpired
	q.UpdatedAt = now
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// GENERATION
// ══════════════════════════════════════════════════════════════════════════════

// SelectTemplates picks templates for generation: by descending priority,
// excluding types already active, at most `slots` of them.
func SelectTemplates(templates []Template, activeTypes map[Type]bool, slots int) []Template {
	if slots <= 0 {
		return nil
	}
	ordered := append([]Template(nil), templates...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})
	picked := make([]Template, 0, slots)
	for _, tpl := range ordered {
		if activeTypes[tpl.Type] {
			continue
		}
		picked = append(picked, tpl)
		if len(picked) == slots {
			break
		}
	}
	return picked
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Repository persists quests.
type Repository interface {
	// Get returns a quest by ID, or shared.ErrNotFound.
	Get(ctx context.Context, questID string) (*Quest, error)

	// ListActive returns the user's pending/in-progress quests.
	ListActive(ctx context.Context, userID shared.UserID) ([]*Quest, error)

	// Create inserts a quest.
	Create(ctx context.Context, q *Quest) error

	// Update persists a quest's mutable fields.
	Update(ctx context.Context, q *Quest) error

	// ExpireStale marks unclaimed quests past their window as expired.
	// Returns the number of quests expired.
	ExpireStale(ctx context.Context, userID shared.UserID, now time.Time) (int, error)

	// ExpireAllStale is the job-facing variant across all users.
	ExpireAllStale(ctx context.Context, now time.Time) (int, error)
}
