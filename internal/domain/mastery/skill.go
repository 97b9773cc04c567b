// Package mastery contains domain entities and business logic for per-skill
// crown leveling: cumulative-XP thresholds, the legendary challenge gate,
// and the crown bonus pipeline.
// This is a pure domain layer with zero external dependencies.
package mastery

import (
	"context"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

// CrownThresholds holds the cumulative XP required for each crown level:
// level n requires totalXP >= CrownThresholds[n].
var CrownThresholds = [6]int{0, 60, 120, 180, 240, 300}

const (
	// MaxCrownLevel is the highest crown level.
	MaxCrownLevel = 5

	// CrownBonusPerLevel is the flat XP bonus awarded on level-up,
	// multiplied by the new crown level.
	CrownBonusPerLevel = 10

	// LegendaryMinTotalXP is the cumulative skill XP required for the
	// legendary challenge, on top of crown level 5.
	LegendaryMinTotalXP = 500
)

// ══════════════════════════════════════════════════════════════════════════════
// SKILL PROGRESS ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// SkillProgress is the per user × skill mastery record. Created lazily on
// the first XP contribution to that skill.
type SkillProgress struct {
	// ID is the record's unique identifier.
	ID string

	// UserID identifies the learner.
	UserID shared.UserID

	// SkillID identifies the skill (category).
	SkillID shared.SkillID

	// CrownLevel is the current crown level, 0..5.
	CrownLevel int

	// CurrentXP is XP accumulated within the current crown level.
	CurrentXP int

	// TotalXP is cumulative XP across all levels.
	TotalXP int

	// MistakeCount accumulates wrong answers attributed to the skill.
	MistakeCount int

	// PracticeCount accumulates practice sessions.
	PracticeCount int

	// IsLegendary marks a passed legendary challenge.
	IsLegendary bool

	// LegendaryAttempts counts legendary attempts, pass or fail.
	LegendaryAttempts int

	// FirstCrownAt / LastCrownAt record crown level-up timestamps.
	FirstCrownAt *time.Time
	LastCrownAt  *time.Time

	// CreatedAt is when the record was created.
	CreatedAt time.Time

	// UpdatedAt is when the record was last updated.
	UpdatedAt time.Time
}

// NewSkillProgress creates a fresh record for a skill's first XP.
func NewSkillProgress(id string, userID shared.UserID, skillID shared.SkillID, now time.Time) *SkillProgress {
	return &SkillProgress{
		ID:        id,
		UserID:    userID,
		SkillID:   skillID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddXPResult describes the outcome of one AddXP call.
type AddXPResult struct {
	// LeveledUp is true when the crown level incremented.
	LeveledUp bool

	// FromLevel / ToLevel bracket the level change.
	FromLevel int
	ToLevel   int

	// BonusXP is the flat crown bonus to feed back through the XP-gain
	// pipeline (ToLevel * CrownBonusPerLevel).
	BonusXP int

	// Mastered is true when this call reached crown level 5.
	Mastered bool
}

// AddXP accumulates skill XP and mistakes, then evaluates the crown
// threshold once. The level advances at most one step per call even when
// the XP overshoots several thresholds.
func (sp *SkillProgress) AddXP(xp, mistakes int, now time.Time) AddXPResult {
	res := AddXPResult{FromLevel: sp.CrownLevel, ToLevel: sp.CrownLevel}

	if xp > 0 {
		sp.TotalXP += xp
		sp.CurrentXP += xp
	}
	if mistakes > 0 {
		sp.MistakeCount += mistakes
	}
	sp.PracticeCount++
	sp.UpdatedAt = now

	if sp.CrownLevel >= MaxCrownLevel {
		return res
	}

	next := sp.CrownLevel + 1
	if sp.TotalXP < CrownThresholds[next] {
		return res
	}

	sp.CrownLevel = next
	sp.CurrentXP = sp.TotalXP - CrownThresholds[next]
	if sp.FirstCrownAt == nil {
		first := now
		sp.FirstCrownAt = &first
	}
	last := now
	sp.LastCrownAt = &last

	res.LeveledUp = true
	res.ToLevel = next
	res.BonusXP = next * CrownBonusPerLevel
	res.Mastered = next == MaxCrownLevel
	return res
}

// LegendaryEligible reports whether the legendary challenge is unlocked.
func (sp *SkillProgress) LegendaryEligible() bool {
	return sp.CrownLevel == MaxCrownLevel && sp.TotalXP >= LegendaryMinTotalXP && !sp.IsLegendary
}

// AttemptLegendary records a legendary attempt. The attempt counter always
// increments; IsLegendary is set only on a pass.
func (sp *SkillProgress) AttemptLegendary(passed bool, now time.Time) error {
	if sp.IsLegendary {
		return shared.ErrAlreadyLegendary
	}
	if !sp.LegendaryEligible() {
		return shared.ErrLegendaryNotEligible
	}

	sp.LegendaryAttempts++
	if passed {
		sp.IsLegendary = true
	}
	sp.UpdatedAt = now
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Repository persists skill progress. Implementations must enforce a
// compound unique index on (user, skill).
type Repository interface {
	// Get returns the record for a user and skill, or shared.ErrNotFound.
	Get(ctx context.Context, userID shared.UserID, skillID shared.SkillID) (*SkillProgress, error)

	// GetOrCreate returns the record, creating an empty one on first
	// contribution. Concurrent first-access must not produce duplicates.
	GetOrCreate(ctx context.Context, userID shared.UserID, skillID shared.SkillID, id string) (*SkillProgress, error)

	// Update persists the record's mutable fields.
	Update(ctx context.Context, sp *SkillProgress) error

	// ListByUser returns all of a user's skill records.
	ListByUser(ctx context.Context, userID shared.UserID) ([]*SkillProgress, error)
}
