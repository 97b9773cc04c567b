package command

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/tilhub/tilhub-core/internal/domain/mastery"
	"github.com/tilhub/tilhub-core/internal/domain/notification"
	"github.com/tilhub/tilhub-core/internal/domain/quest"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLY SESSION COMMAND
// The single transactional entry point converting one finished learning
// session into mutations across the stats ledger, streak tracker, mastery,
// league, and quest engines. The core XP/energy/hearts mutation must land;
// side effects (achievements, notifications, rank recompute) are best-effort
// and never roll it back.
// ══════════════════════════════════════════════════════════════════════════════

// XP formula constants.
const (
	xpPerCorrect     = 10
	xpPassBonus      = 20
	xpPerStreakDay   = 5
	xpStreakBonusCap = 50
)

// ApplySessionCommand contains the outcome of one learning session.
type ApplySessionCommand struct {
	// UserID is the learner's ID.
	UserID string

	// Correct is the number of correct answers.
	Correct int

	// Total is the number of exercises in the session.
	Total int

	// Passed is whether the session met its pass criteria.
	Passed bool

	// SkillID optionally attributes the session to a skill for mastery.
	SkillID string

	// Timestamp is when the session finished (defaults to now if zero).
	Timestamp time.Time
}

// Validate validates the command.
func (c ApplySessionCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("stats", "ApplySession", shared.ErrInvalidInput, "user_id is required")
	}
	if c.Total <= 0 {
		return shared.NewDomainError("stats", "ApplySession", shared.ErrInvalidInput, "total must be positive")
	}
	if c.Correct < 0 || c.Correct > c.Total {
		return shared.NewDomainError("stats", "ApplySession", shared.ErrValueOutOfRange, "correct must be in [0, total]")
	}
	return nil
}

// Perfect reports whether the session had no mistakes.
func (c ApplySessionCommand) Perfect() bool {
	return c.Total > 0 && c.Correct == c.Total
}

// ApplySessionResult aggregates the deltas of one applied session.
type ApplySessionResult struct {
	// XPGained is the XP credited, boost included.
	XPGained int

	// EnergyDelta is the energy change (≤ 0).
	EnergyDelta int

	// HeartsLost is how many hearts were actually lost.
	HeartsLost int

	// GemsGained is the gems earned from threshold crossings.
	GemsGained int

	// Streak describes the streak transition.
	Streak stats.StreakChange

	// Achievements lists achievement codes unlocked by this session.
	Achievements []stats.AchievementCode

	// MasteryLeveledUp is true when the attributed skill gained a crown.
	MasteryLeveledUp bool

	// SkillMastered is true when the skill reached the top crown level.
	SkillMastered bool

	// DailyGoalReached is true when this session crossed the daily goal.
	DailyGoalReached bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ApplySessionHandler handles the ApplySessionCommand.
type ApplySessionHandler struct {
	statsRepo      stats.Repository
	regen          *RegenApplier
	leagueEngine   *LeagueEngine
	masteryRepo    mastery.Repository
	questProgress  *UpdateQuestProgressHandler
	eventPublisher shared.EventPublisher
	notifier       notification.Sink
}

// NewApplySessionHandler creates a new ApplySessionHandler.
func NewApplySessionHandler(
	statsRepo stats.Repository,
	regen *RegenApplier,
	leagueEngine *LeagueEngine,
	masteryRepo mastery.Repository,
	questProgress *UpdateQuestProgressHandler,
	eventPublisher shared.EventPublisher,
	notifier notification.Sink,
) *ApplySessionHandler {
	return &ApplySessionHandler{
		statsRepo:      statsRepo,
		regen:          regen,
		leagueEngine:   leagueEngine,
		masteryRepo:    masteryRepo,
		questProgress:  questProgress,
		eventPublisher: eventPublisher,
		notifier:       notifier,
	}
}

// Handle executes the apply session command.
func (h *ApplySessionHandler) Handle(ctx context.Context, cmd ApplySessionCommand) (*ApplySessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := cmd.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}
	userID := shared.UserID(cmd.UserID)

	ledger, err := h.statsRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("apply_session: failed to get ledger: %w", err)
	}

	// Bring lazily-regenerated resources up to date before the hearts gate.
	if err := h.regen.Apply(ctx, ledger, now); err != nil {
		return nil, err
	}
	if !ledger.HasHearts() {
		return nil, shared.ErrNoHearts
	}

	// XP is computed against the streak as it stood when the session ran.
	base := cmd.Correct*xpPerCorrect + streakBonus(ledger.StreakCount)
	if cmd.Passed {
		base += xpPassBonus
	}
	xp := int(math.Floor(float64(base) * ledger.EffectiveMultiplier(now)))

	result := &ApplySessionResult{XPGained: xp}
	wrong := cmd.Total - cmd.Correct

	// Resource deltas, floored at zero and persisted as capped increments.
	hadEnergyAnchor := ledger.EnergyAnchorAt != nil
	hadHeartAnchor := ledger.LastHeartLostAt != nil

	if spent := ledger.SpendEnergy(wrong, now); spent > 0 {
		result.EnergyDelta = -spent
		if _, err := h.statsRepo.AddEnergy(ctx, userID, -spent, stats.EnergyCap); err != nil {
			return nil, fmt.Errorf("apply_session: failed to spend energy: %w", err)
		}
	}
	if lost := ledger.LoseHearts(wrong, now); lost > 0 {
		result.HeartsLost = lost
		if _, err := h.statsRepo.AddHearts(ctx, userID, -lost, stats.HeartsCap); err != nil {
			return nil, fmt.Errorf("apply_session: failed to lose hearts: %w", err)
		}
		_ = h.eventPublisher.Publish(shared.NewHeartLostEvent(cmd.UserID, ledger.Hearts, "wrong_answer"))
	}
	if err := h.persistNewAnchors(ctx, ledger, hadEnergyAnchor, hadHeartAnchor); err != nil {
		return nil, err
	}

	// Streak transition.
	result.Streak = ledger.AdvanceStreak(now)
	h.publishStreakEvents(ctx, cmd.UserID, ledger, result.Streak)

	// XP, gems, daily goal.
	goalReachedBefore := ledger.DailyGoalReached()
	ledger.TotalCorrect += cmd.Correct
	result.GemsGained = ledger.ApplyXP(xp, now)
	if _, err := h.statsRepo.AddXP(ctx, userID, xp, result.GemsGained); err != nil {
		return nil, fmt.Errorf("apply_session: failed to add xp: %w", err)
	}
	_ = h.eventPublisher.Publish(shared.NewXPGainedEvent(cmd.UserID, xp, "session", map[string]interface{}{
		"correct": cmd.Correct,
		"total":   cmd.Total,
		"passed":  cmd.Passed,
	}))

	// Best-effort side pipelines. None of these roll back the mutation above.
	h.updateLeague(ctx, userID, ledger, xp, now)
	h.updateMastery(ctx, cmd, userID, ledger, xp, wrong, now, result)
	h.checkAchievements(ctx, cmd, ledger, now, result)
	h.forwardQuests(ctx, cmd, now)

	if !goalReachedBefore && ledger.DailyGoalReached() {
		result.DailyGoalReached = true
		_ = h.eventPublisher.Publish(shared.NewDailyGoalReachedEvent(cmd.UserID, ledger.DailyGoalXP))
		_ = h.notifier.Create(ctx, notification.Request{
			UserID:  userID,
			Type:    notification.TypeDailyGoalReached,
			Title:   "Daily goal reached",
			Message: fmt.Sprintf("You hit your %d XP goal for today", ledger.DailyGoalXP),
		})
	}

	if err := h.statsRepo.Update(ctx, ledger); err != nil {
		return nil, fmt.Errorf("apply_session: failed to update ledger: %w", err)
	}
	return result, nil
}

// streakBonus is the capped per-day streak bonus.
func streakBonus(streak int) int {
	bonus := streak * xpPerStreakDay
	if bonus > xpStreakBonusCap {
		return xpStreakBonusCap
	}
	return bonus
}

// persistNewAnchors writes regen anchors that this session established.
func (h *ApplySessionHandler) persistNewAnchors(ctx context.Context, l *stats.Ledger, hadEnergy, hadHeart bool) error {
	var energyAnchor, heartAnchor *time.Time
	if !hadEnergy && l.EnergyAnchorAt != nil {
		energyAnchor = l.EnergyAnchorAt
	}
	if !hadHeart && l.LastHeartLostAt != nil {
		heartAnchor = l.LastHeartLostAt
	}
	if energyAnchor == nil && heartAnchor == nil {
		return nil
	}
	if err := h.statsRepo.SetRegenAnchors(ctx, l.UserID, energyAnchor, heartAnchor, false, false); err != nil {
		return fmt.Errorf("apply_session: failed to set regen anchors: %w", err)
	}
	return nil
}

func (h *ApplySessionHandler) publishStreakEvents(ctx context.Context, userID string, l *stats.Ledger, change stats.StreakChange) {
	switch {
	case change.Grew():
		_ = h.eventPublisher.Publish(shared.NewStreakMaintainedEvent(userID, change.Current, l.BestStreak))
	case change.Outcome == stats.StreakBroken:
		_ = h.eventPublisher.Publish(shared.NewStreakBrokenEvent(userID, change.Previous))
		_ = h.notifier.Create(ctx, notification.Request{
			UserID:  shared.UserID(userID),
			Type:    notification.TypeStreakBroken,
			Title:   "Streak lost",
			Message: fmt.Sprintf("Your %d-day streak has ended", change.Previous),
		})
	}
}

// updateLeague assigns the user to this week's session for their tier and
// credits session XP. Best-effort.
func (h *ApplySessionHandler) updateLeague(ctx context.Context, userID shared.UserID, l *stats.Ledger, xp int, now time.Time) {
	if xp <= 0 {
		return
	}
	session, _, err := h.leagueEngine.GetOrAssign(ctx, userID, l.CurrentLeagueTier, now)
	if err != nil {
		return
	}
	_ = h.leagueEngine.AddWeeklyXP(ctx, session, userID, xp)
	l.WeeklyXP += xp
}

// updateMastery feeds the session into the attributed skill's crown progress
// and re-enters any crown bonus through the XP pipeline.
func (h *ApplySessionHandler) updateMastery(ctx context.Context, cmd ApplySessionCommand, userID shared.UserID, l *stats.Ledger, xp, wrong int, now time.Time, result *ApplySessionResult) {
	if cmd.SkillID == "" {
		return
	}

	sp, err := h.masteryRepo.GetOrCreate(ctx, userID, shared.SkillID(cmd.SkillID), uuid.New().String())
	if err != nil {
		return
	}
	res := sp.AddXP(xp, wrong, now)
	if err := h.masteryRepo.Update(ctx, sp); err != nil {
		return
	}
	if !res.LeveledUp {
		return
	}

	result.MasteryLeveledUp = true
	result.SkillMastered = res.Mastered
	l.TotalCrowns++
	if res.Mastered {
		l.SkillsMastered++
	}
	_ = h.eventPublisher.Publish(shared.NewCrownLeveledUpEvent(
		userID.String(), cmd.SkillID, res.FromLevel, res.ToLevel, res.BonusXP,
	))

	// The flat crown bonus re-enters the XP pipeline.
	if res.BonusXP > 0 {
		gems := l.ApplyXP(res.BonusXP, now)
		result.XPGained += res.BonusXP
		result.GemsGained += gems
		if _, err := h.statsRepo.AddXP(ctx, userID, res.BonusXP, gems); err == nil {
			_ = h.eventPublisher.Publish(shared.NewXPGainedEvent(userID.String(), res.BonusXP, "crown_bonus", nil))
		}
	}
}

// checkAchievements runs the independent idempotent threshold checks and
// applies each unlocked achievement's reward.
func (h *ApplySessionHandler) checkAchievements(ctx context.Context, cmd ApplySessionCommand, l *stats.Ledger, now time.Time, result *ApplySessionResult) {
	unlocked := l.CheckAchievements(stats.SessionFacts{
		Passed:  cmd.Passed,
		Perfect: cmd.Perfect(),
	}, now)
	if len(unlocked) == 0 {
		return
	}
	result.Achievements = unlocked

	for _, code := range unlocked {
		def, ok := stats.GetAchievementDefinition(code)
		if !ok {
			continue
		}
		_ = h.eventPublisher.Publish(shared.NewAchievementUnlockedEvent(cmd.UserID, uuid.New().String(), string(code)))
		_ = h.notifier.Create(ctx, notification.Request{
			UserID:  shared.UserID(cmd.UserID),
			Type:    notification.TypeAchievementUnlocked,
			Title:   "Achievement unlocked",
			Message: def.Name,
		})

		if def.XPReward > 0 || def.GemReward > 0 {
			gems := l.ApplyXP(def.XPReward, now)
			l.Gems += def.GemReward
			result.XPGained += def.XPReward
			result.GemsGained += gems + def.GemReward
			if _, err := h.statsRepo.AddXP(ctx, l.UserID, def.XPReward, gems+def.GemReward); err == nil {
				_ = h.eventPublisher.Publish(shared.NewXPGainedEvent(cmd.UserID, def.XPReward, "achievement", nil))
			}
		}
	}
}

// forwardQuests forwards the session's pass/perfect deltas to the quest
// engine. EARN_XP progress rides the xp.gained event instead, so XP from any
// source reaches quests through one pipeline.
func (h *ApplySessionHandler) forwardQuests(ctx context.Context, cmd ApplySessionCommand, now time.Time) {
	if cmd.Passed {
		_, _ = h.questProgress.Handle(ctx, UpdateQuestProgressCommand{
			UserID: cmd.UserID, Type: quest.TypeCompleteQuiz, Delta: 1, Timestamp: now,
		})
	}
	if cmd.Perfect() {
		_, _ = h.questProgress.Handle(ctx, UpdateQuestProgressCommand{
			UserID: cmd.UserID, Type: quest.TypePerfectScore, Delta: 1, Timestamp: now,
		})
	}
}
