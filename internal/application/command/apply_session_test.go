package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilhub/tilhub-core/internal/domain/notification"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

type applySessionFixture struct {
	statsRepo   *fakeStatsRepo
	leagueRepo  *fakeLeagueRepo
	masteryRepo *fakeMasteryRepo
	questRepo   *fakeQuestRepo
	standings   *fakeStandings
	events      *eventRecorder
	sink        *sinkRecorder
	handler     *ApplySessionHandler
}

func newApplySessionFixture() *applySessionFixture {
	f := &applySessionFixture{
		statsRepo:   newFakeStatsRepo(),
		leagueRepo:  newFakeLeagueRepo(),
		masteryRepo: newFakeMasteryRepo(),
		questRepo:   newFakeQuestRepo(),
		standings:   &fakeStandings{},
		events:      &eventRecorder{},
		sink:        &sinkRecorder{},
	}
	f.handler = NewApplySessionHandler(
		f.statsRepo,
		NewRegenApplier(f.statsRepo, f.events),
		NewLeagueEngine(f.leagueRepo, f.standings),
		f.masteryRepo,
		NewUpdateQuestProgressHandler(f.questRepo, f.events, f.sink),
		f.events,
		f.sink,
	)
	return f
}

func TestApplySession_Validation(t *testing.T) {
	f := newApplySessionFixture()
	ctx := context.Background()

	_, err := f.handler.Handle(ctx, ApplySessionCommand{Correct: 1, Total: 5})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = f.handler.Handle(ctx, ApplySessionCommand{UserID: "u1", Correct: 0, Total: 0})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = f.handler.Handle(ctx, ApplySessionCommand{UserID: "u1", Correct: 6, Total: 5})
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
}

func TestApplySession_FirstSession(t *testing.T) {
	f := newApplySessionFixture()
	ctx := context.Background()

	res, err := f.handler.Handle(ctx, ApplySessionCommand{
		UserID:    "u1",
		Correct:   4,
		Total:     5,
		Passed:    true,
		Timestamp: baseTime,
	})
	require.NoError(t, err)

	// 4*10 + pass bonus 20 from the session, +20 for first_pass.
	assert.Equal(t, 80, res.XPGained)
	assert.Equal(t, 5, res.GemsGained)
	assert.Equal(t, -1, res.EnergyDelta)
	assert.Equal(t, 1, res.HeartsLost)
	assert.Equal(t, stats.StreakStarted, res.Streak.Outcome)
	assert.Equal(t, 1, res.Streak.Current)
	assert.Equal(t, []stats.AchievementCode{stats.AchievementFirstPass}, res.Achievements)
	assert.True(t, res.DailyGoalReached)

	stored := f.statsRepo.stored["u1"]
	assert.Equal(t, 80, stored.XP)
	assert.Equal(t, 5, stored.Gems)
	assert.Equal(t, stats.EnergyCap-1, stored.Energy)
	assert.Equal(t, stats.HeartsCap-1, stored.Hearts)
	assert.Equal(t, 1, stored.StreakCount)
	// Every atomic credit feeds the weekly view; the league participant
	// below only carries the session's own 60.
	assert.Equal(t, 80, stored.WeeklyXP)
	assert.Equal(t, 4, stored.TotalCorrect)
	assert.NotNil(t, stored.EnergyAnchorAt)
	assert.NotNil(t, stored.LastHeartLostAt)

	// A bronze session exists for this week with the user ranked first.
	session, err := f.leagueRepo.GetActiveSession(ctx, stats.TierBronze)
	require.NoError(t, err)
	p, err := f.leagueRepo.GetParticipant(ctx, session.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 60, p.WeeklyXP)
	assert.Equal(t, 1, p.Rank)
	assert.Len(t, f.standings.updates, 1)

	assert.Len(t, f.events.ofType(shared.EventHeartLost), 1)
	assert.Len(t, f.events.ofType(shared.EventStreakMaintained), 1)
	assert.Len(t, f.events.ofType(shared.EventXPGained), 2) // session + achievement
	assert.Len(t, f.events.ofType(shared.EventAchievementUnlocked), 1)
	assert.Len(t, f.events.ofType(shared.EventDailyGoalReached), 1)

	assert.Len(t, f.sink.ofType(notification.TypeAchievementUnlocked), 1)
	assert.Len(t, f.sink.ofType(notification.TypeDailyGoalReached), 1)
}

func TestApplySession_NoHeartsGate(t *testing.T) {
	f := newApplySessionFixture()

	l := stats.NewLedger("u1", baseTime)
	l.Hearts = 0
	f.statsRepo.put(l)

	_, err := f.handler.Handle(context.Background(), ApplySessionCommand{
		UserID: "u1", Correct: 3, Total: 5, Timestamp: baseTime,
	})
	assert.ErrorIs(t, err, shared.ErrInsufficientResource)
}

func TestApplySession_RegenOpensHeartsGate(t *testing.T) {
	f := newApplySessionFixture()

	// The last heart was lost 6 hours ago; one regen interval has elapsed.
	anchor := baseTime.Add(-6 * time.Hour)
	l := stats.NewLedger("u1", baseTime.Add(-24*time.Hour))
	l.Hearts = 0
	l.LastHeartLostAt = &anchor
	f.statsRepo.put(l)

	res, err := f.handler.Handle(context.Background(), ApplySessionCommand{
		UserID:    "u1",
		Correct:   5,
		Total:     5,
		Passed:    true,
		Timestamp: baseTime,
	})
	require.NoError(t, err)

	// 50 + pass 20 from the session, +20 first_pass, +25 perfect_score.
	assert.Equal(t, 115, res.XPGained)
	assert.Equal(t, 11, res.GemsGained)
	assert.Equal(t, 0, res.HeartsLost)

	stored := f.statsRepo.stored["u1"]
	assert.Equal(t, 1, stored.Hearts)
	// The anchor moved by exactly one interval, keeping fractional progress.
	require.NotNil(t, stored.LastHeartLostAt)
	assert.Equal(t, anchor.Add(stats.HeartRegenInterval), *stored.LastHeartLostAt)

	assert.Len(t, f.events.ofType(shared.EventHeartGained), 1)
}

func TestApplySession_BoostMultiplier(t *testing.T) {
	f := newApplySessionFixture()

	expires := baseTime.Add(time.Hour)
	l := stats.NewLedger("u1", baseTime.Add(-48*time.Hour))
	l.StreakCount = 5
	l.BestStreak = 5
	l.LastActiveAt = baseTime.Add(-2 * time.Hour) // same UTC day
	l.XPBoostMultiplier = 2.0
	l.XPBoostExpiresAt = &expires
	l.UnlockedAchievements = []string{"first_pass", "streak_3"}
	f.statsRepo.put(l)

	res, err := f.handler.Handle(context.Background(), ApplySessionCommand{
		UserID:    "u1",
		Correct:   4,
		Total:     5,
		Passed:    true,
		Timestamp: baseTime,
	})
	require.NoError(t, err)

	// (40 + streak bonus 25 + pass 20) * 2.
	assert.Equal(t, 170, res.XPGained)
	assert.Equal(t, 1, res.GemsGained)
	assert.Equal(t, stats.StreakUnchanged, res.Streak.Outcome)
	assert.Empty(t, res.Achievements)
}

func TestApplySession_BrokenStreakNotifies(t *testing.T) {
	f := newApplySessionFixture()

	l := stats.NewLedger("u1", baseTime.Add(-30*24*time.Hour))
	l.StreakCount = 10
	l.BestStreak = 10
	l.LastActiveAt = baseTime.Add(-30 * time.Hour)
	l.UnlockedAchievements = []string{"first_pass", "streak_3", "streak_7"}
	f.statsRepo.put(l)

	res, err := f.handler.Handle(context.Background(), ApplySessionCommand{
		UserID:    "u1",
		Correct:   4,
		Total:     5,
		Passed:    true,
		Timestamp: baseTime,
	})
	require.NoError(t, err)

	assert.Equal(t, stats.StreakBroken, res.Streak.Outcome)
	assert.Equal(t, 10, res.Streak.Previous)
	assert.Equal(t, 1, res.Streak.Current)

	stored := f.statsRepo.stored["u1"]
	assert.Equal(t, 1, stored.StreakCount)
	assert.NotNil(t, stored.StreakRepairableUntil) // reset in the 24-48h window

	assert.Len(t, f.events.ofType(shared.EventStreakBroken), 1)
	assert.Len(t, f.sink.ofType(notification.TypeStreakBroken), 1)
}

func TestApplySession_MasteryCrownBonus(t *testing.T) {
	f := newApplySessionFixture()

	res, err := f.handler.Handle(context.Background(), ApplySessionCommand{
		UserID:    "u1",
		Correct:   4,
		Total:     5,
		Passed:    true,
		SkillID:   "s1",
		Timestamp: baseTime,
	})
	require.NoError(t, err)

	// Session 60 XP reaches the first crown threshold; the flat bonus
	// (level 1 × 10) and first_pass 20 re-enter the pipeline.
	assert.True(t, res.MasteryLeveledUp)
	assert.False(t, res.SkillMastered)
	assert.Equal(t, 90, res.XPGained)

	sp, err := f.masteryRepo.Get(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, sp.CrownLevel)
	assert.Equal(t, 60, sp.TotalXP)
	assert.Equal(t, 1, sp.MistakeCount)

	stored := f.statsRepo.stored["u1"]
	assert.Equal(t, 1, stored.TotalCrowns)
	assert.Len(t, f.events.ofType(shared.EventCrownLeveledUp), 1)
}
