package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilhub/tilhub-core/internal/domain/mastery"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

func masteredSkill(totalXP int) *mastery.SkillProgress {
	sp := mastery.NewSkillProgress("sp1", "u1", "s1", baseTime)
	sp.CrownLevel = mastery.MaxCrownLevel
	sp.TotalXP = totalXP
	return sp
}

func TestAttemptLegendary_PassRewards(t *testing.T) {
	masteryRepo := newFakeMasteryRepo()
	statsRepo := newFakeStatsRepo()
	events := &eventRecorder{}
	h := NewAttemptLegendaryHandler(masteryRepo, statsRepo, events)

	masteryRepo.put(masteredSkill(mastery.LegendaryMinTotalXP))

	res, err := h.Handle(context.Background(), AttemptLegendaryCommand{
		UserID: "u1", SkillID: "s1", Passed: true, Timestamp: baseTime,
	})
	require.NoError(t, err)

	assert.True(t, res.IsLegendary)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 40, res.XPGained)
	assert.Equal(t, 20, res.GemsGained)

	stored := statsRepo.stored["u1"]
	assert.Equal(t, 40, stored.XP)
	assert.Equal(t, 20, stored.Gems)
	assert.Len(t, events.ofType(shared.EventXPGained), 1)
}

func TestAttemptLegendary_FailCountsAttempt(t *testing.T) {
	masteryRepo := newFakeMasteryRepo()
	statsRepo := newFakeStatsRepo()
	h := NewAttemptLegendaryHandler(masteryRepo, statsRepo, &eventRecorder{})

	sp := masteredSkill(mastery.LegendaryMinTotalXP)
	masteryRepo.put(sp)

	res, err := h.Handle(context.Background(), AttemptLegendaryCommand{
		UserID: "u1", SkillID: "s1", Passed: false, Timestamp: baseTime,
	})
	require.NoError(t, err)

	assert.False(t, res.IsLegendary)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 0, res.XPGained)
	assert.False(t, sp.IsLegendary)
	assert.Empty(t, statsRepo.stored) // no reward pipeline on a fail
}

func TestAttemptLegendary_NotEligible(t *testing.T) {
	masteryRepo := newFakeMasteryRepo()
	h := NewAttemptLegendaryHandler(masteryRepo, newFakeStatsRepo(), &eventRecorder{})
	ctx := context.Background()

	// Crown level below the maximum.
	sp := mastery.NewSkillProgress("sp1", "u1", "s1", baseTime)
	sp.CrownLevel = 4
	sp.TotalXP = 600
	masteryRepo.put(sp)
	_, err := h.Handle(ctx, AttemptLegendaryCommand{UserID: "u1", SkillID: "s1", Passed: true, Timestamp: baseTime})
	assert.ErrorIs(t, err, shared.ErrLegendaryNotEligible)

	// Not enough cumulative XP.
	masteryRepo.put(masteredSkill(mastery.LegendaryMinTotalXP - 1))
	_, err = h.Handle(ctx, AttemptLegendaryCommand{UserID: "u1", SkillID: "s1", Passed: true, Timestamp: baseTime})
	assert.ErrorIs(t, err, shared.ErrLegendaryNotEligible)
}

func TestAttemptLegendary_AlreadyLegendary(t *testing.T) {
	masteryRepo := newFakeMasteryRepo()
	h := NewAttemptLegendaryHandler(masteryRepo, newFakeStatsRepo(), &eventRecorder{})

	sp := masteredSkill(mastery.LegendaryMinTotalXP)
	sp.IsLegendary = true
	masteryRepo.put(sp)

	_, err := h.Handle(context.Background(), AttemptLegendaryCommand{
		UserID: "u1", SkillID: "s1", Passed: true, Timestamp: baseTime,
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyLegendary)
}

func TestAttemptLegendary_UnknownSkill(t *testing.T) {
	h := NewAttemptLegendaryHandler(newFakeMasteryRepo(), newFakeStatsRepo(), &eventRecorder{})

	_, err := h.Handle(context.Background(), AttemptLegendaryCommand{
		UserID: "u1", SkillID: "nope", Passed: true, Timestamp: baseTime,
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
