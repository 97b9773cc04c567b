package milestone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

var milestoneNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func TestByDay(t *testing.T) {
	m, ok := ByDay(7)
	assert.True(t, ok)
	assert.Equal(t, RewardStreakFreeze, m.Reward.Kind)

	_, ok = ByDay(11)
	assert.False(t, ok)
}

func TestClaimable(t *testing.T) {
	l := stats.NewLedger("u1", milestoneNow)
	l.StreakCount = 7

	m, ok := Claimable(l, 7)
	assert.True(t, ok)
	assert.Equal(t, 7, m.Day)

	// Streak shorter than the threshold.
	_, ok = Claimable(l, 14)
	assert.False(t, ok)

	// Unknown day.
	_, ok = Claimable(l, 11)
	assert.False(t, ok)

	// Already claimed.
	l.ClaimMilestone(7, milestoneNow)
	_, ok = Claimable(l, 7)
	assert.False(t, ok)
}

func TestApply_GemsAndFreeze(t *testing.T) {
	l := stats.NewLedger("u1", milestoneNow)
	l.StreakCount = 7

	m, _ := ByDay(7)
	Apply(l, m, milestoneNow)

	assert.Equal(t, 10, l.Gems)
	assert.True(t, l.StreakFreezeActive)
	assert.True(t, l.HasClaimedMilestone(7))
}

func TestApply_BoostMilestone(t *testing.T) {
	l := stats.NewLedger("u1", milestoneNow)
	l.StreakCount = 14

	m, _ := ByDay(14)
	Apply(l, m, milestoneNow)

	assert.Equal(t, 15, l.Gems)
	assert.True(t, l.BoostActive(milestoneNow))
	assert.Equal(t, 1.5, l.XPBoostMultiplier)
}

func TestApply_DoubleClaimIsNoOp(t *testing.T) {
	l := stats.NewLedger("u1", milestoneNow)
	l.StreakCount = 3

	m, _ := ByDay(3)
	Apply(l, m, milestoneNow)
	Apply(l, m, milestoneNow)

	assert.Equal(t, 5, l.Gems)
	assert.Len(t, l.ClaimedStreakMilestones, 1)
}
