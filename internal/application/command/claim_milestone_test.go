package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilhub/tilhub-core/internal/domain/milestone"
	"github.com/tilhub/tilhub-core/internal/domain/notification"
	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

func TestClaimMilestone_GemsReward(t *testing.T) {
	repo := newFakeStatsRepo()
	sink := &sinkRecorder{}
	h := NewClaimMilestoneHandler(repo, sink)

	l := stats.NewLedger("u1", baseTime)
	l.StreakCount = 3
	repo.put(l)

	res, err := h.Handle(context.Background(), ClaimMilestoneCommand{UserID: "u1", Day: 3, Timestamp: baseTime})
	require.NoError(t, err)
	assert.True(t, res.Claimed)
	assert.Equal(t, 3, res.Milestone.Day)

	// Gems land via the atomic credit, not Update, and the XP views
	// stay untouched by a gems-only reward.
	stored := repo.stored["u1"]
	assert.Equal(t, 5, stored.Gems)
	assert.Equal(t, 0, stored.XP)
	assert.Equal(t, []int{3}, stored.ClaimedStreakMilestones)
	assert.Len(t, sink.ofType(notification.TypeMilestoneClaimed), 1)
}

func TestClaimMilestone_BoostReward(t *testing.T) {
	repo := newFakeStatsRepo()
	h := NewClaimMilestoneHandler(repo, &sinkRecorder{})

	l := stats.NewLedger("u1", baseTime)
	l.StreakCount = 14
	l.ClaimedStreakMilestones = []int{3, 7}
	repo.put(l)

	res, err := h.Handle(context.Background(), ClaimMilestoneCommand{UserID: "u1", Day: 14, Timestamp: baseTime})
	require.NoError(t, err)
	require.True(t, res.Claimed)
	assert.Equal(t, milestone.RewardXPBoost, res.Milestone.Reward.Kind)

	stored := repo.stored["u1"]
	assert.Equal(t, 15, stored.Gems)
	assert.Equal(t, 1.5, stored.XPBoostMultiplier)
	require.NotNil(t, stored.XPBoostExpiresAt)
	assert.Equal(t, baseTime.Add(res.Milestone.Reward.BoostDuration), *stored.XPBoostExpiresAt)
}

func TestClaimMilestone_QuietNoop(t *testing.T) {
	repo := newFakeStatsRepo()
	sink := &sinkRecorder{}
	h := NewClaimMilestoneHandler(repo, sink)
	ctx := context.Background()

	l := stats.NewLedger("u1", baseTime)
	l.StreakCount = 5
	l.ClaimedStreakMilestones = []int{3}
	repo.put(l)

	// Streak too short for the milestone.
	res, err := h.Handle(ctx, ClaimMilestoneCommand{UserID: "u1", Day: 7, Timestamp: baseTime})
	require.NoError(t, err)
	assert.False(t, res.Claimed)

	// Already claimed.
	res, err = h.Handle(ctx, ClaimMilestoneCommand{UserID: "u1", Day: 3, Timestamp: baseTime})
	require.NoError(t, err)
	assert.False(t, res.Claimed)

	// Unknown milestone day.
	res, err = h.Handle(ctx, ClaimMilestoneCommand{UserID: "u1", Day: 5, Timestamp: baseTime})
	require.NoError(t, err)
	assert.False(t, res.Claimed)

	assert.Equal(t, 0, repo.stored["u1"].Gems)
	assert.Empty(t, sink.requests)
}
