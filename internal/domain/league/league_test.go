package league

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

func TestWeekWindow_MondayAligned(t *testing.T) {
	// Wednesday 2025-06-04 15:30 UTC belongs to the week of Monday 2025-06-02.
	wed := time.Date(2025, 6, 4, 15, 30, 0, 0, time.UTC)
	start, end := WeekWindow(wed)

	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), end)
}

func TestWeekWindow_SundayBelongsToPrecedingMonday(t *testing.T) {
	sun := time.Date(2025, 6, 8, 23, 59, 0, 0, time.UTC)
	start, _ := WeekWindow(sun)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), start)
}

func TestWeekWindow_MondayMidnightStartsNewWeek(t *testing.T) {
	mon := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	start, _ := WeekWindow(mon)
	assert.Equal(t, mon, start)
}

func TestSessionElapsed(t *testing.T) {
	s := NewSession("s1", stats.TierBronze, time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC))

	assert.False(t, s.Elapsed(time.Date(2025, 6, 8, 23, 0, 0, 0, time.UTC)))
	assert.True(t, s.Elapsed(time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)))
}

func TestTierByName(t *testing.T) {
	cfg, err := TierByName(stats.TierGold)
	assert.NoError(t, err)
	assert.Equal(t, 2, cfg.Order)

	_, err = TierByName("platinum")
	assert.ErrorIs(t, err, shared.ErrUnknownTier)
}

func TestTierNeighbors(t *testing.T) {
	bronze, _ := TierByName(stats.TierBronze)
	diamond, _ := TierByName(stats.TierDiamond)

	assert.True(t, bronze.IsBottom())
	assert.Equal(t, stats.TierSilver, bronze.NextUp())
	assert.Equal(t, stats.TierBronze, bronze.NextDown())

	assert.True(t, diamond.IsTop())
	assert.Equal(t, stats.TierDiamond, diamond.NextUp())
	assert.Equal(t, stats.TierRuby, diamond.NextDown())
}

func TestRankParticipants_TieBrokenByJoinTime(t *testing.T) {
	early := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	a := &Participant{UserID: "a", WeeklyXP: 100, JoinedAt: late}
	b := &Participant{UserID: "b", WeeklyXP: 100, JoinedAt: early}
	c := &Participant{UserID: "c", WeeklyXP: 250, JoinedAt: late}

	ps := []*Participant{a, b, c}
	RankParticipants(ps)

	assert.Equal(t, shared.UserID("c"), ps[0].UserID)
	assert.Equal(t, 1, ps[0].Rank)
	assert.Equal(t, shared.UserID("b"), ps[1].UserID)
	assert.Equal(t, 2, ps[1].Rank)
	assert.Equal(t, shared.UserID("a"), ps[2].UserID)
	assert.Equal(t, 3, ps[2].Rank)
}

func makeRanked(n int, xpFor func(rank int) int) []*Participant {
	joined := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	ps := make([]*Participant, 0, n)
	for i := 1; i <= n; i++ {
		ps = append(ps, &Participant{
			UserID:   shared.UserID(fmt.Sprintf("u%02d", i)),
			WeeklyXP: xpFor(i),
			Rank:     i,
			JoinedAt: joined,
		})
	}
	return ps
}

func TestPlanRotation_Bronze(t *testing.T) {
	bronze, _ := TierByName(stats.TierBronze)

	// 30 participants; the top ones have high XP except rank 2, who is
	// inside the promotion zone but under the XP floor.
	ps := makeRanked(30, func(rank int) int {
		if rank == 2 {
			return 50
		}
		return 1000 - rank*10
	})
	// Keep ranks as assigned: rank 2's XP is below MinXPToPromote.
	outcomes := PlanRotation(bronze, ps)

	assert.Equal(t, Promote, outcomes[0].Movement)
	assert.Equal(t, stats.TierSilver, outcomes[0].ToTier)

	// In the zone but under the XP floor: stays.
	assert.Equal(t, Stay, outcomes[1].Movement)

	// Rank 10 is the last promotion slot; rank 11 stays.
	assert.Equal(t, Promote, outcomes[9].Movement)
	assert.Equal(t, Stay, outcomes[10].Movement)

	// Bronze never demotes, even past the threshold.
	assert.Equal(t, Stay, outcomes[29].Movement)
}

func TestPlanRotation_SilverDemotion(t *testing.T) {
	silver, _ := TierByName(stats.TierSilver)
	ps := makeRanked(30, func(rank int) int { return 10 })

	outcomes := PlanRotation(silver, ps)

	// Nobody meets the 150 XP floor: no promotions.
	assert.Equal(t, Stay, outcomes[0].Movement)

	// Ranks past the demotion threshold drop to bronze.
	assert.Equal(t, Stay, outcomes[24].Movement)
	assert.Equal(t, Demote, outcomes[25].Movement)
	assert.Equal(t, stats.TierBronze, outcomes[25].ToTier)
}

func TestPlanRotation_DiamondNeverPromotes(t *testing.T) {
	diamond, _ := TierByName(stats.TierDiamond)
	ps := makeRanked(20, func(rank int) int { return 5000 })

	outcomes := PlanRotation(diamond, ps)
	assert.Equal(t, Stay, outcomes[0].Movement)
	// Demotion from diamond still applies.
	assert.Equal(t, Demote, outcomes[15].Movement)
	assert.Equal(t, stats.TierRuby, outcomes[15].ToTier)
}
