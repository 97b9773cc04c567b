package command

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilhub/tilhub-core/internal/domain/league"
	"github.com/tilhub/tilhub-core/internal/domain/notification"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

type rotateFixture struct {
	leagueRepo *fakeLeagueRepo
	statsRepo  *fakeStatsRepo
	standings  *fakeStandings
	events     *eventRecorder
	sink       *sinkRecorder
	handler    *RotateLeaguesHandler
}

func newRotateFixture() *rotateFixture {
	f := &rotateFixture{
		leagueRepo: newFakeLeagueRepo(),
		statsRepo:  newFakeStatsRepo(),
		standings:  &fakeStandings{},
		events:     &eventRecorder{},
		sink:       &sinkRecorder{},
	}
	f.handler = NewRotateLeaguesHandler(f.leagueRepo, f.statsRepo, f.standings, f.events, f.sink)
	return f
}

// seedSession opens a session in last week's window (elapsed at baseTime)
// and joins the given users with their weekly XP.
func (f *rotateFixture) seedSession(t *testing.T, id string, tier stats.LeagueTier, weeklyXP map[string]int) *league.Session {
	t.Helper()
	lastWeek := baseTime.Add(-7 * 24 * time.Hour)
	session := league.NewSession(id, tier, lastWeek)
	require.NoError(t, f.leagueRepo.CreateSession(context.Background(), session))

	i := 0
	for user, xp := range weeklyXP {
		l := stats.NewLedger(shared.UserID(user), lastWeek)
		l.CurrentLeagueTier = tier
		l.WeeklyXP = xp
		f.statsRepo.put(l)

		created, err := f.leagueRepo.CreateParticipantIfAbsent(context.Background(), &league.Participant{
			ID:        fmt.Sprintf("%s-p%d", id, i),
			SessionID: id,
			UserID:    shared.UserID(user),
			WeeklyXP:  xp,
			JoinedAt:  lastWeek.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		require.True(t, created)
		i++
	}
	return session
}

func TestRotateLeagues_NothingElapsed(t *testing.T) {
	f := newRotateFixture()

	res, err := f.handler.Handle(context.Background(), RotateLeaguesCommand{Timestamp: baseTime})
	require.NoError(t, err)
	assert.Equal(t, 0, res.SessionsRotated)
}

func TestRotateLeagues_BronzePromotion(t *testing.T) {
	f := newRotateFixture()
	ctx := context.Background()

	f.seedSession(t, "s1", stats.TierBronze, map[string]int{
		"u1": 150, // rank 1, above the promotion XP floor
		"u2": 50,  // rank 2, below the floor
		"u3": 0,   // rank 3; bronze never demotes
	})

	res, err := f.handler.Handle(ctx, RotateLeaguesCommand{Timestamp: baseTime})
	require.NoError(t, err)

	assert.Equal(t, 1, res.SessionsRotated)
	assert.Equal(t, 1, res.Promoted)
	assert.Equal(t, 0, res.Demoted)

	assert.Equal(t, stats.TierSilver, f.statsRepo.stored["u1"].CurrentLeagueTier)
	assert.Equal(t, stats.TierBronze, f.statsRepo.stored["u2"].CurrentLeagueTier)
	assert.Equal(t, stats.TierBronze, f.statsRepo.stored["u3"].CurrentLeagueTier)

	// Weekly XP resets for everyone in the rotated session. Update skips
	// hot counters, so the reset must arrive through its own atomic write.
	for _, user := range []shared.UserID{"u1", "u2", "u3"} {
		assert.Equal(t, 0, f.statsRepo.stored[user].WeeklyXP, "user %s", user)
	}
	assert.Equal(t, 3, f.statsRepo.weeklyResetCalls)

	// The old session is archived, its standings dropped, and a fresh
	// bronze session is already open.
	assert.True(t, f.leagueRepo.sessions["s1"].IsArchived)
	assert.Equal(t, []string{"s1"}, f.standings.cleared)
	fresh, err := f.leagueRepo.GetActiveSession(ctx, stats.TierBronze)
	require.NoError(t, err)
	assert.NotEqual(t, "s1", fresh.ID)

	assert.Len(t, f.events.ofType(shared.EventLeaguePromoted), 1)
	assert.Len(t, f.events.ofType(shared.EventLeagueDemoted), 0)
	assert.Len(t, f.sink.ofType(notification.TypeLeagueResult), 1)

	p, err := f.leagueRepo.GetParticipant(ctx, "s1", "u1")
	require.NoError(t, err)
	assert.True(t, p.Promoted)
	assert.Equal(t, 1, p.Rank)
}

func TestRotateLeagues_SilverDemotion(t *testing.T) {
	f := newRotateFixture()

	// 26 participants: ranks 1-10 clear the XP floor and promote,
	// rank 26 falls below the demotion threshold of 25.
	weeklyXP := make(map[string]int, 26)
	for i := 0; i < 26; i++ {
		weeklyXP[fmt.Sprintf("u%02d", i)] = 300 - i*10
	}
	f.seedSession(t, "s2", stats.TierSilver, weeklyXP)

	res, err := f.handler.Handle(context.Background(), RotateLeaguesCommand{Timestamp: baseTime})
	require.NoError(t, err)

	assert.Equal(t, 10, res.Promoted)
	assert.Equal(t, 1, res.Demoted)

	assert.Equal(t, stats.TierGold, f.statsRepo.stored["u00"].CurrentLeagueTier)
	assert.Equal(t, stats.TierSilver, f.statsRepo.stored["u12"].CurrentLeagueTier)
	assert.Equal(t, stats.TierBronze, f.statsRepo.stored["u25"].CurrentLeagueTier)

	assert.Len(t, f.events.ofType(shared.EventLeagueDemoted), 1)
}

func TestRotateLeagues_MissingLedgerSkipped(t *testing.T) {
	f := newRotateFixture()
	ctx := context.Background()

	f.seedSession(t, "s3", stats.TierBronze, map[string]int{"u1": 200})
	delete(f.statsRepo.stored, "u1")

	res, err := f.handler.Handle(ctx, RotateLeaguesCommand{Timestamp: baseTime})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SessionsRotated)
	assert.Equal(t, 1, res.Promoted)
}
