package quest

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

var (
	questNow     = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	questExpires = time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
)

func earnXPQuest(target int) *Quest {
	tpl := DefaultTemplates()[0]
	return NewQuest("q1", "u1", tpl, target, questExpires, questNow)
}

func TestAddProgress_AccumulatesAndCompletes(t *testing.T) {
	q := earnXPQuest(50)

	assert.False(t, q.AddProgress(20, questNow))
	assert.Equal(t, StatusInProgress, q.Status)
	assert.Equal(t, 20, q.Progress)

	assert.True(t, q.AddProgress(40, questNow))
	assert.Equal(t, StatusCompleted, q.Status)
	// Progress is capped at the target, never overshot.
	assert.Equal(t, 50, q.Progress)

	// Already completed: further progress is ignored.
	assert.False(t, q.AddProgress(10, questNow))
	assert.Equal(t, 50, q.Progress)
}

func TestAddProgress_ExpiredQuestIgnoresProgress(t *testing.T) {
	q := earnXPQuest(50)

	assert.False(t, q.AddProgress(20, questExpires.Add(time.Minute)))
	assert.Equal(t, 0, q.Progress)
	assert.Equal(t, StatusPending, q.Status)
}

func TestClaim_Transitions(t *testing.T) {
	q := earnXPQuest(50)

	// Not completed yet.
	assert.ErrorIs(t, q.Claim(questNow), shared.ErrQuestNotCompleted)

	q.AddProgress(50, questNow)
	assert.NoError(t, q.Claim(questNow))
	assert.Equal(t, StatusClaimed, q.Status)

	// Double claim.
	assert.ErrorIs(t, q.Claim(questNow), shared.ErrQuestClaimed)
}

func TestClaim_Expired(t *testing.T) {
	q := earnXPQuest(50)
	q.AddProgress(50, questNow)
	q.Expire(questExpires)

	assert.ErrorIs(t, q.Claim(questExpires), shared.ErrQuestExpired)
}

func TestExpire_ClaimedQuestStaysClaimed(t *testing.T) {
	q := earnXPQuest(50)
	q.AddProgress(50, questNow)
	assert.NoError(t, q.Claim(questNow))

	assert.False(t, q.Expire(questExpires))
	assert.Equal(t, StatusClaimed, q.Status)
}

func TestRollTarget(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tpl := Template{MinTarget: 30, MaxTarget: 100, DefaultTarget: 50}

	for i := 0; i < 100; i++ {
		target := tpl.RollTarget(rng)
		assert.GreaterOrEqual(t, target, 30)
		assert.LessOrEqual(t, target, 100)
	}

	fixed := Template{MinTarget: 1, MaxTarget: 1, DefaultTarget: 5}
	assert.Equal(t, 1, fixed.RollTarget(rng))

	empty := Template{DefaultTarget: 5}
	assert.Equal(t, 5, empty.RollTarget(rng))
}

func TestSelectTemplates_PriorityAndExclusion(t *testing.T) {
	active := map[Type]bool{TypeEarnXP: true}

	picked := SelectTemplates(DefaultTemplates(), active, 2)
	assert.Len(t, picked, 2)
	assert.Equal(t, TypeCompleteLessons, picked[0].Type)
	assert.Equal(t, TypeCompleteQuiz, picked[1].Type)
}

func TestSelectTemplates_OrdersByPriorityRegardlessOfInput(t *testing.T) {
	templates := []Template{
		{Type: TypeWatchVideos, Priority: 70},
		{Type: TypeEarnXP, Priority: 100},
	}

	picked := SelectTemplates(templates, nil, 2)
	assert.Equal(t, TypeEarnXP, picked[0].Type)
	assert.Equal(t, TypeWatchVideos, picked[1].Type)
}

func TestSelectTemplates_NoSlots(t *testing.T) {
	assert.Nil(t, SelectTemplates(DefaultTemplates(), nil, 0))
}
