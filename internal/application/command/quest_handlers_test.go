package command

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilhub/tilhub-core/internal/domain/notification"
	"github.com/tilhub/tilhub-core/internal/domain/quest"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/pkg/timeutil"
)

func seedQuest(t *testing.T, repo *fakeQuestRepo, id string, qt quest.Type, target int, expiresAt time.Time) *quest.Quest {
	t.Helper()
	tpl, found := quest.Template{}, false
	for _, candidate := range quest.DefaultTemplates() {
		if candidate.Type == qt {
			tpl, found = candidate, true
			break
		}
	}
	require.True(t, found, "unknown quest type %s", qt)

	q := quest.NewQuest(id, "u1", tpl, target, expiresAt, baseTime)
	require.NoError(t, repo.Create(context.Background(), q))
	return q
}

// ─────────────────────────────────────────────────────────────────────────────
// Generation
// ─────────────────────────────────────────────────────────────────────────────

func TestGenerateQuests_FillsAllSlots(t *testing.T) {
	repo := newFakeQuestRepo()
	h := NewGenerateQuestsHandler(repo, rand.New(rand.NewSource(1)))

	res, err := h.Handle(context.Background(), GenerateQuestsCommand{UserID: "u1", Timestamp: baseTime})
	require.NoError(t, err)

	require.Len(t, res.Generated, quest.MaxActiveQuests)
	assert.Len(t, res.Active, quest.MaxActiveQuests)

	// Templates are taken by descending priority.
	assert.Equal(t, quest.TypeEarnXP, res.Generated[0].Type)
	assert.Equal(t, quest.TypeCompleteLessons, res.Generated[1].Type)
	assert.Equal(t, quest.TypeCompleteQuiz, res.Generated[2].Type)

	midnight := timeutil.StartOfNextDay(baseTime)
	for _, q := range res.Generated {
		assert.Equal(t, quest.StatusPending, q.Status)
		assert.Equal(t, midnight, q.ExpiresAt)
		assert.Positive(t, q.Target)
		assert.NotEmpty(t, q.Description)
	}
}

func TestGenerateQuests_SkipsActiveTypes(t *testing.T) {
	repo := newFakeQuestRepo()
	h := NewGenerateQuestsHandler(repo, rand.New(rand.NewSource(1)))

	tomorrow := baseTime.Add(24 * time.Hour)
	seedQuest(t, repo, "q1", quest.TypeEarnXP, 50, tomorrow)

	res, err := h.Handle(context.Background(), GenerateQuestsCommand{UserID: "u1", Timestamp: baseTime})
	require.NoError(t, err)

	require.Len(t, res.Generated, 2)
	for _, q := range res.Generated {
		assert.NotEqual(t, quest.TypeEarnXP, q.Type)
	}
	assert.Len(t, res.Active, quest.MaxActiveQuests)
}

func TestGenerateQuests_ExpiresStaleFirst(t *testing.T) {
	repo := newFakeQuestRepo()
	h := NewGenerateQuestsHandler(repo, rand.New(rand.NewSource(1)))

	stale := seedQuest(t, repo, "q1", quest.TypeEarnXP, 50, baseTime.Add(-time.Hour))

	res, err := h.Handle(context.Background(), GenerateQuestsCommand{UserID: "u1", Timestamp: baseTime})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Expired)
	assert.Equal(t, quest.StatusExpired, stale.Status)
	// The freed slot is reissued, EARN_XP included.
	assert.Len(t, res.Generated, quest.MaxActiveQuests)
}

// ─────────────────────────────────────────────────────────────────────────────
// Progress
// ─────────────────────────────────────────────────────────────────────────────

func TestUpdateQuestProgress_AccumulatesAndCompletes(t *testing.T) {
	repo := newFakeQuestRepo()
	events := &eventRecorder{}
	sink := &sinkRecorder{}
	h := NewUpdateQuestProgressHandler(repo, events, sink)

	tomorrow := baseTime.Add(24 * time.Hour)
	q := seedQuest(t, repo, "q1", quest.TypeEarnXP, 50, tomorrow)

	res, err := h.Handle(context.Background(), UpdateQuestProgressCommand{
		UserID: "u1", Type: quest.TypeEarnXP, Delta: 30, Timestamp: baseTime,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Empty(t, res.Completed)
	assert.Equal(t, quest.StatusInProgress, q.Status)

	// Overshoot is capped at the target.
	res, err = h.Handle(context.Background(), UpdateQuestProgressCommand{
		UserID: "u1", Type: quest.TypeEarnXP, Delta: 40, Timestamp: baseTime,
	})
	require.NoError(t, err)
	require.Len(t, res.Completed, 1)
	assert.Equal(t, 50, q.Progress)
	assert.Equal(t, quest.StatusCompleted, q.Status)

	assert.Len(t, events.ofType(shared.EventQuestCompleted), 1)
	assert.Len(t, sink.ofType(notification.TypeQuestCompleted), 1)
}

func TestUpdateQuestProgress_IgnoresOtherTypes(t *testing.T) {
	repo := newFakeQuestRepo()
	h := NewUpdateQuestProgressHandler(repo, &eventRecorder{}, &sinkRecorder{})

	tomorrow := baseTime.Add(24 * time.Hour)
	q := seedQuest(t, repo, "q1", quest.TypeWatchVideos, 3, tomorrow)

	res, err := h.Handle(context.Background(), UpdateQuestProgressCommand{
		UserID: "u1", Type: quest.TypeEarnXP, Delta: 10, Timestamp: baseTime,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 0, q.Progress)
}

// ─────────────────────────────────────────────────────────────────────────────
// Claiming
// ─────────────────────────────────────────────────────────────────────────────

func TestClaimQuest_CreditsOnce(t *testing.T) {
	questRepo := newFakeQuestRepo()
	statsRepo := newFakeStatsRepo()
	h := NewClaimQuestHandler(questRepo, statsRepo)
	ctx := context.Background()

	tomorrow := baseTime.Add(24 * time.Hour)
	q := seedQuest(t, questRepo, "q1", quest.TypeEarnXP, 50, tomorrow)
	q.AddProgress(50, baseTime)
	require.Equal(t, quest.StatusCompleted, q.Status)

	res, err := h.Handle(ctx, ClaimQuestCommand{UserID: "u1", QuestID: "q1", Timestamp: baseTime})
	require.NoError(t, err)
	assert.Equal(t, q.Reward, res.GemsGained)
	assert.Equal(t, quest.StatusClaimed, q.Status)
	assert.Equal(t, q.Reward, statsRepo.stored["u1"].Gems)

	// A second claim is rejected and credits nothing.
	_, err = h.Handle(ctx, ClaimQuestCommand{UserID: "u1", QuestID: "q1", Timestamp: baseTime})
	assert.ErrorIs(t, err, shared.ErrQuestClaimed)
	assert.Equal(t, q.Reward, statsRepo.stored["u1"].Gems)
}

func TestClaimQuest_NotCompleted(t *testing.T) {
	questRepo := newFakeQuestRepo()
	h := NewClaimQuestHandler(questRepo, newFakeStatsRepo())

	seedQuest(t, questRepo, "q1", quest.TypeEarnXP, 50, baseTime.Add(24*time.Hour))

	_, err := h.Handle(context.Background(), ClaimQuestCommand{UserID: "u1", QuestID: "q1", Timestamp: baseTime})
	assert.ErrorIs(t, err, shared.ErrQuestNotCompleted)
}

func TestClaimQuest_WrongUser(t *testing.T) {
	questRepo := newFakeQuestRepo()
	h := NewClaimQuestHandler(questRepo, newFakeStatsRepo())

	q := seedQuest(t, questRepo, "q1", quest.TypeEarnXP, 50, baseTime.Add(24*time.Hour))
	q.AddProgress(50, baseTime)

	_, err := h.Handle(context.Background(), ClaimQuestCommand{UserID: "intruder", QuestID: "q1", Timestamp: baseTime})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
