package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilhub/tilhub-core/internal/domain/content"
	"github.com/tilhub/tilhub-core/internal/domain/notification"
	"github.com/tilhub/tilhub-core/internal/domain/quest"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// lessonTree is a minimal hierarchy: one level, one category, two lessons.
// The first lesson has two counting videos and one supplementary video.
func lessonTree() *fakeContentStore {
	return newFakeContentStore(
		content.Node{ID: "L1", Kind: content.KindLevel, Order: 1, Active: true, Title: "Level 1"},
		content.Node{ID: "C1", Kind: content.KindCategory, ParentID: "L1", Order: 1, Active: true, Title: "Basics"},
		content.Node{ID: "LS1", Kind: content.KindLesson, ParentID: "C1", Order: 1, Active: true, Title: "Lesson 1"},
		content.Node{ID: "LS2", Kind: content.KindLesson, ParentID: "C1", Order: 2, Active: true, Title: "Lesson 2"},
		content.Node{ID: "V1", Kind: content.KindVideo, ParentID: "LS1", Order: 1, Active: true, ForLesson: true},
		content.Node{ID: "V2", Kind: content.KindVideo, ParentID: "LS1", Order: 2, Active: true, ForLesson: true},
		content.Node{ID: "V3", Kind: content.KindVideo, ParentID: "LS1", Order: 3, Active: true, ForLesson: false},
		content.Node{ID: "V4", Kind: content.KindVideo, ParentID: "LS2", Order: 1, Active: true, ForLesson: true},
	)
}

type markVideoFixture struct {
	store        *fakeContentStore
	progressRepo *fakeProgressRepo
	questRepo    *fakeQuestRepo
	events       *eventRecorder
	sink         *sinkRecorder
	handler      *MarkVideoWatchedHandler
}

func newMarkVideoFixture() *markVideoFixture {
	f := &markVideoFixture{
		store:        lessonTree(),
		progressRepo: newFakeProgressRepo(),
		questRepo:    newFakeQuestRepo(),
		events:       &eventRecorder{},
		sink:         &sinkRecorder{},
	}
	cascade := NewCascadeEngine(f.store, f.progressRepo, f.events, f.sink)
	f.handler = NewMarkVideoWatchedHandler(
		f.store,
		f.progressRepo,
		cascade,
		f.events,
		NewUpdateQuestProgressHandler(f.questRepo, f.events, f.sink),
	)
	return f
}

func (f *markVideoFixture) watch(t *testing.T, videoID string) *MarkVideoWatchedResult {
	t.Helper()
	res, err := f.handler.Handle(context.Background(), MarkVideoWatchedCommand{
		UserID:    "u1",
		LessonID:  "LS1",
		VideoID:   videoID,
		Timestamp: baseTime,
	})
	require.NoError(t, err)
	return res
}

func TestMarkVideoWatched_Validation(t *testing.T) {
	f := newMarkVideoFixture()

	_, err := f.handler.Handle(context.Background(), MarkVideoWatchedCommand{LessonID: "LS1", VideoID: "V1"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = f.handler.Handle(context.Background(), MarkVideoWatchedCommand{UserID: "u1", VideoID: "V1"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestMarkVideoWatched_PartialProgress(t *testing.T) {
	f := newMarkVideoFixture()

	tpl := quest.Template{Type: quest.TypeWatchVideos, Reward: 10, DescriptionFormat: "Watch %d videos"}
	q := quest.NewQuest("q1", "u1", tpl, 2, baseTime.Add(24*time.Hour), baseTime)
	require.NoError(t, f.questRepo.Create(context.Background(), q))

	res := f.watch(t, "V1")

	assert.False(t, res.AlreadyWatched)
	assert.False(t, res.LessonCompleted)
	assert.Equal(t, 1, res.WatchedCount)
	assert.Equal(t, 2, res.RequiredCount) // V3 is supplementary
	assert.Empty(t, res.Unlocked)

	// The watched video fed the WATCH_VIDEOS quest.
	assert.Equal(t, 1, q.Progress)
	assert.Equal(t, quest.StatusInProgress, q.Status)
}

func TestMarkVideoWatched_CompletionUnlocksNext(t *testing.T) {
	f := newMarkVideoFixture()

	f.watch(t, "V1")
	res := f.watch(t, "V2")

	assert.True(t, res.LessonCompleted)
	assert.Equal(t, 2, res.WatchedCount)
	require.Len(t, res.Unlocked, 1)
	assert.Equal(t, shared.NodeID("LS2"), res.Unlocked[0].ID)

	rec, err := f.progressRepo.Get(context.Background(), "u1", "LS1")
	require.NoError(t, err)
	assert.True(t, rec.AllVideosWatched)
	assert.NotNil(t, rec.CompletedAt)

	// The next lesson got its record, an event, and a notification.
	next, err := f.progressRepo.Get(context.Background(), "u1", "LS2")
	require.NoError(t, err)
	assert.NotNil(t, next.UnlockedAt)

	assert.Len(t, f.events.ofType(shared.EventLessonCompleted), 1)
	assert.Len(t, f.events.ofType(shared.EventContentUnlocked), 1)
	assert.Len(t, f.sink.ofType(notification.TypeContentUnlocked), 1)
}

func TestMarkVideoWatched_RemarkIsSelfHealing(t *testing.T) {
	f := newMarkVideoFixture()

	f.watch(t, "V1")
	f.watch(t, "V2")
	res := f.watch(t, "V2")

	assert.True(t, res.AlreadyWatched)
	assert.False(t, res.LessonCompleted)
	assert.Empty(t, res.Unlocked) // next lesson already has its record

	// Completion fired exactly once across the three calls.
	assert.Len(t, f.events.ofType(shared.EventLessonCompleted), 1)
	assert.Len(t, f.events.ofType(shared.EventContentUnlocked), 1)
}

func TestMarkVideoWatched_VideoNotInLesson(t *testing.T) {
	f := newMarkVideoFixture()

	// Supplementary videos do not count towards completion.
	_, err := f.handler.Handle(context.Background(), MarkVideoWatchedCommand{
		UserID: "u1", LessonID: "LS1", VideoID: "V3", Timestamp: baseTime,
	})
	assert.ErrorIs(t, err, shared.ErrVideoNotInLesson)

	// Neither does another lesson's video.
	_, err = f.handler.Handle(context.Background(), MarkVideoWatchedCommand{
		UserID: "u1", LessonID: "LS1", VideoID: "V4", Timestamp: baseTime,
	})
	assert.ErrorIs(t, err, shared.ErrVideoNotInLesson)
}

func TestMarkVideoWatched_LockedLesson(t *testing.T) {
	f := newMarkVideoFixture()

	_, err := f.handler.Handle(context.Background(), MarkVideoWatchedCommand{
		UserID: "u1", LessonID: "LS2", VideoID: "V4", Timestamp: baseTime,
	})
	assert.ErrorIs(t, err, shared.ErrContentLocked)
}

func TestMarkVideoWatched_WrongNodeKind(t *testing.T) {
	f := newMarkVideoFixture()

	_, err := f.handler.Handle(context.Background(), MarkVideoWatchedCommand{
		UserID: "u1", LessonID: "C1", VideoID: "V1", Timestamp: baseTime,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
