package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tilhub/tilhub-core/internal/domain/content"
)

func TestAddWatchedVideo_SetSemantics(t *testing.T) {
	now := time.Now()
	rec := NewRecord("r1", "u1", lessonNode("lesson-1", 1), now)

	assert.True(t, rec.AddWatchedVideo("v1", now))
	assert.False(t, rec.AddWatchedVideo("v1", now))
	assert.True(t, rec.AddWatchedVideo("v2", now))
	assert.Len(t, rec.WatchedVideos, 2)
}

func TestCoversAll(t *testing.T) {
	now := time.Now()
	rec := NewRecord("r1", "u1", lessonNode("lesson-1", 1), now)
	forLesson := []content.Node{
		{ID: "v1", Kind: content.KindVideo, Active: true},
		{ID: "v2", Kind: content.KindVideo, Active: true},
	}

	rec.AddWatchedVideo("v1", now)
	assert.False(t, rec.CoversAll(forLesson))

	rec.AddWatchedVideo("v2", now)
	assert.True(t, rec.CoversAll(forLesson))

	// Extra watched videos (e.g. from a since-deactivated set) do not hurt.
	rec.AddWatchedVideo("v-old", now)
	assert.True(t, rec.CoversAll(forLesson))
}

func TestMarkLessonComplete_FirstTransitionOnly(t *testing.T) {
	now := time.Now()
	rec := NewRecord("r1", "u1", lessonNode("lesson-1", 1), now)

	assert.True(t, rec.MarkLessonComplete(now))
	assert.True(t, rec.Completed())
	assert.NotNil(t, rec.CompletedAt)
	assert.False(t, rec.MarkLessonComplete(now.Add(time.Hour)))
}

func TestRecordQuizResult(t *testing.T) {
	now := time.Now()
	node := content.Node{ID: "cat-1", Kind: content.KindCategory, Order: 1, Active: true}
	rec := NewRecord("r1", "u1", node, now)

	assert.False(t, rec.RecordQuizResult(0.5, false, now))
	assert.Equal(t, 0.5, rec.FinalQuizBestScore)
	assert.False(t, rec.Completed())

	assert.True(t, rec.RecordQuizResult(0.8, true, now))
	assert.True(t, rec.Completed())

	// Re-passing is not a new transition; best score stays monotonic.
	assert.False(t, rec.RecordQuizResult(0.6, true, now))
	assert.Equal(t, 0.8, rec.FinalQuizBestScore)
}

func TestCompleted_ByKind(t *testing.T) {
	lvl := &Record{NodeKind: content.KindLevel, AllCategoriesCompleted: true}
	cat := &Record{NodeKind: content.KindCategory, FinalQuizPassed: true}
	les := &Record{NodeKind: content.KindLesson, AllVideosWatched: true}

	assert.True(t, lvl.Completed())
	assert.True(t, cat.Completed())
	assert.True(t, les.Completed())
	assert.False(t, (&Record{NodeKind: content.KindVideo}).Completed())
}
