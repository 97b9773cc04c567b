package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilhub/tilhub-core/internal/domain/content"
	"github.com/tilhub/tilhub-core/internal/domain/progress"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// categoryTree: two levels, the first with two categories.
func categoryTree() *fakeContentStore {
	return newFakeContentStore(
		content.Node{ID: "L1", Kind: content.KindLevel, Order: 1, Active: true, Title: "Level 1"},
		content.Node{ID: "L2", Kind: content.KindLevel, Order: 2, Active: true, Title: "Level 2"},
		content.Node{ID: "C1", Kind: content.KindCategory, ParentID: "L1", Order: 1, Active: true, Title: "Basics"},
		content.Node{ID: "C2", Kind: content.KindCategory, ParentID: "L1", Order: 2, Active: true, Title: "Grammar"},
		content.Node{ID: "C3", Kind: content.KindCategory, ParentID: "L2", Order: 1, Active: true, Title: "Advanced"},
	)
}

type submitQuizFixture struct {
	store        *fakeContentStore
	progressRepo *fakeProgressRepo
	events       *eventRecorder
	sink         *sinkRecorder
	handler      *SubmitFinalQuizHandler
}

func newSubmitQuizFixture() *submitQuizFixture {
	f := &submitQuizFixture{
		store:        categoryTree(),
		progressRepo: newFakeProgressRepo(),
		events:       &eventRecorder{},
		sink:         &sinkRecorder{},
	}
	cascade := NewCascadeEngine(f.store, f.progressRepo, f.events, f.sink)
	f.handler = NewSubmitFinalQuizHandler(f.store, f.progressRepo, cascade)
	return f
}

func (f *submitQuizFixture) submit(t *testing.T, categoryID string, score float64, passed bool) *SubmitFinalQuizResult {
	t.Helper()
	res, err := f.handler.Handle(context.Background(), SubmitFinalQuizCommand{
		UserID:     "u1",
		CategoryID: categoryID,
		Score:      score,
		Passed:     passed,
		Timestamp:  baseTime,
	})
	require.NoError(t, err)
	return res
}

func TestSubmitFinalQuiz_Validation(t *testing.T) {
	f := newSubmitQuizFixture()
	ctx := context.Background()

	_, err := f.handler.Handle(ctx, SubmitFinalQuizCommand{CategoryID: "C1", Score: 0.5})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = f.handler.Handle(ctx, SubmitFinalQuizCommand{UserID: "u1", CategoryID: "C1", Score: 1.5})
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)

	_, err = f.handler.Handle(ctx, SubmitFinalQuizCommand{UserID: "u1", CategoryID: "L1", Score: 0.5})
	assert.ErrorIs(t, err, shared.ErrInvalidInput) // wrong node kind
}

func TestSubmitFinalQuiz_FirstPassUnlocksNextCategory(t *testing.T) {
	f := newSubmitQuizFixture()

	res := f.submit(t, "C1", 0.9, true)

	assert.True(t, res.CategoryCompleted)
	assert.Equal(t, 0.9, res.BestScore)
	require.Len(t, res.Unlocked, 1)
	assert.Equal(t, shared.NodeID("C2"), res.Unlocked[0].ID)

	rec, err := f.progressRepo.Get(context.Background(), "u1", "C1")
	require.NoError(t, err)
	assert.True(t, rec.FinalQuizPassed)
	assert.NotNil(t, rec.CompletedAt)
}

func TestSubmitFinalQuiz_BestScoreMonotonic(t *testing.T) {
	f := newSubmitQuizFixture()

	res := f.submit(t, "C1", 0.5, false)
	assert.False(t, res.CategoryCompleted)
	assert.Equal(t, 0.5, res.BestScore)
	assert.Empty(t, res.Unlocked)

	// A worse attempt never lowers the best score.
	res = f.submit(t, "C1", 0.4, false)
	assert.Equal(t, 0.5, res.BestScore)

	res = f.submit(t, "C1", 0.8, true)
	assert.True(t, res.CategoryCompleted)
	assert.Equal(t, 0.8, res.BestScore)

	// A repeat pass completes nothing new but re-runs the cascade.
	res = f.submit(t, "C1", 0.7, true)
	assert.False(t, res.CategoryCompleted)
	assert.Equal(t, 0.8, res.BestScore)
	assert.Empty(t, res.Unlocked)

	assert.Len(t, f.events.ofType(shared.EventContentUnlocked), 1)
}

func TestSubmitFinalQuiz_LastCategoryCompletesLevel(t *testing.T) {
	f := newSubmitQuizFixture()
	ctx := context.Background()

	// C1 is already passed.
	c1, err := f.store.Get(ctx, "C1")
	require.NoError(t, err)
	done := progress.NewRecord("r1", "u1", *c1, baseTime)
	done.RecordQuizResult(1.0, true, baseTime)
	f.progressRepo.put(done)

	res := f.submit(t, "C2", 0.85, true)

	assert.True(t, res.CategoryCompleted)
	require.Len(t, res.Unlocked, 2)
	assert.Equal(t, shared.NodeID("L2"), res.Unlocked[0].ID)
	assert.Equal(t, shared.NodeID("C3"), res.Unlocked[1].ID)

	levelRec, err := f.progressRepo.Get(ctx, "u1", "L1")
	require.NoError(t, err)
	assert.True(t, levelRec.AllCategoriesCompleted)
}

func TestSubmitFinalQuiz_LockedCategory(t *testing.T) {
	f := newSubmitQuizFixture()

	_, err := f.handler.Handle(context.Background(), SubmitFinalQuizCommand{
		UserID: "u1", CategoryID: "C2", Score: 0.9, Passed: true, Timestamp: baseTime,
	})
	assert.ErrorIs(t, err, shared.ErrContentLocked)
}
