package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilhub/tilhub-core/internal/domain/notification"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

func TestRepairStreak_RestoresBest(t *testing.T) {
	repo := newFakeStatsRepo()
	events := &eventRecorder{}
	sink := &sinkRecorder{}
	h := NewRepairStreakHandler(repo, events, sink)

	until := baseTime.Add(12 * time.Hour)
	l := stats.NewLedger("u1", baseTime.Add(-40*24*time.Hour))
	l.StreakCount = 1
	l.BestStreak = 12
	l.StreakBeforeReset = 12
	l.StreakRepairableUntil = &until
	repo.put(l)

	res, err := h.Handle(context.Background(), RepairStreakCommand{UserID: "u1", Timestamp: baseTime})
	require.NoError(t, err)
	assert.Equal(t, 12, res.RestoredStreak)

	stored := repo.stored["u1"]
	assert.Equal(t, 12, stored.StreakCount)
	assert.Nil(t, stored.StreakRepairableUntil)

	assert.Len(t, events.ofType(shared.EventStreakMaintained), 1)
	assert.Len(t, sink.ofType(notification.TypeStreakMaintained), 1)
}

func TestRepairStreak_ShortBestRestoresToTwo(t *testing.T) {
	repo := newFakeStatsRepo()
	h := NewRepairStreakHandler(repo, &eventRecorder{}, &sinkRecorder{})

	until := baseTime.Add(time.Hour)
	l := stats.NewLedger("u1", baseTime.Add(-3*24*time.Hour))
	l.StreakCount = 1
	l.BestStreak = 1
	l.StreakRepairableUntil = &until
	repo.put(l)

	res, err := h.Handle(context.Background(), RepairStreakCommand{UserID: "u1", Timestamp: baseTime})
	require.NoError(t, err)
	assert.Equal(t, 2, res.RestoredStreak)
	assert.Equal(t, 2, repo.stored["u1"].BestStreak)
}

func TestRepairStreak_NotRepairable(t *testing.T) {
	repo := newFakeStatsRepo()
	h := NewRepairStreakHandler(repo, &eventRecorder{}, &sinkRecorder{})
	ctx := context.Background()

	// No repair window at all.
	l := stats.NewLedger("u1", baseTime)
	l.StreakCount = 1
	repo.put(l)
	_, err := h.Handle(ctx, RepairStreakCommand{UserID: "u1", Timestamp: baseTime})
	assert.ErrorIs(t, err, shared.ErrStreakNotRepairable)

	// Window elapsed.
	expired := baseTime.Add(-time.Minute)
	l.StreakRepairableUntil = &expired
	repo.put(l)
	_, err = h.Handle(ctx, RepairStreakCommand{UserID: "u1", Timestamp: baseTime})
	assert.ErrorIs(t, err, shared.ErrStreakNotRepairable)
}

func TestRepairStreak_UnknownUser(t *testing.T) {
	h := NewRepairStreakHandler(newFakeStatsRepo(), &eventRecorder{}, &sinkRecorder{})

	_, err := h.Handle(context.Background(), RepairStreakCommand{UserID: "ghost", Timestamp: baseTime})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
