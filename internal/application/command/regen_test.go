package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

func TestRegenApplier_NoAnchorsIsNoop(t *testing.T) {
	repo := newFakeStatsRepo()
	applier := NewRegenApplier(repo, &eventRecorder{})

	l := stats.NewLedger("u1", baseTime)
	repo.put(l)

	require.NoError(t, applier.Apply(context.Background(), l, baseTime.Add(time.Hour)))
	assert.Equal(t, 0, repo.anchorCalls)
}

func TestRegenApplier_EnergyWholeIntervals(t *testing.T) {
	repo := newFakeStatsRepo()
	applier := NewRegenApplier(repo, &eventRecorder{})

	// 17 minutes at one unit per 5 minutes: 3 units, 2 minutes carry over.
	anchor := baseTime.Add(-17 * time.Minute)
	l := stats.NewLedger("u1", baseTime.Add(-time.Hour))
	l.Energy = 10
	l.EnergyAnchorAt = &anchor
	repo.put(l)

	require.NoError(t, applier.Apply(context.Background(), l, baseTime))

	assert.Equal(t, 13, l.Energy)
	require.NotNil(t, l.EnergyAnchorAt)
	assert.Equal(t, anchor.Add(3*stats.EnergyRegenInterval), *l.EnergyAnchorAt)

	stored := repo.stored["u1"]
	assert.Equal(t, 13, stored.Energy)
	assert.Equal(t, *l.EnergyAnchorAt, *stored.EnergyAnchorAt)
}

func TestRegenApplier_CapClearsAnchor(t *testing.T) {
	repo := newFakeStatsRepo()
	events := &eventRecorder{}
	applier := NewRegenApplier(repo, events)

	// Long enough for both resources to refill completely.
	anchor := baseTime.Add(-48 * time.Hour)
	l := stats.NewLedger("u1", baseTime.Add(-72*time.Hour))
	l.Energy = 24
	l.Hearts = 2
	l.EnergyAnchorAt = &anchor
	l.LastHeartLostAt = &anchor
	repo.put(l)

	require.NoError(t, applier.Apply(context.Background(), l, baseTime))

	assert.Equal(t, stats.EnergyCap, l.Energy)
	assert.Equal(t, stats.HeartsCap, l.Hearts)
	assert.Nil(t, l.EnergyAnchorAt)
	assert.Nil(t, l.LastHeartLostAt)

	stored := repo.stored["u1"]
	assert.Nil(t, stored.EnergyAnchorAt)
	assert.Nil(t, stored.LastHeartLostAt)

	assert.Len(t, events.ofType(shared.EventHeartGained), 1)
}
