package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var baseTime = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func TestComputeRegen_PartialInterval(t *testing.T) {
	anchor := baseTime
	now := anchor.Add(4 * time.Minute)

	res := ComputeRegen(anchor, now, EnergyRegenInterval, 10, EnergyCap)
	assert.Equal(t, 0, res.Units)
	assert.Equal(t, 10, res.NewValue)
	// Anchor does not move: fractional progress is preserved.
	assert.Equal(t, anchor, res.NewAnchor)
}

func TestComputeRegen_WholeUnitsMoveAnchorExactly(t *testing.T) {
	anchor := baseTime
	now := anchor.Add(17 * time.Minute) // 3 intervals + 2 minutes

	res := ComputeRegen(anchor, now, EnergyRegenInterval, 10, EnergyCap)
	assert.Equal(t, 3, res.Units)
	assert.Equal(t, 13, res.NewValue)
	assert.Equal(t, anchor.Add(15*time.Minute), res.NewAnchor)
	assert.False(t, res.AtCap)
}

func TestComputeRegen_CapsAtMaximum(t *testing.T) {
	anchor := baseTime
	now := anchor.Add(10 * time.Hour)

	res := ComputeRegen(anchor, now, EnergyRegenInterval, 20, EnergyCap)
	assert.Equal(t, 5, res.Units)
	assert.Equal(t, EnergyCap, res.NewValue)
	assert.True(t, res.AtCap)
}

func TestComputeRegen_AlreadyAtCap(t *testing.T) {
	res := ComputeRegen(baseTime, baseTime.Add(time.Hour), EnergyRegenInterval, EnergyCap, EnergyCap)
	assert.Equal(t, 0, res.Units)
	assert.True(t, res.AtCap)
}

func TestComputeEnergyRegen_NilAnchorMeansNoRegen(t *testing.T) {
	l := NewLedger("u1", baseTime)
	l.Energy = 10 // inconsistent state, but the anchor rules

	res := l.ComputeEnergyRegen(baseTime.Add(time.Hour))
	assert.Equal(t, 0, res.Units)
	assert.Equal(t, 10, res.NewValue)
}

func TestComputeHeartRegen(t *testing.T) {
	l := NewLedger("u1", baseTime)
	l.LoseHearts(2, baseTime)
	assert.Equal(t, 3, l.Hearts)
	assert.NotNil(t, l.LastHeartLostAt)

	res := l.ComputeHeartRegen(baseTime.Add(11 * time.Hour))
	assert.Equal(t, 2, res.Units)
	assert.Equal(t, 5, res.NewValue)
	assert.True(t, res.AtCap)
}

func TestSpendEnergy_SetsAnchorWhenLeavingCap(t *testing.T) {
	l := NewLedger("u1", baseTime)
	assert.Nil(t, l.EnergyAnchorAt)

	spent := l.SpendEnergy(1, baseTime)
	assert.Equal(t, 1, spent)
	assert.NotNil(t, l.EnergyAnchorAt)
	assert.Equal(t, baseTime, *l.EnergyAnchorAt)

	// Further spending does not reset the anchor.
	l.SpendEnergy(1, baseTime.Add(time.Minute))
	assert.Equal(t, baseTime, *l.EnergyAnchorAt)
}

func TestSpendEnergy_FloorsAtZero(t *testing.T) {
	l := NewLedger("u1", baseTime)
	l.Energy = 2
	anchor := baseTime.Add(-time.Hour)
	l.EnergyAnchorAt = &anchor

	spent := l.SpendEnergy(5, baseTime)
	assert.Equal(t, 2, spent)
	assert.Equal(t, 0, l.Energy)
}

func TestLoseHearts_FloorsAtZero(t *testing.T) {
	l := NewLedger("u1", baseTime)
	l.Hearts = 1

	lost := l.LoseHearts(3, baseTime)
	assert.Equal(t, 1, lost)
	assert.Equal(t, 0, l.Hearts)
	assert.False(t, l.HasHearts())

	assert.Equal(t, 0, l.LoseHearts(1, baseTime))
}
