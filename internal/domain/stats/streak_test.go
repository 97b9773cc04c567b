package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

func TestAdvanceStreak_FirstActivity(t *testing.T) {
	l := NewLedger("u1", baseTime)

	change := l.AdvanceStreak(baseTime)
	assert.Equal(t, StreakStarted, change.Outcome)
	assert.Equal(t, 1, change.Current)
	assert.Equal(t, 1, l.StreakCount)
	assert.Equal(t, 1, l.BestStreak)
	assert.Equal(t, baseTime, l.LastActiveAt)
}

func TestAdvanceStreak_SameDayUnchanged(t *testing.T) {
	l := NewLedger("u1", baseTime)
	l.AdvanceStreak(baseTime)

	change := l.AdvanceStreak(baseTime.Add(3 * time.Hour))
	assert.Equal(t, StreakUnchanged, change.Outcome)
	assert.Equal(t, 1, l.StreakCount)
	// Anchor stays on the first counted activity of the day.
	assert.Equal(t, baseTime, l.LastActiveAt)
}

func TestAdvanceStreak_NextCalendarDayWithin24h(t *testing.T) {
	// 22:00 Monday → 08:00 Tuesday: 10 hours apart, different UTC day.
	monday := time.Date(2025, 6, 2, 22, 0, 0, 0, time.UTC)
	tuesday := time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC)

	l := NewLedger("u1", monday)
	l.AdvanceStreak(monday)

	change := l.AdvanceStreak(tuesday)
	assert.Equal(t, StreakMaintained, change.Outcome)
	assert.Equal(t, 2, l.StreakCount)
}

func TestAdvanceStreak_Hour30WithoutProtectionBreaks(t *testing.T) {
	l := NewLedger("u1", baseTime)
	l.AdvanceStreak(baseTime)
	l.AdvanceStreak(baseTime.Add(20 * time.Hour))
	assert.Equal(t, 2, l.StreakCount)

	last := l.LastActiveAt
	change := l.AdvanceStreak(last.Add(30 * time.Hour))
	assert.Equal(t, StreakBroken, change.Outcome)
	assert.Equal(t, 2, change.Previous)
	assert.Equal(t, 1, l.StreakCount)
	assert.Equal(t, 2, l.StreakBeforeReset)
	// A break in the 24-48h window leaves a repair window.
	assert.NotNil(t, l.StreakRepairableUntil)
}

func TestAdvanceStreak_Hour30FreezeConsumed(t *testing.T) {
	l := NewLedger("u1", baseTime)
	l.AdvanceStreak(baseTime)
	last := l.LastActiveAt

	now := last.Add(30 * time.Hour)
	l.ActivateStreakFreeze(now.Add(-time.Hour))

	change := l.AdvanceStreak(now)
	assert.Equal(t, StreakProtected, change.Outcome)
	assert.True(t, change.FreezeConsumed)
	assert.Equal(t, 2, l.StreakCount)
	assert.False(t, l.StreakFreezeActive)
}

func TestAdvanceStreak_Hour30AmuletSurvives(t *testing.T) {
	l := NewLedger("u1", baseTime)
	l.AdvanceStreak(baseTime)
	l.WeekendAmuletActive = true

	change := l.AdvanceStreak(l.LastActiveAt.Add(30 * time.Hour))
	assert.Equal(t, StreakProtected, change.Outcome)
	assert.False(t, change.AmuletConsumed)
	assert.Equal(t, 2, l.StreakCount)
	assert.True(t, l.WeekendAmuletActive)
}

func TestAdvanceStreak_Hour50AmuletConsumed(t *testing.T) {
	l := NewLedger("u1", baseTime)
	l.AdvanceStreak(baseTime)
	l.WeekendAmuletActive = true

	change := l.AdvanceStreak(l.LastActiveAt.Add(50 * time.Hour))
	assert.Equal(t, StreakProtected, change.Outcome)
	assert.True(t, change.AmuletConsumed)
	assert.Equal(t, 2, l.StreakCount)
	assert.False(t, l.WeekendAmuletActive)
}

func TestAdvanceStreak_Hour50WithoutProtectionNotRepairable(t *testing.T) {
	l := NewLedger("u1", baseTime)
	l.AdvanceStreak(baseTime)

	change := l.AdvanceStreak(l.LastActiveAt.Add(50 * time.Hour))
	assert.Equal(t, StreakBroken, change.Outcome)
	assert.Equal(t, 1, l.StreakCount)
	assert.Nil(t, l.StreakRepairableUntil)
}

func TestAdvanceStreak_ExpiredFreezeDoesNotProtect(t *testing.T) {
	l := NewLedger("u1", baseTime)
	l.AdvanceStreak(baseTime)
	l.ActivateStreakFreeze(baseTime)

	// 30 hours later the 24h freeze has already expired.
	change := l.AdvanceStreak(l.LastActiveAt.Add(30 * time.Hour))
	assert.Equal(t, StreakBroken, change.Outcome)
}

func TestAdvanceStreak_MilestoneHit(t *testing.T) {
	l := NewLedger("u1", baseTime)
	l.StreakCount = 6
	l.BestStreak = 6
	l.LastActiveAt = baseTime

	change := l.AdvanceStreak(baseTime.Add(25 * time.Hour).Add(-2 * time.Hour))
	assert.Equal(t, 7, l.StreakCount)
	assert.Equal(t, 7, change.MilestoneHit)
}

func TestRepairStreak(t *testing.T) {
	l := NewLedger("u1", baseTime)
	l.AdvanceStreak(baseTime)
	l.StreakCount = 9
	l.BestStreak = 9
	l.LastActiveAt = baseTime

	broken := l.AdvanceStreak(baseTime.Add(30 * time.Hour))
	assert.Equal(t, StreakBroken, broken.Outcome)

	restored, err := l.RepairStreak(baseTime.Add(40 * time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, 9, restored)
	assert.Equal(t, 9, l.StreakCount)
	assert.Nil(t, l.StreakRepairableUntil)

	// A second repair has nothing to restore.
	_, err = l.RepairStreak(baseTime.Add(41 * time.Hour))
	assert.ErrorIs(t, err, shared.ErrStreakNotRepairable)
}

func TestRepairStreak_WindowExpired(t *testing.T) {
	l := NewLedger("u1", baseTime)
	l.AdvanceStreak(baseTime)
	l.StreakCount = 5
	l.BestStreak = 5
	l.LastActiveAt = baseTime
	l.AdvanceStreak(baseTime.Add(30 * time.Hour))

	_, err := l.RepairStreak(baseTime.Add(80 * time.Hour))
	assert.ErrorIs(t, err, shared.ErrStreakNotRepairable)
}

func TestRepairStreak_NotBrokenStreak(t *testing.T) {
	l := NewLedger("u1", baseTime)
	l.AdvanceStreak(baseTime)

	_, err := l.RepairStreak(baseTime.Add(time.Hour))
	assert.ErrorIs(t, err, shared.ErrStreakNotRepairable)
}
