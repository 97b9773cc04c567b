package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckAchievements_MultipleInOneSession(t *testing.T) {
	l := NewLedger("u1", baseTime)
	l.StreakCount = 3
	l.TotalCorrect = 100

	unlocked := l.CheckAchievements(SessionFacts{Passed: true, Perfect: true}, baseTime)
	assert.ElementsMatch(t, []AchievementCode{
		AchievementStreak3,
		AchievementCorrect100,
		AchievementFirstPass,
		AchievementPerfect,
	}, unlocked)
}

func TestCheckAchievements_Idempotent(t *testing.T) {
	l := NewLedger("u1", baseTime)
	l.StreakCount = 7

	first := l.CheckAchievements(SessionFacts{}, baseTime)
	assert.ElementsMatch(t, []AchievementCode{AchievementStreak3, AchievementStreak7}, first)

	second := l.CheckAchievements(SessionFacts{}, baseTime)
	assert.Empty(t, second)
}

func TestCheckAchievements_FirstPassOnlyOnce(t *testing.T) {
	l := NewLedger("u1", baseTime)

	first := l.CheckAchievements(SessionFacts{Passed: true}, baseTime)
	assert.Contains(t, first, AchievementFirstPass)

	second := l.CheckAchievements(SessionFacts{Passed: true}, baseTime)
	assert.NotContains(t, second, AchievementFirstPass)
}

func TestGetAchievementDefinition(t *testing.T) {
	def, ok := GetAchievementDefinition(AchievementStreak30)
	assert.True(t, ok)
	assert.Equal(t, 150, def.XPReward)

	_, ok = GetAchievementDefinition("unknown")
	assert.False(t, ok)
}
