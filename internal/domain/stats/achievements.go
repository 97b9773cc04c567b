package stats

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENTS (достижения)
// ══════════════════════════════════════════════════════════════════════════════

// AchievementCode - код достижения.
type AchievementCode string

const (
	// AchievementStreak3 - серия 3 дня.
	AchievementStreak3 AchievementCode = "streak_3"
	// AchievementStreak7 - серия 7 дней.
	AchievementStreak7 AchievementCode = "streak_7"
	// AchievementStreak14 - серия 14 дней.
	AchievementStreak14 AchievementCode = "streak_14"
	// AchievementStreak30 - серия 30 дней.
	AchievementStreak30 AchievementCode = "streak_30"
	// AchievementCorrect100 - 100 правильных ответов.
	AchievementCorrect100 AchievementCode = "correct_100"
	// AchievementCorrect300 - 300 правильных ответов.
	AchievementCorrect300 AchievementCode = "correct_300"
	// AchievementCorrect600 - 600 правильных ответов.
	AchievementCorrect600 AchievementCode = "correct_600"
	// AchievementFirstPass - первая пройденная сессия.
	AchievementFirstPass AchievementCode = "first_pass"
	// AchievementPerfect - сессия без единой ошибки.
	AchievementPerfect AchievementCode = "perfect_score"
)

// AchievementDefinition описывает достижение.
type AchievementDefinition struct {
	Code      AchievementCode
	Name      string
	XPReward  int
	GemReward int
}

// AchievementDefinitions возвращает все определения достижений.
func AchievementDefinitions() []AchievementDefinition {
	return []AchievementDefinition{
		{AchievementStreak3, "Разогрев", 15, 3},
		{AchievementStreak7, "Неделя огня", 35, 7},
		{AchievementStreak14, "Две недели", 70, 14},
		{AchievementStreak30, "Железная воля", 150, 30},
		{AchievementCorrect100, "Сотня", 50, 10},
		{AchievementCorrect300, "Три сотни", 100, 20},
		{AchievementCorrect600, "Шесть сотен", 200, 40},
		{AchievementFirstPass, "Первая победа", 20, 5},
		{AchievementPerfect, "Без ошибок", 25, 5},
	}
}

// AchievementDefinition возвращает определение по коду.
func GetAchievementDefinition(code AchievementCode) (AchievementDefinition, bool) {
	for _, def := range AchievementDefinitions() {
		if def.Code == code {
			return def, true
		}
	}
	return AchievementDefinition{}, false
}

// HasAchievement проверяет, есть ли у пользователя достижение.
func (l *Ledger) HasAchievement(code AchievementCode) bool {
	for _, c := range l.UnlockedAchievements {
		if c == string(code) {
			return true
		}
	}
	return false
}

// unlockAchievement добавляет достижение, если его ещё нет.
func (l *Ledger) unlockAchievement(code AchievementCode, unlocked *[]AchievementCode) {
	if l.HasAchievement(code) {
		return
	}
	l.UnlockedAchievements = append(l.UnlockedAchievements, string(code))
	*unlocked = append(*unlocked, code)
}

// SessionFacts - факты одной сессии для проверки достижений.
type SessionFacts struct {
	// Passed - сессия пройдена.
	Passed bool

	// Perfect - все ответы правильные.
	Perfect bool
}

// CheckAchievements выполняет независимые идемпотентные проверки порогов
// и возвращает коды только что разблокированных достижений.
// Каждая проверка независима: одна сессия может открыть несколько.
func (l *Ledger) CheckAchievements(facts SessionFacts, now time.Time) []AchievementCode {
	var unlocked []AchievementCode

	streakThresholds := []struct {
		days int
		code AchievementCode
	}{
		{3, AchievementStreak3},
		{7, AchievementStreak7},
		{14, AchievementStreak14},
		{30, AchievementStreak30},
	}
	for _, t := range streakThresholds {
		if l.StreakCount >= t.days {
			l.unlockAchievement(t.code, &unlocked)
		}
	}

	correctThresholds := []struct {
		count int
		code  AchievementCode
	}{
		{100, AchievementCorrect100},
		{300, AchievementCorrect300},
		{600, AchievementCorrect600},
	}
	for _, t := range correctThresholds {
		if l.TotalCorrect >= t.count {
			l.unlockAchievement(t.code, &unlocked)
		}
	}

	if facts.Passed {
		// Идемпотентность разблокировки и даёт семантику "первого" прохода.
		l.unlockAchievement(AchievementFirstPass, &unlocked)
	}
	if facts.Perfect {
		l.unlockAchievement(AchievementPerfect, &unlocked)
	}

	if len(unlocked) > 0 {
		l.UpdatedAt = now
	}
	return unlocked
}
