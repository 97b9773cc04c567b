// Package milestone содержит справочник наград за серию дней и правила их
// однократного получения. Справочник только для чтения; полученные награды
// отслеживаются в записи статистики пользователя, не здесь.
package milestone

import (
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// REWARD KINDS
// ══════════════════════════════════════════════════════════════════════════════

// RewardKind - вид награды за рубеж серии.
type RewardKind string

const (
	// RewardGems - кристаллы.
	RewardGems RewardKind = "gems"
	// RewardXPBoost - временный множитель опыта.
	RewardXPBoost RewardKind = "xp_boost"
	// RewardStreakFreeze - заморозка серии на 24 часа.
	RewardStreakFreeze RewardKind = "streak_freeze"
	// RewardBadge - значок профиля.
	RewardBadge RewardKind = "badge"
)

// Reward описывает награду одного рубежа. Рубеж может давать кристаллы и
// дополнительно буст, заморозку или значок.
type Reward struct {
	// Gems - кристаллы (0, если не начисляются).
	Gems int

	// Kind - дополнительный вид награды.
	Kind RewardKind

	// BoostMultiplier / BoostDuration - параметры буста (для RewardXPBoost).
	BoostMultiplier float64
	BoostDuration   time.Duration

	// BadgeCode - код значка (для RewardBadge).
	BadgeCode string
}

// ══════════════════════════════════════════════════════════════════════════════
// MILESTONE TABLE
// ══════════════════════════════════════════════════════════════════════════════

// Milestone - один рубеж серии.
type Milestone struct {
	// Day - порог в днях серии.
	Day int

	// Title - название для уведомлений.
	Title string

	// Active - выключенные рубежи не выдаются.
	Active bool

	// Reward - награда рубежа.
	Reward Reward
}

// All возвращает справочник рубежей, по возрастанию дней.
func All() []Milestone {
	return []Milestone{
		{Day: 3, Title: "Разогрев", Active: true, Reward: Reward{Gems: 5, Kind: RewardGems}},
		{Day: 7, Title: "Неделя", Active: true, Reward: Reward{Gems: 10, Kind: RewardStreakFreeze}},
		{Day: 14, Title: "Две недели", Active: true, Reward: Reward{Gems: 15, Kind: RewardXPBoost, BoostMultiplier: 1.5, BoostDuration: 24 * time.Hour}},
		{Day: 30, Title: "Месяц", Active: true, Reward: Reward{Gems: 30, Kind: RewardXPBoost, BoostMultiplier: 2.0, BoostDuration: 24 * time.Hour}},
		{Day: 60, Title: "Два месяца", Active: true, Reward: Reward{Gems: 50, Kind: RewardStreakFreeze}},
		{Day: 100, Title: "Сотня", Active: true, Reward: Reward{Gems: 100, Kind: RewardBadge, BadgeCode: "streak_100"}},
		{Day: 180, Title: "Полгода", Active: true, Reward: Reward{Gems: 150, Kind: RewardXPBoost, BoostMultiplier: 2.0, BoostDuration: 48 * time.Hour}},
		{Day: 365, Title: "Год", Active: true, Reward: Reward{Gems: 365, Kind: RewardBadge, BadgeCode: "streak_365"}},
	}
}

// ByDay возвращает рубеж по порогу дней.
func ByDay(day int) (Milestone, bool) {
	for _, m := range All() {
		if m.Day == day {
			return m, true
		}
	}
	return Milestone{}, false
}

// ══════════════════════════════════════════════════════════════════════════════
// CLAIM RULES
// ══════════════════════════════════════════════════════════════════════════════

// Claimable проверяет, можно ли получить награду рубежа day.
// Возвращает false (не ошибку), если рубеж неактивен, уже получен или серия
// пользователя короче порога - получение в этих случаях является no-op.
func Claimable(l *stats.Ledger, day int) (Milestone, bool) {
	m, ok := ByDay(day)
	if !ok || !m.Active {
		return Milestone{}, false
	}
	if l.HasClaimedMilestone(day) {
		return Milestone{}, false
	}
	if l.StreakCount < day {
		return Milestone{}, false
	}
	return m, true
}

// Apply применяет награду рубежа к записи пользователя и помечает рубеж
// полученным. Идемпотентность обеспечивается набором полученных рубежей.
func Apply(l *stats.Ledger, m Milestone, now time.Time) {
	if !l.ClaimMilestone(m.Day, now) {
		return
	}

	if m.Reward.Gems > 0 {
		l.Gems += m.Reward.Gems
	}

	switch m.Reward.Kind {
	case RewardXPBoost:
		l.ApplyBoost(m.Reward.BoostMultiplier, m.Reward.BoostDuration, now)
	case RewardStreakFreeze:
		l.ActivateStreakFreeze(now)
	}
	l.UpdatedAt = now
}
