// Package stats содержит каноническую запись игровой экономики пользователя:
// опыт, кристаллы, энергия, жизни, серия дней, буст опыта и лига.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// EnergyCap - максимальный запас энергии.
	EnergyCap = 25

	// EnergyRegenInterval - интервал восстановления одной единицы энергии.
	EnergyRegenInterval = 5 * time.Minute

	// HeartsCap - максимальное количество жизней.
	HeartsCap = 5

	// HeartRegenInterval - интервал восстановления одной жизни.
	HeartRegenInterval = 5 * time.Hour

	// GemsPerXPMilestone - кристалл начисляется за каждые 100 XP
	// (правило пересечения порога, не фиксированная награда за сессию).
	GemsPerXPMilestone = 100

	// DefaultDailyGoalXP - дневная цель XP по умолчанию.
	DefaultDailyGoalXP = 50

	// StreakFreezeDuration - срок действия заморозки серии.
	StreakFreezeDuration = 24 * time.Hour

	// StreakRepairWindow - окно, в котором сломанную серию можно восстановить.
	StreakRepairWindow = 24 * time.Hour
)

// ══════════════════════════════════════════════════════════════════════════════
// LEAGUE TIER
// ══════════════════════════════════════════════════════════════════════════════

// LeagueTier - текущая лига пользователя.
type LeagueTier string

const (
	TierBronze   LeagueTier = "bronze"
	TierSilver   LeagueTier = "silver"
	TierGold     LeagueTier = "gold"
	TierSapphire LeagueTier = "sapphire"
	TierRuby     LeagueTier = "ruby"
	TierDiamond  LeagueTier = "diamond"
)

// IsValid проверяет, что лига известна.
func (t LeagueTier) IsValid() bool {
	switch t {
	case TierBronze, TierSilver, TierGold, TierSapphire, TierRuby, TierDiamond:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// Ledger - каноническая запись per-user. Создаётся идемпотентно при первом
// обращении, никогда не удаляется. Мутируется всеми движками, поэтому
// горячие поля (xp, энергия, жизни) персистятся атомарными инкрементами,
// а не перезаписью документа целиком.
type Ledger struct {
	// UserID - идентификатор пользователя.
	UserID shared.UserID

	// XP - текущий опыт (сбрасываемые представления считаются отдельно).
	XP int

	// AllTimeXP - суммарный опыт за всё время.
	AllTimeXP int

	// WeeklyXP - опыт за текущую неделю лиги.
	WeeklyXP int

	// Gems - баланс кристаллов.
	Gems int

	// Energy - текущая энергия, [0, EnergyCap].
	Energy int

	// Hearts - текущие жизни, [0, HeartsCap].
	Hearts int

	// StreakCount - текущая серия дней активности.
	StreakCount int

	// BestStreak - лучшая серия за всё время.
	BestStreak int

	// LastActiveAt - время последней засчитанной активности. Двигается
	// только машиной серии, не регенератором.
	LastActiveAt time.Time

	// EnergyAnchorAt - якорь регенерации энергии. nil, когда энергия полная.
	// Регенератор двигает его ровно на целое число интервалов, чтобы не
	// терять дробный прогресс между чтениями.
	EnergyAnchorAt *time.Time

	// LastHeartLostAt - якорь регенерации жизней. nil, когда жизни полные.
	LastHeartLostAt *time.Time

	// StreakFreezeActive - активна ли заморозка серии.
	StreakFreezeActive bool

	// StreakFreezeExpiresAt - срок действия заморозки.
	StreakFreezeExpiresAt *time.Time

	// WeekendAmuletActive - активен ли амулет выходных.
	WeekendAmuletActive bool

	// XPBoostMultiplier - множитель буста опыта (1.0 = нет буста).
	XPBoostMultiplier float64

	// XPBoostExpiresAt - срок действия буста.
	XPBoostExpiresAt *time.Time

	// CurrentLeagueTier - текущая лига.
	CurrentLeagueTier LeagueTier

	// TotalCrowns - суммарное количество корон по всем навыкам.
	TotalCrowns int

	// SkillsMastered - количество навыков, доведённых до 5 короны.
	SkillsMastered int

	// TotalCorrect - суммарное количество правильных ответов.
	TotalCorrect int

	// DailyGoalXP - дневная цель XP.
	DailyGoalXP int

	// DailyGoalProgress - прогресс к дневной цели. Сбрасывается отдельной
	// ежедневной задачей, не в момент достижения.
	DailyGoalProgress int

	// ClaimedStreakMilestones - набор уже полученных наград за серию (дни).
	ClaimedStreakMilestones []int

	// UnlockedAchievements - коды полученных достижений. Повторная
	// разблокировка - no-op.
	UnlockedAchievements []string

	// StreakRepairableUntil - до какого момента сломанную серию можно
	// восстановить. Устанавливается только при сбросе в окне 24-48 часов.
	StreakRepairableUntil *time.Time

	// StreakBeforeReset - значение серии до последнего сброса.
	StreakBeforeReset int

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// NewLedger создаёт запись со значениями по умолчанию.
func NewLedger(userID shared.UserID, now time.Time) *Ledger {
	return &Ledger{
		UserID:            userID,
		XP:                0,
		Energy:            EnergyCap,
		Hearts:            HeartsCap,
		Gems:              0,
		XPBoostMultiplier: 1.0,
		CurrentLeagueTier: TierBronze,
		DailyGoalXP:       DefaultDailyGoalXP,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// XP и кристаллы
// ─────────────────────────────────────────────────────────────────────────────

// BoostActive проверяет, действует ли буст опыта в момент now.
func (l *Ledger) BoostActive(now time.Time) bool {
	return l.XPBoostExpiresAt != nil && now.Before(*l.XPBoostExpiresAt) && l.XPBoostMultiplier > 1.0
}

// EffectiveMultiplier возвращает действующий множитель опыта.
func (l *Ledger) EffectiveMultiplier(now time.Time) float64 {
	if l.BoostActive(now) {
		return l.XPBoostMultiplier
	}
	return 1.0
}

// ApplyBoost применяет буст опыта. Если буст уже активен, срок действия
// продлевается, а множитель берётся максимальный, не перезаписывается.
func (l *Ledger) ApplyBoost(multiplier float64, duration time.Duration, now time.Time) {
	expires := now.Add(duration)
	if l.BoostActive(now) {
		expires = l.XPBoostExpiresAt.Add(duration)
		if l.XPBoostMultiplier > multiplier {
			multiplier = l.XPBoostMultiplier
		}
	}
	l.XPBoostMultiplier = multiplier
	l.XPBoostExpiresAt = &expires
	l.UpdatedAt = now
}

// GemsForXPGain возвращает кристаллы за переход через пороги по 100 XP:
// floor(newXP/100) - floor(oldXP/100).
func GemsForXPGain(oldXP, newXP int) int {
	if newXP <= oldXP {
		return 0
	}
	return newXP/GemsPerXPMilestone - oldXP/GemsPerXPMilestone
}

// ApplyXP начисляет опыт во все под-счётчики и возвращает заработанные
// кристаллы по правилу пересечения порога.
func (l *Ledger) ApplyXP(amount int, now time.Time) (gems int) {
	if amount <= 0 {
		return 0
	}

	oldXP := l.XP
	l.XP += amount
	l.AllTimeXP += amount
	l.DailyGoalProgress += amount

	gems = GemsForXPGain(oldXP, l.XP)
	l.Gems += gems
	l.UpdatedAt = now
	return gems
}

// DailyGoalReached проверяет, достигнута ли дневная цель.
func (l *Ledger) DailyGoalReached() bool {
	return l.DailyGoalXP > 0 && l.DailyGoalProgress >= l.DailyGoalXP
}

// ─────────────────────────────────────────────────────────────────────────────
// Энергия и жизни
// ─────────────────────────────────────────────────────────────────────────────

// SpendEnergy списывает энергию с полом в ноль и возвращает фактическое
// списание.
func (l *Ledger) SpendEnergy(amount int, now time.Time) int {
	if amount <= 0 {
		return 0
	}
	spent := amount
	if spent > l.Energy {
		spent = l.Energy
	}
	wasFull := l.Energy >= EnergyCap
	l.Energy -= spent
	if wasFull && spent > 0 {
		// Отсчёт регенерации начинается в момент ухода с максимума.
		anchor := now
		l.EnergyAnchorAt = &anchor
	}
	l.UpdatedAt = now
	return spent
}

// LoseHearts списывает жизни за ошибки, останавливаясь на нуле.
// Возвращает фактически потерянные жизни.
func (l *Ledger) LoseHearts(count int, now time.Time) int {
	if count <= 0 || l.Hearts <= 0 {
		return 0
	}
	lost := count
	if lost > l.Hearts {
		lost = l.Hearts
	}
	l.Hearts -= lost
	if l.LastHeartLostAt == nil {
		anchor := now
		l.LastHeartLostAt = &anchor
	}
	l.UpdatedAt = now
	return lost
}

// HasHearts проверяет, есть ли у пользователя жизни.
func (l *Ledger) HasHearts() bool {
	return l.Hearts > 0
}

// ─────────────────────────────────────────────────────────────────────────────
// Заморозка серии и награды
// ─────────────────────────────────────────────────────────────────────────────

// ActivateStreakFreeze активирует заморозку серии на StreakFreezeDuration.
func (l *Ledger) ActivateStreakFreeze(now time.Time) {
	expires := now.Add(StreakFreezeDuration)
	l.StreakFreezeActive = true
	l.StreakFreezeExpiresAt = &expires
	l.UpdatedAt = now
}

// FreezeUsable проверяет, можно ли потратить заморозку в момент now.
func (l *Ledger) FreezeUsable(now time.Time) bool {
	if !l.StreakFreezeActive {
		return false
	}
	if l.StreakFreezeExpiresAt != nil && now.After(*l.StreakFreezeExpiresAt) {
		return false
	}
	return true
}

// HasClaimedMilestone проверяет, получена ли уже награда за день day.
func (l *Ledger) HasClaimedMilestone(day int) bool {
	for _, d := range l.ClaimedStreakMilestones {
		if d == day {
			return true
		}
	}
	return false
}

// ClaimMilestone добавляет день в набор полученных наград.
// Идемпотентно: повторное добавление - no-op.
func (l *Ledger) ClaimMilestone(day int, now time.Time) bool {
	if l.HasClaimedMilestone(day) {
		return false
	}
	l.ClaimedStreakMilestones = append(l.ClaimedStreakMilestones, day)
	l.UpdatedAt = now
	return true
}

// String возвращает строковое представление для логирования.
func (l *Ledger) String() string {
	return fmt.Sprintf(
		"Ledger{User: %s, XP: %d, Energy: %d, Hearts: %d, Streak: %d, Tier: %s}",
		l.UserID, l.XP, l.Energy, l.Hearts, l.StreakCount, l.CurrentLeagueTier,
	)
}

// Clone создаёт копию записи.
func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return nil
	}
	clone := *l
	if l.ClaimedStreakMilestones != nil {
		clone.ClaimedStreakMilestones = append([]int(nil), l.ClaimedStreakMilestones...)
	}
	if l.UnlockedAchievements != nil {
		clone.UnlockedAchievements = append([]string(nil), l.UnlockedAchievements...)
	}
	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Repository персистит записи. Реализация обязана предоставлять атомарный
// upsert для GetOrCreate и ограниченные атомарные инкременты для горячих
// полей - никаких read-modify-write для энергии, жизней и XP.
type Repository interface {
	// GetOrCreate возвращает запись пользователя, создавая её со значениями
	// по умолчанию при первом обращении. Гонки первого обращения не должны
	// приводить к дубликатам.
	GetOrCreate(ctx context.Context, userID shared.UserID) (*Ledger, error)

	// Get возвращает запись или shared.ErrNotFound.
	Get(ctx context.Context, userID shared.UserID) (*Ledger, error)

	// Update персистит холодные поля записи целиком.
	Update(ctx context.Context, l *Ledger) error

	// AddEnergy атомарно изменяет энергию в пределах [0, cap] и возвращает
	// новое значение. Инкремент ограничен на стороне хранилища, чтобы не
	// затирать конкурентные записи.
	AddEnergy(ctx context.Context, userID shared.UserID, delta, cap int) (int, error)

	// AddHearts атомарно изменяет жизни в пределах [0, cap] и возвращает
	// новое значение.
	AddHearts(ctx context.Context, userID shared.UserID, delta, cap int) (int, error)

	// AddXP атомарно прибавляет опыт к xp, all_time_xp, weekly_xp и
	// daily_goal_progress, а кристаллы к gems. Возвращает свежую запись.
	AddXP(ctx context.Context, userID shared.UserID, xp, gems int) (*Ledger, error)

	// SetRegenAnchors обновляет якоря регенерации: energy_anchor_at и
	// last_heart_lost_at. clearEnergyAnchor/clearHeartAnchor обнуляют
	// соответствующий якорь, когда ресурс восстановился полностью.
	SetRegenAnchors(ctx context.Context, userID shared.UserID, energyAnchor, heartAnchor *time.Time, clearEnergyAnchor, clearHeartAnchor bool) error

	// ResetDailyGoals обнуляет daily_goal_progress у всех пользователей.
	// Вызывается фоновой задачей на границе суток UTC. Возвращает число
	// затронутых записей.
	ResetDailyGoals(ctx context.Context) (int, error)

	// ResetWeeklyXP обнуляет weekly_xp пользователя. Вызывается ротацией
	// лиг; как и инкременты, идёт отдельным атомарным запросом, потому что
	// weekly_xp - горячее поле и Update его не трогает.
	ResetWeeklyXP(ctx context.Context, userID shared.UserID) error
}
