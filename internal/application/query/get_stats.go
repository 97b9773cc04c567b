package query

import (
	"context"
	"fmt"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STATS QUERY
// Возвращает снимок записи статистики с учётом ленивой регенерации.
// Чтение чистое: восстановление только вычисляется, запись не мутируется -
// персистентное применение выполняет командный слой.
// ══════════════════════════════════════════════════════════════════════════════

// GetStatsQuery содержит параметры запроса статистики.
type GetStatsQuery struct {
	// UserID - идентификатор пользователя.
	UserID string
}

// Validate проверяет корректность параметров запроса.
func (q GetStatsQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("stats", "GetStats", shared.ErrInvalidInput, "user_id is required")
	}
	return nil
}

// StatsDTO - снимок статистики пользователя.
type StatsDTO struct {
	UserID            string     `json:"user_id"`
	XP                int        `json:"xp"`
	AllTimeXP         int        `json:"all_time_xp"`
	WeeklyXP          int        `json:"weekly_xp"`
	Gems              int        `json:"gems"`
	Energy            int        `json:"energy"`
	Hearts            int        `json:"hearts"`
	StreakCount       int        `json:"streak_count"`
	BestStreak        int        `json:"best_streak"`
	CurrentLeagueTier string     `json:"current_league_tier"`
	TotalCrowns       int        `json:"total_crowns"`
	SkillsMastered    int        `json:"skills_mastered"`
	DailyGoalXP       int        `json:"daily_goal_xp"`
	DailyGoalProgress int        `json:"daily_goal_progress"`
	BoostMultiplier   float64    `json:"boost_multiplier"`
	BoostExpiresAt    *time.Time `json:"boost_expires_at,omitempty"`

	// NextEnergyAt / NextHeartAt - когда восстановится следующая единица.
	NextEnergyAt *time.Time `json:"next_energy_at,omitempty"`
	NextHeartAt  *time.Time `json:"next_heart_at,omitempty"`
}

// GetStatsHandler обрабатывает GetStatsQuery.
type GetStatsHandler struct {
	statsRepo stats.Repository
}

// NewGetStatsHandler создаёт новый GetStatsHandler.
func NewGetStatsHandler(statsRepo stats.Repository) *GetStatsHandler {
	return &GetStatsHandler{statsRepo: statsRepo}
}

// Handle выполняет запрос статистики.
func (h *GetStatsHandler) Handle(ctx context.Context, q GetStatsQuery) (*StatsDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	l, err := h.statsRepo.GetOrCreate(ctx, shared.UserID(q.UserID))
	if err != nil {
		return nil, fmt.Errorf("get_stats: failed to get ledger: %w", err)
	}

	now := time.Now().UTC()

	// Регенерация вычисляется на лету, без записи.
	energy := l.ComputeEnergyRegen(now)
	hearts := l.ComputeHeartRegen(now)

	dto := &StatsDTO{
		UserID:            l.UserID.String(),
		XP:                l.XP,
		AllTimeXP:         l.AllTimeXP,
		WeeklyXP:          l.WeeklyXP,
		Gems:              l.Gems,
		Energy:            energy.NewValue,
		Hearts:            hearts.NewValue,
		StreakCount:       l.StreakCount,
		BestStreak:        l.BestStreak,
		CurrentLeagueTier: string(l.CurrentLeagueTier),
		TotalCrowns:       l.TotalCrowns,
		SkillsMastered:    l.SkillsMastered,
		DailyGoalXP:       l.DailyGoalXP,
		DailyGoalProgress: l.DailyGoalProgress,
		BoostMultiplier:   l.EffectiveMultiplier(now),
		BoostExpiresAt:    l.XPBoostExpiresAt,
	}

	if !energy.AtCap {
		next := energy.NewAnchor.Add(stats.EnergyRegenInterval)
		dto.NextEnergyAt = &next
	}
	if !hearts.AtCap {
		next := hearts.NewAnchor.Add(stats.HeartRegenInterval)
		dto.NextHeartAt = &next
	}
	return dto, nil
}
