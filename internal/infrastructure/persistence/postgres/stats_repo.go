package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/domain/stats"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATS REPOSITORY IMPLEMENTATION
// Горячие счётчики (энергия, жизни, опыт) меняются атомарными инкрементами
// на стороне базы; холодные поля пишутся целиком через Update.
// ══════════════════════════════════════════════════════════════════════════════

// StatsRepository implements stats.Repository for PostgreSQL.
type StatsRepository struct {
	conn *Connection
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(conn *Connection) *StatsRepository {
	return &StatsRepository{conn: conn}
}

const ledgerColumns = `
	user_id, xp, all_time_xp, weekly_xp, gems, energy, hearts,
	streak_count, best_streak, last_active_at, energy_anchor_at,
	last_heart_lost_at, streak_freeze_active, streak_freeze_expires_at,
	weekend_amulet_active, xp_boost_multiplier, xp_boost_expires_at,
	current_league_tier, total_crowns, skills_mastered, total_correct,
	daily_goal_xp, daily_goal_progress, claimed_streak_milestones,
	unlocked_achievements, streak_repairable_until, streak_before_reset,
	created_at, updated_at
`

// GetOrCreate returns the user's ledger, inserting defaults on first access.
// Concurrent first-access races resolve through ON CONFLICT DO NOTHING.
func (r *StatsRepository) GetOrCreate(ctx context.Context, userID shared.UserID) (*stats.Ledger, error) {
	now := time.Now().UTC()
	fresh := stats.NewLedger(userID, now)

	query := `
		INSERT INTO stats_ledgers (
			user_id, energy, hearts, xp_boost_multiplier,
			current_league_tier, daily_goal_xp, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO NOTHING
	`

	_, err := r.conn.Exec(ctx, query,
		fresh.UserID.String(),
		fresh.Energy,
		fresh.Hearts,
		fresh.XPBoostMultiplier,
		string(fresh.CurrentLeagueTier),
		fresh.DailyGoalXP,
		fresh.CreatedAt,
		fresh.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ledger: %w", err)
	}

	return r.Get(ctx, userID)
}

// Get returns the user's ledger.
func (r *StatsRepository) Get(ctx context.Context, userID shared.UserID) (*stats.Ledger, error) {
	query := fmt.Sprintf("SELECT %s FROM stats_ledgers WHERE user_id = $1", ledgerColumns)

	row := r.conn.QueryRow(ctx, query, userID.String())
	l, err := scanLedger(row)
	if IsNoRows(err) {
		return nil, shared.NewDomainError("stats", "Get", shared.ErrNotFound, "ledger not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}
	return l, nil
}

// Update persists the ledger's cold fields. Hot counters (xp, gems, energy,
// hearts, weekly_xp, daily_goal_progress) are deliberately excluded so that
// concurrent atomic increments are never overwritten by a stale read.
func (r *StatsRepository) Update(ctx context.Context, l *stats.Ledger) error {
	query := `
		UPDATE stats_ledgers SET
			streak_count = $1,
			best_streak = $2,
			last_active_at = $3,
			streak_freeze_active = $4,
			streak_freeze_expires_at = $5,
			weekend_amulet_active = $6,
			xp_boost_multiplier = $7,
			xp_boost_expires_at = $8,
			current_league_tier = $9,
			total_crowns = $10,
			skills_mastered = $11,
			total_correct = $12,
			daily_goal_xp = $13,
			claimed_streak_milestones = $14,
			unlocked_achievements = $15,
			streak_repairable_until = $16,
			streak_before_reset = $17,
			updated_at = $18
		WHERE user_id = $19
	`

	milestonesJSON, err := json.Marshal(intSlice(l.ClaimedStreakMilestones))
	if err != nil {
		return fmt.Errorf("failed to marshal claimed milestones: %w", err)
	}
	achievementsJSON, err := json.Marshal(stringSlice(l.UnlockedAchievements))
	if err != nil {
		return fmt.Errorf("failed to marshal achievements: %w", err)
	}

	var lastActive *time.Time
	if !l.LastActiveAt.IsZero() {
		lastActive = &l.LastActiveAt
	}

	tag, err := r.conn.Exec(ctx, query,
		l.StreakCount,
		l.BestStreak,
		lastActive,
		l.StreakFreezeActive,
		l.StreakFreezeExpiresAt,
		l.WeekendAmuletActive,
		l.XPBoostMultiplier,
		l.XPBoostExpiresAt,
		string(l.CurrentLeagueTier),
		l.TotalCrowns,
		l.SkillsMastered,
		l.TotalCorrect,
		l.DailyGoalXP,
		milestonesJSON,
		achievementsJSON,
		l.StreakRepairableUntil,
		l.StreakBeforeReset,
		time.Now().UTC(),
		l.UserID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update ledger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewDomainError("stats", "Update", shared.ErrNotFound, "ledger not found")
	}
	return nil
}

// AddEnergy atomically adjusts energy within [0, cap] and returns the new value.
func (r *StatsRepository) AddEnergy(ctx context.Context, userID shared.UserID, delta, cap int) (int, error) {
	query := `
		UPDATE stats_ledgers
		SET energy = LEAST($3, GREATEST(0, energy + $2)), updated_at = NOW()
		WHERE user_id = $1
		RETURNING energy
	`

	var energy int
	err := r.conn.QueryRow(ctx, query, userID.String(), delta, cap).Scan(&energy)
	if IsNoRows(err) {
		return 0, shared.NewDomainError("stats", "AddEnergy", shared.ErrNotFound, "ledger not found")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add energy: %w", err)
	}
	return energy, nil
}

// AddHearts atomically adjusts hearts within [0, cap] and returns the new value.
func (r *StatsRepository) AddHearts(ctx context.Context, userID shared.UserID, delta, cap int) (int, error) {
	query := `
		UPDATE stats_ledgers
		SET hearts = LEAST($3, GREATEST(0, hearts + $2)), updated_at = NOW()
		WHERE user_id = $1
		RETURNING hearts
	`

	var hearts int
	err := r.conn.QueryRow(ctx, query, userID.String(), delta, cap).Scan(&hearts)
	if IsNoRows(err) {
		return 0, shared.NewDomainError("stats", "AddHearts", shared.ErrNotFound, "ledger not found")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add hearts: %w", err)
	}
	return hearts, nil
}

// AddXP atomically credits XP to every XP view plus gems, returning the
// fresh row.
func (r *StatsRepository) AddXP(ctx context.Context, userID shared.UserID, xp, gems int) (*stats.Ledger, error) {
	query := fmt.Sprintf(`
		UPDATE stats_ledgers SET
			xp = xp + $2,
			all_time_xp = all_time_xp + $2,
			weekly_xp = weekly_xp + $2,
			daily_goal_progress = daily_goal_progress + $2,
			gems = gems + $3,
			updated_at = NOW()
		WHERE user_id = $1
		RETURNING %s
	`, ledgerColumns)

	row := r.conn.QueryRow(ctx, query, userID.String(), xp, gems)
	l, err := scanLedger(row)
	if IsNoRows(err) {
		return nil, shared.NewDomainError("stats", "AddXP", shared.ErrNotFound, "ledger not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add xp: %w", err)
	}
	return l, nil
}

// SetRegenAnchors updates the regeneration anchors. A nil anchor with the
// matching clear flag unset leaves the stored value untouched.
func (r *StatsRepository) SetRegenAnchors(ctx context.Context, userID shared.UserID, energyAnchor, heartAnchor *time.Time, clearEnergyAnchor, clearHeartAnchor bool) error {
	query := `
		UPDATE stats_ledgers SET
			energy_anchor_at = CASE
				WHEN $2 THEN NULL
				WHEN $3::timestamptz IS NOT NULL THEN $3
				ELSE energy_anchor_at
			END,
			last_heart_lost_at = CASE
				WHEN $4 THEN NULL
				WHEN $5::timestamptz IS NOT NULL THEN $5
				ELSE last_heart_lost_at
			END,
			updated_at = NOW()
		WHERE user_id = $1
	`

	tag, err := r.conn.Exec(ctx, query,
		userID.String(),
		clearEnergyAnchor,
		energyAnchor,
		clearHeartAnchor,
		heartAnchor,
	)
	if err != nil {
		return fmt.Errorf("failed to set regen anchors: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewDomainError("stats", "SetRegenAnchors", shared.ErrNotFound, "ledger not found")
	}
	return nil
}

// ResetDailyGoals обнуляет daily_goal_progress у всех пользователей.
func (r *StatsRepository) ResetDailyGoals(ctx context.Context) (int, error) {
	query := `
		UPDATE stats_ledgers SET
			daily_goal_progress = 0,
			updated_at = NOW()
		WHERE daily_goal_progress > 0
	`

	tag, err := r.conn.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to reset daily goals: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ResetWeeklyXP обнуляет weekly_xp пользователя на ротации лиг. Идёт мимо
// Update: weekly_xp - горячее поле, пишется только атомарными запросами.
func (r *StatsRepository) ResetWeeklyXP(ctx context.Context, userID shared.UserID) error {
	query := `
		UPDATE stats_ledgers SET
			weekly_xp = 0,
			updated_at = NOW()
		WHERE user_id = $1
	`

	tag, err := r.conn.Exec(ctx, query, userID.String())
	if err != nil {
		return fmt.Errorf("failed to reset weekly xp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewDomainError("stats", "ResetWeeklyXP", shared.ErrNotFound, "ledger not found")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func scanLedger(row pgx.Row) (*stats.Ledger, error) {
	var l stats.Ledger
	var userID, tier string
	var lastActive *time.Time
	var milestonesJSON, achievementsJSON []byte

	err := row.Scan(
		&userID,
		&l.XP,
		&l.AllTimeXP,
		&l.WeeklyXP,
		&l.Gems,
		&l.Energy,
		&l.Hearts,
		&l.StreakCount,
		&l.BestStreak,
		&lastActive,
		&l.EnergyAnchorAt,
		&l.LastHeartLostAt,
		&l.StreakFreezeActive,
		&l.StreakFreezeExpiresAt,
		&l.WeekendAmuletActive,
		&l.XPBoostMultiplier,
		&l.XPBoostExpiresAt,
		&tier,
		&l.TotalCrowns,
		&l.SkillsMastered,
		&l.TotalCorrect,
		&l.DailyGoalXP,
		&l.DailyGoalProgress,
		&milestonesJSON,
		&achievementsJSON,
		&l.StreakRepairableUntil,
		&l.StreakBeforeReset,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.UserID = shared.UserID(userID)
	l.CurrentLeagueTier = stats.LeagueTier(tier)
	if lastActive != nil {
		l.LastActiveAt = *lastActive
	}
	if len(milestonesJSON) > 0 {
		if err := json.Unmarshal(milestonesJSON, &l.ClaimedStreakMilestones); err != nil {
			return nil, fmt.Errorf("failed to unmarshal claimed milestones: %w", err)
		}
	}
	if len(achievementsJSON) > 0 {
		if err := json.Unmarshal(achievementsJSON, &l.UnlockedAchievements); err != nil {
			return nil, fmt.Errorf("failed to unmarshal achievements: %w", err)
		}
	}
	return &l, nil
}

// intSlice and stringSlice normalise nil slices so JSONB columns always hold
// arrays, never SQL nulls.
func intSlice(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}

func stringSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
