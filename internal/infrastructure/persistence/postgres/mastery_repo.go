package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/mastery"
	"github.com/tilhub/tilhub-core/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MASTERY REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// MasteryRepository implements mastery.Repository for PostgreSQL.
type MasteryRepository struct {
	conn *Connection
}

// NewMasteryRepository creates a new MasteryRepository.
func NewMasteryRepository(conn *Connection) *MasteryRepository {
	return &MasteryRepository{conn: conn}
}

const skillColumns = `
	id, user_id, skill_id, crown_level, current_xp, total_xp,
	mistake_count, practice_count, is_legendary, legendary_attempts,
	first_crown_at, last_crown_at, created_at, updated_at
`

// Get returns the record for a user and skill.
func (r *MasteryRepository) Get(ctx context.Context, userID shared.UserID, skillID shared.SkillID) (*mastery.SkillProgress, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM skill_progress
		WHERE user_id = $1 AND skill_id = $2
	`, skillColumns)

	row := r.conn.QueryRow(ctx, query, userID.String(), skillID.String())
	sp, err := scanSkillProgress(row)
	if IsNoRows(err) {
		return nil, shared.NewDomainError("mastery", "Get", shared.ErrNotFound, "skill progress not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get skill progress: %w", err)
	}
	return sp, nil
}

// GetOrCreate returns the record, inserting an empty one on first
// contribution. Concurrent first-access resolves through the unique
// constraint.
func (r *MasteryRepository) GetOrCreate(ctx context.Context, userID shared.UserID, skillID shared.SkillID, id string) (*mastery.SkillProgress, error) {
	now := time.Now().UTC()

	query := `
		INSERT INTO skill_progress (id, user_id, skill_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id, skill_id) DO NOTHING
	`

	_, err := r.conn.Exec(ctx, query, id, userID.String(), skillID.String(), now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert skill progress: %w", err)
	}

	return r.Get(ctx, userID, skillID)
}

// Update persists the record's mutable fields.
func (r *MasteryRepository) Update(ctx context.Context, sp *mastery.SkillProgress) error {
	query := `
		UPDATE skill_progress SET
			crown_level = $1,
			current_xp = $2,
			total_xp = $3,
			mistake_count = $4,
			practice_count = $5,
			is_legendary = $6,
			legendary_attempts = $7,
			first_crown_at = $8,
			last_crown_at = $9,
			updated_at = $10
		WHERE user_id = $11 AND skill_id = $12
	`

	tag, err := r.conn.Exec(ctx, query,
		sp.CrownLevel,
		sp.CurrentXP,
		sp.TotalXP,
		sp.MistakeCount,
		sp.PracticeCount,
		sp.IsLegendary,
		sp.LegendaryAttempts,
		sp.FirstCrownAt,
		sp.LastCrownAt,
		time.Now().UTC(),
		sp.UserID.String(),
		sp.SkillID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update skill progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewDomainError("mastery", "Update", shared.ErrNotFound, "skill progress not found")
	}
	return nil
}

// ListByUser returns all of a user's skill records.
func (r *MasteryRepository) ListByUser(ctx context.Context, userID shared.UserID) ([]*mastery.SkillProgress, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM skill_progress
		WHERE user_id = $1
		ORDER BY crown_level DESC, total_xp DESC
	`, skillColumns)

	rows, err := r.conn.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list skill progress: %w", err)
	}
	defer rows.Close()

	var records []*mastery.SkillProgress
	for rows.Next() {
		sp, err := scanSkillProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan skill progress: %w", err)
		}
		records = append(records, sp)
	}
	return records, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func scanSkillProgress(row pgx.Row) (*mastery.SkillProgress, error) {
	var sp mastery.SkillProgress
	var userID, skillID string

	err := row.Scan(
		&sp.ID,
		&userID,
		&skillID,
		&sp.CrownLevel,
		&sp.CurrentXP,
		&sp.TotalXP,
		&sp.MistakeCount,
		&sp.PracticeCount,
		&sp.IsLegendary,
		&sp.LegendaryAttempts,
		&sp.FirstCrownAt,
		&sp.LastCrownAt,
		&sp.CreatedAt,
		&sp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sp.UserID = shared.UserID(userID)
	sp.SkillID = shared.SkillID(skillID)
	return &sp, nil
}
