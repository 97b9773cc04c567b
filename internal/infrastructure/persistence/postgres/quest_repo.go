package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/quest"
	"github.com/tilhub/tilhub-core/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUEST REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// QuestRepository implements quest.Repository for PostgreSQL.
type QuestRepository struct {
	conn *Connection
}

// NewQuestRepository creates a new QuestRepository.
func NewQuestRepository(conn *Connection) *QuestRepository {
	return &QuestRepository{conn: conn}
}

const questColumns = `
	id, user_id, quest_type, target, progress, reward, status,
	description, expires_at, created_at, updated_at
`

// Get returns a quest by ID.
func (r *QuestRepository) Get(ctx context.Context, questID string) (*quest.Quest, error) {
	query := fmt.Sprintf("SELECT %s FROM daily_quests WHERE id = $1", questColumns)

	row := r.conn.QueryRow(ctx, query, questID)
	q, err := scanQuest(row)
	if IsNoRows(err) {
		return nil, shared.NewDomainError("quest", "Get", shared.ErrNotFound, "quest not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}
	return q, nil
}

// ListActive returns the user's pending/in-progress quests.
func (r *QuestRepository) ListActive(ctx context.Context, userID shared.UserID) ([]*quest.Quest, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM daily_quests
		WHERE user_id = $1 AND status IN ('pending', 'in_progress')
		ORDER BY created_at ASC
	`, questColumns)

	rows, err := r.conn.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list active quests: %w", err)
	}
	defer rows.Close()

	var quests []*quest.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quest: %w", err)
		}
		quests = append(quests, q)
	}
	return quests, rows.Err()
}

// Create inserts a quest.
func (r *QuestRepository) Create(ctx context.Context, q *quest.Quest) error {
	query := `
		INSERT INTO daily_quests (
			id, user_id, quest_type, target, progress, reward, status,
			description, expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.conn.Exec(ctx, query,
		q.ID,
		q.UserID.String(),
		string(q.Type),
		q.Target,
		q.Progress,
		q.Reward,
		string(q.Status),
		q.Description,
		q.ExpiresAt,
		q.CreatedAt,
		q.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("quest", "Create", shared.ErrAlreadyExists, "quest already exists")
		}
		return fmt.Errorf("failed to create quest: %w", err)
	}
	return nil
}

// Update persists a quest's mutable fields.
func (r *QuestRepository) Update(ctx context.Context, q *quest.Quest) error {
	query := `
		UPDATE daily_quests SET
			progress = $1,
			status = $2,
			updated_at = $3
		WHERE id = $4
	`

	tag, err := r.conn.Exec(ctx, query,
		q.Progress,
		string(q.Status),
		time.Now().UTC(),
		q.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update quest: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewDomainError("quest", "Update", shared.ErrNotFound, "quest not found")
	}
	return nil
}

// ExpireStale marks unclaimed quests past their window as expired.
// Completed-but-unclaimed quests expire too; claimed quests survive.
func (r *QuestRepository) ExpireStale(ctx context.Context, userID shared.UserID, now time.Time) (int, error) {
	query := `
		UPDATE daily_quests
		SET status = 'expired', updated_at = $2
		WHERE user_id = $1
		  AND expires_at <= $2
		  AND status IN ('pending', 'in_progress', 'completed')
	`

	tag, err := r.conn.Exec(ctx, query, userID.String(), now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale quests: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ExpireAllStale is the job-facing variant across all users.
func (r *QuestRepository) ExpireAllStale(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE daily_quests
		SET status = 'expired', updated_at = $1
		WHERE expires_at <= $1
		  AND status IN ('pending', 'in_progress', 'completed')
	`

	tag, err := r.conn.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale quests: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func scanQuest(row pgx.Row) (*quest.Quest, error) {
	var q quest.Quest
	var userID, questType, status string

	err := row.Scan(
		&q.ID,
		&userID,
		&questType,
		&q.Target,
		&q.Progress,
		&q.Reward,
		&status,
		&q.Description,
		&q.ExpiresAt,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	q.UserID = shared.UserID(userID)
	q.Type = quest.Type(questType)
	q.Status = quest.Status(status)
	return &q, nil
}
