package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/content"
	"github.com/tilhub/tilhub-core/internal/domain/progress"
	"github.com/tilhub/tilhub-core/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

const progressColumns = `
	id, user_id, node_id, node_kind, unlocked_at, completed_at,
	watched_videos, all_videos_watched, final_quiz_best_score,
	final_quiz_passed, all_categories_completed, created_at, updated_at
`

// Get returns the record for a user and node.
func (r *ProgressRepository) Get(ctx context.Context, userID shared.UserID, nodeID shared.NodeID) (*progress.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM progress_records
		WHERE user_id = $1 AND node_id = $2
	`, progressColumns)

	row := r.conn.QueryRow(ctx, query, userID.String(), nodeID.String())
	rec, err := scanProgressRecord(row)
	if IsNoRows(err) {
		return nil, shared.NewDomainError("progress", "Get", shared.ErrNotFound, "record not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress record: %w", err)
	}
	return rec, nil
}

// GetByNodes returns the existing records for a user across several nodes.
func (r *ProgressRepository) GetByNodes(ctx context.Context, userID shared.UserID, nodeIDs []shared.NodeID) (map[shared.NodeID]*progress.Record, error) {
	result := make(map[shared.NodeID]*progress.Record, len(nodeIDs))
	if len(nodeIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(nodeIDs))
	args := make([]interface{}, 0, len(nodeIDs)+1)
	args = append(args, userID.String())
	for i, id := range nodeIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id.String())
	}

	query := fmt.Sprintf(`
		SELECT %s FROM progress_records
		WHERE user_id = $1 AND node_id IN (%s)
	`, progressColumns, strings.Join(placeholders, ", "))

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanProgressRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress record: %w", err)
		}
		result[rec.NodeID] = rec
	}
	return result, rows.Err()
}

// CreateIfAbsent inserts the record unless one already exists for the
// (user, node) pair. Concurrent first-access resolves through the unique
// constraint, not an error.
func (r *ProgressRepository) CreateIfAbsent(ctx context.Context, rec *progress.Record) (bool, error) {
	query := `
		INSERT INTO progress_records (
			id, user_id, node_id, node_kind, unlocked_at, completed_at,
			watched_videos, all_videos_watched, final_quiz_best_score,
			final_quiz_passed, all_categories_completed, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id, node_id) DO NOTHING
	`

	watchedJSON, err := marshalWatchedVideos(rec.WatchedVideos)
	if err != nil {
		return false, err
	}

	tag, err := r.conn.Exec(ctx, query,
		rec.ID,
		rec.UserID.String(),
		rec.NodeID.String(),
		string(rec.NodeKind),
		rec.UnlockedAt,
		rec.CompletedAt,
		watchedJSON,
		rec.AllVideosWatched,
		rec.FinalQuizBestScore,
		rec.FinalQuizPassed,
		rec.AllCategoriesCompleted,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create progress record: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// Update persists the record's mutable fields.
func (r *ProgressRepository) Update(ctx context.Context, rec *progress.Record) error {
	query := `
		UPDATE progress_records SET
			unlocked_at = $1,
			completed_at = $2,
			watched_videos = $3,
			all_videos_watched = $4,
			final_quiz_best_score = $5,
			final_quiz_passed = $6,
			all_categories_completed = $7,
			updated_at = $8
		WHERE user_id = $9 AND node_id = $10
	`

	watchedJSON, err := marshalWatchedVideos(rec.WatchedVideos)
	if err != nil {
		return err
	}

	tag, err := r.conn.Exec(ctx, query,
		rec.UnlockedAt,
		rec.CompletedAt,
		watchedJSON,
		rec.AllVideosWatched,
		rec.FinalQuizBestScore,
		rec.FinalQuizPassed,
		rec.AllCategoriesCompleted,
		time.Now().UTC(),
		rec.UserID.String(),
		rec.NodeID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update progress record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewDomainError("progress", "Update", shared.ErrNotFound, "record not found")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func scanProgressRecord(row pgx.Row) (*progress.Record, error) {
	var rec progress.Record
	var userID, nodeID, nodeKind string
	var watchedJSON []byte

	err := row.Scan(
		&rec.ID,
		&userID,
		&nodeID,
		&nodeKind,
		&rec.UnlockedAt,
		&rec.CompletedAt,
		&watchedJSON,
		&rec.AllVideosWatched,
		&rec.FinalQuizBestScore,
		&rec.FinalQuizPassed,
		&rec.AllCategoriesCompleted,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.UserID = shared.UserID(userID)
	rec.NodeID = shared.NodeID(nodeID)
	rec.NodeKind = content.NodeKind(nodeKind)
	rec.WatchedVideos, err = unmarshalWatchedVideos(watchedJSON)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func marshalWatchedVideos(ids []shared.NodeID) ([]byte, error) {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	data, err := json.Marshal(strs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal watched videos: %w", err)
	}
	return data, nil
}

func unmarshalWatchedVideos(data []byte) ([]shared.NodeID, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var strs []string
	if err := json.Unmarshal(data, &strs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal watched videos: %w", err)
	}
	ids := make([]shared.NodeID, len(strs))
	for i, s := range strs {
		ids[i] = shared.NodeID(s)
	}
	return ids, nil
}
