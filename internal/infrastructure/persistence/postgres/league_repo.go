package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/league"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/domain/stats"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEAGUE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LeagueRepository implements league.Repository for PostgreSQL.
type LeagueRepository struct {
	conn *Connection
}

// NewLeagueRepository creates a new LeagueRepository.
func NewLeagueRepository(conn *Connection) *LeagueRepository {
	return &LeagueRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Sessions
// ─────────────────────────────────────────────────────────────────────────────

const sessionColumns = `
	id, tier, start_date, end_date, is_active, is_archived,
	participant_count, created_at
`

// GetActiveSession возвращает активную сессию лиги.
func (r *LeagueRepository) GetActiveSession(ctx context.Context, tier stats.LeagueTier) (*league.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM league_sessions
		WHERE tier = $1 AND is_active
	`, sessionColumns)

	row := r.conn.QueryRow(ctx, query, string(tier))
	s, err := scanSession(row)
	if IsNoRows(err) {
		return nil, shared.NewDomainError("league", "GetActiveSession", shared.ErrNotFound, "no active session")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return s, nil
}

// CreateSession создаёт сессию. Конкурентное создание для одного тира
// упирается в частичный уникальный индекс и возвращает конфликт.
func (r *LeagueRepository) CreateSession(ctx context.Context, s *league.Session) error {
	query := `
		INSERT INTO league_sessions (
			id, tier, start_date, end_date, is_active, is_archived,
			participant_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		s.ID,
		string(s.Tier),
		s.StartDate,
		s.EndDate,
		s.IsActive,
		s.IsArchived,
		s.ParticipantCount,
		s.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("league", "CreateSession", shared.ErrAlreadyExists, "active session exists for tier")
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// ListElapsedSessions возвращает активные сессии с истёкшим окном.
func (r *LeagueRepository) ListElapsedSessions(ctx context.Context, now time.Time) ([]*league.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM league_sessions
		WHERE is_active AND end_date <= $1
		ORDER BY end_date ASC
	`, sessionColumns)

	rows, err := r.conn.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list elapsed sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*league.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// ArchiveSession помечает сессию архивной и неактивной.
func (r *LeagueRepository) ArchiveSession(ctx context.Context, sessionID string) error {
	query := `
		UPDATE league_sessions
		SET is_active = FALSE, is_archived = TRUE
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to archive session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewDomainError("league", "ArchiveSession", shared.ErrNotFound, "session not found")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Participants
// ─────────────────────────────────────────────────────────────────────────────

const participantColumns = `
	id, session_id, user_id, weekly_xp, rank, promoted, demoted, joined_at
`

// GetParticipant возвращает участие пользователя в сессии.
func (r *LeagueRepository) GetParticipant(ctx context.Context, sessionID string, userID shared.UserID) (*league.Participant, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM league_participants
		WHERE session_id = $1 AND user_id = $2
	`, participantColumns)

	row := r.conn.QueryRow(ctx, query, sessionID, userID.String())
	p, err := scanParticipant(row)
	if IsNoRows(err) {
		return nil, shared.NewDomainError("league", "GetParticipant", shared.ErrNotFound, "participant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

// CreateParticipantIfAbsent атомарно создаёт участие и увеличивает счётчик
// участников сессии при успешной вставке.
func (r *LeagueRepository) CreateParticipantIfAbsent(ctx context.Context, p *league.Participant) (bool, error) {
	var created bool
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO league_participants (
				id, session_id, user_id, weekly_xp, rank, promoted, demoted, joined_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (session_id, user_id) DO NOTHING
		`,
			p.ID,
			p.SessionID,
			p.UserID.String(),
			p.WeeklyXP,
			p.Rank,
			p.Promoted,
			p.Demoted,
			p.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create participant: %w", err)
		}

		created = tag.RowsAffected() > 0
		if !created {
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE league_sessions
			SET participant_count = participant_count + 1
			WHERE id = $1
		`, p.SessionID)
		if err != nil {
			return fmt.Errorf("failed to bump participant count: %w", err)
		}
		return nil
	})
	return created, err
}

// AddWeeklyXP атомарно прибавляет XP участнику.
func (r *LeagueRepository) AddWeeklyXP(ctx context.Context, sessionID string, userID shared.UserID, xp int) error {
	query := `
		UPDATE league_participants
		SET weekly_xp = weekly_xp + $3
		WHERE session_id = $1 AND user_id = $2
	`

	tag, err := r.conn.Exec(ctx, query, sessionID, userID.String(), xp)
	if err != nil {
		return fmt.Errorf("failed to add weekly xp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewDomainError("league", "AddWeeklyXP", shared.ErrNotFound, "participant not found")
	}
	return nil
}

// ListParticipants возвращает всех участников сессии.
func (r *LeagueRepository) ListParticipants(ctx context.Context, sessionID string) ([]*league.Participant, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM league_participants
		WHERE session_id = $1
		ORDER BY weekly_xp DESC, joined_at ASC
	`, participantColumns)

	rows, err := r.conn.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*league.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// UpdateRanks сохраняет пересчитанные ранги участников одним батчем.
func (r *LeagueRepository) UpdateRanks(ctx context.Context, sessionID string, participants []*league.Participant) error {
	if len(participants) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range participants {
		batch.Queue(
			"UPDATE league_participants SET rank = $1 WHERE session_id = $2 AND user_id = $3",
			p.Rank, sessionID, p.UserID.String(),
		)
	}

	results := r.conn.Pool().SendBatch(ctx, batch)
	defer results.Close()

	for range participants {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to update ranks: %w", err)
		}
	}
	return nil
}

// FinalizeParticipant сохраняет итог ротации.
func (r *LeagueRepository) FinalizeParticipant(ctx context.Context, p *league.Participant) error {
	query := `
		UPDATE league_participants
		SET rank = $1, promoted = $2, demoted = $3
		WHERE session_id = $4 AND user_id = $5
	`

	tag, err := r.conn.Exec(ctx, query,
		p.Rank,
		p.Promoted,
		p.Demoted,
		p.SessionID,
		p.UserID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to finalize participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewDomainError("league", "FinalizeParticipant", shared.ErrNotFound, "participant not found")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func scanSession(row pgx.Row) (*league.Session, error) {
	var s league.Session
	var tier string

	err := row.Scan(
		&s.ID,
		&tier,
		&s.StartDate,
		&s.EndDate,
		&s.IsActive,
		&s.IsArchived,
		&s.ParticipantCount,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Tier = stats.LeagueTier(tier)
	return &s, nil
}

func scanParticipant(row pgx.Row) (*league.Participant, error) {
	var p league.Participant
	var userID string

	err := row.Scan(
		&p.ID,
		&p.SessionID,
		&userID,
		&p.WeeklyXP,
		&p.Rank,
		&p.Promoted,
		&p.Demoted,
		&p.JoinedAt,
	)
	if err != nil {
		return nil, err
	}

	p.UserID = shared.UserID(userID)
	return &p, nil
}
