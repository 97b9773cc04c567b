package query

import (
	"context"
	"fmt"

	"github.com/tilhub/tilhub-core/internal/domain/league"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STANDINGS QUERY
// Возвращает турнирную таблицу активной недельной сессии лиги пользователя.
// Сначала пробует кэш; при промахе или рассинхроне читает из хранилища
// и пересчитывает ранги на лету.
// ══════════════════════════════════════════════════════════════════════════════

// StandingsReader - read-интерфейс кэша турнирной таблицы.
type StandingsReader interface {
	// Standings возвращает (userID, weeklyXP) по убыванию XP.
	// shared.ErrNotFound при промахе кэша.
	Standings(ctx context.Context, sessionID string, limit int) ([]StandingsEntry, error)
}

// StandingsEntry - одна строка кэшированной таблицы.
type StandingsEntry struct {
	UserID   shared.UserID
	WeeklyXP int
}

// GetStandingsQuery содержит параметры запроса таблицы.
type GetStandingsQuery struct {
	// UserID - пользователь, чья сессия запрашивается.
	UserID string

	// Limit - количество строк (по умолчанию 30).
	Limit int
}

// Validate проверяет корректность параметров запроса.
func (q *GetStandingsQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("league", "GetStandings", shared.ErrInvalidInput, "user_id is required")
	}
	if q.Limit <= 0 {
		q.Limit = 30
	}
	return nil
}

// StandingDTO - одна строка турнирной таблицы.
type StandingDTO struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	WeeklyXP int    `json:"weekly_xp"`
	IsViewer bool   `json:"is_viewer"`
}

// GetStandingsResult - таблица и позиция зрителя.
type GetStandingsResult struct {
	SessionID  string        `json:"session_id"`
	Tier       string        `json:"tier"`
	Standings  []StandingDTO `json:"standings"`
	ViewerRank int           `json:"viewer_rank"`
}

// GetStandingsHandler обрабатывает GetStandingsQuery.
type GetStandingsHandler struct {
	statsRepo  stats.Repository
	leagueRepo league.Repository
	cache      StandingsReader
}

// NewGetStandingsHandler создаёт новый GetStandingsHandler.
func NewGetStandingsHandler(statsRepo stats.Repository, leagueRepo league.Repository, cache StandingsReader) *GetStandingsHandler {
	return &GetStandingsHandler{
		statsRepo:  statsRepo,
		leagueRepo: leagueRepo,
		cache:      cache,
	}
}

// Handle выполняет запрос турнирной таблицы.
func (h *GetStandingsHandler) Handle(ctx context.Context, q GetStandingsQuery) (*GetStandingsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	userID := shared.UserID(q.UserID)

	ledger, err := h.statsRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get_standings: failed to get ledger: %w", err)
	}

	session, err := h.leagueRepo.GetActiveSession(ctx, ledger.CurrentLeagueTier)
	if err != nil {
		return nil, fmt.Errorf("get_standings: failed to get session: %w", err)
	}

	result := &GetStandingsResult{
		SessionID: session.ID,
		Tier:      string(session.Tier),
	}

	if h.cache != nil {
		if entries, err := h.cache.Standings(ctx, session.ID, q.Limit); err == nil {
			for i, e := range entries {
				result.Standings = append(result.Standings, StandingDTO{
					Rank:     i + 1,
					UserID:   e.UserID.String(),
					WeeklyXP: e.WeeklyXP,
					IsViewer: e.UserID == userID,
				})
				if e.UserID == userID {
					result.ViewerRank = i + 1
				}
			}
			return result, nil
		}
	}

	// Промах кэша: читаем участников и ранжируем на лету.
	participants, err := h.leagueRepo.ListParticipants(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("get_standings: failed to list participants: %w", err)
	}
	league.RankParticipants(participants)

	for _, p := range participants {
		if p.UserID == userID {
			result.ViewerRank = p.Rank
		}
		if len(result.Standings) >= q.Limit {
			continue
		}
		result.Standings = append(result.Standings, StandingDTO{
			Rank:     p.Rank,
			UserID:   p.UserID.String(),
			WeeklyXP: p.WeeklyXP,
			IsViewer: p.UserID == userID,
		})
	}
	return result, nil
}
