package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tilhub/tilhub-core/internal/domain/league"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEAGUE ENGINE
// Weekly-session bookkeeping shared by the session applicator (assignment,
// weekly XP, rank recompute) and the rotation job.
// ══════════════════════════════════════════════════════════════════════════════

// StandingsCache mirrors a session's ranked standings in a fast store.
// Best-effort: cache failures never surface to callers.
type StandingsCache interface {
	// UpdateScore records a participant's weekly XP.
	UpdateScore(ctx context.Context, sessionID string, userID shared.UserID, weeklyXP int) error

	// Clear drops a session's standings.
	Clear(ctx context.Context, sessionID string) error
}

// LeagueEngine maintains weekly league sessions and participants.
type LeagueEngine struct {
	leagueRepo league.Repository
	cache      StandingsCache
}

// NewLeagueEngine creates a new LeagueEngine.
func NewLeagueEngine(leagueRepo league.Repository, cache StandingsCache) *LeagueEngine {
	return &LeagueEngine{
		leagueRepo: leagueRepo,
		cache:      cache,
	}
}

// GetOrAssign ensures an active session exists for the tier and that the user
// participates in it. Both creations are race-safe: a concurrent winner's row
// is re-read instead of duplicated.
func (e *LeagueEngine) GetOrAssign(ctx context.Context, userID shared.UserID, tier stats.LeagueTier, now time.Time) (*league.Session, *league.Participant, error) {
	session, err := e.leagueRepo.GetActiveSession(ctx, tier)
	if shared.IsNotFound(err) {
		session = league.NewSession(uuid.New().String(), tier, now)
		if err := e.leagueRepo.CreateSession(ctx, session); err != nil {
			if !shared.IsConflict(err) {
				return nil, nil, fmt.Errorf("league: failed to create session: %w", err)
			}
			if session, err = e.leagueRepo.GetActiveSession(ctx, tier); err != nil {
				return nil, nil, err
			}
		}
	} else if err != nil {
		return nil, nil, fmt.Errorf("league: failed to get active session: %w", err)
	}

	participant := &league.Participant{
		ID:        uuid.New().String(),
		SessionID: session.ID,
		UserID:    userID,
		JoinedAt:  now,
	}
	created, err := e.leagueRepo.CreateParticipantIfAbsent(ctx, participant)
	if err != nil {
		return nil, nil, fmt.Errorf("league: failed to create participant: %w", err)
	}
	if !created {
		if participant, err = e.leagueRepo.GetParticipant(ctx, session.ID, userID); err != nil {
			return nil, nil, err
		}
	}
	return session, participant, nil
}

// AddWeeklyXP credits session XP to the participant and recomputes the
// session's ranks. Rank recompute is last-writer-wins; concurrent sessions
// for the same user are expected, concurrent recomputes at high frequency
// are not.
func (e *LeagueEngine) AddWeeklyXP(ctx context.Context, session *league.Session, userID shared.UserID, xp int) error {
	if err := e.leagueRepo.AddWeeklyXP(ctx, session.ID, userID, xp); err != nil {
		return fmt.Errorf("league: failed to add weekly xp: %w", err)
	}

	participants, err := e.leagueRepo.ListParticipants(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("league: failed to list participants: %w", err)
	}
	league.RankParticipants(participants)
	if err := e.leagueRepo.UpdateRanks(ctx, session.ID, participants); err != nil {
		return fmt.Errorf("league: failed to update ranks: %w", err)
	}

	if e.cache != nil {
		for _, p := range participants {
			if p.UserID == userID {
				_ = e.cache.UpdateScore(ctx, session.ID, userID, p.WeeklyXP)
				break
			}
		}
	}
	return nil
}
