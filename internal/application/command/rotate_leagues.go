package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tilhub/tilhub-core/internal/domain/league"
	"github.com/tilhub/tilhub-core/internal/domain/notification"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROTATE LEAGUES COMMAND
// Time-triggered weekly rotation: archives elapsed sessions, promotes and
// demotes participants, resets weekly XP, and opens fresh sessions.
// ══════════════════════════════════════════════════════════════════════════════

// RotateLeaguesCommand triggers a rotation pass.
type RotateLeaguesCommand struct {
	// Timestamp defaults to now if zero.
	Timestamp time.Time
}

// RotateLeaguesResult summarizes one rotation pass.
type RotateLeaguesResult struct {
	// SessionsRotated is how many elapsed sessions were archived.
	SessionsRotated int

	// Promoted / Demoted count participant movements.
	Promoted int
	Demoted  int
}

// RotateLeaguesHandler handles the RotateLeaguesCommand.
type RotateLeaguesHandler struct {
	leagueRepo     league.Repository
	statsRepo      stats.Repository
	cache          StandingsCache
	eventPublisher shared.EventPublisher
	notifier       notification.Sink
}

// NewRotateLeaguesHandler creates a new RotateLeaguesHandler.
func NewRotateLeaguesHandler(
	leagueRepo league.Repository,
	statsRepo stats.Repository,
	cache StandingsCache,
	eventPublisher shared.EventPublisher,
	notifier notification.Sink,
) *RotateLeaguesHandler {
	return &RotateLeaguesHandler{
		leagueRepo:     leagueRepo,
		statsRepo:      statsRepo,
		cache:          cache,
		eventPublisher: eventPublisher,
		notifier:       notifier,
	}
}

// Handle executes the rotate leagues command.
func (h *RotateLeaguesHandler) Handle(ctx context.Context, cmd RotateLeaguesCommand) (*RotateLeaguesResult, error) {
	now := cmd.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	sessions, err := h.leagueRepo.ListElapsedSessions(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("rotate_leagues: failed to list elapsed sessions: %w", err)
	}

	result := &RotateLeaguesResult{}
	for _, session := range sessions {
		if err := h.rotateSession(ctx, session, now, result); err != nil {
			return result, err
		}
		result.SessionsRotated++
	}
	return result, nil
}

// rotateSession archives one elapsed session and applies its outcomes.
func (h *RotateLeaguesHandler) rotateSession(ctx context.Context, session *league.Session, now time.Time, result *RotateLeaguesResult) error {
	tier, err := league.TierByName(session.Tier)
	if err != nil {
		return err
	}

	participants, err := h.leagueRepo.ListParticipants(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("rotate_leagues: failed to list participants: %w", err)
	}
	league.RankParticipants(participants)

	for _, outcome := range league.PlanRotation(tier, participants) {
		if err := h.applyOutcome(ctx, session, outcome, now); err != nil {
			return err
		}
		switch outcome.Movement {
		case league.Promote:
			result.Promoted++
		case league.Demote:
			result.Demoted++
		}
	}

	if err := h.leagueRepo.ArchiveSession(ctx, session.ID); err != nil {
		return fmt.Errorf("rotate_leagues: failed to archive session: %w", err)
	}
	if h.cache != nil {
		_ = h.cache.Clear(ctx, session.ID)
	}

	// Open the tier's next weekly session right away.
	fresh := league.NewSession(uuid.New().String(), session.Tier, now)
	if err := h.leagueRepo.CreateSession(ctx, fresh); err != nil && !shared.IsConflict(err) {
		return fmt.Errorf("rotate_leagues: failed to create fresh session: %w", err)
	}
	return nil
}

// applyOutcome finalizes one participant: rank and movement flags on the
// participant row, tier change and weekly XP reset on the user's ledger.
func (h *RotateLeaguesHandler) applyOutcome(ctx context.Context, session *league.Session, outcome league.Outcome, now time.Time) error {
	p := outcome.Participant
	p.Promoted = outcome.Movement == league.Promote
	p.Demoted = outcome.Movement == league.Demote
	if err := h.leagueRepo.FinalizeParticipant(ctx, p); err != nil {
		return fmt.Errorf("rotate_leagues: failed to finalize participant: %w", err)
	}

	ledger, err := h.statsRepo.Get(ctx, p.UserID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil
		}
		return err
	}
	ledger.WeeklyXP = 0
	ledger.CurrentLeagueTier = outcome.ToTier
	ledger.UpdatedAt = now
	if err := h.statsRepo.Update(ctx, ledger); err != nil {
		return fmt.Errorf("rotate_leagues: failed to update ledger: %w", err)
	}
	// weekly_xp is a hot counter, so the reset goes through its own
	// atomic write rather than Update.
	if err := h.statsRepo.ResetWeeklyXP(ctx, p.UserID); err != nil {
		return fmt.Errorf("rotate_leagues: failed to reset weekly xp: %w", err)
	}

	switch outcome.Movement {
	case league.Promote:
		_ = h.eventPublisher.Publish(shared.NewLeaguePromotedEvent(
			p.UserID.String(), string(session.Tier), string(outcome.ToTier), p.Rank,
		))
		h.notifyResult(ctx, p, fmt.Sprintf("You finished #%d and advanced to the %s league", p.Rank, outcome.ToTier))
	case league.Demote:
		_ = h.eventPublisher.Publish(shared.NewLeagueDemotedEvent(
			p.UserID.String(), string(session.Tier), string(outcome.ToTier), p.Rank,
		))
		h.notifyResult(ctx, p, fmt.Sprintf("You finished #%d and dropped to the %s league", p.Rank, outcome.ToTier))
	}
	return nil
}

func (h *RotateLeaguesHandler) notifyResult(ctx context.Context, p *league.Participant, message string) {
	_ = h.notifier.Create(ctx, notification.Request{
		UserID:            p.UserID,
		Type:              notification.TypeLeagueResult,
		Title:             "League results",
		Message:           message,
		RelatedEntityKind: notification.EntitySession,
		RelatedEntityID:   p.SessionID,
	})
}
