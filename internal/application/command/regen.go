package command

import (
	"context"
	"fmt"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// LAZY REGEN APPLIER
// Computes pending energy/heart regeneration on read and persists it through
// capped atomic increments, so concurrent readers never clobber each other.
// ══════════════════════════════════════════════════════════════════════════════

// RegenApplier applies pending lazy regeneration to a stats ledger.
type RegenApplier struct {
	statsRepo      stats.Repository
	eventPublisher shared.EventPublisher
}

// NewRegenApplier creates a new RegenApplier.
func NewRegenApplier(statsRepo stats.Repository, eventPublisher shared.EventPublisher) *RegenApplier {
	return &RegenApplier{
		statsRepo:      statsRepo,
		eventPublisher: eventPublisher,
	}
}

// Apply computes and persists pending regeneration for the ledger, mutating
// it in place. The capped increment is applied storage-side; the anchors move
// by whole regen intervals only, so fractional progress survives reads.
func (r *RegenApplier) Apply(ctx context.Context, l *stats.Ledger, now time.Time) error {
	energy := l.ComputeEnergyRegen(now)
	hearts := l.ComputeHeartRegen(now)
	if energy.Units == 0 && hearts.Units == 0 &&
		!(energy.AtCap && l.EnergyAnchorAt != nil) &&
		!(hearts.AtCap && l.LastHeartLostAt != nil) {
		return nil
	}

	if energy.Units > 0 {
		newValue, err := r.statsRepo.AddEnergy(ctx, l.UserID, energy.Units, stats.EnergyCap)
		if err != nil {
			return fmt.Errorf("regen: failed to add energy: %w", err)
		}
		l.Energy = newValue
	}

	if hearts.Units > 0 {
		newValue, err := r.statsRepo.AddHearts(ctx, l.UserID, hearts.Units, stats.HeartsCap)
		if err != nil {
			return fmt.Errorf("regen: failed to add hearts: %w", err)
		}
		l.Hearts = newValue
		_ = r.eventPublisher.Publish(shared.NewHeartGainedEvent(
			l.UserID.String(), l.Hearts, "regeneration",
		))
	}

	// Move or clear the anchors. A full resource drops its anchor entirely.
	clearEnergy := l.Energy >= stats.EnergyCap
	clearHearts := l.Hearts >= stats.HeartsCap

	var energyAnchor, heartAnchor *time.Time
	if !clearEnergy && l.EnergyAnchorAt != nil {
		a := energy.NewAnchor
		energyAnchor = &a
		l.EnergyAnchorAt = &a
	}
	if !clearHearts && l.LastHeartLostAt != nil {
		a := hearts.NewAnchor
		heartAnchor = &a
		l.LastHeartLostAt = &a
	}
	if clearEnergy {
		l.EnergyAnchorAt = nil
	}
	if clearHearts {
		l.LastHeartLostAt = nil
	}

	if err := r.statsRepo.SetRegenAnchors(ctx, l.UserID, energyAnchor, heartAnchor, clearEnergy, clearHearts); err != nil {
		return fmt.Errorf("regen: failed to set anchors: %w", err)
	}
	return nil
}
