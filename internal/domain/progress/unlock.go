package progress

import (
	"github.com/tilhub/tilhub-core/internal/domain/content"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK RULES
// ══════════════════════════════════════════════════════════════════════════════
//
// The rules are pure: they operate on ordered sibling lists and a record
// lookup, with no I/O. The engine in the application layer feeds them data
// and performs the cascade side effects.

// RecordLookup resolves an existing progress record for a node.
// The second return value is false when no record exists.
type RecordLookup func(nodeID shared.NodeID) (*Record, bool)

// UnlockRules implements the reachability decision for content nodes.
type UnlockRules struct{}

// NewUnlockRules creates the rule set.
func NewUnlockRules() *UnlockRules {
	return &UnlockRules{}
}

// FirstActive returns the first active sibling (minimum order), or nil.
// Siblings are expected pre-filtered by active and sorted by order, but the
// filter is re-applied here so partial inputs stay safe.
func (ur *UnlockRules) FirstActive(siblings []content.Node) *content.Node {
	for _, s := range siblings {
		if s.Active {
			first := s
			return &first
		}
	}
	return nil
}

// IsUnlocked decides reachability of a node among its ordered siblings.
//
// Rules:
//   - An existing progress record for the node is proof of past unlock,
//     regardless of its UnlockedAt. This keeps the check idempotent and
//     tolerant of partial writes.
//   - The first active sibling of an unlocked parent is always unlocked.
//   - Any later sibling is unlocked iff a record exists for the sibling
//     immediately preceding it in order AND that record is completed.
func (ur *UnlockRules) IsUnlocked(node content.Node, siblings []content.Node, parentUnlocked bool, lookup RecordLookup) bool {
	if !node.Active {
		return false
	}

	if _, ok := lookup(node.ID); ok {
		return true
	}

	first := ur.FirstActive(siblings)
	if first != nil && first.ID == node.ID {
		return parentUnlocked
	}

	prev := content.PrevSibling(siblings, node.ID)
	if prev == nil {
		return false
	}

	rec, ok := lookup(prev.ID)
	return ok && rec.Completed()
}

// IsLevelUnlocked decides reachability of a level. Levels have no parent:
// the first level is always unlocked; any later level requires the previous
// level's record to exist with all categories completed.
func (ur *UnlockRules) IsLevelUnlocked(level content.Node, levels []content.Node, lookup RecordLookup) bool {
	return ur.IsUnlocked(level, levels, true, lookup)
}

// NextToUnlock returns the sibling whose reachability is promoted by the
// completion of the given node, or nil when the node is the last sibling.
// For a last-in-parent completion the cascade moves to the next parent's
// first child; that hop is the engine's job, not this rule's.
func (ur *UnlockRules) NextToUnlock(siblings []content.Node, completedID shared.NodeID) *content.Node {
	return content.NextSibling(siblings, completedID)
}

// AllCompleted reports whether every sibling has a completed record.
// Used to derive level completion from its categories.
func (ur *UnlockRules) AllCompleted(siblings []content.Node, lookup RecordLookup) bool {
	if len(siblings) == 0 {
		return false
	}
	for _, s := range siblings {
		rec, ok := lookup(s.ID)
		if !ok || !rec.Completed() {
			return false
		}
	}
	return true
}
