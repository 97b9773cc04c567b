package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tilhub/tilhub-core/internal/domain/content"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

func lessonNode(id string, order int) content.Node {
	return content.Node{
		ID:     shared.NodeID(id),
		Kind:   content.KindLesson,
		Order:  order,
		Active: true,
	}
}

func lookupFrom(records map[shared.NodeID]*Record) RecordLookup {
	return func(id shared.NodeID) (*Record, bool) {
		r, ok := records[id]
		return r, ok
	}
}

func TestIsUnlocked_FirstSiblingFollowsParent(t *testing.T) {
	rules := NewUnlockRules()
	siblings := []content.Node{lessonNode("a", 1), lessonNode("b", 2)}
	lookup := lookupFrom(nil)

	assert.True(t, rules.IsUnlocked(siblings[0], siblings, true, lookup))
	assert.False(t, rules.IsUnlocked(siblings[0], siblings, false, lookup))
}

func TestIsUnlocked_LaterSiblingRequiresCompletedPredecessor(t *testing.T) {
	rules := NewUnlockRules()
	siblings := []content.Node{lessonNode("a", 1), lessonNode("b", 2), lessonNode("c", 3)}

	// No records at all: only the first sibling is reachable.
	lookup := lookupFrom(nil)
	assert.False(t, rules.IsUnlocked(siblings[1], siblings, true, lookup))
	assert.False(t, rules.IsUnlocked(siblings[2], siblings, true, lookup))

	// Predecessor exists but is not completed.
	recA := &Record{NodeID: "a", NodeKind: content.KindLesson}
	lookup = lookupFrom(map[shared.NodeID]*Record{"a": recA})
	assert.False(t, rules.IsUnlocked(siblings[1], siblings, true, lookup))

	// Predecessor completed: next sibling unlocks, but not the one after.
	recA.AllVideosWatched = true
	assert.True(t, rules.IsUnlocked(siblings[1], siblings, true, lookup))
	assert.False(t, rules.IsUnlocked(siblings[2], siblings, true, lookup))
}

func TestIsUnlocked_RecordExistenceIsProofOfPastUnlock(t *testing.T) {
	rules := NewUnlockRules()
	siblings := []content.Node{lessonNode("a", 1), lessonNode("b", 2)}

	// A record for "b" exists even though "a" is incomplete. Tolerate the
	// partial write: existence wins.
	lookup := lookupFrom(map[shared.NodeID]*Record{
		"b": {NodeID: "b", NodeKind: content.KindLesson},
	})
	assert.True(t, rules.IsUnlocked(siblings[1], siblings, true, lookup))
}

func TestIsUnlocked_InactiveNodeNeverUnlocks(t *testing.T) {
	rules := NewUnlockRules()
	inactive := lessonNode("a", 1)
	inactive.Active = false

	assert.False(t, rules.IsUnlocked(inactive, []content.Node{inactive}, true, lookupFrom(nil)))
}

func TestIsUnlocked_SkipsInactiveFirstSibling(t *testing.T) {
	rules := NewUnlockRules()
	a := lessonNode("a", 1)
	a.Active = false
	b := lessonNode("b", 2)

	// With "a" inactive, "b" is the first active sibling.
	siblings := []content.Node{b}
	assert.True(t, rules.IsUnlocked(b, siblings, true, lookupFrom(nil)))
}

func TestIsLevelUnlocked(t *testing.T) {
	rules := NewUnlockRules()
	l1 := content.Node{ID: "l1", Kind: content.KindLevel, Order: 1, Active: true}
	l2 := content.Node{ID: "l2", Kind: content.KindLevel, Order: 2, Active: true}
	levels := []content.Node{l1, l2}

	assert.True(t, rules.IsLevelUnlocked(l1, levels, lookupFrom(nil)))
	assert.False(t, rules.IsLevelUnlocked(l2, levels, lookupFrom(nil)))

	rec := &Record{NodeID: "l1", NodeKind: content.KindLevel, AllCategoriesCompleted: true}
	lookup := lookupFrom(map[shared.NodeID]*Record{"l1": rec})
	assert.True(t, rules.IsLevelUnlocked(l2, levels, lookup))
}

func TestNextToUnlock(t *testing.T) {
	rules := NewUnlockRules()
	siblings := []content.Node{lessonNode("a", 1), lessonNode("b", 2)}

	next := rules.NextToUnlock(siblings, "a")
	assert.NotNil(t, next)
	assert.Equal(t, shared.NodeID("b"), next.ID)

	assert.Nil(t, rules.NextToUnlock(siblings, "b"))
}

func TestAllCompleted(t *testing.T) {
	rules := NewUnlockRules()
	siblings := []content.Node{
		{ID: "c1", Kind: content.KindCategory, Order: 1, Active: true},
		{ID: "c2", Kind: content.KindCategory, Order: 2, Active: true},
	}
	now := time.Now()

	r1 := &Record{NodeID: "c1", NodeKind: content.KindCategory}
	r2 := &Record{NodeID: "c2", NodeKind: content.KindCategory}
	r1.RecordQuizResult(0.9, true, now)

	lookup := lookupFrom(map[shared.NodeID]*Record{"c1": r1, "c2": r2})
	assert.False(t, rules.AllCompleted(siblings, lookup))

	r2.RecordQuizResult(0.8, true, now)
	assert.True(t, rules.AllCompleted(siblings, lookup))

	assert.False(t, rules.AllCompleted(nil, lookup))
}
