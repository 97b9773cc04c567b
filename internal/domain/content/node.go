// Package content defines the read-only content hierarchy consumed by the
// progression core: Level → Category → Lesson → Video. Nodes are authored
// elsewhere; this core never mutates them.
package content

import (
	"context"
	"sort"

	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// NODE KINDS
// ══════════════════════════════════════════════════════════════════════════════

// NodeKind identifies the level of a node in the content tree.
type NodeKind string

const (
	// KindLevel is a top-level learning stage.
	KindLevel NodeKind = "level"
	// KindCategory is a skill grouping inside a level.
	KindCategory NodeKind = "category"
	// KindLesson is a single lesson inside a category.
	KindLesson NodeKind = "lesson"
	// KindVideo is a video inside a lesson.
	KindVideo NodeKind = "video"
)

// IsValid checks that the node kind is one of the known kinds.
func (k NodeKind) IsValid() bool {
	switch k {
	case KindLevel, KindCategory, KindLesson, KindVideo:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT NODE
// ══════════════════════════════════════════════════════════════════════════════

// Node is one node of the content tree. Identity and order are immutable
// from this core's perspective.
type Node struct {
	// ID is the node's unique identifier.
	ID shared.NodeID

	// Kind is the node's position in the hierarchy.
	Kind NodeKind

	// ParentID references the parent node. Empty for levels.
	ParentID shared.NodeID

	// Order is the 1-based position among siblings.
	Order int

	// Active marks the node as visible to learners. Inactive nodes are
	// skipped by unlock decisions.
	Active bool

	// Title is the display title (used in notifications).
	Title string

	// ForLesson applies to videos only: whether the video counts towards
	// lesson completion (as opposed to supplementary material).
	ForLesson bool
}

// IsFirst reports whether the node is the first among its siblings.
func (n Node) IsFirst() bool {
	return n.Order == 1
}

// ══════════════════════════════════════════════════════════════════════════════
// HIERARCHY STORE (external collaborator, consumed only)
// ══════════════════════════════════════════════════════════════════════════════

// Store is the read interface to the content hierarchy. Implementations must
// return children pre-filtered by active=true and sorted by order.
type Store interface {
	// Get returns a node by ID.
	Get(ctx context.Context, id shared.NodeID) (*Node, error)

	// ListChildren returns the active children of a node, ordered by Order.
	ListChildren(ctx context.Context, parentID shared.NodeID) ([]Node, error)

	// ListLevels returns all active levels, ordered by Order.
	ListLevels(ctx context.Context) ([]Node, error)
}

// SortByOrder sorts nodes in place by their sibling order.
func SortByOrder(nodes []Node) {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Order < nodes[j].Order
	})
}

// NextSibling returns the sibling immediately following the node with the
// given ID in an ordered sibling list, or nil when the node is last or absent.
func NextSibling(siblings []Node, id shared.NodeID) *Node {
	for i, s := range siblings {
		if s.ID == id && i+1 < len(siblings) {
			next := siblings[i+1]
			return &next
		}
	}
	return nil
}

// PrevSibling returns the sibling immediately preceding the node with the
// given ID in an ordered sibling list, or nil when the node is first or absent.
func PrevSibling(siblings []Node, id shared.NodeID) *Node {
	for i, s := range siblings {
		if s.ID == id && i > 0 {
			prev := siblings[i-1]
			return &prev
		}
	}
	return nil
}

// ForLessonVideos filters a lesson's children down to the videos that count
// towards completion.
func ForLessonVideos(videos []Node) []Node {
	out := make([]Node, 0, len(videos))
	for _, v := range videos {
		if v.Kind == KindVideo && v.ForLesson {
			out = append(out, v)
		}
	}
	return out
}
