// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/content"
	"github.com/tilhub/tilhub-core/internal/domain/progress"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET UNLOCK STATE QUERY
// Computes the unlock/completion map for one layer of the content tree:
// the levels, or the children of a given node. Pure read: no records are
// created here, reachability is derived from the same rules the cascade uses.
// ══════════════════════════════════════════════════════════════════════════════

// GetUnlockStateQuery contains the parameters for an unlock-state read.
type GetUnlockStateQuery struct {
	// UserID is the learner's ID.
	UserID string

	// ParentID scopes the read to one node's children. Empty = levels.
	ParentID string
}

// Validate validates the query.
func (q GetUnlockStateQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("progress", "GetUnlockState", shared.ErrInvalidInput, "user_id is required")
	}
	return nil
}

// NodeStateDTO is one node's unlock/completion state.
type NodeStateDTO struct {
	// NodeID is the node's ID.
	NodeID string `json:"node_id"`

	// Kind is the node kind.
	Kind string `json:"kind"`

	// Title is the display title.
	Title string `json:"title"`

	// Order is the sibling order.
	Order int `json:"order"`

	// Unlocked is the derived reachability.
	Unlocked bool `json:"unlocked"`

	// Completed is the node's completion flag.
	Completed bool `json:"completed"`

	// UnlockedAt / CompletedAt are the record timestamps, when a record exists.
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// WatchedVideos is the watched count (lessons only).
	WatchedVideos int `json:"watched_videos,omitempty"`

	// BestScore is the final-quiz best score (categories only).
	BestScore float64 `json:"best_score,omitempty"`
}

// GetUnlockStateResult is the ordered node-state list.
type GetUnlockStateResult struct {
	Nodes []NodeStateDTO `json:"nodes"`
}

// GetUnlockStateHandler handles the GetUnlockStateQuery.
type GetUnlockStateHandler struct {
	contentStore content.Store
	progressRepo progress.Repository
	rules        *progress.UnlockRules
}

// NewGetUnlockStateHandler creates a new GetUnlockStateHandler.
func NewGetUnlockStateHandler(contentStore content.Store, progressRepo progress.Repository) *GetUnlockStateHandler {
	return &GetUnlockStateHandler{
		contentStore: contentStore,
		progressRepo: progressRepo,
		rules:        progress.NewUnlockRules(),
	}
}

// Handle executes the get unlock state query.
func (h *GetUnlockStateHandler) Handle(ctx context.Context, q GetUnlockStateQuery) (*GetUnlockStateResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	userID := shared.UserID(q.UserID)

	var (
		siblings       []content.Node
		parentUnlocked bool
		err            error
	)
	if q.ParentID == "" {
		siblings, err = h.contentStore.ListLevels(ctx)
		parentUnlocked = true
	} else {
		siblings, err = h.contentStore.ListChildren(ctx, shared.NodeID(q.ParentID))
	}
	if err != nil {
		return nil, fmt.Errorf("get_unlock_state: failed to list nodes: %w", err)
	}

	if q.ParentID != "" {
		parent, err := h.contentStore.Get(ctx, shared.NodeID(q.ParentID))
		if err != nil {
			return nil, fmt.Errorf("get_unlock_state: failed to get parent: %w", err)
		}
		parentUnlocked, err = h.isUnlocked(ctx, userID, *parent)
		if err != nil {
			return nil, err
		}
	}

	lookup, err := h.lookup(ctx, userID, siblings)
	if err != nil {
		return nil, err
	}

	result := &GetUnlockStateResult{Nodes: make([]NodeStateDTO, 0, len(siblings))}
	for _, node := range siblings {
		dto := NodeStateDTO{
			NodeID:   node.ID.String(),
			Kind:     string(node.Kind),
			Title:    node.Title,
			Order:    node.Order,
			Unlocked: h.rules.IsUnlocked(node, siblings, parentUnlocked, lookup),
		}
		if rec, ok := lookup(node.ID); ok {
			dto.Completed = rec.Completed()
			dto.UnlockedAt = rec.UnlockedAt
			dto.CompletedAt = rec.CompletedAt
			dto.WatchedVideos = len(rec.WatchedVideos)
			dto.BestScore = rec.FinalQuizBestScore
		}
		result.Nodes = append(result.Nodes, dto)
	}
	return result, nil
}

// isUnlocked walks the tree upwards the same way the cascade engine does.
func (h *GetUnlockStateHandler) isUnlocked(ctx context.Context, userID shared.UserID, node content.Node) (bool, error) {
	var siblings []content.Node
	var err error
	if node.Kind == content.KindLevel {
		siblings, err = h.contentStore.ListLevels(ctx)
	} else {
		siblings, err = h.contentStore.ListChildren(ctx, node.ParentID)
	}
	if err != nil {
		return false, err
	}
	lookup, err := h.lookup(ctx, userID, siblings)
	if err != nil {
		return false, err
	}

	if node.Kind == content.KindLevel {
		return h.rules.IsLevelUnlocked(node, siblings, lookup), nil
	}
	parent, err := h.contentStore.Get(ctx, node.ParentID)
	if err != nil {
		return false, err
	}
	parentUnlocked, err := h.isUnlocked(ctx, userID, *parent)
	if err != nil {
		return false, err
	}
	return h.rules.IsUnlocked(node, siblings, parentUnlocked, lookup), nil
}

func (h *GetUnlockStateHandler) lookup(ctx context.Context, userID shared.UserID, nodes []content.Node) (progress.RecordLookup, error) {
	ids := make([]shared.NodeID, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	records, err := h.progressRepo.GetByNodes(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("get_unlock_state: failed to load records: %w", err)
	}
	return func(id shared.NodeID) (*progress.Record, bool) {
		r, ok := records[id]
		return r, ok
	}, nil
}
