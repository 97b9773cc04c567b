package postgres

import (
	"context"
	"fmt"

	"github.com/tilhub/tilhub-core/internal/domain/content"
	"github.com/tilhub/tilhub-core/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT STORE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ContentStore implements content.Store for PostgreSQL.
type ContentStore struct {
	conn *Connection
}

// NewContentStore creates a new ContentStore.
func NewContentStore(conn *Connection) *ContentStore {
	return &ContentStore{conn: conn}
}

// Get returns a node by ID.
func (s *ContentStore) Get(ctx context.Context, id shared.NodeID) (*content.Node, error) {
	query := `
		SELECT id, kind, COALESCE(parent_id::text, ''), sibling_order, active, title, for_lesson
		FROM content_nodes
		WHERE id = $1
	`

	row := s.conn.QueryRow(ctx, query, id.String())
	node, err := scanNode(row)
	if IsNoRows(err) {
		return nil, shared.NewDomainError("content", "Get", shared.ErrNotFound, "node not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	return node, nil
}

// ListChildren returns the active children of a node, ordered by Order.
func (s *ContentStore) ListChildren(ctx context.Context, parentID shared.NodeID) ([]content.Node, error) {
	query := `
		SELECT id, kind, COALESCE(parent_id::text, ''), sibling_order, active, title, for_lesson
		FROM content_nodes
		WHERE parent_id = $1 AND active
		ORDER BY sibling_order ASC
	`

	rows, err := s.conn.Query(ctx, query, parentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer rows.Close()

	return scanNodes(rows)
}

// ListLevels returns all active levels, ordered by Order.
func (s *ContentStore) ListLevels(ctx context.Context) ([]content.Node, error) {
	query := `
		SELECT id, kind, COALESCE(parent_id::text, ''), sibling_order, active, title, for_lesson
		FROM content_nodes
		WHERE kind = $1 AND active
		ORDER BY sibling_order ASC
	`

	rows, err := s.conn.Query(ctx, query, string(content.KindLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}
	defer rows.Close()

	return scanNodes(rows)
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func scanNode(row pgx.Row) (*content.Node, error) {
	var n content.Node
	var id, kind, parentID string

	err := row.Scan(&id, &kind, &parentID, &n.Order, &n.Active, &n.Title, &n.ForLesson)
	if err != nil {
		return nil, err
	}

	n.ID = shared.NodeID(id)
	n.Kind = content.NodeKind(kind)
	n.ParentID = shared.NodeID(parentID)
	return &n, nil
}

func scanNodes(rows pgx.Rows) ([]content.Node, error) {
	var nodes []content.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		nodes = append(nodes, *n)
	}
	return nodes, rows.Err()
}
