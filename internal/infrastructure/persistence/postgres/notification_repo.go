package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/notification"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION REPOSITORY IMPLEMENTATION
// Хранит уведомления в таблице-аутбоксе; доставка на устройства остаётся
// за внешними системами.
// ══════════════════════════════════════════════════════════════════════════════

// StoredNotification - строка аутбокса уведомлений.
type StoredNotification struct {
	ID                string
	UserID            shared.UserID
	Type              notification.Type
	Title             string
	Message           string
	RelatedEntityKind notification.EntityKind
	RelatedEntityID   string
	IsRead            bool
	CreatedAt         time.Time
}

// NotificationRepository пишет и читает аутбокс уведомлений.
type NotificationRepository struct {
	conn *Connection
}

// NewNotificationRepository создаёт новый NotificationRepository.
func NewNotificationRepository(conn *Connection) *NotificationRepository {
	return &NotificationRepository{conn: conn}
}

// Insert сохраняет запрос на уведомление.
func (r *NotificationRepository) Insert(ctx context.Context, req notification.Request) error {
	query := `
		INSERT INTO notifications (
			user_id, notification_type, title, message,
			related_entity_kind, related_entity_id
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	var entityKind, entityID *string
	if req.RelatedEntityKind != "" {
		k := string(req.RelatedEntityKind)
		entityKind = &k
	}
	if req.RelatedEntityID != "" {
		id := req.RelatedEntityID
		entityID = &id
	}

	_, err := r.conn.Exec(ctx, query,
		req.UserID.String(),
		string(req.Type),
		req.Title,
		req.Message,
		entityKind,
		entityID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListRecent возвращает свежие уведомления пользователя.
func (r *NotificationRepository) ListRecent(ctx context.Context, userID shared.UserID, limit int) ([]StoredNotification, error) {
	query := `
		SELECT id, user_id, notification_type, title, message,
			   COALESCE(related_entity_kind, ''), COALESCE(related_entity_id, ''),
			   is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var items []StoredNotification
	for rows.Next() {
		var n StoredNotification
		var uid, ntype, entityKind string

		err := rows.Scan(&n.ID, &uid, &ntype, &n.Title, &n.Message, &entityKind, &n.RelatedEntityID, &n.IsRead, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		n.UserID = shared.UserID(uid)
		n.Type = notification.Type(ntype)
		n.RelatedEntityKind = notification.EntityKind(entityKind)
		items = append(items, n)
	}
	return items, rows.Err()
}

// MarkRead помечает уведомление прочитанным.
func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID string) error {
	tag, err := r.conn.Exec(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE id = $1",
		notificationID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewDomainError("notification", "MarkRead", shared.ErrNotFound, "notification not found")
	}
	return nil
}
