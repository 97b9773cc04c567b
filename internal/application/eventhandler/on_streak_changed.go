package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tilhub/tilhub-core/internal/domain/milestone"
	"github.com/tilhub/tilhub-core/internal/domain/notification"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON STREAK CHANGED HANDLER
// Реагирует на рост серии: когда длина серии совпадает с днём вехи,
// отправляет уведомление о доступной награде.
// ═══════════════════════════════════════════════════════════════════════════

// OnStreakChangedHandler обрабатывает события серии.
type OnStreakChangedHandler struct {
	notifier notification.Sink
	logger   *slog.Logger
}

// NewOnStreakChangedHandler создаёт новый обработчик.
func NewOnStreakChangedHandler(notifier notification.Sink, logger *slog.Logger) *OnStreakChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnStreakChangedHandler{
		notifier: notifier,
		logger:   logger.With("handler", "on_streak_changed"),
	}
}

// Register подписывает обработчик на шину событий.
func (h *OnStreakChangedHandler) Register(bus shared.EventSubscriber) error {
	return bus.Subscribe(shared.EventStreakMaintained, h.Handle)
}

// Handle обрабатывает одно событие.
func (h *OnStreakChangedHandler) Handle(event shared.Event) error {
	e, ok := event.(shared.StreakMaintainedEvent)
	if !ok {
		return nil
	}

	m, ok := milestone.ByDay(e.CurrentStreak)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	err := h.notifier.Create(ctx, notification.Request{
		UserID:  shared.UserID(e.UserID),
		Type:    notification.TypeStreakMaintained,
		Title:   fmt.Sprintf("%d-day streak!", e.CurrentStreak),
		Message: fmt.Sprintf("A reward of %d gems is waiting for you", m.Reward.Gems),
	})
	if err != nil {
		h.logger.Warn("milestone notification failed",
			"user_id", e.UserID,
			"streak", e.CurrentStreak,
			"error", err,
		)
	}
	return nil
}
