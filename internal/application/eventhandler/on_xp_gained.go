// Package eventhandler содержит обработчики доменных событий.
// Обработчики - "реактивная" часть системы: связывают движки через
// асинхронные события и запускают побочные эффекты, не участвующие в
// основной мутации (прогресс квестов, уведомления).
package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/tilhub/tilhub-core/internal/application/command"
	"github.com/tilhub/tilhub-core/internal/domain/quest"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// handlerTimeout ограничивает время одного обработчика событий.
const handlerTimeout = 10 * time.Second

// ═══════════════════════════════════════════════════════════════════════════
// ON XP GAINED HANDLER
// Пересылает заработанный опыт в активные квесты типа EARN_XP.
// ═══════════════════════════════════════════════════════════════════════════

// OnXPGainedHandler обрабатывает событие получения опыта.
type OnXPGainedHandler struct {
	questProgress *command.UpdateQuestProgressHandler
	logger        *slog.Logger
}

// NewOnXPGainedHandler создаёт новый обработчик.
func NewOnXPGainedHandler(questProgress *command.UpdateQuestProgressHandler, logger *slog.Logger) *OnXPGainedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnXPGainedHandler{
		questProgress: questProgress,
		logger:        logger.With("handler", "on_xp_gained"),
	}
}

// Register подписывает обработчик на шину событий.
func (h *OnXPGainedHandler) Register(bus shared.EventSubscriber) error {
	return bus.Subscribe(shared.EventXPGained, h.Handle)
}

// Handle обрабатывает одно событие.
func (h *OnXPGainedHandler) Handle(event shared.Event) error {
	e, ok := event.(shared.XPGainedEvent)
	if !ok {
		return nil
	}
	// В квесты идёт только опыт сессий, не бонусы короны и достижений.
	if e.Source != "session" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	_, err := h.questProgress.Handle(ctx, command.UpdateQuestProgressCommand{
		UserID:    e.UserID,
		Type:      quest.TypeEarnXP,
		Delta:     e.XPAmount,
		Timestamp: e.OccurredAt(),
	})
	if err != nil {
		h.logger.Warn("quest progress update failed",
			"user_id", e.UserID,
			"xp", e.XPAmount,
			"error", err,
		)
	}
	// Сбой прогресса квестов не должен ронять доставку события.
	return nil
}
