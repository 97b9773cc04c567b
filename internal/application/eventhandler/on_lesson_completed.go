package eventhandler

import (
	"context"
	"log/slog"

	"github.com/tilhub/tilhub-core/internal/application/command"
	"github.com/tilhub/tilhub-core/internal/domain/quest"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON LESSON COMPLETED HANDLER
// Пересылает завершение урока в квесты типа COMPLETE_LESSONS.
// ═══════════════════════════════════════════════════════════════════════════

// OnLessonCompletedHandler обрабатывает событие завершения урока.
type OnLessonCompletedHandler struct {
	questProgress *command.UpdateQuestProgressHandler
	logger        *slog.Logger
}

// NewOnLessonCompletedHandler создаёт новый обработчик.
func NewOnLessonCompletedHandler(questProgress *command.UpdateQuestProgressHandler, logger *slog.Logger) *OnLessonCompletedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnLessonCompletedHandler{
		questProgress: questProgress,
		logger:        logger.With("handler", "on_lesson_completed"),
	}
}

// Register подписывает обработчик на шину событий.
func (h *OnLessonCompletedHandler) Register(bus shared.EventSubscriber) error {
	return bus.Subscribe(shared.EventLessonCompleted, h.Handle)
}

// Handle обрабатывает одно событие.
func (h *OnLessonCompletedHandler) Handle(event shared.Event) error {
	e, ok := event.(shared.LessonCompletedEvent)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	_, err := h.questProgress.Handle(ctx, command.UpdateQuestProgressCommand{
		UserID:    e.UserID,
		Type:      quest.TypeCompleteLessons,
		Delta:     1,
		Timestamp: e.OccurredAt(),
	})
	if err != nil {
		h.logger.Warn("quest progress update failed",
			"user_id", e.UserID,
			"lesson_id", e.LessonID,
			"error", err,
		)
	}
	return nil
}
