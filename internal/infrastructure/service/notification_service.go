// Package service содержит инфраструктурные реализации внешних
// коллабораторов доменного слоя.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/notification"
	"github.com/tilhub/tilhub-core/pkg/circuitbreaker"
	"github.com/tilhub/tilhub-core/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION OUTBOX
// ══════════════════════════════════════════════════════════════════════════════

// NotificationStore - хранилище запросов на уведомления.
// Реализуется postgres.NotificationRepository.
type NotificationStore interface {
	Insert(ctx context.Context, req notification.Request) error
}

// NotificationOutbox реализует notification.Sink поверх Postgres-outbox.
// Запись защищена circuit breaker и ретраями: уведомления - сторонний
// эффект, их сбой никогда не должен ронять доменную операцию.
type NotificationOutbox struct {
	store   NotificationStore
	breaker *circuitbreaker.CircuitBreaker
	retrier *retry.Retrier
	logger  *slog.Logger
}

// NewNotificationOutbox создаёт sink уведомлений.
func NewNotificationOutbox(store NotificationStore, logger *slog.Logger) *NotificationOutbox {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "notification_outbox")

	breaker := circuitbreaker.NotificationBreaker(func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker state changed",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
	})

	return &NotificationOutbox{
		store:   store,
		breaker: breaker,
		retrier: retry.DatabaseRetrier(),
		logger:  logger,
	}
}

// Create записывает запрос в outbox. Ошибка возвращается вызывающему,
// но вызывающие обязаны её проглатывать (контракт notification.Sink).
func (o *NotificationOutbox) Create(ctx context.Context, req notification.Request) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := o.breaker.Execute(ctx, func(ctx context.Context) error {
		return o.retrier.Do(ctx, func(ctx context.Context) error {
			return o.store.Insert(ctx, req)
		})
	})
	if err != nil {
		o.logger.Warn("failed to enqueue notification",
			"user_id", req.UserID,
			"type", req.Type,
			"error", err,
		)
		return err
	}

	o.logger.Debug("notification enqueued",
		"user_id", req.UserID,
		"type", req.Type,
	)
	return nil
}
