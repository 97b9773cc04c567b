package redis

import (
	"context"

	"github.com/tilhub/tilhub-core/internal/infrastructure/messaging"
	"github.com/tilhub/tilhub-core/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT BUS CLIENT
//
// Адаптер Cache к messaging.RedisClient: через него RedisEventBus гоняет
// доменные события между инстансами (API-процессы и worker) поверх Pub/Sub.
// ══════════════════════════════════════════════════════════════════════════════

// EventBusClient адаптирует Cache под messaging.RedisClient.
type EventBusClient struct {
	cache   *Cache
	retrier *retry.Retrier
}

// NewEventBusClient создаёт адаптер поверх существующего соединения.
func NewEventBusClient(cache *Cache) *EventBusClient {
	return &EventBusClient{
		cache:   cache,
		retrier: retry.RedisRetrier(),
	}
}

// Publish отправляет сообщение в канал. Потерянная публикация - потерянное
// событие для других инстансов, поэтому временные сбои ретраятся.
func (c *EventBusClient) Publish(ctx context.Context, channel string, message interface{}) error {
	return c.retrier.Do(ctx, func(ctx context.Context) error {
		return c.cache.Publish(ctx, channel, message)
	})
}

// Subscribe подписывается на каналы и транслирует сообщения в общий канал.
// Горутина-транслятор живёт до отмены ctx или закрытия подписки.
func (c *EventBusClient) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.RedisMessage, error) {
	sub := c.cache.Subscribe(ctx, channels...)

	// Принудительная проверка подписки: Receive вернёт ошибку сразу,
	// если соединение мертво.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan messaging.RedisMessage, 64)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- messaging.RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close ничего не закрывает: соединением владеет Cache.
func (c *EventBusClient) Close() error {
	return nil
}
