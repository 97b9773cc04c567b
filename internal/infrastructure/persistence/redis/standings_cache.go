package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tilhub/tilhub-core/internal/application/query"
	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STANDINGS CACHE
//
// Зеркалирует недельную турнирную таблицу лиги в сортированном множестве:
//   "standings:{session_id}" : userID -> weeklyXP
//
// Запись best-effort из командного слоя, чтение cache-first из запросов.
// Промах кэша не ошибка: таблица пересобирается из PostgreSQL.
// ══════════════════════════════════════════════════════════════════════════════

// StandingsCache реализует command.StandingsCache и query.StandingsReader.
type StandingsCache struct {
	cache *Cache
}

// NewStandingsCache создаёт новый StandingsCache.
func NewStandingsCache(cache *Cache) *StandingsCache {
	return &StandingsCache{cache: cache}
}

// UpdateScore записывает недельный XP участника. O(log N).
func (s *StandingsCache) UpdateScore(ctx context.Context, sessionID string, userID shared.UserID, weeklyXP int) error {
	if sessionID == "" || userID.String() == "" {
		return ErrCacheKeyEmpty
	}

	key := StandingsKey(sessionID)

	pipe := s.cache.Client().Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(weeklyXP),
		Member: userID.String(),
	})
	pipe.Expire(ctx, key, TTLStandingsCache)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("standings_cache: failed to update score: %w", err)
	}
	return nil
}

// Clear удаляет таблицу сессии. Вызывается ротацией.
func (s *StandingsCache) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrCacheKeyEmpty
	}
	return s.cache.Delete(ctx, StandingsKey(sessionID))
}

// Standings возвращает верхние строки таблицы по убыванию XP.
// Пустое множество трактуется как промах: полная таблица живёт в PostgreSQL.
func (s *StandingsCache) Standings(ctx context.Context, sessionID string, limit int) ([]query.StandingsEntry, error) {
	if sessionID == "" {
		return nil, ErrCacheKeyEmpty
	}
	if limit <= 0 {
		limit = 30
	}

	key := StandingsKey(sessionID)

	members, err := s.cache.Client().ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("standings_cache: failed to read standings: %w", err)
	}
	if len(members) == 0 {
		return nil, shared.NewDomainError("league", "Standings", shared.ErrNotFound, "standings not cached")
	}

	entries := make([]query.StandingsEntry, 0, len(members))
	for _, m := range members {
		id, ok := m.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, query.StandingsEntry{
			UserID:   shared.UserID(id),
			WeeklyXP: int(m.Score),
		})
	}
	return entries, nil
}
