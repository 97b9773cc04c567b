// Package notification содержит типы запросов на создание уведомлений.
// Доставка - внешний коллаборатор: ядро только отправляет запросы,
// сбои логируются и проглатываются, доменная мутация от них не зависит.
package notification

import (
	"context"

	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TYPES
// ══════════════════════════════════════════════════════════════════════════════

// Type - тип уведомления.
type Type string

const (
	// TypeContentUnlocked - открыт новый контент.
	TypeContentUnlocked Type = "content_unlocked"
	// TypeStreakMaintained - серия продолжена.
	TypeStreakMaintained Type = "streak_maintained"
	// TypeStreakBroken - серия сломана.
	TypeStreakBroken Type = "streak_broken"
	// TypeAchievementUnlocked - получено достижение.
	TypeAchievementUnlocked Type = "achievement_unlocked"
	// TypeLeagueResult - итог недельной ротации лиги.
	TypeLeagueResult Type = "league_result"
	// TypeQuestCompleted - квест выполнен.
	TypeQuestCompleted Type = "quest_completed"
	// TypeMilestoneClaimed - получена награда за серию.
	TypeMilestoneClaimed Type = "milestone_claimed"
	// TypeDailyGoalReached - достигнута дневная цель.
	TypeDailyGoalReached Type = "daily_goal_reached"
)

// EntityKind - вид связанной сущности.
type EntityKind string

const (
	EntityLesson   EntityKind = "lesson"
	EntityCategory EntityKind = "category"
	EntityLevel    EntityKind = "level"
	EntityQuest    EntityKind = "quest"
	EntitySkill    EntityKind = "skill"
	EntitySession  EntityKind = "league_session"
)

// Request - запрос на создание уведомления.
type Request struct {
	// UserID - получатель.
	UserID shared.UserID

	// Type - тип уведомления.
	Type Type

	// Title - заголовок.
	Title string

	// Message - текст.
	Message string

	// RelatedEntityKind / RelatedEntityID - связанная сущность (опционально).
	RelatedEntityKind EntityKind
	RelatedEntityID   string
}

// ══════════════════════════════════════════════════════════════════════════════
// SINK (внешний коллаборатор)
// ══════════════════════════════════════════════════════════════════════════════

// Sink принимает запросы на создание уведомлений. Вызов one-way:
// ошибка означает сбой коллаборатора и никогда не должна прерывать
// доменную операцию, вызвавшую уведомление.
type Sink interface {
	// Create отправляет запрос на создание уведомления.
	Create(ctx context.Context, req Request) error
}
