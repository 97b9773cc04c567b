// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Progress events
	EventXPGained        EventType = "xp.gained"
	EventLessonCompleted EventType = "lesson.completed"
	EventContentUnlocked EventType = "content.unlocked"

	// Streak events
	EventStreakMaintained EventType = "streak.maintained"
	EventStreakBroken     EventType = "streak.broken"

	// Resource events
	EventHeartLost   EventType = "heart.lost"
	EventHeartGained EventType = "heart.gained"

	// Achievement events
	EventAchievementUnlocked EventType = "achievement.unlocked"

	// League events
	EventLeaguePromoted EventType = "league.promoted"
	EventLeagueDemoted  EventType = "league.demoted"

	// Mastery events
	EventCrownLeveledUp EventType = "crown.leveled_up"

	// Quest events
	EventQuestCompleted EventType = "quest.completed"

	// Daily goal events
	EventDailyGoalReached EventType = "daily.goal_reached"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is emitted every time a user earns XP, from any source.
// Quest progress accumulation subscribes to this event.
type XPGainedEvent struct {
	BaseEvent
	UserID   string                 `json:"user_id"`
	XPAmount int                    `json:"xp_amount"`
	Source   string                 `json:"source"` // e.g., "session", "crown_bonus", "milestone"
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"xp_amount": e.XPAmount,
		"source":    e.Source,
		"metadata":  e.Metadata,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(userID string, amount int, source string, metadata map[string]interface{}) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, userID),
		UserID:    userID,
		XPAmount:  amount,
		Source:    source,
		Metadata:  metadata,
	}
}

// LessonCompletedEvent is emitted when a lesson transitions to completed.
type LessonCompletedEvent struct {
	BaseEvent
	UserID     string  `json:"user_id"`
	LessonID   string  `json:"lesson_id"`
	CategoryID string  `json:"category_id"`
	XPGained   int     `json:"xp_gained"`
	Passed     bool    `json:"passed"`
	Score      float64 `json:"score,omitempty"`
}

// Payload implements Event interface.
func (e LessonCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"lesson_id":   e.LessonID,
		"category_id": e.CategoryID,
		"xp_gained":   e.XPGained,
		"passed":      e.Passed,
		"score":       e.Score,
	}
}

// NewLessonCompletedEvent creates a new LessonCompletedEvent.
func NewLessonCompletedEvent(userID, lessonID, categoryID string, xpGained int, passed bool) LessonCompletedEvent {
	return LessonCompletedEvent{
		BaseEvent:  NewBaseEvent(EventLessonCompleted, userID),
		UserID:     userID,
		LessonID:   lessonID,
		CategoryID: categoryID,
		XPGained:   xpGained,
		Passed:     passed,
	}
}

// ContentUnlockedEvent is emitted when the unlock cascade makes a node reachable.
type ContentUnlockedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	NodeID   string `json:"node_id"`
	NodeKind string `json:"node_kind"` // level, category, lesson
}

// Payload implements Event interface.
func (e ContentUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"node_id":   e.NodeID,
		"node_kind": e.NodeKind,
	}
}

// NewContentUnlockedEvent creates a new ContentUnlockedEvent.
func NewContentUnlockedEvent(userID, nodeID, nodeKind string) ContentUnlockedEvent {
	return ContentUnlockedEvent{
		BaseEvent: NewBaseEvent(EventContentUnlocked, userID),
		UserID:    userID,
		NodeID:    nodeID,
		NodeKind:  nodeKind,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Events
// ═══════════════════════════════════════════════════════════════════════════

// StreakMaintainedEvent is emitted when a user's daily streak grows.
type StreakMaintainedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	CurrentStreak int    `json:"current_streak"`
	BestStreak    int    `json:"best_streak"`
}

// Payload implements Event interface.
func (e StreakMaintainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"current_streak": e.CurrentStreak,
		"best_streak":    e.BestStreak,
	}
}

// NewStreakMaintainedEvent creates a new StreakMaintainedEvent.
func NewStreakMaintainedEvent(userID string, currentStreak, bestStreak int) StreakMaintainedEvent {
	return StreakMaintainedEvent{
		BaseEvent:     NewBaseEvent(EventStreakMaintained, userID),
		UserID:        userID,
		CurrentStreak: currentStreak,
		BestStreak:    bestStreak,
	}
}

// StreakBrokenEvent is emitted when a user's daily streak resets.
type StreakBrokenEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	PreviousStreak int    `json:"previous_streak"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"previous_streak": e.PreviousStreak,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previousStreak int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID),
		UserID:         userID,
		PreviousStreak: previousStreak,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Resource Events
// ═══════════════════════════════════════════════════════════════════════════

// HeartLostEvent is emitted when a user loses a heart.
type HeartLostEvent struct {
	BaseEvent
	UserID          string `json:"user_id"`
	HeartsRemaining int    `json:"hearts_remaining"`
	Reason          string `json:"reason"` // e.g., "wrong_answer"
}

// Payload implements Event interface.
func (e HeartLostEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":          e.UserID,
		"hearts_remaining": e.HeartsRemaining,
		"reason":           e.Reason,
	}
}

// NewHeartLostEvent creates a new HeartLostEvent.
func NewHeartLostEvent(userID string, heartsRemaining int, reason string) HeartLostEvent {
	return HeartLostEvent{
		BaseEvent:       NewBaseEvent(EventHeartLost, userID),
		UserID:          userID,
		HeartsRemaining: heartsRemaining,
		Reason:          reason,
	}
}

// HeartGainedEvent is emitted when a user regains a heart.
type HeartGainedEvent struct {
	BaseEvent
	UserID          string `json:"user_id"`
	HeartsRemaining int    `json:"hearts_remaining"`
	Source          string `json:"source"` // e.g., "regeneration", "purchase"
}

// Payload implements Event interface.
func (e HeartGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":          e.UserID,
		"hearts_remaining": e.HeartsRemaining,
		"source":           e.Source,
	}
}

// NewHeartGainedEvent creates a new HeartGainedEvent.
func NewHeartGainedEvent(userID string, heartsRemaining int, source string) HeartGainedEvent {
	return HeartGainedEvent{
		BaseEvent:       NewBaseEvent(EventHeartGained, userID),
		UserID:          userID,
		HeartsRemaining: heartsRemaining,
		Source:          source,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementUnlockedEvent is emitted when an achievement threshold is crossed.
type AchievementUnlockedEvent struct {
	BaseEvent
	UserID          string `json:"user_id"`
	AchievementID   string `json:"achievement_id"`
	AchievementCode string `json:"achievement_code"`
	Tier            string `json:"tier,omitempty"`
	XPReward        int    `json:"xp_reward,omitempty"`
	GemReward       int    `json:"gem_reward,omitempty"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":          e.UserID,
		"achievement_id":   e.AchievementID,
		"achievement_code": e.AchievementCode,
		"tier":             e.Tier,
		"xp_reward":        e.XPReward,
		"gem_reward":       e.GemReward,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID, achievementID, code string) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:       NewBaseEvent(EventAchievementUnlocked, userID),
		UserID:          userID,
		AchievementID:   achievementID,
		AchievementCode: code,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// League Events
// ═══════════════════════════════════════════════════════════════════════════

// LeagueChangedEvent is emitted on promotion or demotion at weekly rotation.
type LeagueChangedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	FromLeague string `json:"from_league"`
	ToLeague   string `json:"to_league"`
	Rank       int    `json:"rank"`
}

// Payload implements Event interface.
func (e LeagueChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"from_league": e.FromLeague,
		"to_league":   e.ToLeague,
		"rank":        e.Rank,
	}
}

// NewLeaguePromotedEvent creates a promotion event.
func NewLeaguePromotedEvent(userID, from, to string, rank int) LeagueChangedEvent {
	return LeagueChangedEvent{
		BaseEvent:  NewBaseEvent(EventLeaguePromoted, userID),
		UserID:     userID,
		FromLeague: from,
		ToLeague:   to,
		Rank:       rank,
	}
}

// NewLeagueDemotedEvent creates a demotion event.
func NewLeagueDemotedEvent(userID, from, to string, rank int) LeagueChangedEvent {
	return LeagueChangedEvent{
		BaseEvent:  NewBaseEvent(EventLeagueDemoted, userID),
		UserID:     userID,
		FromLeague: from,
		ToLeague:   to,
		Rank:       rank,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Mastery Events
// ═══════════════════════════════════════════════════════════════════════════

// CrownLeveledUpEvent is emitted when a skill's crown level increments.
type CrownLeveledUpEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	SkillID   string `json:"skill_id"`
	FromLevel int    `json:"from_level"`
	ToLevel   int    `json:"to_level"`
	XPReward  int    `json:"xp_reward"`
}

// Payload implements Event interface.
func (e CrownLeveledUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"skill_id":   e.SkillID,
		"from_level": e.FromLevel,
		"to_level":   e.ToLevel,
		"xp_reward":  e.XPReward,
	}
}

// NewCrownLeveledUpEvent creates a new CrownLeveledUpEvent.
func NewCrownLeveledUpEvent(userID, skillID string, fromLevel, toLevel, xpReward int) CrownLeveledUpEvent {
	return CrownLeveledUpEvent{
		BaseEvent: NewBaseEvent(EventCrownLeveledUp, userID),
		UserID:    userID,
		SkillID:   skillID,
		FromLevel: fromLevel,
		ToLevel:   toLevel,
		XPReward:  xpReward,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Quest Events
// ═══════════════════════════════════════════════════════════════════════════

// QuestCompletedEvent is emitted when a quest crosses into completed.
type QuestCompletedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	QuestID   string `json:"quest_id"`
	QuestType string `json:"quest_type"`
	Reward    int    `json:"reward"`
}

// Payload implements Event interface.
func (e QuestCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    e.UserID,
		"quest_id":   e.QuestID,
		"quest_type": e.QuestType,
		"reward":     e.Reward,
	}
}

// NewQuestCompletedEvent creates a new QuestCompletedEvent.
func NewQuestCompletedEvent(userID, questID, questType string, reward int) QuestCompletedEvent {
	return QuestCompletedEvent{
		BaseEvent: NewBaseEvent(EventQuestCompleted, userID),
		UserID:    userID,
		QuestID:   questID,
		QuestType: questType,
		Reward:    reward,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Daily Goal Events
// ═══════════════════════════════════════════════════════════════════════════

// DailyGoalReachedEvent is emitted when daily goal progress crosses the goal.
// It does not reset progress; the daily reset job handles that separately.
type DailyGoalReachedEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	DailyGoalXP int    `json:"daily_goal_xp"`
}

// Payload implements Event interface.
func (e DailyGoalReachedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":       e.UserID,
		"daily_goal_xp": e.DailyGoalXP,
	}
}

// NewDailyGoalReachedEvent creates a new DailyGoalReachedEvent.
func NewDailyGoalReachedEvent(userID string, dailyGoalXP int) DailyGoalReachedEvent {
	return DailyGoalReachedEvent{
		BaseEvent:   NewBaseEvent(EventDailyGoalReached, userID),
		UserID:      userID,
		DailyGoalXP: dailyGoalXP,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
// Publication is fire-and-forget from the domain's perspective: the core
// mutation must not depend on subscriber success.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
