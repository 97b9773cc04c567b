// Package league содержит доменную модель еженедельного соревнования:
// лиги по уровням, недельные сессии и участники с рангами.
// Сессия живёт семь дней, выровнена по понедельнику 00:00 UTC, после чего
// архивируется, участники повышаются или понижаются, и создаётся новая.
package league

import (
	"context"
	"sort"
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/shared"
	"github.com/tilhub/tilhub-core/internal/domain/stats"
	"github.com/tilhub/tilhub-core/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TIERS
// ══════════════════════════════════════════════════════════════════════════════

// TierConfig описывает правила одной лиги.
type TierConfig struct {
	// Tier - идентификатор лиги.
	Tier stats.LeagueTier

	// Order - позиция лиги снизу вверх (0 = нижняя).
	Order int

	// MaxPromotions - сколько верхних мест повышается.
	MaxPromotions int

	// MinXPToPromote - минимальный недельный XP для повышения.
	MinXPToPromote int

	// DemotionThreshold - места ниже этого ранга понижаются.
	DemotionThreshold int
}

// Tiers возвращает все лиги снизу вверх.
func Tiers() []TierConfig {
	return []TierConfig{
		{Tier: stats.TierBronze, Order: 0, MaxPromotions: 10, MinXPToPromote: 100, DemotionThreshold: 25},
		{Tier: stats.TierSilver, Order: 1, MaxPromotions: 10, MinXPToPromote: 150, DemotionThreshold: 25},
		{Tier: stats.TierGold, Order: 2, MaxPromotions: 7, MinXPToPromote: 200, DemotionThreshold: 22},
		{Tier: stats.TierSapphire, Order: 3, MaxPromotions: 5, MinXPToPromote: 300, DemotionThreshold: 20},
		{Tier: stats.TierRuby, Order: 4, MaxPromotions: 3, MinXPToPromote: 400, DemotionThreshold: 18},
		{Tier: stats.TierDiamond, Order: 5, MaxPromotions: 0, MinXPToPromote: 0, DemotionThreshold: 15},
	}
}

// TierByName возвращает конфигурацию лиги по идентификатору.
func TierByName(tier stats.LeagueTier) (TierConfig, error) {
	for _, t := range Tiers() {
		if t.Tier == tier {
			return t, nil
		}
	}
	return TierConfig{}, shared.ErrUnknownTier
}

// IsBottom проверяет, нижняя ли это лига (из неё не понижают).
func (t TierConfig) IsBottom() bool {
	return t.Order == 0
}

// IsTop проверяет, верхняя ли это лига (из неё не повышают).
func (t TierConfig) IsTop() bool {
	return t.Order == len(Tiers())-1
}

// NextUp возвращает лигу на ступень выше.
func (t TierConfig) NextUp() stats.LeagueTier {
	tiers := Tiers()
	if t.IsTop() {
		return t.Tier
	}
	return tiers[t.Order+1].Tier
}

// NextDown возвращает лигу на ступень ниже.
func (t TierConfig) NextDown() stats.LeagueTier {
	tiers := Tiers()
	if t.IsBottom() {
		return t.Tier
	}
	return tiers[t.Order-1].Tier
}

// ══════════════════════════════════════════════════════════════════════════════
// WEEK WINDOW
// ══════════════════════════════════════════════════════════════════════════════

// WeekWindow возвращает границы недельной сессии, в которую попадает момент t:
// понедельник 00:00 UTC и ровно семь дней.
func WeekWindow(t time.Time) (start, end time.Time) {
	return timeutil.StartOfWeek(t), timeutil.EndOfWeek(t)
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION & PARTICIPANT
// ══════════════════════════════════════════════════════════════════════════════

// Session - недельная сессия одной лиги.
type Session struct {
	// ID - идентификатор сессии.
	ID string

	// Tier - лига сессии.
	Tier stats.LeagueTier

	// StartDate - начало окна (понедельник 00:00 UTC).
	StartDate time.Time

	// EndDate - конец окна (ровно через 7 дней).
	EndDate time.Time

	// IsActive - принимает ли сессия обновления.
	IsActive bool

	// IsArchived - завершена ли сессия ротацией.
	IsArchived bool

	// ParticipantCount - количество участников.
	ParticipantCount int

	// CreatedAt - время создания.
	CreatedAt time.Time
}

// NewSession создаёт сессию для лиги в окне, содержащем now.
func NewSession(id string, tier stats.LeagueTier, now time.Time) *Session {
	start, end := WeekWindow(now)
	return &Session{
		ID:        id,
		Tier:      tier,
		StartDate: start,
		EndDate:   end,
		IsActive:  true,
		CreatedAt: now,
	}
}

// Elapsed проверяет, истекло ли окно сессии.
func (s *Session) Elapsed(now time.Time) bool {
	return !now.UTC().Before(s.EndDate)
}

// Participant - участие пользователя в одной сессии.
type Participant struct {
	// ID - идентификатор записи участия.
	ID string

	// SessionID - сессия.
	SessionID string

	// UserID - пользователь.
	UserID shared.UserID

	// WeeklyXP - опыт, заработанный в рамках сессии.
	WeeklyXP int

	// Rank - позиция, 1-based. 0 до первого пересчёта.
	Rank int

	// Promoted / Demoted - итог ротации.
	Promoted bool
	Demoted  bool

	// JoinedAt - время присоединения (ранее присоединившийся выигрывает
	// при равном XP).
	JoinedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING & ROTATION (чистые вычисления)
// ══════════════════════════════════════════════════════════════════════════════

// RankParticipants сортирует участников по (weeklyXP убыв., joinedAt возр.)
// и присваивает ранги с единицы. Слайс модифицируется на месте.
func RankParticipants(participants []*Participant) {
	sort.SliceStable(participants, func(i, j int) bool {
		if participants[i].WeeklyXP != participants[j].WeeklyXP {
			return participants[i].WeeklyXP > participants[j].WeeklyXP
		}
		return participants[i].JoinedAt.Before(participants[j].JoinedAt)
	})
	for i, p := range participants {
		p.Rank = i + 1
	}
}

// Movement - направление перемещения участника при ротации.
type Movement int

const (
	// Stay - остаётся в своей лиге.
	Stay Movement = iota
	// Promote - повышается на одну лигу.
	Promote
	// Demote - понижается на одну лигу.
	Demote
)

// Outcome - итог ротации для одного участника.
type Outcome struct {
	Participant *Participant
	Movement    Movement
	ToTier      stats.LeagueTier
}

// PlanRotation вычисляет итоги ротации для ранжированных участников сессии.
// Верхняя лига не повышает, нижняя не понижает.
func PlanRotation(tier TierConfig, participants []*Participant) []Outcome {
	outcomes := make([]Outcome, 0, len(participants))
	for _, p := range participants {
		o := Outcome{Participant: p, Movement: Stay, ToTier: tier.Tier}
		switch {
		case !tier.IsTop() && p.Rank <= tier.MaxPromotions && p.WeeklyXP >= tier.MinXPToPromote:
			o.Movement = Promote
			o.ToTier = tier.NextUp()
		case !tier.IsBottom() && p.Rank > tier.DemotionThreshold:
			o.Movement = Demote
			o.ToTier = tier.NextDown()
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Repository персистит сессии и участников. Реализация обязана обеспечивать
// составной уникальный индекс (user, session).
type Repository interface {
	// GetActiveSession возвращает активную сессию лиги или shared.ErrNotFound.
	GetActiveSession(ctx context.Context, tier stats.LeagueTier) (*Session, error)

	// CreateSession создаёт сессию.
	CreateSession(ctx context.Context, s *Session) error

	// ListElapsedSessions возвращает активные сессии с истёкшим окном.
	ListElapsedSessions(ctx context.Context, now time.Time) ([]*Session, error)

	// ArchiveSession помечает сессию архивной и неактивной.
	ArchiveSession(ctx context.Context, sessionID string) error

	// GetParticipant возвращает участие пользователя в сессии.
	GetParticipant(ctx context.Context, sessionID string, userID shared.UserID) (*Participant, error)

	// CreateParticipantIfAbsent атомарно создаёт участие, если его ещё нет.
	// Возвращает false без ошибки при конкурентном дубликате.
	CreateParticipantIfAbsent(ctx context.Context, p *Participant) (created bool, err error)

	// AddWeeklyXP атомарно прибавляет XP участнику.
	AddWeeklyXP(ctx context.Context, sessionID string, userID shared.UserID, xp int) error

	// ListParticipants возвращает всех участников сессии.
	ListParticipants(ctx context.Context, sessionID string) ([]*Participant, error)

	// UpdateRanks сохраняет пересчитанные ранги участников.
	UpdateRanks(ctx context.Context, sessionID string, participants []*Participant) error

	// FinalizeParticipant сохраняет итог ротации (ранг, флаги).
	FinalizeParticipant(ctx context.Context, p *Participant) error
}
