package stats

import (
	"time"

	"github.com/tilhub/tilhub-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK STATE MACHINE (серия активных дней)
// ══════════════════════════════════════════════════════════════════════════════
//
// Переход выполняется на каждом событии активности и определяется часами,
// прошедшими с last_active_at:
//
//	< 24ч, тот же календарный день  - уже засчитано, без изменений
//	< 24ч, новый день               - инкремент
//	24-48ч с защитой                - инкремент (заморозка тратится,
//	                                  амулет сохраняется)
//	24-48ч без защиты               - сброс в 1, серию можно восстановить
//	> 48ч                           - сброс в 1; амулет спасает и сгорает

// StreakOutcome - исход перехода машины серии.
type StreakOutcome string

const (
	// StreakStarted - первая активность пользователя.
	StreakStarted StreakOutcome = "started"
	// StreakUnchanged - активность в уже засчитанный день.
	StreakUnchanged StreakOutcome = "unchanged"
	// StreakMaintained - серия продолжена.
	StreakMaintained StreakOutcome = "maintained"
	// StreakProtected - день пропущен, но защита сохранила серию.
	StreakProtected StreakOutcome = "protected"
	// StreakBroken - серия сброшена в 1.
	StreakBroken StreakOutcome = "broken"
)

// StreakDayMilestones - дни серии, на которых сигналится бонус.
var StreakDayMilestones = []int{7, 30, 100, 365}

// StreakChange описывает результат одного перехода.
type StreakChange struct {
	// Outcome - исход перехода.
	Outcome StreakOutcome

	// Previous - серия до перехода.
	Previous int

	// Current - серия после перехода.
	Current int

	// FreezeConsumed - была ли потрачена заморозка.
	FreezeConsumed bool

	// AmuletConsumed - был ли потрачен амулет (только случай > 48ч).
	AmuletConsumed bool

	// MilestoneHit - достигнутый день-рубеж ({7,30,100,365}), 0 если нет.
	MilestoneHit int
}

// Grew возвращает true, если серия выросла.
func (c StreakChange) Grew() bool {
	return c.Outcome == StreakStarted || c.Outcome == StreakMaintained || c.Outcome == StreakProtected
}

// AdvanceStreak выполняет переход машины серии для активности в момент now.
func (l *Ledger) AdvanceStreak(now time.Time) StreakChange {
	change := StreakChange{Previous: l.StreakCount}

	// Первая активность.
	if l.LastActiveAt.IsZero() {
		l.StreakCount = 1
		if l.BestStreak < 1 {
			l.BestStreak = 1
		}
		l.LastActiveAt = now
		l.UpdatedAt = now
		change.Outcome = StreakStarted
		change.Current = 1
		return change
	}

	hours := shared.HoursBetween(l.LastActiveAt, now)

	switch {
	case hours < 24 && shared.SameUTCDay(l.LastActiveAt, now):
		// Сегодня уже засчитано.
		change.Outcome = StreakUnchanged
		change.Current = l.StreakCount
		return change

	case hours < 24:
		l.increment(now, &change)
		change.Outcome = StreakMaintained

	case hours < 48:
		switch {
		case l.FreezeUsable(now):
			// Заморозка тратится: ровно одна на активацию.
			l.StreakFreezeActive = false
			l.StreakFreezeExpiresAt = nil
			l.increment(now, &change)
			change.Outcome = StreakProtected
			change.FreezeConsumed = true
		case l.WeekendAmuletActive:
			// Амулет в этом окне сохраняется.
			l.increment(now, &change)
			change.Outcome = StreakProtected
		default:
			l.reset(now, &change, true)
		}

	default: // >= 48 часов
		if l.WeekendAmuletActive {
			l.WeekendAmuletActive = false
			l.increment(now, &change)
			change.Outcome = StreakProtected
			change.AmuletConsumed = true
		} else {
			l.reset(now, &change, false)
		}
	}

	l.LastActiveAt = now
	l.UpdatedAt = now
	return change
}

// increment продолжает серию и проверяет дни-рубежи.
func (l *Ledger) increment(now time.Time, change *StreakChange) {
	l.StreakCount++
	if l.StreakCount > l.BestStreak {
		l.BestStreak = l.StreakCount
	}
	l.StreakRepairableUntil = nil
	change.Current = l.StreakCount

	for _, day := range StreakDayMilestones {
		if l.StreakCount == day {
			change.MilestoneHit = day
			break
		}
	}
}

// reset сбрасывает серию в 1. Сброс в окне 24-48 часов оставляет окно
// восстановления.
func (l *Ledger) reset(now time.Time, change *StreakChange, repairable bool) {
	change.Outcome = StreakBroken
	l.StreakBeforeReset = l.StreakCount
	l.StreakCount = 1
	if repairable {
		until := now.Add(StreakRepairWindow)
		l.StreakRepairableUntil = &until
	} else {
		l.StreakRepairableUntil = nil
	}
	change.Current = 1
}

// RepairStreak восстанавливает только что сломанную серию.
// Допустимо только после сброса в окне 24-48 часов, пока окно
// восстановления не истекло. Восстанавливает до max(2, BestStreak).
func (l *Ledger) RepairStreak(now time.Time) (int, error) {
	if l.StreakCount != 1 || l.StreakRepairableUntil == nil || now.After(*l.StreakRepairableUntil) {
		return 0, shared.ErrStreakNotRepairable
	}

	restored := l.BestStreak
	if restored < 2 {
		restored = 2
	}
	l.StreakCount = restored
	if l.StreakCount > l.BestStreak {
		l.BestStreak = l.StreakCount
	}
	l.StreakRepairableUntil = nil
	l.UpdatedAt = now
	return restored, nil
}
