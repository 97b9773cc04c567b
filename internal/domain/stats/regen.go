package stats

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// LAZY REGENERATION (энергия и жизни)
// ══════════════════════════════════════════════════════════════════════════════
//
// Регенерация ленивая: вычисляется детерминированно при чтении из
// (now - anchor) / interval и применяется ограниченным атомарным инкрементом.
// Якорь двигается ровно на units*interval, а не на now, чтобы дробный
// прогресс не терялся между чтениями.

// RegenResult - результат вычисления регенерации одного ресурса.
type RegenResult struct {
	// Units - сколько единиц восстановилось.
	Units int

	// NewValue - новое значение ресурса после применения.
	NewValue int

	// NewAnchor - новый якорь регенерации.
	NewAnchor time.Time

	// AtCap - достиг ли ресурс максимума (якорь следует обнулить).
	AtCap bool
}

// ComputeRegen вычисляет пассивное восстановление ресурса.
// anchor - момент, с которого идёт отсчёт; current - текущее значение.
func ComputeRegen(anchor, now time.Time, interval time.Duration, current, cap int) RegenResult {
	if current >= cap {
		return RegenResult{NewValue: current, NewAnchor: now, AtCap: true}
	}
	if interval <= 0 || !now.After(anchor) {
		return RegenResult{NewValue: current, NewAnchor: anchor}
	}

	elapsed := now.Sub(anchor)
	units := int(elapsed / interval)
	if units <= 0 {
		return RegenResult{NewValue: current, NewAnchor: anchor}
	}

	if current+units >= cap {
		units = cap - current
		return RegenResult{
			Units:     units,
			NewValue:  cap,
			NewAnchor: now,
			AtCap:     true,
		}
	}

	return RegenResult{
		Units:     units,
		NewValue:  current + units,
		NewAnchor: anchor.Add(time.Duration(units) * interval),
	}
}

// ComputeEnergyRegen вычисляет восстановление энергии записи в момент now.
// Если якорь не установлен (энергия была полной), восстановления нет.
func (l *Ledger) ComputeEnergyRegen(now time.Time) RegenResult {
	if l.EnergyAnchorAt == nil {
		return RegenResult{NewValue: l.Energy, AtCap: l.Energy >= EnergyCap}
	}
	return ComputeRegen(*l.EnergyAnchorAt, now, EnergyRegenInterval, l.Energy, EnergyCap)
}

// ComputeHeartRegen вычисляет восстановление жизней записи в момент now.
// Якорь last_heart_lost_at обнуляется при полном восстановлении.
func (l *Ledger) ComputeHeartRegen(now time.Time) RegenResult {
	if l.LastHeartLostAt == nil {
		return RegenResult{NewValue: l.Hearts, AtCap: l.Hearts >= HeartsCap}
	}
	return ComputeRegen(*l.LastHeartLostAt, now, HeartRegenInterval, l.Hearts, HeartsCap)
}
