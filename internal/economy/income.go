package economy

import (
	"math"

	"idle_tapper/internal/domain"
)

// TapGain floors once, after every factor is applied. Flooring per factor
// would bleed income over many taps.
func TapGain(s *domain.SaveState, m Multipliers, crit bool) int64 {
	product := float64(s.TapValue) * s.Multi * m.SuitMult * m.PetTapMult * m.CardMultAll
	if crit {
		product *= s.CritMult
	}
	return floorGain(product)
}

// AutoGain is the passive income for one second.
func AutoGain(s *domain.SaveState, m Multipliers, mapAPSBonus float64) int64 {
	product := (s.AutoPerSec + mapAPSBonus) * s.Multi * s.AutoBonusMult *
		m.SuitMult * m.PetAutoMult * m.CardMultAll * m.GlobalMult
	return floorGain(product)
}

func floorGain(v float64) int64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Floor(v))
}

// RollCrit reports whether a tap is critical under the given chance.
func RollCrit(rng RandomSource, chance float64) bool {
	if chance <= 0 {
		return false
	}
	if chance >= 1 {
		return true
	}
	return rng.Float64() < chance
}

// Credit adds a gain to both the spendable balance and lifetime earnings.
func Credit(s *domain.SaveState, gain int64) {
	if gain <= 0 {
		return
	}
	s.Balance = addSat(s.Balance, gain)
	s.TotalEarnings = addSat(s.TotalEarnings, gain)
}

func addSat(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
