package economy

import (
	"math"

	"idle_tapper/internal/domain"
)

type UpgradeKind string

const (
	UpgradeTapValue      UpgradeKind = "tap_value"
	UpgradeAutoPerSec    UpgradeKind = "auto_per_sec"
	UpgradeMulti         UpgradeKind = "multi"
	UpgradeCritChance    UpgradeKind = "crit_chance"
	UpgradeCritMult      UpgradeKind = "crit_mult"
	UpgradeAutoBonusMult UpgradeKind = "auto_bonus_mult"
	UpgradeCouponBoost   UpgradeKind = "coupon_boost"
	UpgradeBulkDiscount  UpgradeKind = "bulk_discount"
)

func (k UpgradeKind) valid() bool {
	switch k {
	case UpgradeTapValue, UpgradeAutoPerSec, UpgradeMulti, UpgradeCritChance,
		UpgradeCritMult, UpgradeAutoBonusMult, UpgradeCouponBoost, UpgradeBulkDiscount:
		return true
	}
	return false
}

// bulk purchases get 2% off per bulk-discount level
const bulkDiscountStep = 0.02

// Stat steps. Float stats are rebuilt from the level on every purchase so
// repeated additions never drift.
const (
	multiStep         = 0.1
	critChanceStep    = 0.01
	critMultBase      = 2.0
	critMultStep      = 0.5
	autoBonusMultStep = 0.1
)

// UpgradeLevel returns how many times kind has been bought.
func UpgradeLevel(s *domain.SaveState, kind UpgradeKind) int {
	switch kind {
	case UpgradeTapValue:
		return int(max(0, s.TapValue-1))
	case UpgradeAutoPerSec:
		return stepLevel(s.AutoPerSec, 0, 1)
	case UpgradeMulti:
		return stepLevel(s.Multi, 1, multiStep)
	case UpgradeCritChance:
		return stepLevel(s.CritChance, 0, critChanceStep)
	case UpgradeCritMult:
		return stepLevel(s.CritMult, critMultBase, critMultStep)
	case UpgradeAutoBonusMult:
		return stepLevel(s.AutoBonusMult, 1, autoBonusMultStep)
	case UpgradeCouponBoost:
		return max(0, s.CouponBoostLevel)
	case UpgradeBulkDiscount:
		return max(0, s.BulkDiscountLevel)
	}
	return 0
}

func stepLevel(value, base, step float64) int {
	return max(0, int(math.Round((value-base)/step)))
}

func setUpgradeLevel(s *domain.SaveState, kind UpgradeKind, level int) {
	switch kind {
	case UpgradeTapValue:
		s.TapValue = int64(level) + 1
	case UpgradeAutoPerSec:
		s.AutoPerSec = float64(level)
	case UpgradeMulti:
		s.Multi = 1 + float64(level)*multiStep
	case UpgradeCritChance:
		s.CritChance = math.Min(1, float64(level)*critChanceStep)
	case UpgradeCritMult:
		s.CritMult = critMultBase + float64(level)*critMultStep
	case UpgradeAutoBonusMult:
		s.AutoBonusMult = 1 + float64(level)*autoBonusMultStep
	case UpgradeCouponBoost:
		s.CouponBoostLevel = level
	case UpgradeBulkDiscount:
		s.BulkDiscountLevel = level
	}
}

// UpgradeCost prices qty consecutive levels starting at the current one.
// Each level costs floor(base × growth^level); the sum is discounted when
// buying more than one at a time.
func UpgradeCost(def UpgradeDef, level, qty, bulkDiscountLevel int) int64 {
	var total float64
	for i := 0; i < qty; i++ {
		total += math.Floor(def.BaseCost * math.Pow(def.Growth, float64(level+i)))
	}
	if qty > 1 && bulkDiscountLevel > 0 {
		total *= 1 - math.Min(0.5, float64(bulkDiscountLevel)*bulkDiscountStep)
	}
	return floorGain(total)
}

// UpgradeQuote is a shop row.
type UpgradeQuote struct {
	Kind     UpgradeKind `json:"kind"`
	Level    int         `json:"level"`
	MaxLevel int         `json:"maxLevel"`
	Cost     int64       `json:"cost"`
}

// Quotes prices a single level of every upgrade.
func (e *Economy) Quotes(s *domain.SaveState) []UpgradeQuote {
	out := make([]UpgradeQuote, 0, len(e.Catalog.Upgrades))
	for _, def := range e.Catalog.Upgrades {
		lvl := UpgradeLevel(s, def.Kind)
		q := UpgradeQuote{Kind: def.Kind, Level: lvl, MaxLevel: def.MaxLevel}
		if lvl < def.MaxLevel {
			q.Cost = UpgradeCost(def, lvl, 1, s.BulkDiscountLevel)
		}
		out = append(out, q)
	}
	return out
}

// BuyUpgrade purchases qty levels or nothing.
func (e *Economy) BuyUpgrade(s *domain.SaveState, kind UpgradeKind, qty int) (int64, error) {
	def, ok := e.Catalog.Upgrade(kind)
	if !ok {
		return 0, ErrUnknownUpgrade
	}
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	level := UpgradeLevel(s, kind)
	if qty > def.MaxLevel-level {
		return 0, ErrMaxLevel
	}
	cost := UpgradeCost(def, level, qty, s.BulkDiscountLevel)
	if s.Balance < cost {
		return 0, ErrInsufficientFunds
	}
	s.Balance -= cost
	setUpgradeLevel(s, kind, level+qty)
	return cost, nil
}
