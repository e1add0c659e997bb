package economy

import (
	"math"

	"idle_tapper/internal/domain"
)

// DefaultTapsPerCoupon is the base conversion rate before boosts.
const DefaultTapsPerCoupon = 100

// couponBoostStep is the rate bonus per coupon-boost level.
const couponBoostStep = 0.1

// EffectiveTapsPerCoupon = base / (1 + boostLevel×0.1 + mapCouponBonus).
func EffectiveTapsPerCoupon(base int64, boostLevel int, mapCouponBonus float64) float64 {
	if base <= 0 {
		base = DefaultTapsPerCoupon
	}
	if boostLevel < 0 {
		boostLevel = 0
	}
	if mapCouponBonus < 0 {
		mapCouponBonus = 0
	}
	return float64(base) / (1 + float64(boostLevel)*couponBoostStep + mapCouponBonus)
}

// CouponsEarned = floor(taps / effective rate).
func CouponsEarned(taps int64, effective float64) int64 {
	if taps <= 0 || effective <= 0 {
		return 0
	}
	// small epsilon keeps exact multiples from flooring down on float error
	return int64(math.Floor(float64(taps)/effective + 1e-9))
}

// CouponsAvailable is never negative.
func CouponsAvailable(earned, spent int64) int64 {
	return max(0, earned-spent)
}

// CouponLedger is the derived coupon view of a save.
type CouponLedger struct {
	TapsPerCoupon float64 `json:"tapsPerCoupon"`
	Earned        int64   `json:"earned"`
	Spent         int64   `json:"spent"`
	Available     int64   `json:"available"`
}

// Ledger computes the coupon view and heals couponsSpent in place when it
// exceeds what has been earned (stale save, lowered rate).
func (e *Economy) Ledger(s *domain.SaveState) CouponLedger {
	return e.LedgerWith(s, e.Catalog.MapBonuses(s.Owned))
}

// LedgerWith is Ledger with map bonuses supplied by the caller.
func (e *Economy) LedgerWith(s *domain.SaveState, bonus MapBonuses) CouponLedger {
	eff := EffectiveTapsPerCoupon(e.Rules.TapsPerCoupon, s.CouponBoostLevel, bonus.CouponBonus)
	earned := CouponsEarned(s.Taps, eff)
	ClampCouponsSpent(s, earned)
	return CouponLedger{
		TapsPerCoupon: eff,
		Earned:        earned,
		Spent:         s.CouponsSpent,
		Available:     CouponsAvailable(earned, s.CouponsSpent),
	}
}

// ClampCouponsSpent pulls couponsSpent into [0, earned].
func ClampCouponsSpent(s *domain.SaveState, earned int64) {
	if s.CouponsSpent > earned {
		s.CouponsSpent = earned
	}
	if s.CouponsSpent < 0 {
		s.CouponsSpent = 0
	}
}

// SpendCoupons succeeds only when available ≥ cost.
func (e *Economy) SpendCoupons(s *domain.SaveState, cost int64) error {
	if cost <= 0 {
		return ErrInvalidQuantity
	}
	l := e.Ledger(s)
	if l.Available < cost {
		return ErrInsufficientCoupons
	}
	s.CouponsSpent += cost
	return nil
}
