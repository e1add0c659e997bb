// Package economy holds the game rules: drop tables, income multipliers,
// coupon conversion, the world-map price curve and the shop. Every function
// operates on a caller-owned *domain.SaveState; nothing here keeps player
// state of its own.
package economy

import (
	"context"
	"math"
	"time"

	"idle_tapper/internal/domain"
)

// Rules are the tunables that come from configuration rather than tables.
type Rules struct {
	TapsPerCoupon     int64
	MaxTapsPerRequest int64
}

func DefaultRules() Rules {
	return Rules{TapsPerCoupon: DefaultTapsPerCoupon, MaxTapsPerRequest: 50}
}

type Economy struct {
	Catalog *Catalog
	Rules   Rules
	RNG     RandomSource
	Serials *SerialCounter
	Now     func() time.Time
}

func New(catalog *Catalog, rules Rules, rng RandomSource, serials *SerialCounter) *Economy {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if rng == nil {
		rng = DefaultRNG()
	}
	if rules.TapsPerCoupon <= 0 {
		rules.TapsPerCoupon = DefaultTapsPerCoupon
	}
	return &Economy{
		Catalog: catalog,
		Rules:   rules,
		RNG:     rng,
		Serials: serials,
		Now:     time.Now,
	}
}

// WithSerials returns a copy bound to another player's serial counters.
func (e *Economy) WithSerials(serials *SerialCounter) *Economy {
	cp := *e
	cp.Serials = serials
	return &cp
}

// TapResult reports one batch of taps.
type TapResult struct {
	Taps   int64 `json:"taps"`
	Gained int64 `json:"gained"`
	Crits  int   `json:"crits"`
}

// Tap applies n taps. Each tap rolls its own crit and floors its own gain.
func (e *Economy) Tap(s *domain.SaveState, n int64) TapResult {
	if n <= 0 {
		return TapResult{}
	}
	if e.Rules.MaxTapsPerRequest > 0 && n > e.Rules.MaxTapsPerRequest {
		n = e.Rules.MaxTapsPerRequest
	}
	m := e.Catalog.Snapshot(s)
	res := TapResult{Taps: n}
	for i := int64(0); i < n; i++ {
		crit := RollCrit(e.RNG, s.CritChance)
		if crit {
			res.Crits++
		}
		gain := TapGain(s, m, crit)
		Credit(s, gain)
		res.Gained += gain
		s.Taps++
	}
	return res
}

// Tick credits `seconds` worth of passive income.
func (e *Economy) Tick(s *domain.SaveState, seconds int64) int64 {
	return e.TickWith(s, seconds, e.Catalog.MapBonuses(s.Owned))
}

// TickWith is Tick with map bonuses supplied by the caller.
func (e *Economy) TickWith(s *domain.SaveState, seconds int64, bonus MapBonuses) int64 {
	if seconds <= 0 {
		return 0
	}
	m := e.Catalog.Snapshot(s)
	perSec := AutoGain(s, m, bonus.APSBonus)
	if perSec <= 0 {
		return 0
	}
	total := perSec * seconds
	if total/seconds != perSec {
		total = math.MaxInt64
	}
	Credit(s, total)
	return total
}

// IncomeRates is the per-tap and per-second income shown to the player.
type IncomeRates struct {
	PerTap    int64 `json:"perTap"`
	PerSecond int64 `json:"perSecond"`
}

func (e *Economy) Rates(s *domain.SaveState) IncomeRates {
	return e.RatesWith(s, e.Catalog.MapBonuses(s.Owned))
}

func (e *Economy) RatesWith(s *domain.SaveState, bonus MapBonuses) IncomeRates {
	m := e.Catalog.Snapshot(s)
	return IncomeRates{
		PerTap:    TapGain(s, m, false),
		PerSecond: AutoGain(s, m, bonus.APSBonus),
	}
}

// OpenPack spends the pack's coupon cost and appends its cards. Cards are
// drawn first; when drawing fails the save is left untouched.
func (e *Economy) OpenPack(ctx context.Context, s *domain.SaveState, packID string) ([]domain.CardInstance, error) {
	pack, ok := e.Catalog.Pack(packID)
	if !ok {
		return nil, ErrUnknownPack
	}
	if e.Ledger(s).Available < pack.Cost {
		return nil, ErrInsufficientCoupons
	}
	cards, err := DrawCards(ctx, e.RNG, e.Serials, pack.Cards, e.Now())
	if err != nil {
		return nil, err
	}
	if err := e.SpendCoupons(s, pack.Cost); err != nil {
		return nil, err
	}
	s.Collection.Cards = append(s.Collection.Cards, cards...)
	s.Collection.PacksOpened++
	return cards, nil
}
