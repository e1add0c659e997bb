package economy

import (
	"math"

	"idle_tapper/internal/domain"
)

// Normalize recomputes derived fields after a load: sets are sorted, nil
// collections become empty, unlocked regions are rebuilt and couponsSpent
// is clamped to what has been earned.
func (e *Economy) Normalize(s *domain.SaveState) {
	s.SchemaVersion = domain.SchemaVersion
	s.OwnedSuits = domain.NormalizeSet(s.OwnedSuits)
	s.OwnedPets = domain.NormalizeSet(s.OwnedPets)
	s.Achievements = domain.NormalizeSet(s.Achievements)
	s.TitleState.Unlocked = domain.NormalizeSet(s.TitleState.Unlocked)
	s.Owned = domain.NormalizeSet(s.Owned)
	if s.Collection.Cards == nil {
		s.Collection.Cards = []domain.CardInstance{}
	}
	s.UnlockedRegions = e.Catalog.UnlockedRegions(s.Owned)
	e.Ledger(s)
}

// Sanitize is Normalize plus range checks for untrusted payloads (imports):
// negative counters are zeroed, out-of-range stats reset to defaults, cards
// of unknown rarity and unknown countries are dropped, and equipped items
// that are not owned are unequipped. Returns the number of fields changed.
func (e *Economy) Sanitize(s *domain.SaveState) int {
	def := domain.DefaultSaveState()
	fixes := 0

	fixInt := func(v *int64, lo, fallback int64) {
		if *v < lo {
			*v = fallback
			fixes++
		}
	}
	fixFloat := func(v *float64, lo, hi, fallback float64) {
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < lo || *v > hi {
			*v = fallback
			fixes++
		}
	}
	fixLevel := func(v *int) {
		if *v < 0 {
			*v = 0
			fixes++
		}
	}

	fixInt(&s.TotalEarnings, 0, 0)
	fixInt(&s.Taps, 0, 0)
	fixInt(&s.Balance, 0, 0)
	fixInt(&s.CouponsSpent, 0, 0)
	fixInt(&s.Collection.PacksOpened, 0, 0)
	fixInt(&s.TapValue, 1, def.TapValue)
	fixFloat(&s.AutoPerSec, 0, math.MaxFloat64, def.AutoPerSec)
	fixFloat(&s.Multi, 1, math.MaxFloat64, def.Multi)
	fixFloat(&s.CritChance, 0, 1, def.CritChance)
	fixFloat(&s.CritMult, 1, math.MaxFloat64, def.CritMult)
	fixFloat(&s.AutoBonusMult, 1, math.MaxFloat64, def.AutoBonusMult)
	fixLevel(&s.CouponBoostLevel)
	fixLevel(&s.BulkDiscountLevel)
	if s.BestCombo < 0 {
		s.BestCombo = 0
		fixes++
	}

	cards := s.Collection.Cards[:0:0]
	for _, c := range s.Collection.Cards {
		if c.Rarity.Valid() {
			cards = append(cards, c)
		} else {
			fixes++
		}
	}
	s.Collection.Cards = cards

	owned := s.Owned[:0:0]
	for _, code := range s.Owned {
		if _, ok := e.Catalog.RegionOf(code); ok {
			owned = append(owned, code)
		} else {
			fixes++
		}
	}
	s.Owned = owned

	e.Normalize(s)

	if s.EquippedSuit != "" && !domain.HasString(s.OwnedSuits, s.EquippedSuit) {
		s.EquippedSuit = ""
		fixes++
	}
	if s.EquippedPet != "" && !domain.HasString(s.OwnedPets, s.EquippedPet) {
		s.EquippedPet = ""
		fixes++
	}
	if s.TitleState.Equipped != "" && !domain.HasString(s.TitleState.Unlocked, s.TitleState.Equipped) {
		s.TitleState.Equipped = ""
		fixes++
	}
	return fixes
}
