package economy

import (
	"idle_tapper/internal/domain"
)

// Multipliers is recomputed on every read; only its inputs are persisted.
type Multipliers struct {
	SuitMult    float64 `json:"suitMult"`
	PetTapMult  float64 `json:"petTapMult"`
	PetAutoMult float64 `json:"petAutoMult"`
	CardMultAll float64 `json:"cardMultAll"`
	GlobalMult  float64 `json:"globalMult"`
}

// CardMultAll returns 1 + sum(count × tier percent)/100. Never below 1 and
// never decreasing as cards are added.
func CardMultAll(cards []domain.CardInstance) float64 {
	total := 0.0
	for _, c := range cards {
		total += CardPercent(c.Rarity)
	}
	return 1 + total/100
}

// CardMultFromCounts is CardMultAll for a pre-tallied collection.
func CardMultFromCounts(counts map[domain.Rarity]int) float64 {
	total := 0.0
	for r, n := range counts {
		total += float64(n) * CardPercent(r)
	}
	return 1 + total/100
}

// SuitMult is 1 when nothing is equipped or the id is unknown.
func (c *Catalog) SuitMult(equipped string) float64 {
	if equipped == "" {
		return 1
	}
	s, ok := c.suitByID[equipped]
	if !ok || s.Mult <= 0 {
		return 1
	}
	return s.Mult
}

// PetMultipliers returns (tap, auto, global); all 1 when no pet is equipped.
func (c *Catalog) PetMultipliers(equipped string) (tapMult, autoMult, globalMult float64) {
	p, ok := c.petByID[equipped]
	if equipped == "" || !ok {
		return 1, 1, 1
	}
	return orOne(p.TapMult), orOne(p.AutoMult), orOne(p.GlobalMult)
}

func orOne(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}

// Snapshot derives the multiplier set from a save.
func (c *Catalog) Snapshot(s *domain.SaveState) Multipliers {
	tap, auto, global := c.PetMultipliers(s.EquippedPet)
	return Multipliers{
		SuitMult:    c.SuitMult(s.EquippedSuit),
		PetTapMult:  tap,
		PetAutoMult: auto,
		CardMultAll: CardMultAll(s.Collection.Cards),
		GlobalMult:  global,
	}
}
