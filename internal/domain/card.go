package domain

import "time"

// Rarity is one of the seven fixed card tiers.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
	RarityMythic    Rarity = "mythic"
	RarityUltimate  Rarity = "ultimate"
)

// Rarities lists every tier from most common to rarest.
var Rarities = []Rarity{
	RarityCommon,
	RarityUncommon,
	RarityRare,
	RarityEpic,
	RarityLegendary,
	RarityMythic,
	RarityUltimate,
}

// Valid reports whether r belongs to the closed tier enumeration.
func (r Rarity) Valid() bool {
	switch r {
	case RarityCommon, RarityUncommon, RarityRare, RarityEpic,
		RarityLegendary, RarityMythic, RarityUltimate:
		return true
	}
	return false
}

// CardInstance is a single opened card. Never mutated after creation.
type CardInstance struct {
	ID         string    `json:"id"`
	Rarity     Rarity    `json:"rarity"`
	Serial     string    `json:"serial"`
	ObtainedAt time.Time `json:"obtainedAt"`
}

// Collection holds the ordered card list; deep-merged on save.
type Collection struct {
	Cards       []CardInstance `json:"cards"`
	PacksOpened int64          `json:"packsOpened"`
}

// CountByRarity tallies cards per tier. Unknown tiers are counted under their raw name.
func (c Collection) CountByRarity() map[Rarity]int {
	counts := make(map[Rarity]int, len(Rarities))
	for _, card := range c.Cards {
		counts[card.Rarity]++
	}
	return counts
}
