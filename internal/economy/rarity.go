package economy

import (
	"idle_tapper/internal/domain"
)

// RarityWeight is one row of the drop table.
type RarityWeight struct {
	Rarity domain.Rarity
	Weight float64 // independent percentage
}

// DropTable lists tiers from rarest to most common. The listed weights sum
// to 99.775; the last tier owns everything above the rarer thresholds, so
// common actually drops 51.425% of the time.
var DropTable = []RarityWeight{
	{Rarity: domain.RarityUltimate, Weight: 0.005},
	{Rarity: domain.RarityMythic, Weight: 0.07},
	{Rarity: domain.RarityLegendary, Weight: 1.0},
	{Rarity: domain.RarityEpic, Weight: 3.6},
	{Rarity: domain.RarityRare, Weight: 14.6},
	{Rarity: domain.RarityUncommon, Weight: 29.3},
	{Rarity: domain.RarityCommon, Weight: 51.2},
}

type cumulativeRow struct {
	rarity    domain.Rarity
	threshold float64
}

// cumulative thresholds, computed once from DropTable
var cumulativeTable = buildCumulative(DropTable)

func buildCumulative(rows []RarityWeight) []cumulativeRow {
	out := make([]cumulativeRow, len(rows))
	sum := 0.0
	for i, r := range rows {
		sum += r.Weight
		out[i] = cumulativeRow{rarity: r.Rarity, threshold: sum}
	}
	if len(out) > 0 {
		out[len(out)-1].threshold = 100
	}
	return out
}

// RollRarity draws a tier. A draw past the last threshold still falls back
// to common.
func RollRarity(rng RandomSource) domain.Rarity {
	if rng == nil {
		rng = DefaultRNG()
	}
	draw := rng.Float64() * 100
	for _, row := range cumulativeTable {
		if row.threshold >= draw {
			return row.rarity
		}
	}
	return domain.RarityCommon
}

// rarityCardPct is the income bonus per owned card, in percent.
var rarityCardPct = map[domain.Rarity]float64{
	domain.RarityCommon:    0.5,
	domain.RarityUncommon:  1.0,
	domain.RarityRare:      2.0,
	domain.RarityEpic:      4.0,
	domain.RarityLegendary: 7.0,
	domain.RarityMythic:    10.0,
	domain.RarityUltimate:  15.0,
}

// CardPercent returns the per-card bonus for a tier; unknown tiers give 0.
func CardPercent(r domain.Rarity) float64 {
	return rarityCardPct[r]
}

// serialPrefix maps tiers to the serial prefix printed on cards.
var serialPrefix = map[domain.Rarity]string{
	domain.RarityCommon:    "CMN",
	domain.RarityUncommon:  "UNC",
	domain.RarityRare:      "RAR",
	domain.RarityEpic:      "EPC",
	domain.RarityLegendary: "LEG",
	domain.RarityMythic:    "MYT",
	domain.RarityUltimate:  "ULT",
}
