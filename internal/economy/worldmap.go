package economy

import (
	"math"
	"slices"

	"idle_tapper/internal/domain"
)

const (
	CountryBaseCost     = 50000
	CountryGrowthFactor = 1.12
)

// CostForCountry is global: every conquest raises the price of the next one,
// whatever the region. The code is accepted for call-site symmetry.
func CostForCountry(_ string, ownedCount int) int64 {
	if ownedCount < 0 {
		ownedCount = 0
	}
	return floorGain(CountryBaseCost * math.Pow(CountryGrowthFactor, float64(ownedCount)))
}

// CountryBonus is the flat bonus granted by one owned country.
type CountryBonus struct {
	APSBonus    float64 `json:"apsBonus"`
	CouponBonus float64 `json:"couponBonus"`
}

// MapBonuses aggregates bonuses over every owned country.
type MapBonuses struct {
	APSBonus       float64 `json:"apsBonus"`
	CouponBonus    float64 `json:"couponBonus"`
	CountriesOwned int     `json:"countriesOwned"`
}

// CountryBonuses looks the bonus up by the country's region.
func (c *Catalog) CountryBonuses(code string) (CountryBonus, bool) {
	regionID, ok := c.regionOfCountry[code]
	if !ok {
		return CountryBonus{}, false
	}
	r := c.regionByID[regionID]
	return CountryBonus{APSBonus: r.APSBonus, CouponBonus: r.CouponBonus}, true
}

// MapBonuses sums bonuses of owned countries; unknown codes are skipped.
func (c *Catalog) MapBonuses(owned []string) MapBonuses {
	var out MapBonuses
	for _, code := range owned {
		b, ok := c.CountryBonuses(code)
		if !ok {
			continue
		}
		out.APSBonus += b.APSBonus
		out.CouponBonus += b.CouponBonus
		out.CountriesOwned++
	}
	return out
}

// UnlockedRegions runs the unlock rule to a fixed point: a locked region
// opens when it neighbors an unlocked region whose countries are all owned.
// The home region is always in the result. Output is sorted.
func (c *Catalog) UnlockedRegions(owned []string) []string {
	ownedSet := make(map[string]bool, len(owned))
	for _, code := range owned {
		ownedSet[code] = true
	}

	unlocked := map[string]bool{c.HomeRegion: true}
	for changed := true; changed; {
		changed = false
		for _, r := range c.Regions {
			if !unlocked[r.ID] || !c.regionComplete(r, ownedSet) {
				continue
			}
			for _, n := range r.Neighbors {
				if !unlocked[n] {
					unlocked[n] = true
					changed = true
				}
			}
		}
	}

	out := make([]string, 0, len(unlocked))
	for id := range unlocked {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (c *Catalog) regionComplete(r Region, owned map[string]bool) bool {
	for _, code := range r.Countries {
		if !owned[code] {
			return false
		}
	}
	return true
}

// RegionStatus is a map-screen row.
type RegionStatus struct {
	Region
	Unlocked bool     `json:"unlocked"`
	Owned    []string `json:"owned"`
}

// MapView lists every region with lock state and owned countries.
func (c *Catalog) MapView(s *domain.SaveState) []RegionStatus {
	unlocked := c.UnlockedRegions(s.Owned)
	out := make([]RegionStatus, 0, len(c.Regions))
	for _, r := range c.Regions {
		st := RegionStatus{Region: r, Unlocked: slices.Contains(unlocked, r.ID), Owned: []string{}}
		for _, code := range r.Countries {
			if domain.HasString(s.Owned, code) {
				st.Owned = append(st.Owned, code)
			}
		}
		out = append(out, st)
	}
	return out
}

// Conquer buys a country at the current global price.
func (e *Economy) Conquer(s *domain.SaveState, code string) (int64, error) {
	regionID, ok := e.Catalog.RegionOf(code)
	if !ok {
		return 0, ErrUnknownCountry
	}
	if domain.HasString(s.Owned, code) {
		return 0, ErrAlreadyOwned
	}
	if !slices.Contains(e.Catalog.UnlockedRegions(s.Owned), regionID) {
		return 0, ErrRegionLocked
	}
	cost := CostForCountry(code, len(s.Owned))
	if s.Balance < cost {
		return 0, ErrInsufficientFunds
	}
	s.Balance -= cost
	s.Owned = domain.AddString(s.Owned, code)
	s.UnlockedRegions = e.Catalog.UnlockedRegions(s.Owned)
	return cost, nil
}
