package domain

import (
	"slices"
	"time"
)

// SchemaVersion is stamped on every default snapshot.
const SchemaVersion = 2

// HomeRegion is always unlocked.
const HomeRegion = "europe"

// TitleState tracks unlocked and equipped titles; deep-merged on save.
type TitleState struct {
	Unlocked []string `json:"unlocked"`
	Equipped string   `json:"equipped"`
}

// SaveState is the single persisted aggregate of a player's progress.
type SaveState struct {
	SchemaVersion int       `json:"schemaVersion"`
	Revision      int64     `json:"revision"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// lifetime counters, never decrease
	TotalEarnings int64 `json:"totalEarnings"`
	Taps          int64 `json:"taps"`

	Balance int64 `json:"balance"`

	TapValue          int64   `json:"tapValue"`
	AutoPerSec        float64 `json:"autoPerSec"`
	Multi             float64 `json:"multi"`
	CritChance        float64 `json:"critChance"`
	CritMult          float64 `json:"critMult"`
	AutoBonusMult     float64 `json:"autoBonusMult"`
	CouponBoostLevel  int     `json:"couponBoostLevel"`
	BulkDiscountLevel int     `json:"bulkDiscountLevel"`

	EquippedSuit string   `json:"equippedSuit"`
	EquippedPet  string   `json:"equippedPet"`
	OwnedSuits   []string `json:"ownedSuits"`
	OwnedPets    []string `json:"ownedPets"`

	Collection   Collection `json:"collection"`
	CouponsSpent int64      `json:"couponsSpent"`

	Achievements []string   `json:"achievements"`
	TitleState   TitleState `json:"titleState"`

	Owned           []string `json:"owned"`
	UnlockedRegions []string `json:"unlockedRegions"`

	BestCombo int `json:"bestCombo"`
}

// DefaultSaveState returns a fresh snapshot. Each call returns new slices.
func DefaultSaveState() SaveState {
	return SaveState{
		SchemaVersion:   SchemaVersion,
		TapValue:        1,
		Multi:           1,
		CritMult:        2,
		AutoBonusMult:   1,
		OwnedSuits:      []string{},
		OwnedPets:       []string{},
		Collection:      Collection{Cards: []CardInstance{}},
		Achievements:    []string{},
		TitleState:      TitleState{Unlocked: []string{}},
		Owned:           []string{},
		UnlockedRegions: []string{HomeRegion},
	}
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (s SaveState) Clone() SaveState {
	out := s
	out.OwnedSuits = slices.Clone(s.OwnedSuits)
	out.OwnedPets = slices.Clone(s.OwnedPets)
	out.Collection.Cards = slices.Clone(s.Collection.Cards)
	out.Achievements = slices.Clone(s.Achievements)
	out.TitleState.Unlocked = slices.Clone(s.TitleState.Unlocked)
	out.Owned = slices.Clone(s.Owned)
	out.UnlockedRegions = slices.Clone(s.UnlockedRegions)
	return out
}

// HasString reports membership in a sorted or unsorted id set.
func HasString(set []string, id string) bool {
	return slices.Contains(set, id)
}

// AddString inserts id keeping the set sorted and unique.
func AddString(set []string, id string) []string {
	i, found := slices.BinarySearch(set, id)
	if found {
		return set
	}
	return slices.Insert(set, i, id)
}

// NormalizeSet sorts and deduplicates, dropping empty ids.
func NormalizeSet(set []string) []string {
	out := make([]string, 0, len(set))
	for _, id := range set {
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
