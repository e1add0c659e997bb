package save

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"idle_tapper/internal/domain"
)

// Keys written by the pre-blob layout, one value per key. They are still
// mirrored on every write for older readers.
const (
	legacyBalance        = "balance"
	legacyTaps           = "taps"
	legacyTotalEarnings  = "totalEarnings"
	legacyTapValue       = "tapValue"
	legacyAutoPerSec     = "autoPerSec"
	legacyMulti          = "multi"
	legacyEquippedSuit   = "equippedSuit"
	legacyEquippedPet    = "equippedPet"
	legacyCards          = "cards"
	legacyCouponsSpent   = "couponsSpent"
	legacyOwnedCountries = "ownedCountries"
)

var legacyNames = []string{
	legacyBalance, legacyTaps, legacyTotalEarnings, legacyTapValue,
	legacyAutoPerSec, legacyMulti, legacyEquippedSuit, legacyEquippedPet,
	legacyCards, legacyCouponsSpent, legacyOwnedCountries,
}

func (s *Store) legacyKeys() []string {
	keys := make([]string, len(legacyNames))
	for i, n := range legacyNames {
		keys[i] = s.key(n)
	}
	return keys
}

// loadLegacy rebuilds a snapshot from the per-field keys. found is false when
// none of them exist.
func (s *Store) loadLegacy(ctx context.Context) (domain.SaveState, bool) {
	st := domain.DefaultSaveState()
	found := false

	read := func(name string, dst any) {
		raw, ok, err := s.kv.Get(ctx, s.key(name))
		if err != nil {
			s.log.Warn("read legacy key failed", "key", name, "error", err)
			return
		}
		if !ok {
			return
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			s.log.Warn("corrupt legacy key, ignoring", "key", name, "error", err)
			return
		}
		found = true
	}

	read(legacyBalance, &st.Balance)
	read(legacyTaps, &st.Taps)
	read(legacyTotalEarnings, &st.TotalEarnings)
	read(legacyTapValue, &st.TapValue)
	read(legacyAutoPerSec, &st.AutoPerSec)
	read(legacyMulti, &st.Multi)
	read(legacyEquippedSuit, &st.EquippedSuit)
	read(legacyEquippedPet, &st.EquippedPet)
	read(legacyCards, &st.Collection.Cards)
	read(legacyCouponsSpent, &st.CouponsSpent)
	read(legacyOwnedCountries, &st.Owned)

	if !found {
		return domain.SaveState{}, false
	}
	// old saves only tracked the balance
	if st.TotalEarnings < st.Balance {
		st.TotalEarnings = st.Balance
	}
	if st.EquippedSuit != "" {
		st.OwnedSuits = domain.AddString(st.OwnedSuits, st.EquippedSuit)
	}
	if st.EquippedPet != "" {
		st.OwnedPets = domain.AddString(st.OwnedPets, st.EquippedPet)
	}
	s.log.Info("migrated legacy save keys")
	return st, true
}

// legacyValues encodes the fields older readers look at, keyed like the
// pre-blob layout. They are written in the same batch as the blob.
func (s *Store) legacyValues(st domain.SaveState) (map[string][]byte, error) {
	fields := map[string]any{
		legacyBalance:        st.Balance,
		legacyTaps:           st.Taps,
		legacyTotalEarnings:  st.TotalEarnings,
		legacyTapValue:       st.TapValue,
		legacyAutoPerSec:     st.AutoPerSec,
		legacyMulti:          st.Multi,
		legacyEquippedSuit:   st.EquippedSuit,
		legacyEquippedPet:    st.EquippedPet,
		legacyCards:          st.Collection.Cards,
		legacyCouponsSpent:   st.CouponsSpent,
		legacyOwnedCountries: st.Owned,
	}
	out := make(map[string][]byte, len(fields))
	var errs []error
	for name, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		out[s.key(name)] = raw
	}
	return out, errors.Join(errs...)
}
