package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"idle_tapper/internal/domain"
	"idle_tapper/internal/economy"
	"idle_tapper/internal/events"
	"idle_tapper/internal/logger"
	"idle_tapper/internal/metrics"
	"idle_tapper/internal/save"
)

var ErrSessionClosed = errors.New("session closed")

// comboWindow is the longest gap between taps that still extends a combo.
const comboWindow = 1500 * time.Millisecond

// Session holds one player's live SaveState. Mutations happen in memory
// under mu and reach the store through a debounced Commit.
type Session struct {
	playerID int64
	store    *save.Store
	econ     *economy.Economy
	bus      *events.Bus
	now      func() time.Time
	log      *slog.Logger

	debounce time.Duration
	maxWait  time.Duration

	// flushMu orders store writes from this session: commits, imports
	// and resets never interleave.
	flushMu sync.Mutex

	mu          sync.Mutex
	state       domain.SaveState
	bonuses     economy.MapBonuses
	dirty       bool
	dirtySince  time.Time
	timer       *time.Timer
	lastTick    time.Time
	lastTouched time.Time
	combo       int
	lastTapAt   time.Time
	closed      bool
}

type sessionParams struct {
	playerID int64
	store    *save.Store
	econ     *economy.Economy
	bus      *events.Bus
	now      func() time.Time
	debounce time.Duration
	maxWait  time.Duration
}

func newSession(p sessionParams, initial domain.SaveState) *Session {
	if p.now == nil {
		p.now = time.Now
	}
	now := p.now()
	s := &Session{
		playerID:    p.playerID,
		store:       p.store,
		econ:        p.econ,
		bus:         p.bus,
		now:         p.now,
		log:         logger.Component("session").With("player_id", p.playerID),
		debounce:    p.debounce,
		maxWait:     p.maxWait,
		state:       initial,
		lastTick:    now,
		lastTouched: now,
	}
	s.bonuses = s.econ.Catalog.MapBonuses(initial.Owned)
	return s
}

func (s *Session) PlayerID() int64 { return s.playerID }

// markDirtyLocked re-arms the debounce timer. Once a write has been pending
// for maxWait the timer is left alone so a steady stream of mutations still
// gets persisted.
func (s *Session) markDirtyLocked() {
	now := s.now()
	if !s.dirty {
		s.dirty = true
		s.dirtySince = now
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, s.flushFromTimer)
		return
	}
	if s.maxWait > 0 && now.Sub(s.dirtySince) >= s.maxWait {
		return
	}
	s.timer.Reset(s.debounce)
}

func (s *Session) flushFromTimer() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		s.log.Warn("debounced save failed", "error", err)
	}
}

// Flush commits pending changes now. A stale revision means the save was
// replaced underneath us; the session then adopts the stored copy.
func (s *Session) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snapshot := s.state.Clone()
	s.dirty = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	committed, err := s.store.Commit(ctx, snapshot)
	switch {
	case err == nil:
		s.mu.Lock()
		s.state.Revision = committed.Revision
		s.state.UpdatedAt = committed.UpdatedAt
		s.mu.Unlock()
		return nil
	case errors.Is(err, save.ErrStaleRevision):
		fresh := s.store.Load(ctx)
		s.mu.Lock()
		s.state = fresh
		s.bonuses = s.econ.Catalog.MapBonuses(fresh.Owned)
		s.mu.Unlock()
		s.log.Warn("save changed elsewhere, reloaded", "revision", fresh.Revision)
		return nil
	default:
		// keep the changes pending for the next attempt
		s.mu.Lock()
		if !s.closed {
			s.markDirtyLocked()
		} else {
			s.dirty = true
		}
		s.mu.Unlock()
		return err
	}
}

// Close flushes and stops the timer. Later mutations fail.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	err := s.Flush(ctx)
	s.store.Wait()
	return err
}

// mutate runs fn under the lock and schedules a save when it succeeds.
func (s *Session) mutate(touch bool, fn func(st *domain.SaveState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if touch {
		s.lastTouched = s.now()
	}
	if err := fn(&s.state); err != nil {
		return err
	}
	s.markDirtyLocked()
	return nil
}

// TapOutcome is the response to a tap batch.
type TapOutcome struct {
	economy.TapResult
	Combo   int   `json:"combo"`
	Balance int64 `json:"balance"`
}

// Tap applies n taps. Taps within comboWindow of the previous batch extend
// the combo; bestCombo is persisted.
func (s *Session) Tap(n int64) (TapOutcome, error) {
	var out TapOutcome
	err := s.mutate(true, func(st *domain.SaveState) error {
		if n <= 0 {
			return economy.ErrInvalidQuantity
		}
		res := s.econ.Tap(st, n)
		now := s.now()
		if !s.lastTapAt.IsZero() && now.Sub(s.lastTapAt) <= comboWindow {
			s.combo += int(res.Taps)
		} else {
			s.combo = int(res.Taps)
		}
		s.lastTapAt = now
		st.BestCombo = max(st.BestCombo, s.combo)

		metrics.Taps.Add(float64(res.Taps))
		out = TapOutcome{TapResult: res, Combo: s.combo, Balance: st.Balance}
		return nil
	})
	return out, err
}

// Tick credits passive income for whole seconds elapsed since the last tick.
func (s *Session) Tick(now time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	secs := int64(now.Sub(s.lastTick) / time.Second)
	if secs <= 0 {
		return 0
	}
	s.lastTick = s.lastTick.Add(time.Duration(secs) * time.Second)
	gained := s.econ.TickWith(&s.state, secs, s.bonuses)
	if gained > 0 {
		s.markDirtyLocked()
	}
	return gained
}

func (s *Session) BuyUpgrade(kind economy.UpgradeKind, qty int) (int64, error) {
	var cost int64
	err := s.mutate(true, func(st *domain.SaveState) error {
		var err error
		cost, err = s.econ.BuyUpgrade(st, kind, qty)
		return err
	})
	return cost, err
}

// OpenPack spends coupons and returns the drawn cards.
func (s *Session) OpenPack(ctx context.Context, packID string) ([]domain.CardInstance, error) {
	var cards []domain.CardInstance
	err := s.mutate(true, func(st *domain.SaveState) error {
		var err error
		cards, err = s.econ.OpenPack(ctx, st, packID)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.PacksOpened.WithLabelValues(packID).Inc()
	for _, c := range cards {
		metrics.CardsDrawn.WithLabelValues(string(c.Rarity)).Inc()
	}
	return cards, nil
}

// Conquer buys a country and pushes the new map bonuses.
func (s *Session) Conquer(code string) (int64, economy.MapBonuses, error) {
	var cost int64
	err := s.mutate(true, func(st *domain.SaveState) error {
		var err error
		cost, err = s.econ.Conquer(st, code)
		return err
	})
	if err != nil {
		return 0, economy.MapBonuses{}, err
	}
	s.mu.Lock()
	bonuses := s.econ.Catalog.MapBonuses(s.state.Owned)
	s.mu.Unlock()
	s.ApplyMapBonuses(bonuses)
	s.bus.PublishMapBonuses(s.playerID, events.MapBonusesChanged{
		APSBonus:       bonuses.APSBonus,
		CouponBonus:    bonuses.CouponBonus,
		CountriesOwned: bonuses.CountriesOwned,
	})
	return cost, bonuses, nil
}

// ApplyMapBonuses replaces the cached world-map bonuses that passive
// income and the coupon rate are computed from.
func (s *Session) ApplyMapBonuses(b economy.MapBonuses) {
	s.mu.Lock()
	s.bonuses = b
	s.mu.Unlock()
}

func (s *Session) BuySuit(id string) (int64, error) {
	var price int64
	err := s.mutate(true, func(st *domain.SaveState) error {
		var err error
		price, err = s.econ.BuySuit(st, id)
		return err
	})
	return price, err
}

func (s *Session) EquipSuit(id string) error {
	return s.mutate(true, func(st *domain.SaveState) error {
		return s.econ.EquipSuit(st, id)
	})
}

func (s *Session) BuyPet(id string) (int64, error) {
	var price int64
	err := s.mutate(true, func(st *domain.SaveState) error {
		var err error
		price, err = s.econ.BuyPet(st, id)
		return err
	})
	return price, err
}

func (s *Session) EquipPet(id string) error {
	return s.mutate(true, func(st *domain.SaveState) error {
		return s.econ.EquipPet(st, id)
	})
}

func (s *Session) ClaimAchievement(id string) (economy.Achievement, error) {
	var a economy.Achievement
	err := s.mutate(true, func(st *domain.SaveState) error {
		var err error
		a, err = s.econ.ClaimAchievement(st, id)
		return err
	})
	return a, err
}

func (s *Session) EquipTitle(id string) error {
	return s.mutate(true, func(st *domain.SaveState) error {
		return s.econ.EquipTitle(st, id)
	})
}

// Navigate asks connected clients to switch tabs.
func (s *Session) Navigate(tab string) {
	s.touch()
	s.bus.PublishNavigate(s.playerID, tab)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastTouched = s.now()
	s.mu.Unlock()
}

// View is everything the main screen renders.
type View struct {
	State       domain.SaveState     `json:"state"`
	Rates       economy.IncomeRates  `json:"rates"`
	Multipliers economy.Multipliers  `json:"multipliers"`
	Coupons     economy.CouponLedger `json:"coupons"`
	MapBonuses  economy.MapBonuses   `json:"mapBonuses"`
	Combo       int                  `json:"combo"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTouched = s.now()
	combo := s.combo
	if s.lastTapAt.IsZero() || s.now().Sub(s.lastTapAt) > comboWindow {
		combo = 0
	}
	return View{
		State:       s.state.Clone(),
		Rates:       s.econ.RatesWith(&s.state, s.bonuses),
		Multipliers: s.econ.Catalog.Snapshot(&s.state),
		Coupons:     s.econ.LedgerWith(&s.state, s.bonuses),
		MapBonuses:  s.bonuses,
		Combo:       combo,
	}
}

func (s *Session) Upgrades() []economy.UpgradeQuote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.econ.Quotes(&s.state)
}

func (s *Session) Map() []economy.RegionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.econ.Catalog.MapView(&s.state)
}

func (s *Session) Achievements() []economy.AchievementStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.econ.Achievements(&s.state)
}

// Cards returns the collection with a per-rarity tally.
func (s *Session) Cards() (domain.Collection, map[domain.Rarity]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.state.Clone().Collection
	return col, col.CountByRarity()
}

// Export flushes pending changes so the download matches what the player sees.
func (s *Session) Export(ctx context.Context) ([]byte, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}
	return s.store.Export(ctx)
}

// Import replaces the save. Pending in-memory changes are discarded.
func (s *Session) Import(ctx context.Context, data []byte) (int, error) {
	return s.replace(func() (domain.SaveState, int, error) {
		return s.store.Import(ctx, data)
	})
}

// Reset wipes the save back to defaults.
func (s *Session) Reset(ctx context.Context) error {
	_, err := s.replace(func() (domain.SaveState, int, error) {
		st, err := s.store.Reset(ctx)
		return st, 0, err
	})
	return err
}

func (s *Session) replace(write func() (domain.SaveState, int, error)) (int, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	st, fixes, err := write()
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.state = st
	s.bonuses = s.econ.Catalog.MapBonuses(st.Owned)
	s.dirty = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.combo = 0
	s.lastTapAt = time.Time{}
	s.lastTick = s.now()
	s.lastTouched = s.now()
	s.mu.Unlock()
	return fixes, nil
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTouched
}
