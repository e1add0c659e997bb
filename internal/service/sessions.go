package service

import (
	"context"
	"sync"
	"time"

	"idle_tapper/internal/economy"
	"idle_tapper/internal/logger"
	"idle_tapper/internal/metrics"
	"idle_tapper/internal/save"
	"idle_tapper/internal/storage"
)

// Config tunes session timing.
type Config struct {
	SaveDebounce time.Duration
	SaveMaxWait  time.Duration
	TickInterval time.Duration
	IdleTimeout  time.Duration
	ProductTag   string
}

func (c *Config) defaults() {
	if c.SaveDebounce <= 0 {
		c.SaveDebounce = 1200 * time.Millisecond
	}
	if c.SaveMaxWait <= 0 {
		c.SaveMaxWait = 5 * c.SaveDebounce
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Minute
	}
}

// Sessions keeps one live Session per player, loading lazily and evicting
// players that went idle.
type Sessions struct {
	kv       storage.KV
	base     *economy.Economy
	saveOpts save.Options
	cfg      Config
	now      func() time.Time

	mu       sync.Mutex
	sessions map[int64]*Session
	// closing holds players whose evicted session is still flushing; Get
	// waits on the channel so it never loads a revision about to go stale.
	closing map[int64]chan struct{}

	startOnce sync.Once
	done      chan struct{}
}

func NewSessions(kv storage.KV, base *economy.Economy, saveOpts save.Options, cfg Config) *Sessions {
	cfg.defaults()
	if saveOpts.Economy == nil {
		saveOpts.Economy = base
	}
	return &Sessions{
		kv:       kv,
		base:     base,
		saveOpts: saveOpts,
		cfg:      cfg,
		now:      time.Now,
		sessions: map[int64]*Session{},
		closing:  map[int64]chan struct{}{},
		done:     make(chan struct{}),
	}
}

// Catalog is the shared read-only game data.
func (m *Sessions) Catalog() *economy.Catalog { return m.base.Catalog }

// Serials returns the card serial counter for a player.
func (m *Sessions) Serials(playerID int64) *economy.SerialCounter {
	return economy.NewSerialCounter(m.kv, save.Namespace(playerID), m.cfg.ProductTag)
}

// Store returns a save store for a player outside any session.
func (m *Sessions) Store(playerID int64) *save.Store {
	return save.NewStore(m.kv, playerID, m.Serials(playerID), m.saveOpts)
}

// Get returns the player's session, loading and reconciling it on first use.
// If the player's previous session is still flushing, Get waits for it.
func (m *Sessions) Get(ctx context.Context, playerID int64) (*Session, error) {
	for {
		m.mu.Lock()
		if s := m.sessions[playerID]; s != nil {
			m.mu.Unlock()
			return s, nil
		}
		closing := m.closing[playerID]
		m.mu.Unlock()

		if closing != nil {
			select {
			case <-closing:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		loaded := m.load(ctx, playerID)

		m.mu.Lock()
		if existing := m.sessions[playerID]; existing != nil {
			m.mu.Unlock()
			return existing, nil
		}
		if m.closing[playerID] != nil {
			// evicted while we were loading; our snapshot may be stale
			m.mu.Unlock()
			continue
		}
		m.sessions[playerID] = loaded
		metrics.ActiveSessions.Set(float64(len(m.sessions)))
		m.mu.Unlock()
		return loaded, nil
	}
}

func (m *Sessions) load(ctx context.Context, playerID int64) *Session {
	serials := m.Serials(playerID)
	store := save.NewStore(m.kv, playerID, serials, m.saveOpts)
	initial := store.Reconcile(ctx)
	return newSession(sessionParams{
		playerID: playerID,
		store:    store,
		econ:     m.base.WithSerials(serials),
		bus:      m.saveOpts.Bus,
		now:      m.now,
		debounce: m.cfg.SaveDebounce,
		maxWait:  m.cfg.SaveMaxWait,
	}, initial)
}

// detachLocked moves s from the live map into closing. The returned func
// must be called once s is flushed.
func (m *Sessions) detachLocked(s *Session) func() {
	delete(m.sessions, s.playerID)
	ch := make(chan struct{})
	m.closing[s.playerID] = ch
	return func() {
		m.mu.Lock()
		if m.closing[s.playerID] == ch {
			delete(m.closing, s.playerID)
		}
		m.mu.Unlock()
		close(ch)
	}
}

func (m *Sessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Sessions) snapshot() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Start runs the tick and eviction loop until ctx is cancelled, then closes
// every session.
func (m *Sessions) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		go m.loop(ctx)
	})
}

// Done is closed after the loop has flushed every session on shutdown.
func (m *Sessions) Done() <-chan struct{} { return m.done }

func (m *Sessions) loop(ctx context.Context) {
	defer close(m.done)
	tick := time.NewTicker(m.cfg.TickInterval)
	evict := time.NewTicker(time.Minute)
	defer tick.Stop()
	defer evict.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			m.CloseAll(flushCtx)
			cancel()
			return
		case <-tick.C:
			m.TickAll(m.now())
		case <-evict.C:
			m.EvictIdle(context.Background())
		}
	}
}

// TickAll credits passive income to every live session.
func (m *Sessions) TickAll(now time.Time) {
	for _, s := range m.snapshot() {
		s.Tick(now)
	}
}

// EvictIdle closes sessions untouched for longer than the idle timeout.
func (m *Sessions) EvictIdle(ctx context.Context) int {
	cutoff := m.now().Add(-m.cfg.IdleTimeout)
	evicted := 0
	for _, s := range m.snapshot() {
		if !s.idleSince().Before(cutoff) {
			continue
		}
		m.mu.Lock()
		if m.sessions[s.playerID] != s {
			m.mu.Unlock()
			continue
		}
		done := m.detachLocked(s)
		metrics.ActiveSessions.Set(float64(len(m.sessions)))
		m.mu.Unlock()

		if err := s.Close(ctx); err != nil {
			logger.Warn("flush on eviction failed", "player_id", s.playerID, "error", err)
		}
		done()
		evicted++
	}
	return evicted
}

// CloseAll flushes and drops every session.
func (m *Sessions) CloseAll(ctx context.Context) {
	m.mu.Lock()
	all := make(map[*Session]func(), len(m.sessions))
	for _, s := range m.sessions {
		all[s] = m.detachLocked(s)
	}
	metrics.ActiveSessions.Set(0)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for s, done := range all {
		wg.Add(1)
		go func(s *Session, done func()) {
			defer wg.Done()
			defer done()
			if err := s.Close(ctx); err != nil {
				logger.Warn("flush on shutdown failed", "player_id", s.playerID, "error", err)
			}
		}(s, done)
	}
	wg.Wait()
}
