// Package save persists one SaveState blob per player in the local KV store,
// keeps the legacy per-field keys in sync and mirrors every write to an
// optional remote store.
package save

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"idle_tapper/internal/domain"
	"idle_tapper/internal/economy"
	"idle_tapper/internal/events"
	"idle_tapper/internal/logger"
	"idle_tapper/internal/metrics"
	"idle_tapper/internal/storage"
)

var (
	ErrInvalidImport = errors.New("invalid save data")
	ErrStaleRevision = errors.New("save was modified concurrently")
)

const blobSuffix = "save_v2"

// Remote is the best-effort mirror of a player's snapshot.
type Remote interface {
	PutSnapshot(ctx context.Context, playerID int64, s domain.SaveState) error
	GetSnapshot(ctx context.Context, playerID int64) (domain.SaveState, bool, error)
}

// Patch is a partial SaveState keyed by JSON field name.
type Patch map[string]any

// Options are shared by every player's store.
type Options struct {
	Economy       *economy.Economy
	Remote        Remote
	Bus           *events.Bus
	SerialPolicy  economy.SerialPolicy
	RemoteTimeout time.Duration
	Now           func() time.Time
}

// Store is one player's save. All writes go through mu, so a single Store
// is the only writer for its keys within the process.
type Store struct {
	kv       storage.KV
	playerID int64
	prefix   string
	opts     Options
	serials  *economy.SerialCounter
	log      *slog.Logger

	mu       sync.Mutex
	inflight sync.WaitGroup
}

func NewStore(kv storage.KV, playerID int64, serials *economy.SerialCounter, opts Options) *Store {
	if opts.Economy == nil {
		opts.Economy = economy.New(nil, economy.DefaultRules(), nil, serials)
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SerialPolicy == "" {
		opts.SerialPolicy = economy.SerialsIndependent
	}
	return &Store{
		kv:       kv,
		playerID: playerID,
		prefix:   Namespace(playerID),
		opts:     opts,
		serials:  serials,
		log:      logger.Component("save").With("player_id", playerID),
	}
}

// Namespace is the key prefix for everything stored for a player.
func Namespace(playerID int64) string {
	return "player:" + strconv.FormatInt(playerID, 10)
}

func (s *Store) key(name string) string { return s.prefix + ":" + name }

// Load returns the stored snapshot, a migrated legacy snapshot, or a fresh
// default, in that order of preference. Storage and parse failures are
// logged and degrade to the next source.
func (s *Store) Load(ctx context.Context) domain.SaveState {
	st, _ := s.load(ctx)
	return st
}

// load also reports whether a blob exists.
func (s *Store) load(ctx context.Context) (domain.SaveState, bool) {
	blob, ok, err := s.kv.Get(ctx, s.key(blobSuffix))
	if err != nil {
		s.log.Warn("read save blob failed", "error", err)
	}
	if ok {
		st, err := decodeOnDefault(blob)
		if err == nil {
			s.opts.Economy.Normalize(&st)
			return st, true
		}
		s.log.Warn("corrupt save blob, ignoring", "error", err)
	}

	if st, found := s.loadLegacy(ctx); found {
		s.opts.Economy.Normalize(&st)
		return st, false
	}

	st := domain.DefaultSaveState()
	s.opts.Economy.Normalize(&st)
	return st, false
}

// storedRevision reads only the revision of the current blob.
func (s *Store) storedRevision(ctx context.Context) (int64, error) {
	blob, ok, err := s.kv.Get(ctx, s.key(blobSuffix))
	if err != nil {
		return 0, fmt.Errorf("read save blob: %w", err)
	}
	if !ok {
		return 0, nil
	}
	var meta struct {
		Revision int64 `json:"revision"`
	}
	if err := json.Unmarshal(blob, &meta); err != nil {
		return 0, nil
	}
	return meta.Revision, nil
}

// decodeOnDefault unmarshals over a default snapshot so missing fields keep
// their defaults. Nested objects merge field by field.
func decodeOnDefault(data []byte) (domain.SaveState, error) {
	st := domain.DefaultSaveState()
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&st); err != nil {
		return domain.SaveState{}, err
	}
	return st, nil
}

// Save merges patch over the current snapshot and writes the result. A patch
// that changes nothing does not write, so revisions only move on real change.
func (s *Store) Save(ctx context.Context, patch Patch) (domain.SaveState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, _ := s.load(ctx)
	if len(patch) == 0 {
		return cur, nil
	}
	next, err := applyPatch(cur, patch)
	if err != nil {
		return cur, err
	}
	s.opts.Economy.Normalize(&next)
	if sameContent(cur, next) {
		return cur, nil
	}
	next.Revision = cur.Revision
	return s.writeLocked(ctx, next, "save")
}

// Commit writes a full snapshot if nobody else wrote since it was loaded.
// The returned snapshot carries the new revision.
func (s *Store) Commit(ctx context.Context, st domain.SaveState) (domain.SaveState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rev, err := s.storedRevision(ctx)
	if err != nil {
		return st, err
	}
	if rev != st.Revision {
		return st, ErrStaleRevision
	}
	return s.writeLocked(ctx, st, "commit")
}

// Reset overwrites the blob with a fresh default and clears legacy keys.
// Serial counters are cleared too when the policy ties them to the save.
func (s *Store) Reset(ctx context.Context) (domain.SaveState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rev, err := s.storedRevision(ctx)
	if err != nil {
		return domain.SaveState{}, err
	}
	fresh := domain.DefaultSaveState()
	s.opts.Economy.Normalize(&fresh)
	fresh.Revision = rev
	out, err := s.writeLocked(ctx, fresh, "reset")
	if err != nil {
		return out, err
	}
	if err := s.kv.Delete(ctx, s.legacyKeys()...); err != nil {
		s.log.Warn("clear legacy keys failed", "error", err)
	}
	if s.opts.SerialPolicy == economy.SerialsResetWithSave && s.serials != nil {
		if err := s.serials.Reset(ctx); err != nil {
			return out, fmt.Errorf("reset serials: %w", err)
		}
	}
	return out, nil
}

// Export returns the current snapshot as indented JSON.
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	st := s.Load(ctx)
	return json.MarshalIndent(st, "", "  ")
}

// Import replaces the save with an uploaded snapshot after sanitizing it.
// Unparseable input leaves the stored save untouched.
func (s *Store) Import(ctx context.Context, data []byte) (domain.SaveState, int, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return domain.SaveState{}, 0, ErrInvalidImport
	}
	st, err := decodeOnDefault(trimmed)
	if err != nil {
		return domain.SaveState{}, 0, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	fixes := s.opts.Economy.Sanitize(&st)

	s.mu.Lock()
	defer s.mu.Unlock()
	rev, err := s.storedRevision(ctx)
	if err != nil {
		return domain.SaveState{}, 0, err
	}
	st.Revision = rev
	out, err := s.writeLocked(ctx, st, "import")
	if err != nil {
		return out, 0, err
	}
	if fixes > 0 {
		s.log.Info("imported save was sanitized", "fixes", fixes)
	}
	return out, fixes, nil
}

// Reconcile picks between the local and remote snapshot at session start,
// preferring the one with higher lifetime earnings. A remote failure keeps
// local state authoritative.
func (s *Store) Reconcile(ctx context.Context) domain.SaveState {
	local := s.Load(ctx)
	if s.opts.Remote == nil {
		return local
	}

	rctx, cancel := context.WithTimeout(ctx, s.opts.RemoteTimeout)
	remote, found, err := s.opts.Remote.GetSnapshot(rctx, s.playerID)
	cancel()
	if err != nil {
		s.log.Warn("remote snapshot read failed, using local", "error", err)
		return local
	}
	if !found || remote.TotalEarnings <= local.TotalEarnings {
		return local
	}

	s.opts.Economy.Sanitize(&remote)
	s.mu.Lock()
	defer s.mu.Unlock()
	rev, err := s.storedRevision(ctx)
	if err != nil {
		s.log.Warn("adopt remote snapshot failed", "error", err)
		return local
	}
	// jump past the remote revision so later mirrors are accepted
	remote.Revision = max(rev, remote.Revision)
	out, err := s.writeLocked(ctx, remote, "reconcile")
	if err != nil {
		s.log.Warn("adopt remote snapshot failed", "error", err)
		return local
	}
	s.log.Info("remote snapshot adopted", "total_earnings", out.TotalEarnings)
	return out
}

// Wait blocks until in-flight remote mirrors finish.
func (s *Store) Wait() { s.inflight.Wait() }

// writeLocked stamps the next revision, writes the blob together with the
// legacy keys, notifies and kicks off the remote mirror.
func (s *Store) writeLocked(ctx context.Context, st domain.SaveState, kind string) (domain.SaveState, error) {
	st.SchemaVersion = domain.SchemaVersion
	st.Revision++
	st.UpdatedAt = s.opts.Now().UTC()

	blob, err := json.Marshal(st)
	if err != nil {
		return st, fmt.Errorf("encode save: %w", err)
	}
	values, err := s.legacyValues(st)
	if err != nil {
		s.log.Warn("legacy mirror skipped fields", "error", err)
	}
	values[s.key(blobSuffix)] = blob
	if err := s.kv.SetMany(ctx, values); err != nil {
		return st, fmt.Errorf("write save: %w", err)
	}
	metrics.SaveWrites.WithLabelValues(kind).Inc()

	s.opts.Bus.PublishSaveChanged(s.playerID, events.SaveChanged{
		Revision:      st.Revision,
		Balance:       st.Balance,
		TotalEarnings: st.TotalEarnings,
	})

	if s.opts.Remote != nil {
		snapshot := st.Clone()
		s.inflight.Add(1)
		go s.mirrorRemote(snapshot)
	}
	return st, nil
}

func (s *Store) mirrorRemote(st domain.SaveState) {
	defer s.inflight.Done()
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.RemoteTimeout)
	defer cancel()
	if err := s.opts.Remote.PutSnapshot(ctx, s.playerID, st); err != nil {
		metrics.RemoteMirrorFailures.Inc()
		s.log.Warn("remote mirror failed", "revision", st.Revision, "error", err)
	}
}

// sameContent compares two snapshots ignoring write metadata.
func sameContent(a, b domain.SaveState) bool {
	a.Revision, b.Revision = 0, 0
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}
