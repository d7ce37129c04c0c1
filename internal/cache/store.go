package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"codeberg.org/lexiread/lexiread/internal/storage"
)

// Ledger names the independent partitions of the store. Each ledger has its
// own capacity, default TTL and hit/miss counters.
type Ledger string

const (
	LedgerDocuments    Ledger = "documents"
	LedgerTranslations Ledger = "translations"
	LedgerDerived      Ledger = "derived"
)

// Ledgers lists all partitions in a fixed order.
var Ledgers = []Ledger{LedgerDocuments, LedgerTranslations, LedgerDerived}

// Entry is one cached value together with its lifecycle metadata. Entries
// are owned by the store; callers only ever see copies of the value.
type Entry struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	SizeBytes int       `json:"size_bytes"`
}

func (e *Entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// LedgerConfig bounds one ledger. Capacity is counted in entries.
type LedgerConfig struct {
	Capacity   int
	DefaultTTL time.Duration
}

// Config holds per-ledger bounds.
type Config struct {
	Documents    LedgerConfig
	Translations LedgerConfig
	Derived      LedgerConfig
}

// DefaultConfig returns the bounds used when nothing is configured:
// few large documents, many small translations.
func DefaultConfig() Config {
	return Config{
		Documents:    LedgerConfig{Capacity: 50, DefaultTTL: 7 * 24 * time.Hour},
		Translations: LedgerConfig{Capacity: 2000, DefaultTTL: 30 * 24 * time.Hour},
		Derived:      LedgerConfig{Capacity: 500, DefaultTTL: 24 * time.Hour},
	}
}

func (c Config) ledger(name Ledger) LedgerConfig {
	switch name {
	case LedgerDocuments:
		return c.Documents
	case LedgerTranslations:
		return c.Translations
	default:
		return c.Derived
	}
}

// Stats summarizes one ledger for observability. Counters never influence
// control flow.
type Stats struct {
	Hits     uint64
	Misses   uint64
	HitRate  float64
	Size     int
	Capacity int
}

type partition struct {
	cfg    LedgerConfig
	byKey  map[string]*list.Element
	lru    *list.List // front = most recently used
	hits   uint64
	misses uint64
}

func newPartition(cfg LedgerConfig) *partition {
	return &partition{
		cfg:   cfg,
		byKey: make(map[string]*list.Element),
		lru:   list.New(),
	}
}

// Store is the bounded, time-limited cache shared by all batch operations.
// It is safe for concurrent use. An optional storage.KV persists entries
// across restarts; persistence failures are logged and swallowed, never
// surfaced to the unit of work being cached.
type Store struct {
	mu         sync.Mutex
	partitions map[Ledger]*partition
	kv         storage.KV
	logger     zerolog.Logger
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithKV enables write-through persistence.
func WithKV(kv storage.KV) Option {
	return func(s *Store) { s.kv = kv }
}

// WithLogger sets the store logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock overrides the time source; tests use it to age entries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store with the given bounds.
func New(cfg Config, opts ...Option) *Store {
	s := &Store{
		partitions: make(map[Ledger]*partition, len(Ledgers)),
		logger:     zerolog.Nop(),
		now:        time.Now,
	}
	for _, name := range Ledgers {
		s.partitions[name] = newPartition(cfg.ledger(name))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	defaultStore *Store
	defaultOnce  sync.Once
)

// Default returns the process-wide store, creating a memory-only instance
// with default bounds on first use.
func Default() *Store {
	defaultOnce.Do(func() {
		if defaultStore == nil {
			defaultStore = New(DefaultConfig())
		}
	})
	return defaultStore
}

// SetDefault replaces the process-wide store. Call before the first
// Default() use.
func SetDefault(s *Store) {
	defaultStore = s
}

// Get returns the cached value for key in the given ledger. Every call
// records a hit or a miss against that ledger. Expired entries count as
// misses and are dropped on access.
func (s *Store) Get(ctx context.Context, ledger Ledger, key string) ([]byte, bool) {
	s.mu.Lock()
	p := s.partitions[ledger]
	if elem, ok := p.byKey[key]; ok {
		entry := elem.Value.(*Entry)
		if !entry.expired(s.now()) {
			p.lru.MoveToFront(elem)
			p.hits++
			value := append([]byte(nil), entry.Value...)
			s.mu.Unlock()
			return value, true
		}
		s.removeLocked(p, elem)
	}
	s.mu.Unlock()

	// Memory miss: fall back to the persistent store so cached content
	// survives restarts and remains usable offline. The partition is
	// re-fetched after re-locking: Clear may have replaced it meanwhile.
	if value, ok := s.loadPersisted(ctx, ledger, key); ok {
		s.mu.Lock()
		s.partitions[ledger].hits++
		s.mu.Unlock()
		return value, true
	}

	s.mu.Lock()
	s.partitions[ledger].misses++
	s.mu.Unlock()
	return nil, false
}

// Put stores value in the ledger, evicting the least-recently-used entry
// first when the ledger is at capacity. A zero ttl uses the ledger default.
func (s *Store) Put(ctx context.Context, ledger Ledger, key string, value []byte, ttl time.Duration) {
	now := s.now()

	s.mu.Lock()
	p := s.partitions[ledger]
	if ttl <= 0 {
		ttl = p.cfg.DefaultTTL
	}
	entry := &Entry{
		Key:       key,
		Value:     append([]byte(nil), value...),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		SizeBytes: len(value),
	}
	if elem, ok := p.byKey[key]; ok {
		elem.Value = entry
		p.lru.MoveToFront(elem)
	} else {
		if p.cfg.Capacity > 0 && p.lru.Len() >= p.cfg.Capacity {
			if oldest := p.lru.Back(); oldest != nil {
				s.removeLocked(p, oldest)
			}
		}
		p.byKey[key] = p.lru.PushFront(entry)
	}
	s.mu.Unlock()

	s.persist(ctx, ledger, entry)
}

// Clear empties one ledger.
func (s *Store) Clear(ctx context.Context, ledger Ledger) {
	s.mu.Lock()
	p := s.partitions[ledger]
	keys := make([]string, 0, len(p.byKey))
	for key := range p.byKey {
		keys = append(keys, key)
	}
	s.partitions[ledger] = newPartition(p.cfg)
	s.mu.Unlock()

	if s.kv != nil {
		persisted := make([]string, len(keys))
		for i, key := range keys {
			persisted[i] = persistKey(ledger, key)
		}
		if err := s.kv.Remove(ctx, persisted); err != nil {
			s.logger.Warn().Err(err).Str("ledger", string(ledger)).Msg("failed to clear persisted entries")
		}
	}
}

// ClearAll empties every ledger and the persistent store.
func (s *Store) ClearAll(ctx context.Context) {
	s.mu.Lock()
	for name, p := range s.partitions {
		s.partitions[name] = newPartition(p.cfg)
	}
	s.mu.Unlock()

	if s.kv != nil {
		if err := s.kv.Clear(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to clear persistent store")
		}
	}
}

// Stats reports the counters and occupancy of one ledger.
func (s *Store) Stats(ledger Ledger) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.partitions[ledger]
	stats := Stats{
		Hits:     p.hits,
		Misses:   p.misses,
		Size:     p.lru.Len(),
		Capacity: p.cfg.Capacity,
	}
	if total := p.hits + p.misses; total > 0 {
		stats.HitRate = float64(p.hits) / float64(total)
	}
	return stats
}

// Len reports the number of live entries in a ledger.
func (s *Store) Len(ledger Ledger) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partitions[ledger].lru.Len()
}

// Maintain sweeps expired entries from every ledger and returns the number
// removed. It is idempotent and safe to call on any schedule.
func (s *Store) Maintain(ctx context.Context) int {
	now := s.now()
	var expired []string

	s.mu.Lock()
	removed := 0
	for name, p := range s.partitions {
		for elem := p.lru.Back(); elem != nil; {
			prev := elem.Prev()
			entry := elem.Value.(*Entry)
			if entry.expired(now) {
				s.removeLocked(p, elem)
				expired = append(expired, persistKey(name, entry.Key))
				removed++
			}
			elem = prev
		}
	}
	s.mu.Unlock()

	if s.kv != nil && len(expired) > 0 {
		if err := s.kv.Remove(ctx, expired); err != nil {
			s.logger.Warn().Err(err).Msg("failed to remove expired persisted entries")
		}
	}
	return removed
}

func (s *Store) removeLocked(p *partition, elem *list.Element) {
	entry := elem.Value.(*Entry)
	p.lru.Remove(elem)
	delete(p.byKey, entry.Key)
}

func persistKey(ledger Ledger, key string) string {
	return "cache:" + string(ledger) + ":" + key
}

func (s *Store) persist(ctx context.Context, ledger Ledger, entry *Entry) {
	if s.kv == nil {
		return
	}
	blob, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", entry.Key).Msg("failed to encode cache entry")
		return
	}
	if err := s.kv.Set(ctx, map[string][]byte{persistKey(ledger, entry.Key): blob}); err != nil {
		// A full store must never fail the unit of work being cached.
		s.logger.Warn().Err(err).Str("key", entry.Key).Msg("cache write failed")
	}
}

func (s *Store) loadPersisted(ctx context.Context, ledger Ledger, key string) ([]byte, bool) {
	if s.kv == nil {
		return nil, false
	}
	pk := persistKey(ledger, key)
	items, err := s.kv.Get(ctx, []string{pk})
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return nil, false
	}
	blob, ok := items[pk]
	if !ok {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(blob, &entry); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("corrupt persisted cache entry")
		return nil, false
	}
	if entry.expired(s.now()) {
		return nil, false
	}

	// Re-admit through Put so capacity and LRU order stay consistent.
	ttl := entry.ExpiresAt.Sub(s.now())
	if !entry.ExpiresAt.IsZero() && ttl > 0 {
		s.Put(ctx, ledger, key, entry.Value, ttl)
	}
	return entry.Value, true
}
