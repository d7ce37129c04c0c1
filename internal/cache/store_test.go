package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"codeberg.org/lexiread/lexiread/internal/storage"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() Config {
	return Config{
		Documents:    LedgerConfig{Capacity: 3, DefaultTTL: time.Hour},
		Translations: LedgerConfig{Capacity: 3, DefaultTTL: time.Hour},
		Derived:      LedgerConfig{Capacity: 3, DefaultTTL: time.Hour},
	}
}

func TestStore_PutGet(t *testing.T) {
	s := New(testConfig())
	ctx := context.Background()

	s.Put(ctx, LedgerTranslations, "k", []byte("v"), 0)
	got, ok := s.Get(ctx, LedgerTranslations, "k")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if string(got) != "v" {
		t.Errorf("Got %s, want v", got)
	}

	// Ledgers are independent.
	if _, ok := s.Get(ctx, LedgerDocuments, "k"); ok {
		t.Error("Key leaked into another ledger")
	}
}

func TestStore_TTLExpiry(t *testing.T) {
	clock := newManualClock()
	s := New(testConfig(), WithClock(clock.Now))
	ctx := context.Background()

	s.Put(ctx, LedgerDerived, "k", []byte("v"), 10*time.Minute)

	clock.Advance(5 * time.Minute)
	if _, ok := s.Get(ctx, LedgerDerived, "k"); !ok {
		t.Error("Entry expired early")
	}

	clock.Advance(6 * time.Minute)
	if _, ok := s.Get(ctx, LedgerDerived, "k"); ok {
		t.Error("Expired entry still served")
	}
}

func TestStore_Maintain(t *testing.T) {
	clock := newManualClock()
	s := New(testConfig(), WithClock(clock.Now))
	ctx := context.Background()

	s.Put(ctx, LedgerDerived, "short", []byte("v"), 10*time.Minute)
	s.Put(ctx, LedgerDerived, "long", []byte("v"), 10*time.Hour)
	s.Put(ctx, LedgerDocuments, "doc", []byte("v"), 10*time.Minute)

	clock.Advance(time.Hour)

	removed := s.Maintain(ctx)
	if removed != 2 {
		t.Errorf("Maintain removed %d entries, want 2", removed)
	}
	if s.Len(LedgerDerived) != 1 {
		t.Errorf("Derived ledger has %d entries, want 1", s.Len(LedgerDerived))
	}

	// Idempotent: a second sweep removes nothing.
	if removed := s.Maintain(ctx); removed != 0 {
		t.Errorf("Second Maintain removed %d entries, want 0", removed)
	}
}

func TestStore_LRUEviction(t *testing.T) {
	s := New(testConfig())
	ctx := context.Background()

	s.Put(ctx, LedgerTranslations, "a", []byte("1"), 0)
	s.Put(ctx, LedgerTranslations, "b", []byte("2"), 0)
	s.Put(ctx, LedgerTranslations, "c", []byte("3"), 0)

	// Touch "a" so "b" becomes the least recently used.
	s.Get(ctx, LedgerTranslations, "a")

	s.Put(ctx, LedgerTranslations, "d", []byte("4"), 0)

	if s.Len(LedgerTranslations) != 3 {
		t.Errorf("Ledger has %d entries, want capacity 3", s.Len(LedgerTranslations))
	}
	if _, ok := s.Get(ctx, LedgerTranslations, "b"); ok {
		t.Error("Least-recently-used entry was not evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := s.Get(ctx, LedgerTranslations, key); !ok {
			t.Errorf("Key %s unexpectedly evicted", key)
		}
	}
}

func TestStore_OverwriteDoesNotEvict(t *testing.T) {
	s := New(testConfig())
	ctx := context.Background()

	s.Put(ctx, LedgerTranslations, "a", []byte("1"), 0)
	s.Put(ctx, LedgerTranslations, "b", []byte("2"), 0)
	s.Put(ctx, LedgerTranslations, "c", []byte("3"), 0)
	s.Put(ctx, LedgerTranslations, "a", []byte("updated"), 0)

	if s.Len(LedgerTranslations) != 3 {
		t.Errorf("Ledger has %d entries, want 3", s.Len(LedgerTranslations))
	}
	got, _ := s.Get(ctx, LedgerTranslations, "a")
	if string(got) != "updated" {
		t.Errorf("a = %s, want updated", got)
	}
}

func TestStore_Stats(t *testing.T) {
	s := New(testConfig())
	ctx := context.Background()

	s.Put(ctx, LedgerDocuments, "k", []byte("v"), 0)
	s.Get(ctx, LedgerDocuments, "k")
	s.Get(ctx, LedgerDocuments, "k")
	s.Get(ctx, LedgerDocuments, "missing")

	stats := s.Stats(LedgerDocuments)
	if stats.Hits != 2 {
		t.Errorf("Hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if want := 2.0 / 3.0; stats.HitRate < want-0.01 || stats.HitRate > want+0.01 {
		t.Errorf("HitRate = %f, want %f", stats.HitRate, want)
	}
	if stats.Size != 1 {
		t.Errorf("Size = %d, want 1", stats.Size)
	}
}

func TestStore_Clear(t *testing.T) {
	s := New(testConfig())
	ctx := context.Background()

	s.Put(ctx, LedgerDocuments, "doc", []byte("v"), 0)
	s.Put(ctx, LedgerTranslations, "word", []byte("v"), 0)

	s.Clear(ctx, LedgerDocuments)
	if s.Len(LedgerDocuments) != 0 {
		t.Error("Clear left documents behind")
	}
	if s.Len(LedgerTranslations) != 1 {
		t.Error("Clear touched a different ledger")
	}

	s.ClearAll(ctx)
	if s.Len(LedgerTranslations) != 0 {
		t.Error("ClearAll left entries behind")
	}
}

// failingKV rejects every write, simulating a full storage quota.
type failingKV struct {
	storage.Memory
}

func (f *failingKV) Set(ctx context.Context, items map[string][]byte) error {
	return errors.New("database or disk is full")
}

func TestStore_PersistenceFailureSwallowed(t *testing.T) {
	s := New(testConfig(), WithKV(&failingKV{}))
	ctx := context.Background()

	// Must not panic or surface the KV failure.
	s.Put(ctx, LedgerTranslations, "k", []byte("v"), 0)

	got, ok := s.Get(ctx, LedgerTranslations, "k")
	if !ok || string(got) != "v" {
		t.Error("In-memory entry lost after persistence failure")
	}
}

func TestStore_PersistedEntrySurvivesNewStore(t *testing.T) {
	kv := storage.NewMemory()
	ctx := context.Background()

	first := New(testConfig(), WithKV(kv))
	first.Put(ctx, LedgerDocuments, "k", []byte("persisted"), time.Hour)

	second := New(testConfig(), WithKV(kv))
	got, ok := second.Get(ctx, LedgerDocuments, "k")
	if !ok {
		t.Fatal("Persisted entry not found by fresh store")
	}
	if string(got) != "persisted" {
		t.Errorf("Got %s, want persisted", got)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New(Config{
		Documents:    LedgerConfig{Capacity: 100, DefaultTTL: time.Hour},
		Translations: LedgerConfig{Capacity: 100, DefaultTTL: time.Hour},
		Derived:      LedgerConfig{Capacity: 100, DefaultTTL: time.Hour},
	})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				key := fmt.Sprintf("k-%d-%d", n, j)
				s.Put(ctx, LedgerTranslations, key, []byte("v"), 0)
				s.Get(ctx, LedgerTranslations, key)
			}
			s.Maintain(ctx)
		}(i)
	}
	wg.Wait()
}

func TestStore_ConcurrentPutAndClear(t *testing.T) {
	s := New(Config{
		Documents:    LedgerConfig{Capacity: 100, DefaultTTL: time.Hour},
		Translations: LedgerConfig{Capacity: 100, DefaultTTL: time.Hour},
		Derived:      LedgerConfig{Capacity: 100, DefaultTTL: time.Hour},
	}, WithKV(storage.NewMemory()))
	ctx := context.Background()

	// Clear replaces the partition while Put is running; both must agree
	// on the partition map under the race detector.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.Put(ctx, LedgerDerived, fmt.Sprintf("k-%d", i), []byte("v"), 0)
			s.Get(ctx, LedgerDerived, fmt.Sprintf("k-%d", i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				s.Clear(ctx, LedgerDerived)
			} else {
				s.ClearAll(ctx)
			}
		}
	}()
	wg.Wait()

	// Counters must land on the live partition, not a discarded one.
	s.Clear(ctx, LedgerDerived)
	s.Get(ctx, LedgerDerived, "absent")
	if stats := s.Stats(LedgerDerived); stats.Misses == 0 {
		t.Error("Expected the miss to be counted on the current partition")
	}
}
