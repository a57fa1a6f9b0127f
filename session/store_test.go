package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// storeHarness runs the same contract against every backend. advance moves
// backend time forward; for Redis that is miniredis FastForward plus the
// store's own clock.
type storeHarness struct {
	store   Store
	advance func(time.Duration)
}

func newRedisHarness(t *testing.T) (storeHarness, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	clock := newFakeClock()
	store := NewRedisStore(rdb, DefaultKeyPrefix, time.Second)
	store.now = clock.Now
	return storeHarness{
		store: store,
		advance: func(d time.Duration) {
			mr.FastForward(d)
			clock.Advance(d)
		},
	}, mr
}

func newMemoryHarness(t *testing.T) storeHarness {
	t.Helper()
	clock := newFakeClock()
	return storeHarness{
		store:   NewMemoryStoreWithClock(clock.Now),
		advance: clock.Advance,
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, h storeHarness)) {
	t.Run("redis", func(t *testing.T) {
		h, _ := newRedisHarness(t)
		fn(t, h)
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, newMemoryHarness(t))
	})
}

func TestStorePutGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, h storeHarness) {
		ctx := context.Background()
		rec := Record{UserID: 42, IP: "10.0.0.5", IssuedAt: 1, ExpiresAt: 0}

		if err := h.store.Put(ctx, "k1", rec, time.Hour); err != nil {
			t.Fatalf("Put error: %v", err)
		}
		got, ok, err := h.store.Get(ctx, "k1")
		if err != nil || !ok {
			t.Fatalf("Get = %v, %v; want present", ok, err)
		}
		if got != rec {
			t.Fatalf("Get returned %+v, want %+v", got, rec)
		}
	})
}

func TestStoreGetAbsentIsNotError(t *testing.T) {
	forEachStore(t, func(t *testing.T, h storeHarness) {
		_, ok, err := h.store.Get(context.Background(), "missing")
		if err != nil {
			t.Fatalf("Get(missing) error: %v", err)
		}
		if ok {
			t.Fatal("expected missing key to be absent")
		}
	})
}

func TestStoreOverwriteLastWriteWins(t *testing.T) {
	forEachStore(t, func(t *testing.T, h storeHarness) {
		ctx := context.Background()
		if err := h.store.Put(ctx, "k", Record{UserID: 1, IP: "10.0.0.1"}, time.Hour); err != nil {
			t.Fatalf("first Put: %v", err)
		}
		if err := h.store.Put(ctx, "k", Record{UserID: 2, IP: "10.0.0.2"}, time.Hour); err != nil {
			t.Fatalf("second Put: %v", err)
		}
		got, ok, err := h.store.Get(ctx, "k")
		if err != nil || !ok {
			t.Fatalf("Get = %v, %v", ok, err)
		}
		if got.UserID != 2 || got.IP != "10.0.0.2" {
			t.Fatalf("expected second write to win, got %+v", got)
		}
	})
}

func TestStoreDeleteIdempotent(t *testing.T) {
	forEachStore(t, func(t *testing.T, h storeHarness) {
		ctx := context.Background()
		if err := h.store.Put(ctx, "k", Record{UserID: 1, IP: "10.0.0.1"}, time.Hour); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if err := h.store.Delete(ctx, "k"); err != nil {
			t.Fatalf("first delete: %v", err)
		}
		if err := h.store.Delete(ctx, "k"); err != nil {
			t.Fatalf("second delete: %v", err)
		}
		if _, ok, err := h.store.Get(ctx, "k"); err != nil || ok {
			t.Fatalf("Get after delete = %v, %v; want absent", ok, err)
		}
	})
}

func TestStoreExpiresAtTTL(t *testing.T) {
	forEachStore(t, func(t *testing.T, h storeHarness) {
		ctx := context.Background()
		if err := h.store.Put(ctx, "k", Record{UserID: 1, IP: "10.0.0.1"}, 10*time.Second); err != nil {
			t.Fatalf("Put: %v", err)
		}
		h.advance(11 * time.Second)
		if _, ok, err := h.store.Get(ctx, "k"); err != nil || ok {
			t.Fatalf("Get after ttl = %v, %v; want absent", ok, err)
		}
	})
}

func TestStoreGetDoesNotExtendTTL(t *testing.T) {
	forEachStore(t, func(t *testing.T, h storeHarness) {
		ctx := context.Background()
		if err := h.store.Put(ctx, "k", Record{UserID: 1, IP: "10.0.0.1"}, 10*time.Second); err != nil {
			t.Fatalf("Put: %v", err)
		}
		for i := 0; i < 3; i++ {
			h.advance(3 * time.Second)
			if _, ok, err := h.store.Get(ctx, "k"); err != nil || !ok {
				t.Fatalf("Get #%d = %v, %v; want present", i, ok, err)
			}
		}
		h.advance(2 * time.Second)
		if _, ok, err := h.store.Get(ctx, "k"); err != nil || ok {
			t.Fatalf("Get past original ttl = %v, %v; want absent", ok, err)
		}
	})
}

func TestStoreRejectsNonPositiveTTL(t *testing.T) {
	forEachStore(t, func(t *testing.T, h storeHarness) {
		for _, ttl := range []time.Duration{0, -time.Second} {
			err := h.store.Put(context.Background(), "k", Record{UserID: 1}, ttl)
			if !errors.Is(err, ErrInvalidTTL) {
				t.Fatalf("Put(ttl=%v) error = %v, want ErrInvalidTTL", ttl, err)
			}
		}
	})
}

func TestStoreHonoursRecordDeadline(t *testing.T) {
	forEachStore(t, func(t *testing.T, h storeHarness) {
		ctx := context.Background()
		start := time.Unix(1700000000, 0)
		rec := Record{UserID: 1, IP: "10.0.0.1", IssuedAt: start.Unix(), ExpiresAt: start.Add(5 * time.Second).Unix()}
		// Backend TTL longer than the record's own deadline.
		if err := h.store.Put(ctx, "k", rec, time.Minute); err != nil {
			t.Fatalf("Put: %v", err)
		}
		h.advance(6 * time.Second)
		if _, ok, err := h.store.Get(ctx, "k"); err != nil || ok {
			t.Fatalf("Get past record deadline = %v, %v; want absent", ok, err)
		}
	})
}

func TestRedisStoreKeyLayoutAndTTL(t *testing.T) {
	h, mr := newRedisHarness(t)
	if err := h.store.Put(context.Background(), "tok", Record{UserID: 1, IP: "10.0.0.1"}, 24*time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !mr.Exists("session:tok") {
		t.Fatalf("expected key session:tok, have %v", mr.Keys())
	}
	if ttl := mr.TTL("session:tok"); ttl != 24*time.Hour {
		t.Fatalf("ttl = %v, want 24h", ttl)
	}
}

func TestRedisStoreCorruptRecord(t *testing.T) {
	h, mr := newRedisHarness(t)
	if err := mr.Set("session:bad", "\x07garbage"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, _, err := h.store.Get(context.Background(), "bad")
	if !errors.Is(err, ErrRecordCorrupt) {
		t.Fatalf("Get error = %v, want ErrRecordCorrupt", err)
	}
}

func TestRedisStoreReadsLegacyJSON(t *testing.T) {
	h, mr := newRedisHarness(t)
	if err := mr.Set("session:legacy", `{"user_id":9,"ip":"10.1.1.1"}`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rec, ok, err := h.store.Get(context.Background(), "legacy")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if rec.UserID != 9 || rec.IP != "10.1.1.1" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	h, mr := newRedisHarness(t)
	mr.Close()

	ctx := context.Background()
	if err := h.store.Put(ctx, "k", Record{UserID: 1}, time.Hour); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Put error = %v, want ErrStoreUnavailable", err)
	}
	if _, _, err := h.store.Get(ctx, "k"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Get error = %v, want ErrStoreUnavailable", err)
	}
	if err := h.store.Delete(ctx, "k"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Delete error = %v, want ErrStoreUnavailable", err)
	}
	if _, err := h.store.(Pinger).Ping(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Ping error = %v, want ErrStoreUnavailable", err)
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStoreWithClock(clock.Now)
	ctx := context.Background()

	if err := store.Put(ctx, "short", Record{UserID: 1}, time.Second); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, "long", Record{UserID: 2}, time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}
	clock.Advance(2 * time.Second)

	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if store.Len() != 1 {
		t.Fatalf("Len = %d, want 1", store.Len())
	}
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Put(ctx, "k", Record{UserID: 1}, time.Hour); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Put error = %v, want ErrStoreUnavailable", err)
	}
	if store.Len() != 0 {
		t.Fatal("cancelled Put must not write")
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			for j := 0; j < 100; j++ {
				_ = store.Put(ctx, key, Record{UserID: int64(j)}, time.Minute)
				_, _, _ = store.Get(ctx, key)
				if j%10 == 0 {
					_ = store.Delete(ctx, key)
				}
			}
		}(i)
	}
	wg.Wait()
}
