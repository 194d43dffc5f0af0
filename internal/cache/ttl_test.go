package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// testClock is a settable clock for expiration tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func TestCacheSetGet(t *testing.T) {
	clock := newTestClock()
	c := New(clock.Now)

	c.Set(NamespaceLive, "krakow", "fresh")

	v, ok := c.Get(NamespaceLive, "krakow", time.Minute)
	if !ok {
		t.Fatalf("expected a hit immediately after Set")
	}
	if v.(string) != "fresh" {
		t.Fatalf("expected %q, got %v", "fresh", v)
	}
}

func TestCacheExpiresLazily(t *testing.T) {
	clock := newTestClock()
	c := New(clock.Now)

	c.Set(NamespaceLive, "krakow", "stale-soon")
	clock.Advance(2 * time.Minute)

	if _, ok := c.Get(NamespaceLive, "krakow", time.Minute); ok {
		t.Fatalf("expected a miss past the ttl")
	}

	// The stale read evicted the entry; even a generous ttl misses now.
	if _, ok := c.Get(NamespaceLive, "krakow", time.Hour); ok {
		t.Fatalf("expected the stale entry to have been evicted")
	}
}

func TestCacheNamespaceIsolation(t *testing.T) {
	clock := newTestClock()
	c := New(clock.Now)

	c.Set(NamespaceLive, "krakow", 1)
	c.Set(NamespaceForecast, "krakow", 2)

	v, ok := c.Get(NamespaceLive, "krakow", time.Minute)
	if !ok || v.(int) != 1 {
		t.Fatalf("live namespace polluted: %v", v)
	}
	v, ok = c.Get(NamespaceForecast, "krakow", time.Minute)
	if !ok || v.(int) != 2 {
		t.Fatalf("forecast namespace polluted: %v", v)
	}
}

func TestCacheSetOverwrites(t *testing.T) {
	clock := newTestClock()
	c := New(clock.Now)

	c.Set(NamespaceLive, "krakow", "old")
	clock.Advance(30 * time.Second)
	c.Set(NamespaceLive, "krakow", "new")
	clock.Advance(45 * time.Second)

	// The overwrite restamped storedAt, so a 1-minute ttl still hits.
	v, ok := c.Get(NamespaceLive, "krakow", time.Minute)
	if !ok || v.(string) != "new" {
		t.Fatalf("expected restamped entry %q, got %v (hit=%v)", "new", v, ok)
	}
}

func TestLookupTyped(t *testing.T) {
	clock := newTestClock()
	c := New(clock.Now)

	c.Set(NamespaceLive, "krakow", 42)

	if v, ok := Lookup[int](c, NamespaceLive, "krakow", time.Minute); !ok || v != 42 {
		t.Fatalf("expected typed hit 42, got %v (hit=%v)", v, ok)
	}
	if _, ok := Lookup[string](c, NamespaceLive, "krakow", time.Minute); ok {
		t.Fatalf("expected type mismatch to miss")
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("city-%d", i%5)
			c.Set(NamespaceLive, key, i)
			c.Get(NamespaceLive, key, time.Minute)
		}()
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		if _, ok := c.Get(NamespaceLive, fmt.Sprintf("city-%d", i), time.Minute); !ok {
			t.Fatalf("expected city-%d to be present after concurrent writes", i)
		}
	}
}
