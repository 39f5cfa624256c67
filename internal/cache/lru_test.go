package cache

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestLRUCachePerformance(t *testing.T) {
	c := NewLRUCache[string](3, 100*time.Millisecond)

	start := time.Now()
	for i := 0; i < 1000; i++ {
		c.Set("period/report", "<svg/>")
		if _, found := c.Get("period/report"); !found {
			t.Errorf("Cache miss on iteration %d", i)
		}
	}
	duration := time.Since(start)
	t.Logf("1000 cache operations took %v", duration)

	if duration > 100*time.Millisecond {
		t.Errorf("Cache operations too slow: %v", duration)
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[string](3, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Get("key1")           // key1 becomes most recent
	c.Set("key4", "value4") // evicts key2

	if _, found := c.Get("key2"); found {
		t.Error("key2 should have been evicted")
	}
	for _, key := range []string{"key1", "key3", "key4"} {
		if _, found := c.Get(key); !found {
			t.Errorf("%s should still exist", key)
		}
	}
}

func TestLRUCacheTTLExpiration(t *testing.T) {
	c := NewLRUCache[string](100, 50*time.Millisecond)

	c.Set("key1", "value1")
	if _, found := c.Get("key1"); !found {
		t.Error("key1 should exist immediately")
	}

	time.Sleep(60 * time.Millisecond)

	if _, found := c.Get("key1"); found {
		t.Error("key1 should have expired")
	}
}

func TestLRUCacheCleanExpired(t *testing.T) {
	c := NewLRUCache[int](10, 20*time.Millisecond)
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	time.Sleep(30 * time.Millisecond)
	c.Set("fresh", 1)

	if removed := c.CleanExpired(); removed != 5 {
		t.Errorf("CleanExpired() = %d, want 5", removed)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCacheGetOrCreate(t *testing.T) {
	c := NewLRUCache[string](10, time.Hour)
	calls := 0
	build := func() (string, error) {
		calls++
		return "fragment", nil
	}

	v, hit, err := c.GetOrCreate("p1/csv", build)
	if err != nil || hit || v != "fragment" {
		t.Fatalf("first call = %q hit=%v err=%v", v, hit, err)
	}
	v, hit, _ = c.GetOrCreate("p1/csv", build)
	if !hit || v != "fragment" || calls != 1 {
		t.Fatalf("second call = %q hit=%v calls=%d", v, hit, calls)
	}

	boom := errors.New("template missing")
	if _, _, err := c.GetOrCreate("p2/csv", func() (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("expected build error, got %v", err)
	}
	if _, found := c.Get("p2/csv"); found {
		t.Error("failed builds must not be cached")
	}

	stats := c.Stats()
	if stats.Hits < 1 || stats.Misses < 2 || stats.Size != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestLRUCachePurgeAndDelete(t *testing.T) {
	c := NewLRUCache[string](0, time.Hour) // raised to 1
	c.Set("a", "1")
	c.Set("b", "2")
	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", c.Size())
	}
	c.Delete("b")
	if c.Size() != 0 {
		t.Fatalf("Delete did not remove entry")
	}
	c.Set("c", "3")
	c.Purge()
	if _, found := c.Get("c"); found {
		t.Error("Purge should drop everything")
	}
}

func TestManager(t *testing.T) {
	c := NewLRUCache[string](10, 10*time.Millisecond)
	c.Set("a", "1")

	m := NewManager()
	m.Register(c)
	m.StartCleanup(5 * time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for c.Size() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	m.Stop()
	m.Stop()

	if c.Size() != 0 {
		t.Error("manager did not expire entries")
	}
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager()
	m.Stop()
	if n := m.CleanNow(); n != 0 {
		t.Errorf("CleanNow() = %d on empty manager", n)
	}
}
