package secrets

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCache_TTL(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache(CacheConfig{Enabled: true, TTL: time.Minute, MaxSize: 10})
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	if got, ok := c.Get("k"); !ok || got != "v" {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestCache_Eviction(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache(CacheConfig{Enabled: true, TTL: time.Minute, MaxSize: 2})
	c.now = func() time.Time { return now }

	c.Set("first", "1")
	now = now.Add(time.Second)
	c.Set("second", "2")
	now = now.Add(time.Second)
	c.Set("third", "3")

	if c.Size() != 2 {
		t.Fatalf("Size = %d, want 2", c.Size())
	}
	if _, ok := c.Get("first"); ok {
		t.Error("expected the oldest entry to be evicted")
	}

	// Overwriting an existing key does not evict.
	c.Set("third", "3b")
	if _, ok := c.Get("second"); !ok {
		t.Error("overwrite should not evict another entry")
	}
}

func TestCache_DisabledAndClear(t *testing.T) {
	off := NewCache(CacheConfig{Enabled: false})
	off.Set("k", "v")
	if _, ok := off.Get("k"); ok {
		t.Error("disabled cache should not return values")
	}

	on := NewCache(CacheConfig{Enabled: true, TTL: time.Minute, MaxSize: 10})
	on.Set("k", "v")
	on.Clear()
	if on.Size() != 0 {
		t.Errorf("Size after Clear = %d", on.Size())
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := NewCache(CacheConfig{Enabled: true, TTL: time.Minute, MaxSize: 50})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			c.Set(key, "v")
			c.Get(key)
		}(i)
	}
	wg.Wait()

	if c.Size() > 5 {
		t.Errorf("Size = %d, want at most 5", c.Size())
	}
}
