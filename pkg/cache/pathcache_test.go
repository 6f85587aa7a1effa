package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestPathCache_PutGet(t *testing.T) {
	c := New(Config{TTL: time.Minute, MaxEntries: 10})

	c.Put("item:/docs", "a")
	v, ok := c.Get("item:/docs")
	if !ok {
		t.Fatal("Expected a cache hit")
	}
	if v.(string) != "a" {
		t.Errorf("Expected \"a\", got %v", v)
	}

	if _, ok := c.Get("item:/other"); ok {
		t.Error("Expected a miss for an unknown key")
	}
}

func TestPathCache_ZeroTTLDisablesCaching(t *testing.T) {
	c := New(Config{TTL: 0, MaxEntries: 10})

	c.Put("k", "v")
	if _, ok := c.Get("k"); ok {
		t.Error("Expected no caching with a zero TTL")
	}
	if c.Len() != 0 {
		t.Errorf("Expected an empty cache, got %d entries", c.Len())
	}
}

func TestPathCache_Expiry(t *testing.T) {
	c := New(Config{TTL: 10 * time.Millisecond, MaxEntries: 10})

	c.Put("k", "v")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("Expected an expired entry to miss")
	}
	if c.Len() != 0 {
		t.Error("Expected the expired entry to be removed on read")
	}
}

func TestPathCache_Invalidate(t *testing.T) {
	c := New(Config{TTL: time.Minute, MaxEntries: 10})

	c.Put("item:/a", 1)
	c.Put("list:/a", 2)
	c.Put("item:/b", 3)

	c.Invalidate("item:/a", "list:/a", "item:/missing")

	if _, ok := c.Get("item:/a"); ok {
		t.Error("Expected item:/a to be invalidated")
	}
	if _, ok := c.Get("list:/a"); ok {
		t.Error("Expected list:/a to be invalidated")
	}
	if _, ok := c.Get("item:/b"); !ok {
		t.Error("Expected item:/b to survive")
	}
}

func TestPathCache_LRUEviction(t *testing.T) {
	c := New(Config{TTL: time.Minute, MaxEntries: 3})

	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
	}

	// Touch k0 so k1 becomes the eviction candidate.
	if _, ok := c.Get("k0"); !ok {
		t.Fatal("Expected k0 present")
	}

	c.Put("k3", 3)

	if _, ok := c.Get("k1"); ok {
		t.Error("Expected the least recently used entry to be evicted")
	}
	if _, ok := c.Get("k0"); !ok {
		t.Error("Expected the recently touched entry to survive")
	}
	if c.Len() != 3 {
		t.Errorf("Expected 3 entries, got %d", c.Len())
	}
}

func TestPathCache_PutOverwrites(t *testing.T) {
	c := New(Config{TTL: time.Minute, MaxEntries: 10})

	c.Put("k", "old")
	c.Put("k", "new")

	v, ok := c.Get("k")
	if !ok || v.(string) != "new" {
		t.Errorf("Expected the overwritten value, got (%v, %v)", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Expected a single entry, got %d", c.Len())
	}
}

func TestPathCache_Stats(t *testing.T) {
	c := New(Config{TTL: time.Minute, MaxEntries: 10})

	c.Put("k", "v")
	c.Get("k")
	c.Get("gone")

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %d/%d", hits, misses)
	}
}
