package expiremap

import (
	"testing"
	"time"
)

func TestEviction(t *testing.T) {
	cache := New[string, string](3, 0)

	cache.Put("a", "1")
	cache.Put("b", "2")
	cache.Put("c", "3")
	cache.Put("d", "4") // evicts "a"

	if v, found := cache.Get("a"); found {
		t.Errorf("Key a should have been evicted, but was found, value: %s", v)
	}
	if _, found := cache.Get("d"); !found {
		t.Error("Key d should be in the cache, but was not found")
	}

	cache.Put("e", "5") // evicts "b" (d was just touched, c before it)

	if _, found := cache.Get("b"); found {
		t.Error("Key b should have been evicted, but was found")
	}
	if _, found := cache.Get("d"); !found {
		t.Error("Key d should be in the cache, but was not found")
	}
	if cache.Len() != 3 {
		t.Errorf("Len = %d, want 3", cache.Len())
	}
}

func TestGetRefreshesLRU(t *testing.T) {
	cache := New[string, int](2, 0)
	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Get("a")   // a is now most recent
	cache.Put("c", 3) // evicts b

	if _, found := cache.Get("b"); found {
		t.Error("Key b should have been evicted after a was touched")
	}
	if _, found := cache.Get("a"); !found {
		t.Error("Key a should still be in the cache")
	}
}

func TestTTLExpiry(t *testing.T) {
	cache := New[string, int](5, 10*time.Second)
	clock := time.Now()
	cache.SetClock(func() time.Time { return clock })

	cache.Put("a", 1)
	if _, found := cache.Get("a"); !found {
		t.Fatal("fresh entry should be readable")
	}

	clock = clock.Add(9 * time.Second)
	if _, found := cache.Get("a"); !found {
		t.Error("entry under TTL should still be readable")
	}

	clock = clock.Add(time.Second) // exactly at TTL now
	if v, found := cache.Get("a"); found {
		t.Errorf("entry at TTL should read as absent, got %d", v)
	}
	if cache.Len() != 0 {
		t.Errorf("expired entry should be removed, Len = %d", cache.Len())
	}

	// A Put resets the clock.
	cache.Put("a", 2)
	clock = clock.Add(5 * time.Second)
	if v, found := cache.Get("a"); !found || v != 2 {
		t.Errorf("refreshed entry: got %d, %t", v, found)
	}
}

func TestDelete(t *testing.T) {
	cache := New[string, int](3, 0)
	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Delete("a")
	if _, found := cache.Get("a"); found {
		t.Error("deleted key still present")
	}
	cache.Delete("never-there") // no-op
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}
}
