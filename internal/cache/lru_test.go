package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestLRUWithTTL_GetSet(t *testing.T) {
	c, err := NewLRUWithTTL[string, int](10, 0)
	if err != nil {
		t.Fatalf("NewLRUWithTTL failed: %v", err)
	}

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Expected miss for absent key")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Stats = %+v; want 1 hit, 1 miss", stats)
	}
}

func TestLRUWithTTL_Eviction(t *testing.T) {
	c, err := NewLRUWithTTL[string, int](3, 0)
	if err != nil {
		t.Fatalf("NewLRUWithTTL failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	if c.Len() != 3 {
		t.Errorf("Len = %d after overfilling size-3 cache, want 3", c.Len())
	}

	// Oldest entries evicted
	if _, ok := c.Get("k0"); ok {
		t.Error("Expected k0 to be evicted")
	}
	if v, ok := c.Get("k4"); !ok || v != 4 {
		t.Errorf("Get(k4) = %d, %v; want 4, true", v, ok)
	}
}

func TestLRUWithTTL_Expiration(t *testing.T) {
	c, err := NewLRUWithTTL[string, string](10, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewLRUWithTTL failed: %v", err)
	}

	c.Set("k", "v")
	if _, ok := c.Get("k"); !ok {
		t.Error("Expected hit before TTL")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("Expected miss after TTL expiry")
	}
}

func TestLRUWithTTL_Concurrent(t *testing.T) {
	c, err := NewLRUWithTTL[int, int](100, 0)
	if err != nil {
		t.Fatalf("NewLRUWithTTL failed: %v", err)
	}

	done := make(chan bool)
	for g := 0; g < 8; g++ {
		go func(g int) {
			for i := 0; i < 200; i++ {
				c.Set(i%50, g)
				c.Get(i % 50)
			}
			done <- true
		}(g)
	}
	for g := 0; g < 8; g++ {
		<-done
	}

	if c.Len() > 100 {
		t.Errorf("Len = %d exceeds capacity", c.Len())
	}
}
