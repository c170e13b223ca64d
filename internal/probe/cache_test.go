package probe

import (
	"fmt"
	"testing"
	"time"
)

func TestCacheTTLBoundaries(t *testing.T) {
	c := NewCache(60*time.Second, time.Hour)
	defer c.Close()

	base := time.Now()
	now := base
	c.now = func() time.Time { return now }

	snap := &Snapshot{Name: "srv"}
	c.Put("wss://a.example.net", snap)

	now = base.Add(60*time.Second - time.Millisecond)
	got, ok := c.Get("wss://a.example.net")
	if !ok {
		t.Fatal("entry expired before the TTL")
	}
	if got != snap {
		t.Fatal("hit returned a different snapshot")
	}

	now = base.Add(60 * time.Second)
	if _, ok := c.Get("wss://a.example.net"); ok {
		t.Fatal("entry served at exactly the TTL")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not removed, len = %d", c.Len())
	}
}

func TestCacheOverwrite(t *testing.T) {
	c := NewCache(time.Minute, time.Hour)
	defer c.Close()

	c.Put("wss://a.example.net", &Snapshot{Name: "first"})
	c.Put("wss://a.example.net", &Snapshot{Name: "second"})

	got, ok := c.Get("wss://a.example.net")
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if got.Name != "second" {
		t.Errorf("Name = %q, want second", got.Name)
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache(time.Minute, time.Hour)
	defer c.Close()

	for i := 0; i < 5; i++ {
		c.Put(fmt.Sprintf("wss://srv%d.example.net", i), &Snapshot{})
	}
	if c.Len() != 5 {
		t.Fatalf("len = %d, want 5", c.Len())
	}

	c.Clear()

	if c.Len() != 0 {
		t.Fatalf("len = %d after clear, want 0", c.Len())
	}
	if _, ok := c.Get("wss://srv0.example.net"); ok {
		t.Error("entry survived the clear")
	}
}

func TestCacheSweeperWipesUnexpired(t *testing.T) {
	c := NewCache(time.Hour, 20*time.Millisecond)
	defer c.Close()

	c.Put("wss://a.example.net", &Snapshot{})

	deadline := time.Now().Add(2 * time.Second)
	for c.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweeper did not wipe the cache")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCacheCloseStopsSweeper(t *testing.T) {
	c := NewCache(time.Hour, 10*time.Millisecond)
	c.Close()
	defer c.Close() // double close is a no-op

	time.Sleep(30 * time.Millisecond)
	c.Put("wss://a.example.net", &Snapshot{})
	time.Sleep(50 * time.Millisecond)

	if c.Len() != 1 {
		t.Fatal("sweeper still wiping after close")
	}
}
