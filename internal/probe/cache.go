package probe

import (
	"sync"
	"time"
)

// DefaultCacheTTL bounds how long a cached snapshot may be served.
const DefaultCacheTTL = 60 * time.Second

// DefaultSweepInterval is the period of the unconditional cache wipe.
const DefaultSweepInterval = 60 * time.Second

type cacheEntry struct {
	capturedAt time.Time
	snapshot   *Snapshot
}

// Cache maps normalized probe targets to timestamped snapshots. Reads
// apply the TTL lazily and drop expired entries on the way out; a
// background sweeper additionally wipes the whole map on a fixed period
// as a blunt bound on growth.
type Cache struct {
	entries map[string]cacheEntry
	stop    chan struct{}
	now     func() time.Time
	ttl     time.Duration

	stopOnce sync.Once
	mu       sync.Mutex
}

// NewCache creates a cache with the given TTL and starts its sweeper.
// Non-positive arguments fall back to the defaults. Call Close to stop
// the sweeper when the cache is no longer needed.
func NewCache(ttl, sweepInterval time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}

	c := &Cache{
		entries: make(map[string]cacheEntry),
		stop:    make(chan struct{}),
		now:     time.Now,
		ttl:     ttl,
	}
	go c.sweep(sweepInterval)

	return c
}

// Get returns the cached snapshot for target while its age is below the
// TTL. An entry at or past the TTL is deleted and reported as a miss.
func (c *Cache) Get(target string) (*Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[target]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.capturedAt) >= c.ttl {
		delete(c.entries, target)
		return nil, false
	}

	return entry.snapshot, true
}

// Put stores a snapshot for target, replacing any previous entry.
func (c *Cache) Put(target string, snap *Snapshot) {
	c.mu.Lock()
	c.entries[target] = cacheEntry{capturedAt: c.now(), snapshot: snap}
	c.mu.Unlock()
}

// Clear removes every entry unconditionally.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Len reports the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Close stops the background sweeper. The cache itself stays usable.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// sweep wipes the cache on every tick until Close.
func (c *Cache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Clear()
		}
	}
}
