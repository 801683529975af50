package stats

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Entry is a memoized summary and the time it was computed.
type Entry struct {
	Value      Summary
	ComputedAt time.Time
}

// Cache holds at most one summary. Entries never expire on their own;
// only Invalidate removes them.
type Cache struct {
	mu         sync.RWMutex
	entry      *Entry
	generation uint64
	clock      clockwork.Clock
}

// NewCache creates an empty stats cache
func NewCache(clock clockwork.Clock) *Cache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache{clock: clock}
}

// Get returns the cached entry, if any
func (c *Cache) Get() (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.entry == nil {
		return Entry{}, false
	}
	return *c.entry, true
}

// Set stores summary, replacing any previous entry
func (c *Cache) Set(summary Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entry = &Entry{Value: summary, ComputedAt: c.clock.Now()}
}

// Generation identifies the current validity period. It changes on every
// Invalidate.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.generation
}

// SetIfCurrent stores summary only if no Invalidate happened since gen was
// read. A summary computed from data that has since changed is dropped.
func (c *Cache) SetIfCurrent(gen uint64, summary Summary) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		return false
	}
	c.entry = &Entry{Value: summary, ComputedAt: c.clock.Now()}
	return true
}

// Invalidate clears the cache. Invalidating an empty cache is a no-op
// apart from starting a new generation.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entry = nil
	c.generation++
}

// Age reports how long ago e was computed, never negative
func (c *Cache) Age(e Entry) time.Duration {
	age := c.clock.Since(e.ComputedAt)
	if age < 0 {
		return 0
	}
	return age
}
