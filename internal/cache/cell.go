package cache

import (
	"sync"
	"time"
)

// Cell caches one value for ttl after it was stored. A non-positive ttl
// keeps the value until it is cleared or replaced.
type Cell[T any] struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	value    T
	storedAt time.Time
	filled   bool
	hits     uint64
	misses   uint64
}

// Stats is a point-in-time view of a cell.
type Stats struct {
	Filled bool
	Age    time.Duration
	Hits   uint64
	Misses uint64
}

func NewCell[T any](ttl time.Duration) *Cell[T] {
	return &Cell[T]{ttl: ttl, now: time.Now}
}

// WithClock replaces the time source.
func (c *Cell[T]) WithClock(now func() time.Time) *Cell[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

// stale must run under c.mu.
func (c *Cell[T]) stale(now time.Time) bool {
	return c.ttl > 0 && now.Sub(c.storedAt) > c.ttl
}

// Get returns the cached value if there is a fresh one. A stale value is
// dropped on the way.
func (c *Cell[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.filled && c.stale(c.now()) {
		c.reset()
	}
	if !c.filled {
		c.misses++
		var zero T
		return zero, false
	}
	c.hits++
	return c.value, true
}

// Set replaces the cached value and restarts its ttl.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.storedAt = c.now()
	c.filled = true
}

// Clear empties the cell. Counters are kept.
func (c *Cell[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Cell[T]) reset() {
	var zero T
	c.value = zero
	c.filled = false
}

// CleanExpired empties the cell if its value is stale and reports how many
// values were dropped.
func (c *Cell[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.filled && c.stale(c.now()) {
		c.reset()
		return 1
	}
	return 0
}

func (c *Cell[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Stats{Filled: c.filled, Hits: c.hits, Misses: c.misses}
	if c.filled {
		st.Age = c.now().Sub(c.storedAt)
	}
	return st
}
