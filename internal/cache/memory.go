package cache

import (
	"context"
	"sync"
	"time"
)

// sweepEvery bounds how often Set scans for expired entries.
const sweepEvery = time.Minute

// Memory is an in-process ContextCache used when no Redis address is set.
// Expired entries are dropped on read and by a periodic sweep in Set, since
// day-scoped keys are never read again once the day rolls over.
type Memory struct {
	mu        sync.Mutex
	m         map[string]memEntry
	now       func() time.Time
	lastSweep time.Time
}

type memEntry struct {
	value   string
	expires time.Time
}

// NewMemory returns an empty Memory cache.
func NewMemory() *Memory {
	return &Memory{m: make(map[string]memEntry), now: time.Now}
}

// Get returns the block for key if present and unexpired.
func (c *Memory) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return "", false
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.m, key)
		return "", false
	}
	return e.value, true
}

// Set stores value for ttl; ttl <= 0 never expires.
func (c *Memory) Set(_ context.Context, key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if now.Sub(c.lastSweep) >= sweepEvery {
		c.sweepLocked(now)
	}
	e := memEntry{value: value}
	if ttl > 0 {
		e.expires = now.Add(ttl)
	}
	c.m[key] = e
}

func (c *Memory) sweepLocked(now time.Time) {
	for k, e := range c.m {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(c.m, k)
		}
	}
	c.lastSweep = now
}

// size reports the number of stored entries, expired or not.
func (c *Memory) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// Delete removes key.
func (c *Memory) Delete(_ context.Context, key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}
