// ABOUTME: Thread-safe TTL cache for deduplicating input event IDs.
// ABOUTME: Protects the orchestrator from reprocessing client retries of the same message.

package dedupe

import (
	"sync"
	"time"
)

// Cache tracks recently seen keys with a TTL and a size cap. When the cap
// is reached the oldest entry is evicted. A background goroutine sweeps
// expired entries.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	order   []string // insertion order, oldest first
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a dedupe cache with the given TTL and maximum size.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		seen:    make(map[string]time.Time),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

// CheckAndMark atomically checks whether key was seen within the TTL and
// marks it if not. Returns true for a duplicate, false for a new key.
func (c *Cache) CheckAndMark(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seenAt, ok := c.seen[key]; ok && time.Since(seenAt) < c.ttl {
		return true
	}

	if _, exists := c.seen[key]; !exists {
		if len(c.seen) >= c.maxSize && len(c.order) > 0 {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.seen, oldest)
		}
		c.order = append(c.order, key)
	}
	c.seen[key] = time.Now()
	return false
}

// Len returns the number of tracked keys, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *Cache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.done:
			return
		}
	}
}

func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	kept := c.order[:0]
	for _, key := range c.order {
		if seenAt, ok := c.seen[key]; ok && now.Sub(seenAt) > c.ttl {
			delete(c.seen, key)
			continue
		}
		kept = append(kept, key)
	}
	c.order = kept
}

// Close stops the background sweeper. Safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
