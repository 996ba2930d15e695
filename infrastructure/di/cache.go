package di

import (
	"context"
	"sync"
	"time"
)

// Expired entries are dropped lazily on read and swept here periodically
// so an idle process does not hold stale pattern reports.
const sweepInterval = time.Minute

type cacheEntry struct {
	value    interface{}
	deadline time.Time
}

// AnalysisCache is the process-local cache behind ports.Cache. The recall
// engine parks pattern reports in it between invalidations; the hook
// manager clears it whenever a new event lands or a snapshot is restored.
type AnalysisCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry

	stop     chan struct{}
	stopOnce sync.Once
}

// NewAnalysisCache creates the cache and starts its background sweeper.
// Call Close to stop the sweeper when the cache is retired.
func NewAnalysisCache() *AnalysisCache {
	c := &AnalysisCache{
		entries: make(map[string]cacheEntry),
		stop:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Get retrieves a live value. Expired entries read as missing.
func (c *AnalysisCache) Get(_ context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.deadline) {
		return nil, false
	}
	return entry.value, true
}

// Set stores a value with a TTL in seconds
func (c *AnalysisCache) Set(_ context.Context, key string, value interface{}, ttl int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		value:    value,
		deadline: time.Now().Add(time.Duration(ttl) * time.Second),
	}
	return nil
}

// Delete removes a single entry
func (c *AnalysisCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Clear drops every entry. Registered as the after-record and
// after-restore lifecycle hook.
func (c *AnalysisCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
	return nil
}

// Close stops the background sweeper. Safe to call more than once.
func (c *AnalysisCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *AnalysisCache) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.deadline) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
