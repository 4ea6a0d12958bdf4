// Package cache provides an in-memory cache for access window results. Window
// computations are CPU-bound (thousands of SGP4 propagations per request), so
// repeated identical requests — the common case when many viewer sessions
// watch the same constellation — are answered from memory. Entries expire
// after a TTL and the cache holds a bounded number of entries; a background
// janitor sweeps expired entries.
package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/krenshaw2018/cesium/internal/access"
	"github.com/krenshaw2018/cesium/internal/metrics"
)

// Config holds cache configuration loaded from environment variables.
type Config struct {
	TTL           time.Duration // Entry lifetime (default: 60s)
	MaxEntries    int           // Capacity before oldest-entry eviction (default: 1024)
	SweepInterval time.Duration // Janitor period (default: 30s)
}

// entry wraps a cached result with its storage time.
type entry struct {
	windows  []access.SatelliteWindows
	storedAt time.Time
}

// ResultCache is a TTL + capacity bounded cache of window results, keyed by
// request digest. Safe for concurrent use by multiple goroutines.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[string]*entry

	config Config
	logger *slog.Logger

	// Counters (lock-free).
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewResultCache creates a ResultCache, filling in defaults for unset config
// fields.
func NewResultCache(config Config, logger *slog.Logger) *ResultCache {
	if config.TTL <= 0 {
		config.TTL = 60 * time.Second
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 1024
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = 30 * time.Second
	}

	logger.Info("result cache initialized",
		"ttl_seconds", config.TTL.Seconds(),
		"max_entries", config.MaxEntries,
		"sweep_interval_seconds", config.SweepInterval.Seconds(),
	)

	return &ResultCache{
		entries: make(map[string]*entry),
		config:  config,
		logger:  logger,
	}
}

// Get returns the cached result for the key, or nil if absent or expired.
// Expired entries are left for the janitor.
func (c *ResultCache) Get(key string) []access.SatelliteWindows {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && time.Since(e.storedAt) < c.config.TTL {
		c.hits.Add(1)
		metrics.IncCacheHits()
		return e.windows
	}

	c.misses.Add(1)
	metrics.IncCacheMisses()
	return nil
}

// Put stores a result under the key. When the cache is at capacity the
// oldest entry is evicted first.
func (c *ResultCache) Put(key string, windows []access.SatelliteWindows) {
	c.mu.Lock()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.config.MaxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = &entry{windows: windows, storedAt: time.Now()}
	count := len(c.entries)
	c.mu.Unlock()

	metrics.SetCacheEntries(count)
}

// evictOldestLocked removes the entry with the earliest storage time.
// Caller must hold mu.
func (c *ResultCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.storedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.storedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.evictions.Add(1)
		metrics.AddCacheEvictions(1)
	}
}

// evictExpired removes entries older than the TTL, returning how many were
// removed.
func (c *ResultCache) evictExpired() int {
	cutoff := time.Now().Add(-c.config.TTL)
	var removed int

	c.mu.Lock()
	for k, e := range c.entries {
		if e.storedAt.Before(cutoff) {
			delete(c.entries, k)
			removed++
		}
	}
	count := len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.AddCacheEvictions(removed)
		metrics.SetCacheEntries(count)
		c.logger.Debug("cache eviction", "entries_removed", removed)
	}

	return removed
}

// Stats holds cache statistics for the stats endpoint.
type Stats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// Snapshot returns current cache statistics.
func (c *ResultCache) Snapshot() Stats {
	c.mu.RLock()
	count := len(c.entries)
	c.mu.RUnlock()

	return Stats{
		Entries:   count,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
