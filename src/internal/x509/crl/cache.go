// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509crl

import (
	"crypto/x509"
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"
	"time"
)

// cacheEntry is a parsed CRL file together with the file state it was parsed from.
type cacheEntry struct {
	crls    []*x509.RevocationList
	modTime time.Time
	size    int64
}

// isCurrent reports whether the entry still describes the file.
func (e *cacheEntry) isCurrent(info fs.FileInfo) bool {
	return e.size == info.Size() && e.modTime.Equal(info.ModTime())
}

// CacheConfig holds configuration for the CRL cache
type CacheConfig struct {
	MaxSize int // Maximum number of files to keep (0 = unlimited)
}

// CacheMetrics tracks cache performance and usage
type CacheMetrics struct {
	Size      int64 // Current number of cached files
	Hits      int64 // Number of cache hits
	Misses    int64 // Number of cache misses, including stale entries
	Evictions int64 // Number of LRU evictions
}

var defaultCacheConfig = CacheConfig{MaxSize: 256}

// Cache is an LRU cache of parsed CRL files keyed by path.
// An entry is only served while the file's size and modification time are unchanged.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   []string // Access order, least recently used first
	maxSize int

	hits, misses, evictions atomic.Int64
}

// NewCache returns an empty cache. A nil config selects the defaults.
func NewCache(config *CacheConfig) *Cache {
	cfg := defaultCacheConfig
	if config != nil {
		cfg = *config
	}
	if cfg.MaxSize < 0 {
		cfg.MaxSize = 0
	}
	return &Cache{entries: make(map[string]*cacheEntry), maxSize: cfg.MaxSize}
}

// Get returns the CRLs parsed from path if the cached entry matches info.
// A nil slice with ok set means the file was seen and holds no usable CRL.
func (c *Cache) Get(path string, info fs.FileInfo) (crls []*x509.RevocationList, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[path]
	if !exists || !entry.isCurrent(info) {
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	c.touch(path)
	return entry.crls, true
}

// Set stores the CRLs parsed from path and evicts the least recently used entries when full.
func (c *Cache) Set(path string, info fs.FileInfo, crls []*x509.RevocationList) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[path]; !exists {
		for c.maxSize > 0 && len(c.entries) >= c.maxSize && len(c.order) > 0 {
			lru := c.order[0]
			delete(c.entries, lru)
			c.order = c.order[1:]
			c.evictions.Add(1)
		}
	}

	c.entries[path] = &cacheEntry{crls: crls, modTime: info.ModTime(), size: info.Size()}
	c.touch(path)
}

// Invalidate drops the entry for path, if any.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, path)
	c.remove(path)
}

// Clear drops every entry and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = nil
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}

// Metrics returns a snapshot of the cache counters.
func (c *Cache) Metrics() CacheMetrics {
	c.mu.Lock()
	size := int64(len(c.entries))
	c.mu.Unlock()

	return CacheMetrics{
		Size:      size,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Stats returns a formatted string with cache statistics
func (c *Cache) Stats() string {
	m := c.Metrics()

	hitRate := float64(0)
	if total := m.Hits + m.Misses; total > 0 {
		hitRate = float64(m.Hits) / float64(total) * 100
	}

	return fmt.Sprintf("CRL Cache Statistics:\n"+
		"  Size: %d/%d entries\n"+
		"  Hit Rate: %.1f%% (%d hits, %d misses)\n"+
		"  Evictions: %d",
		m.Size, c.maxSize,
		hitRate, m.Hits, m.Misses,
		m.Evictions)
}

// touch moves path to the most recently used position. Callers hold c.mu.
func (c *Cache) touch(path string) {
	c.remove(path)
	c.order = append(c.order, path)
}

func (c *Cache) remove(path string) {
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
