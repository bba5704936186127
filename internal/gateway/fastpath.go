package gateway

import (
	"sort"
	"sync"
)

// DefaultPromotionThreshold is the call count at which a dispatch key is
// promoted to the fast path.
const DefaultPromotionThreshold = 3

// FastPathEntry is a resolved, directly-callable handler reference cached
// for a hot dispatch key. Once installed it is never mutated, only removed
// by an explicit clear or superseded by a reinstall under the same key.
type FastPathEntry struct {
	Handler    HandlerFunc
	Module     string
	EntryPoint string
}

// FastPathStats is a snapshot of the cache state
type FastPathStats struct {
	Enabled    bool     `json:"enabled"`
	Size       int      `json:"cache_size"`
	CachedKeys []string `json:"cached_keys"`
}

// FastPathCache maps dispatch keys to resolved handler references,
// populated only after a key's call count crosses the promotion threshold.
type FastPathCache struct {
	entries map[DispatchKey]FastPathEntry
	enabled bool
	mu      sync.Mutex
}

// NewFastPathCache creates an enabled, empty cache
func NewFastPathCache() *FastPathCache {
	return &FastPathCache{
		entries: make(map[DispatchKey]FastPathEntry),
		enabled: true,
	}
}

// Lookup returns the cached entry for a key. Misses while the cache is
// disabled, regardless of contents.
func (fp *FastPathCache) Lookup(key DispatchKey) (FastPathEntry, bool) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if !fp.enabled {
		return FastPathEntry{}, false
	}
	entry, ok := fp.entries[key]
	return entry, ok
}

// Install caches a resolved handler reference for a key. Suppressed while
// the cache is disabled.
func (fp *FastPathCache) Install(key DispatchKey, entry FastPathEntry) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if !fp.enabled {
		return
	}
	fp.entries[key] = entry
}

// Clear removes all entries and returns the removed count. Call counters
// are untouched: a cleared key whose counter is already at threshold is
// reinstalled on its very next dispatch.
func (fp *FastPathCache) Clear() int {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	removed := len(fp.entries)
	fp.entries = make(map[DispatchKey]FastPathEntry)
	return removed
}

// Enable turns the fast path back on. Entries installed before a disable
// become visible again.
func (fp *FastPathCache) Enable() {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.enabled = true
}

// Disable suppresses lookups and installs without clearing entries; every
// dispatch falls back to full resolution until re-enabled.
func (fp *FastPathCache) Disable() {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.enabled = false
}

// Enabled reports whether the fast path is active
func (fp *FastPathCache) Enabled() bool {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.enabled
}

// Stats returns a snapshot of the cache state
func (fp *FastPathCache) Stats() FastPathStats {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	keys := make([]string, 0, len(fp.entries))
	for key := range fp.entries {
		keys = append(keys, key.String())
	}
	sort.Strings(keys)

	return FastPathStats{
		Enabled:    fp.enabled,
		Size:       len(fp.entries),
		CachedKeys: keys,
	}
}
