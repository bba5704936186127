// Package handlers implements the built-in interface modules behind the
// route table. Each module's entry point is itself a secondary dispatcher
// over free-form operation names.
package handlers

import (
	"fmt"
	"sync"
	"time"

	"github.com/dizzybeaver/lambda-execution-engine/internal/gateway"
)

// CacheModule is an in-memory key/value store with optional per-entry TTL,
// backing the CACHE interface.
type CacheModule struct {
	entries map[string]cacheEntry
	mu      sync.Mutex
	now     func() time.Time
}

type cacheEntry struct {
	value   interface{}
	expires time.Time // zero means no expiry
}

// NewCacheModule creates an empty cache module
func NewCacheModule() *CacheModule {
	return &CacheModule{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Handle dispatches one cache operation
func (m *CacheModule) Handle(operation string, params gateway.Params) (interface{}, error) {
	switch operation {
	case "get":
		key, err := stringParam(params, "key")
		if err != nil {
			return nil, err
		}
		value, found := m.get(key)
		return map[string]interface{}{"value": value, "found": found}, nil

	case "set":
		key, err := stringParam(params, "key")
		if err != nil {
			return nil, err
		}
		var ttl time.Duration
		if seconds, ok := params["ttl_seconds"].(float64); ok && seconds > 0 {
			ttl = time.Duration(seconds * float64(time.Second))
		}
		m.set(key, params["value"], ttl)
		return true, nil

	case "delete":
		key, err := stringParam(params, "key")
		if err != nil {
			return nil, err
		}
		return m.delete(key), nil

	case "clear":
		return m.clear(), nil

	case "stats":
		return m.stats(), nil

	default:
		return nil, fmt.Errorf("cache module has no operation %q", operation)
	}
}

func (m *CacheModule) get(key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !entry.expires.IsZero() && m.now().After(entry.expires) {
		delete(m.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (m *CacheModule) set(key string, value interface{}, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := cacheEntry{value: value}
	if ttl > 0 {
		entry.expires = m.now().Add(ttl)
	}
	m.entries[key] = entry
}

func (m *CacheModule) delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, existed := m.entries[key]
	delete(m.entries, key)
	return existed
}

func (m *CacheModule) clear() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := len(m.entries)
	m.entries = make(map[string]cacheEntry)
	return removed
}

func (m *CacheModule) stats() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]interface{}{"size": len(m.entries)}
}
