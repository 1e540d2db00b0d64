package store

import (
	"context"
	"sync"
	"time"

	"github.com/effective-security/mcpweather/weather"
)

type entry struct {
	grid    weather.GridReference
	expires time.Time
}

type inMemory struct {
	mu      sync.RWMutex
	ttl     time.Duration
	storage map[string]entry
}

// NewMemoryGridCache returns an in-process grid cache,
// entries expire after ttl, zero ttl keeps them for the process lifetime
func NewMemoryGridCache(ttl time.Duration) weather.GridCache {
	return &inMemory{ttl: ttl}
}

func (m *inMemory) Get(ctx context.Context, key string) (*weather.GridReference, bool) {
	m.mu.RLock()
	e, ok := m.storage[key]
	m.mu.RUnlock()

	if ok && !e.expires.IsZero() && time.Now().After(e.expires) {
		m.mu.Lock()
		// re-check, the entry may have been refreshed
		if cur, found := m.storage[key]; found && cur.expires.Equal(e.expires) {
			delete(m.storage, key)
		}
		m.mu.Unlock()
		ok = false
	}

	observe(ctx, BackendMemory, key, ok)
	if !ok {
		return nil, false
	}
	grid := e.grid
	return &grid, true
}

func (m *inMemory) Put(_ context.Context, key string, grid *weather.GridReference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		// create on first use
		m.storage = make(map[string]entry)
	}
	m.storage[key] = entry{
		grid:    *grid,
		expires: expiresAt(m.ttl),
	}
	return nil
}
