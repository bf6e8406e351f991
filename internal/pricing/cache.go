package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const defaultCacheTTL = 5 * time.Minute

// CatalogCache stores listings between discovery cycles.
type CatalogCache interface {
	// Get returns cached listings and the ids that were not found.
	Get(ctx context.Context, ids []string) (map[string]Listing, []string, error)
	Put(ctx context.Context, listings map[string]Listing) error
}

// Cached serves listings from a CatalogCache and falls through to the Source for misses.
// Cache errors are logged and bypassed.
type Cached struct {
	source Source
	cache  CatalogCache
	log    zerolog.Logger
}

// NewCached wraps source with cache.
func NewCached(source Source, cache CatalogCache, log zerolog.Logger) *Cached {
	return &Cached{source: source, cache: cache, log: log}
}

// Listings implements Source.
func (c *Cached) Listings(ctx context.Context, ids []string) (map[string]Listing, error) {
	hits, missing, err := c.cache.Get(ctx, ids)
	if err != nil {
		c.log.Warn().Err(err).Msg("catalog cache read failed")
		hits, missing = map[string]Listing{}, ids
	}
	if len(missing) == 0 {
		return hits, nil
	}
	fresh, err := c.source.Listings(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) > 0 {
		if err := c.cache.Put(ctx, fresh); err != nil {
			c.log.Warn().Err(err).Msg("catalog cache write failed")
		}
	}
	return lo.Assign(hits, fresh), nil
}

type memoryEntry struct {
	listing   Listing
	expiresAt time.Time
}

// MemoryCache is a process-local TTL cache.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemoryCache builds an in-memory cache; ttl <= 0 uses the default.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &MemoryCache{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

// Get implements CatalogCache.
func (m *MemoryCache) Get(_ context.Context, ids []string) (map[string]Listing, []string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	hits := make(map[string]Listing, len(ids))
	var missing []string
	for _, id := range ids {
		e, ok := m.entries[id]
		if !ok || now.After(e.expiresAt) {
			missing = append(missing, id)
			continue
		}
		hits[id] = e.listing
	}
	return hits, missing, nil
}

// Put implements CatalogCache.
func (m *MemoryCache) Put(_ context.Context, listings map[string]Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp := m.now().Add(m.ttl)
	for id, l := range listings {
		m.entries[id] = memoryEntry{listing: l, expiresAt: exp}
	}
	return nil
}
