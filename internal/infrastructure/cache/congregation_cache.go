package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/joacominatel/yujo/internal/domain"
	"github.com/joacominatel/yujo/internal/infrastructure/logging"
)

// CongregationCache wraps a CongregationRepository with an in-memory TTL cache
// of slug lookups. every report submission resolves its congregation by slug,
// so the hot path never touches the database while an entry is fresh.
// unknown slugs are cached too.
type CongregationCache struct {
	domain.CongregationRepository

	entries map[string]*congregationEntry
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	logger  *logging.Logger
}

type congregationEntry struct {
	congregation *domain.Congregation // nil when the slug is unknown
	expiresAt    time.Time
}

// NewCongregationCache creates a caching decorator around repo.
func NewCongregationCache(repo domain.CongregationRepository, ttl time.Duration, logger *logging.Logger) *CongregationCache {
	return &CongregationCache{
		CongregationRepository: repo,
		entries:                make(map[string]*congregationEntry),
		ttl:                    ttl,
		now:                    time.Now,
		logger:                 logger.WithComponent("congregation_cache"),
	}
}

// FindBySlug serves from cache when fresh, otherwise queries the repository.
func (c *CongregationCache) FindBySlug(ctx context.Context, slug domain.Slug) (*domain.Congregation, error) {
	key := slug.String()

	// fast path
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		if entry.congregation == nil {
			return nil, domain.ErrNotFound
		}
		return entry.congregation, nil
	}

	congregation, err := c.CongregationRepository.FindBySlug(ctx, slug)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = &congregationEntry{congregation: congregation, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()

	if congregation == nil {
		return nil, domain.ErrNotFound
	}
	return congregation, nil
}

// Save writes through and drops the cached slug.
func (c *CongregationCache) Save(ctx context.Context, congregation *domain.Congregation) error {
	if err := c.CongregationRepository.Save(ctx, congregation); err != nil {
		return err
	}
	c.Invalidate(congregation.Slug())
	return nil
}

// Invalidate removes a slug from the cache.
func (c *CongregationCache) Invalidate(slug domain.Slug) {
	c.mu.Lock()
	delete(c.entries, slug.String())
	c.mu.Unlock()
}

// Size returns the current number of cached entries.
func (c *CongregationCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cleanup removes expired entries.
func (c *CongregationCache) Cleanup() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// RunCleanup evicts expired entries every interval until ctx is done.
func (c *CongregationCache) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Cleanup(); n > 0 {
				c.logger.Debug("congregation cache cleaned", "removed", n)
			}
		}
	}
}
