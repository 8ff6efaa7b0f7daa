package cache

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/KOFI-GYIMAH/github-popularity/internal/models"
	"github.com/KOFI-GYIMAH/github-popularity/pkg/logger"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 10 * time.Minute

// Key identifies one cached ranking. Both parts are compared verbatim, so
// "Go" and "go" are different keys.
type Key struct {
	Since    string
	Language string
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s", k.Since, k.Language)
}

type ComputeFunc func(ctx context.Context) ([]models.RankedRepository, error)

type Stats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// ResultCache memoizes rankings per Key. Concurrent misses on the same key
// share one computation; different keys never wait on each other. Entries are
// replaced whole and never mutated after they are stored.
type ResultCache struct {
	entries *expirable.LRU[Key, []models.RankedRepository]
	group   singleflight.Group
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// * New builds a cache; maxEntries <= 0 keeps every key until it expires
func New(ttl time.Duration, maxEntries int) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries < 0 {
		maxEntries = 0
	}

	return &ResultCache{
		entries: expirable.NewLRU[Key, []models.RankedRepository](maxEntries, nil, ttl),
	}
}

func (c *ResultCache) GetOrCompute(ctx context.Context, since, language string, compute ComputeFunc) ([]models.RankedRepository, error) {
	key := Key{Since: since, Language: language}

	if items, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		logger.Debug("Cache hit for %s", key)
		return slices.Clone(items), nil
	}

	v, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		// * another flight may have filled the entry while we were queued
		if items, ok := c.entries.Get(key); ok {
			c.hits.Add(1)
			return items, nil
		}

		c.misses.Add(1)
		logger.Debug("Cache miss for %s", key)
		return c.store(ctx, key, compute)
	})
	if err != nil {
		return nil, err
	}

	return slices.Clone(v.([]models.RankedRepository)), nil
}

// Refresh recomputes key and replaces the stored entry in one step. A refresh
// running at the same time as a miss for the same key is shared with it.
func (c *ResultCache) Refresh(ctx context.Context, since, language string, compute ComputeFunc) ([]models.RankedRepository, error) {
	key := Key{Since: since, Language: language}

	v, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		return c.store(ctx, key, compute)
	})
	if err != nil {
		return nil, err
	}

	return slices.Clone(v.([]models.RankedRepository)), nil
}

// * the computation is shared by every waiter, so one caller going away must
// * not cut it short and leave a degraded ranking behind
func (c *ResultCache) store(ctx context.Context, key Key, compute ComputeFunc) ([]models.RankedRepository, error) {
	items, err := compute(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.RankedRepository{}
	}

	c.entries.Add(key, items)
	return items, nil
}

func (c *ResultCache) Stats() Stats {
	return Stats{
		Entries: c.entries.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}
