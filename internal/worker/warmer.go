package worker

import (
	"context"
	"time"

	"github.com/KOFI-GYIMAH/github-popularity/internal/config"
	"github.com/KOFI-GYIMAH/github-popularity/internal/models"
	"github.com/KOFI-GYIMAH/github-popularity/pkg/logger"
)

type Refresher interface {
	Refresh(ctx context.Context, since, language string) ([]models.RankedRepository, error)
}

// CacheWarmer keeps the rankings of a fixed set of queries fresh so callers
// asking for them hit the cache.
type CacheWarmer struct {
	refresher Refresher
	interval  time.Duration
	queries   []config.WarmupQuery
}

func NewCacheWarmer(refresher Refresher, interval time.Duration, queries []config.WarmupQuery) *CacheWarmer {
	return &CacheWarmer{
		refresher: refresher,
		interval:  interval,
		queries:   queries,
	}
}

// * Run warms every query once, then again on each tick until ctx is done.
// * It returns immediately when there is nothing to do.
func (w *CacheWarmer) Run(ctx context.Context) {
	if w.interval <= 0 || len(w.queries) == 0 {
		logger.Info("Cache warmer disabled")
		return
	}

	w.warmAll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.warmAll(ctx)

		case <-ctx.Done():
			logger.Info("Stopping cache warmer")
			return
		}
	}
}

func (w *CacheWarmer) warmAll(ctx context.Context) {
	for _, q := range w.queries {
		if ctx.Err() != nil {
			return
		}
		if err := w.Warm(ctx, q.Since, q.Language); err != nil {
			logger.Error("Warm-up failed [date=%s, lang=%s]: %v", q.Since, q.Language, err)
		}
	}
}

func (w *CacheWarmer) Warm(ctx context.Context, since, language string) error {
	start := time.Now()

	items, err := w.refresher.Refresh(ctx, since, language)
	if err != nil {
		return err
	}

	logger.Info("Warmed [date=%s, lang=%s] with %d repositories in %s", since, language, len(items), time.Since(start))
	return nil
}

// * HandleWarmupRequest adapts Warm to queued requests
func (w *CacheWarmer) HandleWarmupRequest(ctx context.Context, req models.WarmupRequest) error {
	return w.Warm(ctx, req.Since, req.Language)
}
