package service

import (
	"context"
	"sort"
	"time"

	"github.com/KOFI-GYIMAH/github-popularity/internal/cache"
	"github.com/KOFI-GYIMAH/github-popularity/internal/models"
	"github.com/KOFI-GYIMAH/github-popularity/pkg/errors"
	"github.com/KOFI-GYIMAH/github-popularity/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPageSize        = 100
	DefaultMaxPagesToFetch = 5
)

// PageFetcher fetches one page of search results. Implementations degrade
// failures to an empty page instead of returning an error.
type PageFetcher interface {
	FetchPage(ctx context.Context, since, language string, page, pageSize int) models.SearchPage
}

type Scorer interface {
	Score(m *models.RepositoryMetrics) float64
}

type Options struct {
	PageSize        int
	MaxPagesToFetch int
	// * MaxConcurrentPages bounds in-flight page fetches, 0 means one task per page
	MaxConcurrentPages int
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 || o.PageSize > DefaultPageSize {
		o.PageSize = DefaultPageSize
	}
	if o.MaxPagesToFetch <= 0 {
		o.MaxPagesToFetch = DefaultMaxPagesToFetch
	}
	if o.MaxConcurrentPages <= 0 {
		o.MaxConcurrentPages = o.MaxPagesToFetch
	}
	return o
}

type PopularityService struct {
	fetcher PageFetcher
	scorer  Scorer
	cache   *cache.ResultCache
	history models.SearchHistory
	opts    Options
}

// * history may be nil, searches are then simply not recorded
func NewPopularityService(fetcher PageFetcher, scorer Scorer, resultCache *cache.ResultCache, history models.SearchHistory, opts Options) *PopularityService {
	return &PopularityService{
		fetcher: fetcher,
		scorer:  scorer,
		cache:   resultCache,
		history: history,
		opts:    opts.withDefaults(),
	}
}

// GetPopularRepositories returns the ranking for (since, language), computing
// it at most once per cache lifetime. since and language are used verbatim as
// the cache key.
func (s *PopularityService) GetPopularRepositories(ctx context.Context, since, language string) ([]models.RankedRepository, error) {
	return s.cache.GetOrCompute(ctx, since, language, s.compute(since, language))
}

// * Refresh recomputes the ranking and replaces the cached entry
func (s *PopularityService) Refresh(ctx context.Context, since, language string) ([]models.RankedRepository, error) {
	return s.cache.Refresh(ctx, since, language, s.compute(since, language))
}

func (s *PopularityService) ListRecentSearches(ctx context.Context, limit int) ([]models.SearchRecord, error) {
	if s.history == nil {
		return nil, errors.New(
			errors.RefFeatureDisabled,
			"Search history disabled",
			"Search history requires a database, set DB_URL to enable it",
			nil,
			errors.LevelWarning,
		)
	}
	return s.history.ListRecentSearches(ctx, limit)
}

func (s *PopularityService) compute(since, language string) cache.ComputeFunc {
	return func(ctx context.Context) ([]models.RankedRepository, error) {
		start := time.Now()
		ranked := s.Aggregate(ctx, since, language)
		s.record(ctx, since, language, ranked, time.Since(start))
		return ranked, nil
	}
}

// Aggregate probes page 1, fetches the remaining pages concurrently, scores
// every item and returns the items sorted by descending score. Ties keep
// their fetch order. The result is never nil.
func (s *PopularityService) Aggregate(ctx context.Context, since, language string) []models.RankedRepository {
	first := s.fetcher.FetchPage(ctx, since, language, 1, s.opts.PageSize)
	if len(first.Items) == 0 {
		logger.Info("No repositories found for [date=%s, lang=%s]", since, language)
		return []models.RankedRepository{}
	}

	// * the page count comes from page 1 only and is not re-read from later pages
	totalPages := (first.TotalCount + s.opts.PageSize - 1) / s.opts.PageSize
	pagesToFetch := min(totalPages, s.opts.MaxPagesToFetch)

	pages := make([]models.SearchPage, max(pagesToFetch, 1))
	pages[0] = first

	if pagesToFetch > 1 {
		// * each task owns its own slot, so no locking is needed for the merge
		var g errgroup.Group
		g.SetLimit(s.opts.MaxConcurrentPages)

		for page := 2; page <= pagesToFetch; page++ {
			page := page
			g.Go(func() error {
				pages[page-1] = s.fetcher.FetchPage(ctx, since, language, page, s.opts.PageSize)
				return nil
			})
		}
		_ = g.Wait()
	}

	merged := make([]models.RepositoryMetrics, 0, len(first.Items)*len(pages))
	for _, p := range pages {
		merged = append(merged, p.Items...)
	}

	logger.Info("Fetched %d repositories from %d page(s) for [date=%s, lang=%s]", len(merged), len(pages), since, language)
	return s.rank(merged)
}

func (s *PopularityService) rank(items []models.RepositoryMetrics) []models.RankedRepository {
	ranked := make([]models.RankedRepository, 0, len(items))
	for i := range items {
		m := &items[i]
		ranked = append(ranked, models.RankedRepository{
			FullName:        m.FullName,
			Stars:           m.Stars,
			Forks:           m.Forks,
			Language:        m.Language,
			PopularityScore: s.scorer.Score(m),
			URL:             m.URL,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PopularityScore > ranked[j].PopularityScore
	})
	return ranked
}

func (s *PopularityService) record(ctx context.Context, since, language string, ranked []models.RankedRepository, took time.Duration) {
	if s.history == nil {
		return
	}

	rec := &models.SearchRecord{
		Since:       since,
		Language:    language,
		ResultCount: len(ranked),
		DurationMS:  took.Milliseconds(),
		ComputedAt:  time.Now().UTC(),
	}
	if len(ranked) > 0 {
		rec.TopRepository = ranked[0].FullName
	}

	if err := s.history.RecordSearch(ctx, rec); err != nil {
		logger.Warn("Failed to record search [date=%s, lang=%s]: %v", since, language, err)
	}
}
