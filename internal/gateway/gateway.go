package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/KOFI-GYIMAH/github-popularity/internal/models"
	"github.com/KOFI-GYIMAH/github-popularity/pkg/logger"
	"github.com/sony/gobreaker"
)

// * MaxPageSize is the per-page maximum documented by the GitHub search API
const MaxPageSize = 100

// SearchPort fetches one page of search results from upstream. It may fail.
type SearchPort interface {
	SearchRepositories(ctx context.Context, since, language string, page, perPage int) (models.SearchPage, error)
}

// Settings configure the breaker. FailureRateThreshold is a ratio in (0, 1]
// checked once MinimumRequests calls were seen; Interval clears closed-state
// counts periodically and 0 keeps them forever.
type Settings struct {
	Name                 string
	FailureRateThreshold float64
	MinimumRequests      uint32
	OpenTimeout          time.Duration
	HalfOpenMaxRequests  uint32
	Interval             time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		Name:                 "github-search",
		FailureRateThreshold: 0.5,
		MinimumRequests:      5,
		OpenTimeout:          30 * time.Second,
		HalfOpenMaxRequests:  1,
		Interval:             time.Minute,
	}
}

type Stats struct {
	State                string `json:"state"`
	Requests             uint32 `json:"requests"`
	TotalFailures        uint32 `json:"total_failures"`
	ConsecutiveFailures  uint32 `json:"consecutive_failures"`
	ConsecutiveSuccesses uint32 `json:"consecutive_successes"`
}

// Gateway wraps a SearchPort with a circuit breaker. FetchPage never fails:
// upstream errors and short-circuited calls both degrade to an empty page.
// One Gateway is meant to be shared by every caller of the same endpoint.
type Gateway struct {
	port    SearchPort
	breaker *gobreaker.CircuitBreaker
}

func New(port SearchPort, st Settings) *Gateway {
	return &Gateway{
		port: port,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        st.Name,
			MaxRequests: st.HalfOpenMaxRequests,
			Interval:    st.Interval,
			Timeout:     st.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < st.MinimumRequests {
					return false
				}
				return float64(counts.TotalFailures)/float64(counts.Requests) >= st.FailureRateThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("[CircuitBreaker] %s: %s -> %s", name, from, to)
			},
			IsSuccessful: func(err error) bool {
				// * a caller giving up says nothing about upstream health
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
}

func (g *Gateway) FetchPage(ctx context.Context, since, language string, page, pageSize int) models.SearchPage {
	if page < 1 || pageSize < 1 || pageSize > MaxPageSize {
		logger.Error("Refusing search page request: page=%d pageSize=%d (page >= 1, 1 <= pageSize <= %d)", page, pageSize, MaxPageSize)
		return models.EmptyPage()
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.port.SearchRepositories(ctx, since, language, page, pageSize)
	})
	if err != nil {
		logger.Error("Search degraded to empty page. Params: [date=%s, lang=%s, page=%d, pageSize=%d]. Reason: %v",
			since, language, page, pageSize, err)
		return models.EmptyPage()
	}

	searchPage := result.(models.SearchPage)
	if searchPage.Items == nil {
		searchPage.Items = []models.RepositoryMetrics{}
	}
	return searchPage
}

func (g *Gateway) State() string {
	return g.breaker.State().String()
}

func (g *Gateway) Stats() Stats {
	counts := g.breaker.Counts()
	return Stats{
		State:                g.State(),
		Requests:             counts.Requests,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
	}
}
