package github

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/KOFI-GYIMAH/github-popularity/internal/models"
	"github.com/KOFI-GYIMAH/github-popularity/pkg/errors"
	"github.com/KOFI-GYIMAH/github-popularity/pkg/logger"
	gh "github.com/google/go-github/github"
	"golang.org/x/oauth2"
)

var (
	baseURL = "https://api.github.com/"
)

const (
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerMinute = 30
	apiVersion               = "2022-11-28"
)

type Options struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	RequestsPerMinute int
}

// * Client is the upstream search port backed by the GitHub search API
type Client struct {
	client *gh.Client
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = baseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RequestsPerMinute == 0 {
		opts.RequestsPerMinute = DefaultRequestsPerMinute
	}

	endpoint, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API url %q: %w", opts.BaseURL, err)
	}
	if !strings.HasSuffix(endpoint.Path, "/") {
		endpoint.Path += "/"
	}

	rl := NewRateLimiter(opts.RequestsPerMinute)

	var transport http.RoundTripper = withHeaders(rl.Middleware(http.DefaultTransport))
	if opts.Token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}),
			Base:   transport,
		}
	}

	httpClient := &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	}

	client := gh.NewClient(httpClient)
	client.BaseURL = endpoint

	return &Client{client: client}, nil
}

// * BuildQuery renders the search qualifier for repositories created after
// * since in the given language
func BuildQuery(since, language string) string {
	return fmt.Sprintf("created:>%s language:%s", since, language)
}

// SearchRepositories fetches one page of repositories created after since in
// language, most starred first.
func (c *Client) SearchRepositories(ctx context.Context, since, language string, page, perPage int) (models.SearchPage, error) {
	opts := &gh.SearchOptions{
		Sort:  "stars",
		Order: "desc",
		ListOptions: gh.ListOptions{
			Page:    page,
			PerPage: perPage,
		},
	}

	result, resp, err := c.client.Search.Repositories(ctx, BuildQuery(since, language), opts)
	if err != nil {
		return models.SearchPage{}, translateError(err, resp, since, language, page)
	}

	items := make([]models.RepositoryMetrics, 0, len(result.Repositories))
	for i := range result.Repositories {
		items = append(items, toMetrics(&result.Repositories[i]))
	}

	logger.Debug("Fetched page %d for %s since %s: %d items (total %d)", page, language, since, len(items), result.GetTotal())
	return models.SearchPage{
		TotalCount: result.GetTotal(),
		Items:      items,
	}, nil
}

func toMetrics(repo *gh.Repository) models.RepositoryMetrics {
	m := models.RepositoryMetrics{
		Name:     repo.GetName(),
		FullName: repo.GetFullName(),
		Stars:    repo.GetStargazersCount(),
		Forks:    repo.GetForksCount(),
		Language: repo.GetLanguage(),
		URL:      repo.GetHTMLURL(),
	}

	if repo.UpdatedAt != nil && !repo.UpdatedAt.Time.IsZero() {
		updated := repo.UpdatedAt.Time.UTC()
		m.UpdatedAt = &updated
	}

	return m
}

func translateError(err error, resp *gh.Response, since, language string, page int) error {
	var (
		rateErr  *gh.RateLimitError
		abuseErr *gh.AbuseRateLimitError
		status   int
	)
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}

	switch {
	case stderrors.As(err, &rateErr), stderrors.As(err, &abuseErr), stderrors.Is(err, ErrQuotaExhausted),
		status == http.StatusTooManyRequests,
		status == http.StatusForbidden && resp.Header.Get(headerRemaining) == "0":
		return errors.New(
			errors.RefGitHubRateLimit,
			"GitHub API rate limit exceeded",
			fmt.Sprintf("Search for %s since %s (page %d) was rate limited", language, since, page),
			err,
			errors.LevelWarning,
		)

	case status == http.StatusNotFound:
		return errors.New(
			errors.RefGitHubNotFound,
			"Resource not found on GitHub",
			fmt.Sprintf("GitHub API returned 404 for %s since %s (page %d)", language, since, page),
			err,
			errors.LevelInfo,
		)

	case status >= 200 && status < 300:
		return errors.New(
			errors.RefGitHubAPI,
			"Failed to parse GitHub API response",
			fmt.Sprintf("Could not understand page %d of the search results returned by GitHub API", page),
			err,
			errors.LevelError,
		)

	case status != 0:
		return errors.New(
			errors.RefGitHubAPI,
			"Unexpected response from GitHub API",
			fmt.Sprintf("GitHub API returned status %d when searching page %d", status, page),
			err,
			errors.LevelError,
		)
	}

	return errors.New(
		errors.RefGitHubAPI,
		"Failed to reach GitHub API",
		fmt.Sprintf("Could not connect to GitHub API to search page %d", page),
		err,
		errors.LevelError,
	)
}

func withHeaders(next http.RoundTripper) http.RoundTripper {
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		req = req.Clone(req.Context())
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", apiVersion)
		return next.RoundTrip(req)
	})
}
