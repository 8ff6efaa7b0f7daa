package config

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/KOFI-GYIMAH/github-popularity/internal/gateway"
	"github.com/KOFI-GYIMAH/github-popularity/internal/github"
	"github.com/KOFI-GYIMAH/github-popularity/internal/scoring"
	"github.com/KOFI-GYIMAH/github-popularity/internal/service"
	"github.com/KOFI-GYIMAH/github-popularity/pkg/errors"
	"github.com/KOFI-GYIMAH/github-popularity/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const dateLayout = "2006-01-02"

type GitHubConfig struct {
	Token              string
	APIURL             string
	Timeout            time.Duration
	RequestsPerMinute  int
	MaxPagesToFetch    int
	PageSize           int
	MaxConcurrentPages int
}

type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
}

type BreakerConfig struct {
	FailureRate      float64
	MinimumRequests  int
	OpenTimeout      time.Duration
	HalfOpenRequests int
	Interval         time.Duration
}

type WarmupQuery struct {
	Since    string
	Language string
}

type Config struct {
	GitHub         GitHubConfig
	Cache          CacheConfig
	Breaker        BreakerConfig
	Scoring        scoring.Config
	ServerPort     string
	DBURL          string
	RabbitMQURL    string
	WarmupInterval time.Duration
	WarmupQueries  []WarmupQuery
	Debug          bool
}

// * LoadConfiguration reads .env, then an optional config.yaml, then the
// * environment. Later sources win. The result is not validated.
func LoadConfiguration() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, errors.New(errors.RefInvalidConfig, "Failed to read config file", err.Error(), err, errors.LevelFatal)
		}
	} else {
		logger.Info("Loaded config file %s", v.ConfigFileUsed())
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	def := scoring.DefaultConfig()
	breaker := gateway.DefaultSettings()

	v.SetDefault("github.token", "")
	v.SetDefault("github.api_url", "https://api.github.com/")
	v.SetDefault("github.timeout", github.DefaultTimeout)
	v.SetDefault("github.requests_per_minute", github.DefaultRequestsPerMinute)
	v.SetDefault("github.max_pages_to_fetch", service.DefaultMaxPagesToFetch)
	v.SetDefault("github.page_size", service.DefaultPageSize)
	v.SetDefault("github.max_concurrent_pages", 0)

	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cache.max_entries", 0)

	v.SetDefault("breaker.failure_rate", breaker.FailureRateThreshold)
	v.SetDefault("breaker.minimum_requests", breaker.MinimumRequests)
	v.SetDefault("breaker.open_timeout", breaker.OpenTimeout)
	v.SetDefault("breaker.half_open_requests", breaker.HalfOpenMaxRequests)
	v.SetDefault("breaker.interval", breaker.Interval)

	v.SetDefault("scoring.stars_weight", def.StarsWeight)
	v.SetDefault("scoring.forks_weight", def.ForksWeight)
	v.SetDefault("scoring.freshness.very_recent_days", def.Freshness.VeryRecentDays)
	v.SetDefault("scoring.freshness.recent_days", def.Freshness.RecentDays)
	v.SetDefault("scoring.freshness.old_days", def.Freshness.OldDays)
	v.SetDefault("scoring.freshness.boost_very_recent", def.Freshness.BoostVeryRecent)
	v.SetDefault("scoring.freshness.boost_recent", def.Freshness.BoostRecent)
	v.SetDefault("scoring.freshness.penalty_old", def.Freshness.PenaltyOld)
	v.SetDefault("scoring.freshness.default_multiplier", def.Freshness.DefaultMultiplier)

	v.SetDefault("server.port", ":8081")
	v.SetDefault("db.url", "")
	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("warmup.interval", 0)
	v.SetDefault("warmup.queries", "")
	v.SetDefault("debug", false)
}

func fromViper(v *viper.Viper) (*Config, error) {
	queries, err := ParseWarmupQueries(v.GetString("warmup.queries"))
	if err != nil {
		return nil, err
	}

	return &Config{
		GitHub: GitHubConfig{
			Token:              v.GetString("github.token"),
			APIURL:             v.GetString("github.api_url"),
			Timeout:            v.GetDuration("github.timeout"),
			RequestsPerMinute:  v.GetInt("github.requests_per_minute"),
			MaxPagesToFetch:    v.GetInt("github.max_pages_to_fetch"),
			PageSize:           v.GetInt("github.page_size"),
			MaxConcurrentPages: v.GetInt("github.max_concurrent_pages"),
		},
		Cache: CacheConfig{
			TTL:        v.GetDuration("cache.ttl"),
			MaxEntries: v.GetInt("cache.max_entries"),
		},
		Breaker: BreakerConfig{
			FailureRate:      v.GetFloat64("breaker.failure_rate"),
			MinimumRequests:  v.GetInt("breaker.minimum_requests"),
			OpenTimeout:      v.GetDuration("breaker.open_timeout"),
			HalfOpenRequests: v.GetInt("breaker.half_open_requests"),
			Interval:         v.GetDuration("breaker.interval"),
		},
		Scoring: scoring.Config{
			StarsWeight: v.GetFloat64("scoring.stars_weight"),
			ForksWeight: v.GetFloat64("scoring.forks_weight"),
			Freshness: scoring.Freshness{
				VeryRecentDays:    v.GetInt("scoring.freshness.very_recent_days"),
				RecentDays:        v.GetInt("scoring.freshness.recent_days"),
				OldDays:           v.GetInt("scoring.freshness.old_days"),
				BoostVeryRecent:   v.GetFloat64("scoring.freshness.boost_very_recent"),
				BoostRecent:       v.GetFloat64("scoring.freshness.boost_recent"),
				PenaltyOld:        v.GetFloat64("scoring.freshness.penalty_old"),
				DefaultMultiplier: v.GetFloat64("scoring.freshness.default_multiplier"),
			},
		},
		ServerPort:     v.GetString("server.port"),
		DBURL:          v.GetString("db.url"),
		RabbitMQURL:    v.GetString("rabbitmq.url"),
		WarmupInterval: v.GetDuration("warmup.interval"),
		WarmupQueries:  queries,
		Debug:          v.GetBool("debug"),
	}, nil
}

// * Validate is called once at startup, any error is fatal
func (c *Config) Validate() error {
	if err := c.Scoring.Validate(); err != nil {
		return err
	}

	g, b := c.GitHub, c.Breaker

	switch {
	case g.APIURL == "":
		return invalid("GITHUB_API_URL must not be empty")
	case g.Timeout <= 0:
		return invalid("GITHUB_TIMEOUT must be positive, got %s", g.Timeout)
	case g.PageSize < 1 || g.PageSize > gateway.MaxPageSize:
		return invalid("GITHUB_PAGE_SIZE must be between 1 and %d, got %d", gateway.MaxPageSize, g.PageSize)
	case g.MaxPagesToFetch < 1:
		return invalid("GITHUB_MAX_PAGES_TO_FETCH must be at least 1, got %d", g.MaxPagesToFetch)
	case g.MaxConcurrentPages < 0:
		return invalid("GITHUB_MAX_CONCURRENT_PAGES must not be negative, got %d", g.MaxConcurrentPages)
	case c.Cache.TTL <= 0:
		return invalid("CACHE_TTL must be positive, got %s", c.Cache.TTL)
	case c.Cache.MaxEntries < 0:
		return invalid("CACHE_MAX_ENTRIES must not be negative, got %d", c.Cache.MaxEntries)
	case b.FailureRate <= 0 || b.FailureRate > 1:
		return invalid("BREAKER_FAILURE_RATE must be in (0, 1], got %v", b.FailureRate)
	case b.MinimumRequests < 1:
		return invalid("BREAKER_MINIMUM_REQUESTS must be at least 1, got %d", b.MinimumRequests)
	case b.OpenTimeout <= 0:
		return invalid("BREAKER_OPEN_TIMEOUT must be positive, got %s", b.OpenTimeout)
	case b.HalfOpenRequests < 1:
		return invalid("BREAKER_HALF_OPEN_REQUESTS must be at least 1, got %d", b.HalfOpenRequests)
	case b.Interval < 0:
		return invalid("BREAKER_INTERVAL must not be negative, got %s", b.Interval)
	case c.WarmupInterval < 0:
		return invalid("WARMUP_INTERVAL must not be negative, got %s", c.WarmupInterval)
	}

	return nil
}

func (c *Config) ClientOptions() github.Options {
	return github.Options{
		BaseURL:           c.GitHub.APIURL,
		Token:             c.GitHub.Token,
		Timeout:           c.GitHub.Timeout,
		RequestsPerMinute: c.GitHub.RequestsPerMinute,
	}
}

func (c *Config) GatewaySettings() gateway.Settings {
	st := gateway.DefaultSettings()
	st.FailureRateThreshold = c.Breaker.FailureRate
	st.MinimumRequests = uint32(c.Breaker.MinimumRequests)
	st.OpenTimeout = c.Breaker.OpenTimeout
	st.HalfOpenMaxRequests = uint32(c.Breaker.HalfOpenRequests)
	st.Interval = c.Breaker.Interval
	return st
}

func (c *Config) ServiceOptions() service.Options {
	return service.Options{
		PageSize:           c.GitHub.PageSize,
		MaxPagesToFetch:    c.GitHub.MaxPagesToFetch,
		MaxConcurrentPages: c.GitHub.MaxConcurrentPages,
	}
}

// * ParseWarmupQueries takes a comma separated list of since:language pairs,
// * e.g. "2024-01-01:Go,2024-01-01:Rust". Blank entries are skipped.
func ParseWarmupQueries(raw string) ([]WarmupQuery, error) {
	var queries []WarmupQuery

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		since, language, ok := strings.Cut(entry, ":")
		since, language = strings.TrimSpace(since), strings.TrimSpace(language)
		if !ok || language == "" {
			return nil, invalid("warm-up query %q should be in format YYYY-MM-DD:language", entry)
		}
		if _, err := time.Parse(dateLayout, since); err != nil {
			return nil, invalid("warm-up query %q has an invalid date, expected YYYY-MM-DD", entry)
		}

		queries = append(queries, WarmupQuery{Since: since, Language: language})
	}

	return queries, nil
}

func invalid(format string, args ...any) error {
	return errors.New(
		errors.RefInvalidConfig,
		"Invalid configuration",
		fmt.Sprintf(format, args...),
		nil,
		errors.LevelFatal,
	)
}
