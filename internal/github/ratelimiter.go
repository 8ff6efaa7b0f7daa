package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/KOFI-GYIMAH/github-popularity/pkg/logger"
	"golang.org/x/time/rate"
)

const (
	headerRemaining  = "X-RateLimit-Remaining"
	headerReset      = "X-RateLimit-Reset"
	headerRetryAfter = "Retry-After"
)

// ErrQuotaExhausted is returned without touching the network while upstream
// has reported an exhausted quota and the reset time has not passed yet.
var ErrQuotaExhausted = errors.New("github rate limit quota exhausted")

// RateLimiter spaces outgoing requests with a token bucket and tracks the
// quota GitHub reports in response headers.
type RateLimiter struct {
	mu        sync.Mutex
	limiter   *rate.Limiter
	remaining int
	reset     time.Time
	lowWarn   int
	now       func() time.Time
}

func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	limit, burst := rate.Inf, 1
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
		burst = requestsPerMinute
	}

	return &RateLimiter{
		limiter:   rate.NewLimiter(limit, burst),
		remaining: -1,
		lowWarn:   5,
		now:       time.Now,
	}
}

func (r *RateLimiter) waitIfNeeded(ctx context.Context) error {
	r.mu.Lock()
	exhausted := r.remaining == 0 && r.now().Before(r.reset)
	reset := r.reset
	r.mu.Unlock()

	if exhausted {
		return fmt.Errorf("%w until %s", ErrQuotaExhausted, reset.Format(time.RFC3339))
	}

	return r.limiter.Wait(ctx)
}

func (r *RateLimiter) updateFromHeaders(status int, headers http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if remaining := headers.Get(headerRemaining); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			r.remaining = val
		}
	}

	if reset := headers.Get(headerReset); reset != "" {
		if val, err := strconv.ParseInt(reset, 10, 64); err == nil {
			r.reset = time.Unix(val, 0)
		}
	}

	// * Secondary limits only come with Retry-After
	if status == http.StatusTooManyRequests || status == http.StatusForbidden {
		if retry := headers.Get(headerRetryAfter); retry != "" {
			if seconds, err := strconv.Atoi(retry); err == nil {
				r.remaining = 0
				r.reset = r.now().Add(time.Duration(seconds) * time.Second)
			}
		}
	}

	if r.remaining == 0 {
		logger.Warn("[RateLimiter] Quota exhausted. Upstream calls fail fast until %s", r.reset.Format(time.RFC1123))
	} else if r.remaining > 0 && r.remaining < r.lowWarn {
		logger.Warn("[RateLimiter] Low rate limit: %d remaining. Resets at %s", r.remaining, r.reset.Format(time.RFC1123))
	}
}

func (r *RateLimiter) Middleware(next http.RoundTripper) http.RoundTripper {
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if err := r.waitIfNeeded(req.Context()); err != nil {
			return nil, err
		}

		resp, err := next.RoundTrip(req)
		if err != nil {
			logger.Error("Network error in RoundTrip: %v", err)
			return nil, err
		}

		r.updateFromHeaders(resp.StatusCode, resp.Header)
		return resp, nil
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
