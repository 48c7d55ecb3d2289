package chain

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per endpoint with a token bucket. The change
// poller and the token client share one endpoint; the poller checks Ready so
// it gives way to foreground calls instead of queueing behind them.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewRateLimiter allows perSecond requests per endpoint with the given burst.
// A non-positive rate disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{
		limit:   limit,
		burst:   max(burst, 1),
		buckets: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to endpoint is allowed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, endpoint string) error {
	return r.bucket(endpoint).Wait(ctx)
}

// Ready reports whether n requests to endpoint could go out now without
// waiting. It spends nothing. n is capped at the burst so a small bucket
// still becomes ready once full.
func (r *RateLimiter) Ready(endpoint string, n int) bool {
	if r.limit == rate.Inf {
		return true
	}
	need := float64(min(n, r.burst))
	return r.bucket(endpoint).TokensAt(time.Now()) >= need
}

func (r *RateLimiter) bucket(endpoint string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[endpoint]
	if !ok {
		b = rate.NewLimiter(r.limit, r.burst)
		r.buckets[endpoint] = b
	}
	return b
}
