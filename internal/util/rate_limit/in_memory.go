package rate_limit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxTrackedKeys = 10_000

// InMemoryRateLimiter is the single-process RateLimiter used when Valkey
// is not configured.
type InMemoryRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	now      func() time.Time
}

func NewInMemoryRateLimiter() *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		now:      time.Now,
	}
}

func (r *InMemoryRateLimiter) CheckRateLimit(key string, rpsLimit, burstLimit int) (*RateLimitResult, error) {
	rpsLimit, burstLimit = normalizeLimits(rpsLimit, burstLimit)

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	limiter := r.limiterLocked(key, rpsLimit, burstLimit, now)
	allowed := limiter.AllowN(now, 1)

	return r.resultLocked(limiter, allowed, rpsLimit, burstLimit, now), nil
}

func (r *InMemoryRateLimiter) GetRateLimitInfo(key string, rpsLimit, burstLimit int) (*RateLimitResult, error) {
	rpsLimit, burstLimit = normalizeLimits(rpsLimit, burstLimit)

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	limiter, exists := r.limiters[key]
	if !exists {
		return fullBucket(burstLimit, now), nil
	}

	info := r.resultLocked(limiter, limiter.TokensAt(now) >= 1, rpsLimit, burstLimit, now)
	info.Remaining = max(0, info.Remaining-1)
	return info, nil
}

func (r *InMemoryRateLimiter) ResetRateLimit(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.limiters, key)
	return nil
}

func (r *InMemoryRateLimiter) limiterLocked(key string, rpsLimit, burstLimit int, now time.Time) *rate.Limiter {
	if limiter, exists := r.limiters[key]; exists {
		return limiter
	}

	if len(r.limiters) >= maxTrackedKeys {
		r.pruneFullBucketsLocked(now)
	}

	limiter := rate.NewLimiter(rate.Limit(rpsLimit), burstLimit)
	r.limiters[key] = limiter
	return limiter
}

// pruneFullBucketsLocked forgets keys whose bucket has refilled, since a
// fresh limiter behaves the same.
func (r *InMemoryRateLimiter) pruneFullBucketsLocked(now time.Time) {
	for key, limiter := range r.limiters {
		if limiter.TokensAt(now) >= float64(limiter.Burst()) {
			delete(r.limiters, key)
		}
	}
}

func (r *InMemoryRateLimiter) resultLocked(
	limiter *rate.Limiter,
	allowed bool,
	rpsLimit int,
	burstLimit int,
	now time.Time,
) *RateLimitResult {
	tokens := limiter.TokensAt(now)

	resetTime := now
	if missing := float64(burstLimit) - tokens; missing > 0 {
		resetTime = now.Add(time.Duration(math.Ceil(missing * 1000.0 / float64(rpsLimit))) * time.Millisecond)
	}

	result := &RateLimitResult{
		Allowed:   allowed,
		Remaining: max(0, int(math.Floor(tokens))),
		ResetTime: resetTime,
	}
	if !allowed {
		result.RetryAfterSec = retryAfterSec(rpsLimit)
	}

	return result
}
