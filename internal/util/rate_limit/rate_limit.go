package rate_limit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/valkey-io/valkey-go"
)

// RateLimiter is a token bucket per key. CheckRateLimit consumes a token;
// GetRateLimitInfo only peeks.
type RateLimiter interface {
	CheckRateLimit(key string, rpsLimit, burstLimit int) (*RateLimitResult, error)
	GetRateLimitInfo(key string, rpsLimit, burstLimit int) (*RateLimitResult, error)
	ResetRateLimit(key string) error
}

type RateLimitResult struct {
	Allowed       bool      `json:"allowed"`
	Remaining     int       `json:"remaining"`
	ResetTime     time.Time `json:"resetTime"`
	RetryAfterSec int       `json:"retryAfterSec,omitempty"`
}

const (
	defaultTimeout = 5 * time.Second
	bucketTTLSec   = 300
)

// Lua script for token bucket rate limiting
// This script atomically:
// 1. Gets current token count and last refill time
// 2. Calculates tokens to add based on time elapsed
// 3. Checks if request can be allowed
// 4. Updates token count and timestamp
const tokenBucketLuaScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local rps_limit = tonumber(ARGV[2])
local burst_limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local current = redis.call('HMGET', key, 'tokens', 'last_refill')
local tokens = tonumber(current[1]) or burst_limit
local last_refill = tonumber(current[2]) or now

local elapsed = math.max(0, now - last_refill)
local tokens_to_add = math.floor(elapsed * rps_limit / 1000)
if tokens_to_add > 0 then
    last_refill = now
end
tokens = math.min(burst_limit, tokens + tokens_to_add)

local allowed = 0
local remaining = tokens
if tokens >= 1 then
    allowed = 1
    tokens = tokens - 1
    remaining = tokens
end

redis.call('HMSET', key, 'tokens', tokens, 'last_refill', last_refill)
redis.call('EXPIRE', key, ttl)

local time_to_full = 0
if tokens < burst_limit then
    time_to_full = math.ceil((burst_limit - tokens) * 1000 / rps_limit)
end

return {allowed, remaining, time_to_full}
`

// ValkeyRateLimiter keeps buckets in Valkey so that every replica shares them.
type ValkeyRateLimiter struct {
	client    valkey.Client
	keyPrefix string
}

func NewValkeyRateLimiter(client valkey.Client, keyPrefix string) *ValkeyRateLimiter {
	return &ValkeyRateLimiter{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (r *ValkeyRateLimiter) CheckRateLimit(key string, rpsLimit, burstLimit int) (*RateLimitResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	rpsLimit, burstLimit = normalizeLimits(rpsLimit, burstLimit)
	now := time.Now()

	result := r.client.Do(ctx, r.client.B().Eval().
		Script(tokenBucketLuaScript).
		Numkeys(1).
		Key(r.keyPrefix+key).
		Arg(strconv.FormatInt(now.UnixMilli(), 10)).
		Arg(strconv.Itoa(rpsLimit)).
		Arg(strconv.Itoa(burstLimit)).
		Arg(strconv.Itoa(bucketTTLSec)).
		Build())

	if result.Error() != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", result.Error())
	}

	values, err := result.AsIntSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to parse rate limit result: %w", err)
	}

	if len(values) < 3 {
		return nil, fmt.Errorf("invalid rate limit result: expected 3 values, got %d", len(values))
	}

	allowed := values[0] == 1
	rateLimitResult := &RateLimitResult{
		Allowed:   allowed,
		Remaining: int(values[1]),
		ResetTime: now.Add(time.Duration(values[2]) * time.Millisecond),
	}
	if !allowed {
		rateLimitResult.RetryAfterSec = retryAfterSec(rpsLimit)
	}

	return rateLimitResult, nil
}

func (r *ValkeyRateLimiter) ResetRateLimit(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	return r.client.Do(ctx, r.client.B().Del().Key(r.keyPrefix+key).Build()).Error()
}

func (r *ValkeyRateLimiter) GetRateLimitInfo(key string, rpsLimit, burstLimit int) (*RateLimitResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	rpsLimit, burstLimit = normalizeLimits(rpsLimit, burstLimit)
	now := time.Now()

	result := r.client.Do(ctx, r.client.B().Hmget().Key(r.keyPrefix+key).Field("tokens", "last_refill").Build())
	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return fullBucket(burstLimit, now), nil
		}
		return nil, fmt.Errorf("failed to get rate limit info: %w", result.Error())
	}

	values, err := result.ToArray()
	if err != nil {
		return nil, fmt.Errorf("failed to get rate limit info: %w", err)
	}

	if len(values) < 2 {
		return fullBucket(burstLimit, now), nil
	}

	tokens, tokensErr := values[0].AsInt64()
	lastRefill, refillErr := values[1].AsInt64()
	if tokensErr != nil || refillErr != nil {
		// a missing hash reads as two nil fields
		return fullBucket(burstLimit, now), nil
	}

	elapsed := float64(now.UnixMilli() - lastRefill)
	tokensToAdd := int(math.Floor(elapsed * float64(rpsLimit) / 1000.0))
	currentTokens := min(burstLimit, int(tokens)+tokensToAdd)

	resetTime := now
	if currentTokens < burstLimit {
		timeToFullMs := int64(math.Ceil(float64(burstLimit-currentTokens) * 1000.0 / float64(rpsLimit)))
		resetTime = now.Add(time.Duration(timeToFullMs) * time.Millisecond)
	}

	info := &RateLimitResult{
		Allowed:   currentTokens >= 1,
		Remaining: max(0, currentTokens-1),
		ResetTime: resetTime,
	}
	if !info.Allowed {
		info.RetryAfterSec = retryAfterSec(rpsLimit)
	}

	return info, nil
}

func normalizeLimits(rpsLimit, burstLimit int) (int, int) {
	if rpsLimit <= 0 {
		rpsLimit = 1
	}
	if burstLimit <= 0 {
		burstLimit = rpsLimit * 5
	}
	return rpsLimit, burstLimit
}

// retryAfterSec is the wait for one token, rounded up to whole seconds.
func retryAfterSec(rpsLimit int) int {
	return max(1, int(math.Ceil(1.0/float64(rpsLimit))))
}

func fullBucket(burstLimit int, now time.Time) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   true,
		Remaining: burstLimit - 1,
		ResetTime: now,
	}
}
