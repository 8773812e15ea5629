// Package ratelimit implements a continuous token-bucket limiter backed by a
// Redis script, with an in-process fallback bucket table for relaxed
// deployments when Redis is unreachable.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited is returned when the caller's bucket has no tokens left.
	ErrRateLimited = errors.New("too many requests")
	// ErrUnavailable is returned in strict mode when the limiter's backing store is unreachable.
	ErrUnavailable = errors.New("rate limiter unavailable")
)

// consumeTimeout bounds each Redis round trip so a slow store cannot stall
// the request path.
const consumeTimeout = 500 * time.Millisecond

// The bucket state is a hash of (tokens, timestamp). Refill is continuous:
// elapsed seconds times capacity/period, capped at capacity. The whole
// read-modify-write runs as one script so concurrent callers on the same key
// are serialized by Redis. Remaining tokens are returned as a string to keep
// the fractional part across the reply conversion.
const consumeScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local data = redis.call("HMGET", key, "tokens", "timestamp")
local tokens = tonumber(data[1])
local timestamp = tonumber(data[2])

if tokens == nil then
    tokens = capacity
    timestamp = now
else
    local delta = now - timestamp
    local refill = delta * refill_rate
    tokens = math.min(capacity, tokens + refill)
end

local allowed = 0
if tokens >= 1 then
    allowed = 1
    tokens = tokens - 1
end
redis.call("HMSET", key, "tokens", tokens, "timestamp", now)
redis.call("EXPIRE", key, ttl)
return {allowed, tostring(tokens)}
`

// Limiter enforces per-key token buckets in Redis. When Redis cannot be
// reached, strict deployments refuse with ErrUnavailable while relaxed ones
// fall back to a mutex-guarded in-process table, so a single instance still
// self-protects.
type Limiter struct {
	client  redis.Scripter
	script  *redis.Script
	relaxed bool
	local   *localBuckets
}

// New returns a Limiter. client may be nil (no Redis configured); then every
// call takes the fallback branch.
func New(client redis.Scripter, relaxed bool) *Limiter {
	return &Limiter{
		client:  client,
		script:  redis.NewScript(consumeScript),
		relaxed: relaxed,
		local:   newLocalBuckets(),
	}
}

// Consume takes one token from the bucket for key. Returns the remaining
// token count, ErrRateLimited when the bucket is empty, or ErrUnavailable
// when Redis is down and the deployment is strict.
func (l *Limiter) Consume(ctx context.Context, key string, capacity int, period time.Duration) (float64, error) {
	if l.client == nil {
		return l.fallback(key, capacity, period, errors.New("redis not configured"))
	}

	runCtx, cancel := context.WithTimeout(ctx, consumeTimeout)
	defer cancel()

	now := float64(time.Now().UnixNano()) / float64(time.Second)
	refillRate := float64(capacity) / period.Seconds()
	ttl := int(period.Seconds()) * 2
	if ttl < 1 {
		ttl = 1
	}

	res, err := l.script.Run(runCtx, l.client, []string{key},
		strconv.Itoa(capacity),
		strconv.FormatFloat(refillRate, 'f', -1, 64),
		strconv.FormatFloat(now, 'f', -1, 64),
		strconv.Itoa(ttl),
	).Slice()
	if err != nil {
		return l.fallback(key, capacity, period, err)
	}

	allowed, remaining, err := parseReply(res)
	if err != nil {
		return l.fallback(key, capacity, period, err)
	}
	if !allowed {
		log.Printf("ratelimit: bucket empty for key=%s remaining=%.3f", key, remaining)
		return remaining, ErrRateLimited
	}
	return remaining, nil
}

func (l *Limiter) fallback(key string, capacity int, period time.Duration, cause error) (float64, error) {
	if !l.relaxed {
		log.Printf("ratelimit: redis unreachable for key=%s: %v", key, cause)
		return 0, ErrUnavailable
	}
	log.Printf("ratelimit: redis unreachable for key=%s, using local bucket: %v", key, cause)
	allowed, remaining := l.local.consume(key, capacity, period, time.Now())
	if !allowed {
		return remaining, ErrRateLimited
	}
	return remaining, nil
}

func parseReply(res []interface{}) (bool, float64, error) {
	if len(res) != 2 {
		return false, 0, fmt.Errorf("unexpected script reply length %d", len(res))
	}
	allowed, ok := res[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected allowed type %T", res[0])
	}
	var remaining float64
	switch v := res[1].(type) {
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return false, 0, err
		}
		remaining = f
	case int64:
		remaining = float64(v)
	default:
		return false, 0, fmt.Errorf("unexpected remaining type %T", res[1])
	}
	return allowed == 1, remaining, nil
}
