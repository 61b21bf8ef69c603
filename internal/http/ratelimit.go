package http

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateDecision is the outcome of one limiter check.
type RateDecision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter decides whether a client may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (RateDecision, error)
}

// tokenBucketScript refills whole intervals since the last refill, then takes
// one token if available. Returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
  tokens = math.min(capacity, tokens + intervals)
  last_refill = last_refill + intervals * interval_ms
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return {allowed, tokens, retry_after_ms}
`)

// RedisLimiter is a token bucket per key kept in Redis, so every server
// instance shares the same budget.
type RedisLimiter struct {
	client   redis.Scripter
	capacity int
	interval time.Duration
	prefix   string
	now      func() time.Time
}

// NewRedisLimiter allows capacity requests per key and refills one token per
// interval.
func NewRedisLimiter(client redis.Scripter, capacity int, interval time.Duration) *RedisLimiter {
	if capacity <= 0 {
		capacity = 10
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &RedisLimiter{
		client:   client,
		capacity: capacity,
		interval: interval,
		prefix:   "homevisit:ratelimit:",
		now:      time.Now,
	}
}

// Allow consumes a token for key.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (RateDecision, error) {
	ttl := time.Duration(l.capacity) * l.interval
	args := []any{
		l.now().UnixMilli(),
		l.capacity,
		l.interval.Milliseconds(),
		int64(ttl/time.Second) + 1,
	}

	vals, err := tokenBucketScript.Run(ctx, l.client, []string{l.prefix + key}, args...).Slice()
	if err != nil {
		return RateDecision{}, fmt.Errorf("ratelimit: %w", err)
	}
	if len(vals) != 3 {
		return RateDecision{}, fmt.Errorf("ratelimit: unexpected script result %v", vals)
	}

	return RateDecision{
		Allowed:    asInt64(vals[0]) == 1,
		Remaining:  asInt64(vals[1]),
		RetryAfter: time.Duration(asInt64(vals[2])) * time.Millisecond,
	}, nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
