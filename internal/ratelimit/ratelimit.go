package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenBucket is a Redis-backed token bucket limiter. Buckets are keyed by
// caller identity and action so one hammering client cannot starve others.
type TokenBucket struct {
	redis    *redis.Client
	capacity int64
	refill   int64
	window   time.Duration
}

// NewTokenBucket creates a limiter holding at most capacity tokens, refilled
// at refillRate tokens per minute.
func NewTokenBucket(redisClient *redis.Client, capacity, refillRate int64) *TokenBucket {
	return &TokenBucket{
		redis:    redisClient,
		capacity: capacity,
		refill:   refillRate,
		window:   time.Minute,
	}
}

func bucketKey(clientID, action string) string {
	return fmt.Sprintf("ratelimit:%s:%s", clientID, action)
}

// allowScript atomically refills the bucket proportionally to elapsed time and
// tries to consume one token.
const allowScript = `
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local window = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local elapsed = now - last_refill
	local refill = math.floor((elapsed / window) * refill_rate)
	if refill > 0 then
		tokens = math.min(capacity, tokens + refill)
		last_refill = now
	end

	local allowed = 0
	if tokens > 0 then
		tokens = tokens - 1
		allowed = 1
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_refill', last_refill)
	redis.call('EXPIRE', key, window * 2)
	return allowed
`

// remainingScript computes the current token count without consuming.
const remainingScript = `
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local window = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local elapsed = now - last_refill
	local refill = math.floor((elapsed / window) * refill_rate)
	if refill > 0 then
		tokens = math.min(capacity, tokens + refill)
	end

	return tokens
`

// Allow reports whether the client may perform the action, consuming one
// token when it may.
func (tb *TokenBucket) Allow(ctx context.Context, clientID, action string) (bool, error) {
	result, err := tb.redis.Eval(ctx, allowScript, []string{bucketKey(clientID, action)},
		tb.capacity, tb.refill, int64(tb.window.Seconds()), time.Now().Unix()).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	allowed, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected result type from rate limit script")
	}

	return allowed == 1, nil
}

// GetRemaining returns the number of tokens currently left for the client.
func (tb *TokenBucket) GetRemaining(ctx context.Context, clientID, action string) (int64, error) {
	result, err := tb.redis.Eval(ctx, remainingScript, []string{bucketKey(clientID, action)},
		tb.capacity, tb.refill, int64(tb.window.Seconds()), time.Now().Unix()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get remaining tokens: %w", err)
	}

	remaining, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected result type from remaining tokens script")
	}

	return remaining, nil
}

// Reset clears the bucket for a client action.
func (tb *TokenBucket) Reset(ctx context.Context, clientID, action string) error {
	return tb.redis.Del(ctx, bucketKey(clientID, action)).Err()
}
