// Package ratelimit implements two Redis-backed rate limiting primitives:
// a refilling token bucket and an exponential-backoff throttler.
//
// Both run their read-compute-write step as a single Lua script, so the
// limit cannot be bypassed by concurrent requests racing on the same key.
// Limiter instances hold only immutable configuration and are safe to share
// across requests; all mutable state lives in Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avennor/sluice/core"
)

// ErrStoreUnavailable wraps Redis transport failures. Callers get the error
// as-is; limiters never retry internally.
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// Returns 1 if allowed, 0 if not. Integer arithmetic only: refilled_at
// advances by whole consumed intervals rather than snapping to now, so
// fractional progress toward the next token is never lost across calls.
// A rejected request must not mutate the record.
var bucketScript = redis.NewScript(`
local key             = KEYS[1]
local max             = tonumber(ARGV[1])
local refillInterval  = tonumber(ARGV[2])
local cost            = tonumber(ARGV[3])
local now             = tonumber(ARGV[4])

local fields = redis.call("HGETALL", key)

if #fields == 0 then
	if cost > max then
		return {0}
	end
	redis.call("HSET", key, "count", max - cost, "refilled_at", now)
	redis.call("EXPIRE", key, cost * refillInterval)
	return {1}
end

local count = 0
local refilledAt = 0
for i = 1, #fields, 2 do
	if fields[i] == "count" then
		count = tonumber(fields[i+1])
	elseif fields[i] == "refilled_at" then
		refilledAt = tonumber(fields[i+1])
	end
end

local refill = math.floor((now - refilledAt) / refillInterval)
count = math.min(count + refill, max)
refilledAt = refilledAt + refill * refillInterval

if count < cost then
	return {0}
end

count = count - cost
redis.call("HSET", key, "count", count, "refilled_at", refilledAt)
redis.call("EXPIRE", key, (max - count) * refillInterval)
return {1}
`)

// TokenBucket is a refilling per-identifier quota. Each identifier gets a
// bucket of max tokens; one token is restored per refill interval, and a
// request is rejected once its cost exceeds the tokens left.
//
// Record TTLs are sized so a key disappears exactly when its bucket would
// be full again, bounding storage to active identifiers only.
type TokenBucket struct {
	client         redis.UniversalClient
	name           string
	max            int
	refillInterval time.Duration

	now func() time.Time
}

var _ core.Bucket = (*TokenBucket)(nil)

// NewTokenBucket creates a bucket limiter. name namespaces the Redis keys,
// max is the bucket capacity, and refillInterval is the time to restore one
// token (whole seconds; finer intervals are rounded up).
func NewTokenBucket(client redis.UniversalClient, name string, max int, refillInterval time.Duration) *TokenBucket {
	if refillInterval < time.Second {
		refillInterval = time.Second
	}
	return &TokenBucket{
		client:         client,
		name:           name,
		max:            max,
		refillInterval: refillInterval,
		now:            time.Now,
	}
}

// Consume attempts to take cost tokens for the identifier. It reports
// whether the request is allowed; a rejection leaves the bucket untouched.
func (b *TokenBucket) Consume(ctx context.Context, key string, cost int) (bool, error) {
	keys := []string{b.name + ":" + key}
	args := []interface{}{
		b.max,
		int64(b.refillInterval / time.Second),
		cost,
		b.now().Unix(),
	}

	allowed, err := bucketScript.Run(ctx, b.client, keys, args...).Slice()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return scriptAllowed(allowed), nil
}

// scriptAllowed decodes the {0|1} reply both limiter scripts return.
func scriptAllowed(reply []interface{}) bool {
	if len(reply) == 0 {
		return false
	}
	n, ok := reply[0].(int64)
	return ok && n == 1
}
