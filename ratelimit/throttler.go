package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avennor/sluice/core"
)

// Returns 1 if allowed, 0 if not. The first touch initializes the record at
// the bottom of the ladder and allows the request; each later allowed
// request advances the index, so every consecutive failure demands a
// strictly longer wait. Rejections leave the record untouched.
var throttlerScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])

local timeoutSeconds = {1, 2, 4, 8, 16, 30, 60, 180, 300}

local fields = redis.call("HGETALL", key)
if #fields == 0 then
	redis.call("HSET", key, "index", 1, "updated_at", now)
	return {1}
end

local index = 0
local updatedAt = 0
for i = 1, #fields, 2 do
	if fields[i] == "index" then
		index = tonumber(fields[i+1])
	elseif fields[i] == "updated_at" then
		updatedAt = tonumber(fields[i+1])
	end
end

if now - updatedAt < timeoutSeconds[index] then
	return {0}
end

index = math.min(index + 1, #timeoutSeconds)
redis.call("HSET", key, "index", index, "updated_at", now)
return {1}
`)

// Throttler enforces an exponential backoff between consecutive requests
// for the same identifier: 1, 2, 4, 8, 16, 30, 60, 180 and finally 300
// seconds. There is no hard lockout; a single success resets the clock.
type Throttler struct {
	client redis.UniversalClient
	name   string

	now func() time.Time
}

var _ core.Throttle = (*Throttler)(nil)

// NewThrottler creates a throttler. name namespaces the Redis keys.
func NewThrottler(client redis.UniversalClient, name string) *Throttler {
	return &Throttler{
		client: client,
		name:   name,
		now:    time.Now,
	}
}

// Consume reports whether the identifier's current backoff window has
// elapsed. An allowed request advances the identifier one ladder step; a
// rejected one leaves it where it was.
func (t *Throttler) Consume(ctx context.Context, key string) (bool, error) {
	keys := []string{t.name + ":" + key}
	args := []interface{}{t.now().Unix()}

	allowed, err := throttlerScript.Run(ctx, t.client, keys, args...).Slice()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return scriptAllowed(allowed), nil
}

// Reset deletes the identifier's record, restoring it to the initial
// ungated state. Call it after a verified-successful authentication so one
// mistyped password does not penalize the user forever.
func (t *Throttler) Reset(ctx context.Context, key string) error {
	if err := t.client.Del(ctx, t.name+":"+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
