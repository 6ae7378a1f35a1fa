package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestBucket wires a bucket to an in-process Redis and pins its clock.
// Tests move time by reassigning *clock.
func newTestBucket(t *testing.T, max int, refillInterval time.Duration) (*TokenBucket, *time.Time) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := time.Unix(1_700_000_000, 0)
	bucket := NewTokenBucket(client, "auth", max, refillInterval)
	bucket.now = func() time.Time { return clock }

	return bucket, &clock
}

func TestTokenBucket_ConsumeUntilEmpty(t *testing.T) {
	ctx := context.Background()
	bucket, _ := newTestBucket(t, 3, 10*time.Second)

	for i := 0; i < 3; i++ {
		allowed, err := bucket.Consume(ctx, "1.2.3.4", 1)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should fit the budget", i+1)
	}

	allowed, err := bucket.Consume(ctx, "1.2.3.4", 1)
	require.NoError(t, err)
	assert.False(t, allowed, "empty bucket should reject")
}

func TestTokenBucket_RefillsOverTime(t *testing.T) {
	ctx := context.Background()
	bucket, clock := newTestBucket(t, 2, 10*time.Second)

	for i := 0; i < 2; i++ {
		allowed, err := bucket.Consume(ctx, "key", 1)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	*clock = clock.Add(9 * time.Second)
	allowed, err := bucket.Consume(ctx, "key", 1)
	require.NoError(t, err)
	assert.False(t, allowed, "no token before a full interval elapsed")

	*clock = clock.Add(time.Second)
	allowed, err = bucket.Consume(ctx, "key", 1)
	require.NoError(t, err)
	assert.True(t, allowed, "one token after one interval")

	allowed, err = bucket.Consume(ctx, "key", 1)
	require.NoError(t, err)
	assert.False(t, allowed, "only one token refilled")
}

func TestTokenBucket_RefillDoesNotLoseFractionalProgress(t *testing.T) {
	ctx := context.Background()
	bucket, clock := newTestBucket(t, 3, 10*time.Second)

	for i := 0; i < 3; i++ {
		_, err := bucket.Consume(ctx, "key", 1)
		require.NoError(t, err)
	}

	// 15s buys one whole token; the trailing 5s must keep counting toward
	// the next one instead of resetting with the grant.
	*clock = clock.Add(15 * time.Second)
	allowed, err := bucket.Consume(ctx, "key", 1)
	require.NoError(t, err)
	require.True(t, allowed)

	*clock = clock.Add(4 * time.Second)
	allowed, err = bucket.Consume(ctx, "key", 1)
	require.NoError(t, err)
	assert.False(t, allowed, "19s total is still short of two intervals")

	*clock = clock.Add(time.Second)
	allowed, err = bucket.Consume(ctx, "key", 1)
	require.NoError(t, err)
	assert.True(t, allowed, "20s total is exactly two intervals")
}

func TestTokenBucket_RejectionLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	bucket, clock := newTestBucket(t, 1, 10*time.Second)

	allowed, err := bucket.Consume(ctx, "key", 1)
	require.NoError(t, err)
	require.True(t, allowed)

	// A mid-interval rejection must not restart the refill timer.
	*clock = clock.Add(5 * time.Second)
	allowed, err = bucket.Consume(ctx, "key", 1)
	require.NoError(t, err)
	require.False(t, allowed)

	*clock = clock.Add(5 * time.Second)
	allowed, err = bucket.Consume(ctx, "key", 1)
	require.NoError(t, err)
	assert.True(t, allowed, "refill counts from the last grant, not the last attempt")
}

func TestTokenBucket_CostAboveBalance(t *testing.T) {
	ctx := context.Background()
	bucket, _ := newTestBucket(t, 3, 10*time.Second)

	allowed, err := bucket.Consume(ctx, "key", 2)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = bucket.Consume(ctx, "key", 2)
	require.NoError(t, err)
	assert.False(t, allowed, "one token left cannot cover cost 2")

	allowed, err = bucket.Consume(ctx, "key", 1)
	require.NoError(t, err)
	assert.True(t, allowed, "the single remaining token is still spendable")
}

func TestTokenBucket_CostAboveCapacity(t *testing.T) {
	ctx := context.Background()
	bucket, _ := newTestBucket(t, 3, 10*time.Second)

	// A cost no full bucket could ever cover is rejected on first contact.
	allowed, err := bucket.Consume(ctx, "key", 5)
	require.NoError(t, err)
	assert.False(t, allowed, "cost above capacity must be rejected")

	// The rejection wrote nothing: the full budget is still there.
	for i := 0; i < 3; i++ {
		allowed, err = bucket.Consume(ctx, "key", 1)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should still fit a full bucket", i+1)
	}

	allowed, err = bucket.Consume(ctx, "key", 1)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestTokenBucket_BurstThenPartialRefill(t *testing.T) {
	ctx := context.Background()
	bucket, clock := newTestBucket(t, 10, time.Second)

	// A full burst drains the bucket; the next request is rejected.
	for i := 0; i < 10; i++ {
		allowed, err := bucket.Consume(ctx, "key", 1)
		require.NoError(t, err)
		require.True(t, allowed, "burst request %d", i+1)
	}
	allowed, err := bucket.Consume(ctx, "key", 1)
	require.NoError(t, err)
	require.False(t, allowed)

	// 5s restores exactly 5 tokens: a cost-5 request fits, nothing after.
	*clock = clock.Add(5 * time.Second)
	allowed, err = bucket.Consume(ctx, "key", 5)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = bucket.Consume(ctx, "key", 1)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestTokenBucket_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	bucket, _ := newTestBucket(t, 1, 10*time.Second)

	allowed, err := bucket.Consume(ctx, "1.2.3.4", 1)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = bucket.Consume(ctx, "1.2.3.4", 1)
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = bucket.Consume(ctx, "5.6.7.8", 1)
	require.NoError(t, err)
	assert.True(t, allowed, "another identifier has its own bucket")
}

func TestTokenBucket_NamespacesDoNotCollide(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	login := NewTokenBucket(client, "auth", 1, 10*time.Second)
	resend := NewTokenBucket(client, "resend_verification_email", 1, 30*time.Second)

	allowed, err := login.Consume(ctx, "user-1", 1)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = resend.Consume(ctx, "user-1", 1)
	require.NoError(t, err)
	assert.True(t, allowed, "same identifier, different limiter name")
}

func TestTokenBucket_SubSecondIntervalRoundsUp(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	bucket := NewTokenBucket(client, "auth", 10, 100*time.Millisecond)
	assert.Equal(t, time.Second, bucket.refillInterval)
}

func TestTokenBucket_StoreUnavailable(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	bucket := NewTokenBucket(client, "auth", 1, time.Second)
	mr.Close()

	allowed, err := bucket.Consume(ctx, "key", 1)
	assert.False(t, allowed)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
