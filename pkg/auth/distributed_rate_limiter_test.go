package auth

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCounterStore emulates the two conditional updates the limiter issues
// against a single counter row.
type fakeCounterStore struct {
	rows map[string]*counterRow

	failWith error // when set, every call fails with this error
}

type counterRow struct {
	count     int
	windowEnd int64
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{rows: make(map[string]*counterRow)}
}

func numArg(in *dynamodb.UpdateItemInput, name string) int64 {
	v, ok := in.ExpressionAttributeValues[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(v.Value, 10, 64)
	return n
}

func (f *fakeCounterStore) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}

	pk := in.Key["PK"].(*types.AttributeValueMemberS).Value
	sk := in.Key["SK"].(*types.AttributeValueMemberS).Value
	id := pk + "|" + sk
	row := f.rows[id]
	now := numArg(in, ":now")

	if strings.HasPrefix(*in.UpdateExpression, "ADD") {
		limit := numArg(in, ":limit")
		if row == nil || row.windowEnd <= now || int64(row.count) >= limit {
			return nil, &types.ConditionalCheckFailedException{}
		}
		row.count++
		return &dynamodb.UpdateItemOutput{}, nil
	}

	// Window reset path.
	if row != nil && row.windowEnd > now {
		return nil, &types.ConditionalCheckFailedException{}
	}
	f.rows[id] = &counterRow{count: 1, windowEnd: numArg(in, ":windowEnd")}
	return &dynamodb.UpdateItemOutput{}, nil
}

func TestCheckAndIncrementMonotonicRejection(t *testing.T) {
	store := newFakeCounterStore()
	limiter := NewRateLimiter(store, "letters-test")
	ctx := context.Background()

	const limit = 3
	for i := 0; i < limit; i++ {
		allowed, err := limiter.CheckAndIncrement(ctx, "user-1", "comment", limit, time.Hour)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d should be under the limit", i+1)
	}

	allowed, err := limiter.CheckAndIncrement(ctx, "user-1", "comment", limit, time.Hour)
	require.NoError(t, err)
	assert.False(t, allowed, "call past the limit must be rejected")
}

func TestCheckAndIncrementWindowReset(t *testing.T) {
	store := newFakeCounterStore()
	limiter := NewRateLimiter(store, "letters-test")
	ctx := context.Background()

	// A one-nanosecond window is already elapsed by the next call, so the
	// limiter must start a fresh window with count 1 instead of rejecting.
	allowed, err := limiter.CheckAndIncrement(ctx, "user-1", "comment", 1, time.Nanosecond)
	require.NoError(t, err)
	assert.True(t, allowed)

	time.Sleep(time.Millisecond)

	allowed, err = limiter.CheckAndIncrement(ctx, "user-1", "comment", 1, time.Nanosecond)
	require.NoError(t, err)
	assert.True(t, allowed, "a fresh window starts after the previous one elapses")
}

func TestCheckAndIncrementIsolatesActions(t *testing.T) {
	store := newFakeCounterStore()
	limiter := NewRateLimiter(store, "letters-test")
	ctx := context.Background()

	allowed, err := limiter.CheckAndIncrement(ctx, "user-1", "comment", 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.CheckAndIncrement(ctx, "user-1", "comment", 1, time.Hour)
	require.NoError(t, err)
	assert.False(t, allowed)

	// A different action has its own counter row.
	allowed, err = limiter.CheckAndIncrement(ctx, "user-1", "message", 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCheckAndIncrementFailsOpen(t *testing.T) {
	store := newFakeCounterStore()
	store.failWith = assert.AnError
	limiter := NewRateLimiter(store, "letters-test")

	allowed, err := limiter.CheckAndIncrement(context.Background(), "user-1", "comment", 1, time.Hour)
	assert.True(t, allowed, "infrastructure errors must not block requests")
	assert.Error(t, err, "the failure is still reported for logging")
}

func TestCheckAndIncrementWithoutClient(t *testing.T) {
	limiter := NewRateLimiter(nil, "letters-test")

	allowed, err := limiter.CheckAndIncrement(context.Background(), "user-1", "comment", 1, time.Hour)
	assert.True(t, allowed)
	assert.NoError(t, err)
}
