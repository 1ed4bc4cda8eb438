package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"letters-backend/infrastructure/persistence/schema"
	"letters-backend/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// UpdateItemAPI is the slice of the DynamoDB client the rate limiter needs.
type UpdateItemAPI interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// RateLimiter implements fixed-window rate limiting using the letters table
// as the shared state store, so limits hold across Lambda invocations. The
// counter row carries a TTL, so expired windows are cleaned up by the table
// itself. A burst straddling a window boundary can admit up to twice the
// limit; that approximation is accepted.
type RateLimiter struct {
	client    UpdateItemAPI
	tableName string
}

// NewRateLimiter creates a rate limiter backed by the given table.
func NewRateLimiter(client UpdateItemAPI, tableName string) *RateLimiter {
	return &RateLimiter{
		client:    client,
		tableName: tableName,
	}
}

// CheckAndIncrement atomically counts a request against the caller's window
// for the given action and reports whether it is allowed. The increment and
// the limit comparison happen inside conditional writes, never as a
// read-then-write pair, so concurrent requests cannot both sneak under the
// limit. Infrastructure failures fail open: the request is allowed and the
// error returned for logging, because availability beats strict quotas here.
func (r *RateLimiter) CheckAndIncrement(ctx context.Context, userID, action string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		// Not configured (local development without DynamoDB).
		return true, nil
	}

	now := time.Now().Unix()
	key := schema.RateLimitKey(userID, action)
	keyAttrs := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: key.PK},
		"SK": &types.AttributeValueMemberS{Value: key.SK},
	}

	// Fast path: the window is still open and the counter is under the limit.
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 keyAttrs,
		UpdateExpression:    aws.String("ADD #count :one"),
		ConditionExpression: aws.String("windowEnd > :now AND #count < :limit"),
		ExpressionAttributeNames: map[string]string{
			"#count": "count",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":   &types.AttributeValueMemberN{Value: "1"},
			":now":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now)},
			":limit": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", limit)},
		},
	})
	if err == nil {
		return true, nil
	}

	var condErr *types.ConditionalCheckFailedException
	if !errors.As(err, &condErr) {
		return true, fmt.Errorf("rate limiter increment failed (failing open): %w", err)
	}

	// The row is missing, its window has elapsed, or the counter is at the
	// limit. Try to start a fresh window; this only succeeds in the first two
	// cases, so a conditional failure here means the limit is truly hit.
	windowEnd := time.Now().Add(window).Unix()
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 keyAttrs,
		UpdateExpression:    aws.String("SET #count = :one, windowEnd = :windowEnd, #ttl = :ttl"),
		ConditionExpression: aws.String("attribute_not_exists(PK) OR windowEnd <= :now"),
		ExpressionAttributeNames: map[string]string{
			"#count": "count",
			"#ttl":   "ttl",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":       &types.AttributeValueMemberN{Value: "1"},
			":now":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now)},
			":windowEnd": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", windowEnd)},
			":ttl":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", utils.EpochTTL(window+time.Hour))},
		},
	})
	if err == nil {
		return true, nil
	}
	if errors.As(err, &condErr) {
		return false, nil
	}
	return true, fmt.Errorf("rate limiter reset failed (failing open): %w", err)
}
