package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"letters-backend/domain"
	"letters-backend/infrastructure/persistence/schema"
	apperrors "letters-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// ProfileRepository manages user profile rows, including the activity
// counters maintained by the stream aggregator and the notification debounce
// guard used by the dispatcher.
type ProfileRepository struct {
	client    DynamoDBAPI
	tableName string
	logger    *zap.Logger
}

// NewProfileRepository creates a ProfileRepository.
func NewProfileRepository(client DynamoDBAPI, tableName string, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Ensure creates the profile row if it does not exist yet. Called on the
// first authenticated request; losing the conditional race to a concurrent
// request is fine, the row is there either way.
func (r *ProfileRepository) Ensure(ctx context.Context, profile domain.Profile) error {
	item, err := marshalIndexedItem(profile, schema.ProfileKey(profile.UserID), schema.ProfileGSI(profile.UserID))
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil
		}
		return apperrors.NewDatabaseError("ensure profile", err)
	}

	r.logger.Info("Profile created",
		zap.String("userID", profile.UserID),
	)
	return nil
}

// Get retrieves a profile by user ID.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       keyAttrs(schema.ProfileKey(userID)),
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("get profile", err)
	}
	if out.Item == nil {
		return nil, apperrors.NewNotFoundError("profile")
	}

	var profile domain.Profile
	if err := attributevalue.UnmarshalMap(out.Item, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &profile, nil
}

// ProfileUpdate is the set of caller-editable profile fields.
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	AvatarURL   *string
	EmailOptOut *bool
}

// Update applies the non-nil fields of a ProfileUpdate.
func (r *ProfileRepository) Update(ctx context.Context, userID string, upd ProfileUpdate) (*domain.Profile, error) {
	set := expression.Set(expression.Name("updatedAt"), expression.Value(time.Now().UTC().Format(time.RFC3339)))
	if upd.DisplayName != nil {
		set = set.Set(expression.Name("displayName"), expression.Value(*upd.DisplayName))
	}
	if upd.Bio != nil {
		set = set.Set(expression.Name("bio"), expression.Value(*upd.Bio))
	}
	if upd.AvatarURL != nil {
		set = set.Set(expression.Name("avatarUrl"), expression.Value(*upd.AvatarURL))
	}
	if upd.EmailOptOut != nil {
		set = set.Set(expression.Name("emailOptOut"), expression.Value(*upd.EmailOptOut))
	}

	expr, err := expression.NewBuilder().
		WithUpdate(set).
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build update expression: %w", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       keyAttrs(schema.ProfileKey(userID)),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, apperrors.NewNotFoundError("profile")
		}
		return nil, apperrors.NewDatabaseError("update profile", err)
	}

	var profile domain.Profile
	if err := attributevalue.UnmarshalMap(out.Attributes, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &profile, nil
}

// List returns every family member, via the GSI1 USERS partition.
func (r *ProfileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(GSI1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: schema.GSI1AllUsers},
		},
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("list profiles", err)
	}

	profiles := make([]domain.Profile, 0, len(out.Items))
	for _, item := range out.Items {
		var p domain.Profile
		if err := attributevalue.UnmarshalMap(item, &p); err != nil {
			r.logger.Warn("Failed to unmarshal profile item", zap.Error(err))
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// RecordActivity bumps a user's activity counters in a single atomic update:
// lastActive always, commentCount only for comment activity. Used by the
// stream aggregator; a conditional atomic add, never read-modify-write, so
// concurrent events in one batch cannot lose increments.
func (r *ProfileRepository) RecordActivity(ctx context.Context, userID string, isComment bool, activeAt string) error {
	updateExpr := "SET lastActive = :now"
	values := map[string]types.AttributeValue{
		":now": &types.AttributeValueMemberS{Value: activeAt},
	}
	if isComment {
		updateExpr = "SET lastActive = :now ADD commentCount :one"
		values[":one"] = &types.AttributeValueMemberN{Value: "1"}
	}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       keyAttrs(schema.ProfileKey(userID)),
		UpdateExpression:          aws.String(updateExpr),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return apperrors.NewDatabaseError("record activity", err)
	}
	return nil
}

// ClaimNotificationSlot atomically claims the right to email a recipient.
// Returns true when no notification went out inside the debounce window; the
// claim and the check are one conditional write, so concurrent dispatcher
// invocations cannot both claim the same window.
func (r *ProfileRepository) ClaimNotificationSlot(ctx context.Context, userID string, now time.Time, window time.Duration) (bool, error) {
	cutoff := now.Add(-window).UTC().Format(time.RFC3339)

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 keyAttrs(schema.ProfileKey(userID)),
		UpdateExpression:    aws.String("SET lastNotifiedAt = :now"),
		ConditionExpression: aws.String("attribute_exists(PK) AND (attribute_not_exists(lastNotifiedAt) OR lastNotifiedAt < :cutoff)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now":    &types.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339)},
			":cutoff": &types.AttributeValueMemberS{Value: cutoff},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return false, apperrors.NewDatabaseError("claim notification slot", err)
	}
	return true, nil
}
