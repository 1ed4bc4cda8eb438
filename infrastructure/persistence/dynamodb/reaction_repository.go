package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"letters-backend/domain"
	"letters-backend/infrastructure/persistence/schema"
	apperrors "letters-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// ReactionRepository implements the idempotent reaction toggle. The reaction
// row's existence is the per-user "has reacted" bit, and the comment's
// reactionCount is only ever moved with atomic ADDs, so repeated toggles
// alternate cleanly and concurrent users cannot lose updates.
type ReactionRepository struct {
	client    DynamoDBAPI
	comments  *CommentRepository
	tableName string
	logger    *zap.Logger
}

// NewReactionRepository creates a ReactionRepository.
func NewReactionRepository(client DynamoDBAPI, comments *CommentRepository, tableName string, logger *zap.Logger) *ReactionRepository {
	return &ReactionRepository{
		client:    client,
		comments:  comments,
		tableName: tableName,
		logger:    logger,
	}
}

// Toggle flips the caller's reaction on a comment. The branch is decided by a
// conditional create of the reaction row, not by reading it first: if the
// create wins the row did not exist and the count goes up, if the condition
// fails the row existed and it is deleted with the count going down.
func (r *ReactionRepository) Toggle(ctx context.Context, itemID, commentID, userID, reactionType, now string) (*domain.ToggleResult, error) {
	comment, err := r.comments.GetByID(ctx, itemID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.Deleted {
		return nil, apperrors.NewConflictError("cannot react to a deleted comment")
	}

	reaction := domain.Reaction{
		ItemID:           itemID,
		CommentID:        commentID,
		UserID:           userID,
		ReactionType:     reactionType,
		CommentUserID:    comment.UserID,
		CommentCreatedAt: comment.CreatedAt,
		CreatedAt:        now,
	}
	key := schema.ReactionKey(itemID, commentID, userID)
	item, err := marshalIndexedItem(reaction, key, schema.ReactionGSI(userID, now))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reaction: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(SK)"),
	})
	if err == nil {
		count, err := r.adjustCount(ctx, itemID, comment.CreatedAt, commentID, 1)
		if err != nil {
			return nil, err
		}
		r.logger.Info("Reaction added",
			zap.String("commentID", commentID),
			zap.String("userID", userID),
		)
		return &domain.ToggleResult{Action: domain.ToggleAdded, NewCount: count}, nil
	}

	var condErr *types.ConditionalCheckFailedException
	if !errors.As(err, &condErr) {
		return nil, apperrors.NewDatabaseError("toggle reaction", err)
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       keyAttrs(key),
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("toggle reaction", err)
	}
	count, err := r.adjustCount(ctx, itemID, comment.CreatedAt, commentID, -1)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Reaction removed",
		zap.String("commentID", commentID),
		zap.String("userID", userID),
	)
	return &domain.ToggleResult{Action: domain.ToggleRemoved, NewCount: count}, nil
}

// ListByComment returns every reaction on a comment.
func (r *ReactionRepository) ListByComment(ctx context.Context, itemID, commentID string) ([]domain.Reaction, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: schema.CommentPartition(itemID)},
			":prefix": &types.AttributeValueMemberS{Value: schema.ReactionSortPrefix + commentID + "#"},
		},
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("list reactions", err)
	}

	reactions := make([]domain.Reaction, 0, len(out.Items))
	for _, item := range out.Items {
		var reaction domain.Reaction
		if err := attributevalue.UnmarshalMap(item, &reaction); err != nil {
			r.logger.Warn("Failed to unmarshal reaction item", zap.Error(err))
			continue
		}
		reactions = append(reactions, reaction)
	}
	return reactions, nil
}

// adjustCount moves the comment's reactionCount by delta. A decrement is
// conditioned on the count still covering it, so a replayed removal can never
// drive the count negative.
func (r *ReactionRepository) adjustCount(ctx context.Context, itemID, createdAt, commentID string, delta int) (int, error) {
	input := &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              keyAttrs(schema.CommentKey(itemID, createdAt, commentID)),
		UpdateExpression: aws.String("ADD reactionCount :delta"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":delta": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", delta)},
		},
		ReturnValues: types.ReturnValueAllNew,
	}
	if delta < 0 {
		input.ConditionExpression = aws.String("reactionCount >= :floor")
		input.ExpressionAttributeValues[":floor"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", -delta)}
	}

	out, err := r.client.UpdateItem(ctx, input)
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return 0, nil
		}
		return 0, apperrors.NewDatabaseError("adjust reaction count", err)
	}

	var updated domain.Comment
	if err := attributevalue.UnmarshalMap(out.Attributes, &updated); err != nil {
		return 0, fmt.Errorf("failed to unmarshal updated comment: %w", err)
	}
	return updated.ReactionCount, nil
}
