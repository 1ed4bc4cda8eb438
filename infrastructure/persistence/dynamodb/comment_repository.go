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
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// CommentRepository manages comment rows within content-item partitions.
type CommentRepository struct {
	client    DynamoDBAPI
	tableName string
	logger    *zap.Logger
}

// NewCommentRepository creates a CommentRepository.
func NewCommentRepository(client DynamoDBAPI, tableName string, logger *zap.Logger) *CommentRepository {
	return &CommentRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Create persists a new comment. The sort key leads with the creation
// timestamp so the ID alone cannot collide with an existing row; the
// conditional write still guards against a replayed request.
func (r *CommentRepository) Create(ctx context.Context, comment domain.Comment) error {
	key := schema.CommentKey(comment.ItemID, comment.CreatedAt, comment.CommentID)
	item, err := marshalIndexedItem(comment, key, schema.CommentGSI(comment.UserID, comment.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to marshal comment: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return apperrors.NewConflictError("comment already exists")
		}
		return apperrors.NewDatabaseError("create comment", err)
	}

	r.logger.Info("Comment created",
		zap.String("itemID", comment.ItemID),
		zap.String("commentID", comment.CommentID),
		zap.String("userID", comment.UserID),
	)
	return nil
}

// CommentPage is one page of an item's comment thread.
type CommentPage struct {
	Comments   []domain.Comment `json:"comments"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// ListByItem returns an item's comments oldest first. Reaction rows share the
// partition but sort after every timestamp-led key, so the key condition
// SK < "REACTION#" selects comments only. Soft-deleted rows are kept in the
// result with their text already blanked, so threads keep their shape.
func (r *CommentRepository) ListByItem(ctx context.Context, itemID string, limit int32, cursor string) (*CommentPage, error) {
	startKey, err := decodeCursor(cursor)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.KeyAnd(
			expression.Key("PK").Equal(expression.Value(schema.CommentPartition(itemID))),
			expression.Key("SK").LessThan(expression.Value(schema.ReactionSortPrefix)),
		)).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(limit),
		ExclusiveStartKey:         startKey,
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("list comments", err)
	}

	page := &CommentPage{
		Comments:   make([]domain.Comment, 0, len(out.Items)),
		NextCursor: encodeCursor(out.LastEvaluatedKey),
	}
	for _, item := range out.Items {
		var c domain.Comment
		if err := attributevalue.UnmarshalMap(item, &c); err != nil {
			r.logger.Warn("Failed to unmarshal comment item", zap.Error(err))
			continue
		}
		page.Comments = append(page.Comments, c)
	}
	return page, nil
}

// GetByID finds a comment within an item's partition by its ID. The sort key
// embeds the creation timestamp, so point addressing by ID alone is not
// possible; the partition is scanned with a filter instead. Item partitions
// are small, so this stays a single query in practice.
func (r *CommentRepository) GetByID(ctx context.Context, itemID, commentID string) (*domain.Comment, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.KeyAnd(
			expression.Key("PK").Equal(expression.Value(schema.CommentPartition(itemID))),
			expression.Key("SK").LessThan(expression.Value(schema.ReactionSortPrefix)),
		)).
		WithFilter(expression.Name("commentId").Equal(expression.Value(commentID))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("get comment", err)
	}
	if len(out.Items) == 0 {
		return nil, apperrors.NewNotFoundError("comment")
	}

	var comment domain.Comment
	if err := attributevalue.UnmarshalMap(out.Items[0], &comment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal comment: %w", err)
	}
	return &comment, nil
}

// SoftDelete blanks a comment's text and marks it deleted. The row persists
// so reaction rows keyed off it never dangle. Only the author or an admin may
// delete; the ownership check rides on the conditional write, so a stale read
// cannot let a non-author through.
func (r *CommentRepository) SoftDelete(ctx context.Context, itemID, commentID, requesterID string, isAdmin bool, deletedAt string) error {
	comment, err := r.GetByID(ctx, itemID, commentID)
	if err != nil {
		return err
	}
	if comment.Deleted {
		return nil
	}

	update := expression.
		Set(expression.Name("deleted"), expression.Value(true)).
		Set(expression.Name("deletedAt"), expression.Value(deletedAt)).
		Set(expression.Name("commentText"), expression.Value(""))

	cond := expression.AttributeExists(expression.Name("PK"))
	if !isAdmin {
		cond = cond.And(expression.Name("userId").Equal(expression.Value(requesterID)))
	}

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build delete expression: %w", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       keyAttrs(schema.CommentKey(itemID, comment.CreatedAt, commentID)),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return apperrors.NewForbiddenError("only the author or an admin can delete a comment")
		}
		return apperrors.NewDatabaseError("delete comment", err)
	}

	r.logger.Info("Comment deleted",
		zap.String("itemID", itemID),
		zap.String("commentID", commentID),
		zap.String("requesterID", requesterID),
		zap.Bool("admin", isAdmin),
	)
	return nil
}
