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

// LetterRepository manages letters and their append-only version history.
// Publishing is copy-then-overwrite: the previous current record is snapshotted
// into a version row before the current record is replaced, so a crash between
// the two writes can at worst leave a duplicate snapshot, never lose one.
type LetterRepository struct {
	client    DynamoDBAPI
	tableName string
	logger    *zap.Logger
}

// NewLetterRepository creates a LetterRepository.
func NewLetterRepository(client DynamoDBAPI, tableName string, logger *zap.Logger) *LetterRepository {
	return &LetterRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Publish writes new content for a letter date. The first publish creates the
// current record; later publishes snapshot the existing content first.
func (r *LetterRepository) Publish(ctx context.Context, date, title, content, updatedBy, now string) (*domain.Letter, error) {
	current, err := r.GetCurrent(ctx, date)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}

	letter := domain.Letter{
		Date:      date,
		Title:     title,
		Content:   content,
		UpdatedBy: updatedBy,
		UpdatedAt: now,
		CreatedAt: now,
	}

	if current != nil {
		if err := r.snapshot(ctx, *current); err != nil {
			return nil, err
		}
		letter.CreatedAt = current.CreatedAt
		letter.VersionCount = current.VersionCount + 1
	}

	item, err := marshalIndexedItem(letter, schema.LetterCurrentKey(date), schema.LetterGSI(date))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal letter: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("publish letter", err)
	}

	r.logger.Info("Letter published",
		zap.String("date", date),
		zap.String("updatedBy", updatedBy),
		zap.Int("versionCount", letter.VersionCount),
	)
	return &letter, nil
}

// snapshot freezes the current record into its version row. The version key
// pairs the snapshotted record's UpdatedAt with its revision number, which
// keeps same-second revisions on distinct keys; a retried publish that
// already copied this exact revision just trips the condition and moves on.
func (r *LetterRepository) snapshot(ctx context.Context, current domain.Letter) error {
	version := domain.LetterVersion{
		Date:        current.Date,
		Revision:    current.VersionCount,
		VersionedAt: current.UpdatedAt,
		Title:       current.Title,
		Content:     current.Content,
		UpdatedBy:   current.UpdatedBy,
		UpdatedAt:   current.UpdatedAt,
	}
	item, err := marshalItem(version, schema.LetterVersionKey(current.Date, current.UpdatedAt, current.VersionCount))
	if err != nil {
		return fmt.Errorf("failed to marshal letter version: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(SK)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil
		}
		return apperrors.NewDatabaseError("snapshot letter version", err)
	}
	return nil
}

// GetCurrent retrieves the latest published content for a date.
func (r *LetterRepository) GetCurrent(ctx context.Context, date string) (*domain.Letter, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       keyAttrs(schema.LetterCurrentKey(date)),
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("get letter", err)
	}
	if out.Item == nil {
		return nil, apperrors.NewNotFoundError("letter")
	}

	var letter domain.Letter
	if err := attributevalue.UnmarshalMap(out.Item, &letter); err != nil {
		return nil, fmt.Errorf("failed to unmarshal letter: %w", err)
	}
	return &letter, nil
}

// ListVersions returns a letter's prior revisions, newest first.
func (r *LetterRepository) ListVersions(ctx context.Context, date string) ([]domain.LetterVersion, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.KeyAnd(
			expression.Key("PK").Equal(expression.Value(schema.LetterPartition(date))),
			expression.Key("SK").BeginsWith(schema.VersionSortPrefix),
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
		ScanIndexForward:          aws.Bool(false),
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("list letter versions", err)
	}

	versions := make([]domain.LetterVersion, 0, len(out.Items))
	for _, item := range out.Items {
		var v domain.LetterVersion
		if err := attributevalue.UnmarshalMap(item, &v); err != nil {
			r.logger.Warn("Failed to unmarshal letter version item", zap.Error(err))
			continue
		}
		versions = append(versions, v)
	}
	return versions, nil
}

// LetterPage is one page of the letter archive, newest date first.
type LetterPage struct {
	Letters    []domain.Letter `json:"letters"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

// List returns current letters across all dates via the GSI1 LETTERS
// partition, newest date first.
func (r *LetterRepository) List(ctx context.Context, limit int32, cursor string) (*LetterPage, error) {
	startKey, err := decodeCursor(cursor)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(GSI1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: schema.GSI1AllLetters},
		},
		Limit:             aws.Int32(limit),
		ExclusiveStartKey: startKey,
		ScanIndexForward:  aws.Bool(false),
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("list letters", err)
	}

	page := &LetterPage{
		Letters:    make([]domain.Letter, 0, len(out.Items)),
		NextCursor: encodeCursor(out.LastEvaluatedKey),
	}
	for _, item := range out.Items {
		var letter domain.Letter
		if err := attributevalue.UnmarshalMap(item, &letter); err != nil {
			r.logger.Warn("Failed to unmarshal letter item", zap.Error(err))
			continue
		}
		page.Letters = append(page.Letters, letter)
	}
	return page, nil
}
