package dynamodb

import (
	"context"
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

// MessageRepository manages the per-conversation message log.
type MessageRepository struct {
	client    DynamoDBAPI
	tableName string
	logger    *zap.Logger
}

// NewMessageRepository creates a MessageRepository.
func NewMessageRepository(client DynamoDBAPI, tableName string, logger *zap.Logger) *MessageRepository {
	return &MessageRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Send appends a message and fans out its bookkeeping: the conversation's
// preview fields are refreshed and every other participant's unread counter is
// bumped with an atomic ADD. The bookkeeping updates are best-effort; a
// partial failure leaves a stale preview, never a lost message.
func (r *MessageRepository) Send(ctx context.Context, msg domain.Message, participants []string) error {
	item, err := marshalItem(msg, schema.MessageKey(msg.ConvID, msg.SentAt, msg.MessageID))
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return apperrors.NewDatabaseError("send message", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              keyAttrs(schema.ConversationKey(msg.ConvID)),
		UpdateExpression: aws.String("SET lastMessageAt = :at, lastMessagePreview = :preview"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":at":      &types.AttributeValueMemberS{Value: msg.SentAt},
			":preview": &types.AttributeValueMemberS{Value: preview(msg.MessageText)},
		},
	})
	if err != nil {
		r.logger.Warn("Failed to refresh conversation preview",
			zap.String("convID", msg.ConvID),
			zap.Error(err),
		)
	}

	for _, userID := range participants {
		if userID == msg.SenderID {
			continue
		}
		_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:        aws.String(r.tableName),
			Key:              keyAttrs(schema.MembershipKey(userID, msg.ConvID)),
			UpdateExpression: aws.String("ADD unreadCount :one"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":one": &types.AttributeValueMemberN{Value: "1"},
			},
		})
		if err != nil {
			r.logger.Warn("Failed to bump unread counter",
				zap.String("convID", msg.ConvID),
				zap.String("userID", userID),
				zap.Error(err),
			)
		}
	}

	r.logger.Info("Message sent",
		zap.String("convID", msg.ConvID),
		zap.String("messageID", msg.MessageID),
		zap.String("senderID", msg.SenderID),
	)
	return nil
}

// MessagePage is one page of a conversation's history, newest first.
type MessagePage struct {
	Messages   []domain.Message `json:"messages"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// List returns a conversation's messages newest first.
func (r *MessageRepository) List(ctx context.Context, convID string, limit int32, cursor string) (*MessagePage, error) {
	startKey, err := decodeCursor(cursor)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.KeyAnd(
			expression.Key("PK").Equal(expression.Value(schema.ConversationPartition(convID))),
			expression.Key("SK").BeginsWith(schema.MessageSortPrefix),
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
		ScanIndexForward:          aws.Bool(false),
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("list messages", err)
	}

	page := &MessagePage{
		Messages:   make([]domain.Message, 0, len(out.Items)),
		NextCursor: encodeCursor(out.LastEvaluatedKey),
	}
	for _, item := range out.Items {
		var msg domain.Message
		if err := attributevalue.UnmarshalMap(item, &msg); err != nil {
			r.logger.Warn("Failed to unmarshal message item", zap.Error(err))
			continue
		}
		page.Messages = append(page.Messages, msg)
	}
	return page, nil
}

const previewLimit = 120

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewLimit])
}
