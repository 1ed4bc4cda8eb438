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

// ConversationRepository manages conversation metadata and the per-user
// membership rows that carry unread counters.
type ConversationRepository struct {
	client    DynamoDBAPI
	tableName string
	logger    *zap.Logger
}

// NewConversationRepository creates a ConversationRepository.
func NewConversationRepository(client DynamoDBAPI, tableName string, logger *zap.Logger) *ConversationRepository {
	return &ConversationRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Ensure creates the conversation metadata and a membership row per
// participant if they do not exist yet. Pair conversations have deterministic
// IDs, so two users starting "the same" conversation concurrently both land
// here; whoever loses the conditional write just reuses the existing rows.
func (r *ConversationRepository) Ensure(ctx context.Context, conv domain.Conversation) (*domain.Conversation, error) {
	item, err := marshalItem(conv, schema.ConversationKey(conv.ConvID))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conversation: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	created := err == nil
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if !errors.As(err, &condErr) {
			return nil, apperrors.NewDatabaseError("ensure conversation", err)
		}
	}

	for _, userID := range conv.Participants {
		membership := domain.Membership{
			UserID:   userID,
			ConvID:   conv.ConvID,
			JoinedAt: conv.CreatedAt,
		}
		memberItem, err := marshalItem(membership, schema.MembershipKey(userID, conv.ConvID))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal membership: %w", err)
		}
		_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(r.tableName),
			Item:                memberItem,
			ConditionExpression: aws.String("attribute_not_exists(SK)"),
		})
		if err != nil {
			var condErr *types.ConditionalCheckFailedException
			if !errors.As(err, &condErr) {
				return nil, apperrors.NewDatabaseError("ensure membership", err)
			}
		}
	}

	if created {
		r.logger.Info("Conversation created",
			zap.String("convID", conv.ConvID),
			zap.Int("participants", len(conv.Participants)),
		)
		return &conv, nil
	}
	return r.Get(ctx, conv.ConvID)
}

// Get retrieves conversation metadata.
func (r *ConversationRepository) Get(ctx context.Context, convID string) (*domain.Conversation, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       keyAttrs(schema.ConversationKey(convID)),
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("get conversation", err)
	}
	if out.Item == nil {
		return nil, apperrors.NewNotFoundError("conversation")
	}

	var conv domain.Conversation
	if err := attributevalue.UnmarshalMap(out.Item, &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	return &conv, nil
}

// GetMembership retrieves a user's membership row, the access check for every
// conversation operation.
func (r *ConversationRepository) GetMembership(ctx context.Context, userID, convID string) (*domain.Membership, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       keyAttrs(schema.MembershipKey(userID, convID)),
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("get membership", err)
	}
	if out.Item == nil {
		return nil, apperrors.NewForbiddenError("not a participant in this conversation")
	}

	var membership domain.Membership
	if err := attributevalue.UnmarshalMap(out.Item, &membership); err != nil {
		return nil, fmt.Errorf("failed to unmarshal membership: %w", err)
	}
	return &membership, nil
}

// ConversationView is a conversation joined with the caller's membership.
type ConversationView struct {
	domain.Conversation
	UnreadCount int    `json:"unreadCount"`
	LastReadAt  string `json:"lastReadAt,omitempty"`
}

// ListForUser returns every conversation the user belongs to, with their
// unread counters attached. Membership rows live in the user's own partition,
// so the listing is one query plus a metadata lookup per conversation.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID string) ([]ConversationView, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: schema.UserPartition(userID)},
			":prefix": &types.AttributeValueMemberS{Value: schema.ConversationPartition("")},
		},
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("list conversations", err)
	}

	views := make([]ConversationView, 0, len(out.Items))
	for _, item := range out.Items {
		var membership domain.Membership
		if err := attributevalue.UnmarshalMap(item, &membership); err != nil {
			r.logger.Warn("Failed to unmarshal membership item", zap.Error(err))
			continue
		}
		conv, err := r.Get(ctx, membership.ConvID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				r.logger.Warn("Membership points at missing conversation",
					zap.String("convID", membership.ConvID),
					zap.String("userID", userID),
				)
				continue
			}
			return nil, err
		}
		views = append(views, ConversationView{
			Conversation: *conv,
			UnreadCount:  membership.UnreadCount,
			LastReadAt:   membership.LastReadAt,
		})
	}
	return views, nil
}

// MarkRead zeroes the caller's unread counter and records the read pointer.
func (r *ConversationRepository) MarkRead(ctx context.Context, userID, convID, readAt string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 keyAttrs(schema.MembershipKey(userID, convID)),
		UpdateExpression:    aws.String("SET unreadCount = :zero, lastReadAt = :now"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":now":  &types.AttributeValueMemberS{Value: readAt},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return apperrors.NewForbiddenError("not a participant in this conversation")
		}
		return apperrors.NewDatabaseError("mark conversation read", err)
	}
	return nil
}
