package services

import (
	"context"
	"sort"
	"time"

	"letters-backend/domain"
	ddb "letters-backend/infrastructure/persistence/dynamodb"
	"letters-backend/pkg/auth"
	apperrors "letters-backend/pkg/errors"
	"letters-backend/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatService implements the direct-message use cases.
type ChatService struct {
	conversations *ddb.ConversationRepository
	messages      *ddb.MessageRepository
	limiter       *auth.RateLimiter
	limits        RateLimits
	logger        *zap.Logger
}

// NewChatService creates a ChatService.
func NewChatService(
	conversations *ddb.ConversationRepository,
	messages *ddb.MessageRepository,
	limiter *auth.RateLimiter,
	limits RateLimits,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		limiter:       limiter,
		limits:        limits,
		logger:        logger,
	}
}

// StartConversationRequest is the payload for opening a conversation.
type StartConversationRequest struct {
	Participants []string `json:"participants" validate:"required,min=1,max=20,dive,required"`
	Name         string   `json:"name" validate:"max=100"`
}

// Start opens (or reuses) a conversation between the caller and the given
// participants. Two-party conversations are deduplicated through their
// deterministic ID; groups always mint a fresh one.
func (s *ChatService) Start(ctx context.Context, user *auth.UserContext, req StartConversationRequest) (*domain.Conversation, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	participants := dedupe(append(req.Participants, user.UserID))
	if len(participants) < 2 {
		return nil, apperrors.NewValidationError("a conversation needs at least one other participant")
	}

	conv := domain.Conversation{
		ConvID:       domain.ConversationIDFor(participants),
		Participants: participants,
		IsGroup:      len(participants) > 2,
		Name:         req.Name,
		CreatedBy:    user.UserID,
		CreatedAt:    utils.NowRFC3339(),
	}
	return s.conversations.Ensure(ctx, conv)
}

// ListConversations returns the caller's conversations with unread counters.
func (s *ChatService) ListConversations(ctx context.Context, user *auth.UserContext) ([]ddb.ConversationView, error) {
	return s.conversations.ListForUser(ctx, user.UserID)
}

// SendMessageRequest is the payload for sending a message.
type SendMessageRequest struct {
	MessageText string `json:"messageText" validate:"required,max=4000"`
}

// Send appends a message to a conversation the caller belongs to.
func (s *ChatService) Send(ctx context.Context, user *auth.UserContext, convID string, req SendMessageRequest) (*domain.Message, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if _, err := s.conversations.GetMembership(ctx, user.UserID, convID); err != nil {
		return nil, err
	}

	allowed, err := s.limiter.CheckAndIncrement(ctx, user.UserID, "message", s.limits.MessageLimit, s.window())
	if err != nil {
		s.logger.Warn("Rate limit check degraded, allowing request",
			zap.String("userID", user.UserID),
			zap.Error(err),
		)
	}
	if !allowed {
		return nil, apperrors.NewRateLimitError("message", s.limits.MessageLimit)
	}

	conv, err := s.conversations.Get(ctx, convID)
	if err != nil {
		return nil, err
	}

	msg := domain.Message{
		ConvID:      convID,
		MessageID:   uuid.New().String(),
		SenderID:    user.UserID,
		SenderName:  user.Name,
		MessageText: req.MessageText,
		SentAt:      utils.NowRFC3339(),
	}
	if err := s.messages.Send(ctx, msg, conv.Participants); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns a page of a conversation's history, newest first. The
// membership row doubles as the access check.
func (s *ChatService) ListMessages(ctx context.Context, user *auth.UserContext, convID string, limit int32, cursor string) (*ddb.MessagePage, error) {
	if _, err := s.conversations.GetMembership(ctx, user.UserID, convID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.messages.List(ctx, convID, limit, cursor)
}

// MarkRead zeroes the caller's unread counter for a conversation.
func (s *ChatService) MarkRead(ctx context.Context, user *auth.UserContext, convID string) error {
	return s.conversations.MarkRead(ctx, user.UserID, convID, utils.NowRFC3339())
}

func (s *ChatService) window() time.Duration {
	return time.Duration(s.limits.WindowDuration) * time.Second
}

func dedupe(userIDs []string) []string {
	seen := make(map[string]bool, len(userIDs))
	out := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
