// Package services holds the use-case layer between the HTTP handlers and the
// repositories: request validation, rate limiting and the glue that keeps
// denormalized fields consistent at write time.
package services

import (
	"context"
	"time"

	"letters-backend/domain"
	ddb "letters-backend/infrastructure/persistence/dynamodb"
	"letters-backend/pkg/auth"
	apperrors "letters-backend/pkg/errors"
	"letters-backend/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RateLimits carries the per-action posting limits.
type RateLimits struct {
	CommentLimit   int
	ReactionLimit  int
	MessageLimit   int
	WindowDuration int // seconds
}

// CommentService implements the comment and reaction use cases.
type CommentService struct {
	comments  *ddb.CommentRepository
	reactions *ddb.ReactionRepository
	letters   *ddb.LetterRepository
	limiter   *auth.RateLimiter
	limits    RateLimits
	logger    *zap.Logger
}

// NewCommentService creates a CommentService.
func NewCommentService(
	comments *ddb.CommentRepository,
	reactions *ddb.ReactionRepository,
	letters *ddb.LetterRepository,
	limiter *auth.RateLimiter,
	limits RateLimits,
	logger *zap.Logger,
) *CommentService {
	return &CommentService{
		comments:  comments,
		reactions: reactions,
		letters:   letters,
		limiter:   limiter,
		limits:    limits,
		logger:    logger,
	}
}

// CreateCommentRequest is the payload for posting a comment.
type CreateCommentRequest struct {
	ItemID      string `json:"itemId" validate:"required"`
	CommentText string `json:"commentText" validate:"required,max=4000"`
}

// Create posts a comment on an item. The caller's posting rate is checked
// first; a denied check is a client error, an unverifiable check lets the
// write through.
func (s *CommentService) Create(ctx context.Context, user *auth.UserContext, req CreateCommentRequest) (*domain.Comment, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	allowed, err := s.limiter.CheckAndIncrement(ctx, user.UserID, "comment", s.limits.CommentLimit, s.window())
	if err != nil {
		s.logger.Warn("Rate limit check degraded, allowing request",
			zap.String("userID", user.UserID),
			zap.Error(err),
		)
	}
	if !allowed {
		return nil, apperrors.NewRateLimitError("comment", s.limits.CommentLimit)
	}

	comment := domain.Comment{
		ItemID:      req.ItemID,
		CommentID:   uuid.New().String(),
		UserID:      user.UserID,
		UserName:    user.Name,
		ItemTitle:   s.itemTitle(ctx, req.ItemID),
		CommentText: req.CommentText,
		CreatedAt:   utils.NowRFC3339(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// List returns a page of an item's comments.
func (s *CommentService) List(ctx context.Context, itemID string, limit int32, cursor string) (*ddb.CommentPage, error) {
	if itemID == "" {
		return nil, apperrors.NewValidationError("itemId is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.comments.ListByItem(ctx, itemID, limit, cursor)
}

// Delete soft-deletes a comment on behalf of its author or an admin.
func (s *CommentService) Delete(ctx context.Context, user *auth.UserContext, itemID, commentID string) error {
	if itemID == "" || commentID == "" {
		return apperrors.NewValidationError("itemId and commentId are required")
	}
	return s.comments.SoftDelete(ctx, itemID, commentID, user.UserID, user.IsAdmin(), utils.NowRFC3339())
}

// ToggleReactionRequest is the payload for flipping a reaction.
type ToggleReactionRequest struct {
	ItemID       string `json:"itemId" validate:"required"`
	CommentID    string `json:"commentId" validate:"required"`
	ReactionType string `json:"reactionType" validate:"required,oneof=heart laugh wow sad"`
}

// ToggleReaction flips the caller's reaction on a comment.
func (s *CommentService) ToggleReaction(ctx context.Context, user *auth.UserContext, req ToggleReactionRequest) (*domain.ToggleResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	allowed, err := s.limiter.CheckAndIncrement(ctx, user.UserID, "reaction", s.limits.ReactionLimit, s.window())
	if err != nil {
		s.logger.Warn("Rate limit check degraded, allowing request",
			zap.String("userID", user.UserID),
			zap.Error(err),
		)
	}
	if !allowed {
		return nil, apperrors.NewRateLimitError("reaction", s.limits.ReactionLimit)
	}

	return s.reactions.Toggle(ctx, req.ItemID, req.CommentID, user.UserID, req.ReactionType, utils.NowRFC3339())
}

// itemTitle resolves the letter title for denormalization onto the comment
// row. Comments on items without a published letter just carry no title.
func (s *CommentService) itemTitle(ctx context.Context, itemID string) string {
	letter, err := s.letters.GetCurrent(ctx, itemID)
	if err != nil {
		return ""
	}
	return letter.Title
}

func (s *CommentService) window() time.Duration {
	return time.Duration(s.limits.WindowDuration) * time.Second
}
