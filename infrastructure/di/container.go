package di

import (
	"net/http"

	"letters-backend/application/services"
	"letters-backend/application/streams"
	"letters-backend/infrastructure/config"
	ddb "letters-backend/infrastructure/persistence/dynamodb"
	"letters-backend/pkg/auth"
	"letters-backend/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies. The API entry points use the
// Router; the stream entry points use the consumers; everything else is here
// so the integration surface stays reachable from one place.
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics

	RateLimiter *auth.RateLimiter

	ProfileRepo      *ddb.ProfileRepository
	CommentRepo      *ddb.CommentRepository
	ReactionRepo     *ddb.ReactionRepository
	ConversationRepo *ddb.ConversationRepository
	MessageRepo      *ddb.MessageRepository
	LetterRepo       *ddb.LetterRepository

	CommentService *services.CommentService
	ChatService    *services.ChatService
	LetterService  *services.LetterService
	ProfileService *services.ProfileService

	ActivityAggregator     *streams.ActivityAggregator
	NotificationDispatcher *streams.NotificationDispatcher

	Router http.Handler
}
