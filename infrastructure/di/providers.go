// Package di wires the application graph with google/wire.
package di

import (
	"context"
	"net/http"

	"letters-backend/application/services"
	"letters-backend/application/streams"
	"letters-backend/infrastructure/config"
	"letters-backend/infrastructure/email"
	ddb "letters-backend/infrastructure/persistence/dynamodb"
	"letters-backend/interfaces/http/rest"
	"letters-backend/pkg/auth"
	"letters-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awssesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"go.uber.org/zap"
)

// ProvideLogger creates the process logger.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = level
	}
	return zapCfg.Build()
}

// ProvideAWSConfig loads the AWS SDK configuration, instrumented for tracing
// when enabled.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return aws.Config{}, err
	}
	if cfg.EnableTracing {
		observability.InstrumentAWSClients(&awsCfg)
	}
	return awsCfg, nil
}

// ProvideDynamoDBClient creates the DynamoDB client.
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates the CloudWatch client.
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideSESClient creates the SES client.
func ProvideSESClient(awsCfg aws.Config) *awssesv2.Client {
	return awssesv2.NewFromConfig(awsCfg)
}

// ProvideMetrics creates the metrics publisher, or a disabled one when
// metrics are off.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewMetrics(client, cfg.MetricsNamespace, logger)
}

// ProvideRateLimiter creates the table-backed request rate limiter.
func ProvideRateLimiter(client *awsdynamodb.Client, cfg *config.Config) *auth.RateLimiter {
	return auth.NewRateLimiter(client, cfg.DynamoDBTable)
}

// ProvideProfileRepository creates the profile repository.
func ProvideProfileRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *ddb.ProfileRepository {
	return ddb.NewProfileRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideCommentRepository creates the comment repository.
func ProvideCommentRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *ddb.CommentRepository {
	return ddb.NewCommentRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideReactionRepository creates the reaction repository.
func ProvideReactionRepository(client *awsdynamodb.Client, comments *ddb.CommentRepository, cfg *config.Config, logger *zap.Logger) *ddb.ReactionRepository {
	return ddb.NewReactionRepository(client, comments, cfg.DynamoDBTable, logger)
}

// ProvideConversationRepository creates the conversation repository.
func ProvideConversationRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *ddb.ConversationRepository {
	return ddb.NewConversationRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideMessageRepository creates the message repository.
func ProvideMessageRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *ddb.MessageRepository {
	return ddb.NewMessageRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideLetterRepository creates the letter repository.
func ProvideLetterRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *ddb.LetterRepository {
	return ddb.NewLetterRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideRateLimits maps configuration onto the service-level limits.
func ProvideRateLimits(cfg *config.Config) services.RateLimits {
	return services.RateLimits{
		CommentLimit:   cfg.CommentRateLimit,
		ReactionLimit:  cfg.ReactionRateLimit,
		MessageLimit:   cfg.MessageRateLimit,
		WindowDuration: cfg.RateWindowSeconds,
	}
}

// ProvideCommentService creates the comment service.
func ProvideCommentService(
	comments *ddb.CommentRepository,
	reactions *ddb.ReactionRepository,
	letters *ddb.LetterRepository,
	limiter *auth.RateLimiter,
	limits services.RateLimits,
	logger *zap.Logger,
) *services.CommentService {
	return services.NewCommentService(comments, reactions, letters, limiter, limits, logger)
}

// ProvideChatService creates the chat service.
func ProvideChatService(
	conversations *ddb.ConversationRepository,
	messages *ddb.MessageRepository,
	limiter *auth.RateLimiter,
	limits services.RateLimits,
	logger *zap.Logger,
) *services.ChatService {
	return services.NewChatService(conversations, messages, limiter, limits, logger)
}

// ProvideLetterService creates the letter service.
func ProvideLetterService(letters *ddb.LetterRepository, logger *zap.Logger) *services.LetterService {
	return services.NewLetterService(letters, logger)
}

// ProvideProfileService creates the profile service.
func ProvideProfileService(profiles *ddb.ProfileRepository, logger *zap.Logger) *services.ProfileService {
	return services.NewProfileService(profiles, logger)
}

// ProvideEmailSender picks the SES sender in production and a logging noop
// everywhere else, so development runs never email the family.
func ProvideEmailSender(client *awssesv2.Client, cfg *config.Config, logger *zap.Logger) streams.EmailSender {
	if cfg.IsProduction() {
		return email.NewSESSender(client, cfg.SESFromEmail, logger)
	}
	return email.NewNoopSender(logger)
}

// ProvideActivityAggregator creates the activity stream consumer.
func ProvideActivityAggregator(profiles *ddb.ProfileRepository, metrics *observability.Metrics, logger *zap.Logger) *streams.ActivityAggregator {
	return streams.NewActivityAggregator(profiles, metrics, logger)
}

// ProvideNotificationDispatcher creates the notification stream consumer.
func ProvideNotificationDispatcher(
	profiles *ddb.ProfileRepository,
	comments *ddb.CommentRepository,
	conversations *ddb.ConversationRepository,
	sender streams.EmailSender,
	metrics *observability.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) *streams.NotificationDispatcher {
	return streams.NewNotificationDispatcher(profiles, comments, conversations, sender, metrics, logger, cfg.BaseURL)
}

// ProvideRouter creates the configured HTTP handler.
func ProvideRouter(
	comments *services.CommentService,
	chat *services.ChatService,
	letters *services.LetterService,
	profiles *services.ProfileService,
	cfg *config.Config,
	logger *zap.Logger,
) http.Handler {
	return rest.NewRouter(comments, chat, letters, profiles, cfg.AllowedOrigins, logger).Setup()
}
