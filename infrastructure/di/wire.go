//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"letters-backend/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers.
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideCloudWatchClient,
	ProvideSESClient,
	ProvideMetrics,
	ProvideRateLimiter,
	ProvideProfileRepository,
	ProvideCommentRepository,
	ProvideReactionRepository,
	ProvideConversationRepository,
	ProvideMessageRepository,
	ProvideLetterRepository,
	ProvideRateLimits,
	ProvideCommentService,
	ProvideChatService,
	ProvideLetterService,
	ProvideProfileService,
	ProvideEmailSender,
	ProvideActivityAggregator,
	ProvideNotificationDispatcher,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
