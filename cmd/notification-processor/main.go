// Package main implements the Lambda handler for notification dispatch.
// It consumes the table's DynamoDB stream and sends debounced email
// notifications for new comments, reactions, and messages.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"letters-backend/application/streams"
	"letters-backend/infrastructure/config"
	"letters-backend/infrastructure/di"
)

var dispatcher *streams.NotificationDispatcher

func init() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	container, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependency container: %v", err)
	}

	dispatcher = container.NotificationDispatcher

	log.Println("Notification processor initialized successfully")
}

func main() {
	lambda.Start(dispatcher.HandleEvent)
}
