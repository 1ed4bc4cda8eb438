// Package main implements the Lambda handler for activity aggregation.
// It consumes the table's DynamoDB stream and folds new comments,
// reactions, and messages into per-user activity counters.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"letters-backend/application/streams"
	"letters-backend/infrastructure/config"
	"letters-backend/infrastructure/di"
)

var aggregator *streams.ActivityAggregator

func init() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	container, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependency container: %v", err)
	}

	aggregator = container.ActivityAggregator

	log.Println("Activity aggregator initialized successfully")
}

func main() {
	lambda.Start(aggregator.HandleEvent)
}
