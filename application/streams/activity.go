package streams

import (
	"context"
	"strconv"

	"letters-backend/domain"
	"letters-backend/infrastructure/persistence/schema"
	"letters-backend/pkg/observability"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// ActivityRecorder is the slice of the profile store the aggregator writes
// through.
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, userID string, isComment bool, activeAt string) error
}

// ActivityAggregator folds the change stream into per-user activity counters.
// Only inserts count: edits and deletes of existing rows are not new activity.
// Delivery is at least once, so a replayed insert bumps the counter again;
// the counters are engagement signals, not an audit log, and that is an
// accepted drift.
type ActivityAggregator struct {
	profiles ActivityRecorder
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewActivityAggregator creates an ActivityAggregator.
func NewActivityAggregator(profiles ActivityRecorder, metrics *observability.Metrics, logger *zap.Logger) *ActivityAggregator {
	return &ActivityAggregator{
		profiles: profiles,
		metrics:  metrics,
		logger:   logger,
	}
}

// HandleEvent processes one stream batch. A record that cannot be decoded or
// written is logged and counted, never allowed to poison the rest of the
// batch.
func (a *ActivityAggregator) HandleEvent(ctx context.Context, event events.DynamoDBEvent) error {
	return observability.TraceSegment(ctx, "activity-batch", func(ctx context.Context) error {
		observability.AddAnnotation(ctx, "records", strconv.Itoa(len(event.Records)))
		a.handleBatch(ctx, event)
		return nil
	})
}

func (a *ActivityAggregator) handleBatch(ctx context.Context, event events.DynamoDBEvent) {
	for _, raw := range event.Records {
		if raw.EventName != string(events.DynamoDBOperationTypeInsert) {
			a.metrics.Count(ctx, observability.MetricRecordsSkipped, 1, map[string]string{"consumer": "activity"})
			continue
		}

		record, err := DecodeRecord(raw)
		if err != nil {
			a.logger.Warn("Skipping undecodable stream record", zap.Error(err))
			a.metrics.Count(ctx, observability.MetricRecordsFailed, 1, map[string]string{"consumer": "activity"})
			continue
		}

		handled, err := a.processInsert(ctx, record)
		switch {
		case err != nil:
			a.logger.Error("Failed to record activity",
				zap.String("kind", string(record.Kind)),
				zap.Error(err),
			)
			a.metrics.Count(ctx, observability.MetricRecordsFailed, 1, map[string]string{"consumer": "activity"})
		case handled:
			a.metrics.Count(ctx, observability.MetricRecordsProcessed, 1, map[string]string{"consumer": "activity"})
		default:
			a.metrics.Count(ctx, observability.MetricRecordsSkipped, 1, map[string]string{"consumer": "activity"})
		}
	}
}

func (a *ActivityAggregator) processInsert(ctx context.Context, record *StreamRecord) (bool, error) {
	switch record.Kind {
	case schema.KindComment:
		var comment domain.Comment
		if err := record.UnmarshalNew(&comment); err != nil {
			return false, err
		}
		return true, a.profiles.RecordActivity(ctx, comment.UserID, true, comment.CreatedAt)
	case schema.KindReaction:
		var reaction domain.Reaction
		if err := record.UnmarshalNew(&reaction); err != nil {
			return false, err
		}
		return true, a.profiles.RecordActivity(ctx, reaction.UserID, false, reaction.CreatedAt)
	case schema.KindMessage:
		var msg domain.Message
		if err := record.UnmarshalNew(&msg); err != nil {
			return false, err
		}
		return true, a.profiles.RecordActivity(ctx, msg.SenderID, false, msg.SentAt)
	}
	// Profiles, letters, memberships and rate-limit rows are not activity.
	return false, nil
}
