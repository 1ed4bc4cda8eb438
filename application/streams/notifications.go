package streams

import (
	"context"
	"strconv"
	"time"

	"letters-backend/domain"
	ddb "letters-backend/infrastructure/persistence/dynamodb"
	"letters-backend/infrastructure/persistence/schema"
	"letters-backend/pkg/observability"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// DebounceWindow caps email frequency: at most one notification per recipient
// inside this window, everything else is silently dropped.
const DebounceWindow = 15 * time.Minute

// EmailSender delivers a rendered notification.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// ProfileDirectory is the slice of the profile store the dispatcher reads
// recipients from.
type ProfileDirectory interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	ClaimNotificationSlot(ctx context.Context, userID string, now time.Time, window time.Duration) (bool, error)
}

// CommentSource lists an item's existing comments, for fanning a new comment
// out to the people already in that thread.
type CommentSource interface {
	ListByItem(ctx context.Context, itemID string, limit int32, cursor string) (*ddb.CommentPage, error)
}

// ConversationSource resolves a conversation's participants.
type ConversationSource interface {
	Get(ctx context.Context, convID string) (*domain.Conversation, error)
}

// NotificationDispatcher turns inserts on the change stream into emails:
// a new comment notifies the other people in the thread, a reaction notifies
// the comment's author, a message notifies the other participants. Recipients
// are debounced so a burst of activity produces one email, not a flood.
type NotificationDispatcher struct {
	profiles      ProfileDirectory
	comments      CommentSource
	conversations ConversationSource
	sender        EmailSender
	metrics       *observability.Metrics
	logger        *zap.Logger
	baseURL       string
	now           func() time.Time
}

// NewNotificationDispatcher creates a NotificationDispatcher.
func NewNotificationDispatcher(
	profiles ProfileDirectory,
	comments CommentSource,
	conversations ConversationSource,
	sender EmailSender,
	metrics *observability.Metrics,
	logger *zap.Logger,
	baseURL string,
) *NotificationDispatcher {
	return &NotificationDispatcher{
		profiles:      profiles,
		comments:      comments,
		conversations: conversations,
		sender:        sender,
		metrics:       metrics,
		logger:        logger,
		baseURL:       baseURL,
		now:           time.Now,
	}
}

// HandleEvent processes one stream batch, one record at a time. Delivery is
// at least once: a replayed record re-enters here and is only kept quiet by
// the debounce window, never by any dedup of its own.
func (d *NotificationDispatcher) HandleEvent(ctx context.Context, event events.DynamoDBEvent) error {
	return observability.TraceSegment(ctx, "notification-batch", func(ctx context.Context) error {
		observability.AddAnnotation(ctx, "records", strconv.Itoa(len(event.Records)))
		d.handleBatch(ctx, event)
		return nil
	})
}

func (d *NotificationDispatcher) handleBatch(ctx context.Context, event events.DynamoDBEvent) {
	for _, raw := range event.Records {
		if raw.EventName != string(events.DynamoDBOperationTypeInsert) {
			d.metrics.Count(ctx, observability.MetricRecordsSkipped, 1, map[string]string{"consumer": "notifications"})
			continue
		}

		record, err := DecodeRecord(raw)
		if err != nil {
			d.logger.Warn("Skipping undecodable stream record", zap.Error(err))
			d.metrics.Count(ctx, observability.MetricRecordsFailed, 1, map[string]string{"consumer": "notifications"})
			continue
		}

		if err := d.processInsert(ctx, record); err != nil {
			d.logger.Error("Failed to dispatch notifications",
				zap.String("kind", string(record.Kind)),
				zap.Error(err),
			)
			d.metrics.Count(ctx, observability.MetricRecordsFailed, 1, map[string]string{"consumer": "notifications"})
			continue
		}
		d.metrics.Count(ctx, observability.MetricRecordsProcessed, 1, map[string]string{"consumer": "notifications"})
	}
}

func (d *NotificationDispatcher) processInsert(ctx context.Context, record *StreamRecord) error {
	switch record.Kind {
	case schema.KindComment:
		var comment domain.Comment
		if err := record.UnmarshalNew(&comment); err != nil {
			return err
		}
		return d.notifyThread(ctx, comment)
	case schema.KindReaction:
		var reaction domain.Reaction
		if err := record.UnmarshalNew(&reaction); err != nil {
			return err
		}
		return d.notifyCommentAuthor(ctx, reaction)
	case schema.KindMessage:
		var msg domain.Message
		if err := record.UnmarshalNew(&msg); err != nil {
			return err
		}
		return d.notifyParticipants(ctx, msg)
	}
	return nil
}

// notifyThread emails everyone who already commented on the item, except the
// new comment's author. The whole thread is walked page by page so late
// commenters are reached too.
func (d *NotificationDispatcher) notifyThread(ctx context.Context, comment domain.Comment) error {
	seen := map[string]bool{comment.UserID: true}
	cursor := ""
	for {
		page, err := d.comments.ListByItem(ctx, comment.ItemID, 200, cursor)
		if err != nil {
			return err
		}
		for _, existing := range page.Comments {
			if seen[existing.UserID] {
				continue
			}
			seen[existing.UserID] = true
			d.deliver(ctx, existing.UserID, renderCommentEmail(comment, d.baseURL))
		}
		if page.NextCursor == "" {
			return nil
		}
		cursor = page.NextCursor
	}
}

// notifyCommentAuthor emails the author of the comment that was reacted to.
// The author rides on the reaction row itself, so no comment lookup is needed
// even if the comment was deleted since.
func (d *NotificationDispatcher) notifyCommentAuthor(ctx context.Context, reaction domain.Reaction) error {
	if reaction.CommentUserID == "" || reaction.CommentUserID == reaction.UserID {
		return nil
	}
	d.deliver(ctx, reaction.CommentUserID, renderReactionEmail(reaction, d.baseURL))
	return nil
}

// notifyParticipants emails the conversation's other members.
func (d *NotificationDispatcher) notifyParticipants(ctx context.Context, msg domain.Message) error {
	conv, err := d.conversations.Get(ctx, msg.ConvID)
	if err != nil {
		return err
	}
	for _, userID := range conv.Participants {
		if userID == msg.SenderID {
			continue
		}
		d.deliver(ctx, userID, renderMessageEmail(msg, d.baseURL))
	}
	return nil
}

// deliver sends one email if the recipient is reachable, opted in, and out of
// the debounce window. Per-recipient failures are logged and counted; one bad
// address never blocks the rest of the fan-out.
func (d *NotificationDispatcher) deliver(ctx context.Context, userID string, email renderedEmail) {
	profile, err := d.profiles.Get(ctx, userID)
	if err != nil {
		d.logger.Warn("Skipping recipient without profile",
			zap.String("userID", userID),
			zap.Error(err),
		)
		return
	}
	if profile.Email == "" || profile.EmailOptOut {
		return
	}

	claimed, err := d.profiles.ClaimNotificationSlot(ctx, userID, d.now(), DebounceWindow)
	if err != nil {
		d.logger.Warn("Failed to claim notification slot",
			zap.String("userID", userID),
			zap.Error(err),
		)
		return
	}
	if !claimed {
		d.metrics.Count(ctx, observability.MetricNotificationsSuppressed, 1, nil)
		return
	}

	if err := d.sender.Send(ctx, profile.Email, email.Subject, email.HTML); err != nil {
		d.logger.Error("Failed to send notification email",
			zap.String("userID", userID),
			zap.Error(err),
		)
		d.metrics.Count(ctx, observability.MetricNotificationSendFailures, 1, nil)
		return
	}
	d.metrics.Count(ctx, observability.MetricNotificationsSent, 1, nil)
}
