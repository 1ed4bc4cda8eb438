// Package integration exercises the full comment / reaction / notification
// flow against the in-memory table: service layer writes, then the stream
// consumers fed the records those writes would have produced.
package integration

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"letters-backend/application/services"
	"letters-backend/application/streams"
	"letters-backend/domain"
	ddb "letters-backend/infrastructure/persistence/dynamodb"
	"letters-backend/infrastructure/persistence/dynamodb/ddbtest"
	"letters-backend/infrastructure/persistence/schema"
	"letters-backend/pkg/auth"
)

const testTable = "letters-test"

// fixture wires real repositories and services over the in-memory table, the
// way the container does in production.
type fixture struct {
	client     *ddbtest.Client
	profiles   *ddb.ProfileRepository
	comments   *services.CommentService
	chat       *services.ChatService
	letters    *services.LetterService
	members    *services.ProfileService
	aggregator *streams.ActivityAggregator
	dispatcher *streams.NotificationDispatcher
	sender     *captureSender
}

type sentEmail struct {
	To      string
	Subject string
}

type captureSender struct {
	sent []sentEmail
}

func (s *captureSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	s.sent = append(s.sent, sentEmail{To: to, Subject: subject})
	return nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	client := ddbtest.New()
	logger := zap.NewNop()

	profileRepo := ddb.NewProfileRepository(client, testTable, logger)
	commentRepo := ddb.NewCommentRepository(client, testTable, logger)
	reactionRepo := ddb.NewReactionRepository(client, commentRepo, testTable, logger)
	convRepo := ddb.NewConversationRepository(client, testTable, logger)
	messageRepo := ddb.NewMessageRepository(client, testTable, logger)
	letterRepo := ddb.NewLetterRepository(client, testTable, logger)

	limiter := auth.NewRateLimiter(client, testTable)
	limits := services.RateLimits{
		CommentLimit:   5,
		ReactionLimit:  10,
		MessageLimit:   10,
		WindowDuration: 60,
	}

	sender := &captureSender{}

	return &fixture{
		client:     client,
		profiles:   profileRepo,
		comments:   services.NewCommentService(commentRepo, reactionRepo, letterRepo, limiter, limits, logger),
		chat:       services.NewChatService(convRepo, messageRepo, limiter, limits, logger),
		letters:    services.NewLetterService(letterRepo, logger),
		members:    services.NewProfileService(profileRepo, logger),
		aggregator: streams.NewActivityAggregator(profileRepo, nil, logger),
		dispatcher: streams.NewNotificationDispatcher(profileRepo, commentRepo, convRepo, sender, nil, logger, "https://example.test"),
		sender:     sender,
	}
}

func member(userID string) *auth.UserContext {
	return &auth.UserContext{
		UserID: userID,
		Email:  userID + "@example.com",
		Name:   "Member " + userID,
	}
}

func admin(userID string) *auth.UserContext {
	user := member(userID)
	user.Groups = []string{"admin"}
	return user
}

func (f *fixture) enroll(t *testing.T, ctx context.Context, user *auth.UserContext) {
	t.Helper()
	require.NoError(t, f.members.EnsureFromContext(ctx, user))
}

func insertRecord(key schema.Key, image map[string]events.DynamoDBAttributeValue) events.DynamoDBEventRecord {
	return events.DynamoDBEventRecord{
		EventName: "INSERT",
		Change: events.DynamoDBStreamRecord{
			Keys: map[string]events.DynamoDBAttributeValue{
				"PK": events.NewStringAttribute(key.PK),
				"SK": events.NewStringAttribute(key.SK),
			},
			NewImage: image,
		},
	}
}

func commentRecord(c *domain.Comment) events.DynamoDBEventRecord {
	return insertRecord(schema.CommentKey(c.ItemID, c.CreatedAt, c.CommentID), map[string]events.DynamoDBAttributeValue{
		"itemId":      events.NewStringAttribute(c.ItemID),
		"commentId":   events.NewStringAttribute(c.CommentID),
		"userId":      events.NewStringAttribute(c.UserID),
		"userName":    events.NewStringAttribute(c.UserName),
		"itemTitle":   events.NewStringAttribute(c.ItemTitle),
		"commentText": events.NewStringAttribute(c.CommentText),
		"createdAt":   events.NewStringAttribute(c.CreatedAt),
	})
}

func reactionRecord(itemID, commentID, userID, commentUserID, createdAt string) events.DynamoDBEventRecord {
	return insertRecord(schema.ReactionKey(itemID, commentID, userID), map[string]events.DynamoDBAttributeValue{
		"itemId":        events.NewStringAttribute(itemID),
		"commentId":     events.NewStringAttribute(commentID),
		"userId":        events.NewStringAttribute(userID),
		"reactionType":  events.NewStringAttribute("heart"),
		"commentUserId": events.NewStringAttribute(commentUserID),
		"createdAt":     events.NewStringAttribute(createdAt),
	})
}

func messageRecord(m *domain.Message) events.DynamoDBEventRecord {
	return insertRecord(schema.MessageKey(m.ConvID, m.SentAt, m.MessageID), map[string]events.DynamoDBAttributeValue{
		"conversationId": events.NewStringAttribute(m.ConvID),
		"messageId":      events.NewStringAttribute(m.MessageID),
		"senderId":       events.NewStringAttribute(m.SenderID),
		"senderName":     events.NewStringAttribute(m.SenderName),
		"messageText":    events.NewStringAttribute(m.MessageText),
		"sentAt":         events.NewStringAttribute(m.SentAt),
	})
}

func batch(records ...events.DynamoDBEventRecord) events.DynamoDBEvent {
	return events.DynamoDBEvent{Records: records}
}

// TestCommentReactionNotificationFlow runs the headline scenario: a published
// letter, a comment that bumps the author's activity counters, a reaction
// that emails the comment author, and an un-reaction that stays silent.
func TestCommentReactionNotificationFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	alice := admin("alice")
	bob := member("bob")
	f.enroll(t, ctx, alice)
	f.enroll(t, ctx, bob)

	letter, err := f.letters.Publish(ctx, alice, "2026-08-01", services.PublishLetterRequest{
		Title:   "August letter",
		Content: "Dear family, ...",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, letter.VersionCount)

	// Alice comments on the letter.
	comment, err := f.comments.Create(ctx, alice, services.CreateCommentRequest{
		ItemID:      "2026-08-01",
		CommentText: "So glad everyone made it!",
	})
	require.NoError(t, err)
	assert.Equal(t, "August letter", comment.ItemTitle)

	// The comment's stream record folds into her activity counters.
	require.NoError(t, f.aggregator.HandleEvent(ctx, batch(commentRecord(comment))))

	profile, err := f.profiles.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, profile.CommentCount)
	assert.Equal(t, comment.CreatedAt, profile.LastActive)

	// Bob reacts: count goes to 1 and the reaction's stream record emails
	// the comment author.
	toggle, err := f.comments.ToggleReaction(ctx, bob, services.ToggleReactionRequest{
		ItemID:       comment.ItemID,
		CommentID:    comment.CommentID,
		ReactionType: "heart",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleAdded, toggle.Action)
	assert.Equal(t, 1, toggle.NewCount)

	reaction := reactionRecord(comment.ItemID, comment.CommentID, "bob", "alice", comment.CreatedAt)
	require.NoError(t, f.dispatcher.HandleEvent(ctx, batch(reaction)))
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "alice@example.com", f.sender.sent[0].To)

	// Bob reacts again: the toggle removes his reaction and the stream
	// emits a REMOVE, which the dispatcher ignores.
	toggle, err = f.comments.ToggleReaction(ctx, bob, services.ToggleReactionRequest{
		ItemID:       comment.ItemID,
		CommentID:    comment.CommentID,
		ReactionType: "heart",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleRemoved, toggle.Action)
	assert.Equal(t, 0, toggle.NewCount)

	removal := reactionRecord(comment.ItemID, comment.CommentID, "bob", "alice", comment.CreatedAt)
	removal.EventName = "REMOVE"
	require.NoError(t, f.dispatcher.HandleEvent(ctx, batch(removal)))
	assert.Len(t, f.sender.sent, 1, "removing a reaction must not notify")
}

// TestNotificationDebounceAcrossEvents verifies a second triggering event
// inside the debounce window stays quiet even though it is a fresh INSERT.
func TestNotificationDebounceAcrossEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	alice := member("alice")
	bob := member("bob")
	carol := member("carol")
	f.enroll(t, ctx, alice)
	f.enroll(t, ctx, bob)
	f.enroll(t, ctx, carol)

	comment, err := f.comments.Create(ctx, alice, services.CreateCommentRequest{
		ItemID:      "2026-08-01",
		CommentText: "First!",
	})
	require.NoError(t, err)

	first := reactionRecord(comment.ItemID, comment.CommentID, "bob", "alice", comment.CreatedAt)
	second := reactionRecord(comment.ItemID, comment.CommentID, "carol", "alice", comment.CreatedAt)

	require.NoError(t, f.dispatcher.HandleEvent(ctx, batch(first)))
	require.NoError(t, f.dispatcher.HandleEvent(ctx, batch(second)))

	assert.Len(t, f.sender.sent, 1, "second notification inside the window is debounced")
}

// TestLetterEditPreservesHistory publishes twice and checks the first body
// survives as a version snapshot.
func TestLetterEditPreservesHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	alice := admin("alice")
	f.enroll(t, ctx, alice)

	_, err := f.letters.Publish(ctx, alice, "2026-08-01", services.PublishLetterRequest{
		Title:   "August letter",
		Content: "first draft",
	})
	require.NoError(t, err)

	edited, err := f.letters.Publish(ctx, alice, "2026-08-01", services.PublishLetterRequest{
		Title:   "August letter",
		Content: "final text",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, edited.VersionCount)
	assert.Equal(t, "final text", edited.Content)

	versions, err := f.letters.Versions(ctx, "2026-08-01")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "first draft", versions[0].Content)

	if _, err := f.letters.Publish(ctx, member("bob"), "2026-08-01", services.PublishLetterRequest{
		Title:   "August letter",
		Content: "defaced",
	}); assert.Error(t, err) {
		assert.Contains(t, err.Error(), "admin")
	}
}

// TestMessagingFlow walks a two-party conversation: start, send, unread
// count for the recipient, message notification, mark read.
func TestMessagingFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	alice := member("alice")
	bob := member("bob")
	f.enroll(t, ctx, alice)
	f.enroll(t, ctx, bob)

	conv, err := f.chat.Start(ctx, alice, services.StartConversationRequest{
		Participants: []string{"bob"},
	})
	require.NoError(t, err)
	assert.False(t, conv.IsGroup)

	// Starting the same pair again reuses the conversation.
	again, err := f.chat.Start(ctx, bob, services.StartConversationRequest{
		Participants: []string{"alice"},
	})
	require.NoError(t, err)
	assert.Equal(t, conv.ConvID, again.ConvID)

	msg, err := f.chat.Send(ctx, alice, conv.ConvID, services.SendMessageRequest{
		MessageText: "Did you see the photos?",
	})
	require.NoError(t, err)

	views, err := f.chat.ListConversations(ctx, bob)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 1, views[0].UnreadCount)

	require.NoError(t, f.dispatcher.HandleEvent(ctx, batch(messageRecord(msg))))
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "bob@example.com", f.sender.sent[0].To)

	require.NoError(t, f.chat.MarkRead(ctx, bob, conv.ConvID))
	views, err = f.chat.ListConversations(ctx, bob)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 0, views[0].UnreadCount)

	// An outsider can neither read nor post.
	_, err = f.chat.ListMessages(ctx, member("mallory"), conv.ConvID, 10, "")
	assert.Error(t, err)
	_, err = f.chat.Send(ctx, member("mallory"), conv.ConvID, services.SendMessageRequest{MessageText: "hi"})
	assert.Error(t, err)
}

// TestCommentRateLimitEndToEnd drives the limiter through the service path
// until it rejects.
func TestCommentRateLimitEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	alice := member("alice")
	f.enroll(t, ctx, alice)

	for i := 0; i < 5; i++ {
		_, err := f.comments.Create(ctx, alice, services.CreateCommentRequest{
			ItemID:      "2026-08-01",
			CommentText: "another thought",
		})
		require.NoError(t, err)
	}

	_, err := f.comments.Create(ctx, alice, services.CreateCommentRequest{
		ItemID:      "2026-08-01",
		CommentText: "one too many",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
