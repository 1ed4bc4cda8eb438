package dynamodb

import (
	"context"
	"testing"

	"letters-backend/domain"
	"letters-backend/infrastructure/persistence/dynamodb/ddbtest"
	apperrors "letters-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newChatRepos(t *testing.T) (*ConversationRepository, *MessageRepository) {
	t.Helper()
	client := ddbtest.New()
	return NewConversationRepository(client, "letters", zap.NewNop()),
		NewMessageRepository(client, "letters", zap.NewNop())
}

func pairConversation(a, b string) domain.Conversation {
	participants := []string{a, b}
	return domain.Conversation{
		ConvID:       domain.ConversationIDFor(participants),
		Participants: participants,
		CreatedBy:    a,
		CreatedAt:    "2026-08-01T10:00:00Z",
	}
}

func TestEnsureConversationIsIdempotent(t *testing.T) {
	convs, _ := newChatRepos(t)
	ctx := context.Background()

	first, err := convs.Ensure(ctx, pairConversation("alice", "bob"))
	require.NoError(t, err)

	// The deterministic pair ID makes both directions land on the same rows.
	second, err := convs.Ensure(ctx, pairConversation("bob", "alice"))
	require.NoError(t, err)
	assert.Equal(t, first.ConvID, second.ConvID)
	assert.Equal(t, "alice", second.CreatedBy, "the losing ensure reuses the existing conversation")
}

func TestEnsureCreatesMemberships(t *testing.T) {
	convs, _ := newChatRepos(t)
	ctx := context.Background()

	conv, err := convs.Ensure(ctx, pairConversation("alice", "bob"))
	require.NoError(t, err)

	for _, userID := range []string{"alice", "bob"} {
		m, err := convs.GetMembership(ctx, userID, conv.ConvID)
		require.NoError(t, err)
		assert.Equal(t, 0, m.UnreadCount)
	}
}

func TestMembershipIsTheAccessCheck(t *testing.T) {
	convs, _ := newChatRepos(t)
	ctx := context.Background()
	conv, err := convs.Ensure(ctx, pairConversation("alice", "bob"))
	require.NoError(t, err)

	_, err = convs.GetMembership(ctx, "mallory", conv.ConvID)
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
}

func TestSendMessageBumpsOtherMembersUnread(t *testing.T) {
	convs, msgs := newChatRepos(t)
	ctx := context.Background()
	conv, err := convs.Ensure(ctx, pairConversation("alice", "bob"))
	require.NoError(t, err)

	msg := domain.Message{
		ConvID:      conv.ConvID,
		MessageID:   "m1",
		SenderID:    "alice",
		SenderName:  "Alice",
		MessageText: "hello bob",
		SentAt:      "2026-08-01T11:00:00Z",
	}
	require.NoError(t, msgs.Send(ctx, msg, conv.Participants))

	bob, err := convs.GetMembership(ctx, "bob", conv.ConvID)
	require.NoError(t, err)
	assert.Equal(t, 1, bob.UnreadCount)

	alice, err := convs.GetMembership(ctx, "alice", conv.ConvID)
	require.NoError(t, err)
	assert.Equal(t, 0, alice.UnreadCount, "the sender never counts their own message unread")

	meta, err := convs.Get(ctx, conv.ConvID)
	require.NoError(t, err)
	assert.Equal(t, "hello bob", meta.LastMessagePreview)
	assert.Equal(t, msg.SentAt, meta.LastMessageAt)
}

func TestMarkReadZeroesUnread(t *testing.T) {
	convs, msgs := newChatRepos(t)
	ctx := context.Background()
	conv, err := convs.Ensure(ctx, pairConversation("alice", "bob"))
	require.NoError(t, err)

	for i, sentAt := range []string{"2026-08-01T11:00:00Z", "2026-08-01T11:01:00Z"} {
		require.NoError(t, msgs.Send(ctx, domain.Message{
			ConvID: conv.ConvID, MessageID: string(rune('a' + i)), SenderID: "alice",
			SenderName: "Alice", MessageText: "hi", SentAt: sentAt,
		}, conv.Participants))
	}

	require.NoError(t, convs.MarkRead(ctx, "bob", conv.ConvID, "2026-08-01T11:02:00Z"))

	bob, err := convs.GetMembership(ctx, "bob", conv.ConvID)
	require.NoError(t, err)
	assert.Equal(t, 0, bob.UnreadCount)
	assert.Equal(t, "2026-08-01T11:02:00Z", bob.LastReadAt)
}

func TestMarkReadByNonMemberForbidden(t *testing.T) {
	convs, _ := newChatRepos(t)
	ctx := context.Background()
	conv, err := convs.Ensure(ctx, pairConversation("alice", "bob"))
	require.NoError(t, err)

	err = convs.MarkRead(ctx, "mallory", conv.ConvID, "2026-08-01T11:02:00Z")
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
}

func TestListConversationsForUser(t *testing.T) {
	convs, msgs := newChatRepos(t)
	ctx := context.Background()
	conv1, err := convs.Ensure(ctx, pairConversation("alice", "bob"))
	require.NoError(t, err)
	_, err = convs.Ensure(ctx, pairConversation("alice", "carol"))
	require.NoError(t, err)

	require.NoError(t, msgs.Send(ctx, domain.Message{
		ConvID: conv1.ConvID, MessageID: "m1", SenderID: "bob",
		SenderName: "Bob", MessageText: "hi alice", SentAt: "2026-08-01T11:00:00Z",
	}, conv1.Participants))

	views, err := convs.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, views, 2)

	byID := make(map[string]ConversationView, len(views))
	for _, v := range views {
		byID[v.ConvID] = v
	}
	assert.Equal(t, 1, byID[conv1.ConvID].UnreadCount)
}

func TestListMessagesNewestFirstWithPaging(t *testing.T) {
	convs, msgs := newChatRepos(t)
	ctx := context.Background()
	conv, err := convs.Ensure(ctx, pairConversation("alice", "bob"))
	require.NoError(t, err)

	sentAts := []string{"2026-08-01T11:00:00Z", "2026-08-01T11:01:00Z", "2026-08-01T11:02:00Z"}
	for i, sentAt := range sentAts {
		require.NoError(t, msgs.Send(ctx, domain.Message{
			ConvID: conv.ConvID, MessageID: string(rune('a' + i)), SenderID: "alice",
			SenderName: "Alice", MessageText: "msg", SentAt: sentAt,
		}, conv.Participants))
	}

	first, err := msgs.List(ctx, conv.ConvID, 2, "")
	require.NoError(t, err)
	require.Len(t, first.Messages, 2)
	assert.Equal(t, "2026-08-01T11:02:00Z", first.Messages[0].SentAt)
	require.NotEmpty(t, first.NextCursor)

	rest, err := msgs.List(ctx, conv.ConvID, 2, first.NextCursor)
	require.NoError(t, err)
	require.Len(t, rest.Messages, 1)
	assert.Equal(t, "2026-08-01T11:00:00Z", rest.Messages[0].SentAt)
}
