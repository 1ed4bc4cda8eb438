package domain

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Conversation is conversation-level metadata shared by all participants.
type Conversation struct {
	ConvID       string   `dynamodbav:"conversationId" json:"conversationId"`
	Participants []string `dynamodbav:"participants" json:"participants"`
	// IsGroup distinguishes minted group IDs from deterministic pair IDs.
	IsGroup            bool   `dynamodbav:"isGroup,omitempty" json:"isGroup,omitempty"`
	Name               string `dynamodbav:"name,omitempty" json:"name,omitempty"`
	LastMessageAt      string `dynamodbav:"lastMessageAt,omitempty" json:"lastMessageAt,omitempty"`
	LastMessagePreview string `dynamodbav:"lastMessagePreview,omitempty" json:"lastMessagePreview,omitempty"`
	CreatedBy          string `dynamodbav:"createdBy" json:"createdBy"`
	CreatedAt          string `dynamodbav:"createdAt" json:"createdAt"`
}

// Membership is one user's view of a conversation: the unread counter and the
// last-read pointer live here, one row per (user, conversation).
type Membership struct {
	UserID      string `dynamodbav:"userId" json:"userId"`
	ConvID      string `dynamodbav:"conversationId" json:"conversationId"`
	UnreadCount int    `dynamodbav:"unreadCount" json:"unreadCount"`
	LastReadAt  string `dynamodbav:"lastReadAt,omitempty" json:"lastReadAt,omitempty"`
	JoinedAt    string `dynamodbav:"joinedAt" json:"joinedAt"`
}

// Message is one entry in a conversation's ordered log.
type Message struct {
	ConvID      string `dynamodbav:"conversationId" json:"conversationId"`
	MessageID   string `dynamodbav:"messageId" json:"messageId"`
	SenderID    string `dynamodbav:"senderId" json:"senderId"`
	SenderName  string `dynamodbav:"senderName" json:"senderName"`
	MessageText string `dynamodbav:"messageText" json:"messageText"`
	SentAt      string `dynamodbav:"sentAt" json:"sentAt"`
}

// ConversationIDFor derives the conversation ID for a participant set. Two
// participants always map to the same ID regardless of order, so the same two
// users always land on the same conversation. Three or more get a random ID:
// no determinism, no dedup.
func ConversationIDFor(participants []string) string {
	if len(participants) == 2 {
		pair := []string{participants[0], participants[1]}
		sort.Strings(pair)
		return strings.Join(pair, "_")
	}
	return uuid.New().String()
}
