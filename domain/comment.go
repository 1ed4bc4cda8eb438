package domain

// Comment is a user's comment on a content item (usually a letter). Comments
// are soft-deleted: the row stays, Deleted flips, and the text is blanked.
type Comment struct {
	ItemID    string `dynamodbav:"itemId" json:"itemId"`
	CommentID string `dynamodbav:"commentId" json:"commentId"`
	UserID    string `dynamodbav:"userId" json:"userId"`
	// UserName and ItemTitle are denormalized at write time so the stream
	// consumers can render notifications without extra lookups.
	UserName      string `dynamodbav:"userName" json:"userName"`
	ItemTitle     string `dynamodbav:"itemTitle,omitempty" json:"itemTitle,omitempty"`
	CommentText   string `dynamodbav:"commentText" json:"commentText"`
	ReactionCount int    `dynamodbav:"reactionCount" json:"reactionCount"`
	Deleted       bool   `dynamodbav:"deleted,omitempty" json:"deleted,omitempty"`
	DeletedAt     string `dynamodbav:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt     string `dynamodbav:"createdAt" json:"createdAt"`
}

// Reaction is one user's reaction to one comment. The row's existence is the
// "has reacted" boolean; there is no separate per-user flag to drift.
type Reaction struct {
	ItemID       string `dynamodbav:"itemId" json:"itemId"`
	CommentID    string `dynamodbav:"commentId" json:"commentId"`
	UserID       string `dynamodbav:"userId" json:"userId"`
	ReactionType string `dynamodbav:"reactionType" json:"reactionType"`
	// CommentUserID and CommentCreatedAt are denormalized so the notifier can
	// reach the comment author straight from the stream image.
	CommentUserID    string `dynamodbav:"commentUserId,omitempty" json:"-"`
	CommentCreatedAt string `dynamodbav:"commentCreatedAt,omitempty" json:"-"`
	CreatedAt        string `dynamodbav:"createdAt" json:"createdAt"`
}

// ToggleAction reports which way a reaction toggle went.
type ToggleAction string

const (
	ToggleAdded   ToggleAction = "added"
	ToggleRemoved ToggleAction = "removed"
)

// ToggleResult is returned to the client as the new UI state.
type ToggleResult struct {
	Action   ToggleAction `json:"action"`
	NewCount int          `json:"newCount"`
}
