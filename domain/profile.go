// Package domain holds the entity types stored in the letters table. Attribute
// names mirror the persisted dataset, so the dynamodbav tags are part of the
// storage contract.
package domain

// Profile is a family member's identity plus the activity counters maintained
// by the stream aggregator.
type Profile struct {
	UserID       string `dynamodbav:"userId" json:"userId"`
	Email        string `dynamodbav:"email" json:"email"`
	DisplayName  string `dynamodbav:"displayName" json:"displayName"`
	AvatarURL    string `dynamodbav:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	Bio          string `dynamodbav:"bio,omitempty" json:"bio,omitempty"`
	CommentCount int    `dynamodbav:"commentCount" json:"commentCount"`
	LastActive   string `dynamodbav:"lastActive,omitempty" json:"lastActive,omitempty"`
	// LastNotifiedAt is the debounce guard for email notifications.
	LastNotifiedAt string `dynamodbav:"lastNotifiedAt,omitempty" json:"-"`
	EmailOptOut    bool   `dynamodbav:"emailOptOut,omitempty" json:"emailOptOut,omitempty"`
	CreatedAt      string `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt      string `dynamodbav:"updatedAt" json:"updatedAt"`
}
