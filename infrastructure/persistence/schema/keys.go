// Package schema defines the single-table key layout. Every entity kind is
// encoded into a (PK, SK) pair here, and raw key strings are decoded back into
// an EntityKind before they reach any business logic.
package schema

import (
	"fmt"
	"strings"
)

// EntityKind identifies the logical entity stored under a key pair.
type EntityKind string

const (
	KindProfile       EntityKind = "PROFILE"
	KindComment       EntityKind = "COMMENT"
	KindReaction      EntityKind = "REACTION"
	KindConversation  EntityKind = "CONVERSATION"
	KindMembership    EntityKind = "MEMBERSHIP"
	KindMessage       EntityKind = "MESSAGE"
	KindLetterCurrent EntityKind = "LETTER_CURRENT"
	KindLetterVersion EntityKind = "LETTER_VERSION"
	KindRateLimit     EntityKind = "RATE_LIMIT"
	KindUnknown       EntityKind = "UNKNOWN"
)

// Partition key prefixes. The prefix alone determines the entity family; the
// sort key shape disambiguates within a partition.
const (
	prefixUser    = "USER#"
	prefixComment = "COMMENT#"
	prefixConv    = "CONV#"
	prefixLetter  = "LETTER#"
)

const (
	skProfile       = "PROFILE"
	skConvMeta      = "META"
	skLetterCurrent = "CURRENT"
)

// GSI1 constants for the fan-out index.
const (
	GSI1AllUsers   = "USERS"
	GSI1AllLetters = "LETTERS"
)

// Key is a composite primary key into the table.
type Key struct {
	PK string `dynamodbav:"PK" json:"pk"`
	SK string `dynamodbav:"SK" json:"sk"`
}

// ProfileKey addresses a user profile row.
func ProfileKey(userID string) Key {
	return Key{PK: prefixUser + userID, SK: skProfile}
}

// CommentKey addresses a comment row. Comments sort chronologically within an
// item's partition because the sort key leads with the creation timestamp.
func CommentKey(itemID, createdAt, commentID string) Key {
	return Key{PK: prefixComment + itemID, SK: createdAt + "#" + commentID}
}

// ReactionKey addresses a reaction row. One row per (comment, user) pair; the
// row's existence is the "has reacted" bit.
func ReactionKey(itemID, commentID, userID string) Key {
	return Key{PK: prefixComment + itemID, SK: "REACTION#" + commentID + "#" + userID}
}

// ConversationKey addresses conversation-level metadata.
func ConversationKey(convID string) Key {
	return Key{PK: prefixConv + convID, SK: skConvMeta}
}

// MembershipKey addresses a user's membership row in a conversation, which
// carries the unread counter and last-read pointer.
func MembershipKey(userID, convID string) Key {
	return Key{PK: prefixUser + userID, SK: prefixConv + convID}
}

// MessageKey addresses a message in a conversation's ordered log.
func MessageKey(convID, sentAt, messageID string) Key {
	return Key{PK: prefixConv + convID, SK: "MSG#" + sentAt + "#" + messageID}
}

// LetterCurrentKey addresses the latest published content for a letter date.
func LetterCurrentKey(date string) Key {
	return Key{PK: prefixLetter + date, SK: skLetterCurrent}
}

// LetterVersionKey addresses an immutable prior revision. The revision number
// is part of the sort key: timestamps have second resolution, so two
// revisions published within the same second would otherwise share a key and
// the later snapshot would silently collide with the earlier one.
func LetterVersionKey(date, versionedAt string, revision int) Key {
	return Key{PK: prefixLetter + date, SK: fmt.Sprintf("VERSION#%s#%06d", versionedAt, revision)}
}

// RateLimitKey addresses a per-user, per-action counter row.
func RateLimitKey(userID, action string) Key {
	return Key{PK: prefixUser + userID, SK: "RATE#" + action}
}

// CommentPartition returns the partition key shared by an item's comments and
// their reactions, for range queries.
func CommentPartition(itemID string) string { return prefixComment + itemID }

// ConversationPartition returns the partition key shared by a conversation's
// metadata and messages.
func ConversationPartition(convID string) string { return prefixConv + convID }

// UserPartition returns the partition key shared by a user's profile,
// memberships and rate-limit rows.
func UserPartition(userID string) string { return prefixUser + userID }

// LetterPartition returns the partition key shared by a letter's current
// record and its version log.
func LetterPartition(date string) string { return prefixLetter + date }

// MessageSortPrefix is the SK prefix selecting only message rows.
const MessageSortPrefix = "MSG#"

// ReactionSortPrefix is the SK prefix selecting only reaction rows.
const ReactionSortPrefix = "REACTION#"

// VersionSortPrefix is the SK prefix selecting only letter version rows.
const VersionSortPrefix = "VERSION#"

// GSI1 is the secondary-index key pair carried by rows that fan out to the
// GSI1 index.
type GSI1 struct {
	GSI1PK string `dynamodbav:"GSI1PK" json:"-"`
	GSI1SK string `dynamodbav:"GSI1SK" json:"-"`
}

// ProfileGSI lists all profiles under a single index partition.
func ProfileGSI(userID string) GSI1 {
	return GSI1{GSI1PK: GSI1AllUsers, GSI1SK: prefixUser + userID}
}

// CommentGSI indexes a comment by its author for per-user activity queries.
func CommentGSI(userID, createdAt string) GSI1 {
	return GSI1{GSI1PK: prefixUser + userID, GSI1SK: prefixComment + createdAt}
}

// ReactionGSI indexes a reaction by the reacting user.
func ReactionGSI(userID, createdAt string) GSI1 {
	return GSI1{GSI1PK: prefixUser + userID, GSI1SK: ReactionSortPrefix + createdAt}
}

// LetterGSI lists all current letters under a single index partition, sorted
// by date.
func LetterGSI(date string) GSI1 {
	return GSI1{GSI1PK: GSI1AllLetters, GSI1SK: date}
}

// ParsedKey is the decoded form of a raw key pair.
type ParsedKey struct {
	Kind EntityKind

	UserID    string // profile, membership, rate limit
	ItemID    string // comment, reaction
	CommentID string // reaction
	ConvID    string // conversation, membership, message
	Date      string // letters
	Action    string // rate limit
	SortStamp string // comment createdAt, message sentAt, version timestamp
	EntityID  string // comment ID, message ID, or version revision number
}

// ParseKey recovers the entity kind and identifiers from a raw key pair. The
// kind is always recoverable: the PK prefix picks the family and the SK shape
// picks the member.
func ParseKey(k Key) (ParsedKey, error) {
	switch {
	case strings.HasPrefix(k.PK, prefixUser):
		return parseUserKey(strings.TrimPrefix(k.PK, prefixUser), k.SK)
	case strings.HasPrefix(k.PK, prefixComment):
		return parseCommentKey(strings.TrimPrefix(k.PK, prefixComment), k.SK)
	case strings.HasPrefix(k.PK, prefixConv):
		return parseConvKey(strings.TrimPrefix(k.PK, prefixConv), k.SK)
	case strings.HasPrefix(k.PK, prefixLetter):
		return parseLetterKey(strings.TrimPrefix(k.PK, prefixLetter), k.SK)
	}
	return ParsedKey{Kind: KindUnknown}, fmt.Errorf("unrecognized partition key %q", k.PK)
}

func parseUserKey(userID, sk string) (ParsedKey, error) {
	switch {
	case sk == skProfile:
		return ParsedKey{Kind: KindProfile, UserID: userID}, nil
	case strings.HasPrefix(sk, prefixConv):
		return ParsedKey{Kind: KindMembership, UserID: userID, ConvID: strings.TrimPrefix(sk, prefixConv)}, nil
	case strings.HasPrefix(sk, "RATE#"):
		return ParsedKey{Kind: KindRateLimit, UserID: userID, Action: strings.TrimPrefix(sk, "RATE#")}, nil
	}
	return ParsedKey{Kind: KindUnknown}, fmt.Errorf("unrecognized user sort key %q", sk)
}

func parseCommentKey(itemID, sk string) (ParsedKey, error) {
	if strings.HasPrefix(sk, ReactionSortPrefix) {
		rest := strings.TrimPrefix(sk, ReactionSortPrefix)
		commentID, userID, ok := strings.Cut(rest, "#")
		if !ok {
			return ParsedKey{Kind: KindUnknown}, fmt.Errorf("malformed reaction sort key %q", sk)
		}
		return ParsedKey{Kind: KindReaction, ItemID: itemID, CommentID: commentID, UserID: userID}, nil
	}
	createdAt, commentID, ok := strings.Cut(sk, "#")
	if !ok {
		return ParsedKey{Kind: KindUnknown}, fmt.Errorf("malformed comment sort key %q", sk)
	}
	return ParsedKey{Kind: KindComment, ItemID: itemID, SortStamp: createdAt, EntityID: commentID}, nil
}

func parseConvKey(convID, sk string) (ParsedKey, error) {
	if sk == skConvMeta {
		return ParsedKey{Kind: KindConversation, ConvID: convID}, nil
	}
	if strings.HasPrefix(sk, MessageSortPrefix) {
		rest := strings.TrimPrefix(sk, MessageSortPrefix)
		sentAt, messageID, ok := strings.Cut(rest, "#")
		if !ok {
			return ParsedKey{Kind: KindUnknown}, fmt.Errorf("malformed message sort key %q", sk)
		}
		return ParsedKey{Kind: KindMessage, ConvID: convID, SortStamp: sentAt, EntityID: messageID}, nil
	}
	return ParsedKey{Kind: KindUnknown}, fmt.Errorf("unrecognized conversation sort key %q", sk)
}

func parseLetterKey(date, sk string) (ParsedKey, error) {
	if sk == skLetterCurrent {
		return ParsedKey{Kind: KindLetterCurrent, Date: date}, nil
	}
	if strings.HasPrefix(sk, VersionSortPrefix) {
		rest := strings.TrimPrefix(sk, VersionSortPrefix)
		versionedAt, revision, ok := strings.Cut(rest, "#")
		if !ok {
			return ParsedKey{Kind: KindUnknown}, fmt.Errorf("malformed letter version sort key %q", sk)
		}
		return ParsedKey{Kind: KindLetterVersion, Date: date, SortStamp: versionedAt, EntityID: revision}, nil
	}
	return ParsedKey{Kind: KindUnknown}, fmt.Errorf("unrecognized letter sort key %q", sk)
}
