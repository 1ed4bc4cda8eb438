package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		key  Key
		want ParsedKey
	}{
		{
			name: "profile",
			key:  ProfileKey("user-1"),
			want: ParsedKey{Kind: KindProfile, UserID: "user-1"},
		},
		{
			name: "comment",
			key:  CommentKey("letter-2024-01-07", "2024-01-07T10:00:00Z", "c1"),
			want: ParsedKey{Kind: KindComment, ItemID: "letter-2024-01-07", SortStamp: "2024-01-07T10:00:00Z", EntityID: "c1"},
		},
		{
			name: "reaction",
			key:  ReactionKey("letter-2024-01-07", "c1", "user-2"),
			want: ParsedKey{Kind: KindReaction, ItemID: "letter-2024-01-07", CommentID: "c1", UserID: "user-2"},
		},
		{
			name: "conversation meta",
			key:  ConversationKey("a_b"),
			want: ParsedKey{Kind: KindConversation, ConvID: "a_b"},
		},
		{
			name: "membership",
			key:  MembershipKey("user-1", "a_b"),
			want: ParsedKey{Kind: KindMembership, UserID: "user-1", ConvID: "a_b"},
		},
		{
			name: "message",
			key:  MessageKey("a_b", "2024-01-07T10:00:00Z", "m1"),
			want: ParsedKey{Kind: KindMessage, ConvID: "a_b", SortStamp: "2024-01-07T10:00:00Z", EntityID: "m1"},
		},
		{
			name: "letter current",
			key:  LetterCurrentKey("2024-01-07"),
			want: ParsedKey{Kind: KindLetterCurrent, Date: "2024-01-07"},
		},
		{
			name: "letter version",
			key:  LetterVersionKey("2024-01-07", "2024-01-08T09:00:00Z", 3),
			want: ParsedKey{Kind: KindLetterVersion, Date: "2024-01-07", SortStamp: "2024-01-08T09:00:00Z", EntityID: "000003"},
		},
		{
			name: "rate limit",
			key:  RateLimitKey("user-1", "comment"),
			want: ParsedKey{Kind: KindRateLimit, UserID: "user-1", Action: "comment"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseKey(tc.key)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestKeysDoNotCollideAcrossKinds(t *testing.T) {
	// Distinct logical entities sharing identifiers must land on distinct keys.
	keys := []Key{
		ProfileKey("x"),
		MembershipKey("x", "x"),
		RateLimitKey("x", "x"),
		CommentKey("x", "2024-01-01T00:00:00Z", "x"),
		ReactionKey("x", "x", "x"),
		ConversationKey("x"),
		MessageKey("x", "2024-01-01T00:00:00Z", "x"),
		LetterCurrentKey("x"),
		LetterVersionKey("x", "2024-01-01T00:00:00Z", 0),
	}

	seen := make(map[Key]int)
	for i, k := range keys {
		if prev, dup := seen[k]; dup {
			t.Fatalf("key collision between entries %d and %d: %+v", prev, i, k)
		}
		seen[k] = i
	}
}

func TestParseKeyRejectsMalformed(t *testing.T) {
	_, err := ParseKey(Key{PK: "ORDER#123", SK: "META"})
	assert.Error(t, err)

	_, err = ParseKey(Key{PK: "USER#u1", SK: "WHATEVER"})
	assert.Error(t, err)

	_, err = ParseKey(Key{PK: "COMMENT#item", SK: "nodelimiter"})
	assert.Error(t, err)
}
