package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationIDForPairIsDeterministic(t *testing.T) {
	a := ConversationIDFor([]string{"alice", "bob"})
	b := ConversationIDFor([]string{"bob", "alice"})

	assert.Equal(t, a, b, "pair ID must not depend on participant order")
	assert.Equal(t, "alice_bob", a)

	// Stable across repeated calls.
	assert.Equal(t, a, ConversationIDFor([]string{"alice", "bob"}))
}

func TestConversationIDForGroupIsMinted(t *testing.T) {
	members := []string{"alice", "bob", "carol"}
	first := ConversationIDFor(members)
	second := ConversationIDFor(members)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second, "group IDs are random, not derived")
}
