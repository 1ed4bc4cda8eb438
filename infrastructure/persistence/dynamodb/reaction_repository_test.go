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

func newReactionRepo(t *testing.T) (*ReactionRepository, *CommentRepository) {
	t.Helper()
	client := ddbtest.New()
	comments := NewCommentRepository(client, "letters", zap.NewNop())
	return NewReactionRepository(client, comments, "letters", zap.NewNop()), comments
}

func TestToggleAlternates(t *testing.T) {
	reactions, comments := newReactionRepo(t)
	ctx := context.Background()
	require.NoError(t, comments.Create(ctx, testComment("2026-08-01", "c1", "alice", "2026-08-01T10:00:00Z")))

	res, err := reactions.Toggle(ctx, "2026-08-01", "c1", "bob", "heart", "2026-08-01T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleAdded, res.Action)
	assert.Equal(t, 1, res.NewCount)

	res, err = reactions.Toggle(ctx, "2026-08-01", "c1", "bob", "heart", "2026-08-01T12:01:00Z")
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleRemoved, res.Action)
	assert.Equal(t, 0, res.NewCount)

	res, err = reactions.Toggle(ctx, "2026-08-01", "c1", "bob", "heart", "2026-08-01T12:02:00Z")
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleAdded, res.Action)
	assert.Equal(t, 1, res.NewCount, "toggling is a clean alternation, never a double count")
}

func TestToggleCountsEachUserOnce(t *testing.T) {
	reactions, comments := newReactionRepo(t)
	ctx := context.Background()
	require.NoError(t, comments.Create(ctx, testComment("2026-08-01", "c1", "alice", "2026-08-01T10:00:00Z")))

	_, err := reactions.Toggle(ctx, "2026-08-01", "c1", "bob", "heart", "2026-08-01T12:00:00Z")
	require.NoError(t, err)
	res, err := reactions.Toggle(ctx, "2026-08-01", "c1", "carol", "heart", "2026-08-01T12:01:00Z")
	require.NoError(t, err)
	assert.Equal(t, 2, res.NewCount)

	listed, err := reactions.ListByComment(ctx, "2026-08-01", "c1")
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestToggleOnMissingComment(t *testing.T) {
	reactions, _ := newReactionRepo(t)

	_, err := reactions.Toggle(context.Background(), "2026-08-01", "ghost", "bob", "heart", "2026-08-01T12:00:00Z")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestToggleOnDeletedComment(t *testing.T) {
	reactions, comments := newReactionRepo(t)
	ctx := context.Background()
	require.NoError(t, comments.Create(ctx, testComment("2026-08-01", "c1", "alice", "2026-08-01T10:00:00Z")))
	require.NoError(t, comments.SoftDelete(ctx, "2026-08-01", "c1", "alice", false, "2026-08-01T11:00:00Z"))

	_, err := reactions.Toggle(ctx, "2026-08-01", "c1", "bob", "heart", "2026-08-01T12:00:00Z")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
}

func TestToggleDenormalizesCommentAuthor(t *testing.T) {
	reactions, comments := newReactionRepo(t)
	ctx := context.Background()
	require.NoError(t, comments.Create(ctx, testComment("2026-08-01", "c1", "alice", "2026-08-01T10:00:00Z")))

	_, err := reactions.Toggle(ctx, "2026-08-01", "c1", "bob", "heart", "2026-08-01T12:00:00Z")
	require.NoError(t, err)

	listed, err := reactions.ListByComment(ctx, "2026-08-01", "c1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "alice", listed[0].CommentUserID, "the reaction row carries the comment author for downstream consumers")
}

func TestCountNeverGoesNegative(t *testing.T) {
	reactions, comments := newReactionRepo(t)
	ctx := context.Background()
	// Simulate drift: comment count already at zero but a reaction row exists.
	require.NoError(t, comments.Create(ctx, testComment("2026-08-01", "c1", "alice", "2026-08-01T10:00:00Z")))
	_, err := reactions.Toggle(ctx, "2026-08-01", "c1", "bob", "heart", "2026-08-01T12:00:00Z")
	require.NoError(t, err)
	res, err := reactions.Toggle(ctx, "2026-08-01", "c1", "bob", "heart", "2026-08-01T12:01:00Z")
	require.NoError(t, err)
	require.Equal(t, 0, res.NewCount)

	// Removing again after an add keeps the floor at zero.
	_, err = reactions.Toggle(ctx, "2026-08-01", "c1", "bob", "heart", "2026-08-01T12:02:00Z")
	require.NoError(t, err)
	res, err = reactions.Toggle(ctx, "2026-08-01", "c1", "bob", "heart", "2026-08-01T12:03:00Z")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.NewCount, 0)
}
