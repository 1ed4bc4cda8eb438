package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"letters-backend/domain"
	"letters-backend/infrastructure/persistence/dynamodb/ddbtest"
	apperrors "letters-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProfileRepo(t *testing.T) (*ProfileRepository, *ddbtest.Client) {
	t.Helper()
	client := ddbtest.New()
	return NewProfileRepository(client, "letters", zap.NewNop()), client
}

func testProfile(userID string) domain.Profile {
	return domain.Profile{
		UserID:      userID,
		Email:       userID + "@example.com",
		DisplayName: "Member " + userID,
		CreatedAt:   "2026-08-01T10:00:00Z",
		UpdatedAt:   "2026-08-01T10:00:00Z",
	}
}

func TestProfileEnsureIsIdempotent(t *testing.T) {
	repo, _ := newProfileRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Ensure(ctx, testProfile("alice")))

	// Second ensure must not overwrite and must not error.
	changed := testProfile("alice")
	changed.DisplayName = "Someone Else"
	require.NoError(t, repo.Ensure(ctx, changed))

	got, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Member alice", got.DisplayName)
}

func TestProfileGetMissing(t *testing.T) {
	repo, _ := newProfileRepo(t)

	_, err := repo.Get(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestProfileUpdateAppliesOnlyGivenFields(t *testing.T) {
	repo, _ := newProfileRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Ensure(ctx, testProfile("alice")))

	bio := "Grandmother of four"
	updated, err := repo.Update(ctx, "alice", ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Grandmother of four", updated.Bio)
	assert.Equal(t, "Member alice", updated.DisplayName)
}

func TestProfileUpdateMissingProfile(t *testing.T) {
	repo, _ := newProfileRepo(t)

	name := "Ghost"
	_, err := repo.Update(context.Background(), "nobody", ProfileUpdate{DisplayName: &name})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestProfileList(t *testing.T) {
	repo, _ := newProfileRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Ensure(ctx, testProfile("alice")))
	require.NoError(t, repo.Ensure(ctx, testProfile("bob")))

	profiles, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
}

func TestRecordActivityCountsCommentsAtomically(t *testing.T) {
	repo, _ := newProfileRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Ensure(ctx, testProfile("alice")))

	require.NoError(t, repo.RecordActivity(ctx, "alice", true, "2026-08-02T09:00:00Z"))
	require.NoError(t, repo.RecordActivity(ctx, "alice", true, "2026-08-02T09:05:00Z"))
	require.NoError(t, repo.RecordActivity(ctx, "alice", false, "2026-08-02T09:10:00Z"))

	got, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, got.CommentCount, "only comment activity increments the counter")
	assert.Equal(t, "2026-08-02T09:10:00Z", got.LastActive)
}

func TestClaimNotificationSlotDebounces(t *testing.T) {
	repo, _ := newProfileRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Ensure(ctx, testProfile("alice")))

	window := 15 * time.Minute
	base := time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC)

	claimed, err := repo.ClaimNotificationSlot(ctx, "alice", base, window)
	require.NoError(t, err)
	assert.True(t, claimed, "first claim wins")

	claimed, err = repo.ClaimNotificationSlot(ctx, "alice", base.Add(5*time.Minute), window)
	require.NoError(t, err)
	assert.False(t, claimed, "claim inside the window is suppressed")

	claimed, err = repo.ClaimNotificationSlot(ctx, "alice", base.Add(16*time.Minute), window)
	require.NoError(t, err)
	assert.True(t, claimed, "claim after the window wins again")
}

func TestClaimNotificationSlotMissingProfile(t *testing.T) {
	repo, _ := newProfileRepo(t)

	claimed, err := repo.ClaimNotificationSlot(context.Background(), "nobody", time.Now(), 15*time.Minute)
	require.NoError(t, err)
	assert.False(t, claimed, "unknown recipients are never claimed")
}

func TestProfileRepositoryWrapsInfraErrors(t *testing.T) {
	repo, client := newProfileRepo(t)
	client.FailNext = errors.New("throttled")

	_, err := repo.Get(context.Background(), "alice")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDatabase))
}
