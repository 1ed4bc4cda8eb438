package dynamodb

import (
	"context"
	"testing"

	"letters-backend/infrastructure/persistence/dynamodb/ddbtest"
	apperrors "letters-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLetterRepo(t *testing.T) *LetterRepository {
	t.Helper()
	return NewLetterRepository(ddbtest.New(), "letters", zap.NewNop())
}

func TestFirstPublishHasNoVersions(t *testing.T) {
	repo := newLetterRepo(t)
	ctx := context.Background()

	letter, err := repo.Publish(ctx, "2026-08-01", "August", "Dear family", "grandma", "2026-08-01T09:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 0, letter.VersionCount)

	versions, err := repo.ListVersions(ctx, "2026-08-01")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestPublishSnapshotsPreviousContent(t *testing.T) {
	repo := newLetterRepo(t)
	ctx := context.Background()

	_, err := repo.Publish(ctx, "2026-08-01", "August", "first draft", "grandma", "2026-08-01T09:00:00Z")
	require.NoError(t, err)
	updated, err := repo.Publish(ctx, "2026-08-01", "August", "second draft", "grandpa", "2026-08-01T10:00:00Z")
	require.NoError(t, err)

	assert.Equal(t, 1, updated.VersionCount)
	assert.Equal(t, "2026-08-01T09:00:00Z", updated.CreatedAt, "the original creation time survives edits")

	current, err := repo.GetCurrent(ctx, "2026-08-01")
	require.NoError(t, err)
	assert.Equal(t, "second draft", current.Content)
	assert.Equal(t, "grandpa", current.UpdatedBy)

	versions, err := repo.ListVersions(ctx, "2026-08-01")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "first draft", versions[0].Content, "the snapshot holds the pre-edit content intact")
	assert.Equal(t, "grandma", versions[0].UpdatedBy)
}

func TestSameSecondRevisionsAllSnapshotted(t *testing.T) {
	repo := newLetterRepo(t)
	ctx := context.Background()

	// Timestamps have second resolution, so B and C share one. Each revision
	// must still land on its own version row.
	_, err := repo.Publish(ctx, "2026-08-01", "August", "revision A", "grandma", "2026-08-01T09:00:00Z")
	require.NoError(t, err)
	_, err = repo.Publish(ctx, "2026-08-01", "August", "revision B", "grandma", "2026-08-01T09:00:05Z")
	require.NoError(t, err)
	_, err = repo.Publish(ctx, "2026-08-01", "August", "revision C", "grandma", "2026-08-01T09:00:05Z")
	require.NoError(t, err)
	final, err := repo.Publish(ctx, "2026-08-01", "August", "revision D", "grandma", "2026-08-01T09:00:09Z")
	require.NoError(t, err)
	assert.Equal(t, 3, final.VersionCount)

	versions, err := repo.ListVersions(ctx, "2026-08-01")
	require.NoError(t, err)
	require.Len(t, versions, 3, "every prior revision keeps its own snapshot")

	contents := make([]string, 0, len(versions))
	for _, v := range versions {
		contents = append(contents, v.Content)
	}
	assert.Equal(t, []string{"revision C", "revision B", "revision A"}, contents)
	assert.Equal(t, []int{2, 1, 0}, []int{versions[0].Revision, versions[1].Revision, versions[2].Revision})
}

func TestVersionsAccumulateNewestFirst(t *testing.T) {
	repo := newLetterRepo(t)
	ctx := context.Background()

	drafts := []struct{ content, at string }{
		{"v1", "2026-08-01T09:00:00Z"},
		{"v2", "2026-08-01T10:00:00Z"},
		{"v3", "2026-08-01T11:00:00Z"},
	}
	for _, d := range drafts {
		_, err := repo.Publish(ctx, "2026-08-01", "August", d.content, "grandma", d.at)
		require.NoError(t, err)
	}

	versions, err := repo.ListVersions(ctx, "2026-08-01")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "v2", versions[0].Content)
	assert.Equal(t, "v1", versions[1].Content)

	current, err := repo.GetCurrent(ctx, "2026-08-01")
	require.NoError(t, err)
	assert.Equal(t, "v3", current.Content)
	assert.Equal(t, 2, current.VersionCount)
}

func TestGetCurrentMissingDate(t *testing.T) {
	repo := newLetterRepo(t)

	_, err := repo.GetCurrent(context.Background(), "1999-01-01")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListLettersNewestDateFirst(t *testing.T) {
	repo := newLetterRepo(t)
	ctx := context.Background()

	for _, date := range []string{"2026-06-01", "2026-08-01", "2026-07-01"} {
		_, err := repo.Publish(ctx, date, "Letter", "content for "+date, "grandma", date+"T09:00:00Z")
		require.NoError(t, err)
	}

	page, err := repo.List(ctx, 2, "")
	require.NoError(t, err)
	require.Len(t, page.Letters, 2)
	assert.Equal(t, "2026-08-01", page.Letters[0].Date)
	assert.Equal(t, "2026-07-01", page.Letters[1].Date)
	require.NotEmpty(t, page.NextCursor)

	rest, err := repo.List(ctx, 2, page.NextCursor)
	require.NoError(t, err)
	require.Len(t, rest.Letters, 1)
	assert.Equal(t, "2026-06-01", rest.Letters[0].Date)
}
