package gitstore_test

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitscout/gitscout/pkg/gitstore"
)

func TestFindFiles_RootPattern(t *testing.T) {
	fx := setupFixture(t)
	store := newTestStore(t, fx.reposDir)

	resp, err := store.FindFiles(context.Background(), "*", []string{"alpha"}, "", 0)
	require.NoError(t, err)

	assert.Equal(t, "*", resp.Pattern)
	assert.False(t, resp.LimitHit)
	require.Len(t, resp.Results, 1)

	result := resp.Results[0]
	assert.Equal(t, "alpha", result.Repository)
	// A bare "*" stays within the root segment
	assert.Equal(t, []string{"README.md", "main.go"}, result.Files)
	assert.Equal(t, 2, resp.TotalCount)
}

func TestFindFiles_DoubleStarCrossesDirectories(t *testing.T) {
	fx := setupFixture(t)
	store := newTestStore(t, fx.reposDir)

	resp, err := store.FindFiles(context.Background(), "**/*.md", []string{"alpha"}, "", 0)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, []string{"docs/guide.md"}, resp.Results[0].Files)

	resp, err = store.FindFiles(context.Background(), "**.md", []string{"alpha"}, "", 0)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, []string{"README.md", "docs/guide.md"}, resp.Results[0].Files)
}

func TestFindFiles_QuestionMarkWildcard(t *testing.T) {
	fx := setupFixture(t)
	store := newTestStore(t, fx.reposDir)

	resp, err := store.FindFiles(context.Background(), "main.g?", []string{"alpha"}, "", 0)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, []string{"main.go"}, resp.Results[0].Files)
}

func TestFindFiles_TotalCountMatchesFiles(t *testing.T) {
	fx := setupFixture(t)
	store := newTestStore(t, fx.reposDir)

	resp, err := store.FindFiles(context.Background(), "**", nil, "", 0)
	require.NoError(t, err)

	total := 0
	for _, result := range resp.Results {
		total += len(result.Files)
		assert.True(t, sort.StringsAreSorted(result.Files))
	}
	assert.Equal(t, resp.TotalCount, total)
}

func TestFindFiles_Limit(t *testing.T) {
	fx := setupFixture(t)
	store := newTestStore(t, fx.reposDir)

	resp, err := store.FindFiles(context.Background(), "**", []string{"alpha"}, "", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalCount)
	assert.True(t, resp.LimitHit)

	total := 0
	for _, result := range resp.Results {
		total += len(result.Files)
	}
	assert.Equal(t, 2, total)
}

func TestFindFiles_LimitNotHitWhenExact(t *testing.T) {
	fx := setupFixture(t)
	store := newTestStore(t, fx.reposDir)

	// alpha holds six files; a limit of six returns all without truncation
	resp, err := store.FindFiles(context.Background(), "**", []string{"alpha"}, "", 6)
	require.NoError(t, err)
	assert.Equal(t, 6, resp.TotalCount)
	assert.False(t, resp.LimitHit)
}

func TestFindFiles_NoMatches(t *testing.T) {
	fx := setupFixture(t)
	store := newTestStore(t, fx.reposDir)

	resp, err := store.FindFiles(context.Background(), "**/does_not_exist_12345.xyz", []string{"alpha"}, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.TotalCount)
	assert.False(t, resp.LimitHit)
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
}

func TestFindFiles_AcrossAllRepositories(t *testing.T) {
	fx := setupFixture(t)
	store := newTestStore(t, fx.reposDir)

	resp, err := store.FindFiles(context.Background(), "README.md", nil, "", 0)
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	seen := map[string]bool{}
	for _, result := range resp.Results {
		key := result.Repository + "@" + result.Revision
		assert.False(t, seen[key], "duplicate result group %s", key)
		seen[key] = true
	}
	assert.Equal(t, 2, resp.TotalCount)
}

func TestFindFiles_RevisionResolvedToRefOrSHA(t *testing.T) {
	fx := setupFixture(t)
	store := newTestStore(t, fx.reposDir)

	// Default revision resolves to the full HEAD ref name
	resp, err := store.FindFiles(context.Background(), "*", []string{"alpha"}, "", 0)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.True(t, strings.HasPrefix(resp.Results[0].Revision, "refs/heads/"))

	// An explicit commit hash is reported back verbatim
	resp, err = store.FindFiles(context.Background(), "*", []string{"alpha"}, fx.alphaHead, 0)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, fx.alphaHead, resp.Results[0].Revision)
}

func TestFindFiles_AnnotatedTagRevision(t *testing.T) {
	fx := setupFixture(t)
	store := newTestStore(t, fx.reposDir)

	// An annotated tag peels to the commit it targets
	resp, err := store.FindFiles(context.Background(), "*", []string{"alpha"}, "v1.0", 0)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "refs/tags/v1.0", resp.Results[0].Revision)
	assert.Equal(t, []string{"README.md", "main.go"}, resp.Results[0].Files)
}

func TestFindFiles_LightweightTagRevision(t *testing.T) {
	fx := setupFixture(t)
	store := newTestStore(t, fx.reposDir)

	resp, err := store.FindFiles(context.Background(), "*", []string{"alpha"}, "v1.0-light", 0)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "refs/tags/v1.0-light", resp.Results[0].Revision)
}

func TestFindFiles_DetachedHeadReportsSHA(t *testing.T) {
	fx := setupFixture(t)
	store := newTestStore(t, fx.reposDir)

	repo, err := git.PlainOpen(filepath.Join(fx.reposDir, "alpha"))
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(fx.alphaHead)}))

	resp, err := store.FindFiles(context.Background(), "*", []string{"alpha"}, "", 0)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, fx.alphaHead, resp.Results[0].Revision)
}

func TestFindFiles_DuplicateReposCollapsed(t *testing.T) {
	fx := setupFixture(t)
	store := newTestStore(t, fx.reposDir)

	resp, err := store.FindFiles(context.Background(), "README.md", []string{"alpha", "alpha"}, "", 0)
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, 1, resp.TotalCount)
}

func TestFindFiles_UnknownRepository(t *testing.T) {
	fx := setupFixture(t)
	store := newTestStore(t, fx.reposDir)

	_, err := store.FindFiles(context.Background(), "*", []string{"missing"}, "", 0)
	assert.ErrorIs(t, err, gitstore.ErrRepositoryNotFound)
}

func TestFindFiles_InvalidPattern(t *testing.T) {
	fx := setupFixture(t)
	store := newTestStore(t, fx.reposDir)

	_, err := store.FindFiles(context.Background(), "[", []string{"alpha"}, "", 0)
	assert.ErrorIs(t, err, gitstore.ErrInvalidPattern)
}

func TestFindFiles_CancelledContext(t *testing.T) {
	fx := setupFixture(t)
	store := newTestStore(t, fx.reposDir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.FindFiles(ctx, "**", []string{"alpha"}, "", 0)
	assert.ErrorIs(t, err, context.Canceled)
}
