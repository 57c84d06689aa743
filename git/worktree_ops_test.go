package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	platformerrors "github.com/jmgilman/reposandbox/errors"
	"github.com/jmgilman/reposandbox/git/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWorktreeListPorcelain(t *testing.T) {
	output := `worktree /cache/example_com_r/bare
bare

worktree /cache/example_com_r/trees/0123456789ab
HEAD 0123456789abcdef0123456789abcdef01234567
detached

worktree /cache/example_com_r/trees/fedcba987654
HEAD fedcba9876543210fedcba9876543210fedcba98
branch refs/heads/main
prunable gitdir file points to non-existent location
`

	worktrees := parseWorktreeListPorcelain(output)
	require.Len(t, worktrees, 3)

	assert.True(t, worktrees[0].Bare)
	assert.Equal(t, "/cache/example_com_r/bare", worktrees[0].Path)

	assert.Equal(t, "0123456789abcdef0123456789abcdef01234567", worktrees[1].Head)
	assert.Empty(t, worktrees[1].Branch)
	assert.False(t, worktrees[1].Prunable)

	assert.Equal(t, "main", worktrees[2].Branch)
	assert.True(t, worktrees[2].Prunable)
}

func TestParseWorktreeListPorcelain_Empty(t *testing.T) {
	assert.Empty(t, parseWorktreeListPorcelain(""))
}

func TestCloneBare(t *testing.T) {
	fixture, _, bare := cloneFixture(t)

	_, err := os.Stat(filepath.Join(bare, "HEAD"))
	require.NoError(t, err, "bare clone must have a HEAD file")

	repo, err := OpenBare(bare)
	require.NoError(t, err)
	sha, err := repo.ResolveCommit("main")
	require.NoError(t, err)
	assert.Equal(t, fixture.SecondSHA, sha)
}

func TestCloneBare_ProtocolBlocked(t *testing.T) {
	requireGit(t)

	fixture := testutil.NewTaggedRepo(t)
	cli := NewCLI(DefaultConfig(), directRunner())

	err := cli.CloneBare(context.Background(), fixture.Path, filepath.Join(t.TempDir(), "bare"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocolBlocked)
	assert.Equal(t, platformerrors.CodeForbidden, platformerrors.GetCode(err))
}

func TestCloneBare_MissingRemote(t *testing.T) {
	requireGit(t)

	cli := NewCLI(localConfig(), directRunner())
	err := cli.CloneBare(context.Background(), filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "bare"))
	require.Error(t, err)
	assert.Equal(t, platformerrors.CodeNetwork, platformerrors.GetCode(err))

	var platformErr platformerrors.PlatformError
	require.True(t, platformerrors.As(err, &platformErr))
	assert.NotEmpty(t, platformErr.Context()["stderr"])
}

func TestFetch_PicksUpNewCommits(t *testing.T) {
	fixture, cli, bare := cloneFixture(t)
	ctx := context.Background()

	third := fixture.Commit(t, "Third", map[string]string{"NEW.md": "new\n"})
	fixture.Branch(t, "feature", third)

	repo, err := OpenBare(bare)
	require.NoError(t, err)
	assert.False(t, repo.HasCommitish(third))

	require.NoError(t, cli.Fetch(ctx, bare))

	repo, err = OpenBare(bare)
	require.NoError(t, err)
	sha, err := repo.ResolveCommit("feature")
	require.NoError(t, err)
	assert.Equal(t, third, sha)
}

func TestWorktreeLifecycle(t *testing.T) {
	fixture, cli, bare := cloneFixture(t)
	ctx := context.Background()
	tree := filepath.Join(filepath.Dir(bare), "trees", fixture.FirstSHA[:12])
	require.NoError(t, os.MkdirAll(filepath.Dir(tree), 0o755))

	require.NoError(t, cli.AddWorktree(ctx, bare, tree, fixture.FirstSHA))
	assert.Equal(t, testutil.FirstReadme, testutil.ReadFile(t, tree, "README.md"))

	worktrees, err := cli.ListWorktrees(ctx, bare)
	require.NoError(t, err)
	require.Len(t, worktrees, 2)
	assert.Equal(t, fixture.FirstSHA, worktrees[1].Head)

	require.NoError(t, cli.RemoveWorktree(ctx, bare, tree))
	_, err = os.Stat(tree)
	assert.True(t, os.IsNotExist(err))

	err = cli.RemoveWorktree(ctx, bare, tree)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWorktreeNotFound)
}

func TestAddWorktree_StaleRegistration(t *testing.T) {
	fixture, cli, bare := cloneFixture(t)
	ctx := context.Background()
	tree := filepath.Join(filepath.Dir(bare), "trees", fixture.SecondSHA[:12])
	require.NoError(t, os.MkdirAll(filepath.Dir(tree), 0o755))

	require.NoError(t, cli.AddWorktree(ctx, bare, tree, fixture.SecondSHA))
	require.NoError(t, os.RemoveAll(tree))

	err := cli.AddWorktree(ctx, bare, tree, fixture.SecondSHA)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWorktreeRegistered)

	require.NoError(t, cli.PruneWorktrees(ctx, bare))
	require.NoError(t, cli.AddWorktree(ctx, bare, tree, fixture.SecondSHA))
}
