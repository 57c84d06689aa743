package repocache

import (
	"context"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"
	platformerrors "github.com/jmgilman/reposandbox/errors"
	"github.com/jmgilman/reposandbox/git"
)

// EnsureCache makes sure cachePath holds a bare clone of cloneURL.
//
// An existing clone (one with a HEAD file) is kept as is. Anything else at
// cachePath is the remnant of an interrupted clone and is removed before
// cloning again. The caller must hold the lock for cachePath.
func (c *Cache) EnsureCache(ctx context.Context, cachePath, cloneURL string) error {
	if _, err := os.Stat(filepath.Join(cachePath, "HEAD")); err == nil {
		return nil
	}

	if err := os.RemoveAll(cachePath); err != nil {
		return platformerrors.Wrapf(err, platformerrors.CodeInternal, "failed to remove partial clone at %s", cachePath)
	}
	base := filepath.Dir(cachePath)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return platformerrors.Wrapf(err, platformerrors.CodeInternal, "failed to create %s", base)
	}

	clog.FromContext(ctx).Infof("Cloning %s into %s", cloneURL, cachePath)
	if err := c.writer(base).CloneBare(ctx, cloneURL, cachePath); err != nil {
		_ = os.RemoveAll(cachePath)
		return err
	}
	return nil
}

// EnsureCommit makes commitish available locally, fetching branches and
// tags from origin if it is not already present. A full commit id that is
// still missing after that is requested directly.
//
// Fetch failures are logged and otherwise ignored: the commit may already
// be present, and ResolveSHA reports it if not. The caller must hold the
// lock for cachePath.
func (c *Cache) EnsureCommit(ctx context.Context, cachePath, commitish string) error {
	repo, err := git.OpenBare(cachePath)
	if err != nil {
		return err
	}
	if repo.HasCommitish(commitish) {
		return nil
	}

	log := clog.FromContext(ctx)
	cli := c.writer(filepath.Dir(cachePath))

	log.Infof("Fetching %s to find %q", cachePath, commitish)
	if err := cli.Fetch(ctx, cachePath); err != nil {
		log.Warnf("Fetch failed: %v", err)
	}

	if git.IsFullSHA(commitish) {
		if repo, err = git.OpenBare(cachePath); err == nil && !repo.HasCommitish(commitish) {
			if err := cli.FetchCommit(ctx, cachePath, commitish); err != nil {
				log.Warnf("Fetch of commit %s failed: %v", commitish, err)
			}
		}
	}
	return nil
}

// ResolveSHA resolves commitish to the full id of a commit in the bare
// clone at cachePath. Annotated tags are peeled. An empty commitish means
// HEAD.
//
// A commitish that names nothing fails with a *CommitishResolutionError
// (code CodeResolution). There is no fallback to HEAD.
func (c *Cache) ResolveSHA(ctx context.Context, cachePath, commitish string) (string, error) {
	repo, err := git.OpenBare(cachePath)
	if err != nil {
		return "", err
	}

	sha, err := repo.ResolveCommit(commitish)
	if err != nil {
		clog.FromContext(ctx).Infof("Could not resolve %q: %v", commitish, err)
		return "", platformerrors.WithContext(
			platformerrors.Wrapf(
				&CommitishResolutionError{Commitish: commitish, Err: err},
				platformerrors.CodeResolution,
				"failed to resolve commitish %q", commitish,
			),
			"commitish", commitish,
		)
	}
	return sha, nil
}
