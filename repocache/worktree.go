package repocache

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"
	platformerrors "github.com/jmgilman/reposandbox/errors"
	"github.com/jmgilman/reposandbox/git"
)

// EnsureWorktree makes sure a detached worktree of sha exists under
// basePath and returns its path, {basePath}/trees/{sha[:12]}.
//
// An existing worktree is reused. A directory without a .git link is left
// over from an interrupted checkout and is replaced. If git still has the
// path registered from an earlier worktree, stale registrations are pruned
// and the checkout retried once. The caller must hold the lock for the
// returned path.
func (c *Cache) EnsureWorktree(ctx context.Context, basePath, sha string) (string, error) {
	if !git.IsFullSHA(sha) {
		return "", platformerrors.Newf(platformerrors.CodeInvalidInput, "not a full commit id: %q", sha)
	}

	tree := worktreePath(basePath, sha)
	if _, err := os.Stat(filepath.Join(tree, ".git")); err == nil {
		return tree, nil
	}

	if err := os.RemoveAll(tree); err != nil {
		return "", platformerrors.Wrapf(err, platformerrors.CodeInternal, "failed to remove partial worktree at %s", tree)
	}
	if err := os.MkdirAll(filepath.Dir(tree), 0o755); err != nil {
		return "", platformerrors.Wrapf(err, platformerrors.CodeInternal, "failed to create %s", filepath.Dir(tree))
	}

	bare := barePath(basePath)
	cli := c.writer(basePath)

	err := cli.AddWorktree(ctx, bare, tree, sha)
	if errors.Is(err, git.ErrWorktreeRegistered) {
		clog.FromContext(ctx).Infof("Pruning stale worktree registration for %s", tree)
		if err := cli.PruneWorktrees(ctx, bare); err != nil {
			return "", err
		}
		err = cli.AddWorktree(ctx, bare, tree, sha)
	}
	if err != nil {
		return "", err
	}

	return tree, nil
}

// RemoveWorktree deletes the worktree of h and drops it from the index. It
// reports whether a worktree was removed: true the first time, false once
// it is gone. Failures are logged.
func (c *Cache) RemoveWorktree(ctx context.Context, h *Handle) bool {
	if h == nil || h.LocalPath == "" {
		return false
	}

	c.barrier.RLock()
	defer c.barrier.RUnlock()

	return c.removeWorktree(ctx, h.Slug, h.SHA, h.LocalPath)
}

// removeWorktree is RemoveWorktree without the barrier.
func (c *Cache) removeWorktree(ctx context.Context, slug, sha, tree string) bool {
	log := clog.FromContext(ctx).With("worktree", tree)

	release, err := c.locks.acquire(ctx, tree)
	if err != nil {
		log.Warnf("Not removing worktree: %v", err)
		return false
	}
	defer release()

	if slug != "" && sha != "" {
		defer func() {
			c.index.delete(indexKey(slug, sha))
			c.saveIndex(ctx)
		}()
	}

	if _, err := os.Stat(tree); os.IsNotExist(err) {
		return false
	}

	base := filepath.Dir(filepath.Dir(tree))
	bare := barePath(base)
	cli := c.writer(base)

	if err := cli.RemoveWorktree(ctx, bare, tree); err != nil {
		log.Warnf("git worktree remove failed, deleting directory: %v", err)
		if err := os.RemoveAll(tree); err != nil {
			log.Errorf("Failed to delete worktree directory: %v", err)
			return false
		}
		if err := cli.PruneWorktrees(ctx, bare); err != nil {
			log.Warnf("Failed to prune worktrees: %v", err)
		}
	}

	log.Info("Removed worktree")
	return true
}
