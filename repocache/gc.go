package repocache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
)

// StartGC starts a background collector that runs every interval. Each run
// removes worktrees not accessed within maxIdle, prunes stale worktree
// registrations, and deletes worktree directories git no longer knows.
// Failures are logged through the logger in ctx.
//
// Returns a function to stop the collector. It is safe to call multiple
// times and blocks until the collector has stopped.
//
// Example:
//
//	stop := c.StartGC(ctx, time.Hour, 24*time.Hour)
//	defer stop()
func (c *Cache) StartGC(ctx context.Context, interval, maxIdle time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.CollectGarbage(ctx, maxIdle)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}

// CollectGarbage runs one collection pass and returns the number of
// worktrees removed.
func (c *Cache) CollectGarbage(ctx context.Context, maxIdle time.Duration) int {
	c.barrier.RLock()
	defer c.barrier.RUnlock()

	log := clog.FromContext(ctx)
	removed := 0

	for _, rec := range c.index.idle(c.now().Add(-maxIdle)) {
		if ctx.Err() != nil {
			return removed
		}
		if c.removeWorktree(ctx, rec.Slug, rec.SHA, rec.Path) {
			removed++
		}
	}

	entries, err := os.ReadDir(c.root)
	if err != nil {
		log.Errorf("Failed to list cache root: %v", err)
		return removed
	}
	for _, entry := range entries {
		if !entry.IsDir() || ctx.Err() != nil {
			continue
		}
		removed += c.collectRepository(ctx, entry.Name())
	}

	if removed > 0 {
		log.Infof("Garbage collection removed %d worktrees", removed)
	}
	return removed
}

// collectRepository prunes one repository's worktree registrations and
// deletes directories under trees/ that are not registered worktrees.
func (c *Cache) collectRepository(ctx context.Context, slug string) int {
	base := c.basePath(slug)
	bare := barePath(base)
	log := clog.FromContext(ctx).With("slug", slug)

	if _, err := os.Stat(filepath.Join(bare, "HEAD")); err != nil {
		return 0
	}

	cli := c.writer(base)
	if err := cli.PruneWorktrees(ctx, bare); err != nil {
		log.Warnf("Failed to prune worktrees: %v", err)
		return 0
	}

	trees, err := os.ReadDir(filepath.Join(base, "trees"))
	if err != nil {
		return 0
	}

	removed := 0
	for _, entry := range trees {
		tree := filepath.Join(base, "trees", entry.Name())
		if c.removeOrphan(ctx, bare, tree) {
			removed++
		}
	}
	return removed
}

// removeOrphan deletes tree if git does not list it as a worktree. The
// listing is taken under the tree's lock so a checkout in progress is never
// mistaken for an orphan.
func (c *Cache) removeOrphan(ctx context.Context, bare, tree string) bool {
	log := clog.FromContext(ctx).With("worktree", tree)

	release, err := c.locks.acquire(ctx, tree)
	if err != nil {
		return false
	}
	defer release()

	worktrees, err := c.writer(filepath.Dir(bare)).ListWorktrees(ctx, bare)
	if err != nil {
		log.Warnf("Failed to list worktrees: %v", err)
		return false
	}
	for _, wt := range worktrees {
		if samePath(wt.Path, tree) {
			return false
		}
	}

	if err := os.RemoveAll(tree); err != nil {
		log.Errorf("Failed to remove orphaned worktree: %v", err)
		return false
	}
	log.Info("Removed orphaned worktree")
	return true
}

func samePath(a, b string) bool {
	if a == b {
		return true
	}
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	return errA == nil && errB == nil && ra == rb
}
