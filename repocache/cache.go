package repocache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	platformerrors "github.com/jmgilman/reposandbox/errors"
	"github.com/jmgilman/reposandbox/git"
	"github.com/jmgilman/reposandbox/isolation"
)

// Cache manages bare clones and per-commit worktrees under one root.
type Cache struct {
	root       string
	fs         billy.Filesystem
	git        git.Config
	runner     isolation.Runner
	gitTimeout time.Duration
	now        func() time.Time

	locks   lockTable
	barrier sync.RWMutex // write-held by Reset
	index   *worktreeIndex
}

// New creates a cache rooted at root, creating the directory if needed and
// loading the worktree index.
//
// Example:
//
//	c, err := repocache.New("/var/cache/reposandbox",
//	    repocache.WithRunner(isolation.NewBwrap()),
//	    repocache.WithGitTimeout(2*time.Minute))
func New(root string, opts ...Option) (*Cache, error) {
	o := &options{
		runner:     isolation.Direct{},
		git:        git.DefaultConfig(),
		gitTimeout: DefaultGitTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	if err := o.git.Validate(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, platformerrors.Wrapf(err, platformerrors.CodeInvalidConfig, "invalid cache root %q", root)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, platformerrors.Wrapf(err, platformerrors.CodeInternal, "failed to create cache root %s", abs)
	}
	// Symlinks in the root would defeat the prefix checks done on paths
	// handed out by the cache.
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	if o.fs == nil {
		o.fs = osfs.New(abs)
	}

	return &Cache{
		root:       abs,
		fs:         o.fs,
		git:        o.git,
		runner:     o.runner,
		gitTimeout: o.gitTimeout,
		now:        o.now,
		index:      loadIndex(context.Background(), o.fs),
	}, nil
}

// Root returns the absolute cache root.
func (c *Cache) Root() string {
	return c.root
}

func (c *Cache) basePath(slug string) string {
	return filepath.Join(c.root, slug)
}

func barePath(basePath string) string {
	return filepath.Join(basePath, "bare")
}

func worktreePath(basePath, sha string) string {
	return filepath.Join(basePath, "trees", shortSHA(sha))
}

// writer returns a CLI whose invocations run under the git-write class with
// basePath writable.
func (c *Cache) writer(basePath string) *git.CLI {
	spec := isolation.Spec{
		Class: isolation.ClassGitWrite,
		Paths: isolation.Paths{Root: c.root, Cache: basePath},
	}
	return git.NewCLI(c.git, isolation.GitRunner(c.runner, spec, c.gitTimeout))
}

// Connect provisions a worktree for commitish of the repository at url and
// returns its handle. An empty commitish means the default branch.
//
// The bare clone is created or refreshed under the clone lock; the commit
// is then resolved and its worktree created under the worktree's own lock,
// so different commits of one repository check out in parallel.
func (c *Cache) Connect(ctx context.Context, url, commitish string) (*Handle, error) {
	if url == "" {
		return nil, platformerrors.New(platformerrors.CodeInvalidInput, "repository URL is required")
	}
	slug := Slug(url)
	if slug == "" {
		return nil, platformerrors.Newf(platformerrors.CodeInvalidInput, "cannot derive a cache name from URL %q", url)
	}

	c.barrier.RLock()
	defer c.barrier.RUnlock()

	ctx = clog.WithLogger(ctx, clog.FromContext(ctx).With("slug", slug, "commitish", commitish))
	base := c.basePath(slug)
	bare := barePath(base)

	release, err := c.locks.acquire(ctx, bare)
	if err != nil {
		return nil, err
	}
	err = c.EnsureCache(ctx, bare, url)
	if err == nil {
		err = c.EnsureCommit(ctx, bare, commitish)
	}
	release()
	if err != nil {
		return nil, err
	}

	sha, err := c.ResolveSHA(ctx, bare, commitish)
	if err != nil {
		return nil, err
	}

	release, err = c.locks.acquire(ctx, worktreePath(base, sha))
	if err != nil {
		return nil, err
	}
	tree, err := c.EnsureWorktree(ctx, base, sha)
	release()
	if err != nil {
		return nil, err
	}

	c.index.record(WorktreeRecord{URL: url, Slug: slug, SHA: sha, Path: tree}, c.now())
	c.saveIndex(ctx)

	return &Handle{
		URL:       url,
		Slug:      slug,
		LocalPath: tree,
		SHA:       sha,
		CachePath: bare,
	}, nil
}

// Lookup returns the handle of an existing worktree. slug must be a value
// Slug produces and sha a commit id of 12 to 40 hex characters. A missing
// worktree is a CodeNotFound error.
func (c *Cache) Lookup(slug, sha string) (*Handle, error) {
	if !ValidSlug(slug) {
		return nil, platformerrors.Newf(platformerrors.CodeInvalidInput, "invalid slug %q", slug)
	}
	if !ValidSHA(sha) {
		return nil, platformerrors.Newf(platformerrors.CodeInvalidInput, "invalid sha %q", sha)
	}

	c.barrier.RLock()
	defer c.barrier.RUnlock()

	base := c.basePath(slug)
	tree := worktreePath(base, sha)
	if _, err := os.Stat(filepath.Join(tree, ".git")); err != nil {
		return nil, platformerrors.WithContextMap(
			platformerrors.New(platformerrors.CodeNotFound, "worktree not found; clone first"),
			map[string]interface{}{"slug": slug, "sha": sha},
		)
	}

	key := indexKey(slug, sha)
	c.index.touch(key, c.now())

	h := &Handle{Slug: slug, LocalPath: tree, SHA: sha, CachePath: barePath(base)}
	if rec, ok := c.index.get(key); ok {
		h.URL = rec.URL
		h.SHA = rec.SHA
	}
	return h, nil
}

// Reset removes every repository and worktree and leaves an empty root.
// It waits for in-flight operations to finish and blocks new ones until
// done.
func (c *Cache) Reset(ctx context.Context) error {
	c.barrier.Lock()
	defer c.barrier.Unlock()

	entries, err := os.ReadDir(c.root)
	if err != nil && !os.IsNotExist(err) {
		return platformerrors.Wrap(err, platformerrors.CodeInternal, "failed to read cache root")
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(c.root, entry.Name())); err != nil {
			return platformerrors.Wrapf(err, platformerrors.CodeInternal, "failed to remove %s", entry.Name())
		}
	}
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return platformerrors.Wrap(err, platformerrors.CodeInternal, "failed to recreate cache root")
	}

	c.index.reset()
	if err := c.index.save(c.fs); err != nil {
		return platformerrors.Wrap(err, platformerrors.CodeInternal, "failed to save worktree index")
	}

	clog.InfoContextf(ctx, "Reset repository cache at %s", c.root)
	return nil
}

// saveIndex persists the index, logging failures. The index only drives
// garbage collection, so a failed save never fails the caller.
func (c *Cache) saveIndex(ctx context.Context) {
	if err := c.index.save(c.fs); err != nil {
		clog.FromContext(ctx).Warnf("Failed to save worktree index: %v", err)
	}
}
