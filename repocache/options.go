package repocache

import (
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/jmgilman/reposandbox/git"
	"github.com/jmgilman/reposandbox/isolation"
)

// DefaultGitTimeout bounds every clone, fetch and worktree operation.
const DefaultGitTimeout = 120 * time.Second

// Option configures a Cache.
type Option func(*options)

type options struct {
	runner     isolation.Runner
	git        git.Config
	gitTimeout time.Duration
	fs         billy.Filesystem // index storage, rooted at the cache root
	now        func() time.Time
}

// WithRunner sets the runner git invocations execute through. Defaults to
// isolation.Direct.
//
// Example:
//
//	c, err := repocache.New(root, repocache.WithRunner(isolation.NewBwrap()))
func WithRunner(r isolation.Runner) Option {
	return func(o *options) {
		o.runner = r
	}
}

// WithGit sets the git hardening configuration, including the protocols
// clone and fetch may use.
func WithGit(cfg git.Config) Option {
	return func(o *options) {
		o.git = cfg
	}
}

// WithGitTimeout bounds each git invocation.
func WithGitTimeout(d time.Duration) Option {
	return func(o *options) {
		o.gitTimeout = d
	}
}

// WithFilesystem sets the billy filesystem the worktree index is stored in.
// It must be rooted at the cache root. Defaults to osfs.
//
// This option is primarily useful for testing, allowing use of memfs.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithClock sets the time source used for index timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}
