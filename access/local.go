package access

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/chainguard-dev/clog"
	platformerrors "github.com/jmgilman/reposandbox/errors"
	"github.com/jmgilman/reposandbox/isolation"
	"github.com/jmgilman/reposandbox/repocache"
	"github.com/jmgilman/reposandbox/tools"
	"golang.org/x/sync/errgroup"
)

// DefaultLocalRoot is the cache root local sessions use by default:
// reposandbox under the user's cache directory.
func DefaultLocalRoot() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "no user cache directory")
	}
	return filepath.Join(dir, "reposandbox"), nil
}

// Local is an in-process session. It runs git and tools directly on the
// host and must only be pointed at trusted repositories.
type Local struct {
	cache   *repocache.Cache
	tools   *tools.Dispatcher
	handles handles
}

// NewLocal creates a session over an existing cache and dispatcher.
func NewLocal(cache *repocache.Cache, dispatcher *tools.Dispatcher) *Local {
	return &Local{cache: cache, tools: dispatcher}
}

// OpenLocal creates a session with its own cache at root, running every
// command through isolation.Direct.
func OpenLocal(root string, opts ...repocache.Option) (*Local, error) {
	opts = append([]repocache.Option{repocache.WithRunner(isolation.Direct{})}, opts...)
	cache, err := repocache.New(root, opts...)
	if err != nil {
		return nil, err
	}
	return NewLocal(cache, tools.New(cache.Root(), tools.WithRunner(isolation.Direct{}))), nil
}

// Cache returns the session's cache.
func (l *Local) Cache() *repocache.Cache {
	return l.cache
}

// Connect implements Session.
func (l *Local) Connect(ctx context.Context, url, commitish string) (*Handle, error) {
	h, err := l.cache.Connect(ctx, url, commitish)
	if err != nil {
		return nil, err
	}

	handle := &Handle{URL: h.URL, Slug: h.Slug, SHA: h.SHA, Worktree: h.LocalPath}
	l.handles.add(handle)
	return handle, nil
}

// ExecuteTool implements Session. Any worktree under the cache root is
// accepted as cwd, not only those this session connected.
func (l *Local) ExecuteTool(ctx context.Context, name string, args json.RawMessage, cwd string) string {
	if cwd == "" {
		handle, ok := l.handles.find("")
		if !ok {
			return tools.ErrorText(platformerrors.New(platformerrors.CodeInvalidInput, "no repository connected"))
		}
		cwd = handle.Worktree
	}

	out, err := l.tools.Run(ctx, cwd, name, args)
	if err != nil {
		return tools.ErrorText(err)
	}
	return out
}

// Close implements Session. It removes every worktree the session
// connected. A worktree still on disk afterwards fails the task.
func (l *Local) Close(ctx context.Context) *CleanupTask {
	tracked := l.handles.drain()
	ctx = context.WithoutCancel(ctx)

	task := startCleanup(func() (int, error) {
		var removed atomic.Int32
		var g errgroup.Group
		for _, h := range tracked {
			g.Go(func() error {
				if l.cache.RemoveWorktree(ctx, &repocache.Handle{
					URL:       h.URL,
					Slug:      h.Slug,
					SHA:       h.SHA,
					LocalPath: h.Worktree,
				}) {
					removed.Add(1)
					return nil
				}
				if _, err := os.Stat(h.Worktree); err == nil {
					return platformerrors.Newf(platformerrors.CodeInternal, "worktree %s could not be removed", h.Worktree)
				}
				return nil
			})
		}
		err := g.Wait()
		return int(removed.Load()), err
	})

	go func() {
		if err := task.Wait(); err != nil {
			clog.FromContext(ctx).Errorf("Session cleanup failed: %v", err)
			return
		}
		clog.FromContext(ctx).Debugf("Session cleanup removed %d worktrees", task.Removed())
	}()

	return task
}
