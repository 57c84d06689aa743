package access

import (
	"context"
	"encoding/json"

	"github.com/jmgilman/reposandbox/client"
	platformerrors "github.com/jmgilman/reposandbox/errors"
	"github.com/jmgilman/reposandbox/tools"
)

// Remote is a session backed by a sandboxed worker.
type Remote struct {
	client  *client.Client
	handles handles
}

// NewRemote creates a session that talks to the worker through c.
func NewRemote(c *client.Client) *Remote {
	return &Remote{client: c}
}

// Connect implements Session.
func (r *Remote) Connect(ctx context.Context, url, commitish string) (*Handle, error) {
	res, err := r.client.Clone(ctx, url, commitish)
	if err != nil {
		return nil, err
	}

	handle := &Handle{URL: url, Slug: res.Slug, SHA: res.SHA, Worktree: res.Worktree}
	r.handles.add(handle)
	return handle, nil
}

// ExecuteTool implements Session. cwd must be the worktree of a handle this
// session connected.
func (r *Remote) ExecuteTool(ctx context.Context, name string, args json.RawMessage, cwd string) string {
	handle, ok := r.handles.find(cwd)
	if !ok {
		return tools.ErrorText(platformerrors.Newf(platformerrors.CodeNotFound, "no connected repository at %q", cwd))
	}
	return r.client.ExecuteTool(ctx, handle.Slug, handle.SHA, name, args)
}

// Close implements Session. Worktrees on the worker are shared between
// sessions and reclaimed by its garbage collector, so Close only forgets
// them.
func (r *Remote) Close(context.Context) *CleanupTask {
	r.handles.drain()
	return startCleanup(func() (int, error) { return 0, nil })
}
