package access

import (
	"context"
	"encoding/json"
	"sync"
)

// Handle identifies a worktree prepared by Connect.
type Handle struct {
	URL      string `json:"url"`
	Slug     string `json:"slug"`
	SHA      string `json:"sha"`
	Worktree string `json:"worktree"`
}

// Session connects to repositories and runs tools in their worktrees.
type Session interface {
	// Connect prepares a worktree of url at commitish. An empty commitish
	// means the default branch.
	Connect(ctx context.Context, url, commitish string) (*Handle, error)

	// ExecuteTool runs a tool in cwd, the Worktree of a Handle returned by
	// Connect. An empty cwd means the most recently connected worktree.
	// Failures are returned as text beginning with "Error: ".
	ExecuteTool(ctx context.Context, name string, args json.RawMessage, cwd string) string

	// Close releases the session's worktrees in the background.
	Close(ctx context.Context) *CleanupTask
}

var (
	_ Session = (*Local)(nil)
	_ Session = (*Remote)(nil)
)

// handles tracks the worktrees a session has connected, in order.
type handles struct {
	mu    sync.Mutex
	order []*Handle
	byDir map[string]*Handle
}

func (h *handles) add(handle *Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.byDir == nil {
		h.byDir = make(map[string]*Handle)
	}
	if _, ok := h.byDir[handle.Worktree]; !ok {
		h.order = append(h.order, handle)
	}
	h.byDir[handle.Worktree] = handle
}

func (h *handles) find(cwd string) (*Handle, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cwd == "" {
		if len(h.order) == 0 {
			return nil, false
		}
		return h.order[len(h.order)-1], true
	}
	handle, ok := h.byDir[cwd]
	return handle, ok
}

// drain returns every tracked handle and forgets them.
func (h *handles) drain() []*Handle {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := h.order
	h.order = nil
	h.byDir = nil
	return out
}
