package git

import (
	"context"
	"strings"

	platformerrors "github.com/jmgilman/reposandbox/errors"
)

// WorktreeInfo describes one entry of 'git worktree list --porcelain'.
type WorktreeInfo struct {
	// Path is the absolute filesystem path to the worktree
	Path string

	// Head is the commit hash that the worktree is currently at
	Head string

	// Branch is the checked out branch, empty if detached
	Branch string

	// Bare is set for the bare repository's own entry
	Bare bool

	// Prunable is set when git considers the worktree's directory gone
	Prunable bool
}

// AddWorktree creates a detached worktree for sha at path.
func (c *CLI) AddWorktree(ctx context.Context, barePath, path, sha string) error {
	inv := c.config.Command(barePath, "worktree", "add", "--detach", "--quiet", path, sha)
	if _, err := c.runner.RunGit(ctx, inv); err != nil {
		return mapExecError(err, platformerrors.CodeExecutionFailed, "failed to add worktree")
	}
	return nil
}

// RemoveWorktree unregisters the worktree at path and deletes its directory.
// Local modifications are discarded.
func (c *CLI) RemoveWorktree(ctx context.Context, barePath, path string) error {
	inv := c.config.Command(barePath, "worktree", "remove", "--force", path)
	if _, err := c.runner.RunGit(ctx, inv); err != nil {
		return mapExecError(err, platformerrors.CodeExecutionFailed, "failed to remove worktree")
	}
	return nil
}

// PruneWorktrees drops registrations whose directories no longer exist.
func (c *CLI) PruneWorktrees(ctx context.Context, barePath string) error {
	inv := c.config.Command(barePath, "worktree", "prune")
	if _, err := c.runner.RunGit(ctx, inv); err != nil {
		return mapExecError(err, platformerrors.CodeExecutionFailed, "failed to prune worktrees")
	}
	return nil
}

// ListWorktrees returns every worktree registered with the bare repository,
// including the bare repository itself.
func (c *CLI) ListWorktrees(ctx context.Context, barePath string) ([]WorktreeInfo, error) {
	inv := c.config.Command(barePath, "worktree", "list", "--porcelain")
	result, err := c.runner.RunGit(ctx, inv)
	if err != nil {
		return nil, mapExecError(err, platformerrors.CodeExecutionFailed, "failed to list worktrees")
	}
	return parseWorktreeListPorcelain(result.Stdout), nil
}

// parseWorktreeListPorcelain parses the output of 'git worktree list --porcelain'.
//
// The porcelain format looks like:
//
//	worktree /cache/slug/bare
//	bare
//
//	worktree /cache/slug/trees/0123456789ab
//	HEAD 0123456789abcdef...
//	detached
//	prunable gitdir file points to non-existent location
func parseWorktreeListPorcelain(output string) []WorktreeInfo {
	var worktrees []WorktreeInfo
	var current *WorktreeInfo

	flush := func() {
		if current != nil {
			worktrees = append(worktrees, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			flush()
			current = &WorktreeInfo{Path: strings.TrimPrefix(line, "worktree ")}
		case current == nil:
			continue
		case strings.HasPrefix(line, "HEAD "):
			current.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			current.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		case line == "bare":
			current.Bare = true
		case line == "prunable" || strings.HasPrefix(line, "prunable "):
			current.Prunable = true
		}
	}
	flush()

	return worktrees
}
