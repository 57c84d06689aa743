package git

import (
	"context"
	"path/filepath"
	"regexp"

	platformerrors "github.com/jmgilman/reposandbox/errors"
)

var fullSHA = regexp.MustCompile(`^[0-9a-f]{40}$`)

// IsFullSHA reports whether s is a full 40-character lowercase hex object id.
func IsFullSHA(s string) bool {
	return fullSHA.MatchString(s)
}

// CLI runs network and worktree-mutating git operations through a Runner.
type CLI struct {
	config Config
	runner Runner
}

// NewCLI creates a CLI that assembles invocations with config and executes
// them with runner.
func NewCLI(config Config, runner Runner) *CLI {
	return &CLI{config: config, runner: runner}
}

// CloneBare clones url as a bare repository at dest. Branch heads are
// mirrored onto local heads so later fetches keep every branch current.
func (c *CLI) CloneBare(ctx context.Context, url, dest string) error {
	if url == "" {
		return platformerrors.New(platformerrors.CodeInvalidInput, "clone URL is required")
	}

	inv := c.config.Command(filepath.Dir(dest), "clone", "--bare", "--quiet", "--", url, dest)
	if _, err := c.runner.RunGit(ctx, inv); err != nil {
		return mapExecError(err, platformerrors.CodeNetwork, "failed to clone repository")
	}

	inv = c.config.Command(dest, "config", "remote.origin.fetch", "+refs/heads/*:refs/heads/*")
	if _, err := c.runner.RunGit(ctx, inv); err != nil {
		return mapExecError(err, platformerrors.CodeInternal, "failed to configure fetch refspec")
	}

	return nil
}

// Fetch updates every branch and tag of the bare repository from origin.
func (c *CLI) Fetch(ctx context.Context, barePath string) error {
	inv := c.config.Command(barePath, "fetch", "--quiet", "--force", "--tags", "origin")
	if _, err := c.runner.RunGit(ctx, inv); err != nil {
		return mapExecError(err, platformerrors.CodeNetwork, "failed to fetch from origin")
	}
	return nil
}

// FetchCommit asks origin for a single commit by its full id. Servers that
// refuse unadvertised objects make this fail; callers treat that as a miss.
func (c *CLI) FetchCommit(ctx context.Context, barePath, sha string) error {
	if !IsFullSHA(sha) {
		return platformerrors.Newf(platformerrors.CodeInvalidInput, "not a full commit id: %q", sha)
	}

	inv := c.config.Command(barePath, "fetch", "--quiet", "origin", sha)
	if _, err := c.runner.RunGit(ctx, inv); err != nil {
		return mapExecError(err, platformerrors.CodeNetwork, "failed to fetch commit from origin")
	}
	return nil
}
