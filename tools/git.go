package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	platformerrors "github.com/jmgilman/reposandbox/errors"
	"github.com/jmgilman/reposandbox/isolation"
)

// Read-only git subcommands the git tool accepts.
var allowedGitCommands = map[string]bool{
	"log":       true,
	"show":      true,
	"blame":     true,
	"diff":      true,
	"shortlog":  true,
	"describe":  true,
	"rev-parse": true,
	"ls-tree":   true,
	"cat-file":  true,
}

// Flags that make an allowed subcommand read outside the repository, write
// files, or run external programs. Each is rejected bare and as --flag=value.
var blockedGitFlags = []string{
	"--no-index",
	"--output",
	"--ext-diff",
	"--textconv",
	"--filters",
	"--contents",
	"--ignore-revs-file",
	"--orderfile",
}

func validateGit(a *GitArgs) error {
	if !allowedGitCommands[a.Command] {
		return platformerrors.WithContext(
			platformerrors.Newf(platformerrors.CodeForbidden, "git subcommand %q is not allowed", a.Command),
			"allowed", "log, show, blame, diff, shortlog, describe, rev-parse, ls-tree, cat-file",
		)
	}

	for _, arg := range a.Args {
		if strings.HasPrefix(arg, "-") {
			if flag, blocked := blockedGitFlag(a.Command, arg); blocked {
				return platformerrors.Newf(platformerrors.CodeForbidden, "git flag %q is not allowed", flag)
			}
			continue
		}
		if filepath.IsAbs(arg) || strings.HasPrefix(arg, "~") {
			return platformerrors.Newf(platformerrors.CodePathTraversal, "git argument %q must be relative to the repository", arg)
		}
		if strings.Contains(arg, "..") {
			return platformerrors.Newf(platformerrors.CodePathTraversal, "git argument %q must not contain \"..\"", arg)
		}
	}
	return nil
}

// blockedGitFlag reports whether arg names a flag that reads a host file.
// Short file flags are matched in their attached (-Ofile) and clustered
// (-wSfile) forms.
func blockedGitFlag(command, arg string) (string, bool) {
	for _, flag := range blockedGitFlags {
		if arg == flag || strings.HasPrefix(arg, flag+"=") {
			return flag, true
		}
	}
	if strings.HasPrefix(arg, "--") {
		return "", false
	}

	// -O<orderfile> is a diff option shared by log, show and diff.
	if strings.HasPrefix(arg, "-O") {
		return "-O", true
	}
	// blame -S <revs-file>; log uses -S for the pickaxe.
	if command == "blame" && strings.ContainsRune(arg[1:], 'S') {
		return "-S", true
	}
	return "", false
}

func (d *Dispatcher) git(ctx context.Context, tree string, a *GitArgs) (string, error) {
	bare, err := d.bareFor(tree)
	if err != nil {
		return "", err
	}

	inv := d.gitConfig.Command(tree, append([]string{a.Command}, a.Args...)...)
	spec := isolation.Spec{
		Class: isolation.ClassGitRead,
		Paths: isolation.Paths{Root: d.root, Worktree: tree, Bare: bare},
	}
	result, err := d.runner.Run(ctx, spec, isolation.Command{
		Args:        inv.Args,
		Dir:         tree,
		Env:         inv.Env,
		Timeout:     d.gitTimeout,
		OutputLimit: d.maxOutput,
	})
	if err != nil {
		return "", commandError(ToolGit, result, err)
	}
	return formatOutput(result, d.maxOutput), nil
}

// bareFor finds the repository a worktree belongs to. A worktree's .git is
// a file naming {bare}/worktrees/{name}; the bare repository must lie within
// the cache root.
func (d *Dispatcher) bareFor(tree string) (string, error) {
	data, err := os.ReadFile(filepath.Join(tree, ".git"))
	if err != nil {
		return "", platformerrors.Wrap(err, platformerrors.CodeNotFound, "worktree has no git link")
	}

	gitdir, ok := strings.CutPrefix(strings.TrimSpace(string(data)), "gitdir: ")
	if !ok {
		return "", platformerrors.New(platformerrors.CodeInvalidInput, "worktree git link is malformed")
	}
	if !filepath.IsAbs(gitdir) {
		gitdir = filepath.Join(tree, gitdir)
	}

	bare := filepath.Dir(filepath.Dir(filepath.Clean(gitdir)))
	if resolved, err := filepath.EvalSymlinks(bare); err == nil {
		bare = resolved
	}
	if !within(d.root, bare) {
		return "", platformerrors.New(platformerrors.CodeForbidden, "worktree repository is outside the cache")
	}
	return bare, nil
}
