// Package git runs git against untrusted repositories.
//
// Two halves live here. The CLI half assembles hardened git invocations
// (clone, fetch, worktree add/remove/prune/list) and hands them to a Runner,
// which decides how the process is isolated. The go-git half opens a bare
// repository in-process to resolve commitishes without spawning anything.
//
// # Hardening
//
// Every invocation built by Config carries flags and environment that stop
// repository content from running code or reaching unexpected endpoints:
//
//   - hooks are disabled (core.hooksPath=/dev/null)
//   - the LFS smudge, clean and process filters are blanked and not required
//   - only allow-listed transport protocols are enabled (http and https by
//     default), which blocks file://, ext:: and ssh submodule URLs
//   - submodules are never recursed into
//
// # Worktrees
//
// Worktree operations use the git CLI for real linked worktrees that share
// the bare repository's object database:
//
//	cli := git.NewCLI(git.DefaultConfig(), runner)
//	if err := cli.AddWorktree(ctx, barePath, treePath, sha); err != nil {
//		return err
//	}
//
// # Commit Resolution
//
//	repo, err := git.OpenBare(barePath)
//	sha, err := repo.ResolveCommit("v1.0")
//
// Annotated tags are peeled to the commit they point at.
package git
