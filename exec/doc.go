// Package exec runs local commands with captured output and hard time limits.
//
// Command wraps os/exec behind the Executor interface. Every With* call
// returns a new executor, so a configured base can be shared between
// goroutines and specialised per call:
//
//	base := exec.New(exec.WithInheritEnv(), exec.WithOutputLimit(1<<20))
//	result, err := base.
//		WithDir(worktree).
//		WithTimeout(30 * time.Second).
//		Run("rg", "--line-number", "-e", pattern, "--", ".")
//
// # Timeouts
//
// A command that outlives its timeout is killed together with its whole
// process group. The result then reports TimedOut, an ExitCode of
// ExitCodeTimeout, and the returned error matches ErrTimeout:
//
//	if errors.Is(err, exec.ErrTimeout) {
//		// took too long, distinct from a tool failure
//	}
//
// # Command Wrappers
//
// A wrapper prepends a fixed argv prefix to every Run, which is how git
// hardening flags and sandbox launchers are layered on:
//
//	git := exec.NewWrapper(base, "git", "-c", "core.hooksPath=/dev/null")
//	result, err := git.WithDir(repo).Run("rev-parse", "HEAD")
package exec
