package git

import (
	"errors"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	platformerrors "github.com/jmgilman/reposandbox/errors"
	"github.com/jmgilman/reposandbox/exec"
)

// MaxStderr is how much git stderr is kept on returned errors.
const MaxStderr = 500

var (
	// ErrWorktreeRegistered means a worktree path is still registered with
	// the bare repository although its directory is gone.
	ErrWorktreeRegistered = errors.New("worktree path is already registered")

	// ErrWorktreeNotFound means git does not know the worktree path.
	ErrWorktreeNotFound = errors.New("worktree not found")

	// ErrProtocolBlocked means the remote URL uses a transport outside the
	// allow-list.
	ErrProtocolBlocked = errors.New("transport protocol not allowed")
)

// wrapError classifies a go-git error and wraps it with context.
// If err is nil, returns nil.
func wrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, classifyError(err))
}

// classifyError maps go-git errors to platform error types, keeping the
// original error in the chain. Unknown errors pass through unchanged.
func classifyError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gogit.ErrRepositoryNotExists):
		return platformerrors.Wrap(err, platformerrors.CodeNotFound, "repository does not exist")
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		return platformerrors.Wrap(err, platformerrors.CodeNotFound, "reference not found")
	case errors.Is(err, plumbing.ErrObjectNotFound):
		return platformerrors.Wrap(err, platformerrors.CodeNotFound, "object not found")
	default:
		return err
	}
}

// mapExecError converts a failed git invocation into a platform error with
// code, recognising a few stderr patterns. Timeouts always map to
// CodeTimeout. The truncated stderr and exit code are attached as context.
func mapExecError(err error, code platformerrors.ErrorCode, context string) error {
	var execErr *exec.ExecError
	if !errors.As(err, &execErr) {
		return platformerrors.Wrap(err, code, context)
	}

	if execErr.TimedOut() {
		return platformerrors.WithContext(
			platformerrors.Wrap(err, platformerrors.CodeTimeout, context+": timed out"),
			"exitCode", execErr.ExitCode,
		)
	}

	stderr := strings.TrimSpace(execErr.Stderr)
	cause := error(execErr)
	switch {
	case strings.Contains(stderr, "is a missing but already registered worktree"),
		strings.Contains(stderr, "is a missing but locked worktree"):
		cause = fmt.Errorf("%w: %v", ErrWorktreeRegistered, execErr)
	case strings.Contains(stderr, "is not a working tree"):
		cause = fmt.Errorf("%w: %v", ErrWorktreeNotFound, execErr)
	case strings.Contains(stderr, "transport '") && strings.Contains(stderr, "not allowed"):
		cause = fmt.Errorf("%w: %v", ErrProtocolBlocked, execErr)
		code = platformerrors.CodeForbidden
	}

	return platformerrors.WithContextMap(platformerrors.Wrap(cause, code, context), map[string]interface{}{
		"stderr":   platformerrors.Truncate(stderr, MaxStderr),
		"exitCode": execErr.ExitCode,
	})
}
