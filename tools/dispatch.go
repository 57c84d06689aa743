package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chainguard-dev/clog"
	platformerrors "github.com/jmgilman/reposandbox/errors"
	"github.com/jmgilman/reposandbox/exec"
	"github.com/jmgilman/reposandbox/git"
	"github.com/jmgilman/reposandbox/isolation"
)

const (
	// DefaultTimeout bounds rg, find, ls and read.
	DefaultTimeout = 30 * time.Second

	// DefaultGitTimeout bounds the git tool.
	DefaultGitTimeout = 120 * time.Second

	// DefaultMaxOutputBytes caps the output returned by any tool.
	DefaultMaxOutputBytes = 256 << 10

	// DefaultMaxReadBytes caps how much of a file read returns.
	DefaultMaxReadBytes = 100 << 10
)

// NoOutput is returned in place of empty output.
const NoOutput = "(no output)"

// Dispatcher validates tool invocations and runs them in a worktree.
type Dispatcher struct {
	root       string
	runner     isolation.Runner
	gitConfig  git.Config
	timeout    time.Duration
	gitTimeout time.Duration
	maxOutput  int
	maxRead    int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRunner sets the runner tools execute through. Defaults to
// isolation.Direct.
func WithRunner(r isolation.Runner) Option {
	return func(d *Dispatcher) { d.runner = r }
}

// WithGit sets the hardening configuration for the git tool.
func WithGit(cfg git.Config) Option {
	return func(d *Dispatcher) { d.gitConfig = cfg }
}

// WithTimeout bounds rg, find, ls and read.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithGitTimeout bounds the git tool.
func WithGitTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.gitTimeout = timeout }
}

// WithMaxOutputBytes caps tool output.
func WithMaxOutputBytes(n int) Option {
	return func(d *Dispatcher) { d.maxOutput = n }
}

// WithMaxReadBytes caps how much of a file read returns.
func WithMaxReadBytes(n int) Option {
	return func(d *Dispatcher) { d.maxRead = n }
}

// New creates a Dispatcher for worktrees under root, the cache root.
func New(root string, opts ...Option) *Dispatcher {
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	d := &Dispatcher{
		root:       filepath.Clean(root),
		runner:     isolation.Direct{},
		gitConfig:  git.DefaultConfig(),
		timeout:    DefaultTimeout,
		gitTimeout: DefaultGitTimeout,
		maxOutput:  DefaultMaxOutputBytes,
		maxRead:    DefaultMaxReadBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes the named tool in worktree and returns its output.
//
// Validation failures are CodeInvalidInput, CodePathTraversal or
// CodeForbidden errors and run nothing. A tool that exits non-zero yields a
// CodeExecutionFailed error carrying exitCode and stderr context; one that
// runs out of time yields CodeTimeout with exitCode 124.
func (d *Dispatcher) Run(ctx context.Context, worktree, name string, raw json.RawMessage) (string, error) {
	args, err := ParseArgs(name, raw)
	if err != nil {
		return "", err
	}

	tree, err := d.checkWorktree(worktree)
	if err != nil {
		return "", err
	}

	clog.FromContext(ctx).With("tool", name, "worktree", tree).Debug("Running tool")

	switch a := args.(type) {
	case *RgArgs:
		return d.rg(ctx, tree, a)
	case *FindArgs:
		return d.find(ctx, tree, a)
	case *LsArgs:
		return d.ls(ctx, tree, a)
	case *ReadArgs:
		return d.read(ctx, tree, a)
	case *GitArgs:
		return d.git(ctx, tree, a)
	default:
		return "", platformerrors.Newf(platformerrors.CodeInternal, "no handler for tool %q", name)
	}
}

// checkWorktree verifies that worktree is a checkout under the cache root
// and returns it with symlinks resolved.
func (d *Dispatcher) checkWorktree(worktree string) (string, error) {
	if !filepath.IsAbs(worktree) {
		return "", platformerrors.Newf(platformerrors.CodeInvalidInput, "worktree must be an absolute path: %q", worktree)
	}
	tree, err := filepath.EvalSymlinks(filepath.Clean(worktree))
	if err != nil {
		return "", platformerrors.Wrap(err, platformerrors.CodeNotFound, "worktree not found")
	}
	if tree == d.root || !within(d.root, tree) {
		return "", platformerrors.Newf(platformerrors.CodeForbidden, "worktree %q is outside the cache", worktree)
	}
	if _, err := os.Stat(filepath.Join(tree, ".git")); err != nil {
		return "", platformerrors.Wrap(err, platformerrors.CodeNotFound, "not a worktree")
	}
	return tree, nil
}

func (d *Dispatcher) toolSpec(tree string) isolation.Spec {
	return isolation.Spec{
		Class: isolation.ClassToolRead,
		Paths: isolation.Paths{Root: d.root, Worktree: tree},
	}
}

func (d *Dispatcher) run(ctx context.Context, tree string, limit int, argv ...string) (*exec.Result, error) {
	return d.runner.Run(ctx, d.toolSpec(tree), isolation.Command{
		Args:        argv,
		Dir:         tree,
		Timeout:     d.timeout,
		OutputLimit: limit,
	})
}

func (d *Dispatcher) rg(ctx context.Context, tree string, a *RgArgs) (string, error) {
	argv := []string{
		"rg",
		"--line-number",
		"--no-heading",
		"--color", "never",
		"--max-columns", "500",
		"--max-filesize", "10M",
	}
	if a.Glob != "" {
		argv = append(argv, "--glob", a.Glob)
	}
	argv = append(argv, "-e", a.Pattern, "--", ".")

	result, err := d.run(ctx, tree, d.maxOutput, argv...)
	if err != nil {
		// rg exits 1 without output when nothing matched.
		if result != nil && !result.TimedOut && result.ExitCode == 1 && strings.TrimSpace(result.Stderr) == "" {
			return NoOutput, nil
		}
		return "", commandError(ToolRg, result, err)
	}
	return formatOutput(result, d.maxOutput), nil
}

func (d *Dispatcher) find(ctx context.Context, tree string, a *FindArgs) (string, error) {
	argv := []string{"find", ".", "-not", "-path", "./.git", "-not", "-path", "*/.git/*"}
	if a.Type != "" {
		argv = append(argv, "-type", a.Type)
	}
	argv = append(argv, "-iname", "*"+escapeGlob(a.Pattern)+"*")

	result, err := d.run(ctx, tree, d.maxOutput, argv...)
	if err != nil {
		return "", commandError(ToolFind, result, err)
	}
	return formatOutput(result, d.maxOutput), nil
}

func (d *Dispatcher) ls(ctx context.Context, tree string, a *LsArgs) (string, error) {
	path, err := resolvePath(tree, a.Path)
	if err != nil {
		return "", err
	}

	result, err := d.run(ctx, tree, d.maxOutput, "ls", "-la", "--", path)
	if err != nil {
		return "", commandError(ToolLs, result, err)
	}
	return formatOutput(result, d.maxOutput), nil
}

func (d *Dispatcher) read(ctx context.Context, tree string, a *ReadArgs) (string, error) {
	path, err := resolvePath(tree, a.Path)
	if err != nil {
		return "", err
	}

	limit := d.maxRead + 1
	result, err := d.run(ctx, tree, max(limit, d.maxOutput), "head", "-c", strconv.Itoa(limit), "--", path)
	if err != nil {
		return "", commandError(ToolRead, result, err)
	}

	if len(result.Stdout) > d.maxRead {
		shown := cutAtRune(result.Stdout, d.maxRead)
		return shown + fmt.Sprintf("\n\n[file truncated: showing first %d bytes]", len(shown)), nil
	}
	if result.Stdout == "" {
		return NoOutput, nil
	}
	return result.Stdout, nil
}

// cutAtRune shortens s to at most n bytes without splitting a UTF-8
// sequence. Binary content is cut at n.
func cutAtRune(s string, n int) string {
	for i := n; i > 0 && i > n-utf8.UTFMax; i-- {
		if utf8.RuneStart(s[i]) {
			return s[:i]
		}
	}
	return s[:n]
}

// escapeGlob makes pattern match literally inside a find -name glob.
func escapeGlob(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// formatOutput returns stdout, NoOutput when it is empty, and marks output
// cut at the limit.
func formatOutput(result *exec.Result, limit int) string {
	out := result.Stdout
	if out == "" {
		return NoOutput
	}
	if result.Truncated {
		out += fmt.Sprintf("\n\n[output truncated at %d bytes]", limit)
	}
	return out
}

// commandError converts a failed run into a platform error. Timeouts map to
// CodeTimeout, non-zero exits to CodeExecutionFailed; both carry exitCode.
func commandError(tool string, result *exec.Result, err error) error {
	var execErr *exec.ExecError
	switch {
	case result != nil && result.TimedOut:
		return platformerrors.WithContextMap(
			platformerrors.Wrapf(err, platformerrors.CodeTimeout, "%s timed out", tool),
			map[string]interface{}{"exitCode": exec.ExitCodeTimeout},
		)
	case errors.As(err, &execErr) && execErr.ExitCode >= 0:
		return platformerrors.WithContextMap(
			platformerrors.Wrapf(err, platformerrors.CodeExecutionFailed, "%s exited with code %d", tool, execErr.ExitCode),
			map[string]interface{}{
				"exitCode": execErr.ExitCode,
				"stderr":   platformerrors.Truncate(strings.TrimSpace(execErr.Stderr), git.MaxStderr),
			},
		)
	case platformerrors.GetCode(err) != platformerrors.CodeUnknown:
		return err
	default:
		return platformerrors.Wrapf(err, platformerrors.CodeInternal, "failed to run %s", tool)
	}
}

// ErrorText renders err as the text returned to a caller in place of tool
// output: "Error: <message>", followed by the exit code and stderr when the
// error carries them.
func ErrorText(err error) string {
	var b strings.Builder
	b.WriteString("Error: ")

	var pe platformerrors.PlatformError
	if !errors.As(err, &pe) {
		b.WriteString(err.Error())
		return b.String()
	}

	b.WriteString(pe.Message())
	fields := pe.Context()
	if code, ok := fields["exitCode"].(int); ok {
		fmt.Fprintf(&b, " (exit code %d)", code)
	}
	if stderr, ok := fields["stderr"].(string); ok && stderr != "" {
		b.WriteString("\n")
		b.WriteString(stderr)
	}
	return b.String()
}
