package isolation

import (
	"context"
	"os"
	"time"

	"github.com/jmgilman/reposandbox/exec"
	"github.com/jmgilman/reposandbox/git"
)

// defaultPath is used when the worker's own PATH is empty.
const defaultPath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

// Command is one subprocess to run under a Spec.
type Command struct {
	// Args is the inner argv, starting with the program.
	Args []string

	// Dir is the working directory on the host.
	Dir string

	// Env holds variables added to the minimal sandbox environment.
	Env map[string]string

	// Timeout bounds the run. Zero means no bound.
	Timeout time.Duration

	// OutputLimit caps captured stdout and stderr. Zero means no cap.
	OutputLimit int
}

// Runner executes commands under an isolation spec.
//
// A non-zero exit returns both the Result and an error, as exec.Executor
// does.
type Runner interface {
	Run(ctx context.Context, spec Spec, cmd Command) (*exec.Result, error)
}

// baseEnv is the environment every sandboxed command starts from. The
// worker's own environment is never inherited.
func baseEnv(home string) map[string]string {
	path := os.Getenv("PATH")
	if path == "" {
		path = defaultPath
	}
	return map[string]string{
		"PATH": path,
		"HOME": home,
		"LANG": "C.UTF-8",
	}
}

func executor(ctx context.Context, home string, cmd Command) exec.Executor {
	return exec.New().
		WithContext(ctx).
		WithDir(cmd.Dir).
		WithEnv(baseEnv(home)).
		WithEnv(cmd.Env).
		WithTimeout(cmd.Timeout).
		WithOutputLimit(cmd.OutputLimit)
}

// Direct runs commands on the host without a sandbox. It is meant for local
// use against trusted repositories and for platforms without bwrap.
type Direct struct{}

// Run executes cmd directly. The spec is ignored.
func (Direct) Run(ctx context.Context, _ Spec, cmd Command) (*exec.Result, error) {
	return executor(ctx, os.TempDir(), cmd).Run(cmd.Args...)
}

// Bwrap runs commands inside bubblewrap according to their Spec.
type Bwrap struct {
	binary string
}

// BwrapOption configures a Bwrap runner.
type BwrapOption func(*Bwrap)

// WithBinary sets the bubblewrap executable. Defaults to "bwrap" on PATH.
func WithBinary(path string) BwrapOption {
	return func(b *Bwrap) {
		b.binary = path
	}
}

// NewBwrap creates a Bwrap runner.
func NewBwrap(opts ...BwrapOption) *Bwrap {
	b := &Bwrap{binary: DefaultBwrapBinary}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Argv returns the full argv Run would execute for cmd.
func (b *Bwrap) Argv(spec Spec, cmd Command) ([]string, error) {
	return buildCommand(b.binary, spec.Class, spec.Paths, cmd.Args)
}

// Run executes cmd inside bwrap. Read classes get the seccomp network
// filter on descriptor 3.
func (b *Bwrap) Run(ctx context.Context, spec Spec, cmd Command) (*exec.Result, error) {
	argv, err := b.Argv(spec, cmd)
	if err != nil {
		return nil, err
	}

	e := executor(ctx, "/tmp", cmd)
	if spec.Class.NeedsSeccomp() {
		filter, err := seccompFile()
		if err != nil {
			return nil, err
		}
		defer filter.Close()
		e = e.WithExtraFiles(filter)
	}

	return exec.NewWrapper(e, argv[0], argv[1:len(argv)-len(cmd.Args)]...).Run(cmd.Args...)
}

// GitRunner adapts r to git.Runner. Every git invocation runs under spec
// with the given timeout.
func GitRunner(r Runner, spec Spec, timeout time.Duration) git.Runner {
	return git.RunnerFunc(func(ctx context.Context, inv git.Invocation) (*exec.Result, error) {
		return r.Run(ctx, spec, Command{
			Args:    inv.Args,
			Dir:     inv.Dir,
			Env:     inv.Env,
			Timeout: timeout,
		})
	})
}
