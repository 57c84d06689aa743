package exec

import (
	"context"
	"errors"
	"os"
	osexec "os/exec"
	"time"
)

// waitDelay bounds how long Run waits for output pipes after the process
// has been killed (grandchildren may still hold them open).
const waitDelay = 2 * time.Second

// Command is the concrete implementation of the Executor interface.
type Command struct {
	config *config
}

// New creates a new Command with the given options.
func New(opts ...Option) *Command {
	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Command{config: cfg}
}

func (c *Command) with(fn func(*config)) *Command {
	cfg := c.config.clone()
	fn(cfg)
	return &Command{config: cfg}
}

// WithEnv adds environment variables for the command.
func (c *Command) WithEnv(env map[string]string) Executor {
	return c.with(func(cfg *config) {
		for k, v := range env {
			cfg.env[k] = v
		}
	})
}

// WithDir sets the working directory for the command.
func (c *Command) WithDir(dir string) Executor {
	return c.with(func(cfg *config) { cfg.dir = dir })
}

// WithContext sets the context for the command.
func (c *Command) WithContext(ctx context.Context) Executor {
	return c.with(func(cfg *config) { cfg.ctx = ctx })
}

// WithTimeout sets a timeout for the command.
func (c *Command) WithTimeout(timeout time.Duration) Executor {
	return c.with(func(cfg *config) { cfg.timeout = timeout })
}

// WithInheritEnv enables environment inheritance.
func (c *Command) WithInheritEnv() Executor {
	return c.with(func(cfg *config) { cfg.inheritEnv = true })
}

// WithDisableColors disables color output.
func (c *Command) WithDisableColors() Executor {
	return c.with(func(cfg *config) { cfg.disableColors = true })
}

// WithExtraFiles passes additional open files to the child.
func (c *Command) WithExtraFiles(files ...*os.File) Executor {
	return c.with(func(cfg *config) { cfg.extraFiles = append(cfg.extraFiles, files...) })
}

// WithOutputLimit caps captured output per stream.
func (c *Command) WithOutputLimit(n int) Executor {
	return c.with(func(cfg *config) { cfg.outputLimit = n })
}

// Run executes the command with the given arguments.
//
// A non-zero exit returns both the Result and an *ExecError. When the
// timeout fires the error wraps ErrTimeout; when the caller's context is
// canceled it wraps the context's error.
func (c *Command) Run(args ...string) (*Result, error) {
	if len(args) == 0 {
		return nil, &ExecError{
			Command:  args,
			ExitCode: -1,
			Err:      osexec.ErrNotFound,
		}
	}

	cfg := c.config
	parent := cfg.ctx
	if parent == nil {
		parent = context.Background()
	}

	ctx := parent
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, cfg.timeout)
		defer cancel()
	}

	cmd := osexec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = cfg.dir
	cmd.Env = cfg.environ()
	cmd.ExtraFiles = cfg.extraFiles
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	stdout := newLimitedBuffer(cfg.outputLimit)
	stderr := newLimitedBuffer(cfg.outputLimit)
	combined := newLimitedBuffer(cfg.outputLimit)
	cmd.Stdout = newMultiWriter(stdout, combined)
	cmd.Stderr = newMultiWriter(stderr, combined)

	start := time.Now()
	err := cmd.Run()

	result := &Result{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Combined:  combined.String(),
		ExitCode:  -1,
		Truncated: stdout.Truncated() || stderr.Truncated(),
		Duration:  time.Since(start),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err == nil {
		return result, nil
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil:
		result.TimedOut = true
		result.ExitCode = ExitCodeTimeout
		err = ErrTimeout
	case parent.Err() != nil:
		err = parent.Err()
	}

	return result, &ExecError{
		Command:  args,
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
		Err:      err,
	}
}
