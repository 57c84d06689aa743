package exec

import (
	"context"
	"os"
	"time"
)

// ExitCodeTimeout is the exit code reported for a command killed because it
// exceeded its timeout. It matches the convention of coreutils timeout(1).
const ExitCodeTimeout = 124

// Executor is the main interface for executing commands.
// Every With* method returns a new Executor and leaves the receiver untouched.
type Executor interface {
	// WithEnv adds environment variables for the command.
	WithEnv(env map[string]string) Executor

	// WithDir sets the working directory for the command.
	WithDir(dir string) Executor

	// WithContext sets the context for the command.
	// The command is killed if the context is canceled.
	WithContext(ctx context.Context) Executor

	// WithTimeout bounds the command's run time. Zero disables the bound.
	WithTimeout(timeout time.Duration) Executor

	// WithInheritEnv inherits environment variables from the parent process.
	WithInheritEnv() Executor

	// WithDisableColors sets NO_COLOR=1, TERM=dumb and related variables.
	WithDisableColors() Executor

	// WithExtraFiles passes open files to the child as fd 3, 4, ...
	WithExtraFiles(files ...*os.File) Executor

	// WithOutputLimit caps how many bytes of stdout and of stderr are kept.
	// Output beyond the cap is discarded and Result.Truncated is set.
	WithOutputLimit(n int) Executor

	// Run executes the command with the given arguments.
	Run(args ...string) (*Result, error)
}

// Result represents the result of a command execution.
type Result struct {
	// Stdout is the captured standard output
	Stdout string

	// Stderr is the captured standard error
	Stderr string

	// Combined is the interleaved stdout and stderr output
	Combined string

	// ExitCode is the exit code returned by the command, ExitCodeTimeout if
	// it was killed for running too long, or -1 if it never started.
	ExitCode int

	// TimedOut reports whether the command was killed by its timeout.
	TimedOut bool

	// Truncated reports whether output was cut at the output limit.
	Truncated bool

	// Duration is the wall time the command ran for.
	Duration time.Duration
}

// Option configures a Command at creation time.
type Option func(*config)

// WithEnv returns an Option that sets base environment variables.
func WithEnv(env map[string]string) Option {
	return func(c *config) {
		for k, v := range env {
			c.env[k] = v
		}
	}
}

// WithDir returns an Option that sets the base working directory.
func WithDir(dir string) Option {
	return func(c *config) {
		c.dir = dir
	}
}

// WithTimeout returns an Option that sets a base timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.timeout = timeout
	}
}

// WithInheritEnv returns an Option that enables environment inheritance.
func WithInheritEnv() Option {
	return func(c *config) {
		c.inheritEnv = true
	}
}

// WithDisableColors returns an Option that disables color output.
func WithDisableColors() Option {
	return func(c *config) {
		c.disableColors = true
	}
}

// WithOutputLimit returns an Option that caps captured output per stream.
func WithOutputLimit(n int) Option {
	return func(c *config) {
		c.outputLimit = n
	}
}
