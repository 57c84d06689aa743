package exec

import (
	"context"
	"os"
	"time"
)

// CommandWrapper prepends a fixed argv prefix to every Run. It implements
// Executor, so wrappers can be stacked and used anywhere an Executor is
// expected.
type CommandWrapper struct {
	executor Executor
	prefix   []string
}

// NewWrapper creates a CommandWrapper that runs cmd followed by args and
// then whatever is passed to Run.
func NewWrapper(executor Executor, cmd string, args ...string) *CommandWrapper {
	return &CommandWrapper{
		executor: executor,
		prefix:   append([]string{cmd}, args...),
	}
}

func (w *CommandWrapper) wrap(e Executor) Executor {
	return &CommandWrapper{executor: e, prefix: w.prefix}
}

// WithEnv adds environment variables for the command.
func (w *CommandWrapper) WithEnv(env map[string]string) Executor {
	return w.wrap(w.executor.WithEnv(env))
}

// WithDir sets the working directory for the command.
func (w *CommandWrapper) WithDir(dir string) Executor {
	return w.wrap(w.executor.WithDir(dir))
}

// WithContext sets the context for the command.
func (w *CommandWrapper) WithContext(ctx context.Context) Executor {
	return w.wrap(w.executor.WithContext(ctx))
}

// WithTimeout sets a timeout for the command.
func (w *CommandWrapper) WithTimeout(timeout time.Duration) Executor {
	return w.wrap(w.executor.WithTimeout(timeout))
}

// WithInheritEnv enables environment inheritance.
func (w *CommandWrapper) WithInheritEnv() Executor {
	return w.wrap(w.executor.WithInheritEnv())
}

// WithDisableColors disables color output.
func (w *CommandWrapper) WithDisableColors() Executor {
	return w.wrap(w.executor.WithDisableColors())
}

// WithExtraFiles passes additional open files to the child.
func (w *CommandWrapper) WithExtraFiles(files ...*os.File) Executor {
	return w.wrap(w.executor.WithExtraFiles(files...))
}

// WithOutputLimit caps captured output per stream.
func (w *CommandWrapper) WithOutputLimit(n int) Executor {
	return w.wrap(w.executor.WithOutputLimit(n))
}

// Run executes the prefix followed by args.
func (w *CommandWrapper) Run(args ...string) (*Result, error) {
	full := make([]string, 0, len(w.prefix)+len(args))
	full = append(full, w.prefix...)
	full = append(full, args...)
	return w.executor.Run(full...)
}
