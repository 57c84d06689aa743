package git

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	platformerrors "github.com/jmgilman/reposandbox/errors"
	"github.com/jmgilman/reposandbox/exec"
)

// DefaultBinary is the git executable used when Config.Binary is empty.
const DefaultBinary = "git"

var protocolName = regexp.MustCompile(`^[a-z][a-z0-9+.-]*$`)

// Config controls how git invocations are assembled.
type Config struct {
	// Binary is the git executable. Defaults to "git".
	Binary string

	// AllowedProtocols lists the transports git may use. Everything else is
	// denied. Defaults to http and https.
	AllowedProtocols []string
}

// DefaultConfig returns the configuration used by the worker.
func DefaultConfig() Config {
	return Config{
		Binary:           DefaultBinary,
		AllowedProtocols: []string{"http", "https"},
	}
}

// Validate checks that every allowed protocol is a plausible transport name.
func (c Config) Validate() error {
	if len(c.AllowedProtocols) == 0 {
		return platformerrors.New(platformerrors.CodeInvalidConfig, "at least one git protocol must be allowed")
	}
	for _, p := range c.AllowedProtocols {
		if !protocolName.MatchString(p) {
			return platformerrors.Newf(platformerrors.CodeInvalidConfig, "invalid git protocol name %q", p)
		}
	}
	return nil
}

func (c Config) binary() string {
	if c.Binary == "" {
		return DefaultBinary
	}
	return c.Binary
}

func (c Config) protocols() []string {
	if len(c.AllowedProtocols) == 0 {
		return DefaultConfig().AllowedProtocols
	}
	return c.AllowedProtocols
}

// HardeningArgs returns the -c flags placed before every git subcommand.
func (c Config) HardeningArgs() []string {
	args := []string{
		"-c", "core.hooksPath=/dev/null",
		"-c", "core.fsmonitor=false",
		"-c", "filter.lfs.smudge=",
		"-c", "filter.lfs.clean=",
		"-c", "filter.lfs.process=",
		"-c", "filter.lfs.required=false",
		"-c", "submodule.recurse=false",
		"-c", "protocol.allow=never",
	}
	for _, p := range c.protocols() {
		args = append(args, "-c", fmt.Sprintf("protocol.%s.allow=always", p))
	}
	return args
}

// Env returns the environment every git invocation runs with.
func (c Config) Env() map[string]string {
	return map[string]string{
		"GIT_LFS_SKIP_SMUDGE": "1",
		"GIT_TERMINAL_PROMPT": "0",
		"GIT_CONFIG_NOSYSTEM": "1",
		"GIT_OPTIONAL_LOCKS":  "0",
		"GIT_ALLOW_PROTOCOL":  strings.Join(c.protocols(), ":"),
	}
}

// Invocation is one fully assembled git command.
type Invocation struct {
	// Dir is the working directory git runs in.
	Dir string

	// Args is the complete argv, starting with the git binary.
	Args []string

	// Env holds the variables git must see.
	Env map[string]string
}

// Command assembles a hardened invocation of a git subcommand in dir.
//
// Example:
//
//	inv := cfg.Command(worktree, "log", "--oneline", "-n", "5")
//	// git -c core.hooksPath=/dev/null ... log --oneline -n 5
func (c Config) Command(dir string, sub ...string) Invocation {
	args := make([]string, 0, 1+len(sub)+20)
	args = append(args, c.binary())
	args = append(args, c.HardeningArgs()...)
	args = append(args, sub...)
	return Invocation{Dir: dir, Args: args, Env: c.Env()}
}

// Runner executes a git invocation. Implementations choose the isolation
// and time budget.
type Runner interface {
	RunGit(ctx context.Context, inv Invocation) (*exec.Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, inv Invocation) (*exec.Result, error)

// RunGit calls f.
func (f RunnerFunc) RunGit(ctx context.Context, inv Invocation) (*exec.Result, error) {
	return f(ctx, inv)
}
