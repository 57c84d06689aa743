package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	platformerrors "github.com/jmgilman/reposandbox/errors"
	"github.com/jmgilman/reposandbox/git"
	"github.com/jmgilman/reposandbox/isolation"
	"github.com/sethvargo/go-envconfig"
)

// Isolation modes accepted by SANDBOX_ISOLATION.
const (
	IsolationBwrap = "bwrap"
	IsolationNone  = "none"
)

// Config is the worker's environment configuration.
type Config struct {
	Port      int    `env:"PORT,default=8080"`
	Secret    string `env:"SANDBOX_SECRET"`
	CacheRoot string `env:"SANDBOX_CACHE_ROOT,default=/var/cache/reposandbox"`
	Isolation string `env:"SANDBOX_ISOLATION,default=bwrap"`

	ToolTimeout time.Duration `env:"SANDBOX_TOOL_TIMEOUT,default=30s"`
	GitTimeout  time.Duration `env:"SANDBOX_GIT_TIMEOUT,default=120s"`

	// GCInterval of zero disables periodic garbage collection.
	GCInterval      time.Duration `env:"SANDBOX_GC_INTERVAL,default=0s"`
	WorktreeMaxIdle time.Duration `env:"SANDBOX_WORKTREE_MAX_IDLE,default=24h"`

	AllowedProtocols []string `env:"SANDBOX_ALLOWED_PROTOCOLS,default=http,https"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// LoadConfig reads Config from the process environment and validates it.
func LoadConfig(ctx context.Context) (Config, error) {
	return LoadConfigFrom(ctx, envconfig.OsLookuper())
}

// LoadConfigFrom reads Config from l and validates it.
func LoadConfigFrom(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return Config{}, platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "failed to process environment")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return invalid("PORT must be between 1 and 65535, got %d", c.Port)
	case c.CacheRoot == "":
		return invalid("SANDBOX_CACHE_ROOT is required")
	case c.Isolation != IsolationBwrap && c.Isolation != IsolationNone:
		return invalid("SANDBOX_ISOLATION must be %q or %q, got %q", IsolationBwrap, IsolationNone, c.Isolation)
	case c.ToolTimeout <= 0:
		return invalid("SANDBOX_TOOL_TIMEOUT must be positive")
	case c.GitTimeout <= 0:
		return invalid("SANDBOX_GIT_TIMEOUT must be positive")
	case c.GCInterval < 0:
		return invalid("SANDBOX_GC_INTERVAL must not be negative")
	case c.GCInterval > 0 && c.WorktreeMaxIdle <= 0:
		return invalid("SANDBOX_WORKTREE_MAX_IDLE must be positive when GC is enabled")
	}

	if _, err := c.Level(); err != nil {
		return err
	}
	return c.Git().Validate()
}

// Addr is the listen address for Port.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, invalid("LOG_LEVEL %q is not a valid level", c.LogLevel)
	}
	return level, nil
}

// Git returns the hardening configuration for git invocations.
func (c Config) Git() git.Config {
	protocols := make([]string, 0, len(c.AllowedProtocols))
	for _, p := range c.AllowedProtocols {
		if p = strings.TrimSpace(p); p != "" {
			protocols = append(protocols, p)
		}
	}
	return git.Config{AllowedProtocols: protocols}
}

// Runner returns the isolation runner for the configured mode.
func (c Config) Runner() isolation.Runner {
	if c.Isolation == IsolationNone {
		return isolation.Direct{}
	}
	return isolation.NewBwrap()
}

func invalid(format string, args ...interface{}) error {
	return platformerrors.Newf(platformerrors.CodeInvalidConfig, format, args...)
}
