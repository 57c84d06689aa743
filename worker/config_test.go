package worker

import (
	"context"
	"log/slog"
	"testing"
	"time"

	platformerrors "github.com/jmgilman/reposandbox/errors"
	"github.com/jmgilman/reposandbox/isolation"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfigFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Empty(t, cfg.Secret)
	assert.Equal(t, "/var/cache/reposandbox", cfg.CacheRoot)
	assert.Equal(t, IsolationBwrap, cfg.Isolation)
	assert.Equal(t, 30*time.Second, cfg.ToolTimeout)
	assert.Equal(t, 120*time.Second, cfg.GitTimeout)
	assert.Zero(t, cfg.GCInterval)
	assert.Equal(t, 24*time.Hour, cfg.WorktreeMaxIdle)
	assert.Equal(t, []string{"http", "https"}, cfg.AllowedProtocols)
	assert.Equal(t, []string{"http", "https"}, cfg.Git().AllowedProtocols)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	assert.IsType(t, &isolation.Bwrap{}, cfg.Runner())
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := LoadConfigFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"PORT":                      "9090",
		"SANDBOX_SECRET":            "s3cret",
		"SANDBOX_CACHE_ROOT":        "/tmp/cache",
		"SANDBOX_ISOLATION":         "none",
		"SANDBOX_TOOL_TIMEOUT":      "5s",
		"SANDBOX_GC_INTERVAL":       "10m",
		"SANDBOX_WORKTREE_MAX_IDLE": "1h",
		"SANDBOX_ALLOWED_PROTOCOLS": "https, ssh",
		"LOG_LEVEL":                 "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, "s3cret", cfg.Secret)
	assert.Equal(t, "/tmp/cache", cfg.CacheRoot)
	assert.Equal(t, 5*time.Second, cfg.ToolTimeout)
	assert.Equal(t, 10*time.Minute, cfg.GCInterval)
	assert.Equal(t, time.Hour, cfg.WorktreeMaxIdle)
	assert.Equal(t, []string{"https", "ssh"}, cfg.Git().AllowedProtocols)
	assert.Equal(t, isolation.Direct{}, cfg.Runner())

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:             8080,
			CacheRoot:        "/cache",
			Isolation:        IsolationBwrap,
			ToolTimeout:      time.Second,
			GitTimeout:       time.Second,
			WorktreeMaxIdle:  time.Hour,
			AllowedProtocols: []string{"https"},
			LogLevel:         "info",
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "port zero", mutate: func(c *Config) { c.Port = 0 }},
		{name: "port too large", mutate: func(c *Config) { c.Port = 70000 }},
		{name: "no cache root", mutate: func(c *Config) { c.CacheRoot = "" }},
		{name: "unknown isolation", mutate: func(c *Config) { c.Isolation = "docker" }},
		{name: "zero tool timeout", mutate: func(c *Config) { c.ToolTimeout = 0 }},
		{name: "zero git timeout", mutate: func(c *Config) { c.GitTimeout = 0 }},
		{name: "negative gc interval", mutate: func(c *Config) { c.GCInterval = -time.Second }},
		{name: "gc without idle", mutate: func(c *Config) { c.GCInterval = time.Minute; c.WorktreeMaxIdle = 0 }},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "chatty" }},
		{name: "no protocols", mutate: func(c *Config) { c.AllowedProtocols = nil }},
		{name: "bad protocol", mutate: func(c *Config) { c.AllowedProtocols = []string{"ht tp"} }},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, platformerrors.CodeInvalidConfig, platformerrors.GetCode(err))
		})
	}
}

func TestLoadConfig_Malformed(t *testing.T) {
	_, err := LoadConfigFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"SANDBOX_TOOL_TIMEOUT": "soon",
	}))
	require.Error(t, err)
	assert.Equal(t, platformerrors.CodeInvalidConfig, platformerrors.GetCode(err))
}
