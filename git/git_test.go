package git

import (
	"context"
	osexec "os/exec"
	"path/filepath"
	"testing"

	"github.com/jmgilman/reposandbox/exec"
	"github.com/jmgilman/reposandbox/git/testutil"
	"github.com/stretchr/testify/require"
)

// requireGit skips the test if git CLI is not available.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := osexec.LookPath("git"); err != nil {
		t.Skip("git CLI not available, skipping test")
	}
}

// localConfig allows cloning fixtures by filesystem path.
func localConfig() Config {
	return Config{AllowedProtocols: []string{"file"}}
}

// directRunner runs invocations without any sandbox.
func directRunner() Runner {
	return RunnerFunc(func(ctx context.Context, inv Invocation) (*exec.Result, error) {
		return exec.New(exec.WithInheritEnv()).
			WithContext(ctx).
			WithDir(inv.Dir).
			WithEnv(inv.Env).
			Run(inv.Args...)
	})
}

// cloneFixture clones a TaggedRepo into a bare repository and returns both.
func cloneFixture(t *testing.T) (*testutil.TaggedRepo, *CLI, string) {
	t.Helper()
	requireGit(t)

	fixture := testutil.NewTaggedRepo(t)
	cli := NewCLI(localConfig(), directRunner())
	bare := filepath.Join(t.TempDir(), "bare")

	require.NoError(t, cli.CloneBare(context.Background(), fixture.Path, bare))
	return fixture, cli, bare
}
