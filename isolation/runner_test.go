package isolation

import (
	"context"
	osexec "os/exec"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/jmgilman/reposandbox/exec"
	"github.com/jmgilman/reposandbox/git"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runtimeArch() string {
	return runtime.GOARCH
}

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := osexec.LookPath(name); err != nil {
		t.Skipf("%s not available, skipping test", name)
	}
}

func TestDirect_MinimalEnvironment(t *testing.T) {
	requireBinary(t, "env")
	t.Setenv("SANDBOX_SECRET", "hunter2")

	result, err := Direct{}.Run(context.Background(), Spec{}, Command{
		Args: []string{"env"},
		Dir:  t.TempDir(),
		Env:  map[string]string{"GIT_TERMINAL_PROMPT": "0"},
	})
	require.NoError(t, err)

	assert.NotContains(t, result.Stdout, "hunter2")
	assert.Contains(t, result.Stdout, "GIT_TERMINAL_PROMPT=0")
	assert.Contains(t, result.Stdout, "LANG=C.UTF-8")
	assert.Contains(t, result.Stdout, "PATH=")
}

func TestDirect_Timeout(t *testing.T) {
	requireBinary(t, "sleep")

	result, err := Direct{}.Run(context.Background(), Spec{}, Command{
		Args:    []string{"sleep", "5"},
		Dir:     t.TempDir(),
		Timeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	assert.True(t, result.TimedOut)
	assert.Equal(t, exec.ExitCodeTimeout, result.ExitCode)
}

func TestBwrap_RunsBuiltArgv(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("bwrap runner requires linux")
	}
	if _, ok := seccompArches[runtimeArch()]; !ok {
		t.Skip("seccomp filter not available on this architecture")
	}
	requireBinary(t, "echo")

	// echo stands in for bwrap so the assembled argv is observable.
	dir := t.TempDir()
	b := NewBwrap(WithBinary("echo"))
	spec := Spec{Class: ClassToolRead, Paths: Paths{Root: dir, Worktree: dir}}
	cmd := Command{Args: []string{"ls", "-la"}, Dir: dir}

	argv, err := b.Argv(spec, cmd)
	require.NoError(t, err)

	result, err := b.Run(context.Background(), spec, cmd)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(argv[1:], " "), strings.TrimSpace(result.Stdout))
}

func TestBwrap_InvalidSpec(t *testing.T) {
	_, err := NewBwrap().Run(context.Background(), Spec{Class: ClassToolRead}, Command{Args: []string{"ls"}})
	require.Error(t, err)
}

type recordingRunner struct {
	spec Spec
	cmd  Command
}

func (r *recordingRunner) Run(_ context.Context, spec Spec, cmd Command) (*exec.Result, error) {
	r.spec = spec
	r.cmd = cmd
	return &exec.Result{}, nil
}

func TestGitRunner(t *testing.T) {
	rec := &recordingRunner{}
	spec := Spec{Class: ClassGitWrite, Paths: Paths{Cache: "/c/s"}}
	runner := GitRunner(rec, spec, 2*time.Minute)

	inv := git.DefaultConfig().Command("/c/s/bare", "fetch", "origin")
	_, err := runner.RunGit(context.Background(), inv)
	require.NoError(t, err)

	assert.Equal(t, spec, rec.spec)
	assert.Equal(t, inv.Args, rec.cmd.Args)
	assert.Equal(t, "/c/s/bare", rec.cmd.Dir)
	assert.Equal(t, inv.Env, rec.cmd.Env)
	assert.Equal(t, 2*time.Minute, rec.cmd.Timeout)
}
