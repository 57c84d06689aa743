package isolation

import (
	"testing"

	platformerrors "github.com/jmgilman/reposandbox/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCommand(t *testing.T) {
	paths := Paths{
		Root:     "/cache",
		Cache:    "/cache/github_com_o_r",
		Worktree: "/cache/github_com_o_r/trees/0123456789ab",
		Bare:     "/cache/github_com_o_r/bare",
	}
	inner := []string{"rg", "-e", "x", "--", "."}

	tests := []struct {
		name  string
		class Class
		inner []string
		want  []string
	}{
		{
			name:  "git write",
			class: ClassGitWrite,
			inner: []string{"git", "fetch"},
			want: []string{
				"bwrap",
				"--ro-bind", "/", "/",
				"--bind", "/cache/github_com_o_r", "/cache/github_com_o_r",
				"--tmpfs", "/tmp",
				"--dev", "/dev",
				"--proc", "/proc",
				"--unshare-pid",
				"--die-with-parent",
				"--", "git", "fetch",
			},
		},
		{
			name:  "tool read",
			class: ClassToolRead,
			inner: inner,
			want: []string{
				"bwrap",
				"--ro-bind", "/", "/",
				"--tmpfs", "/cache",
				"--ro-bind", paths.Worktree, paths.Worktree,
				"--tmpfs", "/tmp",
				"--dev", "/dev",
				"--proc", "/proc",
				"--unshare-pid",
				"--die-with-parent",
				"--seccomp", "3",
				"--chdir", paths.Worktree,
				"--", "rg", "-e", "x", "--", ".",
			},
		},
		{
			name:  "git read",
			class: ClassGitRead,
			inner: []string{"git", "log"},
			want: []string{
				"bwrap",
				"--ro-bind", "/", "/",
				"--tmpfs", "/cache",
				"--ro-bind", paths.Worktree, paths.Worktree,
				"--ro-bind", paths.Bare, paths.Bare,
				"--tmpfs", "/tmp",
				"--dev", "/dev",
				"--proc", "/proc",
				"--unshare-pid",
				"--die-with-parent",
				"--seccomp", "3",
				"--chdir", paths.Worktree,
				"--", "git", "log",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildCommand(tt.class, paths, tt.inner)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildCommand_Deterministic(t *testing.T) {
	paths := Paths{Root: "/c", Worktree: "/c/s/trees/a", Bare: "/c/s/bare"}

	first, err := BuildCommand(ClassGitRead, paths, []string{"git", "log"})
	require.NoError(t, err)
	second, err := BuildCommand(ClassGitRead, paths, []string{"git", "log"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildCommand_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		class Class
		paths Paths
		inner []string
	}{
		{"git write without cache", ClassGitWrite, Paths{Root: "/c"}, []string{"git"}},
		{"tool read without root", ClassToolRead, Paths{Worktree: "/c/w"}, []string{"ls"}},
		{"tool read without worktree", ClassToolRead, Paths{Root: "/c"}, []string{"ls"}},
		{"git read without bare", ClassGitRead, Paths{Root: "/c", Worktree: "/c/w"}, []string{"git"}},
		{"relative path", ClassToolRead, Paths{Root: "/c", Worktree: "c/w"}, []string{"ls"}},
		{"empty command", ClassToolRead, Paths{Root: "/c", Worktree: "/c/w"}, nil},
		{"unknown class", Class("admin"), Paths{Root: "/c", Worktree: "/c/w"}, []string{"ls"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildCommand(tt.class, tt.paths, tt.inner)
			require.Error(t, err)
			assert.Equal(t, platformerrors.CodeInvalidInput, platformerrors.GetCode(err))
		})
	}
}

func TestNeedsSeccomp(t *testing.T) {
	assert.False(t, ClassGitWrite.NeedsSeccomp())
	assert.True(t, ClassToolRead.NeedsSeccomp())
	assert.True(t, ClassGitRead.NeedsSeccomp())
}

func TestBwrapArgv_CustomBinary(t *testing.T) {
	b := NewBwrap(WithBinary("/opt/bin/bwrap"))

	argv, err := b.Argv(Spec{Class: ClassGitWrite, Paths: Paths{Cache: "/c/s"}}, Command{Args: []string{"git", "fetch"}})
	require.NoError(t, err)
	assert.Equal(t, "/opt/bin/bwrap", argv[0])
	assert.Equal(t, []string{"--", "git", "fetch"}, argv[len(argv)-3:])
}
