package git

import (
	"testing"

	platformerrors "github.com/jmgilman/reposandbox/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHardeningArgs(t *testing.T) {
	args := DefaultConfig().HardeningArgs()

	require.Equal(t, []string{
		"-c", "core.hooksPath=/dev/null",
		"-c", "core.fsmonitor=false",
		"-c", "filter.lfs.smudge=",
		"-c", "filter.lfs.clean=",
		"-c", "filter.lfs.process=",
		"-c", "filter.lfs.required=false",
		"-c", "submodule.recurse=false",
		"-c", "protocol.allow=never",
		"-c", "protocol.http.allow=always",
		"-c", "protocol.https.allow=always",
	}, args)
}

func TestCommand(t *testing.T) {
	inv := DefaultConfig().Command("/repo", "log", "--oneline")

	require.Equal(t, "/repo", inv.Dir)
	require.Equal(t, "git", inv.Args[0])
	require.Equal(t, []string{"log", "--oneline"}, inv.Args[len(inv.Args)-2:])
	assert.Equal(t, "1", inv.Env["GIT_LFS_SKIP_SMUDGE"])
	assert.Equal(t, "0", inv.Env["GIT_TERMINAL_PROMPT"])
	assert.Equal(t, "http:https", inv.Env["GIT_ALLOW_PROTOCOL"])
}

func TestCommand_CustomBinaryAndProtocols(t *testing.T) {
	cfg := Config{Binary: "/usr/bin/git", AllowedProtocols: []string{"https"}}
	inv := cfg.Command("/repo", "status")

	require.Equal(t, "/usr/bin/git", inv.Args[0])
	assert.Contains(t, inv.Args, "protocol.https.allow=always")
	assert.NotContains(t, inv.Args, "protocol.http.allow=always")
	assert.Equal(t, "https", inv.Env["GIT_ALLOW_PROTOCOL"])
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	err := Config{}.Validate()
	require.Equal(t, platformerrors.CodeInvalidConfig, platformerrors.GetCode(err))

	err = Config{AllowedProtocols: []string{"https", "ext::sh"}}.Validate()
	require.Equal(t, platformerrors.CodeInvalidConfig, platformerrors.GetCode(err))
}

func TestIsFullSHA(t *testing.T) {
	assert.True(t, IsFullSHA("0123456789abcdef0123456789abcdef01234567"))
	assert.False(t, IsFullSHA("0123456789ab"))
	assert.False(t, IsFullSHA("0123456789ABCDEF0123456789ABCDEF01234567"))
	assert.False(t, IsFullSHA("v1.0"))
}
