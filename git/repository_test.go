package git

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	platformerrors "github.com/jmgilman/reposandbox/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCommit(t *testing.T) {
	fixture, _, bare := cloneFixture(t)

	repo, err := OpenBare(bare)
	require.NoError(t, err)

	tests := []struct {
		name      string
		commitish string
		want      string
	}{
		{"empty means HEAD", "", fixture.SecondSHA},
		{"HEAD", "HEAD", fixture.SecondSHA},
		{"branch", "main", fixture.SecondSHA},
		{"annotated tag is peeled", "v1.0", fixture.FirstSHA},
		{"lightweight tag", "v2.0", fixture.SecondSHA},
		{"full id", fixture.FirstSHA, fixture.FirstSHA},
		{"abbreviated id", fixture.FirstSHA[:12], fixture.FirstSHA},
		{"parent expression", "HEAD~1", fixture.FirstSHA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ResolveCommit(tt.commitish)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveCommit_Missing(t *testing.T) {
	_, _, bare := cloneFixture(t)

	repo, err := OpenBare(bare)
	require.NoError(t, err)

	_, err = repo.ResolveCommit("v9.9")
	require.Error(t, err)
	assert.ErrorIs(t, err, plumbing.ErrReferenceNotFound)
	assert.Equal(t, platformerrors.CodeNotFound, platformerrors.GetCode(err))
	assert.False(t, repo.HasCommitish("v9.9"))

	_, err = repo.ResolveCommit("--upload-pack=evil")
	assert.Equal(t, platformerrors.CodeInvalidInput, platformerrors.GetCode(err))
}

func TestOpenBare_NotARepository(t *testing.T) {
	_, err := OpenBare(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, platformerrors.CodeNotFound, platformerrors.GetCode(err))
}
