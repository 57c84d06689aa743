package git

import (
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	platformerrors "github.com/jmgilman/reposandbox/errors"
)

// Repository is a read-only go-git view of an on-disk repository.
type Repository struct {
	repo *gogit.Repository
}

// OpenBare opens the bare repository at path.
//
// The repository is read through go-git, so nothing configured inside it
// (hooks, filters, fsmonitor) can run.
func OpenBare(path string) (*Repository, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return nil, wrapError(err, fmt.Sprintf("failed to open repository at %s", path))
	}
	return &Repository{repo: repo}, nil
}

// ResolveCommit resolves a commitish (branch, tag, full or abbreviated id,
// or a revision expression such as HEAD~1) to the full id of a commit.
// An empty commitish means HEAD.
func (r *Repository) ResolveCommit(commitish string) (string, error) {
	if commitish == "" {
		commitish = "HEAD"
	}
	if strings.HasPrefix(commitish, "-") {
		return "", platformerrors.Newf(platformerrors.CodeInvalidInput, "invalid commitish %q", commitish)
	}

	hash, err := r.repo.ResolveRevision(plumbing.Revision(commitish))
	if err != nil {
		return "", wrapError(err, fmt.Sprintf("failed to resolve %q", commitish))
	}

	// Annotated tags resolve to the tag object; peel to the commit.
	if tag, err := r.repo.TagObject(*hash); err == nil {
		commit, err := tag.Commit()
		if err != nil {
			return "", wrapError(err, fmt.Sprintf("tag %q does not point at a commit", commitish))
		}
		return commit.Hash.String(), nil
	}
	return hash.String(), nil
}

// HasCommitish reports whether commitish names a commit, or a tag pointing
// at one, that is present locally.
func (r *Repository) HasCommitish(commitish string) bool {
	_, err := r.ResolveCommit(commitish)
	return err == nil
}
