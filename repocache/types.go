package repocache

import (
	"fmt"
	"time"
)

// Handle identifies one provisioned worktree.
type Handle struct {
	// URL is the repository URL the worktree was cloned from. Empty for
	// handles returned by Lookup when the index has no record.
	URL string `json:"url,omitempty"`

	// Slug is the filesystem-safe repository name.
	Slug string `json:"slug"`

	// LocalPath is the worktree directory.
	LocalPath string `json:"localPath"`

	// SHA is the full commit id checked out in LocalPath.
	SHA string `json:"sha"`

	// CachePath is the bare clone shared by every worktree of the repository.
	CachePath string `json:"cachePath"`
}

// CommitishResolutionError reports a commitish that names no commit in the
// repository, even after fetching.
type CommitishResolutionError struct {
	Commitish string
	Err       error
}

func (e *CommitishResolutionError) Error() string {
	return fmt.Sprintf("could not resolve commitish %q", e.Commitish)
}

func (e *CommitishResolutionError) Unwrap() error {
	return e.Err
}

// WorktreeRecord is the index entry kept for each worktree.
type WorktreeRecord struct {
	URL        string    `json:"url"`
	Slug       string    `json:"slug"`
	SHA        string    `json:"sha"`
	Path       string    `json:"path"`
	CreatedAt  time.Time `json:"createdAt"`
	LastAccess time.Time `json:"lastAccess"`
}
