package tools

import (
	"os"
	"path/filepath"
	"strings"

	platformerrors "github.com/jmgilman/reposandbox/errors"
)

// within reports whether path is root or below it. Both must be clean and
// absolute.
func within(root, path string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}

// resolvePath confines a user-supplied path to root.
//
// Relative paths are joined onto root; absolute paths are taken as given.
// The cleaned result must lie within root. If it exists, symlinks are
// resolved and the result checked again, so a link inside the worktree
// cannot point outside it. root must already be free of symlinks.
func resolvePath(root, path string) (string, error) {
	var abs string
	switch {
	case path == "":
		abs = root
	case filepath.IsAbs(path):
		abs = filepath.Clean(path)
	default:
		abs = filepath.Join(root, path)
	}

	if !within(root, abs) {
		return "", traversal(path)
	}

	// Resolve the deepest existing ancestor; the tool reports a missing
	// leaf itself.
	existing, rest := abs, ""
	for existing != root {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		rest = filepath.Join(filepath.Base(existing), rest)
		existing = filepath.Dir(existing)
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", platformerrors.Wrapf(err, platformerrors.CodeInvalidInput, "cannot resolve path %q", path)
	}
	if !within(root, resolved) {
		return "", traversal(path)
	}
	if rest != "" {
		resolved = filepath.Join(resolved, rest)
	}
	return resolved, nil
}

func traversal(path string) error {
	return platformerrors.WithContext(
		platformerrors.Newf(platformerrors.CodePathTraversal, "path %q is outside the repository", path),
		"path", path,
	)
}
