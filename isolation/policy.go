package isolation

import (
	"path/filepath"

	platformerrors "github.com/jmgilman/reposandbox/errors"
)

// Class identifies the kind of operation being sandboxed.
type Class string

const (
	// ClassGitWrite covers clone, fetch and worktree maintenance.
	ClassGitWrite Class = "git-write"

	// ClassToolRead covers read-only inspection tools inside a worktree.
	ClassToolRead Class = "tool-read"

	// ClassGitRead covers read-only git queries inside a worktree.
	ClassGitRead Class = "git-read"
)

// Paths are the host paths a class exposes to the sandbox.
type Paths struct {
	// Root is the cache root, hidden from read classes.
	Root string

	// Cache is the directory git-write operations may modify.
	Cache string

	// Worktree is the checkout read classes operate in.
	Worktree string

	// Bare is the bare repository backing Worktree.
	Bare string
}

// Spec is everything needed to wrap a command: its class and paths.
type Spec struct {
	Class Class
	Paths Paths
}

// NeedsSeccomp reports whether commands of class c run under the network
// seccomp filter.
func (c Class) NeedsSeccomp() bool {
	return c == ClassToolRead || c == ClassGitRead
}

// BuildCommand returns the bwrap argv that runs inner under class c.
//
// The result depends only on its arguments. Every path the class needs must
// be set and absolute, otherwise CodeInvalidInput is returned.
func BuildCommand(c Class, paths Paths, inner []string) ([]string, error) {
	return buildCommand(DefaultBwrapBinary, c, paths, inner)
}

func buildCommand(binary string, c Class, paths Paths, inner []string) ([]string, error) {
	if len(inner) == 0 {
		return nil, platformerrors.New(platformerrors.CodeInvalidInput, "command is required")
	}

	b := NewBuilder(binary)

	switch c {
	case ClassGitWrite:
		if err := requirePaths(c, namedPath{"cache", paths.Cache}); err != nil {
			return nil, err
		}
		b.RoBind("/").
			Bind(paths.Cache).
			Tmpfs("/tmp").
			Dev().
			Proc().
			UnsharePID().
			DieWithParent()

	case ClassToolRead, ClassGitRead:
		required := []namedPath{{"root", paths.Root}, {"worktree", paths.Worktree}}
		if c == ClassGitRead {
			required = append(required, namedPath{"bare", paths.Bare})
		}
		if err := requirePaths(c, required...); err != nil {
			return nil, err
		}

		b.RoBind("/").
			Tmpfs(paths.Root).
			RoBind(paths.Worktree)
		if c == ClassGitRead {
			b.RoBind(paths.Bare)
		}
		b.Tmpfs("/tmp").
			Dev().
			Proc().
			UnsharePID().
			DieWithParent().
			Seccomp().
			Chdir(paths.Worktree)

	default:
		return nil, platformerrors.Newf(platformerrors.CodeInvalidInput, "unknown isolation class %q", c)
	}

	return b.Build(inner), nil
}

type namedPath struct {
	name string
	path string
}

func requirePaths(c Class, paths ...namedPath) error {
	for _, np := range paths {
		name, p := np.name, np.path
		if p == "" {
			return platformerrors.WithContext(
				platformerrors.Newf(platformerrors.CodeInvalidInput, "%s path is required for class %s", name, c),
				"class", string(c),
			)
		}
		if !filepath.IsAbs(p) {
			return platformerrors.WithContext(
				platformerrors.Newf(platformerrors.CodeInvalidInput, "%s path must be absolute: %q", name, p),
				"class", string(c),
			)
		}
	}
	return nil
}
