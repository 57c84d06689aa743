// Package isolation wraps subprocesses in bubblewrap sandboxes.
//
// Every command the sandbox runs belongs to one of three operation classes:
//
//   - ClassGitWrite: clone and fetch. The cache directory is writable; the
//     rest of the host filesystem is read-only. Network access is allowed.
//   - ClassToolRead: search, list and read inside one worktree. The cache
//     root is hidden behind a tmpfs and only the worktree is mounted back,
//     read-only. A seccomp filter denies IPv4 and IPv6 sockets.
//   - ClassGitRead: git history queries. Like ClassToolRead, with the
//     worktree's bare repository also mounted read-only so objects resolve.
//
// BuildCommand is a pure function from a class, its paths and the inner
// argv to the bwrap argv. The Runner implementations execute commands
// either through bwrap (Bwrap) or directly on the host (Direct):
//
//	runner := isolation.NewBwrap()
//	result, err := runner.Run(ctx, isolation.Spec{
//	    Class: isolation.ClassToolRead,
//	    Paths: isolation.Paths{Root: root, Worktree: tree},
//	}, isolation.Command{
//	    Args:    []string{"ls", "-la", "--", tree},
//	    Dir:     tree,
//	    Timeout: 30 * time.Second,
//	})
//
// The seccomp program is generated in Go and handed to bwrap through an
// in-memory file on descriptor 3.
package isolation
