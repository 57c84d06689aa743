// Package repocache keeps bare clones of remote repositories and one
// detached worktree per resolved commit.
//
// Layout under the cache root:
//
//	{root}/index.json                    worktree metadata for GC
//	{root}/{slug}/bare/                  bare clone shared by all commits
//	{root}/{slug}/trees/{sha[:12]}/      one worktree per commit
//
// The slug is derived from the repository URL (see Slug). Every worktree of
// a repository shares the bare clone's object database, so a second commit
// of an already-cloned repository costs a checkout, not a clone.
//
// # Concurrency
//
// A Cache is safe for concurrent use within one process. Clone and fetch of
// one repository are serialized by a per-path lock; worktree creation is
// serialized per worktree path. Different repositories, and different
// commits of one repository once its objects are present, proceed in
// parallel. Every lock holder re-checks on-disk state after acquiring, so
// waiters never repeat work that has already completed.
//
// Reset takes a cache-wide write barrier. Connect, Lookup, RemoveWorktree
// and the garbage collector hold its read side.
//
// # Usage
//
//	c, err := repocache.New("/var/cache/reposandbox",
//	    repocache.WithRunner(isolation.NewBwrap()))
//	if err != nil {
//	    return err
//	}
//
//	h, err := c.Connect(ctx, "https://github.com/org/repo", "v1.2.0")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(h.LocalPath) // {root}/github_com_org_repo/trees/0123456789ab
//
//	stop := c.StartGC(ctx, time.Hour, 24*time.Hour)
//	defer stop()
//
// Git invocations never run repository-controlled code: hooks, fsmonitor,
// LFS filters and submodule recursion are disabled on every call, and
// commit resolution happens in-process through go-git.
package repocache
