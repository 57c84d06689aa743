// Package tools implements the allow-listed inspection tools that run
// inside a worktree: rg, find, ls, read and git.
//
// Arguments arrive as JSON and are decoded once, at the dispatch boundary,
// into one typed struct per tool. Every tool builds its argv directly, so
// patterns and paths are passed to the program as literal arguments and
// never interpreted by a shell. Paths given to ls and read are confined to
// the worktree, and git is restricted to read-only subcommands.
//
// Commands run through an isolation.Runner: under bwrap in the worker, or
// directly on the host in local mode.
package tools
