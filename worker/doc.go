// Package worker serves the repository cache and tool dispatcher over HTTP.
//
// Endpoints:
//
//	GET  /health   liveness, never authenticated
//	POST /clone    {url, commitish?} → {ok, slug, sha, worktree}
//	POST /tool     {slug, sha, name, args} → {ok, output}
//	POST /reset    clears the cache
//	GET  /metrics  Prometheus exposition
//
// Failures are reported as {ok:false, error, code} with a status derived
// from the error code. Tool failures additionally carry exitCode and, when
// the tool wrote any, a truncated stderr.
//
// When a secret is configured every endpoint except /health requires
// "Authorization: Bearer <secret>".
package worker
