// Package errors provides the structured error model shared by every
// reposandbox package.
//
// Errors carry a machine-readable code, a retry classification, an optional
// context map, and the wrapped cause. They remain compatible with the
// standard library (errors.Is, errors.As, errors.Unwrap).
//
// The worker turns any error into a JSON body and an HTTP status:
//
//	if err != nil {
//	    status := errors.HTTPStatus(err)
//	    body := errors.ToJSON(err)
//	    ...
//	}
//
// Codes follow the failure taxonomy of the sandbox: validation and
// authorization failures are rejected before any git or tool process runs,
// resolution failures mean a commitish does not exist, network failures
// mean a clone could not reach its remote, and execution failures cover a
// tool that ran but exited non-zero or timed out.
package errors
