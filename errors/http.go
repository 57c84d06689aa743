package errors

import (
	"net/http"
	"unicode/utf8"
)

// HTTPStatus maps an error to the status code the worker responds with.
//
// Validation, allow-list and commitish resolution failures are the caller's
// fault and map to 400. A missing worktree is 404. Anything without a
// recognised code is a 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch GetCode(err) {
	case CodeInvalidInput, CodePathTraversal, CodeForbidden, CodeResolution:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Truncate shortens s to at most n bytes, appending an ellipsis marker when
// anything was cut. Used to keep subprocess stderr out of responses.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "...(truncated)"
}
