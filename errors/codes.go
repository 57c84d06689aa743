package errors

// ErrorCode represents a specific error condition.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Resource errors.

	// CodeNotFound indicates a requested resource does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeResolution indicates a commitish could not be resolved to a commit,
	// neither locally nor after fetching from the remote.
	CodeResolution ErrorCode = "RESOLUTION_FAILED"

	// Permission errors.

	// CodeUnauthorized indicates the request lacks a valid bearer secret.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeForbidden indicates a tool or git subcommand outside the allow-list.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// Validation errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodePathTraversal indicates a path argument resolved outside its root.
	CodePathTraversal ErrorCode = "PATH_TRAVERSAL"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// Infrastructure errors.

	// CodeNetwork indicates a network operation failed (clone or fetch).
	CodeNetwork ErrorCode = "NETWORK_ERROR"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// Execution errors.

	// CodeExecutionFailed indicates a subprocess ran and exited non-zero.
	CodeExecutionFailed ErrorCode = "EXECUTION_FAILED"

	// System errors.

	// CodeInternal indicates an internal system error occurred.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeUnavailable indicates the service is temporarily unavailable.
	CodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// Generic errors.

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// ErrorClassification indicates whether an error should trigger a retry.
type ErrorClassification string

const (
	// ClassificationRetryable indicates temporary failures that may succeed on retry.
	ClassificationRetryable ErrorClassification = "RETRYABLE"

	// ClassificationPermanent indicates failures that will not succeed on retry.
	ClassificationPermanent ErrorClassification = "PERMANENT"
)

// IsRetryable returns true if the classification indicates retry should be attempted.
func (c ErrorClassification) IsRetryable() bool {
	return c == ClassificationRetryable
}

var defaultClassifications = map[ErrorCode]ErrorClassification{
	CodeTimeout:     ClassificationRetryable,
	CodeNetwork:     ClassificationRetryable,
	CodeUnavailable: ClassificationRetryable,

	CodeNotFound:        ClassificationPermanent,
	CodeResolution:      ClassificationPermanent,
	CodeUnauthorized:    ClassificationPermanent,
	CodeForbidden:       ClassificationPermanent,
	CodeInvalidInput:    ClassificationPermanent,
	CodePathTraversal:   ClassificationPermanent,
	CodeInvalidConfig:   ClassificationPermanent,
	CodeExecutionFailed: ClassificationPermanent,
	CodeInternal:        ClassificationPermanent,
	CodeUnknown:         ClassificationPermanent,
}

// classificationFor returns the default classification for an error code.
// Unknown codes are permanent.
func classificationFor(code ErrorCode) ErrorClassification {
	if class, ok := defaultClassifications[code]; ok {
		return class
	}
	return ClassificationPermanent
}
