package errors

import stderrors "errors"

// WithContext adds a single context field to an error and returns a new
// PlatformError. Existing fields are preserved.
//
// If err is not a PlatformError, it is converted to one with CodeUnknown.
// Returns nil if err is nil.
//
// Example:
//
//	err = errors.WithContext(err, "stderr", truncated)
func WithContext(err error, key string, value interface{}) PlatformError {
	return WithContextMap(err, map[string]interface{}{key: value})
}

// WithContextMap merges several context fields into an error. New fields
// override existing ones with the same key.
//
// Returns nil if err is nil.
func WithContextMap(err error, fields map[string]interface{}) PlatformError {
	if err == nil {
		return nil
	}

	var platformErr PlatformError
	if !stderrors.As(err, &platformErr) {
		platformErr = &platformError{
			code:           CodeUnknown,
			classification: ClassificationPermanent,
			message:        err.Error(),
			cause:          err,
		}
	}

	merged := platformErr.Context()
	if merged == nil {
		merged = make(map[string]interface{}, len(fields))
	}
	for k, v := range fields {
		merged[k] = v
	}

	return &platformError{
		code:           platformErr.Code(),
		classification: platformErr.Classification(),
		message:        platformErr.Message(),
		context:        merged,
		cause:          platformErr.Unwrap(),
	}
}
