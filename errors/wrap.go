package errors

import (
	stderrors "errors"
	"fmt"
)

// Wrap wraps an error with a code and message while preserving the original
// error. If err already carries a PlatformError its classification is kept.
//
// Returns nil if err is nil.
//
// Example:
//
//	if _, err := runner.Run(ctx, spec, argv, timeout); err != nil {
//	    return errors.Wrap(err, errors.CodeNetwork, "failed to clone repository")
//	}
func Wrap(err error, code ErrorCode, message string) PlatformError {
	if err == nil {
		return nil
	}

	classification := classificationFor(code)
	var platformErr PlatformError
	if stderrors.As(err, &platformErr) {
		classification = platformErr.Classification()
	}

	return &platformError{
		code:           code,
		classification: classification,
		message:        message,
		cause:          err,
	}
}

// Wrapf wraps an error with a formatted message.
//
// Returns nil if err is nil.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) PlatformError {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}
