package errors

// ErrorResponse is the JSON body of a failed worker request. ExitCode and
// Stderr are lifted from the error's context when a tool or git process
// produced them.
type ErrorResponse struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error"`
	Code     string `json:"code"`
	ExitCode *int   `json:"exitCode,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
}

// ToJSON converts any error to an ErrorResponse. Returns nil if err is nil.
//
// For standard errors the code is CodeUnknown and the message is err.Error().
func ToJSON(err error) *ErrorResponse {
	if err == nil {
		return nil
	}

	resp := &ErrorResponse{
		Error: err.Error(),
		Code:  string(GetCode(err)),
	}

	var platformErr PlatformError
	if As(err, &platformErr) {
		resp.Error = platformErr.Message()
		context := platformErr.Context()
		if code, ok := context["exitCode"].(int); ok {
			resp.ExitCode = &code
		}
		if stderr, ok := context["stderr"].(string); ok {
			resp.Stderr = stderr
		}
	}
	return resp
}

// FromJSON rebuilds the error an ErrorResponse describes. An empty code
// becomes CodeUnknown and an empty message becomes fallback.
func FromJSON(resp *ErrorResponse, fallback string) PlatformError {
	code := ErrorCode(resp.Code)
	if code == "" {
		code = CodeUnknown
	}
	message := resp.Error
	if message == "" {
		message = fallback
	}

	context := map[string]interface{}{}
	if resp.ExitCode != nil {
		context["exitCode"] = *resp.ExitCode
	}
	if resp.Stderr != "" {
		context["stderr"] = resp.Stderr
	}
	return WithContextMap(New(code, message), context)
}
