package pipeline

import "fmt"

// NotFoundError reports that a referenced upstream record does not exist.
type NotFoundError struct {
	Resource string // "audio file", "transcript", "analysis", "coaching plan"
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ConflictError reports that a downstream record already exists for the
// given upstream id. ExistingID lets the caller proceed with the record that
// is already there instead of re-creating it.
type ConflictError struct {
	Resource   string // the downstream resource, e.g. "transcript"
	UpstreamID string
	ExistingID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists for %s (id %s)", e.Resource, e.UpstreamID, e.ExistingID)
}

// ValidationError reports a rejected input: malformed id shape, unsupported
// file type, unsupported language hint, or a schema violation in the request
// body. Code is a stable machine-readable identifier such as
// "INVALID_FILE_TYPE".
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamError reports a failed STT or LLM provider call, including a
// response that came back missing required fields. The provider's own error
// text is preserved for the response body.
type UpstreamError struct {
	Provider string // "stt" or "llm"
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
