package llm

import "errors"

var (
	// ErrCallFailed indicates a model call failed after its retry.
	ErrCallFailed = errors.New("llm call failed")
	// ErrEmptyResponse indicates the model returned no text.
	ErrEmptyResponse = errors.New("llm returned an empty response")
)
