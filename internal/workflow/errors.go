// Package workflow implements the document processing pipeline: the router
// that picks an entry stage for an operation, the stages themselves, and
// the engine that runs them and records the terminal outcome.
package workflow

import "errors"

// Sentinel errors for workflow operations.
var (
	// ErrPrecondition indicates the document is not in a state the
	// operation can start from. Its text is the user-visible prefix.
	ErrPrecondition     = errors.New("cannot process")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrDocumentNotFound = errors.New("document not found")
	ErrUploadFailed     = errors.New("upload failed")
	ErrRenderFailed     = errors.New("failed to render page images")
	ErrClassifyFailed   = errors.New("classification failed")
	ErrExtractFailed    = errors.New("extraction failed")
	ErrValidationFailed = errors.New("validation failed")
)
