package rasterize

import "errors"

var (
	// ErrInvalidPDF indicates the input is not a readable PDF.
	ErrInvalidPDF = errors.New("invalid pdf")
	// ErrRenderFailed indicates a page could not be rendered to an image.
	ErrRenderFailed = errors.New("render failed")
	// ErrPageRange indicates a page number outside the document.
	ErrPageRange = errors.New("page out of range")
)
