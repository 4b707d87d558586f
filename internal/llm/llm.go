// Package llm is the model facade for page classification and structured
// statement extraction.
package llm

import (
	"context"

	"google.golang.org/genai"

	"github.com/JaimeStill/tally/internal/documents"
)

// Image is one page image sent with a request. Label is the caption
// placed before the image, e.g. "IMAGE 1".
type Image struct {
	Label    string
	Data     []byte
	MIMEType string
}

// Request is a structured-extraction prompt with its page images.
type Request struct {
	Prompt string
	Images []Image
}

// Model classifies pages and extracts structured data from page images.
// Every call carries its own timeout and at most one retry. A response that
// does not decode into the declared shape counts as a failed attempt.
type Model interface {
	Classify(ctx context.Context, image []byte) (documents.Recognition, error)
	// ExtractStructured decodes the response into out. When out implements
	// Validate() error, a failed validation also counts as a failed attempt.
	ExtractStructured(ctx context.Context, req Request, schema *genai.Schema, out any) error
}
