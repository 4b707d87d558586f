package llm

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"google.golang.org/genai"

	"github.com/JaimeStill/tally/internal/config"
	"github.com/JaimeStill/tally/internal/documents"
	"github.com/JaimeStill/tally/pkg/formatting"
)

// Generator is the subset of the GenAI models service the facade calls.
type Generator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Options tunes a Gemini facade.
type Options struct {
	Model           string
	Timeout         time.Duration
	MaxRetries      int
	MaxOutputTokens int
}

// Gemini implements Model on the Google GenAI SDK.
type Gemini struct {
	gen    Generator
	opts   Options
	logger *slog.Logger
}

// New creates a GenAI client for the configured backend.
func New(ctx context.Context, cfg *config.LLMConfig, logger *slog.Logger) (*Gemini, error) {
	cc := &genai.ClientConfig{}

	switch cfg.Backend {
	case config.BackendVertex:
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.Project
		cc.Location = cfg.Location
	default:
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = cfg.APIKey
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return NewWithGenerator(client.Models, Options{
		Model:           cfg.Model,
		Timeout:         cfg.TimeoutDuration(),
		MaxRetries:      cfg.MaxRetries,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}, logger), nil
}

// NewWithGenerator creates a facade over gen.
func NewWithGenerator(gen Generator, opts Options, logger *slog.Logger) *Gemini {
	if opts.MaxRetries > 1 {
		opts.MaxRetries = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Gemini{
		gen:    gen,
		opts:   opts,
		logger: logger.With("system", "llm", "model", opts.Model),
	}
}

type recognition documents.Recognition

func (r *recognition) Validate() error {
	switch r.RotationDegrees {
	case 0, 90, 180, 270:
		return nil
	}
	return fmt.Errorf("rotation_degrees %d is not a right angle", r.RotationDegrees)
}

func (g *Gemini) Classify(ctx context.Context, image []byte) (documents.Recognition, error) {
	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: "image/png", Data: image}},
		{Text: classifyPrompt},
	}

	var r recognition
	if err := g.call(ctx, "classify", parts, ClassificationSchema(), &r); err != nil {
		return documents.Recognition{}, err
	}
	return documents.Recognition(r), nil
}

func (g *Gemini) ExtractStructured(ctx context.Context, req Request, schema *genai.Schema, out any) error {
	parts := make([]*genai.Part, 0, len(req.Images)*2+1)
	for _, img := range req.Images {
		mime := img.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts,
			&genai.Part{Text: img.Label},
			&genai.Part{InlineData: &genai.Blob{MIMEType: mime, Data: img.Data}},
		)
	}
	parts = append(parts, &genai.Part{Text: req.Prompt})

	return g.call(ctx, "extract", parts, schema, out)
}

func (g *Gemini) call(ctx context.Context, op string, parts []*genai.Part, schema *genai.Schema, out any) error {
	contents := []*genai.Content{{Role: "user", Parts: parts}}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
		Temperature:      genai.Ptr[float32](0),
		MaxOutputTokens:  int32(g.opts.MaxOutputTokens),
	}

	var lastErr error
	for attempt := 0; attempt <= g.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.WarnContext(ctx, "retrying llm call", "op", op, "error", lastErr)
		}

		lastErr = g.attempt(ctx, contents, cfg, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}

	return fmt.Errorf("%w: %s: %w", ErrCallFailed, op, lastErr)
}

func (g *Gemini) attempt(
	ctx context.Context,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
	out any,
) error {
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	resp, err := g.gen.GenerateContent(ctx, g.opts.Model, contents, cfg)
	if err != nil {
		return err
	}

	text := resp.Text()
	if text == "" {
		return ErrEmptyResponse
	}

	// drop fields left over from a rejected attempt
	if v := reflect.ValueOf(out); v.Kind() == reflect.Pointer && !v.IsNil() {
		v.Elem().SetZero()
	}

	return formatting.Into(text, out)
}
