// Package rasterize renders PDF pages to PNG images through ImageMagick.
package rasterize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/JaimeStill/document-context/pkg/config"
	"github.com/JaimeStill/document-context/pkg/document"
	"github.com/JaimeStill/document-context/pkg/image"

	"golang.org/x/sync/errgroup"
)

const sourcePDF = "source.pdf"

// Rasterizer opens PDFs for page rendering at a fixed resolution.
type Rasterizer struct {
	dpi    int
	logger *slog.Logger
}

// New creates a Rasterizer. A non-positive dpi keeps the renderer default.
func New(dpi int, logger *slog.Logger) *Rasterizer {
	return &Rasterizer{
		dpi:    dpi,
		logger: logger.With("system", "rasterize"),
	}
}

// Document is an opened PDF. It owns a temporary directory that Close removes.
type Document struct {
	dir    string
	count  int
	render func(i int) ([]byte, error)
	close  func()
}

// Open writes data to a temporary directory and prepares its pages for rendering.
func (r *Rasterizer) Open(ctx context.Context, data []byte) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "tally-render-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create temp dir: %w", ErrRenderFailed, err)
	}

	path := filepath.Join(dir, sourcePDF)
	if err := os.WriteFile(path, data, 0600); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: write temp pdf: %w", ErrRenderFailed, err)
	}

	pdfDoc, err := document.OpenPDF(path)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: open pdf: %w", ErrInvalidPDF, err)
	}

	cfg := config.DefaultImageConfig()
	if r.dpi > 0 {
		cfg.DPI = r.dpi
	}

	renderer, err := image.NewImageMagickRenderer(cfg)
	if err != nil {
		pdfDoc.Close()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: create renderer: %w", ErrRenderFailed, err)
	}

	pages, err := pdfDoc.ExtractAllPages()
	if err != nil {
		pdfDoc.Close()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: extract pages: %w", ErrRenderFailed, err)
	}

	r.logger.DebugContext(ctx, "pdf opened", "page_count", len(pages), "dpi", cfg.DPI)

	return &Document{
		dir:   dir,
		count: len(pages),
		render: func(i int) ([]byte, error) {
			return pages[i].ToImage(renderer, nil)
		},
		close: func() {
			pdfDoc.Close()
		},
	}, nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.count
}

// Render returns the PNG for the 1-based page number.
func (d *Document) Render(ctx context.Context, number int) ([]byte, error) {
	if number < 1 || number > d.count {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageRange, number, d.count)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := d.render(number - 1)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %w", ErrRenderFailed, number, err)
	}
	return data, nil
}

// RenderBatch renders the given page numbers concurrently and returns the
// images in the same order.
func (d *Document) RenderBatch(ctx context.Context, numbers []int) ([][]byte, error) {
	images := make([][]byte, len(numbers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(len(numbers)))

	for i, n := range numbers {
		g.Go(func() error {
			data, err := d.Render(gctx, n)
			if err != nil {
				return err
			}
			images[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

// Close releases the PDF and removes the temporary directory.
func (d *Document) Close() error {
	d.close()
	return os.RemoveAll(d.dir)
}

func workerCount(n int) int {
	return max(min(runtime.NumCPU(), n), 1)
}

// Rasterize renders every page of pdf, batch pages at a time, and calls fn
// for each page in page order. It returns the page count.
func (r *Rasterizer) Rasterize(
	ctx context.Context,
	pdf []byte,
	batch int,
	fn func(number, total int, png []byte) error,
) (int, error) {
	doc, err := r.Open(ctx, pdf)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := doc.Close(); err != nil {
			r.logger.WarnContext(ctx, "remove render dir failed", "error", err)
		}
	}()

	total := doc.PageCount()
	batch = max(batch, 1)

	for start := 1; start <= total; start += batch {
		end := min(start+batch-1, total)

		numbers := make([]int, 0, end-start+1)
		for n := start; n <= end; n++ {
			numbers = append(numbers, n)
		}

		images, err := doc.RenderBatch(ctx, numbers)
		if err != nil {
			return 0, err
		}

		for i, data := range images {
			if err := fn(numbers[i], total, data); err != nil {
				return 0, err
			}
			images[i] = nil
		}
	}

	return total, nil
}
