package rasterize

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageCount returns the number of pages in a PDF held in memory.
func PageCount(data []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(data), relaxed())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidPDF, err)
	}
	return count, nil
}

// Validate checks that data parses as a PDF with at least one page.
func Validate(data []byte) error {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return fmt.Errorf("%w: missing pdf header", ErrInvalidPDF)
	}

	if err := api.Validate(bytes.NewReader(data), relaxed()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPDF, err)
	}

	count, err := PageCount(data)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: no pages", ErrInvalidPDF)
	}
	return nil
}

func relaxed() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}
