package workflow

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/JaimeStill/tally/internal/documents"
	"github.com/JaimeStill/tally/pkg/storage"
)

const (
	pdfContentType = "application/pdf"
	pngContentType = "image/png"
)

// DocumentPrefix is the storage prefix for one document's objects.
func DocumentPrefix(environment, tenantID, documentID string) string {
	return storage.Join(environment, tenantID, "documents", documentID)
}

// PDFKey is the storage key of a document's source PDF.
func PDFKey(environment, tenantID, documentID, filename string) string {
	return storage.Join(DocumentPrefix(environment, tenantID, documentID), "pdf", safeFilename(filename))
}

// PageKey is the storage key of a rendered page image.
func PageKey(environment, tenantID, documentID string, number int) string {
	return storage.Join(DocumentPrefix(environment, tenantID, documentID), "images", fmt.Sprintf("page_%03d.png", number))
}

func safeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		return "document.pdf"
	}
	return name
}

// uploadConvert stores the source PDF, renders every page, and stores
// the page images. The upload buffer is dropped on every exit path.
func uploadConvert(ctx context.Context, rt *Runtime, item WorkItem) (out WorkItem, err error) {
	defer func() {
		out.Content = nil
	}()

	if err := rt.enter(ctx, &item, documents.StatusUploading); err != nil {
		return item, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	docID := item.DocumentID.String()
	env := rt.Pipeline.Environment

	pdfKey := PDFKey(env, item.TenantID, docID, item.Filename)
	if err := storage.Put(ctx, rt.Storage, pdfKey, item.Content, pdfContentType); err != nil {
		return item, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	uploaded := documents.StatusUploaded
	if err := rt.Documents.Update(ctx, item.DocumentID, documents.Patch{
		StorageKey: &pdfKey,
		Status:     &uploaded,
	}); err != nil {
		return item, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	progress := rt.reporter(&item, StageUploadConvert, documents.StatusUploaded)
	batch := max(rt.Pipeline.RenderBatch, 1)

	var pages []documents.Page
	total, err := rt.Rasterizer.Rasterize(ctx, item.Content, batch, func(number, total int, png []byte) error {
		key := PageKey(env, item.TenantID, docID, number)
		if err := storage.Put(ctx, rt.Storage, key, png, pngContentType); err != nil {
			return fmt.Errorf("store page %d: %w", number, err)
		}

		pages = append(pages, documents.Page{Number: number, ImagePath: key})
		if number%batch == 0 || number == total {
			progress.report(ctx, float64(number)/float64(total))
		}
		return nil
	})
	if err != nil {
		discardPages(ctx, rt, pages)
		return item, fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}
	if total == 0 || len(pages) == 0 {
		return item, fmt.Errorf("%w: pdf has no pages", ErrRenderFailed)
	}

	item.Pages = pages
	item.TotalPages = total

	if err := rt.Documents.Update(ctx, item.DocumentID, documents.Patch{
		Pages:     pages,
		PageCount: &total,
	}); err != nil {
		return item, fmt.Errorf("%w: persist pages: %w", ErrRenderFailed, err)
	}

	rt.Logger.InfoContext(
		ctx, "upload node complete",
		"document_id", item.DocumentID,
		"page_count", total,
	)

	return item, nil
}

// discardPages removes page images stored before rendering failed. The
// source PDF is kept for a later rerun.
func discardPages(ctx context.Context, rt *Runtime, pages []documents.Page) {
	if len(pages) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	for _, p := range pages {
		if err := rt.Storage.Delete(ctx, p.ImagePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
			rt.Logger.WarnContext(ctx, "discard page image failed", "key", p.ImagePath, "error", err)
		}
	}
}
