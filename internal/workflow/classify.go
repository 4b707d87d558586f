package workflow

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/JaimeStill/tally/internal/documents"
	"github.com/JaimeStill/tally/internal/imaging"
	"github.com/JaimeStill/tally/pkg/storage"
)

// StopNoRelevantPages is the stop reason when classification finds nothing to extract.
const StopNoRelevantPages = "no balance sheet or income statement pages detected"

// classify recognizes every page concurrently, bounded by the configured
// concurrency and a shared rate limiter. Pages whose content is rotated are
// straightened and stored back under the same key.
func classify(ctx context.Context, rt *Runtime, item WorkItem) (WorkItem, error) {
	if err := rt.enter(ctx, &item, documents.StatusClassifying); err != nil {
		return item, fmt.Errorf("%w: %w", ErrClassifyFailed, err)
	}

	pages := slices.Clone(item.Pages)
	total := len(pages)

	limiter := rate.NewLimiter(rate.Limit(rt.Pipeline.ClassifyRate), 1)
	progress := rt.reporter(&item, StageClassification, documents.StatusClassifying)
	step := max(total/20, 1)

	var done, failed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(rt.Pipeline.ClassifyConcurrency, 1))

	for i := range pages {
		g.Go(func() error {
			defer func() {
				n := int(done.Add(1))
				if n%step == 0 || n == total {
					progress.report(gctx, float64(n)/float64(total))
				}
			}()

			if err := limiter.Wait(gctx); err != nil {
				return err
			}

			recognized, err := classifyPage(gctx, rt, &pages[i])
			if err != nil {
				if !recognized {
					failed.Add(1)
				}
				pages[i].Error = err.Error()
				rt.Logger.WarnContext(
					gctx, "page classification failed",
					"document_id", item.DocumentID,
					"page", pages[i].Number,
					"error", err,
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return item, fmt.Errorf("%w: %w", ErrClassifyFailed, err)
	}

	if total > 0 && int(failed.Load()) == total {
		return item, fmt.Errorf("%w: all %d pages failed", ErrClassifyFailed, total)
	}

	item.Pages = pages
	item.TotalPages = total

	if err := rt.Documents.Update(ctx, item.DocumentID, documents.Patch{
		Pages:     pages,
		PageCount: &total,
	}); err != nil {
		return item, fmt.Errorf("%w: persist pages: %w", ErrClassifyFailed, err)
	}

	if !slices.ContainsFunc(pages, documents.Page.Relevant) {
		item.Stop = true
		item.StopReason = StopNoRelevantPages
	}

	rt.Logger.InfoContext(
		ctx, "classify node complete",
		"document_id", item.DocumentID,
		"page_count", total,
		"failed", failed.Load(),
		"stop", item.Stop,
	)

	return item, nil
}

// classifyPage recognizes one page in place, replacing the result of any
// earlier run, and reports whether the model recognized it. The page image
// buffer lives only for the duration of the call.
func classifyPage(ctx context.Context, rt *Runtime, page *documents.Page) (bool, error) {
	page.Error = ""
	page.Classified = false
	page.Recognition = nil
	page.Rotated = false

	data, err := storage.Get(ctx, rt.Storage, page.ImagePath)
	if err != nil {
		return false, fmt.Errorf("download image: %w", err)
	}

	rec, err := rt.Model.Classify(ctx, data)
	if err != nil {
		return false, err
	}

	page.Recognition = &rec
	page.Classified = true

	degrees, err := imaging.Normalize(rec.RotationDegrees)
	if err != nil || degrees == 0 {
		return true, nil
	}

	rotated, err := imaging.Rotate(data, degrees)
	if err != nil {
		return true, fmt.Errorf("rotate %d: %w", degrees, err)
	}

	if err := storage.Put(ctx, rt.Storage, page.ImagePath, rotated, pngContentType); err != nil {
		return true, fmt.Errorf("store rotated image: %w", err)
	}

	page.Rotated = true
	return true, nil
}
