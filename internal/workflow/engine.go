package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JaimeStill/tally/internal/documents"
	"github.com/JaimeStill/tally/internal/notify"
)

// terminalTimeout bounds recording an outcome after the run context ends.
const terminalTimeout = 10 * time.Second

type stageFunc func(ctx context.Context, rt *Runtime, item WorkItem) (WorkItem, error)

// Engine runs pipeline requests against a Runtime. It is the only
// component that decides a document's terminal status.
type Engine struct {
	rt     *Runtime
	stages map[Stage]stageFunc
	status map[Stage]documents.Status
}

// NewEngine creates an Engine over rt.
func NewEngine(rt *Runtime) *Engine {
	rt.Logger = rt.Logger.With("system", "workflow")
	if rt.Notifier == nil {
		rt.Notifier = notify.Discard
	}

	return &Engine{
		rt: rt,
		stages: map[Stage]stageFunc{
			StageUploadConvert:  uploadConvert,
			StageClassification: classify,
			StageExtraction:     extract,
			StageValidation:     validate,
		},
		status: map[Stage]documents.Status{
			StageUploadConvert:  documents.StatusUploaded,
			StageClassification: documents.StatusClassifying,
			StageExtraction:     documents.StatusExtracting,
			StageValidation:     documents.StatusValidating,
		},
	}
}

// Execute runs req from its routed entry stage to a terminal state.
// A run that ends in Error is recorded and notified, and Execute returns
// nil. A non-nil error means the outcome could not be recorded.
func (e *Engine) Execute(ctx context.Context, req Request) error {
	item, err := e.start(ctx, req)
	if err != nil {
		return e.fail(ctx, item, err)
	}

	entry, err := Route(req.Operation, item)
	if err != nil {
		return e.fail(ctx, item, err)
	}

	e.rt.Logger.InfoContext(
		ctx, "workflow started",
		"document_id", item.DocumentID,
		"operation", item.Operation,
		"entry", entry,
	)

	for _, stage := range Sequence(entry) {
		if stage == StageEnd {
			break
		}

		began := time.Now()
		next, err := e.stages[stage](ctx, e.rt, item)
		next.Timings.set(stage, time.Since(began).Seconds())

		if err != nil {
			return e.fail(ctx, next, err)
		}

		_, hi := Band(stage)
		next.Progress = max(next.Progress, item.Progress, hi)
		item = next

		if err := e.checkpoint(ctx, item, e.status[stage]); err != nil {
			return e.fail(ctx, item, err)
		}

		if item.Stop {
			break
		}
	}

	return e.end(ctx, item)
}

// Abort records req as failed with reason. It is the terminal path for
// failures that escape Execute, and persists on a best-effort basis.
func (e *Engine) Abort(ctx context.Context, req Request, reason string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalTimeout)
	defer cancel()

	item := NewWorkItem(req)
	item.Content = nil
	item.TenantID = e.tenant(req.Requester)
	item.ErrorMessage = reason

	if doc, err := e.rt.Documents.Find(ctx, req.DocumentID); err == nil {
		item.Progress = float64(doc.Progress) / 100
		item.TotalPages = doc.PageCount
	}

	status := documents.StatusError
	progress := item.Percent()
	if err := e.rt.Documents.Update(ctx, item.DocumentID, documents.Patch{
		Status:       &status,
		Progress:     &progress,
		ErrorMessage: &reason,
	}); err != nil {
		e.rt.Logger.ErrorContext(ctx, "abort persist failed", "document_id", item.DocumentID, "error", err)
	}

	e.rt.Notifier.Notify(ctx, e.terminalEvent(item, status))
}

func (e *Engine) tenant(r Requester) string {
	if r.TenantID != "" {
		return r.TenantID
	}
	return e.rt.Pipeline.DefaultTenant
}

// start seeds the work item and hydrates it from the stored document,
// creating the document for a full process run.
func (e *Engine) start(ctx context.Context, req Request) (WorkItem, error) {
	item := NewWorkItem(req)
	item.TenantID = e.tenant(req.Requester)
	item.Progress = 0

	doc, err := e.rt.Documents.Find(ctx, req.DocumentID)
	if errors.Is(err, documents.ErrNotFound) && req.Operation == FullProcess {
		doc, err = e.rt.Documents.Create(ctx, documents.CreateCommand{
			ID:          req.DocumentID,
			TenantID:    item.TenantID,
			RequesterID: req.Requester.ID,
			Filename:    req.Filename,
		})
	}
	if err != nil {
		item.Content = nil
		if errors.Is(err, documents.ErrNotFound) {
			return item, fmt.Errorf("%w: %s", ErrDocumentNotFound, req.DocumentID)
		}
		return item, fmt.Errorf("load document: %w", err)
	}

	if doc.TenantID != "" {
		item.TenantID = doc.TenantID
	}

	return item.Hydrate(doc), nil
}

// checkpoint persists progress after a stage and notifies it.
func (e *Engine) checkpoint(ctx context.Context, item WorkItem, status documents.Status) error {
	progress := item.Percent()
	if err := e.rt.Documents.Update(ctx, item.DocumentID, documents.Patch{
		Progress:       &progress,
		ProcessingTime: item.Timings.ProcessingTime(),
	}); err != nil {
		return fmt.Errorf("persist progress: %w", err)
	}

	e.rt.Notifier.Notify(ctx, notify.Event{
		DocumentID:  item.DocumentID,
		RequesterID: item.Requester.ID,
		TenantID:    item.TenantID,
		Status:      status,
		Progress:    progress,
	})
	return nil
}

// end records the successful terminal state: NoData for a stopped run,
// otherwise the validation status.
func (e *Engine) end(ctx context.Context, item WorkItem) error {
	status := documents.StatusAnalyzed

	switch {
	case item.Stop:
		status = documents.StatusNoData
		item.Validation = &documents.Validation{
			Status:   documents.StatusNoData,
			Outcomes: []documents.RuleOutcome{},
			Messages: []string{item.StopReason},
		}
	case item.Validation != nil:
		status = item.Validation.Status
		if e.rt.Pipeline.BlockOnValidationFailure && item.Validation.Warnings {
			status = documents.StatusError
			item.ErrorMessage = fmt.Sprintf("%v: %s", ErrValidationFailed, strings.Join(item.Validation.Messages, "; "))
		}
	}

	item.Progress = 1
	return e.terminate(ctx, item, status)
}

// fail records the Error terminal state for cause.
func (e *Engine) fail(ctx context.Context, item WorkItem, cause error) error {
	item.Content = nil
	item.ErrorMessage = cause.Error()

	e.rt.Logger.ErrorContext(
		ctx, "workflow failed",
		"document_id", item.DocumentID,
		"operation", item.Operation,
		"error", cause,
	)

	return e.terminate(ctx, item, documents.StatusError)
}

func (e *Engine) terminate(ctx context.Context, item WorkItem, status documents.Status) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalTimeout)
	defer cancel()

	progress := item.Percent()
	message := item.ErrorMessage

	patch := documents.Patch{
		Status:         &status,
		Progress:       &progress,
		ProcessingTime: item.Timings.ProcessingTime(),
		ErrorMessage:   &message,
	}
	if item.Stop {
		patch.Validation = item.Validation
	}

	if err := e.rt.Documents.Update(ctx, item.DocumentID, patch); err != nil {
		if !errors.Is(err, documents.ErrNotFound) {
			return fmt.Errorf("persist terminal status %s: %w", status, err)
		}
		e.rt.Logger.WarnContext(ctx, "terminal status for missing document", "document_id", item.DocumentID)
	}

	e.rt.Notifier.Notify(ctx, e.terminalEvent(item, status))

	e.rt.Logger.InfoContext(
		ctx, "workflow finished",
		"document_id", item.DocumentID,
		"status", status,
		"progress", progress,
	)
	return nil
}

func (e *Engine) terminalEvent(item WorkItem, status documents.Status) notify.Event {
	ev := notify.Event{
		DocumentID:     item.DocumentID,
		RequesterID:    item.Requester.ID,
		TenantID:       item.TenantID,
		Status:         status,
		Progress:       item.Percent(),
		Terminal:       true,
		BalanceDate:    item.BalanceDate,
		CompanyInfo:    item.CompanyInfo,
		Validation:     item.Validation,
		ProcessingTime: item.Timings.ProcessingTime(),
		ErrorMessage:   item.ErrorMessage,
	}
	if item.TotalPages > 0 {
		pages := item.TotalPages
		ev.PageCount = &pages
	}
	return ev
}
