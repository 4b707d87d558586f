// Package processing exposes the HTTP endpoints that submit documents to
// the pipeline: the initial upload and the re-run operations.
package processing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"slices"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/internal/documents"
	"github.com/JaimeStill/tally/internal/queue"
	"github.com/JaimeStill/tally/internal/workflow"
	"github.com/JaimeStill/tally/pkg/formatting"
	"github.com/JaimeStill/tally/pkg/handlers"
	"github.com/JaimeStill/tally/pkg/middleware"
	"github.com/JaimeStill/tally/pkg/routes"
)

// Store is the document persistence the handler uses.
type Store interface {
	Find(ctx context.Context, id uuid.UUID) (*documents.Document, error)
	Create(ctx context.Context, cmd documents.CreateCommand) (*documents.Document, error)
	Update(ctx context.Context, id uuid.UUID, patch documents.Patch) error
}

// Enqueuer accepts pipeline requests.
type Enqueuer interface {
	Enqueue(req workflow.Request) error
}

// Inspector rejects uploads that are not processable PDFs.
type Inspector func(data []byte) error

// MaxBatchFiles is the number of files one upload request may carry.
const MaxBatchFiles = 5

// Accepted is the result for one submitted document. A file that could
// not be queued carries Error.
type Accepted struct {
	ID        uuid.UUID          `json:"id,omitzero"`
	Filename  string             `json:"filename,omitempty"`
	Status    documents.Status   `json:"status"`
	Operation workflow.Operation `json:"operation"`
	Error     string             `json:"error,omitempty"`
}

// Batch is the body returned for an upload.
type Batch struct {
	Documents []Accepted `json:"documents"`
}

// Handler submits documents for processing.
type Handler struct {
	docs          Store
	queue         Enqueuer
	inspect       Inspector
	logger        *slog.Logger
	maxUploadSize int64
	defaultTenant string
}

// NewHandler creates a Handler. Files larger than maxUploadSize are
// rejected; callers without a tenant resolve to defaultTenant.
func NewHandler(
	docs Store,
	q Enqueuer,
	inspect Inspector,
	logger *slog.Logger,
	maxUploadSize int64,
	defaultTenant string,
) *Handler {
	return &Handler{
		docs:          docs,
		queue:         q,
		inspect:       inspect,
		logger:        logger.With("handler", "processing"),
		maxUploadSize: maxUploadSize,
		defaultTenant: defaultTenant,
	}
}

// Routes returns the route group definition for processing endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/processing/documents",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Upload},
			{Method: "POST", Pattern: "/{id}/classify-extract", Handler: h.rerun(workflow.ClassifyAndExtract)},
			{Method: "POST", Pattern: "/{id}/extract", Handler: h.rerun(workflow.Extract)},
			{Method: "POST", Pattern: "/{id}/validate", Handler: h.rerun(workflow.Validate)},
		},
	}
}

type upload struct {
	filename string
	data     []byte
}

// Upload accepts up to MaxBatchFiles PDFs in the repeated files field (or
// a single file field), records each as Queued, and enqueues a full
// process run per file. Every file is checked before any is recorded.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	limit := h.maxUploadSize * MaxBatchFiles
	if r.ContentLength > limit {
		h.tooLarge(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.tooLarge(w)
			return
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %w", documents.ErrInvalidFile, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files, err := h.read(r.MultipartForm)
	if err != nil {
		handlers.RespondError(w, h.logger, documents.MapHTTPStatus(err), err)
		return
	}

	requester := h.requester(r)
	batch := Batch{Documents: make([]Accepted, 0, len(files))}

	var lastErr error
	for _, f := range files {
		accepted, err := h.submit(r.Context(), requester, f)
		if err != nil {
			lastErr = err
		}
		batch.Documents = append(batch.Documents, accepted)
	}

	if !slices.ContainsFunc(batch.Documents, func(a Accepted) bool { return a.Error == "" }) {
		status := queue.MapHTTPStatus(lastErr)
		if status == http.StatusInternalServerError {
			status = documents.MapHTTPStatus(lastErr)
		}
		handlers.RespondError(w, h.logger, status, lastErr)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, batch)
}

// read collects and inspects the uploaded files.
func (h *Handler) read(form *multipart.Form) ([]upload, error) {
	headers := slices.Concat(form.File["files"], form.File["file"])

	switch {
	case len(headers) == 0:
		return nil, fmt.Errorf("%w: files field required", documents.ErrInvalidFile)
	case len(headers) > MaxBatchFiles:
		return nil, fmt.Errorf("%w: %d files, limit is %d", documents.ErrTooManyFiles, len(headers), MaxBatchFiles)
	}

	files := make([]upload, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > h.maxUploadSize {
			return nil, fmt.Errorf("%w: %s: limit is %s", documents.ErrFileTooLarge, fh.Filename, formatting.FormatBytes(h.maxUploadSize))
		}

		data, err := readFile(fh)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", documents.ErrInvalidFile, fh.Filename, err)
		}

		if err := h.inspect(data); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", documents.ErrInvalidFile, fh.Filename, err)
		}

		files = append(files, upload{filename: fh.Filename, data: data})
	}
	return files, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// submit records one file as Queued and enqueues it. A document whose
// enqueue fails is marked Error.
func (h *Handler) submit(ctx context.Context, requester workflow.Requester, f upload) (Accepted, error) {
	result := Accepted{Filename: f.filename, Operation: workflow.FullProcess}

	doc, err := h.docs.Create(ctx, documents.CreateCommand{
		TenantID:    requester.TenantID,
		RequesterID: requester.ID,
		Filename:    f.filename,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "create document", "filename", f.filename, "error", err)
		result.Status = documents.StatusError
		result.Error = err.Error()
		return result, err
	}
	result.ID = doc.ID

	req := workflow.Request{
		Operation:  workflow.FullProcess,
		DocumentID: doc.ID,
		Requester:  requester,
		Filename:   f.filename,
		Content:    f.data,
	}

	if err := h.queue.Enqueue(req); err != nil {
		status := documents.StatusError
		message := err.Error()
		if uerr := h.docs.Update(ctx, doc.ID, documents.Patch{Status: &status, ErrorMessage: &message}); uerr != nil {
			h.logger.ErrorContext(ctx, "record enqueue failure", "document_id", doc.ID, "error", uerr)
		}
		result.Status = status
		result.Error = message
		return result, err
	}

	h.logger.InfoContext(ctx, "document queued",
		"document_id", doc.ID,
		"filename", f.filename,
		"size", formatting.FormatBytes(int64(len(f.data))),
	)

	result.Status = documents.StatusQueued
	return result, nil
}

// rerun returns a handler that enqueues op for an existing document.
// Preconditions are checked by the pipeline, which records a rejection
// on the document.
func (h *Handler) rerun(op workflow.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrInvalidID)
			return
		}

		requester := h.requester(r)

		doc, err := h.docs.Find(r.Context(), id)
		if err != nil {
			handlers.RespondError(w, h.logger, documents.MapHTTPStatus(err), err)
			return
		}
		if doc.TenantID != requester.TenantID {
			handlers.RespondError(w, h.logger, http.StatusNotFound, documents.ErrNotFound)
			return
		}

		queued := documents.StatusQueued
		if err := h.docs.Update(r.Context(), id, documents.Patch{Status: &queued}); err != nil {
			handlers.RespondError(w, h.logger, documents.MapHTTPStatus(err), err)
			return
		}

		if err := h.queue.Enqueue(workflow.Request{Operation: op, DocumentID: id, Requester: requester}); err != nil {
			previous := doc.Status
			if uerr := h.docs.Update(r.Context(), id, documents.Patch{Status: &previous}); uerr != nil {
				h.logger.Error("restore status", "document_id", id, "error", uerr)
			}
			handlers.RespondError(w, h.logger, queue.MapHTTPStatus(err), err)
			return
		}

		h.logger.Info("document requeued", "document_id", id, "operation", op)

		handlers.RespondJSON(w, http.StatusAccepted, Accepted{ID: id, Status: queued, Operation: op})
	}
}

func (h *Handler) tooLarge(w http.ResponseWriter) {
	err := fmt.Errorf("%w: limit is %s", documents.ErrFileTooLarge, formatting.FormatBytes(h.maxUploadSize))
	handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, err)
}

func (h *Handler) requester(r *http.Request) workflow.Requester {
	req := workflow.Requester{TenantID: h.defaultTenant}
	if id, ok := middleware.IdentityFrom(r.Context()); ok {
		req.ID = id.Subject
		if id.TenantID != "" {
			req.TenantID = id.TenantID
		}
	}
	return req
}
