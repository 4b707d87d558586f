package workflow

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/internal/config"
	"github.com/JaimeStill/tally/internal/documents"
	"github.com/JaimeStill/tally/internal/llm"
	"github.com/JaimeStill/tally/internal/notify"
	"github.com/JaimeStill/tally/internal/tenants"
)

// DocumentStore is the document persistence the pipeline uses.
type DocumentStore interface {
	Find(ctx context.Context, id uuid.UUID) (*documents.Document, error)
	Create(ctx context.Context, cmd documents.CreateCommand) (*documents.Document, error)
	Update(ctx context.Context, id uuid.UUID, patch documents.Patch) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status documents.Status) error
}

// ObjectStore is the object storage the pipeline uses.
type ObjectStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// SchemaSource resolves tenant extraction schemas.
type SchemaSource interface {
	Schema(ctx context.Context, tenantID string) (*tenants.Schema, error)
}

// PageFunc receives one rendered page. number is 1-based.
type PageFunc = func(number, total int, png []byte) error

// Rasterizer renders a PDF to page images, batch pages at a time, calling
// fn for every page in order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte, batch int, fn PageFunc) (int, error)
}

// Runtime bundles the dependencies that pipeline stages require.
// It is constructed by higher-level composition code from Infrastructure and Domain systems.
type Runtime struct {
	Documents  DocumentStore
	Storage    ObjectStore
	Tenants    SchemaSource
	Model      llm.Model
	Rasterizer Rasterizer
	Notifier   notify.Sink
	Pipeline   config.PipelineConfig
	Logger     *slog.Logger
}

// reporter maps stage-local progress into the stage's band and notifies
// without persisting.
type reporter struct {
	rt     *Runtime
	item   *WorkItem
	status documents.Status
	lo, hi float64
}

func (r *Runtime) reporter(item *WorkItem, stage Stage, status documents.Status) *reporter {
	lo, hi := Band(stage)
	return &reporter{rt: r, item: item, status: status, lo: lo, hi: hi}
}

// report notifies progress at fraction f of the band.
func (p *reporter) report(ctx context.Context, f float64) {
	f = min(max(f, 0), 1)
	progress := max(p.lo+f*(p.hi-p.lo), p.item.Progress)

	p.rt.Notifier.Notify(ctx, notify.Event{
		DocumentID:  p.item.DocumentID,
		RequesterID: p.item.Requester.ID,
		TenantID:    p.item.TenantID,
		Status:      p.status,
		Progress:    percent(progress),
	})
}

// enter persists a stage status and notifies it.
func (r *Runtime) enter(ctx context.Context, item *WorkItem, status documents.Status) error {
	if err := r.Documents.UpdateStatus(ctx, item.DocumentID, status); err != nil {
		return err
	}

	r.Notifier.Notify(ctx, notify.Event{
		DocumentID:  item.DocumentID,
		RequesterID: item.Requester.ID,
		TenantID:    item.TenantID,
		Status:      status,
		Progress:    item.Percent(),
	})
	return nil
}
