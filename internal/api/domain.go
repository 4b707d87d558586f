package api

import (
	"fmt"

	"github.com/JaimeStill/tally/internal/config"
	"github.com/JaimeStill/tally/internal/documents"
	"github.com/JaimeStill/tally/internal/notify"
	"github.com/JaimeStill/tally/internal/processing"
	"github.com/JaimeStill/tally/internal/queue"
	"github.com/JaimeStill/tally/internal/rasterize"
	"github.com/JaimeStill/tally/internal/tenants"
	"github.com/JaimeStill/tally/internal/workflow"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Documents  documents.System
	Tenants    *tenants.Provider
	Hub        *notify.Hub
	Engine     *workflow.Engine
	Queue      *queue.Queue
	Processing *processing.Handler
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime, cfg *config.Config) (*Domain, error) {
	baseline, err := tenants.Baseline()
	if err != nil {
		return nil, fmt.Errorf("baseline schema: %w", err)
	}

	docsSystem := documents.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	provider := tenants.NewProvider(
		tenants.NewStore(runtime.Database.Connection()),
		baseline,
		runtime.Logger,
	)

	hub := notify.NewHub(cfg.API.CORS.Origins, runtime.Logger)

	engine := workflow.NewEngine(&workflow.Runtime{
		Documents:  docsSystem,
		Storage:    runtime.Storage,
		Tenants:    provider,
		Model:      runtime.Model,
		Rasterizer: runtime.Rasterizer,
		Notifier:   hub,
		Pipeline:   runtime.Pipeline,
		Logger:     runtime.Logger,
	})

	q := queue.New(&cfg.Queue, engine, runtime.Logger)

	processingHandler := processing.NewHandler(
		docsSystem,
		q,
		rasterize.Validate,
		runtime.Logger,
		cfg.API.MaxUploadSizeBytes(),
		runtime.Pipeline.DefaultTenant,
	)

	return &Domain{
		Documents:  docsSystem,
		Tenants:    provider,
		Hub:        hub,
		Engine:     engine,
		Queue:      q,
		Processing: processingHandler,
	}, nil
}

// Start registers the notification hub and the queue workers with the
// lifecycle coordinator.
func (d *Domain) Start(runtime *Runtime) error {
	if err := d.Hub.Start(runtime.Lifecycle); err != nil {
		return fmt.Errorf("notification hub start failed: %w", err)
	}
	if err := d.Queue.Start(runtime.Lifecycle); err != nil {
		return fmt.Errorf("queue start failed: %w", err)
	}
	return nil
}
