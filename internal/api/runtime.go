package api

import (
	"github.com/JaimeStill/tally/internal/config"
	"github.com/JaimeStill/tally/internal/infrastructure"
	"github.com/JaimeStill/tally/internal/rasterize"
	"github.com/JaimeStill/tally/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration and the
// page renderer shared by upload inspection and the pipeline.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Pipeline   config.PipelineConfig
	Rasterizer *rasterize.Rasterizer
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	logger := infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    logger,
			Database:  infra.Database,
			Storage:   infra.Storage,
			Model:     infra.Model,
		},
		Pagination: cfg.API.Pagination,
		Pipeline:   cfg.Pipeline,
		Rasterizer: rasterize.New(cfg.Pipeline.RenderDPI, logger),
	}
}
