package config

import (
	"fmt"

	"github.com/JaimeStill/tally/pkg/envvar"
)

const (
	EnvPipelineClassifyConcurrency      = "TALLY_PIPELINE_CLASSIFY_CONCURRENCY"
	EnvPipelineClassifyRate             = "TALLY_PIPELINE_CLASSIFY_RATE"
	EnvPipelineRenderBatch              = "TALLY_PIPELINE_RENDER_BATCH"
	EnvPipelineRenderDPI                = "TALLY_PIPELINE_RENDER_DPI"
	EnvPipelineDefaultTenant            = "TALLY_PIPELINE_DEFAULT_TENANT"
	EnvPipelineEnvironment              = "TALLY_PIPELINE_ENVIRONMENT"
	EnvPipelineBlockOnValidationFailure = "TALLY_PIPELINE_BLOCK_ON_VALIDATION_FAILURE"
)

// PipelineConfig tunes the document processing stages.
type PipelineConfig struct {
	ClassifyConcurrency      int     `toml:"classify_concurrency"`
	ClassifyRate             float64 `toml:"classify_rate"`
	RenderBatch              int     `toml:"render_batch"`
	RenderDPI                int     `toml:"render_dpi"`
	DefaultTenant            string  `toml:"default_tenant"`
	Environment              string  `toml:"environment"`
	BlockOnValidationFailure bool    `toml:"block_on_validation_failure"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. BlockOnValidationFailure
// can only be switched on by an overlay.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	mergeInt(&c.ClassifyConcurrency, overlay.ClassifyConcurrency)
	mergeInt(&c.RenderBatch, overlay.RenderBatch)
	mergeInt(&c.RenderDPI, overlay.RenderDPI)
	mergeString(&c.DefaultTenant, overlay.DefaultTenant)
	mergeString(&c.Environment, overlay.Environment)
	if overlay.ClassifyRate != 0 {
		c.ClassifyRate = overlay.ClassifyRate
	}
	c.BlockOnValidationFailure = c.BlockOnValidationFailure || overlay.BlockOnValidationFailure
}

func (c *PipelineConfig) loadDefaults() {
	if c.ClassifyConcurrency <= 0 {
		c.ClassifyConcurrency = 15
	}
	if c.ClassifyRate <= 0 {
		c.ClassifyRate = 2.5
	}
	if c.RenderBatch <= 0 {
		c.RenderBatch = 3
	}
	if c.RenderDPI <= 0 {
		c.RenderDPI = 150
	}
	defaultString(&c.DefaultTenant, "default")
	defaultString(&c.Environment, "local")
}

func (c *PipelineConfig) loadEnv() {
	envvar.Int(EnvPipelineClassifyConcurrency, &c.ClassifyConcurrency)
	envvar.Float(EnvPipelineClassifyRate, &c.ClassifyRate)
	envvar.Int(EnvPipelineRenderBatch, &c.RenderBatch)
	envvar.Int(EnvPipelineRenderDPI, &c.RenderDPI)
	envvar.String(EnvPipelineDefaultTenant, &c.DefaultTenant)
	envvar.String(EnvPipelineEnvironment, &c.Environment)
	envvar.Bool(EnvPipelineBlockOnValidationFailure, &c.BlockOnValidationFailure)
}

func (c *PipelineConfig) validate() error {
	if c.ClassifyConcurrency < 1 {
		return fmt.Errorf("classify_concurrency must be positive, got %d", c.ClassifyConcurrency)
	}
	if c.ClassifyRate <= 0 {
		return fmt.Errorf("classify_rate must be positive, got %g", c.ClassifyRate)
	}
	if c.RenderBatch < 1 {
		return fmt.Errorf("render_batch must be positive, got %d", c.RenderBatch)
	}
	if c.RenderDPI < 72 || c.RenderDPI > 600 {
		return fmt.Errorf("render_dpi must be between 72 and 600, got %d", c.RenderDPI)
	}
	return nil
}
