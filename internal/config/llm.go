package config

import (
	"fmt"
	"time"

	"github.com/JaimeStill/tally/pkg/envvar"
)

const (
	EnvLLMBackend         = "TALLY_LLM_BACKEND"
	EnvLLMAPIKey          = "TALLY_LLM_API_KEY"
	EnvLLMProject         = "TALLY_LLM_PROJECT"
	EnvLLMLocation        = "TALLY_LLM_LOCATION"
	EnvLLMModel           = "TALLY_LLM_MODEL"
	EnvLLMTimeout         = "TALLY_LLM_TIMEOUT"
	EnvLLMMaxRetries      = "TALLY_LLM_MAX_RETRIES"
	EnvLLMMaxOutputTokens = "TALLY_LLM_MAX_OUTPUT_TOKENS"
)

// LLM backends.
const (
	BackendGemini = "gemini"
	BackendVertex = "vertex"
)

// LLMConfig holds model access settings for classification and extraction.
type LLMConfig struct {
	Backend         string `toml:"backend"`
	APIKey          string `toml:"api_key"`
	Project         string `toml:"project"`
	Location        string `toml:"location"`
	Model           string `toml:"model"`
	Timeout         string `toml:"timeout"`
	MaxRetries      int    `toml:"max_retries"`
	MaxOutputTokens int    `toml:"max_output_tokens"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *LLMConfig) TimeoutDuration() time.Duration {
	return durationOf(c.Timeout)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *LLMConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *LLMConfig) Merge(overlay *LLMConfig) {
	for dst, v := range map[*string]string{
		&c.Backend:  overlay.Backend,
		&c.APIKey:   overlay.APIKey,
		&c.Project:  overlay.Project,
		&c.Location: overlay.Location,
		&c.Model:    overlay.Model,
		&c.Timeout:  overlay.Timeout,
	} {
		mergeString(dst, v)
	}
	mergeInt(&c.MaxRetries, overlay.MaxRetries)
	mergeInt(&c.MaxOutputTokens, overlay.MaxOutputTokens)
}

func (c *LLMConfig) loadDefaults() {
	defaultString(&c.Backend, BackendGemini)
	defaultString(&c.Model, "gemini-2.5-flash")
	defaultString(&c.Timeout, "2m")
	if c.MaxRetries == 0 {
		c.MaxRetries = 1
	}
	if c.MaxOutputTokens == 0 {
		c.MaxOutputTokens = 8192
	}
	if c.Backend == BackendVertex {
		defaultString(&c.Location, "us-central1")
	}
}

func (c *LLMConfig) loadEnv() {
	envvar.String(EnvLLMBackend, &c.Backend)
	envvar.String(EnvLLMAPIKey, &c.APIKey)
	envvar.String(EnvLLMProject, &c.Project)
	envvar.String(EnvLLMLocation, &c.Location)
	envvar.String(EnvLLMModel, &c.Model)
	envvar.String(EnvLLMTimeout, &c.Timeout)
	envvar.Int(EnvLLMMaxRetries, &c.MaxRetries)
	envvar.Int(EnvLLMMaxOutputTokens, &c.MaxOutputTokens)
}

func (c *LLMConfig) validate() error {
	switch c.Backend {
	case BackendGemini:
		if c.APIKey == "" {
			return fmt.Errorf("api_key required for the gemini backend")
		}
	case BackendVertex:
		if c.Project == "" {
			return fmt.Errorf("project required for the vertex backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if err := validateDurations(durationField{"timeout", c.Timeout}); err != nil {
		return err
	}
	if c.MaxRetries < 0 || c.MaxRetries > 1 {
		return fmt.Errorf("max_retries must be 0 or 1, got %d", c.MaxRetries)
	}
	if c.MaxOutputTokens < 1 {
		return fmt.Errorf("max_output_tokens must be positive")
	}
	return nil
}
