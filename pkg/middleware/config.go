package middleware

import (
	"slices"

	"github.com/JaimeStill/tally/pkg/envvar"
)

// CORSConfig holds CORS policy settings.
type CORSConfig struct {
	Enabled          bool     `toml:"enabled"`
	Origins          []string `toml:"origins"`
	AllowedMethods   []string `toml:"allowed_methods"`
	AllowedHeaders   []string `toml:"allowed_headers"`
	AllowCredentials bool     `toml:"allow_credentials"`
	MaxAge           int      `toml:"max_age"`
}

// CORSEnv names the environment variables that override CORSConfig fields.
// Empty names are skipped.
type CORSEnv struct {
	Enabled          string
	Origins          string
	AllowedMethods   string
	AllowedHeaders   string
	AllowCredentials string
	MaxAge           string
}

var (
	defaultCORSMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	defaultCORSHeaders = []string{"Content-Type", "Authorization", HeaderRequesterID, HeaderTenantID}
)

// Finalize applies defaults and environment variable overrides.
func (c *CORSConfig) Finalize(env *CORSEnv) error {
	if len(c.AllowedMethods) == 0 {
		c.AllowedMethods = slices.Clone(defaultCORSMethods)
	}
	if len(c.AllowedHeaders) == 0 {
		c.AllowedHeaders = slices.Clone(defaultCORSHeaders)
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 3600
	}

	if env != nil {
		envvar.Bool(env.Enabled, &c.Enabled)
		envvar.List(env.Origins, &c.Origins)
		envvar.List(env.AllowedMethods, &c.AllowedMethods)
		envvar.List(env.AllowedHeaders, &c.AllowedHeaders)
		envvar.Bool(env.AllowCredentials, &c.AllowCredentials)
		envvar.Int(env.MaxAge, &c.MaxAge)
	}
	return nil
}

// Merge overwrites fields from overlay. Booleans always apply; lists and
// MaxAge apply only when set.
func (c *CORSConfig) Merge(overlay *CORSConfig) {
	c.Enabled = overlay.Enabled
	c.AllowCredentials = overlay.AllowCredentials

	overlayList(&c.Origins, overlay.Origins)
	overlayList(&c.AllowedMethods, overlay.AllowedMethods)
	overlayList(&c.AllowedHeaders, overlay.AllowedHeaders)
	if overlay.MaxAge > 0 {
		c.MaxAge = overlay.MaxAge
	}
}

func overlayList(dst *[]string, v []string) {
	if v != nil {
		*dst = v
	}
}

func overlayNonZero(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
