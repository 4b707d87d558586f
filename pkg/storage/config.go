package storage

import (
	"fmt"

	"github.com/JaimeStill/tally/pkg/envvar"
)

// Storage providers.
const (
	ProviderAzure = "azure"
	ProviderS3    = "s3"
)

// Config holds object storage parameters for either backend.
// ContainerName names the Azure container or the S3 bucket.
type Config struct {
	Provider         string `toml:"provider"`
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
	AccountURL       string `toml:"account_url"`
	Region           string `toml:"region"`
	Endpoint         string `toml:"endpoint"`
	UsePathStyle     bool   `toml:"use_path_style"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider         string
	ContainerName    string
	ConnectionString string
	AccountURL       string
	Region           string
	Endpoint         string
	UsePathStyle     string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.ContainerName != "" {
		c.ContainerName = overlay.ContainerName
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.AccountURL != "" {
		c.AccountURL = overlay.AccountURL
	}
	if overlay.Region != "" {
		c.Region = overlay.Region
	}
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.UsePathStyle {
		c.UsePathStyle = true
	}
}

func (c *Config) loadDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderAzure
	}
	if c.ContainerName == "" {
		c.ContainerName = "documents"
	}
}

func (c *Config) loadEnv(env *Env) {
	envvar.String(env.Provider, &c.Provider)
	envvar.String(env.ContainerName, &c.ContainerName)
	envvar.String(env.ConnectionString, &c.ConnectionString)
	envvar.String(env.AccountURL, &c.AccountURL)
	envvar.String(env.Region, &c.Region)
	envvar.String(env.Endpoint, &c.Endpoint)
	envvar.Bool(env.UsePathStyle, &c.UsePathStyle)
}

func (c *Config) validate() error {
	if c.ContainerName == "" {
		return fmt.Errorf("container_name required")
	}
	switch c.Provider {
	case ProviderAzure:
		if c.ConnectionString == "" && c.AccountURL == "" {
			return fmt.Errorf("connection_string or account_url required")
		}
	case ProviderS3:
		if c.Region == "" {
			return fmt.Errorf("region required")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	return nil
}
