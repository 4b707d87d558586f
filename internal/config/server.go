package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/JaimeStill/tally/pkg/envvar"
)

const (
	EnvServerHost            = "TALLY_SERVER_HOST"
	EnvServerPort            = "TALLY_SERVER_PORT"
	EnvServerReadTimeout     = "TALLY_SERVER_READ_TIMEOUT"
	EnvServerWriteTimeout    = "TALLY_SERVER_WRITE_TIMEOUT"
	EnvServerShutdownTimeout = "TALLY_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds the HTTP listener settings. Timeouts are Go duration
// strings; uploads of large statements need a generous write timeout.
type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *ServerConfig) ReadTimeoutDuration() time.Duration     { return durationOf(c.ReadTimeout) }
func (c *ServerConfig) WriteTimeoutDuration() time.Duration    { return durationOf(c.WriteTimeout) }
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration { return durationOf(c.ShutdownTimeout) }

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()

	envvar.String(EnvServerHost, &c.Host)
	envvar.Int(EnvServerPort, &c.Port)
	envvar.String(EnvServerReadTimeout, &c.ReadTimeout)
	envvar.String(EnvServerWriteTimeout, &c.WriteTimeout)
	envvar.String(EnvServerShutdownTimeout, &c.ShutdownTimeout)

	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	mergeString(&c.Host, overlay.Host)
	mergeString(&c.ReadTimeout, overlay.ReadTimeout)
	mergeString(&c.WriteTimeout, overlay.WriteTimeout)
	mergeString(&c.ShutdownTimeout, overlay.ShutdownTimeout)
	mergeInt(&c.Port, overlay.Port)
}

func (c *ServerConfig) loadDefaults() {
	defaultString(&c.Host, "0.0.0.0")
	defaultString(&c.ReadTimeout, "1m")
	defaultString(&c.WriteTimeout, "15m")
	defaultString(&c.ShutdownTimeout, "30s")
	if c.Port == 0 {
		c.Port = 8080
	}
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return validateDurations(
		durationField{"read_timeout", c.ReadTimeout},
		durationField{"write_timeout", c.WriteTimeout},
		durationField{"shutdown_timeout", c.ShutdownTimeout},
	)
}
