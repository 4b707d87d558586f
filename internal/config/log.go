package config

import (
	"fmt"
	"log/slog"

	"github.com/JaimeStill/tally/pkg/envvar"
)

const (
	EnvLogLevel  = "TALLY_LOG_LEVEL"
	EnvLogFormat = "TALLY_LOG_FORMAT"
)

// Log output formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// SlogLevel returns Level as a slog.Level. Validation guarantees it parses.
func (c *LogConfig) SlogLevel() slog.Level {
	var l slog.Level
	_ = l.UnmarshalText([]byte(c.Level))
	return l
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *LogConfig) Finalize() error {
	defaultString(&c.Level, "info")
	defaultString(&c.Format, LogFormatText)
	envvar.String(EnvLogLevel, &c.Level)
	envvar.String(EnvLogFormat, &c.Format)

	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return fmt.Errorf("invalid level: %w", err)
	}
	if c.Format != LogFormatText && c.Format != LogFormatJSON {
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *LogConfig) Merge(overlay *LogConfig) {
	mergeString(&c.Level, overlay.Level)
	mergeString(&c.Format, overlay.Format)
}
