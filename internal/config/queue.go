package config

import (
	"fmt"

	"github.com/JaimeStill/tally/pkg/envvar"
)

const (
	EnvQueueWorkers  = "TALLY_QUEUE_WORKERS"
	EnvQueueCapacity = "TALLY_QUEUE_CAPACITY"
)

// QueueConfig sizes the in-process task queue.
type QueueConfig struct {
	Workers  int `toml:"workers"`
	Capacity int `toml:"capacity"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *QueueConfig) Finalize() error {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Capacity <= 0 {
		c.Capacity = 256
	}

	envvar.Int(EnvQueueWorkers, &c.Workers)
	envvar.Int(EnvQueueCapacity, &c.Capacity)

	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Capacity < 1 {
		return fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *QueueConfig) Merge(overlay *QueueConfig) {
	mergeInt(&c.Workers, overlay.Workers)
	mergeInt(&c.Capacity, overlay.Capacity)
}
