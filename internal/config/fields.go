package config

import (
	"fmt"
	"time"
)

type durationField struct {
	name  string
	value string
}

// validateDurations reports the first field that is not a valid Go duration.
func validateDurations(fields ...durationField) error {
	for _, f := range fields {
		if _, err := time.ParseDuration(f.value); err != nil {
			return fmt.Errorf("invalid %s: %w", f.name, err)
		}
	}
	return nil
}

// durationOf parses a duration that validation already accepted.
func durationOf(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func defaultString(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}

func mergeString(dst *string, overlay string) {
	if overlay != "" {
		*dst = overlay
	}
}

func mergeInt(dst *int, overlay int) {
	if overlay != 0 {
		*dst = overlay
	}
}
