// Package formatting renders and parses human-readable values: byte sizes,
// monetary amounts, and JSON carried in model output.
package formatting

import (
	"fmt"
	"strconv"
	"strings"
)

const kib = 1024

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders n using base-1024 units, with one decimal above bytes.
func FormatBytes(n int64) string {
	if n < kib {
		return strconv.FormatInt(n, 10) + " B"
	}

	f, i := float64(n), 0
	for f >= kib && i < len(byteUnits)-1 {
		f /= kib
		i++
	}
	return strconv.FormatFloat(f, 'f', 1, 64) + " " + byteUnits[i]
}

// ParseBytes parses sizes such as "50MB", "1.5 kb", or "4096" (bytes).
// Units are base-1024; a trailing "iB" form ("MiB") is accepted as well.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	num, unit := s, ""
	if split >= 0 {
		num, unit = s[:split], strings.TrimSpace(s[split:])
	}
	if num == "" {
		return 0, fmt.Errorf("invalid byte size %q: missing number", s)
	}

	value, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}

	multiplier, err := unitMultiplier(unit)
	if err != nil {
		return 0, err
	}
	return int64(value * float64(multiplier)), nil
}

func unitMultiplier(unit string) (int64, error) {
	u := strings.ToUpper(unit)
	if u == "" {
		return 1, nil
	}
	if len(u) == 3 && strings.HasSuffix(u, "IB") {
		u = u[:1] + "B"
	}

	m := int64(1)
	for _, candidate := range byteUnits {
		if u == candidate {
			return m, nil
		}
		m *= kib
	}
	return 0, fmt.Errorf("unknown byte size unit %q", unit)
}
