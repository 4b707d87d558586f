// Package envvar overlays environment variables onto configuration fields.
// Every setter ignores an empty variable name, an unset or empty variable,
// and a value that fails to parse, leaving the destination unchanged.
package envvar

import (
	"os"
	"strconv"
	"strings"
)

// String overrides dst with the value of name.
func String(name string, dst *string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

// Int overrides dst with the base-10 integer value of name.
func Int(name string, dst *int) {
	parsed(name, dst, strconv.Atoi)
}

// Float overrides dst with the floating-point value of name.
func Float(name string, dst *float64) {
	parsed(name, dst, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// Bool overrides dst with the strconv.ParseBool value of name.
func Bool(name string, dst *bool) {
	parsed(name, dst, strconv.ParseBool)
}

// List overrides dst with the comma-separated value of name. Items are
// trimmed and empty items dropped.
func List(name string, dst *[]string) {
	v, ok := lookup(name)
	if !ok {
		return
	}

	var items []string
	for item := range strings.SplitSeq(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*dst = items
}

func lookup(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	v := os.Getenv(name)
	return v, v != ""
}

func parsed[T any](name string, dst *T, parse func(string) (T, error)) {
	v, ok := lookup(name)
	if !ok {
		return
	}
	if x, err := parse(v); err == nil {
		*dst = x
	}
}
