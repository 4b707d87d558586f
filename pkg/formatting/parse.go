package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed is returned when content cannot be parsed as JSON,
// either directly or from a markdown code fence.
var ErrParseFailed = errors.New("failed to parse response")

// Validator is implemented by parse targets that check their own invariants.
type Validator interface {
	Validate() error
}

var jsonBlockRegex = regexp.MustCompile(`(?s)` + "```" + `(?:json)?\s*\n?(.*?)\n?` + "```")

// Parse attempts to unmarshal content as JSON into T.
// If direct parsing fails, it extracts JSON from a markdown code fence
// and retries. Returns ErrParseFailed if both attempts fail.
// When *T implements Validator, a decoded value that fails validation
// is also reported as ErrParseFailed.
func Parse[T any](content string) (T, error) {
	var result T
	content = strings.TrimSpace(content)

	if err := json.Unmarshal([]byte(content), &result); err == nil {
		return result, validate(&result)
	}

	matches := jsonBlockRegex.FindStringSubmatch(content)
	if len(matches) >= 2 {
		cleaned := strings.TrimSpace(matches[1])
		if err := json.Unmarshal([]byte(cleaned), &result); err == nil {
			return result, validate(&result)
		}
	}

	return result, fmt.Errorf("%w: %s", ErrParseFailed, content)
}

// Into is Parse for a caller-owned destination.
func Into(content string, out any) error {
	content = strings.TrimSpace(content)

	err := json.Unmarshal([]byte(content), out)
	if err != nil {
		matches := jsonBlockRegex.FindStringSubmatch(content)
		if len(matches) < 2 {
			return fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
		if err = json.Unmarshal([]byte(strings.TrimSpace(matches[1])), out); err != nil {
			return fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
	}

	return validate(out)
}

func validate(v any) error {
	if val, ok := v.(Validator); ok {
		if err := val.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
	}
	return nil
}
