package validation

import "github.com/JaimeStill/tally/internal/documents"

// Period selects a column of a statement.
type Period string

const (
	Current Period = "current"
	Prior   Period = "prior"
	Cross   Period = "cross"
)

// Accessor reads amounts by concept code from a statement in either shape
// documents.LineItems decodes. A zero amount reads as absent, since the
// extractor reports unreported values as zero.
type Accessor struct {
	items map[string]documents.LineItem
}

// NewAccessor indexes s. A nil statement yields an empty accessor.
func NewAccessor(s *documents.Statement) Accessor {
	a := Accessor{items: make(map[string]documents.LineItem)}
	if s == nil {
		return a
	}
	for _, item := range s.Items {
		if _, seen := a.items[item.ConceptCode]; !seen {
			a.items[item.ConceptCode] = item
		}
	}
	return a
}

// Empty reports whether the accessor holds no non-zero amount.
func (a Accessor) Empty() bool {
	for _, item := range a.items {
		if item.CurrentAmount != 0 || item.PriorAmount != 0 {
			return false
		}
	}
	return true
}

// Has reports whether code was extracted at all.
func (a Accessor) Has(code string) bool {
	_, ok := a.items[code]
	return ok
}

// Get returns the amount for code in period.
func (a Accessor) Get(code string, period Period) (float64, bool) {
	item, ok := a.items[code]
	if !ok {
		return 0, false
	}

	var v float64
	switch period {
	case Current:
		v = item.CurrentAmount
	case Prior:
		v = item.PriorAmount
	default:
		return 0, false
	}

	return v, v != 0
}
