package validation

import "math"

// Tolerance is the relative error accepted by equality checks (0.05%).
const Tolerance = 0.0005

// Equal reports whether l and r agree within Tolerance:
// |l-r| / max(|l|, |r|, 1) <= Tolerance.
func Equal(l, r float64) bool {
	scale := math.Max(math.Max(math.Abs(l), math.Abs(r)), 1)
	return math.Abs(l-r)/scale <= Tolerance
}

// AtMost reports whether l <= r, allowing the same tolerance as Equal.
func AtMost(l, r float64) bool {
	return l <= r || Equal(l, r)
}
