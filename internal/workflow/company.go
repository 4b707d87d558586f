package workflow

import (
	"slices"
	"strings"
	"unicode"

	"github.com/JaimeStill/tally/internal/documents"
)

const taxIDLength = 11

// NormalizeTaxID strips separators from a CUIT and returns it only when
// exactly 11 digits remain.
func NormalizeTaxID(raw string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)

	if len(digits) != taxIDLength {
		return ""
	}
	return digits
}

// CompanyTier ranks how much company identification a page carries, from
// 1 (tax id, name, activity, audit report and address) to 10 (name only).
// Zero means the page is not a candidate.
func CompanyTier(r *documents.Recognition) int {
	if r == nil || !r.HasCompanyName {
		return 0
	}

	id, act, audit, addr := r.HasCompanyID, r.HasCompanyActivity, r.HasAuditReport, r.HasCompanyAddress

	switch {
	case id && act && audit && addr:
		return 1
	case id && act && audit:
		return 2
	case id && act:
		return 3
	case id && audit:
		return 4
	case id:
		return 5
	case act && audit && addr:
		return 6
	case act && audit:
		return 7
	case act:
		return 8
	case audit:
		return 9
	}
	return 10
}

type candidate struct {
	index   int
	tier    int
	upright bool
	rec     documents.Recognition
}

type candidates []candidate

// first returns the first candidate matching keep, preferring upright pages.
func (c candidates) first(keep func(candidate) bool) (candidate, bool) {
	var fallback *candidate
	for i := range c {
		if !keep(c[i]) {
			continue
		}
		if c[i].upright {
			return c[i], true
		}
		if fallback == nil {
			fallback = &c[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return candidate{}, false
}

// last returns the last candidate matching keep, preferring upright pages.
func (c candidates) last(keep func(candidate) bool) (candidate, bool) {
	r := slices.Clone(c)
	slices.Reverse(r)
	return r.first(keep)
}

// fromTiers returns the first candidate in the lowest listed tier that has one.
func (c candidates) fromTiers(exclude int, tiers ...int) (candidate, bool) {
	for _, t := range tiers {
		if got, ok := c.first(func(x candidate) bool { return x.index != exclude && x.tier == t }); ok {
			return got, true
		}
	}
	return candidate{}, false
}

func tierRange(lo, hi int) []int {
	tiers := make([]int, 0, hi-lo+1)
	for t := lo; t <= hi; t++ {
		tiers = append(tiers, t)
	}
	return tiers
}

// SelectCompanyPages picks up to two pages to read company identification
// from: the best-ranked page and a companion that fills in what the first
// one lacks. It returns indices into pages in page order.
func SelectCompanyPages(pages []documents.Page) []int {
	var all candidates
	for i, p := range pages {
		if p.Recognition == nil {
			continue
		}
		all = append(all, candidate{
			index:   i,
			tier:    CompanyTier(p.Recognition),
			upright: p.Upright(),
			rec:     *p.Recognition,
		})
	}

	hasID := func(x candidate) bool { return x.rec.HasCompanyID }

	var primary candidate
	found := false
	for t := 1; t <= 10 && !found; t++ {
		primary, found = all.first(func(x candidate) bool { return x.tier == t })
	}

	if !found {
		first, ok := all.first(hasID)
		if !ok {
			return nil
		}
		last, _ := all.last(hasID)
		return ordered(first.index, last.index)
	}

	other := func(keep func(candidate) bool) func(candidate) bool {
		return func(x candidate) bool { return x.index != primary.index && keep(x) }
	}
	inTier := func(t int) func(candidate) bool {
		return func(x candidate) bool { return x.tier == t }
	}

	var chain []func() (candidate, bool)
	tiers := func(lo, hi int) func() (candidate, bool) {
		return func() (candidate, bool) { return all.fromTiers(primary.index, tierRange(lo, hi)...) }
	}
	firstOf := func(keep func(candidate) bool) func() (candidate, bool) {
		return func() (candidate, bool) { return all.first(other(keep)) }
	}
	lastOf := func(keep func(candidate) bool) func() (candidate, bool) {
		return func() (candidate, bool) { return all.last(other(keep)) }
	}

	switch primary.tier {
	case 1:
		chain = append(chain, tiers(3, 10))
	case 2:
		chain = append(chain,
			firstOf(func(x candidate) bool { return x.rec.HasCompanyAddress }),
			tiers(3, 10),
		)
	case 3:
		chain = append(chain,
			firstOf(func(x candidate) bool { return x.rec.HasAuditReport }),
			firstOf(inTier(3)),
			firstOf(inTier(5)),
			firstOf(hasID),
			tiers(6, 10),
		)
	case 4:
		chain = append(chain, firstOf(inTier(5)), firstOf(hasID), tiers(6, 10))
	case 5:
		chain = append(chain, lastOf(inTier(5)), firstOf(hasID), tiers(6, 10))
	case 6, 7, 8:
		chain = append(chain, tiers(primary.tier+1, 10))
	case 9:
		chain = append(chain, firstOf(inTier(10)))
	case 10:
		chain = append(chain, lastOf(inTier(10)))
	}

	for _, next := range chain {
		if companion, ok := next(); ok {
			return ordered(primary.index, companion.index)
		}
	}
	return []int{primary.index}
}

func ordered(a, b int) []int {
	if a == b {
		return []int{a}
	}
	if a > b {
		a, b = b, a
	}
	return []int{a, b}
}
