package documents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Statement is the extracted content of a balance sheet or income statement.
type Statement struct {
	General General      `json:"general"`
	Items   LineItems    `json:"items"`
	Details []DetailLine `json:"details,omitempty"`
}

// General carries statement header data.
type General struct {
	Company       string `json:"company"`
	CurrentPeriod string `json:"current_period"`
	PriorPeriod   string `json:"prior_period"`
}

// LineItem is one concept with its amounts for both periods.
// A zero amount means the value was not reported.
type LineItem struct {
	ConceptCode   string  `json:"concept_code"`
	Label         string  `json:"label"`
	CurrentAmount float64 `json:"current_amount"`
	PriorAmount   float64 `json:"prior_amount"`
}

// DetailLine is a free-form line read from the statement body.
type DetailLine struct {
	Section       string  `json:"section"`
	Concept       string  `json:"concept"`
	CurrentAmount float64 `json:"current_amount"`
	PriorAmount   float64 `json:"prior_amount"`
}

// UnmarshalJSON accepts the current shape, and a legacy shape whose amounts
// sit flat on the statement object.
func (s *Statement) UnmarshalJSON(data []byte) error {
	type plain Statement
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	if len(p.Items) == 0 {
		var flat LineItems
		if err := flat.UnmarshalJSON(data); err == nil {
			p.Items = flat
		}
	}

	*s = Statement(p)
	return nil
}

// LineItems is an ordered list of line items keyed by concept code.
type LineItems []LineItem

// Get returns the item for code.
func (l LineItems) Get(code string) (LineItem, bool) {
	for _, item := range l {
		if item.ConceptCode == code {
			return item, true
		}
	}
	return LineItem{}, false
}

// Codes returns the concept codes in order.
func (l LineItems) Codes() []string {
	codes := make([]string, len(l))
	for i, item := range l {
		codes[i] = item.ConceptCode
	}
	return codes
}

type rawLineItem struct {
	ConceptCode   string      `json:"concept_code"`
	LegacyCode    string      `json:"concepto_code"`
	Label         string      `json:"label"`
	CurrentAmount json.Number `json:"current_amount"`
	LegacyCurrent json.Number `json:"monto_actual"`
	PriorAmount   json.Number `json:"prior_amount"`
	LegacyPrior   json.Number `json:"monto_anterior"`
}

// UnmarshalJSON decodes a list of items using either English or legacy
// Spanish keys, or a flat object of "{code}_current" / "{code}_prior"
// (legacy "{code}_actual" / "{code}_anterior") amounts.
func (l *LineItems) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	switch data[0] {
	case '[':
		return l.unmarshalList(data)
	case '{':
		return l.unmarshalFlat(data)
	default:
		return fmt.Errorf("line items: unexpected JSON %q", data[:1])
	}
}

func (l *LineItems) unmarshalList(data []byte) error {
	var raw []rawLineItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("line items: %w", err)
	}

	items := make(LineItems, 0, len(raw))
	for _, r := range raw {
		code := firstNonEmpty(r.ConceptCode, r.LegacyCode)
		if code == "" {
			continue
		}
		items = append(items, LineItem{
			ConceptCode:   code,
			Label:         r.Label,
			CurrentAmount: number(firstNonEmpty(string(r.CurrentAmount), string(r.LegacyCurrent))),
			PriorAmount:   number(firstNonEmpty(string(r.PriorAmount), string(r.LegacyPrior))),
		})
	}

	*l = items
	return nil
}

var (
	currentSuffixes = []string{"_current", "_actual"}
	priorSuffixes   = []string{"_prior", "_anterior"}
)

func (l *LineItems) unmarshalFlat(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("line items: %w", err)
	}

	byCode := make(map[string]*LineItem)
	for key, value := range raw {
		code, current, ok := splitFlatKey(key)
		if !ok {
			continue
		}

		amount, ok := rawNumber(value)
		if !ok {
			continue
		}

		item, exists := byCode[code]
		if !exists {
			item = &LineItem{ConceptCode: code}
			byCode[code] = item
		}
		if current {
			item.CurrentAmount = amount
		} else {
			item.PriorAmount = amount
		}
	}

	codes := make([]string, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	items := make(LineItems, 0, len(codes))
	for _, code := range codes {
		items = append(items, *byCode[code])
	}

	*l = items
	return nil
}

func splitFlatKey(key string) (code string, current bool, ok bool) {
	for _, suffix := range currentSuffixes {
		if c, found := strings.CutSuffix(key, suffix); found && c != "" {
			return c, true, true
		}
	}
	for _, suffix := range priorSuffixes {
		if c, found := strings.CutSuffix(key, suffix); found && c != "" {
			return c, false, true
		}
	}
	return "", false, false
}

func rawNumber(value json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(value, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func number(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
