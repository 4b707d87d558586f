// Package tenants provides per-tenant extraction schemas: the concept codes,
// labels, and prompts used to extract balance sheets and income statements.
package tenants

import (
	"fmt"
	"regexp"
	"slices"
)

// Field is one concept a tenant extracts. Optional fields may be absent
// from a statement without affecting validation.
type Field struct {
	Code     string `toml:"code" json:"code"`
	Label    string `toml:"label" json:"label"`
	Optional bool   `toml:"optional" json:"optional,omitempty"`
}

// Schema is a tenant's extraction vocabulary. It is immutable once loaded.
type Schema struct {
	TenantID      string  `toml:"tenant_id" json:"tenant_id"`
	BalanceFields []Field `toml:"balance_fields" json:"balance_fields"`
	IncomeFields  []Field `toml:"income_fields" json:"income_fields"`
	BalancePrompt string  `toml:"balance_prompt" json:"balance_prompt"`
	IncomePrompt  string  `toml:"income_prompt" json:"income_prompt"`
}

var codePattern = regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)*$`)

// Validate checks that codes are non-empty, snake_case, and unique within
// each statement, that both prompts are set, and that each statement
// declares at least one field.
func (s *Schema) Validate() error {
	if s.BalancePrompt == "" {
		return fmt.Errorf("%w: balance_prompt required", ErrInvalidSchema)
	}
	if s.IncomePrompt == "" {
		return fmt.Errorf("%w: income_prompt required", ErrInvalidSchema)
	}
	if err := validateFields("balance_fields", s.BalanceFields); err != nil {
		return err
	}
	return validateFields("income_fields", s.IncomeFields)
}

func validateFields(name string, fields []Field) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: %s requires at least one field", ErrInvalidSchema, name)
	}

	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if f.Code == "" {
			return fmt.Errorf("%w: %s[%d] has an empty code", ErrInvalidSchema, name, i)
		}
		if !codePattern.MatchString(f.Code) {
			return fmt.Errorf("%w: %s code %q is not snake_case", ErrInvalidSchema, name, f.Code)
		}
		if _, dup := seen[f.Code]; dup {
			return fmt.Errorf("%w: %s code %q is declared twice", ErrInvalidSchema, name, f.Code)
		}
		seen[f.Code] = struct{}{}
	}
	return nil
}

// Label returns the label declared for code in either statement, or the
// code itself when none is declared.
func (s *Schema) Label(code string) string {
	for _, fields := range [][]Field{s.BalanceFields, s.IncomeFields} {
		for _, f := range fields {
			if f.Code == code && f.Label != "" {
				return f.Label
			}
		}
	}
	return code
}

// BalanceCodes returns the balance concept codes in declaration order.
func (s *Schema) BalanceCodes() []string {
	return codes(s.BalanceFields)
}

// IncomeCodes returns the income concept codes in declaration order.
func (s *Schema) IncomeCodes() []string {
	return codes(s.IncomeFields)
}

// HasBalanceField reports whether code is declared as a balance concept.
func (s *Schema) HasBalanceField(code string) bool {
	return slices.Contains(s.BalanceCodes(), code)
}

// HasIncomeField reports whether code is declared as an income concept.
func (s *Schema) HasIncomeField(code string) bool {
	return slices.Contains(s.IncomeCodes(), code)
}

// Overlay returns a copy of base with the non-empty parts of s applied.
func (s *Schema) Overlay(base *Schema) *Schema {
	out := base.clone()
	out.TenantID = s.TenantID
	if len(s.BalanceFields) > 0 {
		out.BalanceFields = slices.Clone(s.BalanceFields)
	}
	if len(s.IncomeFields) > 0 {
		out.IncomeFields = slices.Clone(s.IncomeFields)
	}
	if s.BalancePrompt != "" {
		out.BalancePrompt = s.BalancePrompt
	}
	if s.IncomePrompt != "" {
		out.IncomePrompt = s.IncomePrompt
	}
	return out
}

func (s *Schema) clone() *Schema {
	out := *s
	out.BalanceFields = slices.Clone(s.BalanceFields)
	out.IncomeFields = slices.Clone(s.IncomeFields)
	return &out
}

func codes(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Code
	}
	return out
}
