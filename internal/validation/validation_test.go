package validation_test

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"

	"github.com/JaimeStill/tally/internal/documents"
	"github.com/JaimeStill/tally/internal/tenants"
	"github.com/JaimeStill/tally/internal/validation"
)

func statement(items ...documents.LineItem) *documents.Statement {
	return &documents.Statement{Items: items}
}

func item(code string, current, prior float64) documents.LineItem {
	return documents.LineItem{ConceptCode: code, CurrentAmount: current, PriorAmount: prior}
}

func outcome(v *documents.Validation, id, period string) (documents.RuleOutcome, bool) {
	for _, o := range v.Outcomes {
		if o.RuleID == id && o.Period == period {
			return o, true
		}
	}
	return documents.RuleOutcome{}, false
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		l, r float64
		want bool
	}{
		{"identical", 100, 100, true},
		{"within tolerance", 1_000_000, 1_000_400, true},
		{"one percent off", 1_000_000, 1_010_000, false},
		{"small values use unit scale", 0.0001, 0.0004, true},
		{"opposite signs", -500, 500, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validation.Equal(tt.l, tt.r); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.l, tt.r, got, tt.want)
			}
		})
	}
}

func TestAtMost(t *testing.T) {
	if !validation.AtMost(10, 20) {
		t.Error("10 <= 20 should pass")
	}
	if !validation.AtMost(1_000_400, 1_000_000) {
		t.Error("a value above the bound within tolerance should pass")
	}
	if validation.AtMost(1_100_000, 1_000_000) {
		t.Error("10% above the bound should fail")
	}
}

func TestBalanceIdentity(t *testing.T) {
	tests := []struct {
		name   string
		equity float64
		passed bool
	}{
		{"within 0.05%", 400_400, true},
		{"1% mismatch", 410_000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validation.Validate(validation.Input{
				Balance: statement(
					item(validation.CodeAssets, 1_000_000, 0),
					item(validation.CodeLiabilities, 600_000, 0),
					item(validation.CodeEquity, tt.equity, 0),
				),
			})

			o, ok := outcome(result, validation.RuleBalanceIdentity, "current")
			if !ok {
				t.Fatal("balance_identity was not evaluated")
			}
			if o.Passed != tt.passed {
				t.Errorf("passed: got %v, want %v (%s)", o.Passed, tt.passed, o.Message)
			}
			if result.Status != documents.StatusAnalyzed {
				t.Errorf("status: got %s, want Analyzed", result.Status)
			}
			if result.Warnings == tt.passed {
				t.Errorf("warnings: got %v", result.Warnings)
			}
			if !tt.passed && !strings.Contains(o.Message, "1,000,000.00") {
				t.Errorf("message should show the amounts, got %q", o.Message)
			}
		})
	}
}

func TestZeroAmountSkipsRule(t *testing.T) {
	result := validation.Validate(validation.Input{
		Balance: statement(
			item(validation.CodeAssets, 1_000, 0),
			item(validation.CodeLiabilities, 600, 500),
			item(validation.CodeEquity, 400, 300),
		),
	})

	if _, ok := outcome(result, validation.RuleBalanceIdentity, "prior"); ok {
		t.Error("prior period should be skipped when an operand is zero")
	}
	if !slices.Contains(result.Skipped, "balance_identity:prior") {
		t.Errorf("skipped: got %v", result.Skipped)
	}
	if !slices.Contains(result.Skipped, "delta_identity:cross") {
		t.Errorf("delta_identity should be skipped, got %v", result.Skipped)
	}
}

func TestInventoryRuleGatedBySchema(t *testing.T) {
	balance := statement(
		item(validation.CodeCash, 100, 0),
		item(validation.CodeInventory, 5_000, 0),
		item(validation.CodeCurrentAssets, 1_000, 0),
	)

	schema := &tenants.Schema{
		TenantID: "acme",
		BalanceFields: []tenants.Field{
			{Code: validation.CodeCash, Label: "Cash"},
			{Code: validation.CodeCurrentAssets, Label: "Current assets"},
		},
	}

	result := validation.Validate(validation.Input{Balance: balance, Schema: schema})

	for _, o := range result.Outcomes {
		if o.RuleID == validation.RuleInventoryWithinCurrent || o.RuleID == validation.RuleLiquidWithinCurrent {
			t.Errorf("inventory rule %s evaluated without the field declared", o.RuleID)
		}
	}
	if !slices.Contains(result.Skipped, "inventory_within_current_assets:current") {
		t.Errorf("skipped: got %v", result.Skipped)
	}
	if result.Warnings {
		t.Errorf("skipped rules must not raise warnings: %v", result.Messages)
	}

	schema.BalanceFields = append(schema.BalanceFields, tenants.Field{Code: validation.CodeInventory, Label: "Inventory"})
	result = validation.Validate(validation.Input{Balance: balance, Schema: schema})

	o, ok := outcome(result, validation.RuleInventoryWithinCurrent, "current")
	if !ok || o.Passed {
		t.Errorf("inventory above current assets should fail, got %+v", o)
	}
}

func TestIncomeRulesAndRollforward(t *testing.T) {
	result := validation.Validate(validation.Input{
		Balance: statement(
			item(validation.CodeEquity, 1_500, 1_000),
		),
		Income: statement(
			item(validation.CodeRevenue, 10_000, 8_000),
			item(validation.CodePretax, 700, 9_000),
			item(validation.CodeNetIncome, 500, 400),
		),
	})

	tests := []struct {
		id     string
		period string
		passed bool
	}{
		{validation.RuleEquityRollforward, "cross", true},
		{validation.RulePretaxCoversNet, "current", true},
		{validation.RuleRevenueCoversPretax, "current", true},
		{validation.RuleRevenueCoversPretax, "prior", false},
	}

	for _, tt := range tests {
		o, ok := outcome(result, tt.id, tt.period)
		if !ok {
			t.Errorf("%s/%s not evaluated", tt.id, tt.period)
			continue
		}
		if o.Passed != tt.passed {
			t.Errorf("%s/%s: passed %v, want %v", tt.id, tt.period, o.Passed, tt.passed)
		}
	}
}

func TestOutcomeOrder(t *testing.T) {
	result := validation.Validate(validation.Input{
		Balance: statement(
			item(validation.CodeAssets, 1_000, 900),
			item(validation.CodeCurrentAssets, 400, 300),
			item(validation.CodeNonCurrentAssets, 600, 600),
			item(validation.CodeLiabilities, 600, 500),
			item(validation.CodeEquity, 400, 400),
		),
	})

	var ids []string
	for _, o := range result.Outcomes {
		ids = append(ids, o.RuleID+":"+o.Period)
	}

	want := []string{
		"balance_identity:current",
		"balance_identity:prior",
		"assets_composition:current",
		"assets_composition:prior",
		"delta_identity:cross",
	}
	if !slices.Equal(ids, want) {
		t.Errorf("order:\n got %v\nwant %v", ids, want)
	}
	if result.Warnings {
		t.Errorf("unexpected warnings: %v", result.Messages)
	}
	if len(result.Messages) != 1 || result.Messages[0] != validation.MessagePassed {
		t.Errorf("messages: got %v", result.Messages)
	}
}

func TestNoData(t *testing.T) {
	tests := []struct {
		name string
		in   validation.Input
	}{
		{"nil statements", validation.Input{}},
		{"all zero", validation.Input{Balance: statement(item(validation.CodeAssets, 0, 0))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validation.Validate(tt.in)
			if result.Status != documents.StatusNoData {
				t.Errorf("status: got %s, want NoData", result.Status)
			}
			if len(result.Outcomes) != 0 {
				t.Errorf("outcomes: got %v", result.Outcomes)
			}
		})
	}
}

func TestAccessorReadsLegacyShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"list", `{"items": [{"concept_code": "activo_total", "current_amount": 1000, "prior_amount": 900}]}`},
		{"legacy list", `{"items": [{"concepto_code": "activo_total", "monto_actual": 1000, "monto_anterior": 900}]}`},
		{"flat", `{"activo_total_actual": 1000, "activo_total_anterior": "900"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s documents.Statement
			if err := json.Unmarshal([]byte(tt.raw), &s); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}

			a := validation.NewAccessor(&s)
			cur, ok := a.Get(validation.CodeAssets, validation.Current)
			if !ok || cur != 1000 {
				t.Errorf("current: got %v, %v", cur, ok)
			}
			prior, ok := a.Get(validation.CodeAssets, validation.Prior)
			if !ok || prior != 900 {
				t.Errorf("prior: got %v, %v", prior, ok)
			}
		})
	}
}
