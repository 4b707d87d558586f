// Package validation checks extracted statements against accounting identities.
package validation

import (
	"fmt"

	"github.com/JaimeStill/tally/internal/documents"
	"github.com/JaimeStill/tally/internal/tenants"
)

// Messages for outcomes with no failing rule.
const (
	MessageNoData = "no balance sheet or income statement data to validate"
	MessagePassed = "all evaluated rules passed"
)

// Input is the data validated for one document. Schema gates optional
// rules; when nil, an optional rule runs if its concept was extracted.
type Input struct {
	Balance *documents.Statement
	Income  *documents.Statement
	Schema  *tenants.Schema
}

// Validate evaluates every rule whose operands are present.
// Rules with a missing operand are listed in Skipped as "rule_id:period".
func Validate(in Input) *documents.Validation {
	v := &values{
		balance: NewAccessor(in.Balance),
		income:  NewAccessor(in.Income),
	}

	if v.balance.Empty() && v.income.Empty() {
		return &documents.Validation{
			Status:   documents.StatusNoData,
			Outcomes: []documents.RuleOutcome{},
			Messages: []string{MessageNoData},
		}
	}

	inventory := v.balance.Has(CodeInventory)
	if in.Schema != nil {
		inventory = in.Schema.HasBalanceField(CodeInventory)
	}

	result := &documents.Validation{
		Status:   documents.StatusAnalyzed,
		Outcomes: []documents.RuleOutcome{},
	}

	for _, r := range rules {
		for _, p := range r.periods {
			if r.inventory && !inventory {
				result.Skipped = append(result.Skipped, skipKey(r.id, p))
				continue
			}

			amounts, ok := r.read(v, p)
			if !ok {
				result.Skipped = append(result.Skipped, skipKey(r.id, p))
				continue
			}

			outcome := documents.RuleOutcome{
				RuleID: r.id,
				Period: string(p),
				Passed: r.check(amounts),
			}
			if !outcome.Passed {
				outcome.Message = fmt.Sprintf("%s (%s): %s", r.formula, p, r.describe(amounts))
				result.Messages = append(result.Messages, outcome.Message)
				result.Warnings = true
			}
			result.Outcomes = append(result.Outcomes, outcome)
		}
	}

	if !result.Warnings {
		result.Messages = []string{MessagePassed}
	}

	return result
}

func skipKey(id string, p Period) string {
	return id + ":" + string(p)
}
