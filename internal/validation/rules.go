package validation

import (
	"fmt"

	"github.com/JaimeStill/tally/pkg/formatting"
)

// Concept codes the rules read.
const (
	CodeCash                  = "disponibilidades"
	CodeInventory             = "bienes_de_cambio"
	CodeCurrentAssets         = "activo_corriente"
	CodeNonCurrentAssets      = "activo_no_corriente"
	CodeAssets                = "activo_total"
	CodeCurrentLiabilities    = "pasivo_corriente"
	CodeNonCurrentLiabilities = "pasivo_no_corriente"
	CodeLiabilities           = "pasivo_total"
	CodeEquity                = "patrimonio_neto"
	CodeRevenue               = "ingresos_por_venta"
	CodePretax                = "resultados_antes_de_impuestos"
	CodeNetIncome             = "resultados_del_ejercicio"
)

// Rule identifiers, in evaluation order.
const (
	RuleBalanceIdentity         = "balance_identity"
	RuleAssetsComposition       = "assets_composition"
	RuleLiabilitiesComposition  = "liabilities_composition"
	RuleEquityRollforward       = "equity_rollforward"
	RuleCashWithinCurrentAssets = "cash_within_current_assets"
	RuleInventoryWithinCurrent  = "inventory_within_current_assets"
	RuleLiquidWithinCurrent     = "liquid_within_current_assets"
	RulePretaxCoversNet         = "pretax_covers_net"
	RuleRevenueCoversPretax     = "revenue_covers_pretax"
	RuleDeltaIdentity           = "delta_identity"
)

// operands reads amounts for one evaluation. ok is false when any is absent.
type operands func(v *values, p Period) (amounts []float64, ok bool)

type rule struct {
	id        string
	formula   string
	periods   []Period
	inventory bool
	read      operands
	check     func(a []float64) bool
	describe  func(a []float64) string
}

type values struct {
	balance Accessor
	income  Accessor
}

func (v *values) balanceAll(p Period, codes ...string) ([]float64, bool) {
	return all(v.balance, p, codes...)
}

func all(a Accessor, p Period, codes ...string) ([]float64, bool) {
	out := make([]float64, len(codes))
	for i, code := range codes {
		amount, ok := a.Get(code, p)
		if !ok {
			return nil, false
		}
		out[i] = amount
	}
	return out, true
}

var both = []Period{Current, Prior}

func sumEquals(a []float64) bool { return Equal(a[0], a[1]+a[2]) }

func sumMismatch(a []float64) string {
	money := formatting.FormatAmount
	return fmt.Sprintf("%s != %s + %s (%s)", money(a[0]), money(a[1]), money(a[2]), money(a[1]+a[2]))
}

func exceeds(a []float64) string {
	return fmt.Sprintf("%s > %s", formatting.FormatAmount(a[0]), formatting.FormatAmount(a[1]))
}

var rules = []rule{
	{
		id:      RuleBalanceIdentity,
		formula: "A = P + PN",
		periods: both,
		read: func(v *values, p Period) ([]float64, bool) {
			return v.balanceAll(p, CodeAssets, CodeLiabilities, CodeEquity)
		},
		check:    sumEquals,
		describe: sumMismatch,
	},
	{
		id:      RuleAssetsComposition,
		formula: "A = AC + ANC",
		periods: both,
		read: func(v *values, p Period) ([]float64, bool) {
			return v.balanceAll(p, CodeAssets, CodeCurrentAssets, CodeNonCurrentAssets)
		},
		check:    sumEquals,
		describe: sumMismatch,
	},
	{
		id:      RuleLiabilitiesComposition,
		formula: "P = PC + PNC",
		periods: both,
		read: func(v *values, p Period) ([]float64, bool) {
			return v.balanceAll(p, CodeLiabilities, CodeCurrentLiabilities, CodeNonCurrentLiabilities)
		},
		check:    sumEquals,
		describe: sumMismatch,
	},
	{
		id:      RuleEquityRollforward,
		formula: "PN current = PN prior + net income",
		periods: []Period{Cross},
		read: func(v *values, _ Period) ([]float64, bool) {
			cur, ok1 := v.balance.Get(CodeEquity, Current)
			prior, ok2 := v.balance.Get(CodeEquity, Prior)
			net, ok3 := v.income.Get(CodeNetIncome, Current)
			return []float64{cur, prior, net}, ok1 && ok2 && ok3
		},
		check:    sumEquals,
		describe: sumMismatch,
	},
	{
		id:      RuleCashWithinCurrentAssets,
		formula: "cash <= AC",
		periods: both,
		read: func(v *values, p Period) ([]float64, bool) {
			return v.balanceAll(p, CodeCash, CodeCurrentAssets)
		},
		check:    func(a []float64) bool { return AtMost(a[0], a[1]) },
		describe: exceeds,
	},
	{
		id:        RuleInventoryWithinCurrent,
		formula:   "inventory <= AC",
		periods:   both,
		inventory: true,
		read: func(v *values, p Period) ([]float64, bool) {
			return v.balanceAll(p, CodeInventory, CodeCurrentAssets)
		},
		check:    func(a []float64) bool { return AtMost(a[0], a[1]) },
		describe: exceeds,
	},
	{
		id:        RuleLiquidWithinCurrent,
		formula:   "cash + inventory <= AC",
		periods:   both,
		inventory: true,
		read: func(v *values, p Period) ([]float64, bool) {
			a, ok := v.balanceAll(p, CodeCash, CodeInventory, CodeCurrentAssets)
			if !ok {
				return nil, false
			}
			return []float64{a[0] + a[1], a[2]}, true
		},
		check:    func(a []float64) bool { return AtMost(a[0], a[1]) },
		describe: exceeds,
	},
	{
		id:      RulePretaxCoversNet,
		formula: "pretax income >= net income",
		periods: both,
		read: func(v *values, p Period) ([]float64, bool) {
			return all(v.income, p, CodeNetIncome, CodePretax)
		},
		check:    func(a []float64) bool { return AtMost(a[0], a[1]) },
		describe: exceeds,
	},
	{
		id:      RuleRevenueCoversPretax,
		formula: "revenue >= pretax income",
		periods: both,
		read: func(v *values, p Period) ([]float64, bool) {
			return all(v.income, p, CodePretax, CodeRevenue)
		},
		check:    func(a []float64) bool { return AtMost(a[0], a[1]) },
		describe: exceeds,
	},
	{
		id:      RuleDeltaIdentity,
		formula: "ΔA = ΔP + ΔPN",
		periods: []Period{Cross},
		read: func(v *values, _ Period) ([]float64, bool) {
			cur, ok1 := v.balanceAll(Current, CodeAssets, CodeLiabilities, CodeEquity)
			prior, ok2 := v.balanceAll(Prior, CodeAssets, CodeLiabilities, CodeEquity)
			if !ok1 || !ok2 {
				return nil, false
			}
			return []float64{cur[0] - prior[0], cur[1] - prior[1], cur[2] - prior[2]}, true
		},
		check:    sumEquals,
		describe: sumMismatch,
	},
}
