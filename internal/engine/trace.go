package engine

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/underwrite-cli/internal/cost"
	"github.com/sells-group/underwrite-cli/internal/valuation"
)

// TraceStep is one show-your-work entry.
type TraceStep struct {
	Rule    string         `json:"rule"`
	Used    []string       `json:"used"`
	Details map[string]any `json:"details,omitempty"`
	Summary string         `json:"summary"`
}

type tracer struct {
	steps []TraceStep
}

var printer = message.NewPrinter(language.AmericanEnglish)

func (t *tracer) add(rule string, used []string, details map[string]any, format string, args ...any) {
	if used == nil {
		used = []string{}
	}
	t.steps = append(t.steps, TraceStep{
		Rule:    rule,
		Used:    used,
		Details: details,
		Summary: printer.Sprintf(format, args...),
	})
}

func traceCosts(tr *tracer, c cost.Rollup) {
	tr.add("REPAIRS", []string{"repairs_base", "repair_class", "repair_bids_present", "contingency_pct"}, map[string]any{
		"repair_class":    c.RepairClass,
		"repairs_base":    c.RepairsBase,
		"contingency_pct": c.ContingencyPct,
		"total_repairs":   c.TotalRepairs,
	}, "Repairs $%.2f with %.1f%% contingency", c.TotalRepairs, c.ContingencyPct*100)

	tr.add("CARRY", []string{"dom_zip", "monthly", "carryMonthsFormulaDefinition", "carryMonthsMaximumCap"}, map[string]any{
		"formula":          c.CarryFormula,
		"formula_fallback": c.CarryFormulaDefault,
		"carry_months":     c.CarryMonths,
		"monthly_carry":    c.MonthlyCarry,
		"carry_costs":      c.CarryCosts,
		"tenant_buffer":    c.TenantBuffer,
	}, "Carry %.2f months at $%.2f per month", c.CarryMonths, c.MonthlyCarry)

	items := make([]map[string]any, 0, len(c.ResaleItems))
	for _, it := range c.ResaleItems {
		items = append(items, map[string]any{"name": it.Name, "amount": it.Amount})
	}
	tr.add("RESALE_COSTS", []string{"arv", "listingCostModelSellerCostLineItems", "retailMakeReadyPerRepairClass"}, map[string]any{
		"items":        items,
		"resale_costs": c.ResaleCosts,
	}, "Resale costs $%.2f", c.ResaleCosts)
}

func traceValuation(tr *tracer, b valuation.Bounds) {
	tr.add("AIV_SAFETY_CAP", []string{"as_is_value", "aivSafetyCapPercentage"}, map[string]any{
		"safety_cap_pct": b.SafetyCapPct,
		"capped_as_is":   b.CappedAsIs,
	}, "Capped as-is value $%.2f", b.CappedAsIs)

	tr.add("SPEED_BAND", []string{"dom_zip", "moi_zip", "zipSpeedBandDerivationMethod"}, map[string]any{
		"speed_band": string(b.SpeedBand),
	}, "ZIP speed band %s", b.SpeedBand)

	tr.add("INVESTOR_FLOOR", []string{"capped_as_is", "zip_price_percentile"}, map[string]any{
		"discount":       b.InvestorDiscount,
		"discount_basis": b.InvestorDiscountBasis,
		"investor_floor": b.InvestorFloor,
	}, "Investor discount %.1f%% (%s)", b.InvestorDiscount*100, b.InvestorDiscountBasis)

	tr.add("PAYOFF_FLOOR", []string{"debt", "planned_close_days", "title.cure_cost"}, map[string]any{
		"planned_close_days": b.PlannedCloseDays,
		"projected_payoff":   b.ProjectedPayoff,
		"move_out_cash":      b.MoveOutCash,
		"retained_equity":    b.RetainedEquity,
		"payoff_floor":       b.PayoffFloor,
	}, "Payoff projected over %.0f days", b.PlannedCloseDays)

	tr.add("RESPECT_FLOOR", []string{"investor_floor", "payoff_floor", "respectFloorFormulaComponentSelector"}, map[string]any{
		"respect_floor": b.RespectFloor,
		"basis":         b.FloorBasis,
	}, "Respect floor from %s", orDash(b.FloorBasis))

	tr.add("BUYER_CEILING", []string{"ARV", "AIV", "REPAIRS", "MARGIN", "COSTS"}, map[string]any{
		"formula":          b.CeilingFormula,
		"formula_fallback": b.CeilingFormulaFallback,
		"buyer_ceiling":    b.BuyerCeiling,
	}, "Buyer ceiling from %s", b.CeilingFormula)

	tr.add("MIN_SPREAD", []string{"arv", "minSpreadByArvBand", "policy.min_spread"}, map[string]any{
		"min_spread": b.MinSpread,
		"band":       b.MinSpreadBand,
	}, "Minimum spread $%.2f", b.MinSpread)

	tr.add("INSTANT_CASH_OFFER", []string{"respect_floor", "buyer_ceiling", "initialOfferSpreadMultiplier"}, map[string]any{
		"instant_cash_offer": b.InstantCashOffer,
		"deal_spread":        b.DealSpread,
		"net_to_seller":      b.NetToSeller,
	}, "Instant cash offer %s", money(b.InstantCashOffer.Ptr()))
}

func money(v *float64) string {
	if v == nil {
		return "-"
	}
	return printer.Sprintf("$%.2f", *v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
