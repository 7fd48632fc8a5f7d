// Package valuation computes the offer bounds: the capped as-is value, the
// buyer ceiling, the respect floor and the instant cash offer between them.
package valuation

import (
	"github.com/sells-group/underwrite-cli/internal/cost"
	"github.com/sells-group/underwrite-cli/internal/formula"
	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/numeric"
	"github.com/sells-group/underwrite-cli/internal/policy"
)

// Investor discount bases.
const (
	DiscountP20     = "p20"
	DiscountTypical = "typical"
)

// Floor bases reported by RespectFloor.
const (
	FloorInvestor = "investor"
	FloorPayoff   = "payoff"
)

// Bounds is the valuation side of an underwriting run. Nullable values are
// null when the inputs they depend on were not supplied.
type Bounds struct {
	SafetyCapPct float64 `json:"safety_cap_pct"`
	CappedAsIs   float64 `json:"capped_as_is"`

	SpeedBand             Speed          `json:"speed_band"`
	InvestorDiscount      float64        `json:"investor_discount"`
	InvestorDiscountBasis string         `json:"investor_discount_basis"`
	InvestorFloor         numeric.Number `json:"investor_floor"`

	PlannedCloseDays float64        `json:"planned_close_days"`
	ProjectedPayoff  numeric.Number `json:"projected_payoff_close"`
	MoveOutCash      float64        `json:"move_out_cash"`
	RetainedEquity   float64        `json:"retained_equity"`
	PayoffFloor      numeric.Number `json:"payoff_floor"`

	RespectFloor numeric.Number `json:"respect_floor"`
	FloorBasis   string         `json:"floor_basis,omitempty"`
	WholesaleMAO numeric.Number `json:"wholesale_mao"`

	BuyerCeiling           numeric.Number `json:"buyer_ceiling"`
	CeilingFormula         string         `json:"ceiling_formula"`
	CeilingFormulaFallback bool           `json:"ceiling_formula_fallback"`

	MinSpread     float64 `json:"min_spread"`
	MinSpreadBand string  `json:"min_spread_band,omitempty"`

	InstantCashOffer numeric.Number `json:"instant_cash_offer"`
	DealSpread       numeric.Number `json:"deal_spread"`
	NetToSeller      numeric.Number `json:"net_to_seller"`
}

// CappedAsIs applies the AIV safety cap. Non-finite values count as zero and
// the cap is clamped to [0, 1], so raising the cap never raises the result.
func CappedAsIs(asIs, capPct float64) float64 {
	return numeric.Money(numeric.Safe(asIs) * (1 - numeric.Clamp(capPct, 0, 1)))
}

// BuyerCeiling evaluates the ceiling formula. A formula that fails to parse
// is replaced by the default and reported through fallback.
func BuyerCeiling(src string, vars formula.Vars) (ceiling float64, used string, fallback bool) {
	expr, err := formula.Parse(src)
	if err != nil {
		expr, _ = formula.Parse(policy.DefaultBuyerCeilingFormula)
		fallback = true
	}
	return numeric.Money(numeric.SafeNonNeg(expr.Eval(vars))), expr.String(), fallback
}

// InvestorDiscount selects the AIV discount. Slow markets and bottom-quintile
// ZIP price percentiles use the P20 discount.
func InvestorDiscount(speed Speed, zipPercentile numeric.Number, u policy.Underwriting) (float64, string) {
	if p, ok := zipPercentile.Value(); speed == SpeedSlow || (ok && p <= 20) {
		return u.InvestorDiscountP20, DiscountP20
	}
	return u.InvestorDiscountTypical, DiscountTypical
}

// InvestorFloor returns aiv × (1 − discount).
func InvestorFloor(aiv, discount float64) float64 {
	return numeric.Money(numeric.SafeNonNeg(aiv) * (1 - numeric.Clamp(discount, 0, 1)))
}

// ProjectedPayoff returns the senior payoff projected to closing plus
// protective advances and junior liens.
func ProjectedPayoff(debt model.Debt, closeDays float64) float64 {
	total := numeric.SafeNonNeg(debt.SeniorPrincipal.Float()) +
		numeric.SafeNonNeg(debt.SeniorPerDiem.Float())*numeric.SafeNonNeg(closeDays) +
		numeric.SafeNonNeg(debt.ProtectiveAdvances.Float())
	for _, j := range debt.Juniors {
		total += numeric.SafeNonNeg(j.Amount.Float())
	}
	return numeric.Money(total)
}

// MoveOutCash returns the policy move-out cash default clamped to its range.
func MoveOutCash(u policy.Underwriting) float64 {
	lo, hi := numeric.SafeNonNeg(u.MoveOutCashMin), numeric.SafeNonNeg(u.MoveOutCashMax)
	if hi < lo {
		hi = lo
	}
	return numeric.Clamp(u.MoveOutCashDefault, lo, hi)
}

// RespectFloor combines the investor and payoff floors. With composition
// enabled the floor is the larger of the two, skipping a missing one.
// Disabled composition takes the single component the selector names.
func RespectFloor(investor, payoff numeric.Number, u policy.Underwriting) (numeric.Number, string) {
	if !u.RespectFloorComposition {
		switch u.RespectFloorSelector {
		case policy.SelectorInvestorOnly:
			return investor, basisIfValid(investor, FloorInvestor)
		case policy.SelectorPayoffOnly:
			return payoff, basisIfValid(payoff, FloorPayoff)
		}
	}

	iv, iok := investor.Value()
	pv, pok := payoff.Value()
	switch {
	case iok && pok && pv > iv:
		return payoff, FloorPayoff
	case iok:
		return investor, FloorInvestor
	case pok:
		return payoff, FloorPayoff
	}
	return numeric.Null(), ""
}

func basisIfValid(n numeric.Number, basis string) string {
	if n.Valid() {
		return basis
	}
	return ""
}

// MinSpread returns the minimum spread for an ARV: the first band whose max
// ARV covers it, max(minSpread, pct × ARV). ARVs above every band use the
// last one. A valid override wins.
func MinSpread(arv float64, bands []policy.MinSpreadBand, override numeric.Number) (float64, string) {
	if v, ok := override.Value(); ok {
		return numeric.SafeNonNeg(v), "override"
	}
	if len(bands) == 0 {
		return 0, ""
	}
	arv = numeric.SafeNonNeg(arv)
	band := bands[len(bands)-1]
	for _, b := range bands {
		if arv <= b.MaxARV {
			band = b
			break
		}
	}
	return numeric.Money(max(band.MinSpread, band.Pct*arv)), band.Name
}

// WholesaleMAO is the lower of the respect floor and the capped as-is
// value. It is null without a floor.
func WholesaleMAO(floor numeric.Number, cappedAsIs float64, hasAIV bool) numeric.Number {
	f, ok := floor.Value()
	if !ok {
		return numeric.Null()
	}
	if hasAIV {
		f = min(f, cappedAsIs)
	}
	return numeric.Of(numeric.Money(f))
}

// InstantCashOffer places the offer between floor and ceiling by the spread
// multiplier.
func InstantCashOffer(floor, ceiling, multiplier float64) float64 {
	return numeric.Money(floor + (ceiling-floor)*numeric.Clamp(multiplier, 0, 1))
}

// Compute runs every valuation step for a deal against its cost rollup.
func Compute(d model.Deal, costs cost.Rollup, u policy.Underwriting) Bounds {
	b := Bounds{
		SafetyCapPct:   numeric.Clamp(d.Policy.SafetyCapPct.Or(u.AIVSafetyCapPct), 0, 1),
		CeilingFormula: u.BuyerCeilingFormula,
		MoveOutCash:    MoveOutCash(u),
	}

	aiv, hasAIV := d.Market.AsIsValue.Value()
	b.CappedAsIs = CappedAsIs(aiv, b.SafetyCapPct)

	b.SpeedBand = SpeedBand(d.Market.DOMZip, d.Market.MOIZip, u.SpeedBands)
	b.InvestorDiscount, b.InvestorDiscountBasis = InvestorDiscount(b.SpeedBand, d.Market.ZipPricePercentile, u)
	if hasAIV {
		rawAIV := numeric.SafeNonNeg(aiv)
		b.InvestorFloor = numeric.Of(InvestorFloor(rawAIV, b.InvestorDiscount))
		b.RetainedEquity = numeric.Money(rawAIV * numeric.Clamp(u.RetainedEquityPct, 0, 1))
	}

	b.PlannedCloseDays = numeric.SafeNonNeg(d.Policy.PlannedCloseDays.Or(u.DefaultDaysToClose))
	if d.Debt.SeniorPrincipal.Valid() {
		payoff := ProjectedPayoff(d.Debt, b.PlannedCloseDays)
		b.ProjectedPayoff = numeric.Of(payoff)
		cure := numeric.SafeNonNeg(d.Title.CureCost.Float())
		b.PayoffFloor = numeric.Of(numeric.Money(payoff + cure + b.MoveOutCash + b.RetainedEquity))
	}
	b.RespectFloor, b.FloorBasis = RespectFloor(b.InvestorFloor, b.PayoffFloor, u)
	b.WholesaleMAO = WholesaleMAO(b.RespectFloor, b.CappedAsIs, hasAIV)

	arv, hasARV := d.Market.ARV.Value()
	if hasARV {
		ceiling, used, fallback := BuyerCeiling(u.BuyerCeilingFormula, formula.Vars{
			"ARV":     numeric.SafeNonNeg(arv),
			"AIV":     b.CappedAsIs,
			"REPAIRS": costs.TotalRepairs,
			"MARGIN":  u.FlipMargin,
			"COSTS":   costs.Total(),
		})
		b.BuyerCeiling = numeric.Of(ceiling)
		b.CeilingFormula, b.CeilingFormulaFallback = used, fallback
	}

	b.MinSpread, b.MinSpreadBand = MinSpread(arv, u.MinSpreadBands, d.Policy.MinSpread)

	floor, hasFloor := b.RespectFloor.Value()
	ceiling, hasCeiling := b.BuyerCeiling.Value()
	if hasFloor && hasCeiling {
		offer := InstantCashOffer(floor, ceiling, u.InitialOfferSpreadMultiplier)
		b.InstantCashOffer = numeric.Of(offer)
		b.DealSpread = numeric.Of(numeric.Money(numeric.SafeNonNeg(arv) - costs.ResaleCosts - costs.CarryCosts - costs.TotalRepairs - offer))
		if payoff, ok := b.ProjectedPayoff.Value(); ok {
			cure := numeric.SafeNonNeg(d.Title.CureCost.Float())
			b.NetToSeller = numeric.Of(numeric.Money(offer - payoff - cure))
		}
	}
	return b
}
