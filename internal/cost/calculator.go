package cost

import (
	"strings"

	"github.com/sells-group/underwrite-cli/internal/formula"
	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/numeric"
	"github.com/sells-group/underwrite-cli/internal/policy"
)

// MakeReadyItem is the resale line item name for make-ready by repair class.
const MakeReadyItem = "Make Ready"

// LineItem is one computed resale cost.
type LineItem struct {
	Name   string  `json:"name"`
	Pct    float64 `json:"pct"`
	Fixed  float64 `json:"fixed"`
	Amount float64 `json:"amount"`
}

// Rollup is the cost side of an underwriting run.
type Rollup struct {
	RepairClass    string  `json:"repair_class"`
	RepairsBase    float64 `json:"repairs_base"`
	ContingencyPct float64 `json:"contingency_pct"`
	TotalRepairs   float64 `json:"total_repairs"`

	CarryMonths         float64 `json:"carry_months"`
	CarryFormula        string  `json:"carry_formula"`
	CarryFormulaDefault bool    `json:"carry_formula_default"`
	MonthlyCarry        float64 `json:"monthly_carry"`
	CarryCosts          float64 `json:"carry_costs"`
	TenantBuffer        float64 `json:"tenant_buffer"`

	ResaleItems []LineItem `json:"resale_items"`
	ResaleCosts float64    `json:"resale_costs"`
}

// Total returns everything the buyer ceiling subtracts as COSTS.
func (r Rollup) Total() float64 {
	return r.CarryCosts + r.TenantBuffer + r.ResaleCosts
}

// Calculator computes repairs, carry and resale costs for one resolved policy.
type Calculator struct {
	u            policy.Underwriting
	carry        *formula.Expr
	carryDefault bool
}

// NewCalculator creates a Calculator for the given policy. A carry-months
// formula that fails to parse falls back to the default formula.
func NewCalculator(u policy.Underwriting) *Calculator {
	c := &Calculator{u: u}
	expr, err := formula.Parse(u.CarryMonthsFormula)
	if err != nil {
		expr, _ = formula.Parse(policy.DefaultCarryMonthsFormula)
		c.carryDefault = true
	}
	c.carry = expr
	return c
}

// RepairClass picks the deal's repair class, falling back to the policy default.
func (c *Calculator) RepairClass(class string) string {
	class = policy.NormalizeRepairClass(class)
	if _, ok := c.u.ContingencyByClass[class]; ok {
		return class
	}
	return c.u.DefaultRepairClass
}

// Contingency returns the contingency fraction for a repair class. A valid
// override replaces the class lookup entirely. The bids-missing adder
// applies unless bids are known to be present.
func (c *Calculator) Contingency(class string, bidsPresent *bool, override numeric.Number) float64 {
	if v, ok := override.Value(); ok {
		return numeric.SafeNonNeg(v)
	}
	pct := c.u.ContingencyByClass[c.RepairClass(class)]
	if bidsPresent == nil || !*bidsPresent {
		pct += c.u.ContingencyBidsMissing
	}
	return numeric.SafeNonNeg(pct)
}

// Repairs returns base × (1 + contingency). Negative inputs count as zero.
func (c *Calculator) Repairs(base, contingencyPct float64) float64 {
	return numeric.Money(numeric.SafeNonNeg(base) * (1 + numeric.SafeNonNeg(contingencyPct)))
}

// CarryMonths evaluates the carry formula against DOM and clamps it to
// [0, cap].
func (c *Calculator) CarryMonths(dom numeric.Number) float64 {
	months := c.carry.Eval(formula.Vars{"DOM_zip": numeric.SafeNonNeg(dom.Float())})
	return numeric.Round(numeric.Clamp(months, 0, numeric.SafeNonNeg(c.u.CarryMonthsCap)), 2)
}

// MonthlyCarry sums the monthly holding costs, filling blanks from policy
// defaults. Annual taxes and insurance are divided by 12.
func (c *Calculator) MonthlyCarry(m model.MonthlyCosts, annual bool) float64 {
	d := c.u.HoldingDefaults
	taxes := numeric.SafeNonNeg(m.Taxes.Or(d.Taxes))
	insurance := numeric.SafeNonNeg(m.Insurance.Or(d.Insurance))
	if annual {
		if m.Taxes.Valid() {
			taxes /= 12
		}
		if m.Insurance.Valid() {
			insurance /= 12
		}
	}
	total := taxes + insurance +
		numeric.SafeNonNeg(m.HOA.Or(d.HOA)) +
		numeric.SafeNonNeg(m.Utilities.Or(d.Utilities)) +
		numeric.SafeNonNeg(m.Interest.Float())
	return numeric.Money(total)
}

// Resale computes the seller-side line items against ARV. Deal-level
// commission, concessions and closing percentages replace the matching
// policy line item; make-ready for the repair class is appended.
func (c *Calculator) Resale(arv float64, costs model.Costs, class string) []LineItem {
	arv = numeric.SafeNonNeg(arv)
	items := make([]LineItem, 0, len(c.u.ListingCosts)+1)
	for _, li := range c.u.ListingCosts {
		pct := li.Pct
		if v, ok := dealResalePct(li.Name, costs); ok {
			pct = v
		}
		pct = numeric.SafeNonNeg(pct)
		fixed := numeric.SafeNonNeg(li.Fixed)
		items = append(items, LineItem{
			Name:   li.Name,
			Pct:    pct,
			Fixed:  fixed,
			Amount: numeric.Money(arv*pct + fixed),
		})
	}
	if mr := numeric.SafeNonNeg(c.u.MakeReadyByClass[class]); mr > 0 {
		items = append(items, LineItem{Name: MakeReadyItem, Fixed: mr, Amount: numeric.Money(mr)})
	}
	return items
}

// Compute runs the whole rollup for a deal.
func (c *Calculator) Compute(d model.Deal) Rollup {
	class := c.RepairClass(d.Costs.RepairClass)
	r := Rollup{
		RepairClass:         class,
		RepairsBase:         numeric.Money(numeric.SafeNonNeg(d.Costs.RepairsBase.Float())),
		ContingencyPct:      c.Contingency(class, d.Costs.RepairBidsPresent, d.Costs.ContingencyPct),
		CarryMonths:         c.CarryMonths(d.Market.DOMZip),
		CarryFormula:        c.carry.String(),
		CarryFormulaDefault: c.carryDefault,
		MonthlyCarry:        c.MonthlyCarry(d.Costs.Monthly, d.Policy.CostsAreAnnual),
	}
	r.TotalRepairs = c.Repairs(r.RepairsBase, r.ContingencyPct)
	r.CarryCosts = numeric.Money(r.MonthlyCarry * r.CarryMonths)
	if isTenantOccupied(d.Property.Occupancy) {
		r.TenantBuffer = numeric.Money(r.MonthlyCarry * numeric.SafeNonNeg(c.u.TenantBufferMonths))
	}

	r.ResaleItems = c.Resale(d.Market.ARV.Float(), d.Costs, class)
	var total float64
	for _, li := range r.ResaleItems {
		total += li.Amount
	}
	r.ResaleCosts = numeric.Money(total)
	return r
}

func dealResalePct(item string, costs model.Costs) (float64, bool) {
	name := strings.ToLower(item)
	switch {
	case strings.Contains(name, "commission"):
		return costs.ListCommissionPct.Value()
	case strings.Contains(name, "concession"):
		return costs.ConcessionsPct.Value()
	case strings.Contains(name, "title"), strings.Contains(name, "clos"):
		return costs.SellClosePct.Value()
	}
	return 0, false
}

func isTenantOccupied(occupancy string) bool {
	return strings.Contains(strings.ToLower(occupancy), "tenant")
}
