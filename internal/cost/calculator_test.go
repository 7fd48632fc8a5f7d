package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/numeric"
	"github.com/sells-group/underwrite-cli/internal/policy"
)

func testCalculator(t *testing.T) *Calculator {
	t.Helper()
	return NewCalculator(policy.For(policy.Defaults(), nil, policy.Base))
}

func TestContingency(t *testing.T) {
	t.Parallel()
	calc := testCalculator(t)

	tests := []struct {
		name     string
		class    string
		bids     *bool
		override numeric.Number
		want     float64
	}{
		{name: "medium with bids", class: "Medium", bids: model.BoolPtr(true), want: 0.15},
		{name: "medium without bids adds adder", class: "medium", bids: model.BoolPtr(false), want: 0.25},
		{name: "unknown bids adds adder", class: "light", want: 0.20},
		{name: "heavy with bids", class: "HEAVY", bids: model.BoolPtr(true), want: 0.20},
		{name: "unknown class uses default", class: "gut", bids: model.BoolPtr(true), want: 0.15},
		{name: "override wins", class: "structural", override: numeric.Of(0.05), want: 0.05},
		{name: "negative override clamps", override: numeric.Of(-1), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.Contingency(tt.class, tt.bids, tt.override), 1e-9)
		})
	}
}

func TestRepairs_MonotonicInContingency(t *testing.T) {
	t.Parallel()
	calc := testCalculator(t)

	prev := -1.0
	for pct := 0.0; pct <= 1.0; pct += 0.05 {
		got := calc.Repairs(25000, pct)
		assert.GreaterOrEqual(t, got, prev, "pct=%v", pct)
		prev = got
	}
	assert.InDelta(t, 28750, calc.Repairs(25000, 0.15), 0.001)
	assert.Zero(t, calc.Repairs(-500, 0.15))
}

func TestCarryMonths(t *testing.T) {
	t.Parallel()
	calc := testCalculator(t)

	tests := []struct {
		name string
		dom  numeric.Number
		want float64
	}{
		{"missing dom", numeric.Null(), 1},
		{"dom 40", numeric.Of(40), 3},
		{"dom 60", numeric.Of(60), 4},
		{"capped", numeric.Of(1000), 12},
		{"negative dom", numeric.Of(-100), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.CarryMonths(tt.dom), 0.001)
		})
	}
}

func TestCarryMonths_BadFormulaFallsBack(t *testing.T) {
	t.Parallel()
	u := policy.For(policy.Defaults(), nil, policy.Base)
	u.CarryMonthsFormula = "({DOM_zip} * "
	calc := NewCalculator(u)

	assert.InDelta(t, 3, calc.CarryMonths(numeric.Of(40)), 0.001)
	r := calc.Compute(model.Deal{})
	assert.True(t, r.CarryFormulaDefault)
	assert.Equal(t, policy.DefaultCarryMonthsFormula, r.CarryFormula)
}

func TestMonthlyCarry(t *testing.T) {
	t.Parallel()
	calc := testCalculator(t)

	t.Run("defaults fill blanks", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 800, calc.MonthlyCarry(model.MonthlyCosts{}, false), 0.001)
	})

	t.Run("annual taxes and insurance", func(t *testing.T) {
		t.Parallel()
		m := model.MonthlyCosts{
			Taxes:     numeric.Of(6000),
			Insurance: numeric.Of(2400),
			HOA:       numeric.Of(0),
			Utilities: numeric.Of(100),
			Interest:  numeric.Of(250),
		}
		assert.InDelta(t, 500+200+0+100+250, calc.MonthlyCarry(m, true), 0.001)
	})
}

func TestCompute(t *testing.T) {
	t.Parallel()
	calc := testCalculator(t)

	d := model.Deal{
		Market: model.Market{ARV: numeric.Of(300000), DOMZip: numeric.Of(40)},
		Costs: model.Costs{
			RepairsBase:       numeric.Of(25000),
			RepairClass:       "Medium",
			RepairBidsPresent: model.BoolPtr(true),
			ListCommissionPct: numeric.Of(0.05),
		},
		Property: model.Property{Occupancy: "Tenant"},
	}

	r := calc.Compute(d)
	assert.Equal(t, "medium", r.RepairClass)
	assert.InDelta(t, 28750, r.TotalRepairs, 0.001)
	assert.InDelta(t, 3, r.CarryMonths, 0.001)
	assert.InDelta(t, 800, r.MonthlyCarry, 0.001)
	assert.InDelta(t, 2400, r.CarryCosts, 0.001)
	assert.InDelta(t, 800, r.TenantBuffer, 0.001)

	require.Len(t, r.ResaleItems, 4)
	assert.InDelta(t, 15000, r.ResaleItems[0].Amount, 0.001)
	assert.InDelta(t, 6000, r.ResaleItems[1].Amount, 0.001)
	assert.InDelta(t, 4500, r.ResaleItems[2].Amount, 0.001)
	assert.Equal(t, MakeReadyItem, r.ResaleItems[3].Name)
	assert.InDelta(t, 28000, r.ResaleCosts, 0.001)
	assert.InDelta(t, 2400+800+28000, r.Total(), 0.001)
}

func TestCompute_EmptyDeal(t *testing.T) {
	t.Parallel()
	r := testCalculator(t).Compute(model.Deal{})

	assert.Zero(t, r.TotalRepairs)
	assert.Zero(t, r.TenantBuffer)
	assert.InDelta(t, 2500, r.ResaleCosts, 0.001)
}
