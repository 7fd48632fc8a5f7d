package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/numeric"
	"github.com/sells-group/underwrite-cli/internal/policy"
)

func TestScoreSystem(t *testing.T) {
	t.Parallel()
	spec := DefaultSpecs()[Roof]
	year := func(v float64) *float64 { return &v }

	tests := []struct {
		name      string
		installed *float64
		wantAge   int
		wantRem   int
		wantCond  Condition
		replace   bool
	}{
		{"new roof", year(2024), 2, 23, ConditionGood, false},
		{"forty percent is fair", year(2011), 15, 10, ConditionFair, false},
		{"fair", year(2007), 19, 6, ConditionFair, false},
		{"poor", year(2005), 21, 4, ConditionPoor, false},
		{"end of life", year(2001), 25, 0, ConditionCritical, true},
		{"past life", year(1990), 36, 0, ConditionCritical, true},
		{"future year", year(2030), 0, 25, ConditionGood, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ScoreSystem(Roof, spec, tt.installed, 2026)
			require.NotNil(t, got.Age)
			assert.Equal(t, tt.wantAge, *got.Age)
			assert.Equal(t, tt.wantRem, *got.RemainingYears)
			assert.Equal(t, tt.wantCond, *got.Condition)
			assert.Equal(t, tt.replace, got.NeedsReplacement)
		})
	}
}

func TestScoreSystem_UnknownYear(t *testing.T) {
	t.Parallel()
	got := ScoreSystem(HVAC, DefaultSpecs()[HVAC], nil, 2026)

	assert.Nil(t, got.Age)
	assert.Nil(t, got.RemainingYears)
	assert.Nil(t, got.Condition)
	assert.False(t, got.NeedsReplacement)
	assert.Equal(t, 15, got.ExpectedLife)
}

func TestCompute(t *testing.T) {
	t.Parallel()
	info := model.SystemsInfo{
		RoofYearInstalled:        numeric.Of(1998),
		HVACYearInstalled:        numeric.Of(2020),
		WaterHeaterYearInstalled: numeric.Of(2010),
	}

	st := Compute(info, DefaultSpecs(), 2026)
	assert.Equal(t, []string{"Roof", "Water Heater"}, st.UrgentReplacements)
	assert.InDelta(t, 16500, st.TotalReplacementCost, 0.001)
	require.NotNil(t, st.HVACRUL)
	assert.Equal(t, 9, *st.HVACRUL)
	assert.Len(t, st.Scores, 3)
}

func TestCompute_NoYears(t *testing.T) {
	t.Parallel()
	st := Compute(model.SystemsInfo{}, DefaultSpecs(), 2026)

	assert.Empty(t, st.UrgentReplacements)
	assert.Zero(t, st.TotalReplacementCost)
	assert.Nil(t, st.RoofRUL)
}

func TestSpecsFromPolicy(t *testing.T) {
	t.Parallel()
	cfg := policy.Defaults()
	cfg["systemsRoofExpectedLifeYears"] = 30
	cfg["systemsHvacReplacementCost"] = 9500.0

	specs := SpecsFromPolicy(cfg)
	assert.Equal(t, 30, specs[Roof].ExpectedLife)
	assert.InDelta(t, 9500, specs[HVAC].ReplacementCost, 0.001)
	assert.Equal(t, 12, specs[WaterHeater].ExpectedLife)
}
