package lien

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/numeric"
)

func TestCompute_HOAAndTaxBelowBlocking(t *testing.T) {
	t.Parallel()
	r := Compute(model.LienDetails{
		TitleSearchCompleted: true,
		HOABalance:           numeric.Of(3000),
		CDDBalance:           numeric.Of(0),
		PropertyTaxBalance:   numeric.Of(1200),
		MunicipalLienAmount:  numeric.Of(0),
	})

	assert.False(t, r.BlockingGateTriggered)
	assert.True(t, r.JointLiabilityWarning)
	assert.Equal(t, JointLiabilityStatute, r.JointLiabilityStatute)
	assert.InDelta(t, 4200, r.TotalSurviving, 0.001)
	assert.Equal(t, LevelMedium, r.Level)
	assert.InDelta(t, -4200, r.NetClearanceAdjustment, 0.001)
	assert.Empty(t, r.EvidenceNeeded)
}

func TestLevelFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total float64
		want  Level
	}{
		{0, LevelLow},
		{2500, LevelLow},
		{2500.01, LevelMedium},
		{5000, LevelMedium},
		{5001, LevelHigh},
		{10000, LevelHigh},
		{10000.01, LevelCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.total), "total=%v", tt.total)
	}
}

func TestCompute_Blocking(t *testing.T) {
	t.Parallel()
	r := Compute(model.LienDetails{
		TitleSearchCompleted: true,
		PropertyTaxBalance:   numeric.Of(8000),
		MunicipalLienAmount:  numeric.Of(2500),
	})

	assert.True(t, r.BlockingGateTriggered)
	assert.Equal(t, LevelCritical, r.Level)
	assert.False(t, r.JointLiabilityWarning)
	assert.Empty(t, r.JointLiabilityStatute)
}

func TestCompute_DefensiveInputs(t *testing.T) {
	t.Parallel()
	r := Compute(model.LienDetails{
		HOABalance: numeric.Of(-500),
		CDDBalance: numeric.Of(math.Inf(1)),
	})

	assert.Zero(t, r.TotalSurviving)
	assert.Zero(t, r.NetClearanceAdjustment)
	assert.False(t, r.JointLiabilityWarning)
	assert.Equal(t, LevelLow, r.Level)
}

func TestCompute_EvidenceNeeded(t *testing.T) {
	t.Parallel()
	r := Compute(model.LienDetails{
		HOAStatus:             "Unknown",
		CDDStatus:             "unknown",
		PropertyTaxStatus:     "unknown",
		MunicipalLiensPresent: true,
	})

	assert.Equal(t, []string{
		"Title search",
		"HOA status verification",
		"CDD status verification",
		"Property tax status verification",
		"Municipal lien amount verification",
	}, r.EvidenceNeeded)
}
