package motivation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/underwrite-cli/internal/model"
)

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        Input
		wantScore int
		wantLevel Level
		wantConf  Confidence
		wantFlags []string
	}{
		{
			name:      "empty input",
			in:        Input{},
			wantScore: 50, wantLevel: LevelMedium, wantConf: ConfidenceLow, wantFlags: []string{},
		},
		{
			name: "foreclosure immediate sole owner delinquent",
			in: Input{
				ReasonForSelling: "foreclosure", SellerTimeline: "immediate",
				DecisionMakerStatus: "sole_owner", MortgageDelinquent: model.BoolPtr(true),
				ForeclosureBoost: 25,
			},
			wantScore: 100, wantLevel: LevelCritical, wantConf: ConfidenceHigh, wantFlags: []string{},
		},
		{
			name: "tired landlord testing market with multiple parties",
			in: Input{
				ReasonForSelling: "tired_landlord", SellerTimeline: "testing_market",
				DecisionMakerStatus: "multiple_parties", MortgageDelinquent: model.BoolPtr(false),
			},
			// 60 × 0.3 × 0.6 = 10.8
			wantScore: 11, wantLevel: LevelLow, wantConf: ConfidenceHigh,
			wantFlags: []string{"Seller may just be testing the market", "Multiple decision makers - harder to close"},
		},
		{
			name: "divorce no rush unknown authority",
			in: Input{
				ReasonForSelling: "Divorce", SellerTimeline: "no_rush", DecisionMakerStatus: "unknown",
			},
			// 80 × 0.7 × 0.7 = 39.2
			wantScore: 39, wantLevel: LevelLow, wantConf: ConfidenceHigh,
			wantFlags: []string{"No closing urgency - low motivation", "Decision maker status unknown - verify authority"},
		},
		{
			name: "boost clamps",
			in:   Input{ReasonForSelling: "probate", SellerTimeline: "flexible", ForeclosureBoost: 90},
			// 70 + 25
			wantScore: 95, wantLevel: LevelCritical, wantConf: ConfidenceMedium, wantFlags: []string{},
		},
		{
			name:      "unknown reason uses default",
			in:        Input{ReasonForSelling: "aliens", ForeclosureBoost: -10},
			wantScore: 50, wantLevel: LevelMedium, wantConf: ConfidenceLow, wantFlags: []string{},
		},
		{
			name:      "high band",
			in:        Input{ReasonForSelling: "job_loss", SellerTimeline: "flexible", DecisionMakerStatus: "joint_decision"},
			wantScore: 72, wantLevel: LevelHigh, wantConf: ConfidenceHigh, wantFlags: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Score(tt.in)
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, tt.wantLevel, got.Level)
			assert.Equal(t, tt.wantConf, got.Confidence)
			assert.Equal(t, tt.wantFlags, got.RedFlags)
		})
	}
}

func TestScore_Breakdown(t *testing.T) {
	t.Parallel()
	got := Score(Input{ReasonForSelling: "tax_lien", SellerTimeline: "urgent", MortgageDelinquent: model.BoolPtr(true), ForeclosureBoost: 15})

	assert.InDelta(t, 85, got.Breakdown.BaseScore, 1e-9)
	assert.InDelta(t, 1.3, got.Breakdown.TimelineMultiplier, 1e-9)
	assert.InDelta(t, 1, got.Breakdown.DecisionMakerFactor, 1e-9)
	assert.InDelta(t, 10, got.Breakdown.DistressBonus, 1e-9)
	assert.InDelta(t, 15, got.Breakdown.ForeclosureBoost, 1e-9)
	assert.Equal(t, 100, got.Score)
}

func TestPreview(t *testing.T) {
	t.Parallel()
	p := Preview(InputFrom(model.SellerSituation{ReasonForSelling: "relocation"}, 10))
	require.NotNil(t, p)
	assert.Equal(t, 60, p.Score)
}
