package guardrail

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/underwrite-cli/internal/numeric"
)

var (
	n    = numeric.Of
	none = numeric.Null()
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                  string
		offer, floor, ceiling numeric.Number
		want                  Status
	}{
		{"all absent", none, none, none, StatusUnknown},
		{"inside band", n(150000), n(120000), n(180000), StatusOK},
		{"below floor", n(110000), n(120000), n(180000), StatusBroken},
		{"above ceiling", n(190000), n(120000), n(180000), StatusBroken},
		{"near floor", n(120500), n(120000), n(180000), StatusTight},
		{"at floor", n(120000), n(120000), n(180000), StatusTight},
		{"near ceiling", n(179200), n(120000), n(180000), StatusTight},
		{"inverted band", n(150000), n(180000), n(120000), StatusBroken},
		{"inverted band without offer", none, n(200000), n(150000), StatusOK},
		{"offer only", n(150000), none, none, StatusOK},
		{"floor only", none, n(120000), none, StatusOK},
		{"no ceiling", n(125000), n(120000), none, StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.offer, tt.floor, tt.ceiling))
		})
	}
}

func TestClassify_TotalOverFiniteTriples(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewPCG(7, 11))

	for range 2000 {
		offer := n(r.Float64()*400000 - 50000)
		floor := n(r.Float64()*400000 - 50000)
		ceiling := n(r.Float64()*400000 - 50000)

		got := Classify(offer, floor, ceiling)
		assert.Contains(t, []Status{StatusOK, StatusTight, StatusBroken}, got)
	}
}

func TestBestOffer(t *testing.T) {
	t.Parallel()
	assert.Equal(t, n(2), BestOffer(none, n(2), n(3)))
	assert.False(t, BestOffer(none, none).Valid())
}

func TestRiskPosture(t *testing.T) {
	t.Parallel()
	assert.Equal(t, RiskPass, RiskPosture(n(15000), n(15000)))
	assert.Equal(t, RiskWatch, RiskPosture(n(0), n(15000)))
	assert.Equal(t, RiskFail, RiskPosture(n(-1), n(15000)))
	assert.Equal(t, RiskUnknown, RiskPosture(none, n(15000)))
}

func TestHealthLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		spread, min numeric.Number
		want        Health
	}{
		{n(40000), n(15000), Health{"Pass", ColorGreen}},
		{n(15500), n(15000), Health{"Tight", ColorOrange}},
		{n(14999), n(15000), Health{"Below policy", ColorRed}},
		{none, n(15000), Health{"Unknown", ColorBlue}},
		{n(40000), none, Health{"Unknown", ColorBlue}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HealthLabel(tt.spread, tt.min))
	}
}

func TestWorkflowAndConfidence(t *testing.T) {
	t.Parallel()

	assert.Equal(t, WorkflowNeedsRun, WorkflowState(false, n(1), n(1), n(1)))
	assert.Equal(t, WorkflowNeedsReview, WorkflowState(true, none, n(1), n(2)))
	assert.Equal(t, WorkflowReadyDraft, WorkflowState(true, n(1), n(1), n(2)))

	assert.Equal(t, GradeB, ConfidenceGrade(true, n(1), n(2)))
	assert.Equal(t, GradeC, ConfidenceGrade(false, n(1), n(2)))
	assert.Equal(t, GradeC, ConfidenceGrade(true, none, n(2)))
}

func TestBuild(t *testing.T) {
	t.Parallel()
	v := Build(Input{
		HasRun:         true,
		Offer:          n(150000),
		Floor:          n(120000),
		Ceiling:        n(180000),
		Spread:         n(40000),
		MinSpread:      n(15000),
		FeeTargetCheck: "REVIEW",
		LienBlocking:   true,
	})

	assert.Equal(t, StatusOK, v.Status)
	assert.Equal(t, RiskPass, v.Risk)
	assert.Equal(t, "Pass", v.Health.Label)
	assert.Equal(t, WorkflowReadyDraft, v.Workflow)
	assert.Equal(t, GradeB, v.Confidence)
	assert.True(t, v.Blocking)
	assert.Equal(t, []string{
		"Surviving liens exceed the blocking threshold",
		"Double-close fee target needs review",
	}, v.Warnings)
}

func TestBuild_Tight(t *testing.T) {
	t.Parallel()
	v := Build(Input{HasRun: true, Offer: n(120400), Floor: n(120000), Ceiling: n(180000)})

	assert.Equal(t, StatusTight, v.Status)
	assert.Equal(t, []string{"Offer is within $1,000 of a bound"}, v.Warnings)
}

func TestWholesaleFeeView(t *testing.T) {
	t.Parallel()
	w := WholesaleFeeView(n(180000), n(150000), n(300000), 4500)

	assert.InDelta(t, 30000, w.Fee.Float(), 0.001)
	assert.InDelta(t, 25500, w.FeeWithDC.Float(), 0.001)
	assert.InDelta(t, 0.1, w.PctOfARV.Float(), 1e-9)

	missing := WholesaleFeeView(none, n(150000), n(300000), 4500)
	assert.False(t, missing.Fee.Valid())
	assert.False(t, missing.FeeWithDC.Valid())
}

func TestMarketTempView(t *testing.T) {
	t.Parallel()

	tests := []struct {
		band      string
		dtm       numeric.Number
		wantScore int
		wantLabel string
	}{
		{"fast", n(20), 90, TempHot},
		{"neutral", n(45), 55, TempWarm},
		{"neutral", n(90), 50, TempNeutral},
		{"slow", n(150), 15, TempCool},
		{"", n(10), 60, TempWarm},
		{"", none, 0, TempUnknown},
	}

	for _, tt := range tests {
		got := MarketTempView(tt.band, tt.dtm)
		assert.Equal(t, tt.wantScore, got.Score, "band=%s", tt.band)
		assert.Equal(t, tt.wantLabel, got.Label, "band=%s", tt.band)
	}

	assert.Equal(t, "Speed band fast. Days to money 20.", MarketTempView("fast", n(20)).Reason)
}
