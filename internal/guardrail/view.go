package guardrail

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/underwrite-cli/internal/numeric"
)

// Input collects what the guardrail view needs from a run.
type Input struct {
	HasRun    bool
	Offer     numeric.Number
	Floor     numeric.Number
	Ceiling   numeric.Number
	Spread    numeric.Number
	MinSpread numeric.Number

	// FeeTargetCheck is the double-close fee-target outcome, if computed.
	FeeTargetCheck string
	LienBlocking   bool
}

// View is the guardrail summary of a run.
type View struct {
	Status     Status         `json:"guardrails_status"`
	Floor      numeric.Number `json:"floor"`
	Ceiling    numeric.Number `json:"ceiling"`
	Offer      numeric.Number `json:"offer"`
	Spread     numeric.Number `json:"spread"`
	MinSpread  numeric.Number `json:"min_spread"`
	Risk       Risk           `json:"risk_posture"`
	Health     Health         `json:"health"`
	Workflow   Workflow       `json:"workflow_state"`
	Confidence string         `json:"confidence_grade"`
	Blocking   bool           `json:"blocking"`
	Warnings   []string       `json:"warnings"`
}

// Build derives the full view. A triggered lien gate blocks publishing; a
// fee-target REVIEW only adds a warning.
func Build(in Input) View {
	v := View{
		Status:     Classify(in.Offer, in.Floor, in.Ceiling),
		Floor:      in.Floor,
		Ceiling:    in.Ceiling,
		Offer:      in.Offer,
		Spread:     in.Spread,
		MinSpread:  in.MinSpread,
		Risk:       RiskPosture(in.Spread, in.MinSpread),
		Health:     HealthLabel(in.Spread, in.MinSpread),
		Workflow:   WorkflowState(in.HasRun, in.Offer, in.Floor, in.Ceiling),
		Confidence: ConfidenceGrade(in.HasRun, in.Floor, in.Ceiling),
		Blocking:   in.LienBlocking,
		Warnings:   []string{},
	}

	p := message.NewPrinter(language.AmericanEnglish)
	switch v.Status {
	case StatusBroken:
		v.Warnings = append(v.Warnings, "Offer is outside the floor/ceiling band")
	case StatusTight:
		v.Warnings = append(v.Warnings, p.Sprintf("Offer is within $%d of a bound", int(TightTolerance)))
	}
	if v.Risk == RiskFail {
		v.Warnings = append(v.Warnings, "Deal spread is negative")
	}
	if in.LienBlocking {
		v.Warnings = append(v.Warnings, "Surviving liens exceed the blocking threshold")
	}
	switch strings.ToUpper(in.FeeTargetCheck) {
	case "REVIEW":
		v.Warnings = append(v.Warnings, "Double-close fee target needs review")
	case "NO":
		v.Warnings = append(v.Warnings, "Double-close net spread after carry is negative")
	}
	return v
}

// WholesaleFee is the assignment fee available between the bounds.
type WholesaleFee struct {
	Fee       numeric.Number `json:"wholesale_fee"`
	PctOfARV  numeric.Number `json:"wholesale_fee_pct_of_arv"`
	FeeWithDC numeric.Number `json:"wholesale_fee_with_dc"`
	DCLoad    float64        `json:"dc_load"`
	Ceiling   numeric.Number `json:"buyer_ceiling"`
	Floor     numeric.Number `json:"respect_floor"`
	ARV       numeric.Number `json:"arv"`
}

// WholesaleFeeView computes ceiling minus floor, and the same net of the
// double-close load (closing load plus carry).
func WholesaleFeeView(ceiling, floor, arv numeric.Number, dcLoad float64) WholesaleFee {
	w := WholesaleFee{
		DCLoad:  numeric.Money(numeric.Safe(dcLoad)),
		Ceiling: ceiling,
		Floor:   floor,
		ARV:     arv,
	}
	c, okC := ceiling.Value()
	f, okF := floor.Value()
	if !okC || !okF {
		return w
	}
	fee := numeric.Money(c - f)
	w.Fee = numeric.Of(fee)
	w.FeeWithDC = numeric.Of(numeric.Money(fee - w.DCLoad))
	if a, ok := arv.Value(); ok && a != 0 {
		w.PctOfARV = numeric.Of(numeric.Round(fee/a, 4))
	}
	return w
}

// Temperature labels.
const (
	TempCool    = "cool"
	TempNeutral = "neutral"
	TempWarm    = "warm"
	TempHot     = "hot"
	TempUnknown = "unknown"
)

// MarketTemp is a 0..100 market tempo reading.
type MarketTemp struct {
	Score       int            `json:"score"`
	Label       string         `json:"label"`
	Reason      string         `json:"reason"`
	SpeedBand   string         `json:"speed_band,omitempty"`
	DaysToMoney numeric.Number `json:"days_to_money"`
}

// MarketTempView scores the speed band and nudges it by days to money.
func MarketTempView(speedBand string, daysToMoney numeric.Number) MarketTemp {
	t := MarketTemp{SpeedBand: speedBand, DaysToMoney: daysToMoney}
	dtm, hasDTM := daysToMoney.Value()
	if speedBand == "" && !hasDTM {
		t.Label = TempUnknown
		t.Reason = "Insufficient timeline data. Run analyze to surface speed band and days to money."
		return t
	}

	score := 50.0
	switch speedBand {
	case "slow":
		score = 30
	case "neutral", "balanced":
		score = 55
	case "fast":
		score = 80
	}
	if hasDTM {
		switch {
		case dtm > 120:
			score -= 15
		case dtm > 60:
			score -= 5
		case dtm < 30:
			score += 10
		}
	}

	switch {
	case score < 35:
		t.Label = TempCool
	case score < 55:
		t.Label = TempNeutral
	case score < 75:
		t.Label = TempWarm
	default:
		t.Label = TempHot
	}
	t.Score = int(numeric.Clamp(math.Round(score), 0, 100))

	p := message.NewPrinter(language.AmericanEnglish)
	var parts []string
	if speedBand != "" {
		parts = append(parts, p.Sprintf("Speed band %s.", speedBand))
	}
	if hasDTM {
		parts = append(parts, p.Sprintf("Days to money %d.", int(math.Round(dtm))))
	}
	t.Reason = strings.Join(parts, " ")
	return t
}
