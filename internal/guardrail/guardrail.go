// Package guardrail classifies whether an offer sits safely inside its
// floor and ceiling, and derives the risk posture, health label, workflow
// state and confidence grade shown next to it.
package guardrail

import (
	"github.com/sells-group/underwrite-cli/internal/numeric"
)

// Status is the guardrail classification of an offer.
type Status string

// Guardrail statuses.
const (
	StatusUnknown Status = "unknown"
	StatusBroken  Status = "broken"
	StatusTight   Status = "tight"
	StatusOK      Status = "ok"
)

// TightTolerance is the dollar gap between offer and either bound under
// which the offer is presented as tight.
const TightTolerance = 1000.0

// TightBandFactor marks spreads within 5% above the minimum as tight.
const TightBandFactor = 1.05

// Classify derives the guardrail status. With every value absent the
// status is unknown; otherwise exactly one of broken, tight or ok. Only
// the offer's position against the bounds can break the band.
func Classify(offer, floor, ceiling numeric.Number) Status {
	o, hasOffer := offer.Value()
	f, hasFloor := floor.Value()
	c, hasCeiling := ceiling.Value()

	if !hasOffer && !hasFloor && !hasCeiling {
		return StatusUnknown
	}
	if hasOffer && ((hasFloor && o < f) || (hasCeiling && o > c)) {
		return StatusBroken
	}
	if hasOffer && ((hasFloor && o-f <= TightTolerance) || (hasCeiling && c-o <= TightTolerance)) {
		return StatusTight
	}
	return StatusOK
}

// BestOffer returns the first known of the candidate offers, in order of
// preference.
func BestOffer(candidates ...numeric.Number) numeric.Number {
	for _, c := range candidates {
		if c.Valid() {
			return c
		}
	}
	return numeric.Null()
}

// Risk is the spread-based risk posture.
type Risk string

// Risk postures.
const (
	RiskPass    Risk = "pass"
	RiskWatch   Risk = "watch"
	RiskFail    Risk = "fail"
	RiskUnknown Risk = "unknown"
)

// RiskPosture bands a spread against the minimum: at or above the minimum
// passes, [0, min) is watched, negative fails.
func RiskPosture(spread, minSpread numeric.Number) Risk {
	s, ok := spread.Value()
	m, okMin := minSpread.Value()
	if !ok || !okMin {
		return RiskUnknown
	}
	switch {
	case s >= m:
		return RiskPass
	case s >= 0:
		return RiskWatch
	default:
		return RiskFail
	}
}

// Color is a health label color.
type Color string

// Health colors.
const (
	ColorGreen  Color = "green"
	ColorOrange Color = "orange"
	ColorRed    Color = "red"
	ColorBlue   Color = "blue"
)

// Health is the deal health label.
type Health struct {
	Label string `json:"label"`
	Color Color  `json:"color"`
}

// HealthLabel compares the deal spread with the minimum spread.
func HealthLabel(spread, minSpread numeric.Number) Health {
	s, ok := spread.Value()
	m, okMin := minSpread.Value()
	switch {
	case !ok || !okMin:
		return Health{Label: "Unknown", Color: ColorBlue}
	case s < m:
		return Health{Label: "Below policy", Color: ColorRed}
	case s < m*TightBandFactor:
		return Health{Label: "Tight", Color: ColorOrange}
	default:
		return Health{Label: "Pass", Color: ColorGreen}
	}
}

// Workflow is the publishing workflow state.
type Workflow string

// Workflow states.
const (
	WorkflowNeedsRun    Workflow = "needs_run"
	WorkflowNeedsReview Workflow = "needs_review"
	WorkflowReadyDraft  Workflow = "ready_draft"
)

// WorkflowState requires a prior computation and all three of offer, floor
// and ceiling before a draft is ready.
func WorkflowState(hasRun bool, offer, floor, ceiling numeric.Number) Workflow {
	switch {
	case !hasRun:
		return WorkflowNeedsRun
	case !offer.Valid() || !floor.Valid() || !ceiling.Valid():
		return WorkflowNeedsReview
	default:
		return WorkflowReadyDraft
	}
}

// Confidence grades.
const (
	GradeB = "B"
	GradeC = "C"
)

// ConfidenceGrade is B unless there is no prior computation or a bound is
// missing.
func ConfidenceGrade(hasRun bool, floor, ceiling numeric.Number) string {
	if !hasRun || !floor.Valid() || !ceiling.Valid() {
		return GradeC
	}
	return GradeB
}
