// Package lien aggregates liens that survive a purchase and decides whether
// they block an offer.
package lien

import (
	"strings"

	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/numeric"
)

// Level is a lien risk level.
type Level string

// Lien risk levels.
const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Account statuses.
const (
	StatusCurrent       = "current"
	StatusDelinquent    = "delinquent"
	StatusUnknown       = "unknown"
	StatusNotApplicable = "not_applicable"
)

// Total thresholds. A total above BlockingThreshold triggers the blocking gate.
const (
	WarningThreshold  = 2500
	HighThreshold     = 5000
	BlockingThreshold = 10000
)

// JointLiabilityStatute is the association successor-liability statute.
const JointLiabilityStatute = "FL 720.3085"

// Breakdown is the surviving balance per category.
type Breakdown struct {
	HOA         float64 `json:"hoa"`
	CDD         float64 `json:"cdd"`
	PropertyTax float64 `json:"property_tax"`
	Municipal   float64 `json:"municipal"`
}

// Risk is the lien aggregation result.
type Risk struct {
	TotalSurviving         float64   `json:"total_surviving_liens"`
	Level                  Level     `json:"risk_level"`
	JointLiabilityWarning  bool      `json:"joint_liability_warning"`
	JointLiabilityStatute  string    `json:"joint_liability_statute,omitempty"`
	BlockingGateTriggered  bool      `json:"blocking_gate_triggered"`
	NetClearanceAdjustment float64   `json:"net_clearance_adjustment"`
	EvidenceNeeded         []string  `json:"evidence_needed"`
	Breakdown              Breakdown `json:"breakdown"`
}

// Compute sums the four categories and derives level, gate and evidence.
// Negative and missing balances count as zero.
func Compute(l model.LienDetails) Risk {
	b := Breakdown{
		HOA:         numeric.Money(numeric.SafeNonNeg(l.HOABalance.Float())),
		CDD:         numeric.Money(numeric.SafeNonNeg(l.CDDBalance.Float())),
		PropertyTax: numeric.Money(numeric.SafeNonNeg(l.PropertyTaxBalance.Float())),
		Municipal:   numeric.Money(numeric.SafeNonNeg(l.MunicipalLienAmount.Float())),
	}
	total := numeric.Money(b.HOA + b.CDD + b.PropertyTax + b.Municipal)

	r := Risk{
		TotalSurviving:        total,
		Level:                 LevelFor(total),
		BlockingGateTriggered: total > BlockingThreshold,
		EvidenceNeeded:        evidenceNeeded(l),
		Breakdown:             b,
	}
	if total > 0 {
		r.NetClearanceAdjustment = -total
	}
	if b.HOA > 0 || b.CDD > 0 {
		r.JointLiabilityWarning = true
		r.JointLiabilityStatute = JointLiabilityStatute
	}
	return r
}

// LevelFor bands a lien total.
func LevelFor(total float64) Level {
	switch {
	case total > BlockingThreshold:
		return LevelCritical
	case total > HighThreshold:
		return LevelHigh
	case total > WarningThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

func evidenceNeeded(l model.LienDetails) []string {
	needed := []string{}
	if !l.TitleSearchCompleted {
		needed = append(needed, "Title search")
	}
	if isUnknown(l.HOAStatus) {
		needed = append(needed, "HOA status verification")
	}
	if isUnknown(l.CDDStatus) {
		needed = append(needed, "CDD status verification")
	}
	if isUnknown(l.PropertyTaxStatus) {
		needed = append(needed, "Property tax status verification")
	}
	if l.MunicipalLiensPresent && !l.MunicipalLienAmount.Valid() {
		needed = append(needed, "Municipal lien amount verification")
	}
	return needed
}

func isUnknown(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), StatusUnknown)
}
