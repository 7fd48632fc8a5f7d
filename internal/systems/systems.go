// Package systems scores the remaining useful life of major building systems.
package systems

import (
	"math"

	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/policy"
)

// System identifies a building system.
type System string

// Scored systems.
const (
	Roof        System = "roof"
	HVAC        System = "hvac"
	WaterHeater System = "water_heater"
)

// Condition is a remaining-life tier.
type Condition string

// Condition tiers.
const (
	ConditionGood     Condition = "good"
	ConditionFair     Condition = "fair"
	ConditionPoor     Condition = "poor"
	ConditionCritical Condition = "critical"
)

// Remaining-life percentage thresholds.
const (
	GoodAbovePct = 40
	FairAbovePct = 20
)

// Spec is the expected life and replacement cost of a system.
type Spec struct {
	Label           string
	ExpectedLife    int
	ReplacementCost float64
}

// DefaultSpecs returns the standard lifespans and replacement costs.
func DefaultSpecs() map[System]Spec {
	return map[System]Spec{
		Roof:        {Label: "Roof", ExpectedLife: 25, ReplacementCost: 15000},
		HVAC:        {Label: "HVAC", ExpectedLife: 15, ReplacementCost: 8000},
		WaterHeater: {Label: "Water Heater", ExpectedLife: 12, ReplacementCost: 1500},
	}
}

// SpecsFromPolicy overlays policy lifespans and costs on the defaults.
func SpecsFromPolicy(cfg policy.Config) map[System]Spec {
	specs := DefaultSpecs()
	overlay := func(s System, lifeKey, costKey string) {
		spec := specs[s]
		if v, ok := cfg.Float(lifeKey); ok && v > 0 {
			spec.ExpectedLife = int(math.Round(v))
		}
		if v, ok := cfg.Float(costKey); ok && v >= 0 {
			spec.ReplacementCost = v
		}
		specs[s] = spec
	}
	overlay(Roof, "systemsRoofExpectedLifeYears", "systemsRoofReplacementCost")
	overlay(HVAC, "systemsHvacExpectedLifeYears", "systemsHvacReplacementCost")
	overlay(WaterHeater, "systemsWaterHeaterExpectedLifeYears", "systemsWaterHeaterReplacementCost")
	return specs
}

// Score is one system's remaining life. Pointer fields are null when the
// install year is unknown.
type Score struct {
	System           System     `json:"system"`
	YearInstalled    *int       `json:"year_installed"`
	Age              *int       `json:"age"`
	RemainingYears   *int       `json:"remaining_years"`
	ExpectedLife     int        `json:"expected_life"`
	Condition        *Condition `json:"condition"`
	ReplacementCost  float64    `json:"replacement_cost"`
	NeedsReplacement bool       `json:"needs_replacement"`
}

// Status is the systems summary.
type Status struct {
	RoofRUL              *int     `json:"roof_rul"`
	HVACRUL              *int     `json:"hvac_rul"`
	WaterHeaterRUL       *int     `json:"water_heater_rul"`
	TotalReplacementCost float64  `json:"total_replacement_cost"`
	UrgentReplacements   []string `json:"urgent_replacements"`
	Scores               []Score  `json:"system_scores"`
}

// ScoreSystem computes age, remaining life and condition as of
// currentYear. Install years in the future count as age zero.
func ScoreSystem(s System, spec Spec, yearInstalled *float64, currentYear int) Score {
	out := Score{System: s, ExpectedLife: spec.ExpectedLife, ReplacementCost: spec.ReplacementCost}
	if yearInstalled == nil || math.IsNaN(*yearInstalled) || math.IsInf(*yearInstalled, 0) {
		return out
	}
	year := int(math.Floor(*yearInstalled))
	age := max(0, currentYear-year)
	remaining := max(0, spec.ExpectedLife-age)
	cond := conditionFor(remaining, spec.ExpectedLife)

	out.YearInstalled = &year
	out.Age = &age
	out.RemainingYears = &remaining
	out.Condition = &cond
	out.NeedsReplacement = remaining <= 0
	return out
}

func conditionFor(remaining, expected int) Condition {
	if remaining <= 0 || expected <= 0 {
		return ConditionCritical
	}
	pct := float64(remaining) / float64(expected) * 100
	switch {
	case pct > GoodAbovePct:
		return ConditionGood
	case pct > FairAbovePct:
		return ConditionFair
	default:
		return ConditionPoor
	}
}

// Compute scores roof, HVAC and water heater.
func Compute(info model.SystemsInfo, specs map[System]Spec, currentYear int) Status {
	roof := ScoreSystem(Roof, specs[Roof], info.RoofYearInstalled.Ptr(), currentYear)
	hvac := ScoreSystem(HVAC, specs[HVAC], info.HVACYearInstalled.Ptr(), currentYear)
	wh := ScoreSystem(WaterHeater, specs[WaterHeater], info.WaterHeaterYearInstalled.Ptr(), currentYear)

	st := Status{
		RoofRUL:            roof.RemainingYears,
		HVACRUL:            hvac.RemainingYears,
		WaterHeaterRUL:     wh.RemainingYears,
		UrgentReplacements: []string{},
		Scores:             []Score{roof, hvac, wh},
	}
	for _, sc := range st.Scores {
		if sc.NeedsReplacement {
			st.UrgentReplacements = append(st.UrgentReplacements, specs[sc.System].Label)
			st.TotalReplacementCost += sc.ReplacementCost
		}
	}
	return st
}
