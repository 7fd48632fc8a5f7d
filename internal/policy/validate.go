package policy

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/underwrite-cli/internal/formula"
)

var percentKeys = []string{
	"aivSafetyCapPercentage",
	"floorInvestorAivDiscountP20Zip",
	"floorInvestorAivDiscountTypicalZip",
	"floorPayoffMinRetainedEquityPercentage",
	"repairsContingencyBidsMissing",
	"buyerTargetMarginFlipBaselinePolicy",
	"doubleCloseFundingPointsPercentage",
	"firptaWithholdingPercentage",
}

var nonNegativeKeys = []string{
	"carryMonthsMaximumCap",
	"floorPayoffMoveOutCashDefault",
	"floorPayoffMoveOutCashMin",
	"floorPayoffMoveOutCashMax",
	"assignmentFeeTarget",
	"doubleCloseMinSpreadThreshold",
	"hoaEstoppelFeeCapPolicy",
	"hoaRushTransferFeePolicy",
	"deedDocumentaryStampRatePolicy",
	"initialOfferSpreadMultiplier",
	"systemsRoofExpectedLifeYears",
	"systemsRoofReplacementCost",
	"systemsHvacExpectedLifeYears",
	"systemsHvacReplacementCost",
	"systemsWaterHeaterExpectedLifeYears",
	"systemsWaterHeaterReplacementCost",
}

var formulaKeys = []string{
	"buyerCeilingFormulaDefinition",
	"carryMonthsFormulaDefinition",
}

// Validate checks an effective configuration and reports every problem at
// once. Missing keys are not errors; Derive falls back for them.
func Validate(cfg Config) error {
	var errs []string

	check := func(key string, each func(v float64) string) {
		raw, present := cfg[key]
		if !present || raw == nil {
			return
		}
		v, ok := cfg.Float(key)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s must be numeric", key))
			return
		}
		if msg := each(v); msg != "" {
			errs = append(errs, msg)
		}
	}

	for _, key := range percentKeys {
		check(key, func(v float64) string {
			if v < 0 || v > 100 {
				return fmt.Sprintf("%s must be between 0 and 100, got %g", key, v)
			}
			return ""
		})
	}
	for _, key := range nonNegativeKeys {
		check(key, func(v float64) string {
			if v < 0 {
				return fmt.Sprintf("%s must be non-negative, got %g", key, v)
			}
			return ""
		})
	}
	check("initialOfferSpreadMultiplier", func(v float64) string {
		if v > 1 {
			return fmt.Sprintf("initialOfferSpreadMultiplier must be at most 1, got %g", v)
		}
		return ""
	})

	lo, hasLo := cfg.Float("floorPayoffMoveOutCashMin")
	hi, hasHi := cfg.Float("floorPayoffMoveOutCashMax")
	if hasLo && hasHi && lo > hi {
		errs = append(errs, fmt.Sprintf("floorPayoffMoveOutCashMin (%g) exceeds floorPayoffMoveOutCashMax (%g)", lo, hi))
	}

	for _, key := range formulaKeys {
		raw, present := cfg[key]
		if !present {
			continue
		}
		s, ok := raw.(string)
		if !ok || strings.TrimSpace(s) == "" {
			errs = append(errs, fmt.Sprintf("%s must be a non-empty formula", key))
			continue
		}
		if _, err := formula.Parse(s); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}

	errs = append(errs, checkAscending(cfg.Rows("minSpreadByArvBand"), "minSpreadByArvBand", "maxArv")...)
	errs = append(errs, checkAscending(cfg.Rows("dispositionRecommendationLogicDtmThresholds"), "dispositionRecommendationLogicDtmThresholds", "maxDtm")...)

	for _, row := range cfg.Rows("repairsContingencyPercentageByClass") {
		if v, ok := rowFloat(row, "contingency"); ok && (v < 0 || v > 100) {
			errs = append(errs, fmt.Sprintf("repairsContingencyPercentageByClass %s contingency must be between 0 and 100, got %g", rowString(row, "repairClass"), v))
		}
	}

	if raw, ok := cfg[PostureConfigsKey]; ok && raw != nil {
		all, isMap := asMap(raw)
		if !isMap {
			errs = append(errs, "postureConfigs must be a mapping")
		} else {
			for name := range all {
				if _, err := ParsePosture(name); err != nil {
					errs = append(errs, fmt.Sprintf("postureConfigs: unknown posture %q", name))
				}
			}
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("policy: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func checkAscending(rows []map[string]any, table, key string) []string {
	var errs []string
	prev := -1.0
	for i, row := range rows {
		v, ok := rowFloat(row, key)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s row %d: %s must be numeric", table, i+1, key))
			continue
		}
		if v <= prev {
			errs = append(errs, fmt.Sprintf("%s row %d: %s must be ascending", table, i+1, key))
		}
		prev = v
	}
	return errs
}
