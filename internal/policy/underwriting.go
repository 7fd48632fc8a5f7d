package policy

import (
	"sort"
	"strings"
)

// Speed band derivation methods.
const (
	SpeedMethodConservative = "Use Most Conservative (Slowest)"
	SpeedMethodAggressive   = "Use Most Aggressive (Fastest)"
	SpeedMethodBlended      = "Use Blended Average"
)

// Respect floor component selectors.
const (
	SelectorMax          = "Max(Payoff Floor, Investor Floor)"
	SelectorInvestorOnly = "Investor Floor Only"
	SelectorPayoffOnly   = "Payoff Floor Only"
)

// Default formula templates.
const (
	DefaultBuyerCeilingFormula = "({ARV} * (1 - {MARGIN})) - {REPAIRS} - {COSTS}"
	DefaultCarryMonthsFormula  = "(({DOM_zip} * 1.5) + 30) / 30"
)

// Underwriting is the typed view of an effective configuration that the
// calculators consume. Every percentage is a fraction (0..1).
type Underwriting struct {
	Posture Posture `json:"posture"`

	AIVSafetyCapPct     float64 `json:"aiv_safety_cap_pct"`
	BuyerCeilingFormula string  `json:"buyer_ceiling_formula"`

	SpeedBands SpeedBands `json:"speed_bands"`

	InvestorDiscountP20     float64 `json:"investor_discount_p20"`
	InvestorDiscountTypical float64 `json:"investor_discount_typical"`
	RetainedEquityPct       float64 `json:"retained_equity_pct"`
	MoveOutCashDefault      float64 `json:"move_out_cash_default"`
	MoveOutCashMin          float64 `json:"move_out_cash_min"`
	MoveOutCashMax          float64 `json:"move_out_cash_max"`
	RespectFloorComposition bool    `json:"respect_floor_composition"`
	RespectFloorSelector    string  `json:"respect_floor_selector"`

	DefaultRepairClass     string             `json:"default_repair_class"`
	ContingencyByClass     map[string]float64 `json:"contingency_by_class"`
	ContingencyBidsMissing float64            `json:"contingency_bids_missing"`
	MakeReadyByClass       map[string]float64 `json:"make_ready_by_class"`

	CarryMonthsFormula string          `json:"carry_months_formula"`
	CarryMonthsCap     float64         `json:"carry_months_cap"`
	HoldingDefaults    HoldingDefaults `json:"holding_defaults"`
	TenantBufferMonths float64         `json:"tenant_buffer_months"`

	ListingCosts []LineItem `json:"listing_costs"`

	FlipMargin                   float64         `json:"flip_margin"`
	InitialOfferSpreadMultiplier float64         `json:"initial_offer_spread_multiplier"`
	AssignmentFeeTarget          float64         `json:"assignment_fee_target"`
	MinSpreadBands               []MinSpreadBand `json:"min_spread_bands"`
	CashGateMinOverPayoff        float64         `json:"cash_gate_min_over_payoff"`
	BorderlineBand               float64         `json:"borderline_band"`

	DefaultDaysToClose float64            `json:"default_days_to_close"`
	DaysToMoneyMax     float64            `json:"days_to_money_max"`
	UrgentCashMaxDTM   float64            `json:"urgent_cash_max_dtm"`
	OfferValidityDays  float64            `json:"offer_validity_days"`
	DTMThresholds      []UrgencyThreshold `json:"dtm_thresholds"`
	DoubleClose        DoubleClosePolicy  `json:"double_close"`
	Gates              Gates              `json:"gates"`
}

// SpeedBands holds market-speed thresholds.
type SpeedBands struct {
	FastMaxDOM     float64 `json:"fast_max_dom"`
	FastMaxMOI     float64 `json:"fast_max_moi"`
	BalancedMaxDOM float64 `json:"balanced_max_dom"`
	BalancedMaxMOI float64 `json:"balanced_max_moi"`
	Method         string  `json:"method"`
}

// HoldingDefaults are monthly holding costs used when a deal leaves them blank.
type HoldingDefaults struct {
	Taxes     float64 `json:"taxes"`
	Insurance float64 `json:"insurance"`
	HOA       float64 `json:"hoa"`
	Utilities float64 `json:"utilities"`
}

// LineItem is one seller-side resale cost, a fraction of ARV plus a fixed amount.
type LineItem struct {
	Name  string  `json:"name"`
	Pct   float64 `json:"pct"`
	Fixed float64 `json:"fixed"`
}

// MinSpreadBand is one row of the minimum-spread ladder.
type MinSpreadBand struct {
	Name      string  `json:"name"`
	MaxARV    float64 `json:"max_arv"`
	MinSpread float64 `json:"min_spread"`
	Pct       float64 `json:"pct"`
}

// UrgencyThreshold labels deals whose days-to-money is at most MaxDTM.
type UrgencyThreshold struct {
	Label  string  `json:"label"`
	MaxDTM float64 `json:"max_dtm"`
}

// DoubleClosePolicy holds double-close thresholds.
type DoubleClosePolicy struct {
	MinSpreadThreshold float64 `json:"min_spread_threshold"`
	FundingPointsRate  float64 `json:"funding_points_rate"`
	DeedStampRate      float64 `json:"deed_stamp_rate"`
	HOAEstoppelCap     float64 `json:"hoa_estoppel_cap"`
	HOARushFee         float64 `json:"hoa_rush_fee"`
}

// Gates toggles compliance checks.
type Gates struct {
	BankruptcyStay  bool    `json:"bankruptcy_stay"`
	FHA90Day        bool    `json:"fha_90_day"`
	FIRPTA          bool    `json:"firpta"`
	FIRPTARate      float64 `json:"firpta_rate"`
	Flood50         bool    `json:"flood_50"`
	PACE            bool    `json:"pace"`
	SIRS            bool    `json:"sirs"`
	Homestead       bool    `json:"homestead"`
	Uninsurable     bool    `json:"uninsurable"`
	ForeclosureSale bool    `json:"foreclosure_sale"`
	Redemption      bool    `json:"redemption"`
}

// Derive builds the typed view from an effective configuration, converting
// 0..100 percentages into fractions and applying fallbacks for missing or
// malformed values.
func Derive(cfg Config, posture Posture) Underwriting {
	pct := func(key string, fallback float64) float64 {
		return cfg.FloatOr(key, fallback) / 100
	}

	u := Underwriting{
		Posture:             posture,
		AIVSafetyCapPct:     pct("aivSafetyCapPercentage", 3),
		BuyerCeilingFormula: cfg.StringOr("buyerCeilingFormulaDefinition", DefaultBuyerCeilingFormula),
		SpeedBands: SpeedBands{
			FastMaxDOM:     cfg.FloatOr("speedBandsFastMaxDom", 30),
			FastMaxMOI:     cfg.FloatOr("speedBandsFastMaxMoi", 1.5),
			BalancedMaxDOM: cfg.FloatOr("speedBandsBalancedMaxDom", 60),
			BalancedMaxMOI: cfg.FloatOr("speedBandsBalancedMaxMoi", 3),
			Method:         cfg.StringOr("zipSpeedBandDerivationMethod", SpeedMethodConservative),
		},
		InvestorDiscountP20:     pct("floorInvestorAivDiscountP20Zip", 25),
		InvestorDiscountTypical: pct("floorInvestorAivDiscountTypicalZip", 15),
		RetainedEquityPct:       pct("floorPayoffMinRetainedEquityPercentage", 0),
		MoveOutCashDefault:      cfg.FloatOr("floorPayoffMoveOutCashDefault", 0),
		MoveOutCashMin:          cfg.FloatOr("floorPayoffMoveOutCashMin", 0),
		MoveOutCashMax:          cfg.FloatOr("floorPayoffMoveOutCashMax", 5000),
		RespectFloorComposition: cfg.BoolOr("respectFloorCompositionInvestorFloorVsPayoff", true),
		RespectFloorSelector:    cfg.StringOr("respectFloorFormulaComponentSelector", SelectorMax),

		DefaultRepairClass:     NormalizeRepairClass(cfg.StringOr("repairsDefaultClass", "Medium")),
		ContingencyByClass:     classTable(cfg.Rows("repairsContingencyPercentageByClass"), "contingency", 100),
		ContingencyBidsMissing: pct("repairsContingencyBidsMissing", 10),
		MakeReadyByClass:       classTable(cfg.Rows("retailMakeReadyPerRepairClass"), "makeReadyCost", 1),

		CarryMonthsFormula: cfg.StringOr("carryMonthsFormulaDefinition", DefaultCarryMonthsFormula),
		CarryMonthsCap:     cfg.FloatOr("carryMonthsMaximumCap", 12),
		HoldingDefaults: HoldingDefaults{
			Taxes:     cfg.FloatOr("holdingCostsMonthlyDefaultTaxes", 400),
			Insurance: cfg.FloatOr("holdingCostsMonthlyDefaultInsurance", 150),
			HOA:       cfg.FloatOr("holdingCostsMonthlyDefaultHoa", 50),
			Utilities: cfg.FloatOr("holdingCostsMonthlyDefaultUtilities", 200),
		},
		TenantBufferMonths: cfg.FloatOr("tenantOccupiedBufferCarryMonths", 1),

		ListingCosts: listingCosts(cfg.Rows("listingCostModelSellerCostLineItems")),

		FlipMargin:                   pct("buyerTargetMarginFlipBaselinePolicy", 15),
		InitialOfferSpreadMultiplier: cfg.FloatOr("initialOfferSpreadMultiplier", 0.5),
		AssignmentFeeTarget:          cfg.FloatOr("assignmentFeeTarget", 15000),
		MinSpreadBands:               minSpreadBands(cfg.Rows("minSpreadByArvBand")),
		CashGateMinOverPayoff:        cfg.FloatOr("cashPresentationGateMinimumSpreadOverPayoff", 5000),
		BorderlineBand:               cfg.FloatOr("analystReviewTriggerBorderlineBandThreshold", 2500),

		DefaultDaysToClose: cfg.FloatOr("defaultDaysToCashClose", 21),
		DaysToMoneyMax:     cfg.FloatOr("daysToMoneyMaxDays", 120),
		UrgentCashMaxDTM:   cfg.FloatOr("dispositionRecommendationUrgentCashMaxDtm", 21),
		OfferValidityDays:  cfg.FloatOr("offerValidityPeriodDaysPolicy", 3),
		DTMThresholds:      dtmThresholds(cfg.Rows("dispositionRecommendationLogicDtmThresholds")),
		DoubleClose: DoubleClosePolicy{
			MinSpreadThreshold: cfg.FloatOr("doubleCloseMinSpreadThreshold", 20000),
			FundingPointsRate:  pct("doubleCloseFundingPointsPercentage", 2),
			DeedStampRate:      cfg.FloatOr("deedDocumentaryStampRatePolicy", 0.007),
			HOAEstoppelCap:     cfg.FloatOr("hoaEstoppelFeeCapPolicy", 350),
			HOARushFee:         cfg.FloatOr("hoaRushTransferFeePolicy", 150),
		},
		Gates: Gates{
			BankruptcyStay:  cfg.BoolOr("bankruptcyStayGateLegalBlock", true),
			FHA90Day:        cfg.BoolOr("fha90DayResaleRuleGate", true),
			FIRPTA:          cfg.BoolOr("firptaWithholdingGate", true),
			FIRPTARate:      pct("firptaWithholdingPercentage", 15),
			Flood50:         cfg.BoolOr("flood50RuleGate", true),
			PACE:            cfg.BoolOr("paceAssessmentGate", true),
			SIRS:            cfg.BoolOr("sirsCondoGate", true),
			Homestead:       cfg.BoolOr("homesteadGate", true),
			Uninsurable:     cfg.BoolOr("uninsurableGate", true),
			ForeclosureSale: cfg.BoolOr("foreclosureSaleGate", true),
			Redemption:      cfg.BoolOr("redemptionPeriodGate", true),
		},
	}

	if len(u.ContingencyByClass) == 0 {
		u.ContingencyByClass = map[string]float64{"light": 0.10, "medium": 0.15, "heavy": 0.20, "structural": 0.25}
	}
	return u
}

// For resolves cfg for posture and derives the typed view in one step.
func For(defaults, overrides Config, posture Posture) Underwriting {
	return Derive(Resolve(defaults, overrides, posture), posture)
}

// NormalizeRepairClass lowercases a repair class label. Unknown labels
// pass through lowercased.
func NormalizeRepairClass(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func classTable(rows []map[string]any, valueKey string, divisor float64) map[string]float64 {
	out := make(map[string]float64, len(rows))
	for _, row := range rows {
		class := NormalizeRepairClass(rowString(row, "repairClass"))
		v, ok := rowFloat(row, valueKey)
		if class == "" || !ok {
			continue
		}
		out[class] = v / divisor
	}
	return out
}

func listingCosts(rows []map[string]any) []LineItem {
	if rows == nil {
		return []LineItem{
			{Name: "Commissions", Pct: 0.06},
			{Name: "Seller Concessions", Pct: 0.02},
			{Name: "Title & Stamps", Pct: 0.015},
		}
	}
	items := make([]LineItem, 0, len(rows))
	for _, row := range rows {
		p, _ := rowFloat(row, "defaultPct")
		f, _ := rowFloat(row, "defaultFixed")
		items = append(items, LineItem{Name: rowString(row, "item"), Pct: p / 100, Fixed: f})
	}
	return items
}

func minSpreadBands(rows []map[string]any) []MinSpreadBand {
	bands := make([]MinSpreadBand, 0, len(rows))
	for _, row := range rows {
		maxARV, ok := rowFloat(row, "maxArv")
		if !ok {
			continue
		}
		minSpread, _ := rowFloat(row, "minSpread")
		p, _ := rowFloat(row, "minSpreadPct")
		bands = append(bands, MinSpreadBand{Name: rowString(row, "bandName"), MaxARV: maxARV, MinSpread: minSpread, Pct: p / 100})
	}
	sort.SliceStable(bands, func(i, j int) bool { return bands[i].MaxARV < bands[j].MaxARV })
	return bands
}

func dtmThresholds(rows []map[string]any) []UrgencyThreshold {
	out := make([]UrgencyThreshold, 0, len(rows))
	for _, row := range rows {
		maxDTM, ok := rowFloat(row, "maxDtm")
		if !ok {
			continue
		}
		out = append(out, UrgencyThreshold{Label: rowString(row, "label"), MaxDTM: maxDTM})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MaxDTM < out[j].MaxDTM })
	return out
}
