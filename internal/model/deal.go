package model

import (
	"github.com/sells-group/underwrite-cli/internal/numeric"
)

// Deal is the underwriting subject. Every numeric leaf is a numeric.Number
// so partially filled forms decode without error; calculators coerce.
// Deal-level percentages (commission, concessions, contingency, safety cap)
// are fractions.
type Deal struct {
	Market      Market             `json:"market"`
	Costs       Costs              `json:"costs"`
	Debt        Debt               `json:"debt"`
	Property    Property           `json:"property"`
	Status      Status             `json:"status"`
	Confidence  Confidence         `json:"confidence"`
	Title       Title              `json:"title"`
	Policy      DealPolicy         `json:"policy"`
	Timeline    Timeline           `json:"timeline"`
	Legal       Legal              `json:"legal"`
	Foreclosure ForeclosureDetails `json:"foreclosure"`
	Seller      SellerSituation    `json:"seller"`
	Liens       LienDetails        `json:"liens"`
	Systems     SystemsInfo        `json:"systems"`
}

// Market holds resolved market inputs.
type Market struct {
	ARV                numeric.Number `json:"arv"`
	AsIsValue          numeric.Number `json:"as_is_value"`
	DOMZip             numeric.Number `json:"dom_zip"`
	MOIZip             numeric.Number `json:"moi_zip"`
	PriceToListPct     numeric.Number `json:"price_to_list_pct"`
	LocalDiscountPct   numeric.Number `json:"local_discount_pct"`
	ZipPricePercentile numeric.Number `json:"zip_price_percentile"`
}

// Costs holds repair, holding and resale cost inputs.
type Costs struct {
	RepairsBase       numeric.Number    `json:"repairs_base"`
	RepairClass       string            `json:"repair_class,omitempty"`
	RepairBidsPresent *bool             `json:"repair_bids_present,omitempty"`
	ContingencyPct    numeric.Number    `json:"contingency_pct"`
	Monthly           MonthlyCosts      `json:"monthly"`
	SellClosePct      numeric.Number    `json:"sell_close_pct"`
	ConcessionsPct    numeric.Number    `json:"concessions_pct"`
	ListCommissionPct numeric.Number    `json:"list_commission_pct"`
	DoubleClose       DoubleCloseRecord `json:"double_close"`
}

// MonthlyCosts is the monthly holding cost breakdown. Taxes and insurance
// are annual figures when DealPolicy.CostsAreAnnual is set.
type MonthlyCosts struct {
	Taxes     numeric.Number `json:"taxes"`
	Insurance numeric.Number `json:"insurance"`
	HOA       numeric.Number `json:"hoa"`
	Utilities numeric.Number `json:"utilities"`
	Interest  numeric.Number `json:"interest"`
}

// Debt holds the lien stack.
type Debt struct {
	SeniorPrincipal    numeric.Number `json:"senior_principal"`
	SeniorPerDiem      numeric.Number `json:"senior_per_diem"`
	GoodThruDate       string         `json:"good_thru_date,omitempty"`
	ProtectiveAdvances numeric.Number `json:"protective_advances"`
	HOAEstoppelFee     numeric.Number `json:"hoa_estoppel_fee"`
	Juniors            []JuniorLien   `json:"juniors,omitempty"`
}

// JuniorLien is one subordinate lien, in recording order.
type JuniorLien struct {
	Label  string         `json:"label,omitempty"`
	Amount numeric.Number `json:"amount"`
}

// Property holds the subject property facts.
type Property struct {
	Address           string         `json:"address,omitempty"`
	County            string         `json:"county,omitempty"`
	State             string         `json:"state,omitempty"`
	PropertyType      string         `json:"property_type,omitempty"`
	Occupancy         string         `json:"occupancy,omitempty"`
	YearBuilt         numeric.Number `json:"year_built"`
	DaysSinceAcquired numeric.Number `json:"days_since_acquired"`
	FloodZone         bool           `json:"flood_zone,omitempty"`
	IsCoastal         bool           `json:"is_coastal,omitempty"`
	IsHomestead       bool           `json:"is_homestead,omitempty"`
	IsForeclosureSale bool           `json:"is_foreclosure_sale,omitempty"`
	IsCondo           bool           `json:"is_condo,omitempty"`
	SIRSPending       bool           `json:"sirs_pending,omitempty"`
	PACEAssessment    bool           `json:"pace_assessment,omitempty"`
	ForeignSeller     bool           `json:"foreign_seller,omitempty"`
}

// Status holds insurability and condition flags.
type Status struct {
	Insurability       string `json:"insurability,omitempty"`
	StructuralFailure  bool   `json:"structural_failure,omitempty"`
	MajorSystemFailure bool   `json:"major_system_failure,omitempty"`
}

// Confidence holds evidence quality flags.
type Confidence struct {
	Grade              string `json:"grade,omitempty"`
	NoAccess           bool   `json:"no_access,omitempty"`
	ReinstatementProof bool   `json:"reinstatement_proof,omitempty"`
}

// Title holds title cure inputs.
type Title struct {
	CureCost numeric.Number `json:"cure_cost"`
	RiskPct  numeric.Number `json:"risk_pct"`
}

// DealPolicy holds per-deal overrides of the resolved policy.
type DealPolicy struct {
	MinSpread         numeric.Number `json:"min_spread"`
	SafetyCapPct      numeric.Number `json:"safety_cap_pct"`
	PlannedCloseDays  numeric.Number `json:"planned_close_days"`
	ManualDaysToMoney numeric.Number `json:"manual_days_to_money"`
	CostsAreAnnual    bool           `json:"costs_are_annual,omitempty"`
}

// Timeline holds sale dates.
type Timeline struct {
	AuctionDate string `json:"auction_date,omitempty"`
}

// Legal holds court and bankruptcy facts.
type Legal struct {
	CaseNumber     string `json:"case_number,omitempty"`
	BankruptcyStay bool   `json:"bankruptcy_stay,omitempty"`
}

// ForeclosureDetails is the progressive-disclosure foreclosure record.
// Dates are ISO calendar dates (YYYY-MM-DD); empty means unset.
type ForeclosureDetails struct {
	Status                 string         `json:"foreclosure_status,omitempty"`
	DaysDelinquent         numeric.Number `json:"days_delinquent"`
	FirstMissedPaymentDate string         `json:"first_missed_payment_date,omitempty"`
	LisPendensDate         string         `json:"lis_pendens_date,omitempty"`
	JudgmentDate           string         `json:"judgment_date,omitempty"`
	AuctionDate            string         `json:"auction_date,omitempty"`
}

// SellerSituation holds motivation inputs.
type SellerSituation struct {
	ReasonForSelling    string `json:"reason_for_selling,omitempty"`
	Timeline            string `json:"seller_timeline,omitempty"`
	DecisionMakerStatus string `json:"decision_maker_status,omitempty"`
	MortgageDelinquent  *bool  `json:"mortgage_delinquent,omitempty"`
}

// LienDetails holds surviving lien balances by category.
type LienDetails struct {
	TitleSearchCompleted  bool           `json:"title_search_completed,omitempty"`
	HOAStatus             string         `json:"hoa_status,omitempty"`
	HOABalance            numeric.Number `json:"hoa_balance"`
	CDDStatus             string         `json:"cdd_status,omitempty"`
	CDDBalance            numeric.Number `json:"cdd_balance"`
	PropertyTaxStatus     string         `json:"property_tax_status,omitempty"`
	PropertyTaxBalance    numeric.Number `json:"property_tax_balance"`
	MunicipalLiensPresent bool           `json:"municipal_liens_present,omitempty"`
	MunicipalLienAmount   numeric.Number `json:"municipal_lien_amount"`
}

// SystemsInfo holds install years of major building systems.
type SystemsInfo struct {
	RoofYearInstalled        numeric.Number `json:"roof_year_installed"`
	HVACYearInstalled        numeric.Number `json:"hvac_year_installed"`
	WaterHeaterYearInstalled numeric.Number `json:"water_heater_year_installed"`
}

// Clone returns a deep copy of d. Mutating the copy never affects d.
func (d Deal) Clone() Deal {
	out := d
	out.Costs.RepairBidsPresent = cloneBool(d.Costs.RepairBidsPresent)
	out.Costs.DoubleClose = d.Costs.DoubleClose.Clone()
	out.Seller.MortgageDelinquent = cloneBool(d.Seller.MortgageDelinquent)
	if d.Debt.Juniors != nil {
		out.Debt.Juniors = make([]JuniorLien, len(d.Debt.Juniors))
		copy(out.Debt.Juniors, d.Debt.Juniors)
	}
	return out
}

// HasCoreInput reports whether any of ARV, as-is value or senior principal
// was supplied.
func (d Deal) HasCoreInput() bool {
	return d.Market.ARV.Valid() || d.Market.AsIsValue.Valid() || d.Debt.SeniorPrincipal.Valid()
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
