package engine

import (
	"math"
	"strings"

	"github.com/sells-group/underwrite-cli/internal/foreclosure"
	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/numeric"
	"github.com/sells-group/underwrite-cli/internal/policy"
)

// Severity separates hard stops from advisory notices.
type Severity string

// Flag severities.
const (
	SeverityBlocking Severity = "blocking"
	SeverityAdvisory Severity = "advisory"
)

// Compliance flag codes.
const (
	FlagBankruptcyStay   = "bankruptcy_stay"
	FlagUninsurable      = "uninsurable"
	FlagLienBlocking     = "lien_blocking_gate"
	FlagFIRPTA           = "firpta"
	FlagPACE             = "pace"
	FlagSIRS             = "sirs"
	FlagFlood50          = "flood_50"
	FlagHomestead        = "homestead"
	FlagForeclosureSale  = "foreclosure_sale"
	FlagRedemption       = "redemption_period"
	FlagFHA90Day         = "fha_90_day"
	FlagCashPresentation = "cash_presentation_gate"
	FlagBorderline       = "analyst_review"
	FlagDTMExceedsMax    = "days_to_money_exceeds_max"
	FlagDCMinSpread      = "double_close_min_spread"
	FlagAssignmentTarget = "assignment_fee_below_target"
)

// FHAResaleDays is the FHA anti-flipping seasoning window.
const FHAResaleDays = 90

// Flag is one compliance or policy-gate outcome.
type Flag struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Statute  string   `json:"statute,omitempty"`
}

// complianceFlags evaluates every gate whose policy toggle is on.
func complianceFlags(d model.Deal, u policy.Underwriting, o *Outputs) []Flag {
	g := u.Gates
	c := o.Calculations
	flags := []Flag{}
	add := func(code string, sev Severity, statute, format string, args ...any) {
		flags = append(flags, Flag{Code: code, Severity: sev, Statute: statute, Message: printer.Sprintf(format, args...)})
	}

	if g.BankruptcyStay && d.Legal.BankruptcyStay {
		add(FlagBankruptcyStay, SeverityBlocking, "11 U.S.C. 362", "Automatic stay in effect; no offer may be published")
	}
	if g.Uninsurable && strings.EqualFold(strings.TrimSpace(d.Status.Insurability), "uninsurable") {
		add(FlagUninsurable, SeverityBlocking, "", "Property is uninsurable")
	}
	if o.LienRisk.BlockingGateTriggered {
		add(FlagLienBlocking, SeverityBlocking, "", "Surviving liens $%.2f exceed the blocking threshold", o.LienRisk.TotalSurviving)
	}
	if g.FIRPTA && d.Property.ForeignSeller {
		if offer, ok := c.InstantCashOffer.Value(); ok {
			add(FlagFIRPTA, SeverityAdvisory, "26 U.S.C. 1445", "FIRPTA withholding of $%.2f applies", numeric.Money(offer*g.FIRPTARate))
		} else {
			add(FlagFIRPTA, SeverityAdvisory, "26 U.S.C. 1445", "FIRPTA withholding applies")
		}
	}
	if g.PACE && d.Property.PACEAssessment {
		add(FlagPACE, SeverityAdvisory, "FL 163.08", "PACE assessment must be paid off or assumed")
	}
	if g.SIRS && d.Property.IsCondo && d.Property.SIRSPending {
		add(FlagSIRS, SeverityAdvisory, "FL 718.112", "Condo structural integrity reserve study pending")
	}
	if g.Flood50 && d.Property.FloodZone && c.CapAIV > 0 && c.TotalRepairs > 0.5*c.CapAIV {
		add(FlagFlood50, SeverityAdvisory, "FEMA 50% rule", "Repairs exceed 50%% of structure value in a flood zone")
	}
	if g.Homestead && d.Property.IsHomestead {
		add(FlagHomestead, SeverityAdvisory, "FL Const. Art. X s.4", "Homestead property; spousal joinder required")
	}
	if g.ForeclosureSale && d.Property.IsForeclosureSale {
		add(FlagForeclosureSale, SeverityAdvisory, "FL 45.031", "Foreclosure sale purchase; title may require quiet title")
	}
	if g.Redemption && foreclosure.ParseStatus(d.Foreclosure.Status) == foreclosure.StatusRedemption {
		add(FlagRedemption, SeverityAdvisory, "FL 45.0315", "Owner redemption period open")
	}
	if days, ok := d.Property.DaysSinceAcquired.Value(); g.FHA90Day && ok && days < FHAResaleDays {
		add(FlagFHA90Day, SeverityAdvisory, "24 CFR 203.37a", "Seller acquired %.0f days ago; FHA buyers restricted", days)
	}

	offer, hasOffer := c.InstantCashOffer.Value()
	if payoff, ok := c.ProjectedPayoffClose.Value(); ok && hasOffer && offer-payoff < u.CashGateMinOverPayoff {
		add(FlagCashPresentation, SeverityAdvisory, "", "Offer clears payoff by less than $%.2f", u.CashGateMinOverPayoff)
	}
	if spread, ok := c.DealSpread.Value(); ok && u.BorderlineBand > 0 && math.Abs(spread-c.MinSpread) <= u.BorderlineBand {
		add(FlagBorderline, SeverityAdvisory, "", "Spread within $%.2f of the minimum; analyst review", u.BorderlineBand)
	}
	if dtm, ok := c.DaysToMoney.Value(); ok && u.DaysToMoneyMax > 0 && dtm > u.DaysToMoneyMax {
		add(FlagDTMExceedsMax, SeverityAdvisory, "", "Days to money %.0f exceeds %.0f", dtm, u.DaysToMoneyMax)
	}

	if rec := d.Costs.DoubleClose; rec.Type != "" || rec.PAB.Valid() || rec.PBC.Valid() {
		if gross := o.DoubleClose.GrossSpread; gross < u.DoubleClose.MinSpreadThreshold {
			add(FlagDCMinSpread, SeverityAdvisory, "", "Double-close gross spread $%.2f below $%.2f", gross, u.DoubleClose.MinSpreadThreshold)
		}
	}
	if fee, ok := o.WholesaleFee.Fee.Value(); ok && fee < u.AssignmentFeeTarget {
		add(FlagAssignmentTarget, SeverityAdvisory, "", "Wholesale fee $%.2f below target $%.2f", fee, u.AssignmentFeeTarget)
	}
	return flags
}

// listingAllowed is false with any blocking flag or when the sale is
// closer than the urgent cash window.
func listingAllowed(flags []Flag, urgencyDays numeric.Number, u policy.Underwriting) bool {
	for _, f := range flags {
		if f.Severity == SeverityBlocking {
			return false
		}
	}
	if days, ok := urgencyDays.Value(); ok && days <= u.UrgentCashMaxDTM {
		return false
	}
	return true
}

func flagCodes(flags []Flag) []string {
	codes := make([]string, len(flags))
	for i, f := range flags {
		codes[i] = f.Code
	}
	return codes
}
