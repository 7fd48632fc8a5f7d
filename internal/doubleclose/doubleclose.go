// Package doubleclose computes the economics of a double close: two
// back-to-back closings, A→B at PAB and B→C at PBC, and whether the net
// spread clears the fee target.
package doubleclose

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/numeric"
)

// Fee target outcomes.
const (
	FeeTargetYes    = "YES"
	FeeTargetNo     = "NO"
	FeeTargetReview = "REVIEW"
)

// Calcs is the itemized double-close result.
type Calcs struct {
	County       string  `json:"County"`
	DeedRate     float64 `json:"Deed_Rate"`
	DeedStampsAB float64 `json:"Deed_Stamps_AB"`
	DeedStampsBC float64 `json:"Deed_Stamps_BC"`
	TitleAB      float64 `json:"Title_AB"`
	TitleBC      float64 `json:"Title_BC"`
	RecordingAB  float64 `json:"Recording_AB"`
	RecordingBC  float64 `json:"Recording_BC"`
	HOAEstoppel  float64 `json:"HOA_Estoppel"`
	OtherAB      float64 `json:"Other_AB"`
	OtherBC      float64 `json:"Other_BC"`

	TFPoints       float64 `json:"TF_Points_$"`
	TFExtraFees    float64 `json:"TF_Extra_Fees"`
	DocStampsNote  float64 `json:"DocStamps_Note"`
	IntangibleTax  float64 `json:"Intangible_Tax"`
	BuySideCosts   float64 `json:"Buy_Side_Costs"`
	SellSideCosts  float64 `json:"Sell_Side_Costs"`
	ExtraClosing   float64 `json:"Extra_Closing_Load"`
	AssignmentFee  float64 `json:"Assignment_Fee"`
	GrossSpread    float64 `json:"Gross_Spread"`
	NetBeforeCarry float64 `json:"Net_Spread_Before_Carry"`

	HoldDays      float64 `json:"Hold_Days"`
	CarryDaily    float64 `json:"Carry_Daily"`
	CarryTotal    float64 `json:"Carry_Total"`
	NetAfterCarry float64 `json:"Net_Spread_After_Carry"`

	FeeTargetThreshold float64  `json:"Fee_Target_Threshold"`
	FeeTargetCheck     string   `json:"Fee_Target_Check"`
	SeasoningFlag      bool     `json:"Seasoning_Flag"`
	Notes              []string `json:"notes"`
}

// DeedStamps returns price rounded up to the next $100 block times the
// per-$100 rate.
func DeedStamps(price, per100 float64) float64 {
	price = numeric.SafeNonNeg(price)
	return numeric.Money(math.Ceil(price/100) * numeric.SafeNonNeg(per100))
}

// TitlePremium returns the tiered title premium for a price.
func TitlePremium(price float64, r Rates) float64 {
	price = numeric.SafeNonNeg(price)
	first := math.Min(price, r.TitleTierLimit)
	excess := math.Max(price-r.TitleTierLimit, 0)
	return numeric.Money(first/1000*r.TitleTierPerThousand + excess/1000*r.TitleExcessPerThou)
}

// RecordingFee returns the recording fee for a page count. Fewer than one
// page counts as one.
func RecordingFee(pages float64, r Rates) float64 {
	p := math.Max(math.Floor(numeric.Safe(pages)), 1)
	return numeric.Money(r.RecordingFirstPage + (p-1)*r.RecordingPerPage)
}

// Estoppel returns the HOA estoppel charge: zero without an association,
// the explicit fee or the statutory cap otherwise, plus the rush fee.
func Estoppel(rec model.DoubleCloseRecord, r Rates) float64 {
	if !rec.AssociationPresent {
		return 0
	}
	fee := numeric.SafeNonNeg(rec.EstoppelFee.Or(r.EstoppelCap))
	if rec.RushEstoppel {
		fee += r.RushFee
	}
	return numeric.Money(fee)
}

// DailyCarry converts the carry amount to a daily rate.
func DailyCarry(rec model.DoubleCloseRecord) float64 {
	amount := numeric.SafeNonNeg(rec.CarryAmount.Float())
	if strings.EqualFold(rec.CarryBasis, model.CarryBasisMonth) {
		return amount / 30
	}
	return amount
}

// FeeTargetCheck classifies the net spread after carry against the threshold.
func FeeTargetCheck(netAfterCarry, threshold float64, inputsFinite bool) string {
	switch {
	case !inputsFinite || !numeric.Finite(netAfterCarry):
		return FeeTargetReview
	case netAfterCarry < 0:
		return FeeTargetNo
	case netAfterCarry >= threshold:
		return FeeTargetYes
	default:
		return FeeTargetReview
	}
}

// Compute itemizes both legs of a double close. It never fails: missing
// values count as zero and missing prices yield a REVIEW fee check.
func Compute(rec model.DoubleCloseRecord, r Rates) Calcs {
	pab, pabOK := rec.PAB.Value()
	pbc, pbcOK := rec.PBC.Value()
	pab, pbc = numeric.SafeNonNeg(pab), numeric.SafeNonNeg(pbc)

	c := Calcs{
		County:   CountyName(rec.County),
		DeedRate: r.DeedRate(rec.County, rec.PropertyType),
	}
	c.DeedStampsAB = DeedStamps(pab, c.DeedRate)
	c.DeedStampsBC = DeedStamps(pbc, c.DeedRate)
	c.TitleAB = numeric.Money(numeric.SafeNonNeg(rec.TitleAB.Or(TitlePremium(pab, r))))
	c.TitleBC = numeric.Money(numeric.SafeNonNeg(rec.TitleBC.Or(TitlePremium(pbc, r))))
	c.RecordingAB = RecordingFee(rec.PagesAB.Or(1), r)
	c.RecordingBC = RecordingFee(rec.PagesBC.Or(1), r)
	c.HOAEstoppel = Estoppel(rec, r)
	c.OtherAB = numeric.Money(numeric.SafeNonNeg(rec.OtherAB.Float()) + c.HOAEstoppel)
	c.OtherBC = numeric.Money(numeric.SafeNonNeg(rec.OtherBC.Float()))

	if rec.UsingTF {
		principal := numeric.SafeNonNeg(rec.TFPrincipal.Or(pab))
		c.TFPoints = numeric.Money(principal * numeric.SafeNonNeg(rec.TFPointsRate.Or(r.FundingPointsRate)))
		c.TFExtraFees = numeric.Money(numeric.SafeNonNeg(rec.TFExtraFees.Float()))
		if isTrueOrUnset(rec.TFNoteInState) && isTrueOrUnset(rec.TFSecuredByInStateProp) {
			c.DocStampsNote = numeric.Money(math.Ceil(principal/100) * r.NoteStampPer100)
			c.IntangibleTax = numeric.Money(principal * r.IntangibleRate)
		}
	}

	c.BuySideCosts = numeric.Money(c.DeedStampsAB + c.TitleAB + c.RecordingAB + c.OtherAB +
		c.DocStampsNote + c.IntangibleTax + c.TFPoints + c.TFExtraFees)
	c.SellSideCosts = numeric.Money(c.DeedStampsBC + c.TitleBC + c.RecordingBC + c.OtherBC)
	c.ExtraClosing = numeric.Money(c.BuySideCosts + c.SellSideCosts)

	c.AssignmentFee = numeric.Money(numeric.SafeNonNeg(rec.AssignmentFee.Float()))
	c.GrossSpread = numeric.Money(pbc - pab)
	c.NetBeforeCarry = numeric.Money(c.GrossSpread - c.ExtraClosing - c.AssignmentFee)

	c.HoldDays = math.Floor(numeric.SafeNonNeg(rec.HoldDays.Float()))
	c.CarryDaily = numeric.Money(DailyCarry(rec))
	c.CarryTotal = numeric.Money(c.CarryDaily * c.HoldDays)
	c.NetAfterCarry = numeric.Money(c.NetBeforeCarry - c.CarryTotal)

	c.FeeTargetThreshold = numeric.Money(numeric.SafeNonNeg(rec.FeeTargetThreshold.Float()))
	c.FeeTargetCheck = FeeTargetCheck(c.NetAfterCarry, c.FeeTargetThreshold, pabOK && pbcOK)
	c.SeasoningFlag = c.HoldDays > r.SeasoningDays
	c.Notes = notes(c, rec, pabOK && pbcOK)
	return c
}

func isTrueOrUnset(b *bool) bool { return b == nil || *b }

func notes(c Calcs, rec model.DoubleCloseRecord, pricesKnown bool) []string {
	p := message.NewPrinter(language.English)
	out := []string{
		fmt.Sprintf("County: %s (deed rate %.4g)", c.County, c.DeedRate/100),
	}
	if rec.Type != "" {
		out = append(out, "Closing type: "+rec.Type)
	}
	if rec.UsingTF && c.DocStampsNote == 0 {
		out = append(out, "Transactional funding note is out of state: no note stamps or intangible tax")
	}
	if !pricesKnown {
		out = append(out, "Buy and sell prices are required for the fee target check")
	} else if c.FeeTargetCheck == FeeTargetReview {
		out = append(out, p.Sprintf("Net spread $%.2f is below fee target $%.2f", c.NetAfterCarry, c.FeeTargetThreshold))
	}
	if c.SeasoningFlag {
		out = append(out, fmt.Sprintf("Held %.0f days: review title seasoning", c.HoldDays))
	}
	return out
}
