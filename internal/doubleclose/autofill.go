package doubleclose

import (
	"strings"

	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/numeric"
)

// AutofillContext is what the surrounding deal and engine know about the
// transaction.
type AutofillContext struct {
	County            string
	PropertyType      string
	InstantCashOffer  numeric.Number
	ARV               numeric.Number
	FundingPointsRate float64
}

// Autofill returns a copy of rec with blanks filled from ctx. Values the
// user already entered are never overwritten.
func Autofill(rec model.DoubleCloseRecord, ctx AutofillContext) model.DoubleCloseRecord {
	out := rec.Clone()
	if strings.TrimSpace(out.County) == "" {
		out.County = strings.TrimSpace(ctx.County)
		if out.County == "" {
			out.County = DefaultCounty
		}
	}
	if out.PropertyType == "" {
		out.PropertyType = ctx.PropertyType
	}
	if out.CarryBasis == "" {
		out.CarryBasis = model.CarryBasisDay
	}
	if out.UsingTF && !out.TFPointsRate.Valid() {
		rate := ctx.FundingPointsRate
		if rate <= 0 {
			rate = DefaultRates().FundingPointsRate
		}
		out.TFPointsRate = numeric.Of(rate)
	}
	if !out.PAB.Valid() {
		out.PAB = ctx.InstantCashOffer
	}
	if !out.PBC.Valid() {
		out.PBC = ctx.ARV
	}
	return out
}
