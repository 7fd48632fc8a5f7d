// Package foreclosure models Florida judicial foreclosure progress: the
// status state machine with its progressive field disclosure, date-order
// validation, and the days-until-sale estimate that drives seller urgency.
package foreclosure

import (
	"slices"
	"strings"

	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/numeric"
)

// Status is a foreclosure status.
type Status string

// Foreclosure statuses. Unknown is used for missing or unrecognized input.
const (
	StatusNone           Status = "none"
	StatusPreForeclosure Status = "pre_foreclosure"
	StatusLisPendens     Status = "lis_pendens_filed"
	StatusJudgment       Status = "judgment_entered"
	StatusSaleScheduled  Status = "sale_scheduled"
	StatusRedemption     Status = "post_sale_redemption"
	StatusREO            Status = "reo_bank_owned"
	StatusUnknown        Status = "unknown"
)

// Progression is the status order used for field visibility. REO is a
// terminal side branch placed last so it discloses every field.
var Progression = []Status{
	StatusNone,
	StatusPreForeclosure,
	StatusLisPendens,
	StatusJudgment,
	StatusSaleScheduled,
	StatusRedemption,
	StatusREO,
}

// Form field names.
const (
	FieldStatus             = "foreclosure_status"
	FieldDaysDelinquent     = "days_delinquent"
	FieldFirstMissedPayment = "first_missed_payment_date"
	FieldLisPendens         = "lis_pendens_date"
	FieldJudgment           = "judgment_date"
	FieldAuction            = "auction_date"
)

// Fields lists every form field in display order.
var Fields = []string{
	FieldStatus,
	FieldDaysDelinquent,
	FieldFirstMissedPayment,
	FieldLisPendens,
	FieldJudgment,
	FieldAuction,
}

// disclosure maps the first status that reveals a group of fields.
var disclosure = []struct {
	from   Status
	fields []string
}{
	{StatusPreForeclosure, []string{FieldDaysDelinquent, FieldFirstMissedPayment}},
	{StatusLisPendens, []string{FieldLisPendens}},
	{StatusJudgment, []string{FieldJudgment}},
	{StatusSaleScheduled, []string{FieldAuction}},
}

// ParseStatus normalizes a status string. Empty input is StatusUnknown, as
// is any value outside the known set.
func ParseStatus(s string) Status {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Progression, st) {
		return st
	}
	return StatusUnknown
}

// Index returns the status position in Progression, or -1.
func Index(s Status) int {
	return slices.Index(Progression, s)
}

// VisibleFields returns the form fields disclosed at a status. The status
// field itself is always visible.
func VisibleFields(s Status) []string {
	out := []string{FieldStatus}
	idx := Index(s)
	if idx <= 0 {
		return out
	}
	for _, d := range disclosure {
		if idx >= Index(d.from) {
			out = append(out, d.fields...)
		}
	}
	return out
}

// IsVisible reports whether field is disclosed at status s.
func IsVisible(s Status, field string) bool {
	return slices.Contains(VisibleFields(s), field)
}

// ApplyStatus sets a new status and clears every field the status hides.
// The input is not modified.
func ApplyStatus(d model.ForeclosureDetails, status string) model.ForeclosureDetails {
	out := d
	out.Status = status
	st := ParseStatus(status)
	if !IsVisible(st, FieldDaysDelinquent) {
		out.DaysDelinquent = numeric.Null()
	}
	if !IsVisible(st, FieldFirstMissedPayment) {
		out.FirstMissedPaymentDate = ""
	}
	if !IsVisible(st, FieldLisPendens) {
		out.LisPendensDate = ""
	}
	if !IsVisible(st, FieldJudgment) {
		out.JudgmentDate = ""
	}
	if !IsVisible(st, FieldAuction) {
		out.AuctionDate = ""
	}
	return out
}

// CompletedFields counts visible fields that hold a value.
func CompletedFields(d model.ForeclosureDetails) int {
	st := ParseStatus(d.Status)
	n := 0
	for _, f := range VisibleFields(st) {
		if hasValue(d, f) {
			n++
		}
	}
	return n
}

func hasValue(d model.ForeclosureDetails, field string) bool {
	switch field {
	case FieldStatus:
		return strings.TrimSpace(d.Status) != ""
	case FieldDaysDelinquent:
		return d.DaysDelinquent.Valid()
	case FieldFirstMissedPayment:
		return d.FirstMissedPaymentDate != ""
	case FieldLisPendens:
		return d.LisPendensDate != ""
	case FieldJudgment:
		return d.JudgmentDate != ""
	case FieldAuction:
		return d.AuctionDate != ""
	}
	return false
}
