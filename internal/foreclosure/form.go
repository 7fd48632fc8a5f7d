package foreclosure

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/numeric"
)

// MaxDaysDelinquent bounds days_delinquent at ten years.
const MaxDaysDelinquent = 3650

// Days-delinquent validation messages.
const (
	MsgInvalidNumber = "Please enter a valid number"
	MsgNegativeDays  = "Days cannot be negative"
	MsgDaysTooLarge  = "Days exceeds maximum (3650)"
)

// Errors maps a form field to its validation message.
type Errors map[string]string

// milestones lists the dated fields in required order with their labels.
var milestones = []struct {
	field string
	label string
	get   func(model.ForeclosureDetails) string
}{
	{FieldFirstMissedPayment, "first missed payment", func(d model.ForeclosureDetails) string { return d.FirstMissedPaymentDate }},
	{FieldLisPendens, "lis pendens", func(d model.ForeclosureDetails) string { return d.LisPendensDate }},
	{FieldJudgment, "judgment", func(d model.ForeclosureDetails) string { return d.JudgmentDate }},
	{FieldAuction, "auction", func(d model.ForeclosureDetails) string { return d.AuctionDate }},
}

// ValidateDates checks that populated milestone dates are in order. Each
// date is compared with the closest earlier populated one; a violation is
// reported on the later field. Unparseable dates are skipped.
func ValidateDates(d model.ForeclosureDetails) Errors {
	errs := Errors{}
	var prevLabel string
	var prev time.Time
	havePrev := false
	for _, m := range milestones {
		t, ok := ParseDate(m.get(d))
		if !ok {
			continue
		}
		if havePrev && t.Before(prev) {
			errs[m.field] = "Must be after " + prevLabel
		}
		prev, prevLabel, havePrev = t, m.label, true
	}
	return errs
}

// ValidateDaysDelinquent validates a raw days_delinquent form value. Nil
// and blank strings are allowed. It returns an empty string when valid.
func ValidateDaysDelinquent(raw any) string {
	var v float64
	switch x := raw.(type) {
	case nil:
		return ""
	case float64:
		v = x
	case int:
		v = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return MsgInvalidNumber
		}
		v = f
	case numeric.Number:
		f, ok := x.Value()
		if !ok {
			return ""
		}
		v = f
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return ""
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return MsgInvalidNumber
		}
		v = f
	default:
		return MsgInvalidNumber
	}

	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return MsgInvalidNumber
	case v < 0:
		return MsgNegativeDays
	case v > MaxDaysDelinquent:
		return MsgDaysTooLarge
	}
	return ""
}

// Validate runs every form check over decoded details.
func Validate(d model.ForeclosureDetails) Errors {
	errs := ValidateDates(d)
	if msg := ValidateDaysDelinquent(d.DaysDelinquent); msg != "" {
		errs[FieldDaysDelinquent] = msg
	}
	return errs
}

// Preview is the timeline summary shown next to the form.
type Preview struct {
	DaysUntilSale     *int    `json:"days_until_estimated_sale"`
	AuctionDateSource string  `json:"auction_date_source"`
	Urgency           Urgency `json:"urgency_level"`
	MotivationBoost   int     `json:"seller_motivation_boost"`
	Statute           string  `json:"statute_reference,omitempty"`
}

// NewPreview returns the timeline preview, or nil when the status is blank
// or none.
func NewPreview(d model.ForeclosureDetails, asOf time.Time) *Preview {
	s := strings.TrimSpace(d.Status)
	if s == "" || ParseStatus(s) == StatusNone {
		return nil
	}
	t := Estimate(d, asOf)
	return &Preview{
		DaysUntilSale:     t.DaysUntilSale,
		AuctionDateSource: t.AuctionDateSource,
		Urgency:           t.Urgency,
		MotivationBoost:   t.MotivationBoost,
		Statute:           t.Statute,
	}
}

// FormState is the evaluated form.
type FormState struct {
	Data            model.ForeclosureDetails `json:"data"`
	Errors          Errors                   `json:"errors"`
	Valid           bool                     `json:"is_valid"`
	VisibleFields   []string                 `json:"visible_fields"`
	CompletedFields int                      `json:"completed_fields"`
	TotalFields     int                      `json:"total_fields"`
	Preview         *Preview                 `json:"timeline_preview"`
}

// Evaluate validates the details and computes visibility and the preview.
func Evaluate(d model.ForeclosureDetails, asOf time.Time) FormState {
	return evaluate(d, Validate(d), asOf)
}

func evaluate(d model.ForeclosureDetails, errs Errors, asOf time.Time) FormState {
	visible := VisibleFields(ParseStatus(d.Status))
	return FormState{
		Data:            d,
		Errors:          errs,
		Valid:           len(errs) == 0,
		VisibleFields:   visible,
		CompletedFields: CompletedFields(d),
		TotalFields:     len(visible),
		Preview:         NewPreview(d, asOf),
	}
}

// DecodeForm decodes a JSON form payload and evaluates it. Unlike decoding
// straight into the details, a non-numeric days_delinquent is reported as a
// field error instead of being dropped.
func DecodeForm(data []byte, asOf time.Time) (FormState, error) {
	var d model.ForeclosureDetails
	if err := json.Unmarshal(data, &d); err != nil {
		return FormState{}, eris.Wrap(err, "foreclosure: decode form")
	}
	var raw struct {
		DaysDelinquent any `json:"days_delinquent"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return FormState{}, eris.Wrap(err, "foreclosure: decode form")
	}

	errs := ValidateDates(d)
	if msg := ValidateDaysDelinquent(raw.DaysDelinquent); msg != "" {
		errs[FieldDaysDelinquent] = msg
	}
	return evaluate(d, errs, asOf), nil
}
