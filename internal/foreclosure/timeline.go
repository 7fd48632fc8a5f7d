package foreclosure

import (
	"math"
	"strings"
	"time"

	"github.com/sells-group/underwrite-cli/internal/model"
)

// DateLayout is the calendar date format for every foreclosure date.
const DateLayout = "2006-01-02"

// Urgency is a foreclosure urgency level.
type Urgency string

// Urgency levels, least urgent first.
const (
	UrgencyNone     Urgency = "none"
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Auction date sources.
const (
	SourceConfirmed = "confirmed"
	SourceEstimated = "estimated"
	SourceUnknown   = "unknown"
)

// Days-until-sale thresholds.
const (
	CriticalMaxDays = 30
	HighMaxDays     = 60
	MediumMaxDays   = 120
)

// MotivationBoost is the seller motivation bonus per urgency level.
var MotivationBoost = map[Urgency]int{
	UrgencyNone:     0,
	UrgencyLow:      5,
	UrgencyMedium:   10,
	UrgencyHigh:     15,
	UrgencyCritical: 25,
}

// Stage describes one foreclosure stage. TypicalDays of zero means the
// stage has no typical duration.
type Stage struct {
	Position    string  `json:"position"`
	TypicalDays int     `json:"typical_days,omitempty"`
	Statute     string  `json:"statute,omitempty"`
	Urgency     Urgency `json:"urgency"`
	Description string  `json:"description"`
}

// Stages holds the Florida stage table.
var Stages = map[Status]Stage{
	StatusNone:           {Position: "not_in_foreclosure", Urgency: UrgencyNone, Description: "Not in foreclosure"},
	StatusPreForeclosure: {Position: "pre_foreclosure", TypicalDays: 90, Statute: "FL 702.10", Urgency: UrgencyMedium, Description: "Delinquent, no lis pendens yet"},
	StatusLisPendens:     {Position: "lis_pendens", TypicalDays: 180, Statute: "FL 702.10(1)", Urgency: UrgencyHigh, Description: "Lis pendens filed"},
	StatusJudgment:       {Position: "judgment", TypicalDays: 45, Statute: "FL 702.10(5)", Urgency: UrgencyHigh, Description: "Final judgment of foreclosure entered"},
	StatusSaleScheduled:  {Position: "sale_scheduled", TypicalDays: 30, Statute: "FL 45.031(1)", Urgency: UrgencyCritical, Description: "Foreclosure sale scheduled"},
	StatusRedemption:     {Position: "redemption_period", TypicalDays: 10, Statute: "FL 45.0315", Urgency: UrgencyCritical, Description: "Post-sale right of redemption period"},
	StatusREO:            {Position: "reo_bank_owned", Urgency: UrgencyNone, Description: "Bank owned, foreclosure complete"},
	StatusUnknown:        {Position: "pre_foreclosure", Urgency: UrgencyMedium, Description: "Unknown foreclosure status"},
}

// KeyDates echoes the milestone dates used for the estimate.
type KeyDates struct {
	FirstMissedPayment string `json:"first_missed_payment,omitempty"`
	LisPendensFiled    string `json:"lis_pendens_filed,omitempty"`
	JudgmentEntered    string `json:"judgment_entered,omitempty"`
	AuctionScheduled   string `json:"auction_scheduled,omitempty"`
}

// Timeline is the foreclosure timeline estimate.
type Timeline struct {
	Status            Status   `json:"status"`
	Position          string   `json:"timeline_position"`
	DaysUntilSale     *int     `json:"days_until_estimated_sale"`
	Urgency           Urgency  `json:"urgency_level"`
	MotivationBoost   int      `json:"seller_motivation_boost"`
	Statute           string   `json:"statute_reference,omitempty"`
	AuctionDateSource string   `json:"auction_date_source"`
	KeyDates          KeyDates `json:"key_dates"`
}

// ParseDate parses a calendar date. A full timestamp is truncated to its
// date part. Blank or malformed input reports false.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DaysBetween returns whole days from from to to, negative when to is earlier.
func DaysBetween(from, to time.Time) int {
	return int(math.Floor(to.Sub(from).Hours() / 24))
}

// Estimate computes the timeline as of asOf. A valid auction date is used
// as confirmed; otherwise the remaining typical stage durations are summed,
// crediting days already spent since lis pendens or judgment.
func Estimate(d model.ForeclosureDetails, asOf time.Time) Timeline {
	status := ParseStatus(d.Status)
	stage := Stages[status]
	t := Timeline{
		Status:            status,
		Position:          stage.Position,
		Statute:           stage.Statute,
		AuctionDateSource: SourceUnknown,
		KeyDates: KeyDates{
			FirstMissedPayment: d.FirstMissedPaymentDate,
			LisPendensFiled:    d.LisPendensDate,
			JudgmentEntered:    d.JudgmentDate,
			AuctionScheduled:   d.AuctionDate,
		},
	}

	if auction, ok := ParseDate(d.AuctionDate); ok {
		days := DaysBetween(asOf, auction)
		t.DaysUntilSale = &days
		t.AuctionDateSource = SourceConfirmed
	} else if stage.TypicalDays > 0 {
		days := estimateDays(status, d, asOf)
		t.DaysUntilSale = &days
		t.AuctionDateSource = SourceEstimated
	}

	t.Urgency = urgencyFor(status, t.DaysUntilSale)
	t.MotivationBoost = MotivationBoost[t.Urgency]
	return t
}

func estimateDays(status Status, d model.ForeclosureDetails, asOf time.Time) int {
	elapsed := 0
	switch status {
	case StatusLisPendens:
		if lp, ok := ParseDate(d.LisPendensDate); ok {
			elapsed = max(0, DaysBetween(lp, asOf))
		}
	case StatusJudgment:
		if j, ok := ParseDate(d.JudgmentDate); ok {
			elapsed = max(0, DaysBetween(j, asOf))
		}
	}

	total := max(0, Stages[status].TypicalDays-elapsed)
	var following []Status
	switch status {
	case StatusPreForeclosure:
		following = []Status{StatusLisPendens, StatusJudgment, StatusSaleScheduled}
	case StatusLisPendens:
		following = []Status{StatusJudgment, StatusSaleScheduled}
	case StatusJudgment:
		following = []Status{StatusSaleScheduled}
	}
	for _, s := range following {
		total += Stages[s].TypicalDays
	}
	return total
}

func urgencyFor(status Status, daysUntilSale *int) Urgency {
	if status == StatusNone || status == StatusREO {
		return UrgencyNone
	}
	if daysUntilSale == nil {
		return Stages[status].Urgency
	}
	days := *daysUntilSale
	switch {
	case days < 0, days <= CriticalMaxDays:
		return UrgencyCritical
	case days <= HighMaxDays:
		return UrgencyHigh
	case days <= MediumMaxDays:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}
